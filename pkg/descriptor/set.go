package descriptor

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/pkg/consts"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/source"
)

// VolumeDescriptorSet is the result of scanning the descriptors from block 16.
type VolumeDescriptorSet struct {
	Primary    *PrimaryVolumeDescriptor
	Boot       *BootRecordDescriptor
	Skipped    []VolumeDescriptorType
	Terminated bool
	// Blocks is the number of descriptor blocks read, terminator included.
	Blocks int
}

// ReadVolumeDescriptorSet scans descriptor blocks from block 16 until the terminator, an invalid standard
// identifier or the end of the source. When several primary descriptors appear the last one is kept.
// ErrNoVolume is returned, together with whatever was scanned, when no usable primary descriptor exists.
func ReadVolumeDescriptorSet(r *source.BlockReader, logger logr.Logger) (*VolumeDescriptorSet, error) {
	set := &VolumeDescriptorSet{}
	sectorSize := int64(consts.ISO9660_SECTOR_SIZE)

	for block := uint32(consts.ISO9660_SYSTEM_AREA_SECTORS); int64(block+1)*sectorSize <= r.Size(); block++ {
		data, err := r.ReadAt(int64(block)*sectorSize, int(sectorSize))
		if err != nil {
			return set, fmt.Errorf("%w: reading volume descriptor at block %d: %w", isoerr.ErrNoVolume, block, err)
		}
		set.Blocks++

		header := &VolumeDescriptorHeader{}
		if err := header.Unmarshal(data); err != nil || !header.Valid() {
			logger.V(logging.DEBUG).Info("Stopping descriptor scan at invalid descriptor", "block", block, "identifier", header.StandardIdentifier)
			break
		}

		switch header.Type() {
		case VolumeDescriptorPrimary:
			logger.V(logging.DEBUG).Info("Processing primary volume descriptor", "block", block)
			pvd := &PrimaryVolumeDescriptor{}
			if err := pvd.Unmarshal(data); err != nil {
				return set, fmt.Errorf("%w: primary volume descriptor at block %d: %w", isoerr.ErrNoVolume, block, err)
			}
			set.Primary = pvd
		case VolumeDescriptorBootRecord:
			logger.V(logging.DEBUG).Info("Processing boot record volume descriptor", "block", block)
			boot := &BootRecordDescriptor{}
			if err := boot.Unmarshal(data); err != nil {
				logger.Error(err, "Ignoring unreadable boot record", "block", block)
				continue
			}
			set.Boot = boot
		case VolumeDescriptorSetTerminator:
			logger.V(logging.DEBUG).Info("Processing volume descriptor set terminator", "block", block)
			set.Terminated = true
		default:
			logger.V(logging.DEBUG).Info("Skipping volume descriptor", "block", block, "type", header.Type().String())
			set.Skipped = append(set.Skipped, header.Type())
		}

		if set.Terminated {
			break
		}
	}

	if set.Primary == nil {
		return set, fmt.Errorf("%w: no primary volume descriptor found", isoerr.ErrNoVolume)
	}
	return set, nil
}
