package descriptor

import (
	"fmt"
	"time"

	"github.com/rstms/iso-reader/pkg/consts"
	"github.com/rstms/iso-reader/pkg/directory"
	"github.com/rstms/iso-reader/pkg/encoding"
)

type PrimaryVolumeDescriptor struct {
	VolumeDescriptorHeader      `yaml:",inline"`
	PrimaryVolumeDescriptorBody `yaml:",inline"`
}

type PrimaryVolumeDescriptorBody struct {
	// System Identifier specifies a system which can recognize and act upon the content of the Logical Sectors within
	// logical Sector Numbers 0 to 15 of the volume.
	SystemIdentifier string `json:"system_identifier" yaml:"system_identifier"`
	// Volume Identifier specifies an identification of the volume
	VolumeIdentifier string `json:"volume_identifier" yaml:"volume_identifier"`
	// Volume Space Size is the number of logical blocks in which the Volume Space of the volume is recorded.
	VolumeSpaceSize uint32 `json:"volume_space_size" yaml:"volume_space_size"`
	// Volume Set Size is the assigned Volume Set size of the volume.
	VolumeSetSize uint16 `json:"volume_set_size" yaml:"volume_set_size"`
	// Volume Sequence Number is the ordinal number of the volume in the Volume Set.
	VolumeSequenceNumber uint16 `json:"volume_sequence_number" yaml:"volume_sequence_number"`
	// Logical Block Size specifies the size in bytes of a logical block
	LogicalBlockSize uint16 `json:"logical_block_size" yaml:"logical_block_size"`
	// Path Table Size specifies the length in bytes of the Path Table.
	PathTableSize uint32 `json:"path_table_size" yaml:"path_table_size"`
	// Logical Block Number of the type L Path Table.
	LocationOfTypeLPathTable uint32 `json:"location_type_of_l_path_table" yaml:"l_path_table"`
	// Logical Block Number of the optional type L Path Table, 0 when absent.
	LocationOfOptionalTypeLPathTable uint32 `json:"location_of_optional_type_l_path_table" yaml:"optional_l_path_table"`
	// Logical Block Number of the type M Path Table (big endian).
	LocationOfTypeMPathTable uint32 `json:"location_of_m_path_table" yaml:"m_path_table"`
	// Root Directory Record is the copy of the root directory record embedded at bytes 156-190.
	RootDirectoryRecord    *directory.DirectoryRecord `json:"-" yaml:"-"`
	VolumeSetIdentifier    string                     `json:"volume_set_identifier" yaml:"volume_set_identifier"`
	PublisherIdentifier    string                     `json:"publisher_identifier" yaml:"publisher_identifier"`
	DataPreparerIdentifier string                     `json:"data_preparer_identifier" yaml:"data_preparer_identifier"`
	ApplicationIdentifier  string                     `json:"application_identifier" yaml:"application_identifier"`
	// Volume Creation Date and Time
	//  | 8.4.26.1 Date and Time Format
	VolumeCreationDateAndTime time.Time `json:"volume_creation_date_and_time" yaml:"created"`
	// Volume Modification Date and Time
	//  | 8.4.26.1 Date and Time Format
	VolumeModificationDateAndTime time.Time `json:"volume_modification_date_and_time" yaml:"modified"`
	// File Structure Version is 1 for a Primary Volume Descriptor.
	FileStructureVersion uint8 `json:"file_structure_version" yaml:"file_structure_version"`
}

// Unmarshal decodes a primary volume descriptor block. Both byte order fields whose halves disagree are
// reported as errors since nothing else on the volume can be trusted when these are wrong.
func (d *PrimaryVolumeDescriptor) Unmarshal(data []byte) (err error) {
	if len(data) < consts.ISO9660_SECTOR_SIZE {
		return fmt.Errorf("primary volume descriptor too short: %d bytes", len(data))
	}
	if err = d.VolumeDescriptorHeader.Unmarshal(data); err != nil {
		return err
	}
	if d.VolumeDescriptorType != VolumeDescriptorPrimary {
		return fmt.Errorf("descriptor type %d is not primary", d.VolumeDescriptorType)
	}

	d.SystemIdentifier = encoding.UnmarshalString(data[8:40])
	d.VolumeIdentifier = encoding.UnmarshalString(data[40:72])

	if d.VolumeSpaceSize, err = encoding.UnmarshalUint32LSBMSB(data[80:88]); err != nil {
		return fmt.Errorf("volume space size: %w", err)
	}
	if d.VolumeSetSize, err = encoding.UnmarshalUint16LSBMSB(data[120:124]); err != nil {
		return fmt.Errorf("volume set size: %w", err)
	}
	if d.VolumeSequenceNumber, err = encoding.UnmarshalUint16LSBMSB(data[124:128]); err != nil {
		return fmt.Errorf("volume sequence number: %w", err)
	}
	if d.LogicalBlockSize, err = encoding.UnmarshalUint16LSBMSB(data[128:132]); err != nil {
		return fmt.Errorf("logical block size: %w", err)
	}
	if d.LogicalBlockSize == 0 || d.LogicalBlockSize&(d.LogicalBlockSize-1) != 0 {
		return fmt.Errorf("logical block size %d is not a power of two", d.LogicalBlockSize)
	}
	if d.PathTableSize, err = encoding.UnmarshalUint32LSBMSB(data[132:140]); err != nil {
		return fmt.Errorf("path table size: %w", err)
	}
	d.LocationOfTypeLPathTable = le32(data[140:144])
	d.LocationOfOptionalTypeLPathTable = le32(data[144:148])
	d.LocationOfTypeMPathTable = uint32(data[148])<<24 | uint32(data[149])<<16 | uint32(data[150])<<8 | uint32(data[151])

	rootData := data[consts.ISO9660_ROOT_RECORD_OFFSET : consts.ISO9660_ROOT_RECORD_OFFSET+consts.ISO9660_ROOT_RECORD_SIZE]
	res := directory.Decode(rootData, directory.Context{})
	if res.Kind != directory.KindRecord {
		return fmt.Errorf("root directory record: %s %s", res.Kind, res.Reason)
	}
	if !res.Record.IsDirectory() {
		return fmt.Errorf("root directory record is not flagged as a directory")
	}
	d.RootDirectoryRecord = res.Record

	d.VolumeSetIdentifier = encoding.UnmarshalString(data[190:318])
	d.PublisherIdentifier = encoding.UnmarshalString(data[318:446])
	d.DataPreparerIdentifier = encoding.UnmarshalString(data[446:574])
	d.ApplicationIdentifier = encoding.UnmarshalString(data[574:702])

	// Malformed volume dates are informational only
	d.VolumeCreationDateAndTime, _ = encoding.UnmarshalDateTime([17]byte(data[813:830]))
	d.VolumeModificationDateAndTime, _ = encoding.UnmarshalDateTime([17]byte(data[830:847]))
	d.FileStructureVersion = data[881]
	return nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
