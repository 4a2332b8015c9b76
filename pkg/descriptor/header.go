package descriptor

import (
	"fmt"

	"github.com/rstms/iso-reader/pkg/consts"
)

// VolumeDescriptorType represents the type of volume descriptor in the ISO 9660 standard.
type VolumeDescriptorType byte

const (
	// VolumeDescriptorBootRecord indicates a Boot Record (type 0).
	VolumeDescriptorBootRecord VolumeDescriptorType = 0x00

	// VolumeDescriptorPrimary indicates a Primary Volume Descriptor (type 1).
	VolumeDescriptorPrimary VolumeDescriptorType = 0x01

	// VolumeDescriptorSupplementary indicates a Supplementary Volume Descriptor (type 2).
	VolumeDescriptorSupplementary VolumeDescriptorType = 0x02

	// VolumeDescriptorPartition indicates a Partition Volume Descriptor (type 3).
	VolumeDescriptorPartition VolumeDescriptorType = 0x03

	// VolumeDescriptorSetTerminator indicates the Volume Descriptor Set Terminator (type 255).
	VolumeDescriptorSetTerminator VolumeDescriptorType = 0xFF
)

func (t VolumeDescriptorType) String() string {
	switch t {
	case VolumeDescriptorBootRecord:
		return "boot record"
	case VolumeDescriptorPrimary:
		return "primary"
	case VolumeDescriptorSupplementary:
		return "supplementary"
	case VolumeDescriptorPartition:
		return "partition"
	case VolumeDescriptorSetTerminator:
		return "terminator"
	default:
		return fmt.Sprintf("reserved(%d)", byte(t))
	}
}

type VolumeDescriptorHeader struct {
	// Volume Descriptor Types.
	//  | 0 = Boot Record
	//  | 1 = Primary
	//  | 2 = Supplementary
	//  | 3 = Partition
	//  | 4 - 254 = Reserved
	//  | 255 = Terminator
	VolumeDescriptorType VolumeDescriptorType `json:"volume_descriptor_type" yaml:"type"`
	// Standard Identifier should always be 'CD001' as a string or 0x4344303031.
	StandardIdentifier string `json:"standard_identifier" yaml:"standard_identifier"`
	// Volume Descriptor Version. The contents and interpretation depend on the Volume Descriptor Type field.
	VolumeDescriptorVersion uint8 `json:"volume_descriptor_version" yaml:"version"`
}

// Unmarshal decodes the 7 byte header at the start of a descriptor block.
func (h *VolumeDescriptorHeader) Unmarshal(data []byte) error {
	if len(data) < consts.ISO9660_VOLUME_DESC_HEADER_SIZE {
		return fmt.Errorf("volume descriptor header too short: %d bytes", len(data))
	}
	h.VolumeDescriptorType = VolumeDescriptorType(data[0])
	h.StandardIdentifier = string(data[1:6])
	h.VolumeDescriptorVersion = data[6]
	return nil
}

// Valid reports whether the standard identifier is "CD001".
func (h *VolumeDescriptorHeader) Valid() bool {
	return h.StandardIdentifier == consts.ISO9660_STD_IDENTIFIER
}

func (h *VolumeDescriptorHeader) Type() VolumeDescriptorType {
	return h.VolumeDescriptorType
}
