package descriptor

import (
	"fmt"

	"github.com/rstms/iso-reader/pkg/consts"
	"github.com/rstms/iso-reader/pkg/encoding"
)

type BootRecordDescriptor struct {
	VolumeDescriptorHeader `yaml:",inline"`
	BootRecordBody         `yaml:",inline"`
}

type BootRecordBody struct {
	// Boot System Identifier specifies and identification of a system which can recognize and act upon the contents of
	// the Boot Identifier and Boot System Use fields in the Boot Record. (a-characters)
	BootSystemIdentifier string `json:"boot_system_identifier" yaml:"boot_system_identifier"`
	// Boot Identifier shall specify an identification of the boot system specified in the Boot System Use field of the
	// Boot Record. (a-characters)
	BootIdentifier string `json:"boot_identifier" yaml:"boot_identifier"`
	// BootCatalogBlock is the El Torito boot catalog pointer, only set for El Torito boot records.
	BootCatalogBlock uint32 `json:"boot_catalog_block,omitempty" yaml:"boot_catalog_block,omitempty"`
}

func (d *BootRecordDescriptor) Unmarshal(data []byte) error {
	if len(data) < consts.ISO9660_SECTOR_SIZE {
		return fmt.Errorf("boot record too short: %d bytes", len(data))
	}
	if err := d.VolumeDescriptorHeader.Unmarshal(data); err != nil {
		return err
	}
	d.BootSystemIdentifier = encoding.UnmarshalString(data[7:39])
	d.BootIdentifier = encoding.UnmarshalString(data[39:71])
	if d.IsElTorito() {
		d.BootCatalogBlock = le32(data[71:75])
	}
	return nil
}

// IsElTorito reports whether the boot system identifier names the El Torito specification.
func (d *BootRecordDescriptor) IsElTorito() bool {
	return d.BootSystemIdentifier == consts.EL_TORITO_BOOT_SYSTEM_ID
}
