package consts

const (
	// Number of system area sectors.
	ISO9660_SYSTEM_AREA_SECTORS = 16

	// Standard ISO9660 identifier.
	ISO9660_STD_IDENTIFIER = "CD001"

	// ISO9660 default sector size. The logical block size recorded in the primary volume descriptor overrides it.
	ISO9660_SECTOR_SIZE = 2048

	// ISO9660 volume descriptor header size
	ISO9660_VOLUME_DESC_HEADER_SIZE = 7

	// Offset and size of the root directory record embedded in the primary volume descriptor.
	ISO9660_ROOT_RECORD_OFFSET = 156
	ISO9660_ROOT_RECORD_SIZE   = 34

	// Size of the fixed part of a directory record, up to and including the identifier length byte.
	ISO9660_DIR_RECORD_FIXED_SIZE = 33

	// Separator between a file identifier and its version number.
	ISO9660_SEPARATOR_2 = ";"

	// ISO9660 Filler 0x20 (space)
	ISO9660_FILLER = " "

	// El Torito bootable cdrom system identifier.
	EL_TORITO_BOOT_SYSTEM_ID = "EL TORITO SPECIFICATION"

	// SUSP "SP" check bytes.
	SUSP_CHECK_BYTE_1 = 0xBE
	SUSP_CHECK_BYTE_2 = 0xEF

	// Upper bound on followed SUSP continuation areas per record.
	SUSP_MAX_CONTINUATIONS = 16

	// Default chunk size for streaming file extents.
	EXTRACT_CHUNK_SIZE = 64 * 1024
)
