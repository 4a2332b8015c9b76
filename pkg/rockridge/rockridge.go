package rockridge

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/rstms/iso-reader/pkg/encoding"
)

const (
	ROCK_RIDGE_IDENTIFIER = "RRIP_1991A"
	ROCK_RIDGE_VERSION    = 1
)

type RockRidgeEntryType string

const (
	POSIX_FILE_PERMS RockRidgeEntryType = "PX" //POSIX file permissions (owner, group, other)
	POSIX_DEVICE_NUM RockRidgeEntryType = "PN" //Device numbers for block/character device nodes (major/minor)
	SYMBOLIC_LINK    RockRidgeEntryType = "SL" //Symbolic link data (path components,flags)
	ALTERNATE_NAME   RockRidgeEntryType = "NM" //AlternateName (used for long filenames, case preservation, etc.)
	CHILD_LINK       RockRidgeEntryType = "CL" //ChildLink (used for directory relocation chains)
	PARENT_LINK      RockRidgeEntryType = "PL" //ParentLink (links a relocated directory back to its parent)
	RELOCATED_DIR    RockRidgeEntryType = "RE" //Marks a directory that has been relocated
	TIME_STAMPS      RockRidgeEntryType = "TF" //Time stamp information (creation, modification, access,etc)
	SPARSE_FILE      RockRidgeEntryType = "SF" //Sparse file information (less commonly used)
	ROCK_RIDGE       RockRidgeEntryType = "RR" //An older “Rock Ridge” extension signature (now typically replaced by ER).
)

type RockRidgeNameEntry struct {
	Continue bool // Bit 0: Alternate Name continues in the next "NM" entry
	Current  bool // Bit 1: Alternate Name refers to the current directory ("." in POSIX)
	Parent   bool // Bit 2: Alternate Name refers to the parent directory (".." in POSIX)
	Name     string
}

// NM Entry Details
//
//		  Offset 0-1: Signature Word - "NM"
//		  Offset 2:   Length (LEN_NM) - 5 plus the length of the Name Content.
//		  Offset 3:   System Use Entry Version - 1.
//		  Offset 4:   Flags (NM Flags)
//				    	 Bit 0: Continuation - the Name Content is continued in the next "NM" entry.
//		                 Bit 1: Current - the name refers to the current directory.
//		                 Bit 2: Parent - the name refers to the parent directory.
//		  Offset 5:   Name Content - Variable length.
//	   NOTE: data starts at offset 4 of the System Use Entry record
func UnmarshalRockRidgeNameEntry(data []byte) (*RockRidgeNameEntry, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("NM entry too short: %d bytes", len(data))
	}
	flags := data[0]

	return &RockRidgeNameEntry{
		Continue: flags&0x01 > 0,
		Current:  flags&0x02 > 0,
		Parent:   flags&0x04 > 0,
		Name:     string(data[1:]),
	}, nil
}

type RockRidgePosixEntry struct {
	Mode     fs.FileMode
	RawMode  uint32
	Links    uint32
	UserId   uint32
	GroupId  uint32
	SerialNo uint32
}

// PX Entry Details
//
//	Offset 4-11: POSIX File Mode (both byte orders)
//	Offset 12-19: POSIX File Links
//	Offset 20-27: POSIX File User ID
//	Offset 28-35: POSIX File Group ID
//	Offset 36-43: POSIX File Serial Number, only present in RRIP 1.12 entries
func UnmarshalRockRidgePosixEntry(data []byte) (entry *RockRidgePosixEntry, err error) {
	// IMPORTANT: data input begins at offset 4 of the System Use Entry record
	if len(data) < 32 {
		return nil, fmt.Errorf("PX entry too short: %d bytes", len(data))
	}

	// Mismatched byte order halves are common in the wild so the little endian value is kept either way.
	modeVal, _ := encoding.UnmarshalUint32LSBMSB(data[0:8])
	links, _ := encoding.UnmarshalUint32LSBMSB(data[8:16])
	userId, _ := encoding.UnmarshalUint32LSBMSB(data[16:24])
	groupId, _ := encoding.UnmarshalUint32LSBMSB(data[24:32])

	var serialNo uint32
	if len(data) >= 40 {
		serialNo, _ = encoding.UnmarshalUint32LSBMSB(data[32:40])
	}

	return &RockRidgePosixEntry{
		Mode:     parseFileMode(modeVal),
		RawMode:  modeVal,
		Links:    links,
		UserId:   userId,
		GroupId:  groupId,
		SerialNo: serialNo,
	}, nil
}

// IsCharDevice reports whether the mode describes a character special file.
func (p *RockRidgePosixEntry) IsCharDevice() bool {
	return p.RawMode&0xF000 == 0x2000
}

// IsBlockDevice reports whether the mode describes a block special file.
func (p *RockRidgePosixEntry) IsBlockDevice() bool {
	return p.RawMode&0xF000 == 0x6000
}

type RockRidgeDeviceEntry struct {
	Major uint32
	Minor uint32
}

// PN Entry Details
//
//	Offset 4-11: Dev_t High (both byte orders)
//	Offset 12-19: Dev_t Low (both byte orders)
func UnmarshalRockRidgeDeviceEntry(data []byte) (*RockRidgeDeviceEntry, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("PN entry too short: %d bytes", len(data))
	}
	high, _ := encoding.UnmarshalUint32LSBMSB(data[0:8])
	low, _ := encoding.UnmarshalUint32LSBMSB(data[8:16])
	return &RockRidgeDeviceEntry{Major: high, Minor: low}, nil
}

// parseFileMode converts a 32-bit unsigned integer into an fs.FileMode struct
func parseFileMode(mode uint32) fs.FileMode {
	var fileMode fs.FileMode

	// File type bits
	switch mode & 0xF000 {
	case 0xC000:
		fileMode |= fs.ModeSocket
	case 0xA000:
		fileMode |= fs.ModeSymlink
	case 0x8000:
		// Regular file, no specific fs flag needed
	case 0x6000:
		fileMode |= fs.ModeDevice
	case 0x2000:
		fileMode |= fs.ModeDevice | fs.ModeCharDevice
	case 0x4000:
		fileMode |= fs.ModeDir
	case 0x1000:
		fileMode |= fs.ModeNamedPipe
	}

	// Permission bits map one to one
	fileMode |= fs.FileMode(mode & 0o777)

	// Special mode bits
	if mode&0x0800 != 0 {
		fileMode |= os.ModeSetuid
	}
	if mode&0x0400 != 0 {
		fileMode |= os.ModeSetgid
	}
	if mode&0x0200 != 0 {
		fileMode |= os.ModeSticky
	}

	return fileMode
}
