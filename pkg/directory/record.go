package directory

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/rstms/iso-reader/pkg/consts"
	"github.com/rstms/iso-reader/pkg/encoding"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/rockridge"
	"github.com/rstms/iso-reader/pkg/susp"
)

// DirectoryRecord represents a single Record in a directory.
type DirectoryRecord struct {
	LengthOfDirectoryRecord uint8
	ExtendedAttributeRecord uint8
	LocationOfExtent        uint32
	DataLength              uint32
	RecordingDateAndTime    time.Time
	FileFlags               FileFlags
	FileUnitSize            uint8
	InterleaveGapSize       uint8
	VolumeSequenceNumber    uint16
	FileIdentifierLength    uint8
	// FileIdentifier is the identifier as recorded, including any version suffix.
	FileIdentifier string
	// Name is the display name: "." and ".." for the special entries, the Rock Ridge name when one was decoded,
	// otherwise the identifier with its version suffix removed.
	Name      string
	SystemUse []byte
	RockRidge *rockridge.Info
}

// Kind tags the outcome of decoding one record.
type Kind int

const (
	KindRecord Kind = iota
	KindEndOfSector
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindEndOfSector:
		return "end-of-sector"
	default:
		return "malformed"
	}
}

// Result is the outcome of Decode. Record is set only for KindRecord, Reason only for KindMalformed.
type Result struct {
	Kind   Kind
	Record *DirectoryRecord
	Reason string
}

// Context holds the per image settings that affect record decoding.
type Context struct {
	// RockRidge enables decoding of the system use area.
	RockRidge bool
	// StripVersion removes ";N" suffixes from identifiers.
	StripVersion bool
	SUSP         susp.Context
}

// SystemUseOffset returns the offset of the system use area for an identifier of nameLen bytes. A pad byte
// follows even length identifiers.
func SystemUseOffset(nameLen int) int {
	off := consts.ISO9660_DIR_RECORD_FIXED_SIZE + nameLen
	if nameLen%2 == 0 {
		off++
	}
	return off
}

// Decode decodes the directory record at the start of buf.
func Decode(buf []byte, ctx Context) Result {
	if len(buf) == 0 || buf[0] == 0 {
		return Result{Kind: KindEndOfSector}
	}

	recLen := int(buf[0])
	switch {
	case recLen > len(buf):
		return malformed("record length %d exceeds the %d bytes left in the sector", recLen, len(buf))
	case recLen < consts.ISO9660_DIR_RECORD_FIXED_SIZE+1:
		return malformed("record length %d is shorter than the fixed header", recLen)
	}

	nameLen := int(buf[32])
	if nameLen == 0 || consts.ISO9660_DIR_RECORD_FIXED_SIZE+nameLen > recLen {
		return malformed("identifier length %d does not fit record length %d", nameLen, recLen)
	}

	dr := &DirectoryRecord{
		LengthOfDirectoryRecord: buf[0],
		ExtendedAttributeRecord: buf[1],
		LocationOfExtent:        binary.LittleEndian.Uint32(buf[2:6]),
		DataLength:              binary.LittleEndian.Uint32(buf[10:14]),
		RecordingDateAndTime:    encoding.UnmarshalRecordingDateTime([7]byte(buf[18:25])),
		FileUnitSize:            buf[26],
		InterleaveGapSize:       buf[27],
		VolumeSequenceNumber:    binary.LittleEndian.Uint16(buf[28:30]),
		FileIdentifierLength:    buf[32],
	}
	dr.FileFlags.Set(buf[25])

	raw := buf[consts.ISO9660_DIR_RECORD_FIXED_SIZE : consts.ISO9660_DIR_RECORD_FIXED_SIZE+nameLen]
	dr.FileIdentifier = string(raw)
	dr.Name = DecodeName(raw, ctx.StripVersion)

	suOff := SystemUseOffset(nameLen)
	if suOff < recLen {
		dr.SystemUse = buf[suOff:recLen]
	}

	if ctx.RockRidge && recLen > suOff+4 {
		suspCtx := ctx.SUSP
		// The root "." record starts with the SP entry itself, ahead of any skip bytes
		if dr.IsCurrent() && bytes.HasPrefix(dr.SystemUse, []byte(susp.SHARING_PROTOCOL_INDICATOR)) {
			suspCtx.SkipOffset = 0
		}
		info, err := susp.Decode(dr.SystemUse, suspCtx)
		if err != nil {
			ctx.SUSP.Logger.Error(err, "Failed to decode system use area, using what was decoded", "name", dr.Name, "extent", dr.LocationOfExtent)
		}
		dr.RockRidge = info
		if info.HasName() && !dr.IsSpecial() {
			ctx.SUSP.Logger.V(logging.TRACE).Info("Using Rock Ridge name", "iso", dr.Name, "name", info.Name)
			dr.Name = info.Name
		}
	}

	return Result{Kind: KindRecord, Record: dr}
}

func malformed(format string, args ...interface{}) Result {
	return Result{Kind: KindMalformed, Reason: fmt.Sprintf(format, args...)}
}

// DecodeName turns a raw identifier into a display name. Single byte identifiers 0x00 and 0x01 are the
// current and parent directory.
func DecodeName(raw []byte, stripVersion bool) string {
	if len(raw) == 1 {
		switch raw[0] {
		case 0x00:
			return "."
		case 0x01:
			return ".."
		}
	}

	name := string(raw)
	if !stripVersion {
		return name
	}
	if idx := strings.LastIndex(name, consts.ISO9660_SEPARATOR_2); idx >= 0 {
		name = name[:idx]
		// "README.;1" is a file without an extension
		if len(name) > 1 && strings.HasSuffix(name, ".") {
			name = name[:len(name)-1]
		}
	}
	return name
}

// IsDirectory reports whether the directory flag (0x02) is set.
func (dr *DirectoryRecord) IsDirectory() bool {
	return dr.FileFlags.Directory
}

// IsCurrent reports whether this is the "." entry.
func (dr *DirectoryRecord) IsCurrent() bool {
	return dr.FileIdentifierLength == 1 && dr.FileIdentifier[0] == 0x00
}

// IsParent reports whether this is the ".." entry.
func (dr *DirectoryRecord) IsParent() bool {
	return dr.FileIdentifierLength == 1 && dr.FileIdentifier[0] == 0x01
}

// IsSpecial reports whether this is the "." or ".." entry.
func (dr *DirectoryRecord) IsSpecial() bool {
	return dr.IsCurrent() || dr.IsParent()
}

// HasRockRidge returns true if the directory record has Rock Ridge extensions.
func (dr *DirectoryRecord) HasRockRidge() bool {
	return dr.RockRidge.HasRockRidge()
}

// Mode returns the Rock Ridge POSIX mode when present, otherwise a mode derived from the directory flag.
func (dr *DirectoryRecord) Mode() fs.FileMode {
	if dr.RockRidge != nil && dr.RockRidge.Posix != nil {
		mode := dr.RockRidge.Posix.Mode
		// The directory flag wins over a contradicting PX mode
		if dr.IsDirectory() {
			mode = (mode &^ fs.ModeType) | fs.ModeDir
		} else {
			mode &^= fs.ModeDir
		}
		return mode
	}
	if dr.IsDirectory() {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

// EndOffset returns the byte offset just past the record's extent for the given block size.
func (dr *DirectoryRecord) EndOffset(blockSize int64) int64 {
	return blockSize*int64(dr.LocationOfExtent) + int64(dr.DataLength)
}

func (dr *DirectoryRecord) String() string {
	return fmt.Sprintf("%s extent=%d length=%d flags=[%s]", dr.Name, dr.LocationOfExtent, dr.DataLength, dr.FileFlags)
}
