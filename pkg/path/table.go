package path

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/source"
)

// PathTableRecord is one row of the type L path table.
type PathTableRecord struct {
	DirectoryIdentifierLength     byte   // Directory identifier length
	ExtendedAttributeRecordLength byte   // Extended attribute record length
	LocationOfExtent              uint32 // Location of extent
	ParentDirectoryNumber         uint16 // Parent directory number, 1 based
	DirectoryIdentifier           string // Directory identifier
	Padding                       []byte // Padding to align record if identifier length is odd
	logger                        logr.Logger
}

func NewPathTableRecord(logger logr.Logger) *PathTableRecord {
	return &PathTableRecord{logger: logger}
}

// Unmarshal decodes a record from the start of data. data may extend past the record.
func (ptr *PathTableRecord) Unmarshal(data []byte) error {
	if len(data) < 8 {
		return errors.New("invalid data length")
	}

	ptr.DirectoryIdentifierLength = data[0]
	ptr.ExtendedAttributeRecordLength = data[1]
	ptr.LocationOfExtent = uint32(data[2]) | uint32(data[3])<<8 | uint32(data[4])<<16 | uint32(data[5])<<24
	ptr.ParentDirectoryNumber = uint16(data[6]) | uint16(data[7])<<8

	end := 8 + int(ptr.DirectoryIdentifierLength)
	if end > len(data) {
		return fmt.Errorf("directory identifier length %d exceeds remaining %d bytes", ptr.DirectoryIdentifierLength, len(data)-8)
	}
	ptr.DirectoryIdentifier = string(data[8:end])
	ptr.Padding = nil
	if ptr.DirectoryIdentifierLength%2 != 0 && end < len(data) {
		ptr.Padding = data[end : end+1]
	}

	ptr.logger.V(logging.TRACE).Info("Path table record",
		"identifier", ptr.Name(),
		"extent", ptr.LocationOfExtent,
		"parent", ptr.ParentDirectoryNumber,
	)
	return nil
}

// Size returns the on-disk size of the record including its pad byte.
func (ptr *PathTableRecord) Size() int {
	n := 8 + int(ptr.DirectoryIdentifierLength)
	if ptr.DirectoryIdentifierLength%2 != 0 {
		n++
	}
	return n
}

// IsRoot reports whether the record is the root directory row.
func (ptr *PathTableRecord) IsRoot() bool {
	return ptr.DirectoryIdentifierLength == 1 && ptr.DirectoryIdentifier == "\x00"
}

// Name returns the directory identifier, or "/" for the root.
func (ptr *PathTableRecord) Name() string {
	if ptr.IsRoot() {
		return "/"
	}
	return ptr.DirectoryIdentifier
}

// PathTable is the decoded path table. Row n of the on-disk table is element n-1.
type PathTable []*PathTableRecord

// ReadPathTable reads size bytes of the type L path table starting at block location.
func ReadPathTable(r *source.BlockReader, location, size uint32, logger logr.Logger) (PathTable, error) {
	if size == 0 {
		return nil, nil
	}

	data, err := r.ReadBlocks(location, r.BlocksFor(size))
	if err != nil {
		return nil, fmt.Errorf("failed to read path table: %w", err)
	}
	data = data[:size]

	var table PathTable
	for offset := 0; offset < len(data); {
		if data[offset] == 0 {
			return table, fmt.Errorf("%w: zero length path table identifier at offset %d", isoerr.ErrCorrupt, offset)
		}
		rec := NewPathTableRecord(logger)
		if err := rec.Unmarshal(data[offset:]); err != nil {
			return table, fmt.Errorf("%w: path table record at offset %d: %v", isoerr.ErrCorrupt, offset, err)
		}
		table = append(table, rec)
		offset += rec.Size()
	}

	logger.V(logging.DEBUG).Info("Read path table", "records", len(table), "size", size)
	return table, nil
}

// Parent returns the parent row of row index (1 based), or nil.
func (t PathTable) Parent(index int) *PathTableRecord {
	if index < 1 || index > len(t) {
		return nil
	}
	parent := int(t[index-1].ParentDirectoryNumber)
	if parent < 1 || parent > len(t) {
		return nil
	}
	return t[parent-1]
}

// Lookup resolves a chain of directory names from the root and returns the 1 based row index.
func (t PathTable) Lookup(components []string) (int, bool) {
	if len(t) == 0 {
		return 0, false
	}
	current := 1
	for _, name := range components {
		found := 0
		for i, rec := range t {
			index := i + 1
			if index != current && int(rec.ParentDirectoryNumber) == current && rec.DirectoryIdentifier == name {
				found = index
				break
			}
		}
		if found == 0 {
			return 0, false
		}
		current = found
	}
	return current, true
}

// FullPath returns the absolute path of row index (1 based).
func (t PathTable) FullPath(index int) string {
	var parts []string
	// Rows only point at earlier rows, so the walk is bounded by the table length
	for steps := 0; index > 1 && index <= len(t) && steps < len(t); steps++ {
		rec := t[index-1]
		parts = append([]string{rec.DirectoryIdentifier}, parts...)
		index = int(rec.ParentDirectoryNumber)
	}
	return "/" + strings.Join(parts, "/")
}
