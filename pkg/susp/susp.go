// Package susp decodes System Use Sharing Protocol areas and the Rock Ridge entries they carry.
package susp

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/rockridge"
)

// AreaReader fetches continuation areas. *source.BlockReader satisfies it.
type AreaReader interface {
	ReadAt(off int64, n int) ([]byte, error)
	BlockSize() int64
}

// Context carries the per image state needed to decode a system use area.
type Context struct {
	// SkipOffset is the LEN_SKP value from the root SP entry.
	SkipOffset int
	// Reader is used to follow CE entries. Continuations are ignored when it is nil.
	Reader AreaReader
	// MaxContinuations bounds the number of continuation areas followed.
	MaxContinuations int
	Logger           logr.Logger
}

type areaKey struct {
	block  uint32
	offset uint32
}

// Decode walks the system use area of one directory record, following continuation areas, and returns the
// accumulated Rock Ridge information. Decoding is best effort: on malformed input the information gathered so
// far is returned together with an error describing where decoding stopped.
func Decode(area []byte, ctx Context) (*rockridge.Info, error) {
	info := &rockridge.Info{}
	logger := ctx.Logger

	if ctx.SkipOffset > 0 {
		if ctx.SkipOffset >= len(area) {
			return info, nil
		}
		area = area[ctx.SkipOffset:]
	}

	visited := make(map[areaKey]bool)
	for hop := 0; ; hop++ {
		next, err := decodeArea(area, info, logger)
		if err != nil || info.Stopped || next == nil {
			return info, err
		}

		key := areaKey{block: next.Block, offset: next.Offset}
		switch {
		case ctx.Reader == nil:
			return info, nil
		case hop >= ctx.MaxContinuations:
			logger.V(logging.DEBUG).Info("Continuation limit reached", "limit", ctx.MaxContinuations)
			return info, nil
		case visited[key]:
			return info, fmt.Errorf("%w: continuation area loop at block %d offset %d", isoerr.ErrCorrupt, next.Block, next.Offset)
		case next.Length == 0:
			return info, nil
		case int64(next.Offset)+int64(next.Length) > ctx.Reader.BlockSize():
			return info, fmt.Errorf("%w: continuation area at block %d offset %d length %d exceeds one block",
				isoerr.ErrCorrupt, next.Block, next.Offset, next.Length)
		}
		visited[key] = true

		off := int64(next.Block)*ctx.Reader.BlockSize() + int64(next.Offset)
		logger.V(logging.TRACE).Info("Following continuation area", "block", next.Block, "offset", next.Offset, "length", next.Length)
		area, err = ctx.Reader.ReadAt(off, int(next.Length))
		if err != nil {
			return info, fmt.Errorf("failed to read continuation area at offset %d: %w", off, err)
		}
	}
}

// decodeArea applies the entries of a single area to info and returns the last continuation pointer seen.
func decodeArea(data []byte, info *rockridge.Info, logger logr.Logger) (*rockridge.ContinuationArea, error) {
	var next *rockridge.ContinuationArea

	logger.V(logging.TRACE).Info("Parsing SystemUseEntries", "dataLength", len(data))
	for offset := 0; offset < len(data); {
		// Remaining bytes are padding
		if data[offset] == 0x00 || len(data)-offset < 4 {
			break
		}

		entry := &SystemUseEntry{}
		if err := entry.Unmarshal(data[offset:]); err != nil {
			return next, fmt.Errorf("%w: system use entry at offset %d: %v", isoerr.ErrCorrupt, offset, err)
		}
		info.Signatures = append(info.Signatures, string(entry.Type()))
		logger.V(logging.TRACE).Info("Parsing system use entry", "type", entry.Type(), "offset", offset, "entryLen", entry.Length())

		var err error
		switch entry.Type() {
		case SHARING_PROTOCOL_INDICATOR:
			var skip int
			if skip, err = UnmarshalSharingProtocolIndicator(entry); err == nil {
				info.HasSP = true
				info.SkipOffset = skip
			}

		case CONTINUATION_AREA:
			next, err = UnmarshalContinuationEntry(entry)
			if err == nil {
				info.Continuation = next
			}

		case EXTENSION_REFERENCE:
			var ext *rockridge.Extension
			if ext, err = UnmarshalExtensionRecord(entry); err == nil {
				info.Extensions = append(info.Extensions, *ext)
			}

		case AREA_TERMINATOR:
			info.Stopped = true
			return nil, nil

		case SystemUseEntryType(rockridge.ALTERNATE_NAME):
			var nm *rockridge.RockRidgeNameEntry
			if nm, err = rockridge.UnmarshalRockRidgeNameEntry(entry.Data()); err == nil {
				info.AddName(nm)
			}

		case SystemUseEntryType(rockridge.POSIX_FILE_PERMS):
			info.Posix, err = rockridge.UnmarshalRockRidgePosixEntry(entry.Data())

		case SystemUseEntryType(rockridge.POSIX_DEVICE_NUM):
			info.Device, err = rockridge.UnmarshalRockRidgeDeviceEntry(entry.Data())

		default:
			// TF, SL, PD, RR and unknown entries are skipped by length
		}

		if err != nil {
			return next, errors.Join(isoerr.ErrCorrupt, fmt.Errorf("%s entry at offset %d: %w", entry.Type(), offset, err))
		}
		offset += int(entry.Length())
	}

	return next, nil
}
