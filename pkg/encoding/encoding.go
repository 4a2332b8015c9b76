package encoding

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"
)

// MarshalString encodes the given string as a byte array padded with spaces to the given length
func MarshalString(s string, padToLength int) []byte {
	if len(s) > padToLength {
		s = s[:padToLength]
	}
	missingPadding := padToLength - len(s)
	s = s + strings.Repeat(" ", missingPadding)
	return []byte(s)
}

// UnmarshalString decodes a fixed width, space or NUL padded text field.
func UnmarshalString(data []byte) string {
	return strings.TrimRight(string(data), " \x00")
}

// MarshalBothByteOrders32 converts a uint32 value into an 8-byte field that
// encodes the value in both little‑endian and big‑endian orders (ECMA-119 7.3.3).
func MarshalBothByteOrders32(val uint32) [8]byte {
	var data [8]byte
	binary.LittleEndian.PutUint32(data[0:4], val)
	binary.BigEndian.PutUint32(data[4:8], val)
	return data
}

// MarshalBothByteOrders16 converts a uint16 value into a 4-byte field that
// encodes the value in both little‑endian and big‑endian orders (ECMA-119 7.2.3).
func MarshalBothByteOrders16(val uint16) [4]byte {
	var data [4]byte
	binary.LittleEndian.PutUint16(data[0:2], val)
	binary.BigEndian.PutUint16(data[2:4], val)
	return data
}

// UnmarshalUint32LSBMSB decodes an 8-byte both-byte-order field. The little-endian half is always returned; a
// non-nil error reports that the two halves disagree so callers can decide whether that matters.
func UnmarshalUint32LSBMSB(data []byte) (uint32, error) {
	if len(data) < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	little := binary.LittleEndian.Uint32(data[0:4])
	big := binary.BigEndian.Uint32(data[4:8])
	if little != big {
		return little, fmt.Errorf("mismatched both-byte orders: little-endian value %d != big-endian value %d", little, big)
	}
	return little, nil
}

// UnmarshalUint16LSBMSB decodes a 4-byte both-byte-order field. See UnmarshalUint32LSBMSB for the error semantics.
func UnmarshalUint16LSBMSB(data []byte) (uint16, error) {
	if len(data) < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	little := binary.LittleEndian.Uint16(data[0:2])
	big := binary.BigEndian.Uint16(data[2:4])
	if little != big {
		return little, fmt.Errorf("mismatched both-byte orders: little-endian value %d != big-endian value %d", little, big)
	}
	return little, nil
}

// MarshalDateTime converts a time.Time into a 17-byte field following ISO9660 8.4.26.1.
// The first 16 bytes contain ASCII digits in the format:
//
//	YYYY MM DD hh mm ss cc
//
// and the 17th byte is the time zone offset (in 15-minute intervals) as a signed integer.
// Note: This format is used in Volume Descriptors
func MarshalDateTime(t time.Time) ([17]byte, error) {
	var out [17]byte

	if t.IsZero() {
		for i := 0; i < 16; i++ {
			out[i] = '0'
		}
		return out, nil
	}

	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	hundredths := t.Nanosecond() / 10_000_000

	s := fmt.Sprintf("%04d%02d%02d%02d%02d%02d%02d",
		y, int(m), d, hh, mm, ss, hundredths)
	copy(out[:16], s)

	_, offsetSec := t.Zone()
	offset15 := offsetSec / 900
	if offset15 < -48 || offset15 > 52 {
		return [17]byte{}, fmt.Errorf("offset %d out of ISO9660 bounds", offset15)
	}

	out[16] = byte(int8(offset15))
	return out, nil
}

// UnmarshalDateTime converts a 17-byte ISO9660 date/time field into a time.Time.
// Note: This format is used in Volume Descriptors
func UnmarshalDateTime(b [17]byte) (time.Time, error) {
	unspecified := true
	for i := 0; i < 16; i++ {
		if b[i] != '0' && b[i] != 0 {
			unspecified = false
			break
		}
	}
	if unspecified {
		return time.Time{}, nil
	}

	var (
		year, mon, day int
		hour, min, sec int
		hundredths     int
	)
	_, err := fmt.Sscanf(string(b[:16]), "%4d%2d%2d%2d%2d%2d%2d",
		&year, &mon, &day, &hour, &min, &sec, &hundredths)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse error: %w", err)
	}

	offset15 := int8(b[16])
	if offset15 < -48 || offset15 > 52 {
		return time.Time{}, fmt.Errorf("offset %d out of ISO9660 bounds", offset15)
	}
	offsetSec := int(offset15) * 900

	loc := time.UTC
	if offsetSec != 0 {
		loc = time.FixedZone("", offsetSec)
	}

	return time.Date(year, time.Month(mon), day, hour, min, sec, hundredths*10_000_000, loc), nil
}

// MarshalRecordingDateTime converts a time.Time into a 7-byte field according
// to Table 9 – Recording Date and Time. It returns an error if the year is out of range.
// Note: This type format is used in DirectoryRecords
func MarshalRecordingDateTime(t time.Time) ([7]byte, error) {
	var b [7]byte
	if t.IsZero() {
		return b, nil
	}

	year, month, day := t.Date()
	hour, minute, second := t.Clock()

	if year < 1900 || year > 2155 {
		return b, fmt.Errorf("year %d out of range for Recording Date and Time (must be between 1900 and 2155)", year)
	}
	b[0] = byte(year - 1900)
	b[1] = byte(month)
	b[2] = byte(day)
	b[3] = byte(hour)
	b[4] = byte(minute)
	b[5] = byte(second)

	_, offsetSec := t.Zone()
	offset15 := offsetSec / (15 * 60)
	if offset15 < -48 || offset15 > 52 {
		return b, fmt.Errorf("time zone offset %d (in 15-minute intervals: %d) is out of allowed range", offsetSec, offset15)
	}
	b[6] = byte(int8(offset15))
	return b, nil
}

// UnmarshalRecordingDateTime converts a 7-byte Recording Date and Time field into a time.Time.
// If all seven bytes are zero, it indicates that the date/time are not specified.
// Note: This type format is used in DirectoryRecords
func UnmarshalRecordingDateTime(b [7]byte) time.Time {
	if b == [7]byte{} {
		return time.Time{}
	}

	offsetSec := int(int8(b[6])) * 15 * 60
	loc := time.UTC
	if offsetSec != 0 {
		loc = time.FixedZone("", offsetSec)
	}
	return time.Date(int(b[0])+1900, time.Month(b[1]), int(b[2]), int(b[3]), int(b[4]), int(b[5]), 0, loc)
}
