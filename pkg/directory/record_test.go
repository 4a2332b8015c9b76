package directory

import (
	"io/fs"
	"testing"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/internal/isotest"
	"github.com/rstms/iso-reader/pkg/susp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plain() Context {
	return Context{StripVersion: true, SUSP: susp.Context{Logger: logr.Discard()}}
}

func rockRidge(skip int) Context {
	return Context{RockRidge: true, StripVersion: true, SUSP: susp.Context{SkipOffset: skip, Logger: logr.Discard()}}
}

func TestDecodeFixedFields(t *testing.T) {
	buf := isotest.DirRecord([]byte("GRUB.CFG;1"), 30, 37, 0x00, nil)
	res := Decode(buf, plain())
	require.Equal(t, KindRecord, res.Kind)

	dr := res.Record
	assert.Equal(t, uint8(len(buf)), dr.LengthOfDirectoryRecord)
	assert.Equal(t, uint32(30), dr.LocationOfExtent)
	assert.Equal(t, uint32(37), dr.DataLength)
	assert.Equal(t, uint16(1), dr.VolumeSequenceNumber)
	assert.Equal(t, "GRUB.CFG;1", dr.FileIdentifier)
	assert.Equal(t, "GRUB.CFG", dr.Name)
	assert.False(t, dr.IsDirectory())
	assert.True(t, dr.RecordingDateAndTime.Equal(isotest.RecordTime))
	assert.Equal(t, int64(30*2048+37), dr.EndOffset(2048))
	assert.Nil(t, dr.RockRidge)
}

func TestDecodeNameProperties(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"\x00", "."},
		{"\x01", ".."},
		{"GRUB.CFG;1", "GRUB.CFG"},
		{"README.;1", "README"},
		{"A;12", "A"},
		{"BOOT", "BOOT"},
		{"X.;", "X"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			res := Decode(isotest.DirRecord([]byte(tt.raw), 20, 0, 0, nil), plain())
			require.Equal(t, KindRecord, res.Kind)
			assert.Equal(t, tt.want, res.Record.Name)
			assert.NotContains(t, res.Record.Name, ";")
		})
	}

	assert.Equal(t, "GRUB.CFG;1", DecodeName([]byte("GRUB.CFG;1"), false))
}

func TestDecodeSpecialEntries(t *testing.T) {
	dot := Decode(isotest.DirRecord([]byte{0x00}, 20, 2048, 0x02, nil), plain()).Record
	dotdot := Decode(isotest.DirRecord([]byte{0x01}, 19, 2048, 0x02, nil), plain()).Record
	assert.True(t, dot.IsCurrent())
	assert.True(t, dot.IsSpecial())
	assert.True(t, dotdot.IsParent())
	assert.False(t, dotdot.IsCurrent())

	// A one character name that is neither 0x00 nor 0x01 is a regular name
	a := Decode(isotest.DirRecord([]byte("A"), 25, 1, 0, nil), plain()).Record
	assert.Equal(t, "A", a.Name)
	assert.False(t, a.IsSpecial())
}

func TestDecodeDirectoryFlagWins(t *testing.T) {
	// A name that looks like a file is still a directory when bit 0x02 is set
	su := isotest.PX(0o100644, 1, 0, 0)
	dr := Decode(isotest.DirRecord([]byte("FILE.TXT;1"), 21, 2048, 0x02, su), rockRidge(0)).Record
	assert.True(t, dr.IsDirectory())
	assert.True(t, dr.Mode().IsDir())

	file := Decode(isotest.DirRecord([]byte("DIR"), 21, 0, 0x00, isotest.PX(0o40755, 1, 0, 0)), rockRidge(0)).Record
	assert.False(t, file.Mode().IsDir())
	assert.Equal(t, fs.FileMode(0o755), file.Mode().Perm())
}

func TestDecodeEndOfSector(t *testing.T) {
	sector := make([]byte, 2048)
	res := Decode(sector, plain())
	assert.Equal(t, KindEndOfSector, res.Kind)
	assert.Nil(t, res.Record)

	assert.Equal(t, KindEndOfSector, Decode(nil, plain()).Kind)
}

func TestDecodeMalformed(t *testing.T) {
	rec := isotest.DirRecord([]byte("GRUB.CFG;1"), 30, 37, 0, nil)

	res := Decode(rec[:20], plain())
	assert.Equal(t, KindMalformed, res.Kind)
	assert.NotEmpty(t, res.Reason)

	short := append([]byte{}, rec...)
	short[0] = 20
	assert.Equal(t, KindMalformed, Decode(short, plain()).Kind)

	badName := append([]byte{}, rec...)
	badName[32] = 200
	assert.Equal(t, KindMalformed, Decode(badName, plain()).Kind)
}

func TestSystemUseOffset(t *testing.T) {
	assert.Equal(t, 34, SystemUseOffset(1))
	assert.Equal(t, 34, SystemUseOffset(0))
	assert.Equal(t, 44, SystemUseOffset(10))
	assert.Equal(t, 44, SystemUseOffset(11))
}

func TestDecodeRockRidgeName(t *testing.T) {
	su := append(isotest.NM(0x01, "vmlinuz-"), isotest.NM(0x00, "generic")...)
	rec := isotest.DirRecord([]byte("VMLINUZ.;1"), 40, 100, 0, su)

	dr := Decode(rec, rockRidge(0)).Record
	assert.Equal(t, "vmlinuz-generic", dr.Name)
	assert.Equal(t, "VMLINUZ.;1", dr.FileIdentifier)
	assert.True(t, dr.HasRockRidge())

	// Without Rock Ridge enabled the ISO name is kept
	dr = Decode(rec, plain()).Record
	assert.Equal(t, "VMLINUZ", dr.Name)
	assert.False(t, dr.HasRockRidge())
	assert.NotEmpty(t, dr.SystemUse)
}

func TestDecodeRockRidgeSkipOffset(t *testing.T) {
	su := append([]byte{0x00, 0x00}, isotest.NM(0, "long-name.txt")...)
	rec := isotest.DirRecord([]byte("LONGNAME.TXT;1"), 40, 100, 0, su)
	assert.Equal(t, "long-name.txt", Decode(rec, rockRidge(2)).Record.Name)

	// The root "." record starts with SP and is decoded without skipping
	rootDot := isotest.DirRecord([]byte{0x00}, 20, 2048, 0x02, append(isotest.SP(2), isotest.ER("RRIP_1991A", "", "")...))
	dr := Decode(rootDot, rockRidge(2)).Record
	require.NotNil(t, dr.RockRidge)
	assert.True(t, dr.RockRidge.HasSP)
	assert.Equal(t, 2, dr.RockRidge.SkipOffset)
	assert.Equal(t, ".", dr.Name)
}

func TestDecodeMalformedSystemUseIsNotFatal(t *testing.T) {
	su := append(isotest.NM(0, "partial"), 'P', 'X', 200, 1)
	rec := isotest.DirRecord([]byte("FILE.TXT;1"), 40, 1, 0, su)
	res := Decode(rec, rockRidge(0))
	require.Equal(t, KindRecord, res.Kind)
	assert.Equal(t, "partial", res.Record.Name)
}

func TestDirectoryEntry(t *testing.T) {
	dr := Decode(isotest.DirRecord([]byte("GRUB.CFG;1"), 30, 37, 0, nil), plain()).Record
	entry := NewEntry("/BOOT", dr)
	assert.Equal(t, "/BOOT/GRUB.CFG", entry.Path)
	assert.Equal(t, "GRUB.CFG", entry.Name())
	assert.Equal(t, int64(37), entry.Size())
	assert.False(t, entry.IsDir())
	assert.Same(t, dr, entry.Sys())
	assert.Equal(t, "/BOOT", JoinPath("/", "BOOT"))
	assert.Equal(t, "/BOOT", JoinPath("", "BOOT"))
}
