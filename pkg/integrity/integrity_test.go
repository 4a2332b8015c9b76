package integrity

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/internal/isotest"
	"github.com/rstms/iso-reader/pkg/consts"
	"github.com/rstms/iso-reader/pkg/descriptor"
	"github.com/rstms/iso-reader/pkg/directory"
	"github.com/rstms/iso-reader/pkg/encoding"
	"github.com/rstms/iso-reader/pkg/source"
	"github.com/rstms/iso-reader/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func check(t *testing.T, img []byte) bool {
	t.Helper()
	src, err := source.FromBytes(img)
	require.NoError(t, err)
	r := source.NewBlockReader(src, logr.Discard())
	set, err := descriptor.ReadVolumeDescriptorSet(r, logr.Discard())
	require.NoError(t, err)
	w := tree.NewWalker(r, set.Primary.RootDirectoryRecord, directory.Context{StripVersion: true}, nil, logr.Discard())
	return Check(set.Primary, r, w, logr.Discard())
}

func TestCheckValidImages(t *testing.T) {
	assert.True(t, check(t, isotest.Scenario().Build()))
	assert.True(t, check(t, isotest.RockRidgeScenario().Build()))
}

func TestCheckTruncatedImage(t *testing.T) {
	img := isotest.Scenario().Build()
	// GRUB.CFG ends 37 bytes into block 30
	end := 30*consts.ISO9660_SECTOR_SIZE + 37

	assert.True(t, check(t, img[:end]))
	assert.False(t, check(t, img[:end-1]))
	assert.False(t, check(t, img[:30*consts.ISO9660_SECTOR_SIZE]))
}

func TestCheckNoPrimary(t *testing.T) {
	src, err := source.FromBytes(isotest.Scenario().Build())
	require.NoError(t, err)
	r := source.NewBlockReader(src, logr.Discard())
	assert.False(t, Check(nil, r, nil, logr.Discard()))
}

func TestCheckEmptyPathTable(t *testing.T) {
	b := isotest.Scenario()
	b.NoPathTable = true
	img := b.Build()
	// Passes even when the file data is gone
	assert.True(t, check(t, img[:30*consts.ISO9660_SECTOR_SIZE]))
}

func TestCheckOnlySpecialEntries(t *testing.T) {
	// The last path table row is EMPTY, which holds only "." and ".."
	b := &isotest.Builder{
		FirstFileBlock: 40,
		Root: isotest.Dir("",
			isotest.File("BIG.BIN;1", make([]byte, 100)),
			isotest.Dir("EMPTY"),
		),
	}
	img := b.Build()
	assert.True(t, check(t, img[:35*consts.ISO9660_SECTOR_SIZE]))
}

func TestCheckUsesLastFileRecord(t *testing.T) {
	b := &isotest.Builder{
		FirstFileBlock: 40,
		Root: isotest.Dir("",
			isotest.Dir("BOOT",
				isotest.File("A.BIN;1", make([]byte, 100)),
				isotest.File("B.BIN;1", make([]byte, 100)),
			),
		),
	}
	img := b.Build()
	last := b.Root.Children[0].Children[1]
	require.Equal(t, uint32(41), last.Extent())

	end := 41*consts.ISO9660_SECTOR_SIZE + 100
	assert.True(t, check(t, img[:end]))
	assert.False(t, check(t, img[:end-1]))
}

func TestCheckCorruptDirectory(t *testing.T) {
	b := isotest.Scenario()
	img := b.Build()
	// Zero the BOOT directory so its first block has no records
	boot := b.Root.Children[0]
	copy(img[int(boot.Extent())*consts.ISO9660_SECTOR_SIZE:], make([]byte, consts.ISO9660_SECTOR_SIZE))
	assert.False(t, check(t, img))
}

func TestCheckSkipsRowWithOnlySubdirectories(t *testing.T) {
	b := &isotest.Builder{
		FirstFileBlock: 40,
		Root: isotest.Dir("",
			isotest.Dir("BOOT",
				isotest.Dir("SUB"),
			),
			isotest.File("X.BIN;1", make([]byte, 100)),
		),
	}
	img := b.Build()

	// Keep only the root and BOOT rows so the last row lists ".", ".." and SUB
	size := encoding.MarshalBothByteOrders32(10 + 12)
	copy(img[16*consts.ISO9660_SECTOR_SIZE+132:], size[:])

	file := b.Root.Children[1]
	end := int(file.Extent())*consts.ISO9660_SECTOR_SIZE + 100
	require.LessOrEqual(t, end, len(img))

	// The root row decides once BOOT has no file to compare
	assert.True(t, check(t, img[:end]))
	assert.False(t, check(t, img[:end-1]))
}
