package extract

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/internal/isotest"
	"github.com/rstms/iso-reader/pkg/consts"
	"github.com/rstms/iso-reader/pkg/descriptor"
	"github.com/rstms/iso-reader/pkg/directory"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/options"
	"github.com/rstms/iso-reader/pkg/source"
	"github.com/rstms/iso-reader/pkg/susp"
	"github.com/rstms/iso-reader/pkg/tree"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressCall struct {
	name        string
	transferred int64
	total       int64
	number      int
	count       int
}

func newExtractor(t *testing.T, img []byte, opts ...options.Option) *Extractor {
	t.Helper()
	src, err := source.FromBytes(img)
	require.NoError(t, err)
	r := source.NewBlockReader(src, logr.Discard())

	set, err := descriptor.ReadVolumeDescriptorSet(r, logr.Discard())
	require.NoError(t, err)

	o := options.Apply(opts...)
	ctx := directory.Context{
		RockRidge:    o.RockRidgeEnabled,
		StripVersion: o.StripVersionInfo,
		SUSP:         susp.Context{MaxContinuations: o.MaxContinuations},
	}
	w := tree.NewWalker(r, set.Primary.RootDirectoryRecord, ctx, nil, logr.Discard())
	_, err = w.DetectRockRidge()
	require.NoError(t, err)
	return NewExtractor(w, r, o)
}

func readFile(t *testing.T, fsys afero.Fs, name string) []byte {
	t.Helper()
	data, err := afero.ReadFile(fsys, name)
	require.NoError(t, err, name)
	return data
}

func TestExtractScenarioFile(t *testing.T) {
	b := isotest.Scenario()
	mem := afero.NewMemMapFs()
	e := newExtractor(t, b.Build(), options.WithFs(mem))

	require.NoError(t, e.Extract("/BOOT/GRUB.CFG", "/tmp/out/g.cfg", "", false, false))

	data := readFile(t, mem, "/tmp/out/g.cfg")
	assert.Len(t, data, 37)
	assert.Equal(t, b.Root.Children[0].Children[0].Data, data)
}

func TestExtractTreeMatchesManifest(t *testing.T) {
	b := isotest.RockRidgeScenario()
	mem := afero.NewMemMapFs()
	var calls []progressCall
	progress := func(name string, transferred, total int64, number, count int) {
		calls = append(calls, progressCall{name, transferred, total, number, count})
	}
	e := newExtractor(t, b.Build(), options.WithFs(mem), options.WithChunkSize(1024), options.WithProgress(progress))

	require.NoError(t, e.Extract("/", "/out", "", true, false))

	for _, m := range b.Manifest() {
		dest := filepath.Join("/out", m.Path)
		info, err := mem.Stat(dest)
		require.NoError(t, err, m.Path)
		assert.Equal(t, m.Dir, info.IsDir(), m.Path)
		if !m.Dir {
			assert.Equal(t, len(m.Data), int(info.Size()), m.Path)
			if len(m.Data) > 0 {
				assert.Equal(t, m.Data, readFile(t, mem, dest), m.Path)
			}
		}
	}

	// vmlinuz is 5000 bytes, five 1024 byte chunks
	var kernel []progressCall
	for _, c := range calls {
		assert.Equal(t, 5, c.count)
		if c.name == "/isolinux/vmlinuz-generic-kernel" {
			kernel = append(kernel, c)
		}
	}
	require.Len(t, kernel, 5)
	assert.Equal(t, int64(1024), kernel[0].transferred)
	assert.Equal(t, int64(5000), kernel[4].transferred)
	assert.Equal(t, int64(5000), kernel[4].total)
	assert.Equal(t, 2, kernel[4].number)

	last := calls[len(calls)-1]
	assert.Equal(t, 5, last.number)
}

func TestExtractEmptyFileIsCreated(t *testing.T) {
	mem := afero.NewMemMapFs()
	e := newExtractor(t, isotest.RockRidgeScenario().Build(), options.WithFs(mem))

	require.NoError(t, e.Extract("/dev/null", "/out/null", "", false, false))
	info, err := mem.Stat("/out/null")
	require.NoError(t, err)
	assert.Zero(t, info.Size())
	assert.True(t, info.Mode().IsRegular())
}

func TestExtractPattern(t *testing.T) {
	b := isotest.RockRidgeScenario()

	var mem afero.Fs
	exists := func(p string) bool {
		ok, err := afero.Exists(mem, p)
		require.NoError(t, err)
		return ok
	}

	// Directories that do not match are skipped with everything below them
	mem = afero.NewMemMapFs()
	e := newExtractor(t, b.Build(), options.WithFs(mem))
	require.NoError(t, e.Extract("/", "/out", `\.cfg$`, true, false))
	entries, err := afero.ReadDir(mem, "/out")
	require.NoError(t, err)
	assert.Empty(t, entries)

	mem = afero.NewMemMapFs()
	e = newExtractor(t, b.Build(), options.WithFs(mem))
	require.NoError(t, e.Extract("/isolinux", "/out", `\.cfg$`, true, false))
	assert.True(t, exists("/out/isolinux.cfg"))
	assert.False(t, exists("/out/vmlinuz-generic-kernel"))

	mem = afero.NewMemMapFs()
	e = newExtractor(t, b.Build(), options.WithFs(mem))
	require.NoError(t, e.Extract("/", "/out", `\.md$`, true, false))
	assert.True(t, exists("/out/README.md"))
	assert.False(t, exists("/out/isolinux"))
	assert.False(t, exists("/out/dev"))
	assert.False(t, exists("/out/continuation-area.txt"))

	// A matched directory is taken whole
	mem = afero.NewMemMapFs()
	e = newExtractor(t, b.Build(), options.WithFs(mem))
	require.NoError(t, e.Extract("/", "/out", `^isolinux$`, true, false))
	assert.True(t, exists("/out/isolinux/isolinux.cfg"))
	assert.True(t, exists("/out/isolinux/vmlinuz-generic-kernel"))
	assert.False(t, exists("/out/README.md"))
	assert.False(t, exists("/out/dev"))
}

func TestExtractPatternScenario(t *testing.T) {
	mem := afero.NewMemMapFs()
	e := newExtractor(t, isotest.Scenario().Build(), options.WithFs(mem))
	require.NoError(t, e.Extract("/", "/out", "CFG$", true, false))

	ok, err := afero.Exists(mem, "/out/BOOT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtractInvalidPattern(t *testing.T) {
	e := newExtractor(t, isotest.Scenario().Build(), options.WithFs(afero.NewMemMapFs()))
	assert.Error(t, e.Extract("/", "/out", `(`, true, false))
}

func TestExtractNonRecursive(t *testing.T) {
	mem := afero.NewMemMapFs()
	e := newExtractor(t, isotest.RockRidgeScenario().Build(), options.WithFs(mem))
	require.NoError(t, e.Extract("/", "/out", "", false, false))

	assert.Equal(t, []byte("# readme\n"), readFile(t, mem, "/out/README.md"))
	assert.Equal(t, []byte("continued\n"), readFile(t, mem, "/out/continuation-area.txt"))

	entries, err := afero.ReadDir(mem, "/out/isolinux")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractDeviceOnMemFsFails(t *testing.T) {
	mem := afero.NewMemMapFs()
	e := newExtractor(t, isotest.RockRidgeScenario().Build(), options.WithFs(mem))

	err := e.Extract("/", "/out", "", true, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, isoerr.ErrDeviceFile)

	var failures Failures
	require.True(t, errors.As(err, &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, "/dev/null", failures[0].Path)
	assert.True(t, failures[0].Err != nil)
	assert.True(t, failures.DevicesOnly())

	// Siblings were still extracted
	assert.Equal(t, []byte("# readme\n"), readFile(t, mem, "/out/README.md"))
}

func TestExtractDeviceOnHost(t *testing.T) {
	dir := t.TempDir()
	e := newExtractor(t, isotest.RockRidgeScenario().Build(), options.WithFs(afero.NewOsFs()))

	dest := filepath.Join(dir, "dev")
	err := e.Extract("/dev", dest, "", true, true)
	if err != nil {
		// Creating device nodes needs privileges the test may not have
		assert.ErrorIs(t, err, isoerr.ErrDeviceFile)
		return
	}
	info, err := os.Lstat(filepath.Join(dest, "null"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&fs.ModeCharDevice)
}

func TestExtractWriteFailure(t *testing.T) {
	ro := afero.NewReadOnlyFs(afero.NewMemMapFs())
	e := newExtractor(t, isotest.Scenario().Build(), options.WithFs(ro))

	err := e.Extract("/BOOT/GRUB.CFG", "/out/g.cfg", "", false, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, isoerr.ErrWrite)
	assert.Equal(t, "write failed on host filesystem", isoerr.Message(err))

	err = e.Extract("/", "/out", "", true, false)
	assert.ErrorIs(t, err, isoerr.ErrWrite)
}

func TestExtractTruncatedImage(t *testing.T) {
	img := isotest.Scenario().Build()
	// GRUB.CFG lives at block 30, the last block
	img = img[:30*consts.ISO9660_SECTOR_SIZE]

	mem := afero.NewMemMapFs()
	e := newExtractor(t, img, options.WithFs(mem))

	err := e.Extract("/BOOT/GRUB.CFG", "/out/g.cfg", "", false, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, isoerr.ErrIO)
	var failures Failures
	assert.False(t, errors.As(err, &failures))

	err = e.Extract("/", "/out", "", true, false)
	assert.ErrorIs(t, err, isoerr.ErrIO)
}

func TestExtractPathNotFound(t *testing.T) {
	e := newExtractor(t, isotest.Scenario().Build(), options.WithFs(afero.NewMemMapFs()))
	err := e.Extract("/MISSING", "/out", "", true, false)
	assert.ErrorIs(t, err, isoerr.ErrPathNotFound)
}
