package iso

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rstms/iso-reader/internal/isotest"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/options"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageFile(t *testing.T, data []byte) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "test.iso")
	require.NoError(t, os.WriteFile(name, data, 0o644))
	return name
}

func TestScenario(t *testing.T) {
	mem := afero.NewMemMapFs()
	img, err := Open(imageFile(t, isotest.Scenario().Build()), options.WithFs(mem))
	require.NoError(t, err)
	defer img.Close()

	paths, err := List(img, "/", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/BOOT", "/BOOT/GRUB.CFG"}, paths)

	status, err := Extract(img, "/BOOT/GRUB.CFG", "/tmp/out/g.cfg", "", false, false)
	require.NoError(t, err)
	assert.Equal(t, Success, status)

	data, err := afero.ReadFile(mem, "/tmp/out/g.cfg")
	require.NoError(t, err)
	assert.Equal(t, "set default=0\nset timeout=10\nmenu xy\n", string(data))

	assert.True(t, CheckIntegrity(img))

	pvd, boot := Volume(img)
	require.NotNil(t, pvd)
	assert.Equal(t, "SCENARIO", pvd.VolumeIdentifier)
	assert.Nil(t, boot)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.iso"))
	assert.ErrorIs(t, err, isoerr.ErrNotFound)

	_, err = Open(imageFile(t, []byte{}))
	assert.ErrorIs(t, err, isoerr.ErrEmptyImage)
}

func TestExtractStatus(t *testing.T) {
	img, err := Open(imageFile(t, isotest.RockRidgeScenario().Build()), options.WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)
	defer img.Close()

	status, err := Extract(img, "/", "/out", "", true, true)
	assert.ErrorIs(t, err, isoerr.ErrDeviceFile)
	assert.Equal(t, DeviceFile, status)
	assert.Equal(t, "device file", status.String())

	status, err = Extract(img, "/missing", "/out", "", true, false)
	assert.ErrorIs(t, err, isoerr.ErrPathNotFound)
	assert.Equal(t, Failure, status)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, Success, StatusOf(nil))
	assert.Equal(t, Failure, StatusOf(errors.New("boom")))
	assert.Equal(t, Failure, StatusOf(isoerr.ErrWrite))
	assert.Equal(t, DeviceFile, StatusOf(isoerr.ErrDeviceFile))
}
