package options

import (
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	o := Apply()
	assert.True(t, o.RockRidgeEnabled)
	assert.True(t, o.StripVersionInfo)
	assert.Equal(t, 64*1024, o.ChunkSize)
	assert.Equal(t, 16, o.MaxContinuations)
	assert.Equal(t, SOURCE_FILE, o.SourceType)
	assert.Equal(t, 30*time.Second, o.HTTPTimeout)
	assert.IsType(t, &afero.OsFs{}, o.Fs)
	assert.Nil(t, o.ProgressCallback)
}

func TestApplyOverrides(t *testing.T) {
	mem := afero.NewMemMapFs()
	called := false
	o := Apply(
		WithRockRidgeEnabled(false),
		WithStripVersionInfo(false),
		WithChunkSize(512),
		WithMaxContinuations(2),
		WithSourceType(SOURCE_MMAP),
		WithHTTPTimeout(time.Second),
		WithFs(mem),
		WithProgress(func(string, int64, int64, int, int) { called = true }),
	)

	assert.False(t, o.RockRidgeEnabled)
	assert.False(t, o.StripVersionInfo)
	assert.Equal(t, 512, o.ChunkSize)
	assert.Equal(t, 2, o.MaxContinuations)
	assert.Equal(t, "mmap", o.SourceType.String())
	assert.Equal(t, time.Second, o.HTTPTimeout)
	assert.Same(t, mem, o.Fs)

	o.ProgressCallback("x", 0, 0, 1, 1)
	assert.True(t, called)
}

func TestApplySanitizes(t *testing.T) {
	o := Apply(WithChunkSize(0), WithMaxContinuations(-3), WithFs(nil), WithLogger(logr.Discard()))
	assert.Equal(t, 64*1024, o.ChunkSize)
	assert.Equal(t, 0, o.MaxContinuations)
	assert.NotNil(t, o.Fs)
	assert.NotPanics(t, func() { o.Logger.Info("discarded") })
}
