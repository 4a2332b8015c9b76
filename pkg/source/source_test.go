package source

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.iso")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpenFileNotFound(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.iso"))
	assert.ErrorIs(t, err, isoerr.ErrNotFound)
}

func TestOpenFileEmpty(t *testing.T) {
	_, err := OpenFile(writeTemp(t, nil))
	assert.ErrorIs(t, err, isoerr.ErrEmptyImage)

	_, err = OpenMmap(writeTemp(t, nil))
	assert.ErrorIs(t, err, isoerr.ErrEmptyImage)

	_, err = FromBytes(nil)
	assert.ErrorIs(t, err, isoerr.ErrEmptyImage)
}

func TestLocalSources(t *testing.T) {
	data := sample(3 * 2048)
	path := writeTemp(t, data)

	for _, st := range []options.SourceType{options.SOURCE_FILE, options.SOURCE_MMAP} {
		t.Run(st.String(), func(t *testing.T) {
			src, err := Open(path, options.Apply(options.WithSourceType(st)))
			require.NoError(t, err)
			defer src.Close()

			assert.Equal(t, int64(len(data)), src.Size())
			buf := make([]byte, 100)
			n, err := src.ReadAt(buf, 2048)
			require.NoError(t, err)
			assert.Equal(t, 100, n)
			assert.Equal(t, data[2048:2148], buf)
		})
	}
}

func TestHTTPSource(t *testing.T) {
	data := sample(5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/image.iso":
			http.ServeContent(w, r, "image.iso", time.Time{}, bytes.NewReader(data))
		case "/empty.iso":
			http.ServeContent(w, r, "empty.iso", time.Time{}, bytes.NewReader(nil))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src, err := Open(srv.URL+"/image.iso", options.Apply(options.WithHTTPTimeout(5*time.Second)))
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, int64(5000), src.Size())

	buf := make([]byte, 64)
	n, err := src.ReadAt(buf, 4096)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, data[4096:4160], buf)

	// Reads running off the end return what exists and io.EOF.
	tail := make([]byte, 100)
	n, err = src.ReadAt(tail, 4950)
	assert.Equal(t, 50, n)
	assert.Error(t, err)
	assert.Equal(t, data[4950:], tail[:50])

	_, err = OpenHTTP(srv.URL+"/missing.iso", time.Second)
	assert.ErrorIs(t, err, isoerr.ErrNotFound)

	_, err = OpenHTTP(srv.URL+"/empty.iso", time.Second)
	assert.ErrorIs(t, err, isoerr.ErrEmptyImage)
}

func TestBlockReader(t *testing.T) {
	data := sample(4*2048 + 10)
	src, err := FromBytes(data)
	require.NoError(t, err)

	r := NewBlockReader(src, logr.Discard())
	assert.Equal(t, int64(2048), r.BlockSize())

	require.NoError(t, r.Seek(2))
	first, err := r.Read(4)
	require.NoError(t, err)
	assert.Equal(t, data[4096:4100], first)
	second, err := r.Read(4)
	require.NoError(t, err)
	assert.Equal(t, data[4100:4104], second)

	blocks, err := r.ReadBlocks(1, 2)
	require.NoError(t, err)
	assert.Equal(t, data[2048:3*2048], blocks)

	require.NoError(t, r.SetBlockSize(512))
	require.NoError(t, r.Seek(3))
	b, err := r.Read(1)
	require.NoError(t, err)
	assert.Equal(t, data[1536], b[0])
	assert.Equal(t, 3, r.BlocksFor(1025))
	assert.Equal(t, 0, r.BlocksFor(0))

	assert.Error(t, r.SetBlockSize(0))
	assert.Error(t, r.SetBlockSize(1000))
}

func TestBlockReaderTruncation(t *testing.T) {
	src, err := FromBytes(sample(2048 + 100))
	require.NoError(t, err)
	r := NewBlockReader(src, logr.Discard())

	_, err = r.ReadBlocks(1, 1)
	assert.ErrorIs(t, err, isoerr.ErrIO)

	var ioErr *isoerr.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, int64(2048), ioErr.Offset)

	err = r.Seek(100)
	assert.ErrorIs(t, err, isoerr.ErrIO)
}

func TestBlockReaderRejectsReadsPastEnd(t *testing.T) {
	src, err := FromBytes(sample(4 * 2048))
	require.NoError(t, err)
	r := NewBlockReader(src, logr.Discard())

	for _, tc := range []struct {
		off int64
		n   int
	}{
		{0, 0xC0000000},
		{4*2048 - 1, 2},
		{5 * 2048, 1},
		{-1, 1},
		{0, -1},
	} {
		buf, err := r.ReadAt(tc.off, tc.n)
		assert.ErrorIs(t, err, isoerr.ErrIO, "offset %d length %d", tc.off, tc.n)
		assert.Nil(t, buf)
	}

	_, err = r.ReadBlocks(2, 1<<20)
	assert.ErrorIs(t, err, isoerr.ErrIO)

	buf, err := r.ReadAt(4*2048-2, 2)
	require.NoError(t, err)
	assert.Len(t, buf, 2)
}
