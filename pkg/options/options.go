package options

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/rstms/iso-reader/pkg/consts"
	"github.com/spf13/afero"
)

// ProgressCallback defines the signature for progress update functions.
type ProgressCallback func(
	currentFilename string,
	bytesTransferred int64,
	totalBytes int64,
	currentFileNumber int,
	totalFileCount int,
)

// SourceType selects how a local image is accessed.
type SourceType int

const (
	SOURCE_FILE SourceType = iota
	SOURCE_MMAP
)

func (s SourceType) String() string {
	switch s {
	case SOURCE_MMAP:
		return "mmap"
	default:
		return "file"
	}
}

// Options represents the options for opening and extracting an ISO image
type Options struct {
	RockRidgeEnabled bool
	StripVersionInfo bool
	ChunkSize        int
	MaxContinuations int
	SourceType       SourceType
	HTTPTimeout      time.Duration
	Fs               afero.Fs
	Logger           logr.Logger
	ProgressCallback ProgressCallback
}

// Option represents a function that modifies the Options
type Option func(*Options)

// Default returns the options used when none are given.
func Default() Options {
	return Options{
		RockRidgeEnabled: true,
		StripVersionInfo: true,
		ChunkSize:        consts.EXTRACT_CHUNK_SIZE,
		MaxContinuations: consts.SUSP_MAX_CONTINUATIONS,
		SourceType:       SOURCE_FILE,
		HTTPTimeout:      30 * time.Second,
		Fs:               afero.NewOsFs(),
		Logger:           logr.Discard(),
	}
}

// Apply builds Options from the defaults and the given modifiers.
func Apply(opts ...Option) Options {
	o := Default()
	for _, opt := range opts {
		opt(&o)
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = consts.EXTRACT_CHUNK_SIZE
	}
	if o.MaxContinuations < 0 {
		o.MaxContinuations = 0
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	return o
}

// WithProgress sets a progress callback function that will be called with progress updates.
// Parameters:
// - currentFilename: The name of the file currently being processed.
// - bytesTransferred: The number of bytes transferred so far for the current file.
// - totalBytes: The total number of bytes to be transferred for the current file.
// - currentFileNumber: The index of the current file being processed.
// - totalFileCount: The total number of files to be processed.
func WithProgress(callback ProgressCallback) Option {
	return func(o *Options) {
		o.ProgressCallback = callback
	}
}

// WithStripVersionInfo sets whether to strip version information from the ISO9660 file names
func WithStripVersionInfo(enabled bool) Option {
	return func(o *Options) {
		o.StripVersionInfo = enabled
	}
}

// WithRockRidgeEnabled sets whether to enable Rock Ridge extensions
func WithRockRidgeEnabled(enabled bool) Option {
	return func(o *Options) {
		o.RockRidgeEnabled = enabled
	}
}

// WithLogger sets the Logger for the ISO image
func WithLogger(logger logr.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithChunkSize sets the buffer size used when streaming file extents to disk.
func WithChunkSize(size int) Option {
	return func(o *Options) {
		o.ChunkSize = size
	}
}

// WithMaxContinuations bounds the number of SUSP continuation areas followed per record.
func WithMaxContinuations(hops int) Option {
	return func(o *Options) {
		o.MaxContinuations = hops
	}
}

// WithFs sets the filesystem extracted files are written to.
func WithFs(fs afero.Fs) Option {
	return func(o *Options) {
		o.Fs = fs
	}
}

// WithSourceType selects plain file reads or a memory mapping for local images.
func WithSourceType(sourceType SourceType) Option {
	return func(o *Options) {
		o.SourceType = sourceType
	}
}

// WithHTTPTimeout sets the per request timeout for images opened from an http(s) URL.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.HTTPTimeout = timeout
	}
}
