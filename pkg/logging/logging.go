package logging

import (
	"io"

	"github.com/go-logr/logr"
)

// Verbosity levels passed to logr.Logger.V
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// ForFlags builds the logger used by the command line tools from their -v / -vv flags.
func ForFlags(writer io.Writer, debug, trace bool) logr.Logger {
	level := INFO
	if debug {
		level = DEBUG
	}
	if trace {
		level = TRACE
	}
	return NewSimpleLogger(writer, level, true)
}
