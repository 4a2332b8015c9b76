//go:build !linux

package extract

import (
	"fmt"

	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/spf13/afero"
)

func mknod(_ afero.Fs, dest string, _, _, _ uint32) error {
	return fmt.Errorf("%w: %s: device nodes are not supported on this platform", isoerr.ErrDeviceFile, dest)
}
