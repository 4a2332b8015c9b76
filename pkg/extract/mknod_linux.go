//go:build linux

package extract

import (
	"errors"
	"fmt"

	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// mknod creates a device node. Only the host filesystem can hold one.
func mknod(fs afero.Fs, dest string, mode, major, minor uint32) error {
	if _, ok := fs.(*afero.OsFs); !ok {
		return fmt.Errorf("%w: %s: %T cannot hold device nodes", isoerr.ErrDeviceFile, dest, fs)
	}
	if err := unix.Mknod(dest, mode, int(unix.Mkdev(major, minor))); err != nil {
		return errors.Join(isoerr.ErrDeviceFile, fmt.Errorf("mknod %s: %w", dest, err))
	}
	return nil
}
