package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rstms/iso-reader"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/options"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// exitError carries a process exit status out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

type globalFlags struct {
	format      string
	verbose     bool
	trace       bool
	noRockRidge bool
	keepVersion bool
	mmap        bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "isodump",
		Short: "Inspect and extract ISO9660 images",
		Long: `isodump - inspect the structures of an ISO9660 image and extract files from it.

Commands:
  boot        Dump the boot record descriptor
  pvd         Dump the primary volume descriptor
  pathtable   Dump the L path table
  record      Dump the raw directory records of an extent
  ls          List a directory
  cat         Print or save a file
  extract     Extract a file or directory tree
  check       Check that the image is not truncated

Examples:
  isodump pvd ubuntu.iso
  isodump ls -r ubuntu.iso iso:/boot
  isodump cat ubuntu.iso iso:/boot/grub/grub.cfg
  isodump extract -r -p '\.cfg$' -o ./out ubuntu.iso iso:/`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.format, "format", "text", "Output format for dumps: text or yaml")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&flags.trace, "trace", false, "Enable trace logging")
	pf.BoolVar(&flags.noRockRidge, "no-rockridge", false, "Ignore Rock Ridge extensions")
	pf.BoolVar(&flags.keepVersion, "keep-version", false, "Keep ;N version suffixes in names")
	pf.BoolVar(&flags.mmap, "mmap", false, "Memory map the image")

	root.AddCommand(
		newBootCmd(flags),
		newPVDCmd(flags),
		newPathTableCmd(flags),
		newRecordCmd(flags),
		newLsCmd(flags),
		newCatCmd(flags),
		newExtractCmd(flags),
		newCheckCmd(flags),
	)
	return root
}

// open opens the image at location. requireVolume rejects images without a primary volume.
func (g *globalFlags) open(cmd *cobra.Command, location string, requireVolume bool) (iso.Image, error) {
	sourceType := options.SOURCE_FILE
	if g.mmap {
		sourceType = options.SOURCE_MMAP
	}
	img, err := iso.Open(location,
		options.WithLogger(logging.ForFlags(cmd.ErrOrStderr(), g.verbose, g.trace)),
		options.WithRockRidgeEnabled(!g.noRockRidge),
		options.WithStripVersionInfo(!g.keepVersion),
		options.WithSourceType(sourceType),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", isoerr.Message(err), err)
	}
	if requireVolume && !img.HasVolume() {
		img.Close()
		return nil, fmt.Errorf("%s: %w", isoerr.Message(img.VolumeError()), img.VolumeError())
	}
	return img, nil
}

// output writes v as YAML, or calls text when the text format is selected.
func (g *globalFlags) output(w io.Writer, v any, text func(io.Writer) error) error {
	switch g.format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case "text", "":
		return text(w)
	default:
		return fmt.Errorf("unknown output format %q", g.format)
	}
}

// isoPath accepts both "iso:/path" and "/path".
func isoPath(arg string) string {
	p := strings.TrimPrefix(arg, "iso:")
	if p == "" {
		return "/"
	}
	return p
}
