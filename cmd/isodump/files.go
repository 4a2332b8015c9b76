package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/rstms/iso-reader"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type entryView struct {
	Path   string `yaml:"path"`
	Mode   string `yaml:"mode"`
	Size   int64  `yaml:"size"`
	Extent uint32 `yaml:"extent"`
}

func newLsCmd(g *globalFlags) *cobra.Command {
	var recursive, long bool
	cmd := &cobra.Command{
		Use:   "ls IMAGE iso:/PATH",
		Short: "List a directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "/"
			if len(args) == 2 {
				target = isoPath(args[1])
			}

			img, err := g.open(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer img.Close()

			entries, err := img.ListEntries(target, recursive)
			if err != nil {
				return fmt.Errorf("%s: %w", isoerr.Message(err), err)
			}
			views := make([]entryView, 0, len(entries))
			for _, e := range entries {
				views = append(views, entryView{
					Path:   e.Path,
					Mode:   e.Mode().String(),
					Size:   e.Size(),
					Extent: e.Record.LocationOfExtent,
				})
			}
			return g.output(cmd.OutOrStdout(), views, func(w io.Writer) error {
				dir := color.New(color.FgBlue, color.Bold)
				for i, v := range views {
					name := v.Path
					if entries[i].IsDir() {
						name = dir.Sprint(v.Path)
					}
					if long {
						fmt.Fprintf(w, "%s %10d %8d %s\n", v.Mode, v.Size, v.Extent, name)
					} else {
						fmt.Fprintln(w, name)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "List subdirectories recursively")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show mode, size and extent")
	return cmd
}

func newCatCmd(g *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "cat IMAGE iso:/PATH",
		Short: "Print or save a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := g.open(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer img.Close()

			data, err := img.ReadFile(isoPath(args[1]))
			if err != nil {
				return fmt.Errorf("%s: %w", isoerr.Message(err), err)
			}
			if output != "" {
				if err := afero.WriteFile(afero.NewOsFs(), output, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				return nil
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the file here instead of stdout")
	return cmd
}

func newExtractCmd(g *globalFlags) *cobra.Command {
	var (
		output    string
		pattern   string
		recursive bool
		allTypes  bool
	)
	cmd := &cobra.Command{
		Use:   "extract IMAGE iso:/PATH",
		Short: "Extract a file or directory tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := g.open(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer img.Close()

			status, err := iso.Extract(img, isoPath(args[1]), output, pattern, recursive, allTypes)
			if status != iso.Success {
				return &exitError{code: int(status), err: fmt.Errorf("%s: %w", status, err)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %s to %s\n", isoPath(args[1]), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", ".", "Destination path on the host")
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Only extract files whose name matches this regular expression")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Extract subdirectories")
	cmd.Flags().BoolVarP(&allTypes, "all", "a", false, "Recreate device files")
	return cmd
}
