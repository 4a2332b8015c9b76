package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rstms/iso-reader"
	"github.com/rstms/iso-reader/pkg/directory"
	"github.com/spf13/cobra"
)

func newBootCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "boot IMAGE",
		Short: "Dump the boot record descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := g.open(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer img.Close()

			_, boot := iso.Volume(img)
			w := cmd.OutOrStdout()
			if boot == nil {
				fmt.Fprintln(w, "no boot record")
				return nil
			}
			return g.output(w, boot, func(w io.Writer) error {
				fmt.Fprintf(w, "Type:           %s\n", boot.Type())
				fmt.Fprintf(w, "Boot system:    %s\n", boot.BootSystemIdentifier)
				fmt.Fprintf(w, "Boot id:        %s\n", boot.BootIdentifier)
				if boot.IsElTorito() {
					fmt.Fprintf(w, "Catalog block:  %d\n", boot.BootCatalogBlock)
				}
				return nil
			})
		},
	}
}

func newPVDCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pvd IMAGE",
		Short: "Dump the primary volume descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := g.open(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer img.Close()

			pvd, _ := iso.Volume(img)
			return g.output(cmd.OutOrStdout(), pvd, func(w io.Writer) error {
				fmt.Fprintf(w, "System:            %s\n", pvd.SystemIdentifier)
				fmt.Fprintf(w, "Volume:            %s\n", pvd.VolumeIdentifier)
				fmt.Fprintf(w, "Volume set:        %s\n", pvd.VolumeSetIdentifier)
				fmt.Fprintf(w, "Publisher:         %s\n", pvd.PublisherIdentifier)
				fmt.Fprintf(w, "Preparer:          %s\n", pvd.DataPreparerIdentifier)
				fmt.Fprintf(w, "Application:       %s\n", pvd.ApplicationIdentifier)
				fmt.Fprintf(w, "Space size:        %d\n", pvd.VolumeSpaceSize)
				fmt.Fprintf(w, "Block size:        %d\n", pvd.LogicalBlockSize)
				fmt.Fprintf(w, "Path table size:   %d\n", pvd.PathTableSize)
				fmt.Fprintf(w, "Path table (L):    %d\n", pvd.LocationOfTypeLPathTable)
				fmt.Fprintf(w, "Path table (M):    %d\n", pvd.LocationOfTypeMPathTable)
				if pvd.RootDirectoryRecord != nil {
					fmt.Fprintf(w, "Root extent:       %d (%d bytes)\n",
						pvd.RootDirectoryRecord.LocationOfExtent, pvd.RootDirectoryRecord.DataLength)
				}
				fmt.Fprintf(w, "Created:           %s\n", formatTime(pvd.VolumeCreationDateAndTime))
				fmt.Fprintf(w, "Modified:          %s\n", formatTime(pvd.VolumeModificationDateAndTime))
				fmt.Fprintf(w, "Rock Ridge:        %t\n", img.HasRockRidge())
				return nil
			})
		},
	}
}

type pathTableRow struct {
	Index  int    `yaml:"index"`
	Extent uint32 `yaml:"extent"`
	Parent uint16 `yaml:"parent"`
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
}

func newPathTableCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pathtable IMAGE",
		Short: "Dump the L path table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := g.open(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer img.Close()

			table, err := img.PathTable()
			if err != nil {
				return err
			}
			rows := make([]pathTableRow, 0, len(table))
			for i, rec := range table {
				rows = append(rows, pathTableRow{
					Index:  i + 1,
					Extent: rec.LocationOfExtent,
					Parent: rec.ParentDirectoryNumber,
					Name:   rec.Name(),
					Path:   table.FullPath(i + 1),
				})
			}
			return g.output(cmd.OutOrStdout(), rows, func(w io.Writer) error {
				for _, r := range rows {
					fmt.Fprintf(w, "%4d %8d %4d %s\n", r.Index, r.Extent, r.Parent, r.Path)
				}
				return nil
			})
		},
	}
}

type recordView struct {
	Name       string `yaml:"name"`
	Identifier string `yaml:"identifier"`
	Extent     uint32 `yaml:"extent"`
	Length     uint32 `yaml:"length"`
	Flags      string `yaml:"flags"`
	Mode       string `yaml:"mode"`
	Recorded   string `yaml:"recorded"`
	RockRidge  bool   `yaml:"rock_ridge"`
}

func viewRecord(rec *directory.DirectoryRecord) recordView {
	return recordView{
		Name:       rec.Name,
		Identifier: rec.FileIdentifier,
		Extent:     rec.LocationOfExtent,
		Length:     rec.DataLength,
		Flags:      rec.FileFlags.String(),
		Mode:       rec.Mode().String(),
		Recorded:   formatTime(rec.RecordingDateAndTime),
		RockRidge:  rec.HasRockRidge(),
	}
}

func newRecordCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "record IMAGE BLOCK LENGTH",
		Short: "Dump the raw directory records of an extent",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := strconv.ParseUint(args[1], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid block %q: %w", args[1], err)
			}
			length, err := strconv.ParseUint(args[2], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid length %q: %w", args[2], err)
			}

			img, err := g.open(cmd, args[0], true)
			if err != nil {
				return err
			}
			defer img.Close()

			records, err := img.ListItems(uint32(block), uint32(length))
			if err != nil {
				return err
			}
			views := make([]recordView, 0, len(records))
			for _, rec := range records {
				views = append(views, viewRecord(rec))
			}
			return g.output(cmd.OutOrStdout(), views, func(w io.Writer) error {
				for _, v := range views {
					fmt.Fprintf(w, "%8d %10d %s %-10s %s\n", v.Extent, v.Length, v.Mode, v.Identifier, v.Name)
				}
				return nil
			})
		},
	}
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check IMAGE",
		Short: "Check that the image is not truncated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := g.open(cmd, args[0], false)
			if err != nil {
				return err
			}
			defer img.Close()

			if !iso.CheckIntegrity(img) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid\n", args[0])
				return &exitError{code: 1, err: fmt.Errorf("%s failed the integrity check", args[0])}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
