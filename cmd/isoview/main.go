package main

import (
	"fmt"
	"os"

	"github.com/bgrewell/usage"
	"github.com/rstms/iso-reader"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/options"
)

func main() {

	u := usage.NewUsage()
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Print verbose output", "", nil)
	list := u.AddBooleanOption("l", "list", false, "List every path in the image", "", nil)
	plain := u.AddBooleanOption("n", "no-rockridge", false, "Ignore Rock Ridge extensions", "", nil)
	path := u.AddArgument(1, "iso-path", "Path to the ISO image", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if path == nil || *path == "" {
		u.PrintError(fmt.Errorf("location of the iso file <path> must be provided"))
		os.Exit(1)
	}

	logger := logging.ForFlags(os.Stderr, *verbose, false)
	img, err := iso.Open(*path, options.WithLogger(logger), options.WithRockRidgeEnabled(!*plain))
	if err != nil {
		u.PrintError(fmt.Errorf("%s: %w", isoerr.Message(err), err))
		os.Exit(1)
	}
	defer img.Close()

	fmt.Println(img.String())
	if !img.HasVolume() {
		fmt.Printf("  %s: %v\n", isoerr.Message(img.VolumeError()), img.VolumeError())
		img.Close()
		os.Exit(1)
	}

	pvd, boot := iso.Volume(img)
	fmt.Printf("  System:      %s\n", pvd.SystemIdentifier)
	fmt.Printf("  Volume:      %s\n", pvd.VolumeIdentifier)
	fmt.Printf("  Blocks:      %d x %d bytes\n", pvd.VolumeSpaceSize, pvd.LogicalBlockSize)
	fmt.Printf("  Path table:  %d bytes at block %d\n", pvd.PathTableSize, pvd.LocationOfTypeLPathTable)
	fmt.Printf("  Rock Ridge:  %t\n", img.HasRockRidge())
	if boot != nil {
		fmt.Printf("  Boot record: %s (catalog block %d)\n", boot.BootSystemIdentifier, boot.BootCatalogBlock)
	}

	entries, err := img.ListEntries("/", true)
	if err != nil {
		u.PrintError(fmt.Errorf("%s: %w", isoerr.Message(err), err))
		img.Close()
		os.Exit(1)
	}
	folders, files := 0, 0
	for _, e := range entries {
		if e.IsDir() {
			folders++
		} else {
			files++
		}
		if *list {
			fmt.Printf("  %s %10d %s\n", e.Mode(), e.Size(), e.Path)
		}
	}
	fmt.Printf("  Contents:    %d directories, %d files\n", folders, files)

	valid := img.CheckIntegrity()
	fmt.Printf("  Integrity:   %t\n", valid)
	if !valid {
		img.Close()
		os.Exit(1)
	}
}
