package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rstms/iso-reader"
	"github.com/rstms/iso-reader/pkg/isoerr"
	"github.com/rstms/iso-reader/pkg/logging"
	"github.com/rstms/iso-reader/pkg/options"
	"github.com/theckman/yacspin"
	"golang.org/x/term"
)

var (
	version = "dev"
)

// truncateString truncates the input string to the specified max length.
// If truncation occurs, it prepends "..." to indicate the string has been shortened.
func truncateString(input string, maxLength int) string {
	if len(input) <= maxLength {
		return input
	}
	if maxLength <= 3 {
		return input[len(input)-maxLength:]
	}
	return "..." + input[len(input)-(maxLength-3):]
}

// CreateProgressCallback returns a ProgressCallback that updates the spinner's message.
func CreateProgressCallback(spinner *yacspin.Spinner) options.ProgressCallback {
	return func(
		currentFilename string,
		bytesTransferred int64,
		totalBytes int64,
		currentFileNumber int,
		totalFileCount int,
	) {
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			width = 80
		}

		percent := 100.0
		if totalBytes > 0 {
			percent = float64(bytesTransferred) / float64(totalBytes) * 100
		}
		fixedPart := fmt.Sprintf(" [%d/%d] ", currentFileNumber, totalFileCount)
		suffixPart := fmt.Sprintf(" - %.2f%%", percent)

		availableSpace := width - len(fixedPart) - len(suffixPart) - 6
		if availableSpace < 10 {
			availableSpace = 10
		}

		spinner.Message(fmt.Sprintf("%s%s%s", fixedPart, truncateString(currentFilename, availableSpace), suffixPart))
	}
}

// InitializeSpinner sets up and starts the yacspin spinner.
func InitializeSpinner() (*yacspin.Spinner, error) {
	settings := yacspin.Config{
		Frequency:         100 * time.Millisecond,
		ShowCursor:        false,
		SpinnerAtEnd:      false,
		CharSet:           yacspin.CharSets[14],
		Colors:            []string{"fgHiCyan"},
		StopColors:        []string{"fgHiGreen"},
		StopFailColors:    []string{"fgHiRed"},
		StopFailCharacter: "✗",
		StopCharacter:     "✓",
	}

	spinner, err := yacspin.New(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create spinner: %w", err)
	}
	if err := spinner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start spinner: %w", err)
	}
	return spinner, nil
}

func usage() {
	fmt.Println("isoextract v" + version)
	fmt.Println("Usage: isoextract [options] <path-to-iso>")
	fmt.Println("  -v               Enable verbose (debug) logging")
	fmt.Println("  -vv              Enable trace logging")
	fmt.Println("  -rockridge       Enable Rock Ridge support (default: true)")
	fmt.Println("  -strip           Strip version info from filenames (default: true)")
	fmt.Println("  -path <path>     Path inside the image to extract (default '/')")
	fmt.Println("  -p <pattern>     Only extract entries whose name matches the regular expression")
	fmt.Println("  -r               Recurse into subdirectories (default: true)")
	fmt.Println("  -all             Recreate device files from Rock Ridge data")
	fmt.Println("  -mmap            Memory map the image instead of reading it")
	fmt.Println("  -o <directory>   Output directory (default './extracted')")
}

func main() {
	debug := flag.Bool("v", false, "Enable verbose (debug) logging")
	trace := flag.Bool("vv", false, "Enable trace logging")

	rockRidge := flag.Bool("rockridge", true, "Enable Rock Ridge support")
	stripVer := flag.Bool("strip", true, "Strip version info from filenames")
	isoPath := flag.String("path", "/", "Path inside the image to extract")
	pattern := flag.String("p", "", "Regular expression matched against entry names")
	recursive := flag.Bool("r", true, "Recurse into subdirectories")
	allTypes := flag.Bool("all", false, "Recreate device files")
	useMmap := flag.Bool("mmap", false, "Memory map the image")

	outputDir := flag.String("o", "./extracted", "Output directory for extracted files")

	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}
	imagePath := flag.Arg(0)

	logger := logging.ForFlags(os.Stderr, *debug, *trace)

	spinner, err := InitializeSpinner()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize spinner: %v\n", err)
		os.Exit(1)
	}

	sourceType := options.SOURCE_FILE
	if *useMmap {
		sourceType = options.SOURCE_MMAP
	}

	img, err := iso.Open(
		imagePath,
		options.WithRockRidgeEnabled(*rockRidge),
		options.WithStripVersionInfo(*stripVer),
		options.WithSourceType(sourceType),
		options.WithLogger(logger),
		options.WithProgress(CreateProgressCallback(spinner)),
	)
	if err != nil {
		spinner.StopFailMessage(fmt.Sprintf(" %s: %v", isoerr.Message(err), err))
		_ = spinner.StopFail()
		os.Exit(1)
	}
	defer img.Close()

	status, err := iso.Extract(img, *isoPath, *outputDir, *pattern, *recursive, *allTypes)
	switch status {
	case iso.Success:
		spinner.StopMessage(fmt.Sprintf(" All files extracted successfully to %s!", *outputDir))
		_ = spinner.Stop()
	default:
		spinner.StopFailMessage(fmt.Sprintf(" %s: %v", isoerr.Message(err), err))
		_ = spinner.StopFail()
		img.Close()
		os.Exit(int(status))
	}
}
