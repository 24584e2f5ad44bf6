// Command splittiff splits a multi-frame TIFF file into individual
// single-frame TIFF images named {basename}_{index}.tif.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"cellquant/pkg/imgio"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	inputPath := flag.String("input", "", "Path to the input multi-frame TIF file")
	outputDir := flag.String("output", "", "Directory where the split TIF images will be saved")
	flag.Parse()

	if *inputPath == "" || *outputDir == "" {
		flag.Usage()
		return fmt.Errorf("-input and -output are required")
	}

	absInput, err := filepath.Abs(*inputPath)
	if err != nil {
		return err
	}
	absOutput, err := filepath.Abs(*outputDir)
	if err != nil {
		return err
	}

	info, err := os.Stat(absInput)
	if err != nil || info.IsDir() {
		return fmt.Errorf("the input file does not exist or is not a file")
	}
	if !imgio.IsTIFF(absInput) {
		return fmt.Errorf("the input file does not have a .tif or .tiff extension")
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	logger.Println("splitting file...")

	n, err := imgio.SplitFrames(absInput, absOutput, logger)
	if err != nil {
		return err
	}

	logger.Printf("successfully split %d frames into %s", n, absOutput)
	return nil
}
