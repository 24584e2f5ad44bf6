// Command cellquantview segments a single TIFF image, reports the
// average edge intensity, and writes a colored label overlay for
// visual inspection of the segmentation.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"cellquant/pkg/cellquant"
	"cellquant/pkg/imgio"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	inputPath := flag.String("input", "", "Path to input IHC TIF file")
	spotSigma := flag.Float64("spot", 6, "Gaussian sigma for controlling spot detection")
	outlineSigma := flag.Float64("outline", 3, "Gaussian sigma for controlling outline detection")
	threshold := flag.Float64("threshold", 0.02, "Threshold for background cutoff")
	edges := flag.String("edges", "region", "Edge pixel definition: region or boundary")
	overlayPath := flag.String("overlay", "", "Output overlay PNG path (default: {input}_overlay.png)")
	intermediatesDir := flag.String("save-intermediates", "", "Directory to save smoothed intermediate images (native build only)")
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		return fmt.Errorf("-input is required")
	}
	absPath, err := filepath.Abs(*inputPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("the input file does not exist: %w", err)
	}
	if !imgio.IsTIFF(absPath) {
		return fmt.Errorf("the input file does not have a .tif or .tiff extension")
	}

	edgeMode, err := cellquant.ParseEdgeMode(*edges)
	if err != nil {
		return err
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	img, err := imgio.LoadTIFF(absPath)
	if err != nil {
		return err
	}
	defer img.Close()

	params := &cellquant.SegmenterParams{
		SpotSigma:             *spotSigma,
		OutlineSigma:          *outlineSigma,
		Threshold:             *threshold,
		Normalize:             true,
		SaveIntermediatesPath: *intermediatesDir,
	}

	logger.Println("segmenting image...")
	labels, err := cellquant.Segment(img, params, logger)
	if err != nil {
		return err
	}

	logger.Println("analyzing image...")
	intensity, err := cellquant.QuantifyEdgeIntensity(img, labels, edgeMode, logger)
	if err != nil {
		return err
	}

	out := *overlayPath
	if out == "" {
		base := strings.TrimSuffix(absPath, filepath.Ext(absPath))
		out = base + "_overlay.png"
	}
	if err := cellquant.RenderLabelOverlay(img, labels, intensity, out); err != nil {
		return err
	}

	fmt.Printf("Cells: %d\n", labels.NumRegions())
	fmt.Printf("Average edge intensity: %g\n", intensity)
	fmt.Printf("Overlay written to %s\n", out)
	return nil
}
