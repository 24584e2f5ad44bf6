// Package batch runs the segmentation and quantification pipeline over
// every TIFF image in a directory and writes a CSV results table. A
// single image's failure is logged and skipped; the batch continues.
package batch

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gonum.org/v1/gonum/stat"

	"cellquant/pkg/cellquant"
	"cellquant/pkg/imgio"
)

// ResultsFileName is the CSV file written into the input directory.
const ResultsFileName = "results.csv"

var csvHeader = []string{"Image Name", "Average Edge Intensity"}

// Result is the outcome for one image.
type Result struct {
	Name      string
	Intensity float64
	Err       error
}

// Options configures a batch run.
type Options struct {
	Params   *cellquant.SegmenterParams
	EdgeMode cellquant.EdgeMode
	// Workers is the number of images processed concurrently. Values
	// below 1 mean sequential processing. Images share no state, so
	// each worker runs a full pipeline independently.
	Workers int
	Logger  *log.Logger
}

// Run processes every .tif/.tiff file in inputDir and writes
// results.csv there. It returns the per-image results in directory
// listing order, including failed images (Err set, no CSV row).
func Run(inputDir string, opts Options) ([]Result, error) {
	info, err := os.Stat(inputDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: input directory %q does not exist", cellquant.ErrInvalidInput, inputDir)
	}
	if opts.Params == nil {
		opts.Params = cellquant.NewSegmenterParams()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !imgio.IsTIFF(e.Name()) {
			logf(opts.Logger, "skipping %s: not a .tif or .tiff file", e.Name())
			continue
		}
		names = append(names, e.Name())
	}

	results := make([]Result, len(names))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = processImage(inputDir, names[i], opts)
			}
		}()
	}
	for i := range names {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := WriteResults(filepath.Join(inputDir, ResultsFileName), results); err != nil {
		return results, err
	}
	logSummary(opts.Logger, results)
	return results, nil
}

func processImage(dir, name string, opts Options) Result {
	logf(opts.Logger, "processing image: %s", name)

	img, err := imgio.LoadTIFF(filepath.Join(dir, name))
	if err != nil {
		logf(opts.Logger, "error loading %s: %v", name, err)
		return Result{Name: name, Err: err}
	}
	defer img.Close()

	labels, err := cellquant.Segment(img, opts.Params, opts.Logger)
	if err != nil {
		logf(opts.Logger, "error segmenting %s: %v", name, err)
		return Result{Name: name, Err: err}
	}

	intensity, err := cellquant.QuantifyEdgeIntensity(img, labels, opts.EdgeMode, opts.Logger)
	if err != nil {
		logf(opts.Logger, "error analyzing %s: %v", name, err)
		return Result{Name: name, Err: err}
	}

	logf(opts.Logger, "%s: average edge intensity %g", name, intensity)
	return Result{Name: name, Intensity: intensity}
}

// WriteResults writes the header row and one data row per successful
// result.
func WriteResults(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if err := w.Write([]string{r.Name, strconv.FormatFloat(r.Intensity, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func logSummary(logger *log.Logger, results []Result) {
	var intensities []float64
	for _, r := range results {
		if r.Err == nil {
			intensities = append(intensities, r.Intensity)
		}
	}
	if len(intensities) == 0 {
		logf(logger, "batch complete: no images analyzed")
		return
	}
	mean := stat.Mean(intensities, nil)
	var sd float64
	if len(intensities) > 1 {
		sd = stat.StdDev(intensities, nil)
	}
	logf(logger, "batch complete: %d of %d images analyzed, edge intensity mean=%g stddev=%g",
		len(intensities), len(results), mean, sd)
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}
