package cellquant

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions a caller is expected to branch on.
// Anything else that goes wrong inside the pipeline surfaces as a
// *SegmentationError wrapping the underlying cause.
var (
	// ErrInvalidInput reports a missing image, a non-2D image, bad
	// parameters, or a shape mismatch between image and label map.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDegenerateInput reports an image with zero dynamic range, for
	// which min-max normalization is undefined.
	ErrDegenerateInput = errors.New("degenerate input: image has zero dynamic range")

	// ErrNoRegions reports a quantification request against a label map
	// with no labeled pixels.
	ErrNoRegions = errors.New("no labeled regions")
)

// SegmentationError wraps an unexpected failure inside the segmentation
// pipeline, tagged with the stage that failed.
type SegmentationError struct {
	Stage string
	Err   error
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segmentation failed at %s: %v", e.Stage, e.Err)
}

func (e *SegmentationError) Unwrap() error { return e.Err }

// SegmenterParams controls cell segmentation.
type SegmenterParams struct {
	// SpotSigma is the Gaussian bandwidth for seed (spot) detection.
	// Larger values produce fewer, coarser seeds.
	SpotSigma float64

	// OutlineSigma is the Gaussian bandwidth for boundary detection,
	// typically <= SpotSigma for sharper outlines.
	OutlineSigma float64

	// Threshold is the minimum mean intensity a region must exceed to
	// be kept as a cell. Interpreted against the normalized [0, 1]
	// image when Normalize is set, as an absolute cutoff otherwise.
	Threshold float64

	// Normalize min-max rescales intensities to [0, 1] before
	// smoothing, making Threshold portable across images.
	Normalize bool

	// SaveIntermediatesPath, when set to an existing directory, saves
	// the smoothed intermediate images there for inspection. Only the
	// native backend writes files.
	SaveIntermediatesPath string
}

// NewSegmenterParams returns parameters with the empirically tuned
// defaults used by the batch tool.
func NewSegmenterParams() *SegmenterParams {
	return &SegmenterParams{
		SpotSigma:    6,
		OutlineSigma: 3,
		Threshold:    0.1,
		Normalize:    true,
	}
}

func (p *SegmenterParams) validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil params", ErrInvalidInput)
	}
	if p.SpotSigma <= 0 {
		return fmt.Errorf("%w: spot sigma must be positive, got %v", ErrInvalidInput, p.SpotSigma)
	}
	if p.OutlineSigma <= 0 {
		return fmt.Errorf("%w: outline sigma must be positive, got %v", ErrInvalidInput, p.OutlineSigma)
	}
	return nil
}

// EdgeMode selects which pixels of a labeled region count as "edge"
// pixels during intensity quantification.
type EdgeMode int

const (
	// EdgeModeRegion treats every pixel of a labeled region as an edge
	// pixel. This reproduces the measurement the tool has always made;
	// the name "edge intensity" predates it.
	EdgeModeRegion EdgeMode = iota

	// EdgeModeBoundary restricts the mask to region pixels that touch
	// a 4-connected neighbor with a different label value, i.e. a true
	// one-pixel perimeter.
	EdgeModeBoundary
)

func (m EdgeMode) String() string {
	switch m {
	case EdgeModeRegion:
		return "region"
	case EdgeModeBoundary:
		return "boundary"
	default:
		return "unknown"
	}
}

// ParseEdgeMode converts a configuration string to an EdgeMode.
func ParseEdgeMode(s string) (EdgeMode, error) {
	switch s {
	case "region", "":
		return EdgeModeRegion, nil
	case "boundary":
		return EdgeModeBoundary, nil
	default:
		return 0, fmt.Errorf("%w: unknown edge mode %q", ErrInvalidInput, s)
	}
}

// LabelMap is an integer raster the same shape as the image it was
// segmented from. 0 is background; each positive value identifies one
// connected region. After segmentation the positive values form the
// dense sequence 1..K.
type LabelMap struct {
	Pix  []int32
	Rows int
	Cols int
}

// NewLabelMap returns an all-background label map.
func NewLabelMap(rows, cols int) *LabelMap {
	return &LabelMap{
		Pix:  make([]int32, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

func (m *LabelMap) At(r, c int) int32     { return m.Pix[r*m.Cols+c] }
func (m *LabelMap) Set(r, c int, v int32) { m.Pix[r*m.Cols+c] = v }

// Clone returns an independent copy.
func (m *LabelMap) Clone() *LabelMap {
	out := NewLabelMap(m.Rows, m.Cols)
	copy(out.Pix, m.Pix)
	return out
}

// NumRegions returns the highest label value present, which equals the
// region count K for a densely labeled map.
func (m *LabelMap) NumRegions() int {
	var max int32
	for _, v := range m.Pix {
		if v > max {
			max = v
		}
	}
	return int(max)
}

// RegionStat holds the per-region measurements used by the intensity
// threshold filter.
type RegionStat struct {
	Label         int32
	PixelCount    int
	MeanIntensity float64
}
