package cellquant

import (
	"fmt"
	"log"
)

// QuantifyEdgeIntensity returns the mean intensity of the image over
// the edge pixels of every labeled region.
//
// EdgeModeRegion counts every labeled pixel as an edge pixel, matching
// the measurement this tool has historically reported under the name
// "edge intensity". EdgeModeBoundary restricts the mask to the true
// one-pixel perimeter of each region.
//
// Neither input is mutated. A label map without labeled pixels yields
// ErrNoRegions.
func QuantifyEdgeIntensity(img Mat, labels *LabelMap, mode EdgeMode, logger *log.Logger) (float64, error) {
	if img.Empty() || labels == nil {
		return 0, fmt.Errorf("%w: missing image or label map", ErrInvalidInput)
	}
	if img.Rows() != labels.Rows || img.Cols() != labels.Cols {
		return 0, fmt.Errorf("%w: image %dx%d vs label map %dx%d",
			ErrInvalidInput, img.Rows(), img.Cols(), labels.Rows, labels.Cols)
	}

	var mask []bool
	switch mode {
	case EdgeModeRegion:
		mask = regionMask(labels)
	case EdgeModeBoundary:
		mask = boundaryMask(labels)
	default:
		return 0, fmt.Errorf("%w: edge mode %d", ErrInvalidInput, mode)
	}

	data := img.DataFloat32()
	var sum float64
	var count int
	for i, in := range mask {
		if in {
			sum += float64(data[i])
			count++
		}
	}
	if count == 0 {
		return 0, ErrNoRegions
	}

	edge := sum / float64(count)
	if logger != nil {
		overall, _ := matMeanStdDev(img)
		logger.Printf("mean intensity: overall=%g edge=%g (%s, %d px)", overall, edge, mode, count)
	}
	return edge, nil
}

// regionMask marks every pixel belonging to any labeled region.
func regionMask(labels *LabelMap) []bool {
	out := make([]bool, len(labels.Pix))
	for i, v := range labels.Pix {
		out[i] = v > 0
	}
	return out
}

// boundaryMask marks labeled pixels with a 4-connected neighbor of a
// different label value. Image-border pixels of a region count as
// boundary.
func boundaryMask(labels *LabelMap) []bool {
	rows, cols := labels.Rows, labels.Cols
	out := make([]bool, len(labels.Pix))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := labels.At(r, c)
			if v == 0 {
				continue
			}
			for _, d := range neighbors4 {
				nr, nc := r+d[0], c+d[1]
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols || labels.At(nr, nc) != v {
					out[r*cols+c] = true
					break
				}
			}
		}
	}
	return out
}
