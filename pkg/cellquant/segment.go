package cellquant

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// Neighbor connectivity. Seed detection and seed clustering consider
// all 8 neighbors; watershed growth uses the 4-connected cross.
var (
	neighbors8 = [8][2]int{
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	}
	neighbors4 = [4][2]int{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}
)

// Segment runs thresholded local-minima seeded watershed segmentation
// and returns a label map the same shape as the image, with cells
// labeled densely 1..K and background 0.
//
// The image is never mutated. Any failure surfaces as a typed error;
// Segment never returns a partially computed map. A nil logger
// suppresses diagnostics.
func Segment(img Mat, p *SegmenterParams, logger *log.Logger) (*LabelMap, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if img.Empty() || img.Rows() < 1 || img.Cols() < 1 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}

	rows, cols := img.Rows(), img.Cols()
	logf(logger, "image shape: %dx%d", rows, cols)

	// Work on a float copy so the caller's image stays untouched.
	work := img.Clone()
	defer work.Close()

	minVal, maxVal, mean := MatStats(work)
	logf(logger, "intensity min=%g max=%g mean=%g", minVal, maxVal, mean)

	if p.Normalize {
		if err := NormalizeInPlace(&work); err != nil {
			return nil, err
		}
		logf(logger, "normalized to [0, 1]")
	}

	// Two smoothing passes, one per bandwidth. Equal sigmas share one
	// pass; the result is identical to running both independently.
	spotBlurred := NewMatWithSize(rows, cols)
	defer spotBlurred.Close()
	ConvolveGaussianSigma(work, &spotBlurred, p.SpotSigma)

	outlineBlurred := NewMatWithSize(rows, cols)
	defer outlineBlurred.Close()
	if p.OutlineSigma == p.SpotSigma {
		CopyMatTo(spotBlurred, &outlineBlurred)
	} else {
		ConvolveGaussianSigma(work, &outlineBlurred, p.OutlineSigma)
	}
	if spotBlurred.Empty() || outlineBlurred.Empty() {
		return nil, &SegmentationError{Stage: "smoothing", Err: fmt.Errorf("smoothing produced an empty image")}
	}
	maybeSaveImage(spotBlurred, p.SaveIntermediatesPath, "01-spot-blurred.tif")
	maybeSaveImage(outlineBlurred, p.SaveIntermediatesPath, "02-outline-blurred.tif")

	// Seeds: clusters of local minima of the spot-smoothed image.
	minima := localMinima(spotBlurred)
	seeds := labelComponents(minima, rows, cols)
	logf(logger, "seeds: %d", seeds.NumRegions())

	// Flood the outline-smoothed landscape from the seeds, restricted
	// to pixels with non-zero working intensity.
	mask := positiveMask(work)
	regions, err := watershedFlood(outlineBlurred, seeds, mask)
	if err != nil {
		return nil, &SegmentationError{Stage: "watershed", Err: err}
	}
	logf(logger, "candidate regions: %d", countLabels(regions))

	// Drop regions whose mean working intensity does not exceed the
	// threshold, then renumber the survivors densely.
	stats := regionStats(regions, work)
	kept := 0
	for _, s := range stats {
		if s.MeanIntensity > p.Threshold {
			kept++
			continue
		}
		zeroLabel(regions, s.Label)
	}
	logf(logger, "regions above threshold %g: %d of %d", p.Threshold, kept, len(stats))

	out := RelabelSequential(regions)
	logf(logger, "segmented %d cells", out.NumRegions())
	return out, nil
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

func maybeSaveImage(m Mat, savePath, filename string) {
	if savePath == "" {
		return
	}
	if _, err := os.Stat(savePath); os.IsNotExist(err) {
		return
	}
	imWriteMat(filepath.Join(savePath, filename), m)
}

// localMinima marks the pixels of every 8-connected plateau that has no
// strictly lower neighbor and at least one strictly higher one. A
// completely flat image has no minima, so it yields no seeds.
func localMinima(m Mat) []bool {
	rows, cols := m.Rows(), m.Cols()
	data := m.DataFloat32()
	out := make([]bool, rows*cols)
	visited := make([]bool, rows*cols)
	queue := make([]int, 0, 64)
	plateau := make([]int, 0, 64)
	for start := range data {
		if visited[start] {
			continue
		}
		// Flood the equal-valued plateau around start, noting whether
		// any surrounding pixel sits below or above it.
		v := data[start]
		visited[start] = true
		queue = append(queue[:0], start)
		plateau = plateau[:0]
		hasLower, hasHigher := false, false
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			plateau = append(plateau, idx)
			r, c := idx/cols, idx%cols
			for _, d := range neighbors8 {
				nr, nc := r+d[0], c+d[1]
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					continue
				}
				nidx := nr*cols + nc
				switch {
				case data[nidx] < v:
					hasLower = true
				case data[nidx] > v:
					hasHigher = true
				case !visited[nidx]:
					visited[nidx] = true
					queue = append(queue, nidx)
				}
			}
		}
		if !hasLower && hasHigher {
			for _, idx := range plateau {
				out[idx] = true
			}
		}
	}
	return out
}

// labelComponents assigns each 8-connected cluster of marked pixels a
// positive label, in raster discovery order.
func labelComponents(mask []bool, rows, cols int) *LabelMap {
	out := NewLabelMap(rows, cols)
	var next int32
	queue := make([]int, 0, 64)
	for start := range mask {
		if !mask[start] || out.Pix[start] != 0 {
			continue
		}
		next++
		out.Pix[start] = next
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			r, c := idx/cols, idx%cols
			for _, d := range neighbors8 {
				nr, nc := r+d[0], c+d[1]
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					continue
				}
				nidx := nr*cols + nc
				if mask[nidx] && out.Pix[nidx] == 0 {
					out.Pix[nidx] = next
					queue = append(queue, nidx)
				}
			}
		}
	}
	return out
}

// positiveMask marks pixels with intensity strictly above zero. Pixels
// outside the mask are excluded from watershed flooding.
func positiveMask(m Mat) []bool {
	data := m.DataFloat32()
	out := make([]bool, len(data))
	for i, v := range data {
		out[i] = v > 0
	}
	return out
}

// regionStats computes pixel count and mean intensity per label, in
// ascending label order. Means accumulate in float64.
func regionStats(lm *LabelMap, intensity Mat) []RegionStat {
	data := intensity.DataFloat32()
	counts := make(map[int32]int)
	sums := make(map[int32]float64)
	for i, v := range lm.Pix {
		if v == 0 {
			continue
		}
		counts[v]++
		sums[v] += float64(data[i])
	}
	labels := make([]int32, 0, len(counts))
	for v := range counts {
		labels = append(labels, v)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	out := make([]RegionStat, len(labels))
	for i, v := range labels {
		out[i] = RegionStat{
			Label:         v,
			PixelCount:    counts[v],
			MeanIntensity: sums[v] / float64(counts[v]),
		}
	}
	return out
}

func countLabels(lm *LabelMap) int {
	seen := make(map[int32]struct{})
	for _, v := range lm.Pix {
		if v != 0 {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func zeroLabel(lm *LabelMap, label int32) {
	for i, v := range lm.Pix {
		if v == label {
			lm.Pix[i] = 0
		}
	}
}

// RelabelSequential renumbers the positive labels of lm to the dense
// sequence 1..K, in ascending order of the original values. Background
// stays 0. Relabeling an already densely labeled map returns an equal
// map.
func RelabelSequential(lm *LabelMap) *LabelMap {
	present := make(map[int32]struct{})
	for _, v := range lm.Pix {
		if v > 0 {
			present[v] = struct{}{}
		}
	}
	old := make([]int32, 0, len(present))
	for v := range present {
		old = append(old, v)
	}
	sort.Slice(old, func(i, j int) bool { return old[i] < old[j] })
	remap := make(map[int32]int32, len(old))
	for i, v := range old {
		remap[v] = int32(i + 1)
	}
	out := NewLabelMap(lm.Rows, lm.Cols)
	for i, v := range lm.Pix {
		if v > 0 {
			out.Pix[i] = remap[v]
		}
	}
	return out
}
