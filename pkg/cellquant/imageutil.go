package cellquant

import (
	"fmt"
	"math"
)

// ToFloat32Mat converts integer pixel samples to a float32 Mat scaled
// to [0, 1] by the sample bit depth.
func ToFloat32Mat(pixels []uint16, bpp, width, height int) Mat {
	m := NewMatWithSize(height, width)
	dest := m.DataFloat32()
	scale := float32(uint32(1) << uint(bpp))
	for i := 0; i < width*height; i++ {
		dest[i] = float32(pixels[i]) / scale
	}
	return m
}

// NormalizeInPlace min-max rescales the mat to [0, 1]. A flat image has
// no defined normalization and yields ErrDegenerateInput.
func NormalizeInPlace(m *Mat) error {
	minVal, maxVal := matMinMax(*m)
	if maxVal == minVal {
		return fmt.Errorf("%w (min == max == %g)", ErrDegenerateInput, minVal)
	}
	data := m.DataFloat32()
	lo := float32(minVal)
	span := float32(maxVal - minVal)
	for i := range data {
		data[i] = (data[i] - lo) / span
	}
	return nil
}

// gaussianKernelSize mirrors the common truncate-at-4-sigma convention:
// the kernel covers four standard deviations on each side.
func gaussianKernelSize(sigma float64) int {
	radius := int(math.Ceil(4 * sigma))
	if radius < 1 {
		radius = 1
	}
	return 2*radius + 1
}

// ConvolveGaussianSigma smooths src into dst with an isotropic Gaussian
// of the given bandwidth, reflecting at the borders.
func ConvolveGaussianSigma(src Mat, dst *Mat, sigma float64) {
	if sigma <= 0 {
		panic("sigma must be positive")
	}
	kernel := getGaussianKernel1D(gaussianKernelSize(sigma), sigma)
	defer kernel.Close()
	sepFilter2DReflect(src, dst, kernel, kernel)
}

// MatStats returns min, max and mean intensity, for diagnostics.
func MatStats(m Mat) (minVal, maxVal, mean float64) {
	minVal, maxVal = matMinMax(m)
	mean, _ = matMeanStdDev(m)
	return minVal, maxVal, mean
}
