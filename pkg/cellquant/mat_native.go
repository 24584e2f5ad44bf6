//go:build !purego && !js

package cellquant

import (
	"image"

	"gocv.io/x/gocv"
)

// Mat wraps gocv.Mat for the native OpenCV backend. All pipeline code
// works on the float32 data slice, so only storage, separable
// filtering and a few reductions are delegated to OpenCV.
type Mat struct {
	m gocv.Mat
}

func NewMatWithSize(rows, cols int) Mat {
	return Mat{m: gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)}
}

func (mat Mat) Rows() int   { return mat.m.Rows() }
func (mat Mat) Cols() int   { return mat.m.Cols() }
func (mat Mat) Empty() bool { return mat.m.Empty() }
func (mat Mat) Clone() Mat  { return Mat{m: mat.m.Clone()} }
func (mat *Mat) Close()     { mat.m.Close() }

func (mat Mat) DataFloat32() []float32 {
	data, _ := mat.m.DataPtrFloat32()
	return data
}

func CopyMatTo(src Mat, dst *Mat) {
	src.m.CopyTo(&dst.m)
}

func sepFilter2DReflect(src Mat, dst *Mat, kernelX, kernelY Mat) {
	gocv.SepFilter2D(src.m, &dst.m, gocv.MatTypeCV32F, kernelX.m, kernelY.m, image.Pt(-1, -1), 0, gocv.BorderReflect)
}

func getGaussianKernel1D(size int, sigma float64) Mat {
	return Mat{m: gocv.GetGaussianKernel(size, sigma)}
}

func matMinMax(src Mat) (float64, float64) {
	minVal, maxVal, _, _ := gocv.MinMaxLoc(src.m)
	return float64(minVal), float64(maxVal)
}

func matMeanStdDev(src Mat) (float64, float64) {
	meanMat := gocv.NewMat()
	defer meanMat.Close()
	stdMat := gocv.NewMat()
	defer stdMat.Close()
	gocv.MeanStdDev(src.m, &meanMat, &stdMat)
	return meanMat.GetDoubleAt(0, 0), stdMat.GetDoubleAt(0, 0)
}

func imWriteMat(path string, m Mat) {
	gocv.IMWrite(path, m.m)
}
