// Package imgio loads grayscale TIFF rasters into the core Mat type
// and splits multi-frame TIFF files. Decoding goes through
// golang.org/x/image/tiff so it works identically on both numeric
// backends.
package imgio

import (
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"golang.org/x/image/tiff"

	"cellquant/pkg/cellquant"
)

// IsTIFF reports whether the file name has a .tif or .tiff extension,
// case-insensitive.
func IsTIFF(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".tif") || strings.HasSuffix(lower, ".tiff")
}

// LoadTIFF reads a single-frame grayscale TIFF into a Mat with
// intensities scaled to [0, 1] by the sample bit depth.
func LoadTIFF(path string) (cellquant.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return cellquant.Mat{}, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()
	return DecodeTIFF(f)
}

// DecodeTIFF decodes TIFF data from r into a Mat. Color images are
// reduced to luminance.
func DecodeTIFF(r io.Reader) (cellquant.Mat, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return cellquant.Mat{}, fmt.Errorf("decoding TIFF: %w", err)
	}
	return matFromImage(img), nil
}

func matFromImage(img image.Image) cellquant.Mat {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]uint16, w*h)

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < h; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < w; x++ {
				pixels[y*w+x] = uint16(src.Pix[off+2*x])<<8 | uint16(src.Pix[off+2*x+1])
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < w; x++ {
				v := uint16(src.Pix[off+x])
				pixels[y*w+x] = v<<8 | v
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				pixels[y*w+x] = uint16((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
			}
		}
	}

	return cellquant.ToFloat32Mat(pixels, 16, w, h)
}
