package cellquant

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderLabelOverlay draws the segmented cells over the source image
// and writes the result to a PNG file. Each label gets its own hue;
// background shows the source intensities. A caption at the bottom
// reports the cell count and mean edge intensity.
func RenderLabelOverlay(img Mat, labels *LabelMap, edgeIntensity float64, outputPath string) error {
	rgba, err := renderOverlayImage(img, labels, edgeIntensity)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create overlay file: %w", err)
	}
	defer f.Close()

	return png.Encode(f, rgba)
}

// RenderLabelOverlayBytes renders the overlay and returns it as PNG
// bytes, for callers without a filesystem (wasm).
func RenderLabelOverlayBytes(img Mat, labels *LabelMap, edgeIntensity float64) ([]byte, error) {
	rgba, err := renderOverlayImage(img, labels, edgeIntensity)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderOverlayImage(img Mat, labels *LabelMap, edgeIntensity float64) (*image.RGBA, error) {
	if img.Empty() || labels == nil {
		return nil, fmt.Errorf("%w: missing image or label map", ErrInvalidInput)
	}
	rows, cols := img.Rows(), img.Cols()
	if labels.Rows != rows || labels.Cols != cols {
		return nil, fmt.Errorf("%w: image %dx%d vs label map %dx%d",
			ErrInvalidInput, rows, cols, labels.Rows, labels.Cols)
	}

	const captionH = 20
	out := image.NewRGBA(image.Rect(0, 0, cols, rows+captionH))

	// Grayscale base stretched to the image's own intensity range.
	data := img.DataFloat32()
	minVal, maxVal := matMinMax(img)
	span := maxVal - minVal
	if span == 0 {
		span = 1
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			gray := uint8(255 * (float64(data[r*cols+c]) - minVal) / span)
			base := color.RGBA{gray, gray, gray, 255}
			if label := labels.At(r, c); label > 0 {
				tint := labelColor(label)
				base = color.RGBA{
					R: uint8((uint16(base.R) + uint16(tint.R)) / 2),
					G: uint8((uint16(base.G) + uint16(tint.G)) / 2),
					B: uint8((uint16(base.B) + uint16(tint.B)) / 2),
					A: 255,
				}
			}
			out.Set(c, r, base)
		}
	}

	// Caption strip
	for y := rows; y < rows+captionH; y++ {
		for x := 0; x < cols; x++ {
			out.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	caption := fmt.Sprintf("cells: %d  edge intensity: %.4f", labels.NumRegions(), edgeIntensity)
	drawText(out, basicfont.Face7x13, caption, 4, rows+14, color.RGBA{255, 255, 255, 255})

	return out, nil
}

// labelColor spaces hues by the golden angle so adjacent labels get
// visually distinct colors.
func labelColor(label int32) color.RGBA {
	hue := math.Mod(float64(label)*137.508, 360)
	return hsvToRGB(hue, 0.85, 1.0)
}

func hsvToRGB(h, s, v float64) color.RGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return color.RGBA{
		R: uint8(255 * (r + m)),
		G: uint8(255 * (g + m)),
		B: uint8(255 * (b + m)),
		A: 255,
	}
}

func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
