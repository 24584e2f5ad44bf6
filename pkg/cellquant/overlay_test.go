package cellquant

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestRenderLabelOverlay(t *testing.T) {
	img := makeMat(10, 12, func(r, c int) float64 { return float64(r+c) / 22 })
	defer img.Close()

	labels := NewLabelMap(10, 12)
	for r := 2; r <= 4; r++ {
		for c := 2; c <= 4; c++ {
			labels.Set(r, c, 1)
		}
	}
	labels.Set(7, 8, 2)

	out := filepath.Join(t.TempDir(), "overlay.png")
	if err := RenderLabelOverlay(img, labels, 0.1234, out); err != nil {
		t.Fatalf("RenderLabelOverlay: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open overlay: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode overlay: %v", err)
	}

	b := decoded.Bounds()
	if b.Dx() != 12 || b.Dy() != 10+20 {
		t.Fatalf("overlay %dx%d, want 12x30 (image plus caption strip)", b.Dx(), b.Dy())
	}

	// Labeled pixels are tinted, so they differ from the grayscale base.
	r1, g1, b1, _ := decoded.At(3, 3).RGBA()
	if r1 == g1 && g1 == b1 {
		t.Error("labeled pixel (3,3) is untinted gray")
	}
	r0, g0, b0, _ := decoded.At(9, 0).RGBA()
	if !(r0 == g0 && g0 == b0) {
		t.Errorf("background pixel (9,0) tinted: %d %d %d", r0, g0, b0)
	}
}

func TestRenderLabelOverlayBytes(t *testing.T) {
	img := makeMat(6, 6, func(r, c int) float64 { return 0.5 })
	defer img.Close()

	labels := NewLabelMap(6, 6)
	labels.Set(1, 1, 1)

	data, err := RenderLabelOverlayBytes(img, labels, 0.5)
	if err != nil {
		t.Fatalf("RenderLabelOverlayBytes: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("returned bytes are not a PNG: %v", err)
	}
}

func TestRenderLabelOverlayShapeMismatch(t *testing.T) {
	img := makeMat(4, 4, func(r, c int) float64 { return 0 })
	defer img.Close()

	err := RenderLabelOverlay(img, NewLabelMap(3, 4), 0, filepath.Join(t.TempDir(), "x.png"))
	if err == nil {
		t.Fatal("expected error for mismatched label map")
	}
}

func TestLabelColorsDistinct(t *testing.T) {
	seen := make(map[[3]uint8]int32)
	for label := int32(1); label <= 16; label++ {
		c := labelColor(label)
		key := [3]uint8{c.R, c.G, c.B}
		if prev, ok := seen[key]; ok {
			t.Fatalf("labels %d and %d share color %v", prev, label, key)
		}
		seen[key] = label
	}
}
