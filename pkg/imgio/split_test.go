package imgio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
)

// buildTwoFrameTIFF assembles a little-endian TIFF with two 2x2 8-bit
// grayscale frames chained through their IFD next pointers. The Go
// TIFF encoder never writes multi-frame files, so the fixture is built
// by hand.
func buildTwoFrameTIFF(frame0, frame1 []byte) []byte {
	const (
		pix0 = 8
		pix1 = 12
		ifd0 = 16
		ifd1 = ifd0 + 2 + 9*12 + 4
	)
	le := binary.LittleEndian

	var buf bytes.Buffer
	buf.WriteString("II")
	b4 := make([]byte, 4)
	le.PutUint16(b4[:2], 42)
	buf.Write(b4[:2])
	le.PutUint32(b4, ifd0)
	buf.Write(b4)
	buf.Write(frame0)
	buf.Write(frame1)

	entry := func(tag, typ uint16, value uint32) {
		b := make([]byte, 12)
		le.PutUint16(b[0:2], tag)
		le.PutUint16(b[2:4], typ)
		le.PutUint32(b[4:8], 1)
		if typ == 3 { // SHORT values sit left-justified in the value field
			le.PutUint16(b[8:10], uint16(value))
		} else {
			le.PutUint32(b[8:12], value)
		}
		buf.Write(b)
	}
	writeIFD := func(pixOffset, next uint32) {
		le.PutUint16(b4[:2], 9)
		buf.Write(b4[:2])
		entry(256, 4, 2)         // ImageWidth
		entry(257, 4, 2)         // ImageLength
		entry(258, 3, 8)         // BitsPerSample
		entry(259, 3, 1)         // Compression: none
		entry(262, 3, 1)         // PhotometricInterpretation: BlackIsZero
		entry(273, 4, pixOffset) // StripOffsets
		entry(277, 3, 1)         // SamplesPerPixel
		entry(278, 4, 2)         // RowsPerStrip
		entry(279, 4, 4)         // StripByteCounts
		le.PutUint32(b4, next)
		buf.Write(b4)
	}
	writeIFD(pix0, ifd1)
	writeIFD(pix1, 0)
	return buf.Bytes()
}

func TestCountFramesSingle(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 3))
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, src, nil); err != nil {
		t.Fatal(err)
	}
	n, err := CountFrames(buf.Bytes())
	if err != nil {
		t.Fatalf("CountFrames: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d frames, want 1", n)
	}
}

func TestCountFramesMulti(t *testing.T) {
	data := buildTwoFrameTIFF([]byte{1, 2, 3, 4}, []byte{5, 6, 7, 8})
	n, err := CountFrames(data)
	if err != nil {
		t.Fatalf("CountFrames: %v", err)
	}
	if n != 2 {
		t.Fatalf("got %d frames, want 2", n)
	}
}

func TestCountFramesCorrupt(t *testing.T) {
	cases := map[string][]byte{
		"empty":      nil,
		"short":      []byte("II"),
		"bad order":  []byte("XX\x2a\x00\x08\x00\x00\x00"),
		"bad magic":  []byte("II\x2b\x00\x08\x00\x00\x00"),
		"no ifds":    []byte("II\x2a\x00\x00\x00\x00\x00"),
		"ifd beyond": []byte("II\x2a\x00\xff\x00\x00\x00"),
	}
	for name, data := range cases {
		if _, err := CountFrames(data); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCountFramesLoopingChain(t *testing.T) {
	data := buildTwoFrameTIFF([]byte{1, 2, 3, 4}, []byte{5, 6, 7, 8})
	// Point the second IFD's next pointer back at the first.
	layout, err := parseLayout(data)
	if err != nil {
		t.Fatal(err)
	}
	pos := layout.nextPointerPos(data, layout.ifdOffsets[1])
	binary.LittleEndian.PutUint32(data[pos:pos+4], layout.ifdOffsets[0])

	if _, err := CountFrames(data); err == nil {
		t.Fatal("expected error for looping IFD chain")
	}
}

func TestSplitFramesMulti(t *testing.T) {
	frame0 := []byte{10, 20, 30, 40}
	frame1 := []byte{50, 60, 70, 80}
	dir := t.TempDir()
	inPath := filepath.Join(dir, "stack.tif")
	if err := os.WriteFile(inPath, buildTwoFrameTIFF(frame0, frame1), 0644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(dir, "out")
	n, err := SplitFrames(inPath, outDir, nil)
	if err != nil {
		t.Fatalf("SplitFrames: %v", err)
	}
	if n != 2 {
		t.Fatalf("split %d frames, want 2", n)
	}

	for i, want := range [][]byte{frame0, frame1} {
		path := filepath.Join(outDir, fmt.Sprintf("stack_%d.tif", i))
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		img, err := tiff.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("decoding frame %d: %v", i, err)
		}
		for p, v := range want {
			y, x := p/2, p%2
			r, _, _, _ := img.At(x, y).RGBA()
			if uint8(r>>8) != v {
				t.Errorf("frame %d pixel (%d,%d): got %d, want %d", i, y, x, uint8(r>>8), v)
			}
		}
	}
}

func TestSplitFramesSingle(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.SetGray16(x, y, color.Gray16{Y: uint16(1000*(y*3+x) + 7)})
		}
	}
	dir := t.TempDir()
	inPath := filepath.Join(dir, "single.tif")
	writeGray16TIFF(t, inPath, src)

	n, err := SplitFrames(inPath, dir, nil)
	if err != nil {
		t.Fatalf("SplitFrames: %v", err)
	}
	if n != 1 {
		t.Fatalf("split %d frames, want 1", n)
	}

	f, err := os.Open(filepath.Join(dir, "single_0.tif"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		t.Fatalf("decoding split frame: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			want := src.Gray16At(x, y).Y
			r, _, _, _ := img.At(x, y).RGBA()
			if uint16(r) != want {
				t.Errorf("pixel (%d,%d): got %d, want %d", y, x, r, want)
			}
		}
	}
}

func TestSplitFramesMissingInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := SplitFrames(filepath.Join(dir, "nope.tif"), dir, nil); err == nil {
		t.Fatal("expected error for missing input")
	}
}
