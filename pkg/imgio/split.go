package imgio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

const maxFrames = 1 << 16

// tiffLayout describes the IFD chain of a TIFF file.
type tiffLayout struct {
	order      binary.ByteOrder
	ifdOffsets []uint32
}

func parseLayout(data []byte) (*tiffLayout, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("not a TIFF file: too short")
	}
	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a TIFF file: bad byte-order mark %q", data[:2])
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, fmt.Errorf("not a TIFF file: bad magic")
	}

	layout := &tiffLayout{order: order}
	seen := make(map[uint32]bool)
	offset := order.Uint32(data[4:8])
	for offset != 0 {
		if seen[offset] || len(layout.ifdOffsets) >= maxFrames {
			return nil, fmt.Errorf("corrupt TIFF: IFD chain loops")
		}
		seen[offset] = true
		if int(offset)+2 > len(data) {
			return nil, fmt.Errorf("corrupt TIFF: IFD offset %d out of range", offset)
		}
		entries := order.Uint16(data[offset : offset+2])
		next := int(offset) + 2 + 12*int(entries)
		if next+4 > len(data) {
			return nil, fmt.Errorf("corrupt TIFF: IFD at %d truncated", offset)
		}
		layout.ifdOffsets = append(layout.ifdOffsets, offset)
		offset = order.Uint32(data[next : next+4])
	}
	if len(layout.ifdOffsets) == 0 {
		return nil, fmt.Errorf("corrupt TIFF: no IFDs")
	}
	return layout, nil
}

// nextPointerPos returns the byte position of the next-IFD pointer of
// the IFD at the given offset.
func (l *tiffLayout) nextPointerPos(data []byte, ifdOffset uint32) int {
	entries := l.order.Uint16(data[ifdOffset : ifdOffset+2])
	return int(ifdOffset) + 2 + 12*int(entries)
}

// frameData rewrites the file so the chosen frame becomes the first and
// only IFD. All tag value offsets stay valid because the rest of the
// file is untouched.
func (l *tiffLayout) frameData(data []byte, frame int) []byte {
	patched := make([]byte, len(data))
	copy(patched, data)
	ifdOffset := l.ifdOffsets[frame]
	l.order.PutUint32(patched[4:8], ifdOffset)
	pos := l.nextPointerPos(patched, ifdOffset)
	l.order.PutUint32(patched[pos:pos+4], 0)
	return patched
}

// CountFrames returns the number of frames (IFDs) in TIFF data.
func CountFrames(data []byte) (int, error) {
	layout, err := parseLayout(data)
	if err != nil {
		return 0, err
	}
	return len(layout.ifdOffsets), nil
}

// SplitFrames writes each frame of a multi-frame TIFF file to
// {basename}_{index}.tif in outputDir, creating the directory when
// absent, and returns the number of frames written. Pixel data is
// re-encoded uncompressed, preserving sample values exactly.
func SplitFrames(inputPath, outputDir string, logger *log.Logger) (int, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return 0, fmt.Errorf("reading input: %w", err)
	}
	layout, err := parseLayout(data)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	for i := range layout.ifdOffsets {
		img, err := tiff.Decode(bytes.NewReader(layout.frameData(data, i)))
		if err != nil {
			return i, fmt.Errorf("decoding frame %d: %w", i, err)
		}
		outPath := filepath.Join(outputDir, fmt.Sprintf("%s_%d.tif", base, i))
		if err := writeTIFF(outPath, img); err != nil {
			return i, fmt.Errorf("writing frame %d: %w", i, err)
		}
		if logger != nil {
			logger.Printf("wrote %s", outPath)
		}
	}
	return len(layout.ifdOffsets), nil
}

func writeTIFF(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Uncompressed})
}
