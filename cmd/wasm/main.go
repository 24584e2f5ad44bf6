//go:build js && wasm

// Browser front-end: exposes segmentImage(fileBytes, spotSigma,
// outlineSigma, threshold, edgeMode) which decodes a TIFF, runs the
// segmentation pipeline, and returns the cell count, the average edge
// intensity, and a PNG overlay.
package main

import (
	"bytes"
	"syscall/js"

	"cellquant/pkg/cellquant"
	"cellquant/pkg/imgio"
)

func main() {
	js.Global().Set("segmentImage", js.FuncOf(segmentImage))
	select {} // block forever
}

func segmentImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return errorResult("usage: segmentImage(fileBytes, spotSigma, outlineSigma, threshold, edgeMode)")
	}

	jsBytes := args[0]
	fileBytes := make([]byte, jsBytes.Get("length").Int())
	js.CopyBytesToGo(fileBytes, jsBytes)

	params := &cellquant.SegmenterParams{
		SpotSigma:    args[1].Float(),
		OutlineSigma: args[2].Float(),
		Threshold:    args[3].Float(),
		Normalize:    true,
	}

	edgeMode := cellquant.EdgeModeRegion
	if len(args) >= 5 && args[4].Type() == js.TypeString {
		var err error
		if edgeMode, err = cellquant.ParseEdgeMode(args[4].String()); err != nil {
			return errorResult(err.Error())
		}
	}

	img, err := imgio.DecodeTIFF(bytes.NewReader(fileBytes))
	if err != nil {
		return errorResult("TIFF decode error: " + err.Error())
	}
	defer img.Close()

	labels, err := cellquant.Segment(img, params, nil)
	if err != nil {
		return errorResult("segmentation error: " + err.Error())
	}

	intensity, err := cellquant.QuantifyEdgeIntensity(img, labels, edgeMode, nil)
	if err != nil {
		return errorResult("analysis error: " + err.Error())
	}

	overlay, err := cellquant.RenderLabelOverlayBytes(img, labels, intensity)
	if err != nil {
		return errorResult("overlay error: " + err.Error())
	}
	jsOverlay := js.Global().Get("Uint8Array").New(len(overlay))
	js.CopyBytesToJS(jsOverlay, overlay)

	return map[string]interface{}{
		"width":         img.Cols(),
		"height":        img.Rows(),
		"cells":         labels.NumRegions(),
		"edgeIntensity": intensity,
		"overlayPng":    jsOverlay,
	}
}

func errorResult(msg string) map[string]interface{} {
	return map[string]interface{}{"error": msg}
}
