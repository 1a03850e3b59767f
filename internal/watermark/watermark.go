// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watermark covers the fixed bottom-right NotebookLM watermark box
// with a background-matched patch.
//
// The cover is a heuristic, not reconstruction: background colors are
// sampled along the row just above the box, the gap between neighboring
// samples is bridged by linear interpolation, and the box is repainted
// column by column with the interpolated gradient. On uniform backgrounds
// this collapses to a flat fill; on gradients it blends in at presentation
// resolution.
package watermark

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/neosun100/notebookLM2PPT/internal/raster"
	"github.com/neosun100/notebookLM2PPT/pkg/types"
)

// RegionFor anchors the watermark box to the bottom-right corner of a page
// and clips it to the page bounds. The result may be empty for degenerate
// pages; callers treat an empty region as "nothing to cover".
func RegionFor(pageW, pageH float64, cfg types.WatermarkConfig) raster.Region {
	r := raster.Region{
		X: pageW - cfg.MarginRight - cfg.BoxWidth,
		Y: pageH - cfg.MarginBottom - cfg.BoxHeight,
		W: cfg.BoxWidth,
		H: cfg.BoxHeight,
	}
	return r.Clip(pageW, pageH)
}

// Remove covers the watermark box on a single-page PDF in place. The page
// is rendered to sample background colors, then a gradient patch is stamped
// over the box. An empty region after clipping is a no-op, never an error.
// Re-running on an already covered page recomputes the same gradient, so
// repeated application does not degrade the page.
func Remove(pagePDF string, cfg types.WatermarkConfig) error {
	doc, err := fitz.New(pagePDF)
	if err != nil {
		return fmt.Errorf("opening page file: %w", err)
	}

	pageW, pageH, err := raster.PageSize(doc, 0)
	if err != nil {
		doc.Close()
		return err
	}

	region := RegionFor(pageW, pageH, cfg)
	if region.Empty() {
		doc.Close()
		return nil
	}

	samples, err := raster.Sample(doc, 0, region, cfg.SampleGap)
	doc.Close()
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		// Sampler guarantees a fallback sample; treat this as "skip".
		return nil
	}

	patch := Patch(samples, region)

	patchPath := pagePDF + ".cover.png"
	if err := writePNG(patchPath, patch); err != nil {
		return err
	}
	defer os.Remove(patchPath)

	// Stamp at the region's exact position: the patch is rendered at
	// 1px/pt, so an absolute scale of 1 maps pixels back onto points.
	dx := -(pageW - (region.X + region.W))
	dy := pageH - (region.Y + region.H)
	desc := fmt.Sprintf("pos:br, off:%g %g, scalefactor:1 abs, rot:0, op:1", dx, dy)

	if err := api.AddImageWatermarksFile(pagePDF, "", nil, true, patchPath, desc, nil); err != nil {
		return fmt.Errorf("stamping cover patch: %w", err)
	}
	return nil
}

// Patch renders the cover image for a region at 1px per point. Each pixel
// column is a thin vertical rectangle filled with the color interpolated at
// its center, so the columns tile the region with no gaps.
func Patch(samples []raster.ColorSample, region raster.Region) *image.RGBA {
	w := int(region.W + 0.5)
	h := int(region.H + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		c := Interpolate(samples, float64(x)+0.5)
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Interpolate returns the background color at offset x points from the
// region's left edge: a linear blend of the two nearest samples, clamped to
// the outermost sample beyond the sampled span. A single sample yields a
// flat fill.
func Interpolate(samples []raster.ColorSample, x float64) color.RGBA {
	if len(samples) == 1 {
		return samples[0].Color
	}

	if x <= samples[0].OffsetX {
		return samples[0].Color
	}
	last := samples[len(samples)-1]
	if x >= last.OffsetX {
		return last.Color
	}

	for i := 1; i < len(samples); i++ {
		if x > samples[i].OffsetX {
			continue
		}
		a, b := samples[i-1], samples[i]
		t := (x - a.OffsetX) / (b.OffsetX - a.OffsetX)
		return color.RGBA{
			R: lerp(a.Color.R, b.Color.R, t),
			G: lerp(a.Color.G, b.Color.G, t),
			B: lerp(a.Color.B, b.Color.B, t),
			A: 255,
		}
	}
	return last.Color
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating cover patch: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding cover patch: %w", err)
	}
	return f.Close()
}
