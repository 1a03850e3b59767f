// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package raster reads page pixels and geometry from an open PDF document.
// It renders pages through go-fitz (MuPDF) and exposes the two read-only
// views the pipeline needs: background color samples above the watermark
// box, and the first page's dimensions for slide sizing.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/gen2brain/go-fitz"
)

// ErrEmptyDocument reports a document with no pages.
var ErrEmptyDocument = errors.New("document has no pages")

const (
	// renderDPI is the rasterization resolution for color sampling.
	// 144 DPI = 2x page points, enough to resolve thin gradients.
	renderDPI = 144

	// sampleStride is the horizontal distance between color samples,
	// in page points.
	sampleStride = 2.0

	// emuPerPoint converts PDF points to OOXML English Metric Units.
	emuPerPoint = 12700
)

// Region is a rectangle in page coordinate space (points, origin top-left).
type Region struct {
	X, Y, W, H float64
}

// Clip intersects the region with a page of the given size. The result may
// be empty.
func (r Region) Clip(pageW, pageH float64) Region {
	x1 := max(r.X, 0)
	y1 := max(r.Y, 0)
	x2 := min(r.X+r.W, pageW)
	y2 := min(r.Y+r.H, pageH)
	if x2 <= x1 || y2 <= y1 {
		return Region{}
	}
	return Region{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Empty reports whether the region has zero area.
func (r Region) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// ColorSample is one background color reading, taken at OffsetX points from
// the region's left edge.
type ColorSample struct {
	OffsetX float64
	Color   color.RGBA
}

// Sample reads background colors along the row just above region, at a
// fixed stride across its width. When the row lies outside the page (the
// region starts at the very top), it falls back to a single sample holding
// the page's average color, so callers always get at least one entry.
func Sample(doc *fitz.Document, pageIndex int, region Region, gap float64) ([]ColorSample, error) {
	img, err := doc.ImageDPI(pageIndex, renderDPI)
	if err != nil {
		return nil, fmt.Errorf("rendering page %d: %w", pageIndex+1, err)
	}

	const scale = renderDPI / 72.0
	bounds := img.Bounds()

	row := int((region.Y - gap) * scale)
	if row < bounds.Min.Y || row >= bounds.Max.Y {
		return []ColorSample{{OffsetX: 0, Color: averageColor(img)}}, nil
	}

	var samples []ColorSample
	for off := 0.0; off < region.W; off += sampleStride {
		x := int((region.X + off) * scale)
		if x < bounds.Min.X || x >= bounds.Max.X {
			continue
		}
		r, g, b, _ := img.At(x, row).RGBA()
		samples = append(samples, ColorSample{
			OffsetX: off,
			Color:   color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255},
		})
	}

	if len(samples) == 0 {
		samples = []ColorSample{{OffsetX: 0, Color: averageColor(img)}}
	}
	return samples, nil
}

// averageColor computes the mean RGB over an image, sampling every 8th
// pixel in both directions to keep it cheap on large renders.
func averageColor(img image.Image) color.RGBA {
	bounds := img.Bounds()
	var rSum, gSum, bSum, n uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 8 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 8 {
			r, g, b, _ := img.At(x, y).RGBA()
			rSum += uint64(r >> 8)
			gSum += uint64(g >> 8)
			bSum += uint64(b >> 8)
			n++
		}
	}
	if n == 0 {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.RGBA{
		R: uint8(rSum / n),
		G: uint8(gSum / n),
		B: uint8(bSum / n),
		A: 255,
	}
}

// SlideGeometry is the slide size applied to every slide in the output
// deck, derived once from the first page.
type SlideGeometry struct {
	WidthEMU    int64
	HeightEMU   int64
	AspectRatio float64
}

// DetectGeometry derives the deck's slide geometry from the first page.
func DetectGeometry(doc *fitz.Document) (SlideGeometry, error) {
	if doc.NumPage() == 0 {
		return SlideGeometry{}, ErrEmptyDocument
	}

	w, h, err := PageSize(doc, 0)
	if err != nil {
		return SlideGeometry{}, err
	}
	if w <= 0 || h <= 0 {
		return SlideGeometry{}, fmt.Errorf("first page has degenerate size %gx%g", w, h)
	}

	return SlideGeometry{
		WidthEMU:    int64(w * emuPerPoint),
		HeightEMU:   int64(h * emuPerPoint),
		AspectRatio: w / h,
	}, nil
}

// PageSize returns a page's width and height in points.
func PageSize(doc *fitz.Document, pageIndex int) (w, h float64, err error) {
	bound, err := doc.Bound(pageIndex)
	if err != nil {
		return 0, 0, fmt.Errorf("reading page %d bounds: %w", pageIndex+1, err)
	}
	return float64(bound.Dx()), float64(bound.Dy()), nil
}
