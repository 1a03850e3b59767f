// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// TranscodeBackend identifies the tool used to transcode page SVG into an
// image format the deck can embed.
type TranscodeBackend string

const (
	// BackendInkscape transcodes SVG to EMF via inkscape (default; keeps
	// slides scalable).
	BackendInkscape TranscodeBackend = "inkscape"

	// BackendRsvg transcodes SVG to PNG via rsvg-convert.
	BackendRsvg TranscodeBackend = "rsvg"
)

// ToolsConfig holds settings for external converter invocation.
type ToolsConfig struct {
	// Transcoder selects the SVG transcoding backend: inkscape or rsvg.
	Transcoder TranscodeBackend `json:"transcoder" yaml:"transcoder"`

	// Timeout bounds each external tool invocation (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// WatermarkConfig describes the fixed bottom-right box NotebookLM stamps on
// exported pages. All values are in page points.
type WatermarkConfig struct {
	// BoxWidth and BoxHeight are the cover box dimensions (default 110x25).
	BoxWidth  float64 `json:"box_width" yaml:"box_width"`
	BoxHeight float64 `json:"box_height" yaml:"box_height"`

	// MarginRight and MarginBottom offset the box from the page edges
	// (default 5 each).
	MarginRight  float64 `json:"margin_right" yaml:"margin_right"`
	MarginBottom float64 `json:"margin_bottom" yaml:"margin_bottom"`

	// SampleGap is the distance above the box at which background colors
	// are sampled (default 6).
	SampleGap float64 `json:"sample_gap" yaml:"sample_gap"`
}

// ConvertOptions are the per-run knobs of a conversion.
type ConvertOptions struct {
	// RemoveWatermark covers the NotebookLM watermark box before export.
	RemoveWatermark bool

	// Pages is a 1-based page selection expression ("1-5,7"); empty means
	// all pages.
	Pages string

	// Parallel is the worker pool size (>= 1).
	Parallel int

	// Overwrite allows replacing an existing output file.
	Overwrite bool

	// KeepTemp leaves the temporary working directory in place for
	// debugging.
	KeepTemp bool
}

// PipelineConfig groups the conversion pipeline configuration.
type PipelineConfig struct {
	Tools     ToolsConfig     `json:"tools" yaml:"tools"`
	Watermark WatermarkConfig `json:"watermark" yaml:"watermark"`

	// TempRoot is the parent directory for scoped working directories;
	// empty means the system default.
	TempRoot string `json:"temp_root" yaml:"temp_root"`
}

// DefaultPipelineConfig returns the configuration used when no config file
// or flags override it.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Tools: ToolsConfig{
			Transcoder: BackendInkscape,
			Timeout:    120 * time.Second,
		},
		Watermark: WatermarkConfig{
			BoxWidth:     110,
			BoxHeight:    25,
			MarginRight:  5,
			MarginBottom: 5,
			SampleGap:    6,
		},
	}
}
