// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tools wraps the external converters the pipeline shells out to:
// pdf2svg for page vectorization and inkscape or rsvg-convert for SVG
// transcoding. Tool availability is checked up front so a missing binary
// fails the run before any page work starts.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/neosun100/notebookLM2PPT/pkg/types"
)

const (
	binPDF2SVG  = "pdf2svg"
	binInkscape = "inkscape"
	binRsvg     = "rsvg-convert"
)

// ErrMissing reports a required external tool absent from PATH.
var ErrMissing = errors.New("external tool not found")

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return wrapRunError(name, err, ctx.Err(), stderr.String())
	}
	return nil
}

// wrapRunError attaches the tool name and the most useful cause to a failed
// invocation. Only deadline expiry reads as a timeout; a canceled parent
// context (an interrupted run) passes through as cancellation.
func wrapRunError(name string, err, ctxErr error, stderr string) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out: %w", name, ctxErr)
	}
	if ctxErr != nil {
		return fmt.Errorf("%s: %w", name, ctxErr)
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s: %v: %s", name, err, msg)
	}
	return fmt.Errorf("%s: %w", name, err)
}

var defaultExec executor = &osExecutor{}

// Vectorizer turns one PDF page into an SVG file via pdf2svg.
type Vectorizer struct {
	exec    executor
	timeout time.Duration
}

// NewVectorizer returns a pdf2svg-backed vectorizer. Each invocation is
// bounded by timeout.
func NewVectorizer(timeout time.Duration) *Vectorizer {
	return &Vectorizer{exec: defaultExec, timeout: timeout}
}

// Vectorize renders page (1-based) of pdfPath into outSVG.
func (v *Vectorizer) Vectorize(ctx context.Context, pdfPath, outSVG string, page int) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	if err := v.exec.Run(ctx, binPDF2SVG, pdfPath, outSVG, strconv.Itoa(page)); err != nil {
		return fmt.Errorf("vectorizing page %d: %w", page, err)
	}
	return nil
}

// Transcoder converts a page SVG into an image file the deck can embed.
// Backends differ in binary and output format.
type Transcoder interface {
	// Name returns the backend binary name.
	Name() string

	// Ext returns the output file extension without the dot.
	Ext() string

	// Transcode converts svgPath into outPath.
	Transcode(ctx context.Context, svgPath, outPath string) error
}

// inkscape produces EMF, which keeps slides scalable.
type inkscape struct {
	exec    executor
	timeout time.Duration
}

func (i *inkscape) Name() string { return binInkscape }
func (i *inkscape) Ext() string  { return "emf" }

func (i *inkscape) Transcode(ctx context.Context, svgPath, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	if err := i.exec.Run(ctx, binInkscape, svgPath, "--export-filename="+outPath); err != nil {
		return fmt.Errorf("transcoding %s: %w", svgPath, err)
	}
	return nil
}

// rsvg produces PNG via rsvg-convert.
type rsvg struct {
	exec    executor
	timeout time.Duration
}

func (r *rsvg) Name() string { return binRsvg }
func (r *rsvg) Ext() string  { return "png" }

func (r *rsvg) Transcode(ctx context.Context, svgPath, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.exec.Run(ctx, binRsvg, "-f", "png", "-o", outPath, svgPath); err != nil {
		return fmt.Errorf("transcoding %s: %w", svgPath, err)
	}
	return nil
}

// NewTranscoder returns the transcoder for the configured backend.
func NewTranscoder(backend types.TranscodeBackend, timeout time.Duration) (Transcoder, error) {
	return newTranscoder(defaultExec, backend, timeout)
}

func newTranscoder(exec executor, backend types.TranscodeBackend, timeout time.Duration) (Transcoder, error) {
	switch backend {
	case types.BackendInkscape, "":
		return &inkscape{exec: exec, timeout: timeout}, nil
	case types.BackendRsvg:
		return &rsvg{exec: exec, timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unknown transcoder backend %q", backend)
	}
}

// Check verifies that pdf2svg and the selected transcoder binary are on
// PATH. It reports every missing tool, not just the first.
func Check(backend types.TranscodeBackend) error {
	return check(defaultExec, backend)
}

func check(exec executor, backend types.TranscodeBackend) error {
	required := []string{binPDF2SVG}
	switch backend {
	case types.BackendRsvg:
		required = append(required, binRsvg)
	default:
		required = append(required, binInkscape)
	}

	var missing []string
	for _, bin := range required {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Status describes one external tool's availability for the doctor command.
type Status struct {
	Name  string
	Path  string
	Found bool
}

// Doctor probes every known external tool.
func Doctor() []Status {
	return doctor(defaultExec)
}

func doctor(exec executor) []Status {
	statuses := make([]Status, 0, 3)
	for _, bin := range []string{binPDF2SVG, binInkscape, binRsvg} {
		path, err := exec.LookPath(bin)
		statuses = append(statuses, Status{Name: bin, Path: path, Found: err == nil})
	}
	return statuses
}
