// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neosun100/notebookLM2PPT/internal/pagerange"
	"github.com/neosun100/notebookLM2PPT/internal/pdftest"
	"github.com/neosun100/notebookLM2PPT/internal/raster"
	"github.com/neosun100/notebookLM2PPT/pkg/types"
)

// pageFromPath recovers the 1-based source page from a job's temp path
// ("page_0003.pdf" -> 3).
func pageFromPath(path string) int {
	digits := strings.TrimPrefix(filepath.Base(path), "page_")[:4]
	n, _ := strconv.Atoi(digits)
	return n
}

// fakeVectorizer writes a marker SVG naming the source page. Delay lets
// tests force completion order to diverge from page order; failPages makes
// individual pages fail.
type fakeVectorizer struct {
	delay     func(page int) time.Duration
	failPages map[int]bool
}

func (f *fakeVectorizer) Vectorize(_ context.Context, pdfPath, outSVG string, _ int) error {
	page := pageFromPath(pdfPath)
	if f.delay != nil {
		time.Sleep(f.delay(page))
	}
	if f.failPages[page] {
		return errors.New("pdf2svg exited 1")
	}
	return os.WriteFile(outSVG, fmt.Appendf(nil, "svg-%d", page), 0o644)
}

// fakeTranscoder turns the marker SVG into a marker image.
type fakeTranscoder struct {
	failPages map[int]bool
}

func (f *fakeTranscoder) Name() string { return "fake" }
func (f *fakeTranscoder) Ext() string  { return "png" }

func (f *fakeTranscoder) Transcode(_ context.Context, svgPath, outPath string) error {
	if f.failPages[pageFromPath(svgPath)] {
		return errors.New("transcoder exited 1")
	}
	data, err := os.ReadFile(svgPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, bytes.Replace(data, []byte("svg"), []byte("img"), 1), 0o644)
}

// stallVectorizer hangs on the listed pages the way a wedged external tool
// would, giving up only when its deadline expires; other pages convert
// normally.
type stallVectorizer struct {
	fakeVectorizer
	stallPages map[int]bool
	timeout    time.Duration
}

func (s *stallVectorizer) Vectorize(ctx context.Context, pdfPath, outSVG string, page int) error {
	if s.stallPages[pageFromPath(pdfPath)] {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		<-ctx.Done()
		return fmt.Errorf("pdf2svg timed out: %w", ctx.Err())
	}
	return s.fakeVectorizer.Vectorize(ctx, pdfPath, outSVG, page)
}

func newTestPipeline(tempRoot string, vec vectorizer, tr *fakeTranscoder) (*Pipeline, *bytes.Buffer) {
	if vec == nil {
		vec = &fakeVectorizer{}
	}
	if tr == nil {
		tr = &fakeTranscoder{}
	}
	cfg := types.DefaultPipelineConfig()
	cfg.TempRoot = tempRoot
	out := &bytes.Buffer{}
	return &Pipeline{
		cfg:        cfg,
		vectorizer: vec,
		transcoder: tr,
		out:        out,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, out
}

// slideImages reads a deck and returns the embedded media contents in
// slide order.
func slideImages(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	media := map[string]string{}
	count := 0
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/media/") {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		media[f.Name] = string(data)
		count++
	}

	images := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		images = append(images, media[fmt.Sprintf("ppt/media/image%d.png", i)])
	}
	return images
}

func readPart(t *testing.T, path, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("part %s not found in %s", name, path)
	return ""
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 3, Title: "Weekly Notes", Author: "NotebookLM"})
	out := filepath.Join(dir, "out.pptx")

	p, status := newTestPipeline(t.TempDir(), nil, nil)
	result, err := p.Convert(context.Background(), src, out, types.ConvertOptions{Parallel: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Empty(t, result.Skipped)
	assert.False(t, result.HasFailures())
	assert.Equal(t, []string{"img-1", "img-2", "img-3"}, slideImages(t, out))
	assert.Contains(t, status.String(), "converted: page 1")

	// Source metadata carries over to the deck.
	core := readPart(t, out, "docProps/core.xml")
	assert.Contains(t, core, "Weekly Notes")
	assert.Contains(t, core, "NotebookLM")
}

func TestConvertPageSelection(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 5})
	out := filepath.Join(dir, "out.pptx")

	p, _ := newTestPipeline(t.TempDir(), nil, nil)
	result, err := p.Convert(context.Background(), src, out, types.ConvertOptions{Pages: "4,2", Parallel: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, []string{"img-2", "img-4"}, slideImages(t, out))
}

func TestConvertOrderIndependentOfCompletion(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 4})
	out := filepath.Join(dir, "out.pptx")

	// Later pages finish first: page 4 is fastest, page 1 slowest.
	vec := &fakeVectorizer{
		delay: func(page int) time.Duration {
			return time.Duration(5-page) * 30 * time.Millisecond
		},
	}

	p, _ := newTestPipeline(t.TempDir(), vec, nil)
	result, err := p.Convert(context.Background(), src, out, types.ConvertOptions{Parallel: 4})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Processed)
	assert.Equal(t, []string{"img-1", "img-2", "img-3", "img-4"}, slideImages(t, out))
}

func TestConvertPartialFailure(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 3})
	out := filepath.Join(dir, "out.pptx")

	vec := &fakeVectorizer{failPages: map[int]bool{2: true}}

	p, status := newTestPipeline(t.TempDir(), vec, nil)
	result, err := p.Convert(context.Background(), src, out, types.ConvertOptions{Parallel: 2})
	require.NoError(t, err, "one failed page must not fail the run")

	assert.Equal(t, 2, result.Processed)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 1, result.Skipped[0].Page)

	var pageErr *PageConversionError
	require.ErrorAs(t, result.Skipped[0].Err, &pageErr)
	assert.Equal(t, 1, pageErr.Page)

	// The deck holds the surviving pages in order.
	assert.Equal(t, []string{"img-1", "img-3"}, slideImages(t, out))
	assert.Contains(t, status.String(), "failed:  page 2")
}

func TestConvertAllPagesFail(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 2})
	out := filepath.Join(dir, "out.pptx")

	tr := &fakeTranscoder{failPages: map[int]bool{1: true, 2: true}}

	p, _ := newTestPipeline(t.TempDir(), nil, tr)
	_, err := p.Convert(context.Background(), src, out, types.ConvertOptions{Parallel: 2})
	require.ErrorIs(t, err, ErrConversionFailed)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no deck may be written when every page fails")
}

func TestConvertOutputExists(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 1})
	out := filepath.Join(dir, "out.pptx")
	require.NoError(t, os.WriteFile(out, []byte("old deck"), 0o644))

	tempRoot := t.TempDir()
	p, _ := newTestPipeline(tempRoot, nil, nil)

	_, err := p.Convert(context.Background(), src, out, types.ConvertOptions{})
	require.ErrorIs(t, err, ErrOutputExists)

	// Failing the precondition must not create any temp state.
	entries, readErr := os.ReadDir(tempRoot)
	require.NoError(t, readErr)
	assert.Empty(t, entries)

	// The old file is untouched.
	data, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	assert.Equal(t, "old deck", string(data))

	// With Overwrite set the same call succeeds.
	result, err := p.Convert(context.Background(), src, out, types.ConvertOptions{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
}

func TestConvertCorruptSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "garbage.pdf")
	require.NoError(t, os.WriteFile(src, []byte("this is not a pdf"), 0o644))

	p, _ := newTestPipeline(t.TempDir(), nil, nil)
	_, err := p.Convert(context.Background(), src, filepath.Join(dir, "out.pptx"), types.ConvertOptions{})
	assert.ErrorIs(t, err, ErrCorruptDocument)
}

func TestConvertEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "empty.pdf", pdftest.Doc{Empty: true})
	out := filepath.Join(dir, "out.pptx")

	p, _ := newTestPipeline(t.TempDir(), nil, nil)
	_, err := p.Convert(context.Background(), src, out, types.ConvertOptions{})
	require.ErrorIs(t, err, raster.ErrEmptyDocument)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvertTimedOutPageSkipped(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 3})
	out := filepath.Join(dir, "out.pptx")

	vec := &stallVectorizer{stallPages: map[int]bool{2: true}, timeout: 20 * time.Millisecond}

	p, status := newTestPipeline(t.TempDir(), vec, nil)
	result, err := p.Convert(context.Background(), src, out, types.ConvertOptions{Parallel: 3})
	require.NoError(t, err, "a timed-out page must not fail the run")

	assert.Equal(t, 2, result.Processed)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 1, result.Skipped[0].Page)
	assert.ErrorIs(t, result.Skipped[0].Err, context.DeadlineExceeded)

	// The pool drains and the surviving pages land in order.
	assert.Equal(t, []string{"img-1", "img-3"}, slideImages(t, out))
	assert.Contains(t, status.String(), "failed:  page 2")
}

func TestConvertInvalidPageExpression(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 3})

	p, _ := newTestPipeline(t.TempDir(), nil, nil)
	_, err := p.Convert(context.Background(), src, filepath.Join(dir, "out.pptx"),
		types.ConvertOptions{Pages: "0-2"})
	assert.ErrorIs(t, err, pagerange.ErrInvalidRange)
}

func TestConvertTempCleanup(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 2})

	t.Run("after success", func(t *testing.T) {
		tempRoot := t.TempDir()
		p, _ := newTestPipeline(tempRoot, nil, nil)
		_, err := p.Convert(context.Background(), src, filepath.Join(dir, "a.pptx"), types.ConvertOptions{})
		require.NoError(t, err)
		assertEmptyDir(t, tempRoot)
	})

	t.Run("after total failure", func(t *testing.T) {
		tempRoot := t.TempDir()
		vec := &fakeVectorizer{failPages: map[int]bool{1: true, 2: true}}
		p, _ := newTestPipeline(tempRoot, vec, nil)
		_, err := p.Convert(context.Background(), src, filepath.Join(dir, "b.pptx"), types.ConvertOptions{})
		require.ErrorIs(t, err, ErrConversionFailed)
		assertEmptyDir(t, tempRoot)
	})

	t.Run("keep temp", func(t *testing.T) {
		tempRoot := t.TempDir()
		p, _ := newTestPipeline(tempRoot, nil, nil)
		_, err := p.Convert(context.Background(), src, filepath.Join(dir, "c.pptx"),
			types.ConvertOptions{KeepTemp: true})
		require.NoError(t, err)

		entries, readErr := os.ReadDir(tempRoot)
		require.NoError(t, readErr)
		require.Len(t, entries, 1)
		assert.True(t, strings.HasPrefix(entries[0].Name(), "pdf2ppt-"))
	})
}

func TestConvertCanceled(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 3})
	out := filepath.Join(dir, "out.pptx")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tempRoot := t.TempDir()
	p, _ := newTestPipeline(tempRoot, nil, nil)
	_, err := p.Convert(ctx, src, out, types.ConvertOptions{Parallel: 2})
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
	assertEmptyDir(t, tempRoot)
}

func TestConvertWithWatermarkRemoval(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "src.pdf", pdftest.Doc{Pages: 2})
	out := filepath.Join(dir, "out.pptx")

	p, _ := newTestPipeline(t.TempDir(), nil, nil)
	result, err := p.Convert(context.Background(), src, out,
		types.ConvertOptions{RemoveWatermark: true, Parallel: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, []string{"img-1", "img-2"}, slideImages(t, out))
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "working directories must not survive the run")
}
