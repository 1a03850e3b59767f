// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates PDF-to-deck conversion: page selection,
// optional watermark removal, fan-out to the external converters, and
// ordered assembly of the output deck.
//
// Each selected page becomes one job owning its own temp artifacts, so jobs
// run in parallel without shared mutable state. The source document and the
// slide geometry are read-only; the deck is assembled by the orchestrating
// goroutine only after every job has resolved, in ascending page order
// regardless of completion order.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/neosun100/notebookLM2PPT/internal/deck"
	"github.com/neosun100/notebookLM2PPT/internal/pagerange"
	"github.com/neosun100/notebookLM2PPT/internal/raster"
	"github.com/neosun100/notebookLM2PPT/internal/tools"
	"github.com/neosun100/notebookLM2PPT/internal/watermark"
	"github.com/neosun100/notebookLM2PPT/pkg/types"
)

// vectorizer turns one PDF page into an SVG file.
type vectorizer interface {
	Vectorize(ctx context.Context, pdfPath, outSVG string, page int) error
}

// Pipeline converts paginated PDF documents into presentation decks.
type Pipeline struct {
	cfg        types.PipelineConfig
	vectorizer vectorizer
	transcoder tools.Transcoder
	out        io.Writer
	log        *slog.Logger
}

// New builds a pipeline from configuration. It verifies that the required
// external tools are on PATH, so a missing converter fails here, before any
// document is touched.
func New(cfg types.PipelineConfig, out io.Writer, log *slog.Logger) (*Pipeline, error) {
	if err := tools.Check(cfg.Tools.Transcoder); err != nil {
		return nil, err
	}
	transcoder, err := tools.NewTranscoder(cfg.Tools.Transcoder, cfg.Tools.Timeout)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:        cfg,
		vectorizer: tools.NewVectorizer(cfg.Tools.Timeout),
		transcoder: transcoder,
		out:        out,
		log:        log,
	}, nil
}

// SkippedPage records one page that failed conversion and was left out of
// the deck.
type SkippedPage struct {
	Page int // 0-based source page index
	Err  error
}

// Result summarizes a conversion run.
type Result struct {
	Output    string
	Processed int
	Skipped   []SkippedPage
	Elapsed   time.Duration
}

// HasFailures reports whether any pages were skipped.
func (r *Result) HasFailures() bool {
	return len(r.Skipped) > 0
}

// job is the per-page unit of work. Temp paths are unique per job; no two
// jobs write to the same file.
type job struct {
	pageIndex int // 0-based source page
	slot      int // position in the selection order
	pagePDF   string
	svgPath   string
	imgPath   string
}

// Convert turns sourcePath into a deck at outputPath. Per-page failures are
// recorded in the result and skipped; the run only fails as a whole when a
// precondition is violated, the run is canceled, or every page fails.
func (p *Pipeline) Convert(ctx context.Context, sourcePath, outputPath string, opts types.ConvertOptions) (*Result, error) {
	start := time.Now()
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}

	if !opts.Overwrite {
		if _, err := os.Stat(outputPath); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, outputPath)
		}
	}

	doc, err := fitz.New(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, sourcePath, err)
	}
	defer doc.Close()

	geom, err := raster.DetectGeometry(doc)
	if err != nil {
		return nil, err
	}
	p.log.Debug("detected slide geometry",
		"width_emu", geom.WidthEMU, "height_emu", geom.HeightEMU, "aspect", geom.AspectRatio)

	pages, err := pagerange.Parse(opts.Pages, doc.NumPage())
	if err != nil {
		return nil, err
	}

	meta := doc.Metadata()

	tmpDir, err := os.MkdirTemp(p.cfg.TempRoot, "pdf2ppt-*")
	if err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}
	if opts.KeepTemp {
		fmt.Fprintf(p.out, "keeping working directory: %s\n", tmpDir)
	} else {
		defer os.RemoveAll(tmpDir)
	}

	jobs := buildJobs(pages, tmpDir, p.transcoder.Ext())
	failures := make([]error, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(opts.Parallel)
	for i := range jobs {
		jb := jobs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[jb.slot] = err
				return nil
			}
			failures[jb.slot] = p.runJob(ctx, sourcePath, jb, opts.RemoveWatermark)
			return nil
		})
	}
	_ = g.Wait() // workers record failures per slot, never abort the group

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conversion canceled: %w", err)
	}

	// Deck assembly happens here only, in slot order: completion order of
	// the workers never leaks into slide order.
	d := deck.New(geom)
	d.SetCoreProperties(meta["title"], meta["author"])

	result := &Result{Output: outputPath}
	for i, jb := range jobs {
		err := failures[i]
		if err == nil {
			err = d.AddSlide(jb.imgPath)
		}
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedPage{Page: jb.pageIndex, Err: err})
			fmt.Fprintf(p.out, "failed:  page %d (%v)\n", jb.pageIndex+1, err)
			continue
		}
		result.Processed++
		fmt.Fprintf(p.out, "converted: page %d\n", jb.pageIndex+1)
	}

	if result.Processed == 0 {
		return nil, fmt.Errorf("%w (%d page(s) selected)", ErrConversionFailed, len(jobs))
	}

	if err := d.Save(outputPath); err != nil {
		return nil, err
	}

	result.Elapsed = time.Since(start)
	fmt.Fprintf(p.out, "\nWrote %s: %d slide(s), %d skipped, %s\n",
		outputPath, result.Processed, len(result.Skipped), result.Elapsed.Round(10*time.Millisecond))
	return result, nil
}

// buildJobs reserves one output slot and one set of temp paths per selected
// page, ahead of dispatch.
func buildJobs(pages []int, tmpDir, imgExt string) []job {
	jobs := make([]job, len(pages))
	for i, pg := range pages {
		base := filepath.Join(tmpDir, fmt.Sprintf("page_%04d", pg+1))
		jobs[i] = job{
			pageIndex: pg,
			slot:      i,
			pagePDF:   base + ".pdf",
			svgPath:   base + ".svg",
			imgPath:   base + "." + imgExt,
		}
	}
	return jobs
}

// runJob carries one page through extract, optional watermark cover,
// vectorize, and transcode. Any failure is wrapped as a PageConversionError
// for the result summary.
func (p *Pipeline) runJob(ctx context.Context, sourcePath string, jb job, removeWatermark bool) error {
	fail := func(stage string, err error) error {
		return &PageConversionError{Page: jb.pageIndex, Err: fmt.Errorf("%s: %w", stage, err)}
	}

	pageNo := strconv.Itoa(jb.pageIndex + 1)
	if err := api.TrimFile(sourcePath, jb.pagePDF, []string{pageNo}, nil); err != nil {
		return fail("extracting page", err)
	}
	p.log.Debug("page extracted", "page", jb.pageIndex+1, "file", jb.pagePDF)

	if removeWatermark {
		if err := watermark.Remove(jb.pagePDF, p.cfg.Watermark); err != nil {
			return fail("removing watermark", err)
		}
		p.log.Debug("watermark covered", "page", jb.pageIndex+1)
	}

	// The extracted file has exactly one page.
	if err := p.vectorizer.Vectorize(ctx, jb.pagePDF, jb.svgPath, 1); err != nil {
		return fail("vectorizing", err)
	}

	if err := p.transcoder.Transcode(ctx, jb.svgPath, jb.imgPath); err != nil {
		return fail("transcoding", err)
	}
	p.log.Debug("page converted", "page", jb.pageIndex+1, "image", jb.imgPath)

	return nil
}
