package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neosun100/notebookLM2PPT/internal/pipeline"
	"github.com/neosun100/notebookLM2PPT/pkg/types"
)

// pipelineConfig builds the pipeline configuration from defaults overlaid
// with config-file and environment values.
func pipelineConfig() types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()

	if v := viper.GetString("transcoder"); v != "" {
		cfg.Tools.Transcoder = types.TranscodeBackend(v)
	}
	if v := viper.GetDuration("tool_timeout"); v != 0 {
		cfg.Tools.Timeout = v
	}
	if v := viper.GetString("temp_root"); v != "" {
		cfg.TempRoot = v
	}
	if v := viper.GetFloat64("watermark.box_width"); v != 0 {
		cfg.Watermark.BoxWidth = v
	}
	if v := viper.GetFloat64("watermark.box_height"); v != 0 {
		cfg.Watermark.BoxHeight = v
	}
	return cfg
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	output := strings.TrimSuffix(input, ".pdf") + ".pptx"
	if len(args) == 2 {
		output = args[1]
	}

	removeWatermark, _ := cmd.Flags().GetBool("remove-watermark")
	rw, _ := cmd.Flags().GetBool("rw")
	pages, _ := cmd.Flags().GetString("pages")
	parallel, _ := cmd.Flags().GetInt("parallel")
	force, _ := cmd.Flags().GetBool("force")
	verbose, _ := cmd.Flags().GetBool("verbose")
	noClean, _ := cmd.Flags().GetBool("no-clean")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	p, err := pipeline.New(pipelineConfig(), os.Stdout, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := types.ConvertOptions{
		RemoveWatermark: removeWatermark || rw,
		Pages:           pages,
		Parallel:        parallel,
		Overwrite:       force,
		KeepTemp:        noClean,
	}

	result, err := p.Convert(ctx, input, output, opts)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		fmt.Fprintf(os.Stderr, "warning: %d page(s) skipped\n", len(result.Skipped))
	}
	return nil
}
