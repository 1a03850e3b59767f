// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf2ppt CLI. It converts a
// NotebookLM PDF export into a PowerPoint deck, optionally covering the
// fixed bottom-right watermark on every page.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd runs the conversion directly; subcommands cover version and
// environment checks.
var rootCmd = &cobra.Command{
	Use:   "pdf2ppt input.pdf [output.pptx]",
	Short: "Convert NotebookLM PDF exports to PowerPoint decks",
	Long: `pdf2ppt converts a paginated PDF (such as a NotebookLM export) into a
PowerPoint deck with one full-bleed slide per page. Pages are vectorized
through pdf2svg and transcoded via inkscape or rsvg-convert, so slides stay
sharp at presentation resolution. The fixed bottom-right NotebookLM
watermark can be covered with a background-matched patch before conversion.`,
	Args:         cobra.RangeArgs(1, 2),
	SilenceUsage: true,
	RunE:         runConvert,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf2ppt.yaml or ~/.config/pdf2ppt/config.yaml)")

	rootCmd.Flags().Bool("remove-watermark", false, "cover the NotebookLM watermark before conversion")
	rootCmd.Flags().Bool("rw", false, "shorthand for --remove-watermark")
	rootCmd.Flags().StringP("pages", "p", "", "page selection, e.g. \"1-5,8\" (default: all pages)")
	rootCmd.Flags().IntP("parallel", "j", 4, "number of pages converted in parallel")
	rootCmd.Flags().BoolP("force", "f", false, "overwrite an existing output file")
	rootCmd.Flags().Bool("verbose", false, "enable debug logging")
	rootCmd.Flags().Bool("no-clean", false, "keep the temporary working directory")

	_ = rootCmd.Flags().MarkHidden("rw")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf2ppt")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf2ppt"))
		}
	}

	viper.SetEnvPrefix("PDF2PPT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
