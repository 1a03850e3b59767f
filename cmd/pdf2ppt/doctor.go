package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neosun100/notebookLM2PPT/internal/tools"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the required external tools are installed",
	Long: `Doctor probes the external converters pdf2ppt shells out to. pdf2svg is
always required; one of inkscape or rsvg-convert must be present depending
on the configured transcoder backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses := tools.Doctor()
		missing := 0
		for _, s := range statuses {
			if s.Found {
				fmt.Printf("ok:      %-12s %s\n", s.Name, s.Path)
			} else {
				fmt.Printf("missing: %s\n", s.Name)
				missing++
			}
		}
		if missing == len(statuses) {
			return fmt.Errorf("no external converters found")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
