// Package cli implements the circle-ocr command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/circle-label-ocr/internal/config"
	"github.com/ironsheep/circle-label-ocr/internal/logger"
)

// BuildInfo identifies the binary. It is set by ldflags in main.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// NewRootCommand builds the command tree. Flag defaults come from cfg, so
// environment settings apply unless a flag overrides them.
func NewRootCommand(info BuildInfo, cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "circle-ocr",
		Short: "Detect circular labels in photographs and read their text",
		Long: `circle-ocr finds circular labels in photographs, reads the text inside
each one with OCR, and lists the labels in reading order: rows top to
bottom, labels left to right within a row.

For every image it writes an annotated copy and a CSV of the labels. A
directory run also writes a combined CSV and Excel workbook, and can copy
the results into PostgreSQL.`,
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCommand(cfg))
	root.AddCommand(newVersionCommand(info))
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(info BuildInfo, cfg *config.Config) int {
	log := logger.WithComponent("cmd")

	if err := NewRootCommand(info, cfg).Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "circle-ocr %s\n", info.Version)
			fmt.Fprintf(out, "  Build time: %s\n", info.BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", info.GitCommit)
		},
	}
}
