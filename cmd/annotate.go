package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/grounding-cli/internal/grounding"
)

var (
	annotateText     string
	annotateMetadata string
	annotateOut      string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Insert inline citations from grounding metadata",
	Long:  "Reads a text file and its grounding metadata (JSON or YAML, bare or a full response with candidates), inserts a citation marker for each grounded span, and appends a reference list.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := grounding.FromConfig(cfg, zap.L())
		return runAnnotate(cmd.Context(), p, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runAnnotate(ctx context.Context, p *grounding.Processor, stdin io.Reader, stdout io.Writer) error {
	text, err := readInput(annotateText, stdin)
	if err != nil {
		return err
	}
	raw, err := readInput(annotateMetadata, stdin)
	if err != nil {
		return err
	}
	md, err := grounding.DecodeMetadata(raw, grounding.FormatFromPath(annotateMetadata))
	if err != nil {
		return err
	}

	out, err := p.Process(ctx, string(text), md)
	if err != nil {
		return err
	}
	return writeOutput(annotateOut, stdout, out)
}

func init() {
	annotateCmd.Flags().StringVar(&annotateText, "text", "", "text file to annotate (- for stdin)")
	annotateCmd.Flags().StringVar(&annotateMetadata, "metadata", "", "grounding metadata file (.json, .yaml)")
	annotateCmd.Flags().StringVar(&annotateOut, "out", "", "output file (default stdout)")
	_ = annotateCmd.MarkFlagRequired("text")
	_ = annotateCmd.MarkFlagRequired("metadata")
	rootCmd.AddCommand(annotateCmd)
}
