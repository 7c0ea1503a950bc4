package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/grounding-cli/internal/citation"
	"github.com/sells-group/grounding-cli/internal/grounding"
)

var (
	reportText      string
	reportCitations []string
	reportMetadata  []string
	reportOut       string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Append a resolved reference list to a finished report",
	Long: "Collects citations from one or more citation files and grounding metadata files, deduplicates them, " +
		"orders them to match any [n] markers already in the report, resolves their redirects and appends the reference list.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rp := citation.ReporterFromConfig(cfg, zap.L())
		return runReport(cmd.Context(), rp, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runReport(ctx context.Context, rp *citation.Reporter, stdin io.Reader, stdout io.Writer) error {
	text, err := readInput(reportText, stdin)
	if err != nil {
		return err
	}

	m := citation.New()
	for _, path := range reportCitations {
		raw, err := readInput(path, stdin)
		if err != nil {
			return err
		}
		round, err := citation.Decode(raw, grounding.FormatFromPath(path))
		if err != nil {
			return err
		}
		m = m.Merge(round)
	}
	for _, path := range reportMetadata {
		raw, err := readInput(path, stdin)
		if err != nil {
			return err
		}
		md, err := grounding.DecodeMetadata(raw, grounding.FormatFromPath(path))
		if err != nil {
			return err
		}
		m = m.Merge(citation.FromGrounding(md, zap.L()))
	}

	out, err := rp.AssembleReport(ctx, m, string(text))
	if err != nil {
		return err
	}
	return writeOutput(reportOut, stdout, out)
}

func init() {
	reportCmd.Flags().StringVar(&reportText, "text", "", "report file (- for stdin)")
	reportCmd.Flags().StringSliceVar(&reportCitations, "citations", nil, "citation list files, one per research round (.json, .yaml)")
	reportCmd.Flags().StringSliceVar(&reportMetadata, "metadata", nil, "grounding metadata files to extract citations from")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output file (default stdout)")
	_ = reportCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(reportCmd)
}
