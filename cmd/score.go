package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/grounding-cli/internal/grounding"
)

var scoreMetadata string

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Report the grounding score of a response",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScore(cfg.Grounding.ScoreThreshold, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runScore(threshold float64, stdin io.Reader, stdout io.Writer) error {
	raw, err := readInput(scoreMetadata, stdin)
	if err != nil {
		return err
	}
	md, err := grounding.DecodeMetadata(raw, grounding.FormatFromPath(scoreMetadata))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(grounding.Evaluate(md, threshold)); err != nil {
		return eris.Wrap(err, "encode score")
	}
	return nil
}

func init() {
	scoreCmd.Flags().StringVar(&scoreMetadata, "metadata", "", "grounding metadata file (.json, .yaml)")
	_ = scoreCmd.MarkFlagRequired("metadata")
	rootCmd.AddCommand(scoreCmd)
}
