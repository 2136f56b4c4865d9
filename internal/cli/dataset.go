package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"lsai/internal/config"
	"lsai/internal/corpus"
)

func newDatasetCommand(opts *GlobalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Fetch LibreScript posts and write the training dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if output != "" {
				cfg.DatasetFile = output
			}
			_, err := prepareDataset(cmd.Context(), cmd.OutOrStdout(), cfg)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "dataset file (defaults to dataset_file from config)")
	return cmd
}

func prepareDataset(ctx context.Context, out io.Writer, cfg config.Config) (corpus.Stats, error) {
	client := corpus.NewClient(cfg.Corpus.BaseURL, time.Duration(cfg.Corpus.TimeoutSeconds)*time.Second)
	fmt.Fprintln(out, "Fetching posts from LibreScript API...")
	stats, err := corpus.WriteDataset(ctx, client, cfg.DatasetFile)
	if err != nil {
		return stats, err
	}
	fmt.Fprintf(out, "Retrieved %d posts from LibreScript\n", stats.Posts)
	fmt.Fprintf(out, "Training data saved to %s\n", cfg.DatasetFile)
	fmt.Fprintf(out, "Dataset size: %d characters (%d tokens)\n", stats.Chars, stats.Tokens)
	return stats, nil
}
