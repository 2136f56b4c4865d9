package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"lsai/internal/checkpoint"
	"lsai/internal/config"
	"lsai/internal/generation"
	"lsai/internal/manager"
)

// demoPrompts are completed after training to show what the model learned.
var demoPrompts = []string{
	"# Question: How to implement a function in Python",
	"# Question: JavaScript async/await example",
	"# Question: SQL query to join tables",
	"# Content: I need help with React components",
}

type trainOptions struct {
	fresh        bool
	generateOnly bool
	skipDataset  bool
	noSamples    bool
	steps        int
}

func newTrainCommand(opts *GlobalOptions) *cobra.Command {
	o := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Build the dataset and fine-tune the model",
		Long: `Fetch the LibreScript corpus, fine-tune the base model and print sample
completions. Training resumes from the latest checkpoint unless --fresh is
given or no checkpoint exists.`,
		Example: `  lsai train
  lsai train --fresh --steps 2000
  lsai train --generate-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("steps") {
				o.steps = opts.cfg.TrainingSteps
			}
			return runTrain(cmd.Context(), cmd.OutOrStdout(), opts.cfg, *o)
		},
	}
	cmd.Flags().BoolVar(&o.fresh, "fresh", false, "restart training from scratch, ignoring checkpoints")
	cmd.Flags().BoolVar(&o.generateOnly, "generate-only", false, "skip training and only generate samples")
	cmd.Flags().BoolVar(&o.skipDataset, "skip-dataset", false, "train on the existing dataset file without fetching posts")
	cmd.Flags().BoolVar(&o.noSamples, "no-samples", false, "do not generate samples after training")
	cmd.Flags().IntVar(&o.steps, "steps", manager.DefaultTrainingSteps, "number of training steps")
	return cmd
}

func runTrain(ctx context.Context, out io.Writer, cfg config.Config, o trainOptions) error {
	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if !o.generateOnly {
		if !o.skipDataset {
			if _, err := prepareDataset(ctx, out, cfg); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, "Starting fine-tuning...")
		describeRestore(out, o.fresh, checkpoint.Inspect(svc.RunDir()))
		if _, err := svc.Train(ctx, manager.TrainOptions{
			Dataset: cfg.DatasetFile,
			Steps:   o.steps,
			Fresh:   o.fresh,
		}); err != nil {
			return err
		}
		fmt.Fprintln(out, "Training completed.")
	}
	if o.noSamples {
		return nil
	}

	if err := svc.Load(ctx); err != nil {
		return err
	}
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(out, "\n%s\nLibreScript-based code generation:\n%s\n", rule, rule)
	for _, p := range demoPrompts {
		fmt.Fprintf(out, "\nPrompt: %s\n%s\n", p, strings.Repeat("-", 40))
		text, err := svc.Complete(ctx, p, generation.DefaultLength, generation.DefaultTemperature)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
		fmt.Fprintln(out, strings.Repeat("-", 40))
	}
	return nil
}

func describeRestore(out io.Writer, fresh bool, info checkpoint.Info) {
	switch checkpoint.Resolve(fresh, info) {
	case checkpoint.RestoreLatest:
		latest := "none"
		if info.LatestModel != nil {
			latest = *info.LatestModel
		}
		fmt.Fprintf(out, "Checkpoints found in %s\n", info.Dir)
		fmt.Fprintf(out, "Latest model: %s\n", latest)
		fmt.Fprintf(out, "Current step: %d\n", info.CurrentStep)
		fmt.Fprintf(out, "Available files: %d files\n", len(info.Files))
		fmt.Fprintln(out, "Resuming training from last checkpoint...")
	default:
		if fresh {
			fmt.Fprintln(out, "--fresh mode enabled, starting from scratch...")
		} else {
			fmt.Fprintln(out, "No checkpoint found, starting from scratch...")
		}
	}
}
