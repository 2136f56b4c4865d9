package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lsai/internal/checkpoint"
)

func newInfoCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show checkpoint information for the configured run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := checkpoint.RunDir(opts.cfg.CheckpointDir, opts.cfg.RunName)
			printInfo(cmd.OutOrStdout(), checkpoint.Inspect(dir))
			return nil
		},
	}
}

func printInfo(out io.Writer, info checkpoint.Info) {
	st := newStyles(out)
	fmt.Fprintln(out, st.render(st.title, "LibreScript AI Checkpoint Information"))
	fmt.Fprintln(out, st.rule("=", 50))
	if !info.Exists {
		fmt.Fprintln(out, st.render(st.warn, "No checkpoint found"))
		fmt.Fprintln(out, "Next training will start from scratch")
		return
	}
	latest := "none"
	if info.LatestModel != nil {
		latest = *info.LatestModel
	}
	fmt.Fprintf(out, "%s %s\n", st.render(st.label, "Directory:"), info.Dir)
	fmt.Fprintf(out, "%s %s\n", st.render(st.label, "Latest model:"), latest)
	fmt.Fprintf(out, "%s %d\n", st.render(st.label, "Current step:"), info.CurrentStep)
	fmt.Fprintf(out, "%s %d\n", st.render(st.label, "Number of files:"), len(info.Files))
	fmt.Fprintln(out, st.render(st.label, "Available files:"))
	for _, f := range info.Files {
		fmt.Fprintf(out, "   - %s (%s)\n", f.Name, st.render(st.dim, f.HumanSize))
	}
	for _, w := range info.Warnings {
		fmt.Fprintf(out, "%s %s\n", st.render(st.warn, "Warning:"), w)
	}
	fmt.Fprintf(out, "\nNext training will resume from step %d\n", info.CurrentStep)
}
