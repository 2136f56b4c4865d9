// Package cli implements the lsai command line: the HTTP server, training,
// checkpoint inspection, dataset export and the interactive prompt.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lsai/internal/config"
	"lsai/internal/engine"
	"lsai/internal/generation"
	"lsai/internal/httpapi"
	"lsai/internal/logging"
	"lsai/internal/manager"
)

const cliName = "lsai"

// GlobalOptions holds options that are common to all commands.
type GlobalOptions struct {
	// ConfigPath points at a .yaml, .json or .toml file. Empty means defaults.
	ConfigPath string
	// LogLevel overrides log.level from the config file.
	LogLevel string

	cfg      config.Config
	closeLog func()
}

// NewRootCommand creates the lsai command tree.
func NewRootCommand() *cobra.Command {
	opts := &GlobalOptions{}
	cmd := &cobra.Command{
		Use:   cliName,
		Short: "LibreScript AI: fine-tune and serve a GPT-2 code assistant",
		Long: `lsai builds a training corpus from the LibreScript Q&A site, fine-tunes a
GPT-2 model on it through an external engine and answers programming
questions over HTTP or from the terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.closeLog != nil {
				opts.closeLog()
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml, .json or .toml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config and LSAI_LOG_LEVEL)")

	cmd.AddCommand(
		newServeCommand(opts),
		newTrainCommand(opts),
		newInfoCommand(opts),
		newDatasetCommand(opts),
		newAskCommand(opts),
	)
	return cmd
}

func (o *GlobalOptions) init() error {
	cfg, err := config.Resolve(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		if _, err := logging.ParseLevel(o.LogLevel); err != nil {
			return err
		}
		cfg.Log.Level = o.LogLevel
	}
	l, closeLog, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return err
	}
	logging.Install(l)
	httpapi.SetLogger(l)
	o.cfg = cfg
	o.closeLog = closeLog
	return nil
}

// newService wires the configured engine into a model service.
func newService(cfg config.Config) (*manager.Service, error) {
	eng, err := engine.New(cfg.EngineConfig())
	if err != nil {
		return nil, err
	}
	rep, err := generation.ParseRepetition(cfg.Generation.Repetition)
	if err != nil {
		return nil, err
	}
	svc, err := manager.New(manager.Config{
		Engine:         eng,
		ModelName:      cfg.ModelName,
		RunName:        cfg.RunName,
		CheckpointDir:  cfg.CheckpointDir,
		ModelsDir:      cfg.ModelsDir,
		PromptTemplate: cfg.Generation.PromptTemplate,
		Repetition:     rep,
		MaxWait:        time.Duration(cfg.Generation.MaxWaitSeconds) * time.Second,
		Publisher:      manager.LogPublisher{},
	})
	if err != nil {
		return nil, fmt.Errorf("create model service: %w", err)
	}
	return svc, nil
}
