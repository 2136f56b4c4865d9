package manager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"lsai/internal/checkpoint"
	"lsai/internal/common/fsutil"
	"lsai/internal/engine"
)

// Training defaults.
const (
	DefaultTrainingSteps = 1000
	DefaultPrintEvery    = 100
	DefaultSampleEvery   = 500
	DefaultSaveEvery     = 100
)

// TrainOptions configures one fine-tuning run.
type TrainOptions struct {
	Dataset     string
	Steps       int
	Fresh       bool
	PrintEvery  int
	SampleEvery int
	SaveEvery   int
}

// TrainReport summarizes a finished run.
type TrainReport struct {
	Restore    checkpoint.RestoreMode
	StartStep  int
	Checkpoint checkpoint.Info
}

// Train fine-tunes the configured run. It resumes from the latest
// checkpoint unless opts.Fresh is set or none exists. Train holds the load
// guard, so it never overlaps a load in the same process; a model that is
// already loaded keeps serving the previous weights until Reload.
func (s *Service) Train(ctx context.Context, opts TrainOptions) (TrainReport, error) {
	if opts.Dataset == "" {
		return TrainReport{}, errors.New("train: dataset path is required")
	}
	if !fsutil.PathExists(opts.Dataset) {
		return TrainReport{}, fmt.Errorf("train: dataset %s not found", opts.Dataset)
	}
	if opts.Steps <= 0 {
		opts.Steps = DefaultTrainingSteps
	}
	if opts.PrintEvery <= 0 {
		opts.PrintEvery = DefaultPrintEvery
	}
	if opts.SampleEvery <= 0 {
		opts.SampleEvery = DefaultSampleEvery
	}
	if opts.SaveEvery <= 0 {
		opts.SaveEvery = DefaultSaveEvery
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	info := checkpoint.Inspect(s.RunDir())
	mode := checkpoint.Resolve(opts.Fresh, info)
	report := TrainReport{Restore: mode}
	if mode == checkpoint.RestoreLatest {
		report.StartStep = info.CurrentStep
	}
	ev := log.Info().Str("run", s.cfg.RunName).Str("restore", string(mode)).Int("steps", opts.Steps)
	if info.LatestModel != nil {
		ev = ev.Str("latest_model", *info.LatestModel)
	}
	ev.Int("current_step", info.CurrentStep).Msg("starting fine-tuning")
	s.publish(EventTrainStart, map[string]any{"restore": string(mode), "steps": opts.Steps})

	if !fsutil.IsDir(filepath.Join(s.cfg.ModelsDir, s.cfg.ModelName)) {
		log.Info().Str("model", s.cfg.ModelName).Msg("downloading base model")
		if err := s.eng.DownloadBaseModel(ctx, s.cfg.ModelName); err != nil {
			return report, fmt.Errorf("download base model: %w", err)
		}
	}
	sess, err := s.eng.StartSession(ctx)
	if err != nil {
		return report, fmt.Errorf("start session: %w", err)
	}
	defer sess.Close()

	err = s.eng.FineTune(ctx, sess, engine.FineTuneRequest{
		Dataset:     opts.Dataset,
		ModelName:   s.cfg.ModelName,
		RunName:     s.cfg.RunName,
		Steps:       opts.Steps,
		Restore:     mode,
		PrintEvery:  opts.PrintEvery,
		SampleEvery: opts.SampleEvery,
		SaveEvery:   opts.SaveEvery,
	})
	if err != nil {
		return report, fmt.Errorf("fine-tune: %w", err)
	}
	report.Checkpoint = checkpoint.Inspect(s.RunDir())
	log.Info().Str("run", s.cfg.RunName).Int("step", report.Checkpoint.CurrentStep).Msg("training completed")
	s.publish(EventTrainDone, map[string]any{"step": report.Checkpoint.CurrentStep})
	return report, nil
}
