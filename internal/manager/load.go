package manager

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"lsai/internal/common/fsutil"
	"lsai/internal/engine"
)

// Load brings the fine-tuned run into memory. It is a no-op when the model
// is already loaded. Concurrent callers are serialized and only the first
// one reaches the engine.
func (s *Service) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.loadLocked(ctx)
}

// Reload waits for in-flight generations, drops the current session and
// loads again. New generations fail fast while it runs.
func (s *Service) Reload(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.unloadLocked()
	return s.loadLocked(ctx)
}

// EnsureLoaded fails fast with ErrModelNotLoaded unless the model is loaded.
// It never triggers a load.
func (s *Service) EnsureLoaded() error {
	if s.State() != StateLoaded {
		return ErrModelNotLoaded
	}
	return nil
}

// Close drains generations and releases the session.
func (s *Service) Close() error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.unloadLocked()
}

// unloadLocked must be called with loadMu held.
func (s *Service) unloadLocked() error {
	s.inflight.Lock()
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.state = StateUnloaded
	s.mu.Unlock()
	s.inflight.Unlock()
	setStateGauge(StateUnloaded)
	if sess == nil {
		return nil
	}
	s.publish(EventUnloaded, nil)
	if err := sess.Close(); err != nil {
		log.Warn().Err(err).Str("run", s.cfg.RunName).Msg("close engine session")
		return err
	}
	return nil
}

// loadLocked must be called with loadMu held.
func (s *Service) loadLocked(ctx context.Context) error {
	if s.State() == StateLoaded {
		return nil
	}
	s.setState(StateLoading, "")
	s.publish(EventLoadStart, map[string]any{"engine": s.eng.Name()})
	log.Info().Str("model", s.cfg.ModelName).Str("run", s.cfg.RunName).Str("engine", s.eng.Name()).Msg("loading AI model")
	start := time.Now()

	sess, err := s.openSession(ctx)
	if err != nil {
		s.setState(StateFailed, err.Error())
		modelLoadsTotal.WithLabelValues("failure").Inc()
		log.Error().Err(err).Str("run", s.cfg.RunName).Msg("error loading model")
		s.publish(EventLoadFailed, map[string]any{"error": err.Error()})
		return err
	}

	s.mu.Lock()
	s.sess = sess
	s.state = StateLoaded
	s.lastErr = ""
	s.loads++
	s.loadedAt = time.Now()
	s.mu.Unlock()
	setStateGauge(StateLoaded)
	modelLoadsTotal.WithLabelValues("success").Inc()
	log.Info().Dur("took", time.Since(start)).Str("run", s.cfg.RunName).Msg("AI model loaded successfully")
	s.publish(EventLoadReady, map[string]any{"took_ms": time.Since(start).Milliseconds()})
	return nil
}

func (s *Service) openSession(ctx context.Context) (engine.Session, error) {
	runDir := s.RunDir()
	if !fsutil.IsDir(runDir) {
		return nil, &LoadError{Kind: NoCheckpoint, Cause: fmt.Errorf("run directory %s does not exist", runDir)}
	}
	if !fsutil.IsDir(filepath.Join(s.cfg.ModelsDir, s.cfg.ModelName)) {
		log.Info().Str("model", s.cfg.ModelName).Msg("downloading base model")
		if err := s.eng.DownloadBaseModel(ctx, s.cfg.ModelName); err != nil {
			return nil, &LoadError{Kind: LoadEngineFailure, Cause: fmt.Errorf("download base model: %w", err)}
		}
	}
	sess, err := s.eng.StartSession(ctx)
	if err != nil {
		return nil, &LoadError{Kind: LoadEngineFailure, Cause: fmt.Errorf("start session: %w", err)}
	}
	if err := s.eng.LoadCheckpoint(ctx, sess, s.cfg.RunName); err != nil {
		_ = sess.Close()
		return nil, &LoadError{Kind: LoadEngineFailure, Cause: fmt.Errorf("load checkpoint: %w", err)}
	}
	return sess, nil
}
