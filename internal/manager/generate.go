package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"lsai/internal/engine"
	"lsai/internal/generation"
)

type sampleResult struct {
	text string
	err  error
}

// Generate answers a question with the loaded model. The request is
// re-validated after the loaded check, so a missing model wins over bad
// input. The returned response is cleaned and never empty.
func (s *Service) Generate(ctx context.Context, req generation.Request) (generation.Result, error) {
	if err := s.EnsureLoaded(); err != nil {
		generationsTotal.WithLabelValues("not_loaded").Inc()
		return generation.Result{}, err
	}
	req, err := generation.Validate(req.Prompt, req.Length, req.Temperature)
	if err != nil {
		generationsTotal.WithLabelValues("invalid").Inc()
		return generation.Result{}, err
	}
	prefix, err := s.prompt.Format(req.Prompt)
	if err != nil {
		generationsTotal.WithLabelValues("failure").Inc()
		return generation.Result{}, &GenerationError{Kind: GenerationEngineFailure, Cause: err}
	}
	raw, err := s.sample(ctx, prefix, engine.NewSampleParams(req.Length, req.Temperature))
	if err != nil {
		return generation.Result{}, err
	}
	return generation.Result{
		Prompt:      req.Prompt,
		Response:    s.cleaner.Clean(raw, prefix),
		Length:      req.Length,
		Temperature: req.Temperature,
	}, nil
}

// Complete continues prefix verbatim with the loaded model and returns the
// raw text, prefix included. Used for demonstration samples after training.
func (s *Service) Complete(ctx context.Context, prefix string, length int, temperature float64) (string, error) {
	if err := s.EnsureLoaded(); err != nil {
		return "", err
	}
	return s.sample(ctx, prefix, engine.NewSampleParams(length, temperature))
}

// sample runs one engine call under the in-flight read lock and the
// generation gate. The engine call is never cancelled: when ctx ends first
// the caller returns and the result is discarded once the call completes.
func (s *Service) sample(ctx context.Context, prefix string, params engine.SampleParams) (string, error) {
	s.inflight.RLock()
	s.mu.RLock()
	st, sess := s.state, s.sess
	s.mu.RUnlock()
	if st != StateLoaded || sess == nil {
		s.inflight.RUnlock()
		generationsTotal.WithLabelValues("not_loaded").Inc()
		return "", ErrModelNotLoaded
	}
	release, err := s.admit(ctx)
	if err != nil {
		s.inflight.RUnlock()
		if IsTooBusy(err) {
			generationsTotal.WithLabelValues("busy").Inc()
		} else {
			generationsTotal.WithLabelValues("canceled").Inc()
		}
		return "", err
	}

	start := time.Now()
	done := make(chan sampleResult, 1)
	go func() {
		defer s.inflight.RUnlock()
		defer release()
		text, err := s.eng.Sample(context.WithoutCancel(ctx), sess, s.cfg.RunName, prefix, params)
		done <- sampleResult{text: text, err: err}
	}()

	select {
	case r := <-done:
		generationDuration.Observe(time.Since(start).Seconds())
		if r.err != nil {
			generationsTotal.WithLabelValues("failure").Inc()
			log.Error().Err(r.err).Str("run", s.cfg.RunName).Msg("error during generation")
			return "", &GenerationError{Kind: GenerationEngineFailure, Cause: r.err}
		}
		generationsTotal.WithLabelValues("success").Inc()
		s.mu.Lock()
		s.generations++
		s.mu.Unlock()
		s.publish(EventGenerationEnd, map[string]any{"took_ms": time.Since(start).Milliseconds()})
		return r.text, nil
	case <-ctx.Done():
		generationsTotal.WithLabelValues("canceled").Inc()
		log.Debug().Err(ctx.Err()).Msg("caller stopped waiting; sample result will be discarded")
		return "", ctx.Err()
	}
}
