//go:build llama

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"lsai/internal/checkpoint"
)

// llamaEngine runs a GGUF export of the fine-tuned run in process.
type llamaEngine struct {
	checkpointDir string
	ctxSize       int
	threads       int
}

// NewLlama constructs the in-process llama.cpp engine.
func NewLlama(checkpointDir string, ctxSize, threads int) Engine {
	return &llamaEngine{checkpointDir: checkpointDir, ctxSize: ctxSize, threads: threads}
}

// llamaSession owns the loaded model.
type llamaSession struct {
	mu    sync.Mutex
	model *llama.LLama
}

func (s *llamaSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func (e *llamaEngine) Name() string { return BackendLlama }

// ConcurrentSampling is false: a llama context is not safe for parallel
// prediction.
func (e *llamaEngine) ConcurrentSampling() bool { return false }

// DownloadBaseModel is a no-op: the run directory carries a complete GGUF.
func (e *llamaEngine) DownloadBaseModel(ctx context.Context, modelName string) error { return nil }

func (e *llamaEngine) StartSession(ctx context.Context) (Session, error) {
	return &llamaSession{}, nil
}

func (e *llamaEngine) FineTune(ctx context.Context, s Session, req FineTuneRequest) error {
	return fmt.Errorf("fine-tune via %s engine: %w", e.Name(), ErrUnsupported)
}

func (e *llamaEngine) LoadCheckpoint(ctx context.Context, s Session, runName string) error {
	sess, err := sessionAs[*llamaSession](s)
	if err != nil {
		return err
	}
	path, err := newestGGUF(checkpoint.RunDir(e.checkpointDir, runName))
	if err != nil {
		return err
	}
	m, err := llama.New(path, llama.SetContext(e.ctxSize))
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.model != nil {
		sess.model.Free()
	}
	sess.model = m
	return nil
}

func (e *llamaEngine) Sample(ctx context.Context, s Session, runName, prefix string, p SampleParams) (string, error) {
	sess, err := sessionAs[*llamaSession](s)
	if err != nil {
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.model == nil {
		return "", errors.New("llama model not loaded")
	}
	sess.model.SetTokenCallback(func(string) bool {
		return ctx.Err() == nil
	})
	text, err := sess.model.Predict(prefix, predictOptions(p, e.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return prefix + text, nil
}

func predictOptions(p SampleParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, p.Length)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopK(p.TopK),
		llama.SetTopP(float32(p.TopP)),
		llama.SetTemperature(float32(p.Temperature)),
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
