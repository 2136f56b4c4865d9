// Package engine adapts the text-generation backends used to fine-tune and
// sample the model. The lifecycle manager is the only caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lsai/internal/checkpoint"
)

// Sampling defaults shared by every backend.
const (
	DefaultTopK = 50
	DefaultTopP = 0.95
	EndOfText   = "<|endoftext|>"
)

// Engine is the opaque training and sampling capability.
type Engine interface {
	// Name identifies the backend in logs and status output.
	Name() string
	// DownloadBaseModel makes the named base model available locally.
	DownloadBaseModel(ctx context.Context, modelName string) error
	// StartSession allocates the runtime state later calls operate on.
	StartSession(ctx context.Context) (Session, error)
	// FineTune trains runName on the dataset and saves checkpoints as it goes.
	FineTune(ctx context.Context, s Session, req FineTuneRequest) error
	// LoadCheckpoint loads the latest checkpoint of runName into the session.
	LoadCheckpoint(ctx context.Context, s Session, runName string) error
	// Sample continues prefix and returns the generated text.
	Sample(ctx context.Context, s Session, runName, prefix string, p SampleParams) (string, error)
	// ConcurrentSampling reports whether Sample may run in parallel on one session.
	ConcurrentSampling() bool
}

// Session is a backend-specific handle returned by StartSession.
type Session interface {
	Close() error
}

// SampleParams controls a single Sample call.
type SampleParams struct {
	Length      int
	Temperature float64
	TopK        int
	TopP        float64
	Stop        []string
}

// NewSampleParams returns params with the shared top-k, top-p and stop defaults.
func NewSampleParams(length int, temperature float64) SampleParams {
	return SampleParams{
		Length:      length,
		Temperature: temperature,
		TopK:        DefaultTopK,
		TopP:        DefaultTopP,
		Stop:        []string{EndOfText},
	}
}

// FineTuneRequest describes one training run.
type FineTuneRequest struct {
	Dataset     string
	ModelName   string
	RunName     string
	Steps       int
	Restore     checkpoint.RestoreMode
	PrintEvery  int
	SampleEvery int
	SaveEvery   int
}

// ErrUnsupported is returned for operations a backend cannot perform.
var ErrUnsupported = errors.New("operation not supported by this engine")

// dependencyUnavailableError signals a backend that cannot be reached or was
// not built in, so the HTTP layer can answer 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string   { return e.msg }
func (e dependencyUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrDependencyUnavailable constructs a dependency-unavailable error.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err, or anything it wraps, is a
// dependency-unavailable error.
func IsDependencyUnavailable(err error) bool {
	var de dependencyUnavailableError
	return errors.As(err, &de)
}

// Backend names accepted by New.
const (
	BackendServer = "server"
	BackendExec   = "exec"
	BackendLlama  = "llama"
)

// Config selects and configures a backend.
type Config struct {
	Backend        string
	BaseURL        string
	APIKey         string
	Command        []string
	RequestTimeout time.Duration
	ModelsDir      string
	CheckpointDir  string
	LlamaContext   int
	LlamaThreads   int
}

// New builds the backend named by cfg.Backend.
func New(cfg Config) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendServer, "":
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, errors.New("engine: server backend requires base_url")
		}
		return NewServer(cfg.BaseURL, cfg.APIKey, cfg.RequestTimeout), nil
	case BackendExec:
		if len(cfg.Command) == 0 {
			return nil, errors.New("engine: exec backend requires command")
		}
		return NewExec(cfg.Command, cfg.ModelsDir, cfg.CheckpointDir), nil
	case BackendLlama:
		return NewLlama(cfg.CheckpointDir, cfg.LlamaContext, cfg.LlamaThreads), nil
	default:
		return nil, fmt.Errorf("engine: unknown backend %q", cfg.Backend)
	}
}

func sessionAs[T Session](s Session) (T, error) {
	v, ok := s.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("engine: session of type %T not created by this engine", s)
	}
	return v, nil
}
