package manager

import (
	"errors"
	"net/http"

	"lsai/internal/engine"
)

// LoadErrorKind classifies a failed load.
type LoadErrorKind string

const (
	NoCheckpoint      LoadErrorKind = "no_checkpoint"
	LoadEngineFailure LoadErrorKind = "engine_failure"
)

// LoadError is returned by Load and Reload.
type LoadError struct {
	Kind  LoadErrorKind
	Cause error
}

func (e *LoadError) Error() string {
	if e.Kind == NoCheckpoint {
		return "no fine-tuned model found: " + e.Cause.Error()
	}
	return "load model: " + e.Cause.Error()
}

func (e *LoadError) Unwrap() error { return e.Cause }

// StatusCode implements the HTTP error mapping used by the API layer.
func (e *LoadError) StatusCode() int { return http.StatusInternalServerError }

// IsNoCheckpoint reports whether err is a load failure caused by a missing run directory.
func IsNoCheckpoint(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Kind == NoCheckpoint
}

// GenerationErrorKind classifies a failed generation.
type GenerationErrorKind string

const (
	ModelNotLoaded          GenerationErrorKind = "model_not_loaded"
	GenerationEngineFailure GenerationErrorKind = "engine_failure"
)

// GenerationError is returned by EnsureLoaded and Generate.
type GenerationError struct {
	Kind  GenerationErrorKind
	Cause error
}

// ErrModelNotLoaded is returned when generation is attempted outside the loaded state.
var ErrModelNotLoaded = &GenerationError{Kind: ModelNotLoaded}

func (e *GenerationError) Error() string {
	if e.Kind == ModelNotLoaded {
		return "AI model not available"
	}
	return "generation failed: " + e.Cause.Error()
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// StatusCode maps a missing model or unreachable engine to 503 and other
// engine failures to 500.
func (e *GenerationError) StatusCode() int {
	if e.Kind == ModelNotLoaded || engine.IsDependencyUnavailable(e.Cause) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// IsModelNotLoaded reports whether err signals that no model is loaded (return 503).
func IsModelNotLoaded(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge) && ge.Kind == ModelNotLoaded
}

// tooBusyError signals a generation gate timeout for 429 mapping.
type tooBusyError struct{ run string }

func (e tooBusyError) Error() string   { return "too busy: " + e.run }
func (e tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var tb tooBusyError
	return errors.As(err, &tb)
}
