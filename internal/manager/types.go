package manager

import (
	"time"

	"lsai/internal/checkpoint"
)

// State is the lifecycle state of the model slot.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateLoaded   State = "loaded"
	StateFailed   State = "failed"
)

// StatusReport is a read-only projection of the service state.
type StatusReport struct {
	State       State
	ModelName   string
	RunName     string
	Engine      string
	Checkpoint  checkpoint.Info
	LastError   string
	LoadsTotal  int
	Generations int64
	LoadedAt    time.Time
	Uptime      time.Duration
}

// Loaded reports whether the model is ready for generation.
func (r StatusReport) Loaded() bool { return r.State == StateLoaded }
