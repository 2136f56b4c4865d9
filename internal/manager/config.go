package manager

import (
	"time"

	"lsai/internal/engine"
	"lsai/internal/generation"
)

// Defaults applied when the corresponding Config fields are unset.
const (
	DefaultModelName = "124M"
	DefaultRunName   = "librescript_code_model"

	defaultCheckpointDir = "checkpoint"
	defaultModelsDir     = "models"
	defaultMaxWait       = 30 * time.Second
)

// Config encapsulates all tunables for Service construction.
type Config struct {
	Engine         engine.Engine
	ModelName      string
	RunName        string
	CheckpointDir  string
	ModelsDir      string
	PromptTemplate string
	Repetition     generation.Repetition
	// MaxWait bounds how long a generation waits for the gate when the
	// engine samples serially.
	MaxWait   time.Duration
	Publisher EventPublisher
}

func (c *Config) applyDefaults() {
	if c.ModelName == "" {
		c.ModelName = DefaultModelName
	}
	if c.RunName == "" {
		c.RunName = DefaultRunName
	}
	if c.CheckpointDir == "" {
		c.CheckpointDir = defaultCheckpointDir
	}
	if c.ModelsDir == "" {
		c.ModelsDir = defaultModelsDir
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
}
