package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"lsai/internal/common/fsutil"
	"lsai/internal/corpus"
	"lsai/internal/engine"
	"lsai/internal/generation"
	"lsai/internal/logging"
)

// Env names that override file values.
const (
	EnvAddr     = "LSAI_ADDR"
	EnvLogLevel = "LSAI_LOG_LEVEL"
)

// Config holds runtime parameters for the service and the CLI.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr             string `json:"addr" yaml:"addr" toml:"addr"`
	ModelName        string `json:"model_name" yaml:"model_name" toml:"model_name"`
	RunName          string `json:"run_name" yaml:"run_name" toml:"run_name"`
	CheckpointDir    string `json:"checkpoint_dir" yaml:"checkpoint_dir" toml:"checkpoint_dir"`
	ModelsDir        string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DatasetFile      string `json:"dataset_file" yaml:"dataset_file" toml:"dataset_file"`
	TrainingSteps    int    `json:"training_steps" yaml:"training_steps" toml:"training_steps"`
	WatchCheckpoints bool   `json:"watch_checkpoints" yaml:"watch_checkpoints" toml:"watch_checkpoints"`

	Engine     EngineConfig     `json:"engine" yaml:"engine" toml:"engine"`
	Corpus     CorpusConfig     `json:"corpus" yaml:"corpus" toml:"corpus"`
	Generation GenerationConfig `json:"generation" yaml:"generation" toml:"generation"`
	HTTP       HTTPConfig       `json:"http" yaml:"http" toml:"http"`
	Log        LogConfig        `json:"log" yaml:"log" toml:"log"`
}

type EngineConfig struct {
	Backend               string   `json:"backend" yaml:"backend" toml:"backend"`
	BaseURL               string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKey                string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	Command               []string `json:"command" yaml:"command" toml:"command"`
	RequestTimeoutSeconds int      `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
	LlamaContext          int      `json:"llama_context" yaml:"llama_context" toml:"llama_context"`
	LlamaThreads          int      `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
}

type CorpusConfig struct {
	BaseURL        string `json:"base_url" yaml:"base_url" toml:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

type GenerationConfig struct {
	PromptTemplate     string  `json:"prompt_template" yaml:"prompt_template" toml:"prompt_template"`
	Repetition         string  `json:"repetition" yaml:"repetition" toml:"repetition"`
	DefaultLength      int     `json:"default_length" yaml:"default_length" toml:"default_length"`
	DefaultTemperature float64 `json:"default_temperature" yaml:"default_temperature" toml:"default_temperature"`
	MaxWaitSeconds     int     `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`
}

type HTTPConfig struct {
	// CORSEnabled defaults to true when unset.
	CORSEnabled            *bool    `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins            []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyBytes           int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	GenerateTimeoutSeconds int      `json:"generate_timeout_seconds" yaml:"generate_timeout_seconds" toml:"generate_timeout_seconds"`
}

type LogConfig struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`
}

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unspecified fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":5050"
	}
	if c.ModelName == "" {
		c.ModelName = "124M"
	}
	if c.RunName == "" {
		c.RunName = "librescript_code_model"
	}
	if c.CheckpointDir == "" {
		c.CheckpointDir = "checkpoint"
	}
	if c.ModelsDir == "" {
		c.ModelsDir = "models"
	}
	if c.DatasetFile == "" {
		c.DatasetFile = corpus.DefaultDatasetFile
	}
	if c.TrainingSteps <= 0 {
		c.TrainingSteps = 1000
	}
	if c.Engine.Backend == "" {
		c.Engine.Backend = engine.BackendServer
	}
	if c.Engine.Backend == engine.BackendServer && c.Engine.BaseURL == "" {
		c.Engine.BaseURL = "http://127.0.0.1:8080"
	}
	if c.Engine.RequestTimeoutSeconds <= 0 {
		c.Engine.RequestTimeoutSeconds = 120
	}
	if c.Corpus.BaseURL == "" {
		c.Corpus.BaseURL = corpus.DefaultBaseURL
	}
	if c.Corpus.TimeoutSeconds <= 0 {
		c.Corpus.TimeoutSeconds = 30
	}
	if c.Generation.PromptTemplate == "" {
		c.Generation.PromptTemplate = generation.DefaultPromptTemplate
	}
	if c.Generation.Repetition == "" {
		c.Generation.Repetition = string(generation.RepetitionBefore)
	}
	if c.Generation.DefaultLength == 0 {
		c.Generation.DefaultLength = generation.DefaultLength
	}
	if c.Generation.DefaultTemperature == 0 {
		c.Generation.DefaultTemperature = generation.DefaultTemperature
	}
	if c.Generation.MaxWaitSeconds <= 0 {
		c.Generation.MaxWaitSeconds = 30
	}
	if c.HTTP.CORSEnabled == nil {
		on := true
		c.HTTP.CORSEnabled = &on
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"*"}
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 1 << 20
	}
	if c.HTTP.GenerateTimeoutSeconds <= 0 {
		c.HTTP.GenerateTimeoutSeconds = 300
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}
}

// ApplyEnv overrides file values from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate rejects values the services would refuse later.
func (c Config) Validate() error {
	if _, err := generation.ParseRepetition(c.Generation.Repetition); err != nil {
		return err
	}
	if _, err := generation.Validate("x", c.Generation.DefaultLength, c.Generation.DefaultTemperature); err != nil {
		return fmt.Errorf("generation defaults: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Engine.Backend {
	case engine.BackendServer, engine.BackendExec, engine.BackendLlama:
	default:
		return fmt.Errorf("unknown engine backend %q", c.Engine.Backend)
	}
	return nil
}

// CORS reports whether cross-origin requests are allowed.
func (c Config) CORS() bool { return c.HTTP.CORSEnabled == nil || *c.HTTP.CORSEnabled }

// EngineConfig maps the engine section onto engine.Config.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		Backend:        c.Engine.Backend,
		BaseURL:        c.Engine.BaseURL,
		APIKey:         c.Engine.APIKey,
		Command:        c.Engine.Command,
		RequestTimeout: time.Duration(c.Engine.RequestTimeoutSeconds) * time.Second,
		ModelsDir:      c.ModelsDir,
		CheckpointDir:  c.CheckpointDir,
		LlamaContext:   c.Engine.LlamaContext,
		LlamaThreads:   c.Engine.LlamaThreads,
	}
}

// LoggingConfig maps the log section onto logging.Config.
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ExpandPaths expands a leading ~ in every filesystem path.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.CheckpointDir, &c.ModelsDir, &c.DatasetFile, &c.Log.File} {
		v, err := fsutil.ExpandHome(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = v
	}
	return nil
}

// Resolve loads path (defaults only when empty), applies the environment
// and defaults, and validates the result.
func Resolve(path string) (Config, error) {
	var cfg Config
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()
	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
