// Package types holds the JSON payloads of the HTTP API.
package types

import "time"

// RootResponse is returned by GET /.
type RootResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
	// example: LibreScript AI API
	Service string `json:"service" example:"LibreScript AI API"`
	// Whether a fine-tuned model is loaded and can answer.
	ModelLoaded bool      `json:"model_loaded" example:"true"`
	Timestamp   time.Time `json:"timestamp"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// example: LibreScript AI API
	Service     string `json:"service" example:"LibreScript AI API"`
	ModelLoaded bool   `json:"model_loaded" example:"true"`
	// Lifecycle state: unloaded, loading, loaded or failed.
	// example: loaded
	State string `json:"state" example:"loaded"`
	// example: 124M
	ModelName string `json:"model_name" example:"124M"`
	// example: librescript_code_model
	RunName string `json:"run_name" example:"librescript_code_model"`
	// Engine backend serving samples.
	// example: server
	Engine           string `json:"engine" example:"server"`
	CheckpointExists bool   `json:"checkpoint_exists" example:"true"`
	// Completed training steps, present when the counter file is readable.
	// example: 1000
	TrainingSteps *int `json:"training_steps,omitempty" example:"1000"`
	// example: model-1000
	LatestModel *string `json:"latest_model,omitempty" example:"model-1000"`
	// Last load failure, empty once a load succeeds.
	LastError     string    `json:"last_error,omitempty"`
	LoadsTotal    int       `json:"loads_total" example:"1"`
	Generations   int64     `json:"generations" example:"12"`
	UptimeSeconds float64   `json:"uptime_seconds" example:"3600"`
	Timestamp     time.Time `json:"timestamp"`
}

// GenerateRequest is the body of POST /generate. Omitted fields take the
// server defaults (length 200, temperature 0.7).
type GenerateRequest struct {
	// Question to answer.
	// example: How do I make a SQL query with JOIN?
	Prompt string `json:"prompt" example:"How do I make a SQL query with JOIN?"`
	// Number of tokens to sample, between 50 and 500.
	// example: 200
	Length *int `json:"length,omitempty" example:"200"`
	// Sampling temperature, between 0.1 and 1.0.
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
}

// GenerationParameters echoes the effective sampling parameters.
type GenerationParameters struct {
	Length      int     `json:"length" example:"200"`
	Temperature float64 `json:"temperature" example:"0.7"`
}

// GenerateResponse is returned by a successful POST /generate.
type GenerateResponse struct {
	Success    bool                 `json:"success" example:"true"`
	Prompt     string               `json:"prompt" example:"How do I make a SQL query with JOIN?"`
	Response   string               `json:"response" example:"Use a JOIN clause."`
	Parameters GenerationParameters `json:"parameters"`
	Timestamp  time.Time            `json:"timestamp"`
}

// ReloadResponse is returned by POST /reload.
type ReloadResponse struct {
	Success bool `json:"success" example:"true"`
	// example: Model reloaded successfully
	Message string `json:"message" example:"Model reloaded successfully"`
	// Cause of a failed reload.
	Error string `json:"error,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: Length must be between 50 and 500
	Error string `json:"error" example:"Length must be between 50 and 500"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Additional detail for the caller.
	Message string `json:"message,omitempty"`
}
