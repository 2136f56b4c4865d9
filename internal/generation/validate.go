// Package generation holds the pure parts of the generation pipeline:
// request validation, prompt formatting and cleanup of engine output.
package generation

import (
	"fmt"
	"net/http"
	"strings"
)

// Request bounds. Both ends are inclusive.
const (
	MinLength      = 50
	MaxLength      = 500
	MinTemperature = 0.1
	MaxTemperature = 1.0

	DefaultLength      = 200
	DefaultTemperature = 0.7
)

// Request is a validated generation request.
type Request struct {
	Prompt      string  `json:"prompt"`
	Length      int     `json:"length"`
	Temperature float64 `json:"temperature"`
}

// Result is a cleaned answer together with the request that produced it.
// The raw engine text is not kept.
type Result struct {
	Prompt      string  `json:"prompt"`
	Response    string  `json:"response"`
	Length      int     `json:"length"`
	Temperature float64 `json:"temperature"`
}

// ValidationKind identifies which check a request failed.
type ValidationKind string

const (
	EmptyPrompt           ValidationKind = "empty_prompt"
	LengthOutOfRange      ValidationKind = "length_out_of_range"
	TemperatureOutOfRange ValidationKind = "temperature_out_of_range"
)

// ValidationError is returned by Validate. It maps to 400.
type ValidationError struct {
	Kind ValidationKind
	Msg  string
}

func (e *ValidationError) Error() string { return e.Msg }

// StatusCode implements the HTTP error mapping used by the API layer.
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// Validate checks prompt, length and temperature in that order and stops at
// the first failure. The returned request carries the trimmed prompt.
func Validate(prompt string, length int, temperature float64) (Request, error) {
	p := strings.TrimSpace(prompt)
	if p == "" {
		return Request{}, &ValidationError{Kind: EmptyPrompt, Msg: "The 'prompt' field is required"}
	}
	if length < MinLength || length > MaxLength {
		return Request{}, &ValidationError{
			Kind: LengthOutOfRange,
			Msg:  fmt.Sprintf("Length must be between %d and %d", MinLength, MaxLength),
		}
	}
	if !(temperature >= MinTemperature && temperature <= MaxTemperature) {
		return Request{}, &ValidationError{
			Kind: TemperatureOutOfRange,
			Msg:  fmt.Sprintf("Temperature must be between %.1f and %.1f", MinTemperature, MaxTemperature),
		}
	}
	return Request{Prompt: p, Length: length, Temperature: temperature}, nil
}
