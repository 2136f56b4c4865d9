package httpapi

import (
	"time"

	"lsai/internal/generation"
)

// DefaultMaxBodyBytes caps /generate bodies unless SetMaxBodyBytes says otherwise.
const DefaultMaxBodyBytes int64 = 1 << 20

var maxBodyBytes = DefaultMaxBodyBytes

// SetMaxBodyBytes sets the /generate body limit. Non-positive restores the default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = DefaultMaxBodyBytes
	}
	maxBodyBytes = n
}

// generateTimeout bounds how long a /generate request waits for the model.
// Zero leaves only the client and shutdown as limits.
var generateTimeout time.Duration

// SetGenerateTimeout sets the /generate deadline; non-positive disables it.
func SetGenerateTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	generateTimeout = d
}

// Parameters applied when a /generate body omits them.
var (
	defaultLength      = generation.DefaultLength
	defaultTemperature = generation.DefaultTemperature
)

// SetGenerationDefaults overrides the length and temperature used when a
// request omits them. Non-positive values restore the built-in defaults.
func SetGenerationDefaults(length int, temperature float64) {
	if length <= 0 {
		length = generation.DefaultLength
	}
	if temperature <= 0 {
		temperature = generation.DefaultTemperature
	}
	defaultLength, defaultTemperature = length, temperature
}

// CORS configuration. If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS for browser clients of the API.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
