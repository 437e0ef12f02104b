// Package config reads the pipeline's configuration surface from the
// environment, with a .env file loaded when present. All values are plain
// scalars with documented defaults; CLI flags may override any of them.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names. The ARK_* names come from the Volcengine
// Ark platform this tool was first pointed at, but any OpenAI-compatible
// endpoint works.
const (
	EnvAPIKey       = "ARK_API_KEY"  // credential for the vision endpoint
	EnvBaseURL      = "ARK_BASE_URL" // e.g. https://ark.cn-beijing.volces.com/api/v3
	EnvModel        = "ARK_MODEL"    // vision model identifier
	EnvProvider     = "ARK_PROVIDER" // ark | gemini
	EnvTimeout      = "ARK_TIMEOUT"  // per-attempt request timeout, seconds
	EnvRetries      = "ARK_RETRIES"  // retry count; attempts = retries + 1
	EnvWorkers      = "ARK_WORKERS"  // concurrent in-flight requests per job
	EnvDPI          = "ARK_DPI"      // full-page rendering resolution
	EnvSource       = "ARK_SOURCE"   // embedded | page | both
	EnvPollMs       = "ARK_POLL_MS"  // client-side progress poll interval
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
)

// Defaults, matching the documented configuration surface.
const (
	DefaultModel    = "doubao-seed-1-6-vision-250815"
	DefaultProvider = "ark"
	DefaultTimeout  = 180 * time.Second
	DefaultRetries  = 3
	DefaultWorkers  = 4
	DefaultDPI      = 200
	DefaultSource   = "both"
	DefaultPoll     = 10 * time.Second
)

// Config is the consumed-not-owned configuration of the core pipeline.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Provider     string
	GoogleAPIKey string
	Timeout      time.Duration
	Retries      int
	Workers      int
	DPI          int
	Source       string
	PollInterval time.Duration
}

// Load reads the environment, after best-effort loading of a local .env.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		APIKey:       os.Getenv(EnvAPIKey),
		BaseURL:      os.Getenv(EnvBaseURL),
		Model:        envStr(EnvModel, DefaultModel),
		Provider:     envStr(EnvProvider, DefaultProvider),
		GoogleAPIKey: os.Getenv(EnvGoogleAPIKey),
		Timeout:      time.Duration(envInt(EnvTimeout, int(DefaultTimeout/time.Second))) * time.Second,
		Retries:      envInt(EnvRetries, DefaultRetries),
		Workers:      envInt(EnvWorkers, DefaultWorkers),
		DPI:          envInt(EnvDPI, DefaultDPI),
		Source:       envStr(EnvSource, DefaultSource),
		PollInterval: time.Duration(envInt(EnvPollMs, int(DefaultPoll/time.Millisecond))) * time.Millisecond,
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
