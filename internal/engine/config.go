package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Completer is the slice of the LLM client the engine needs.
// *llm.Client satisfies it; tests inject fakes.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, opts ...llm.ChatOption) (string, error)
}

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMClient          Completer

	// Ordered caption language preferences used when a request does not
	// supply its own.
	LanguagePrefs []string

	// AcquireTimeout bounds one whole acquisition, retries included.
	AcquireTimeout time.Duration

	// DefaultOwner is the owner id used when a request carries none.
	DefaultOwner string

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, study).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if len(c.LanguagePrefs) == 0 {
		c.LanguagePrefs = []string{"hi", "en"}
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 60 * time.Second
	}
	cfg = c
	Cfg = &cfg
}
