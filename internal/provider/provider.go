package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/tripnote/tripnote/config"
	openai_provider "github.com/tripnote/tripnote/internal/provider/openai"
)

// ErrNotConfigured is returned when the provider credential is absent.
// No generative call may be attempted until it is resolved.
var ErrNotConfigured = errors.New("OPENAI_API_KEY not set")

// ErrEmptyResponse is returned when the model produces no text.
var ErrEmptyResponse = openai_provider.ErrEmptyResponse

// Message is one turn submitted to the generative capability.
type Message = openai_provider.Message

// Schema constrains the model output to a JSON document shape.
type Schema = openai_provider.Schema

// Provider is the interface all generative implementations must satisfy
type Provider interface {
	// Generate submits the full message sequence and returns the model
	// reply. When schema is non-nil the reply is constrained to it.
	Generate(ctx context.Context, messages []Message, schema *Schema) (string, error)
}

// New creates a generative provider based on the provided configuration.
// It fails fast on a missing credential so that a configuration error is
// surfaced instead of a generic network error later.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return openai_provider.NewClient(
			cfg.APIKey,
			cfg.BaseURL,
			cfg.Model,
			cfg.Temperature,
			cfg.MaxTokens,
			cfg.Timeout,
		), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
