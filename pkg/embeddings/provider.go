// Package embeddings turns text into fixed-dimension descriptor vectors.
// The Provider interface decouples the engine from the model backend;
// concrete providers are selected once at construction, never dispatched
// at request time.
package embeddings

import (
	"context"

	"github.com/pkg/errors"
)

// Provider encodes text into a fixed-length vector. Implementations must
// be deterministic for identical input within one model version.
type Provider interface {
	// Embed encodes text. It honours ctx cancellation and deadlines.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions reports the vector dimension this provider produces.
	Dimensions() int

	// ModelID identifies the backing model, e.g. "openai:text-embedding-3-small".
	ModelID() string
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// NewFromConfig constructs the configured provider.
func NewFromConfig(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg)
	case "local", "":
		return NewLocal(cfg.Dimensions)
	default:
		return nil, errors.Errorf("unsupported embeddings provider: %s", cfg.Provider)
	}
}
