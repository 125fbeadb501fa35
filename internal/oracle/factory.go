package oracle

import (
	"context"
	"fmt"
	"strings"
)

// Options selects and configures an oracle provider.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New creates an oracle for the configured provider. The default provider
// is gemini.
func New(ctx context.Context, opts Options) (Oracle, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "gemini"
	}

	switch provider {
	case "gemini":
		return NewGeminiOracle(ctx, opts.APIKey, opts.Model)
	case "openai":
		return NewOpenAIOracle(opts.APIKey, opts.Model, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", opts.Provider)
	}
}
