package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fwojciec/pulse"
	"github.com/fwojciec/pulse/anthropic"
	"github.com/fwojciec/pulse/gemini"
	"github.com/fwojciec/pulse/openai"
)

// errNoLLM reports that no language-model key is configured. The server
// still starts; chat requests answer with a configuration error.
var errNoLLM = errors.New("no LLM API key found: set OPENAI_API_KEY, ANTHROPIC_API_KEY or GEMINI_API_KEY")

// resolveCompleter selects and constructs the language-model provider. All
// env var values arrive through cfg; env is only read in main().
func resolveCompleter(ctx context.Context, cfg config) (pulse.Completer, string, error) {
	provider := cfg.LLMProvider

	if provider == "" {
		var found []string
		if cfg.OpenAIAPIKey != "" {
			found = append(found, "openai")
		}
		if cfg.AnthropicAPIKey != "" {
			found = append(found, "anthropic")
		}
		if cfg.GeminiAPIKey != "" {
			found = append(found, "gemini")
		}
		switch len(found) {
		case 0:
			return nil, "", errNoLLM
		case 1:
			provider = found[0]
		default:
			return nil, "", fmt.Errorf("multiple LLM API keys found (%v): set LLM_PROVIDER to select one", found)
		}
	}

	switch provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, provider, fmt.Errorf("OPENAI_API_KEY not set: %w", pulse.ErrNotConfigured)
		}
		return openai.New(cfg.OpenAIAPIKey, openai.WithModel(cfg.LLMModel)), provider, nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, provider, fmt.Errorf("ANTHROPIC_API_KEY not set: %w", pulse.ErrNotConfigured)
		}
		return anthropic.New(cfg.AnthropicAPIKey, anthropic.WithModel(cfg.LLMModel)), provider, nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, provider, fmt.Errorf("GEMINI_API_KEY not set: %w", pulse.ErrNotConfigured)
		}
		client, err := gemini.New(ctx, cfg.GeminiAPIKey, gemini.WithModel(cfg.LLMModel))
		if err != nil {
			return nil, provider, fmt.Errorf("gemini: %w", err)
		}
		return client, provider, nil
	default:
		return nil, provider, fmt.Errorf("unknown LLM_PROVIDER %q: must be \"openai\", \"anthropic\" or \"gemini\"", provider)
	}
}
