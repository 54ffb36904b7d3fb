package main

import (
	"context"
	"testing"

	"github.com/fwojciec/pulse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCompleter_Explicit(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		provider string
		cfg      config
	}{
		{"openai", config{OpenAIAPIKey: "sk-oai"}},
		{"anthropic", config{AnthropicAPIKey: "sk-ant"}},
		{"gemini", config{GeminiAPIKey: "gk-gem"}},
	} {
		t.Run(tc.provider, func(t *testing.T) {
			t.Parallel()
			tc.cfg.LLMProvider = tc.provider
			c, name, err := resolveCompleter(context.Background(), tc.cfg)
			require.NoError(t, err)
			assert.NotNil(t, c)
			assert.Equal(t, tc.provider, name)
		})
	}
}

func TestResolveCompleter_AutoDetect(t *testing.T) {
	t.Parallel()
	_, name, err := resolveCompleter(context.Background(), config{AnthropicAPIKey: "sk-ant"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", name)

	_, name, err = resolveCompleter(context.Background(), config{OpenAIAPIKey: "sk-oai"})
	require.NoError(t, err)
	assert.Equal(t, "openai", name)
}

func TestResolveCompleter_NoKeys(t *testing.T) {
	t.Parallel()
	_, _, err := resolveCompleter(context.Background(), config{})
	require.ErrorIs(t, err, errNoLLM)
}

func TestResolveCompleter_MultipleKeysNeedProvider(t *testing.T) {
	t.Parallel()
	cfg := config{OpenAIAPIKey: "sk-oai", GeminiAPIKey: "gk-gem"}
	_, _, err := resolveCompleter(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple LLM API keys")

	cfg.LLMProvider = "gemini"
	_, name, err := resolveCompleter(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini", name)
}

func TestResolveCompleter_ExplicitWithoutKey(t *testing.T) {
	t.Parallel()
	_, _, err := resolveCompleter(context.Background(), config{LLMProvider: "openai", AnthropicAPIKey: "sk-ant"})
	require.ErrorIs(t, err, pulse.ErrNotConfigured)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY not set")
}

func TestResolveCompleter_UnknownProvider(t *testing.T) {
	t.Parallel()
	_, _, err := resolveCompleter(context.Background(), config{LLMProvider: "mistral", OpenAIAPIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM_PROVIDER")
}
