package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelmux/modelmux/internal/cache"
	"github.com/modelmux/modelmux/internal/config"
	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/internal/policy"
)

type fakeConfig struct {
	providers map[string]domain.ProviderSettings
}

func (f *fakeConfig) Providers() (map[string]domain.ProviderSettings, error) {
	return f.providers, nil
}

func (f *fakeConfig) Snapshot() (*config.Snapshot, error) { return &config.Snapshot{}, nil }
func (f *fakeConfig) ClearGatewayCredentials() error      { return nil }

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "XAI_API_KEY", "GEMINI_API_KEY",
		"OPENROUTER_API_KEY", "MISTRAL_API_KEY", "DEEPSEEK_API_KEY", "GROQ_API_KEY",
		"TOGETHER_API_KEY", "FIREWORKS_API_KEY", "AWS_BEARER_TOKEN_BEDROCK",
	} {
		t.Setenv(v, "")
	}
}

func TestListOnlyConfiguredProviders(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"anthropic": {APIKey: "sk-ant"},
	}}
	svc := NewService(cfg, nil, nil)

	models, err := svc.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, models)

	for _, m := range models {
		// Ollama is local and always listed; everything else needs the
		// anthropic key above.
		if m.Provider != "ollama" {
			assert.Equal(t, "anthropic", m.Provider)
		}
		assert.True(t, strings.HasPrefix(m.ID, m.Provider+":"))
	}
}

func TestListSkipsDisabledProvider(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"anthropic": {APIKey: "sk-ant", Disabled: true},
	}}
	svc := NewService(cfg, nil, nil)

	models, err := svc.List(context.Background())
	require.NoError(t, err)
	for _, m := range models {
		assert.NotEqual(t, "anthropic", m.Provider)
	}
}

func TestListAppliesModelPolicy(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"anthropic": {APIKey: "sk-ant"},
	}}
	pol := policy.FromConfig(config.PolicyConfig{
		Enforced:         true,
		AllowedProviders: []string{"anthropic"},
		AllowedModels:    []string{"anthropic:claude-opus-4-5"},
	})
	svc := NewService(cfg, pol, nil)

	models, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "anthropic:claude-opus-4-5", models[0].ID)
}

func TestListUsesCache(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"anthropic": {APIKey: "sk-ant"},
	}}
	mem := cache.NewMemory()
	svc := NewService(cfg, nil, mem)

	first, err := svc.List(context.Background())
	require.NoError(t, err)

	// A config change is invisible until the cache entry expires or is
	// invalidated.
	cfg.providers = map[string]domain.ProviderSettings{}
	second, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	svc.Invalidate(context.Background())
	third, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}
