package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelmux/modelmux/internal/config"
	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/internal/llm/anthropic"
	"github.com/modelmux/modelmux/internal/llm/codex"
	"github.com/modelmux/modelmux/internal/llm/openaicompat"
	"github.com/modelmux/modelmux/internal/oauth"
	"github.com/modelmux/modelmux/internal/policy"
)

// fakeConfig is an in-memory config.Accessor for factory tests.
type fakeConfig struct {
	snap      config.Snapshot
	providers map[string]domain.ProviderSettings
}

func (f *fakeConfig) Providers() (map[string]domain.ProviderSettings, error) {
	if f.providers == nil {
		return map[string]domain.ProviderSettings{}, nil
	}
	return f.providers, nil
}

func (f *fakeConfig) Snapshot() (*config.Snapshot, error) {
	snap := f.snap
	return &snap, nil
}

func (f *fakeConfig) ClearGatewayCredentials() error { return nil }

func newTestFactory(cfg *fakeConfig, pol policy.Policy, tokens oauth.TokenSource) *Factory {
	return NewFactory(cfg, pol, tokens)
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "XAI_API_KEY", "GEMINI_API_KEY",
		"AWS_BEARER_TOKEN_BEDROCK",
	} {
		t.Setenv(v, "")
	}
}

func TestCreateModelInvalidModelString(t *testing.T) {
	f := newTestFactory(&fakeConfig{}, nil, nil)

	_, err := f.CreateModel(context.Background(), "gpt-4", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidModelString, domain.KindOf(err))
}

func TestCreateModelUnsupportedProvider(t *testing.T) {
	f := newTestFactory(&fakeConfig{}, nil, nil)

	_, err := f.CreateModel(context.Background(), "unknownai:some-model", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindProviderNotSupported, domain.KindOf(err))
}

func TestCreateModelDisabledProvider(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"anthropic": {APIKey: "sk-ant", Disabled: true},
	}}
	f := newTestFactory(cfg, nil, nil)

	_, err := f.CreateModel(context.Background(), "anthropic:claude-sonnet-4-5", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindProviderDisabled, domain.KindOf(err))
}

func TestCreateModelAPIKeyNotFound(t *testing.T) {
	clearProviderEnv(t)
	f := newTestFactory(&fakeConfig{}, nil, nil)

	_, err := f.CreateModel(context.Background(), "anthropic:claude-sonnet-4-5", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindAPIKeyNotFound, domain.KindOf(err))
}

func TestCreateModelPolicyDeniedBeforeCredentials(t *testing.T) {
	// The provider has no credentials at all; policy must still win.
	clearProviderEnv(t)
	pol := policy.FromConfig(config.PolicyConfig{
		Enforced:         true,
		AllowedProviders: []string{"openai"},
	})
	f := newTestFactory(&fakeConfig{}, pol, nil)

	_, err := f.CreateModel(context.Background(), "anthropic:claude-sonnet-4-5", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindPolicyDenied, domain.KindOf(err))
}

func TestCreateModelPolicyDeniesModel(t *testing.T) {
	clearProviderEnv(t)
	pol := policy.FromConfig(config.PolicyConfig{
		Enforced:         true,
		AllowedProviders: []string{"anthropic"},
		AllowedModels:    []string{"anthropic:claude-haiku-4-5"},
	})
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"anthropic": {APIKey: "sk-ant"},
	}}
	f := newTestFactory(cfg, pol, nil)

	_, err := f.CreateModel(context.Background(), "anthropic:claude-sonnet-4-5", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindPolicyDenied, domain.KindOf(err))

	_, err = f.CreateModel(context.Background(), "anthropic:claude-haiku-4-5", nil)
	require.NoError(t, err)
}

func TestCreateModelAnthropic(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"anthropic": {APIKey: "sk-ant"},
	}}
	f := newTestFactory(cfg, nil, nil)

	model, err := f.CreateModel(context.Background(), "anthropic:claude-sonnet-4-5", nil)
	require.NoError(t, err)

	adapter, ok := model.(*anthropic.Adapter)
	require.True(t, ok)
	assert.Equal(t, "anthropic", adapter.Name())
	assert.Equal(t, "claude-sonnet-4-5", adapter.Model)
	assert.Equal(t, "sk-ant", adapter.APIKey)
}

func TestCreateModelTableProvider(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"xai": {APIKey: "xai-key"},
	}}
	f := newTestFactory(cfg, nil, nil)

	model, err := f.CreateModel(context.Background(), "xai:grok-4", nil)
	require.NoError(t, err)

	adapter, ok := model.(*openaicompat.Adapter)
	require.True(t, ok)
	assert.Equal(t, "xai", adapter.Name())
	assert.Equal(t, "https://api.x.ai/v1", adapter.BaseURL)
	assert.Equal(t, "xai-key", adapter.APIKey)
}

func TestCreateModelOllamaNeedsNoKey(t *testing.T) {
	clearProviderEnv(t)
	f := newTestFactory(&fakeConfig{}, nil, nil)

	model, err := f.CreateModel(context.Background(), "ollama:llama3:8b", nil)
	require.NoError(t, err)

	adapter, ok := model.(*openaicompat.Adapter)
	require.True(t, ok)
	assert.Equal(t, "llama3:8b", adapter.Model)
	assert.Equal(t, "http://localhost:11434/v1", adapter.BaseURL)
}

func TestCreateModelBaseURLPrecedence(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"xai": {APIKey: "xai-key", BaseURL: "https://settings.example.com/v1"},
	}}

	f := newTestFactory(cfg, nil, nil)
	model, err := f.CreateModel(context.Background(), "xai:grok-4", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://settings.example.com/v1", model.(*openaicompat.Adapter).BaseURL)

	model, err = f.CreateModel(context.Background(), "xai:grok-4", &Options{BaseURL: "https://opts.example.com/v1"})
	require.NoError(t, err)
	assert.Equal(t, "https://opts.example.com/v1", model.(*openaicompat.Adapter).BaseURL)

	pol := policy.FromConfig(config.PolicyConfig{
		ForcedBaseURLs: map[string]string{"xai": "https://forced.example.com/v1"},
	})
	f = newTestFactory(cfg, pol, nil)
	model, err = f.CreateModel(context.Background(), "xai:grok-4", &Options{BaseURL: "https://opts.example.com/v1"})
	require.NoError(t, err)
	assert.Equal(t, "https://forced.example.com/v1", model.(*openaicompat.Adapter).BaseURL)
}

func TestCreateModelOpenAIKeyMode(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"openai": {APIKey: "sk-oai", Organization: "org-1"},
	}}
	f := newTestFactory(cfg, nil, &oauth.StaticTokenSource{})

	model, err := f.CreateModel(context.Background(), "openai:gpt-5.2", nil)
	require.NoError(t, err)

	adapter, ok := model.(*openaicompat.Adapter)
	require.True(t, ok)
	assert.Equal(t, "sk-oai", adapter.APIKey)
	assert.Equal(t, "org-1", adapter.Organization)
}

func TestCreateModelCodexRequiresOAuth(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"openai": {APIKey: "sk-oai"},
	}}

	// Disconnected: a codex model cannot fall back to the API key.
	f := newTestFactory(cfg, nil, &oauth.StaticTokenSource{})
	_, err := f.CreateModel(context.Background(), "openai:gpt-5.1-codex", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindOAuthNotConnected, domain.KindOf(err))

	// Connected: the codex adapter is used even though a key exists.
	connected := &oauth.StaticTokenSource{Credentials: oauth.Credentials{AccessToken: "at"}}
	f = newTestFactory(cfg, nil, connected)
	model, err := f.CreateModel(context.Background(), "openai:gpt-5.1-codex", nil)
	require.NoError(t, err)
	_, ok := model.(*codex.Adapter)
	assert.True(t, ok)
}

func TestCreateModelOpenAIPreferOAuthFallsBackToKey(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"openai": {APIKey: "sk-oai", PreferOAuth: true},
	}}
	f := newTestFactory(cfg, nil, &oauth.StaticTokenSource{})

	model, err := f.CreateModel(context.Background(), "openai:gpt-5.2", nil)
	require.NoError(t, err)
	adapter, ok := model.(*openaicompat.Adapter)
	require.True(t, ok)
	assert.Equal(t, "sk-oai", adapter.APIKey)
}

func TestCreateModelBedrockBearer(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"bedrock": {BearerToken: "bearer-1", Region: "us-west-2"},
	}}
	f := newTestFactory(cfg, nil, nil)

	model, err := f.CreateModel(context.Background(), "bedrock:anthropic.claude-sonnet-4-5-20250929-v1:0", nil)
	require.NoError(t, err)

	adapter, ok := model.(*openaicompat.Adapter)
	require.True(t, ok)
	assert.Equal(t, "bearer-1", adapter.APIKey)
	assert.Contains(t, adapter.BaseURL, "us-west-2")
	assert.Equal(t, "anthropic.claude-sonnet-4-5-20250929-v1:0", adapter.Model)
}

func TestResolveAndCreateModelGatewayRouting(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{
		snap: config.Snapshot{
			Gateway: config.GatewayConfig{Models: []string{"anthropic:claude-sonnet-4-5"}},
		},
		providers: map[string]domain.ProviderSettings{
			"anthropic": {APIKey: "sk-ant"},
			"gateway":   {CouponCode: "coupon-1"},
		},
	}
	f := newTestFactory(cfg, nil, nil)

	res, err := f.ResolveAndCreateModel(context.Background(), "anthropic:claude-sonnet-4-5", "", nil)
	require.NoError(t, err)

	assert.True(t, res.RoutedThroughGateway)
	assert.Equal(t, "gateway:anthropic/claude-sonnet-4-5", res.EffectiveModelString)
	assert.Equal(t, "anthropic:claude-sonnet-4-5", res.CanonicalModelString)
	assert.Equal(t, "anthropic", res.CanonicalProvider)

	adapter, ok := res.Model.(*openaicompat.Adapter)
	require.True(t, ok)
	assert.Equal(t, "gateway", adapter.Name())
	assert.Equal(t, "anthropic/claude-sonnet-4-5", adapter.Model)
	assert.Equal(t, "coupon-1", adapter.APIKey)
}

func TestResolveAndCreateModelGatewayProviderDisabled(t *testing.T) {
	// Routing conditions hold, but the gateway pseudo-provider itself is
	// disabled; the dispatch target's flag must win.
	clearProviderEnv(t)
	cfg := &fakeConfig{
		snap: config.Snapshot{
			Gateway: config.GatewayConfig{Models: []string{"anthropic:claude-sonnet-4-5"}},
		},
		providers: map[string]domain.ProviderSettings{
			"anthropic": {APIKey: "sk-ant"},
			"gateway":   {CouponCode: "coupon-1", Disabled: true},
		},
	}
	f := newTestFactory(cfg, nil, nil)

	_, err := f.ResolveAndCreateModel(context.Background(), "anthropic:claude-sonnet-4-5", "", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindProviderDisabled, domain.KindOf(err))
}

func TestCreateModelDisableGatewayOption(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{
		snap: config.Snapshot{
			Gateway: config.GatewayConfig{Models: []string{"anthropic:claude-sonnet-4-5"}},
		},
		providers: map[string]domain.ProviderSettings{
			"anthropic": {APIKey: "sk-ant"},
			"gateway":   {CouponCode: "coupon-1"},
		},
	}
	f := newTestFactory(cfg, nil, nil)

	res, err := f.ResolveAndCreateModel(context.Background(), "anthropic:claude-sonnet-4-5", "", &Options{DisableGateway: true})
	require.NoError(t, err)
	assert.False(t, res.RoutedThroughGateway)
	_, ok := res.Model.(*anthropic.Adapter)
	assert.True(t, ok)
}

func TestResolveAndCreateModelThinkingVariants(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"xai": {APIKey: "xai-key"},
	}}
	f := newTestFactory(cfg, nil, nil)

	res, err := f.ResolveAndCreateModel(context.Background(), "xai:grok-4-1-fast", domain.ThinkingHigh, nil)
	require.NoError(t, err)
	assert.Equal(t, "grok-4-1-fast-reasoning", res.CanonicalModelID)

	res, err = f.ResolveAndCreateModel(context.Background(), "xai:grok-4-1-fast", domain.ThinkingOff, nil)
	require.NoError(t, err)
	assert.Equal(t, "grok-4-1-fast-non-reasoning", res.CanonicalModelID)

	// An already-suffixed variant is re-normalized against the level.
	res, err = f.ResolveAndCreateModel(context.Background(), "xai:grok-4-1-fast-reasoning", domain.ThinkingOff, nil)
	require.NoError(t, err)
	assert.Equal(t, "grok-4-1-fast-non-reasoning", res.CanonicalModelID)

	// Models without variants pass through untouched.
	res, err = f.ResolveAndCreateModel(context.Background(), "xai:grok-4", domain.ThinkingHigh, nil)
	require.NoError(t, err)
	assert.Equal(t, "grok-4", res.CanonicalModelID)
}

func TestResolveReturnsDecisionOnly(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"xai": {APIKey: "xai-key"},
	}}
	f := newTestFactory(cfg, nil, nil)

	decision, err := f.Resolve(context.Background(), "xai:grok-4", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "xai", decision.CanonicalProvider)
	assert.Equal(t, "grok-4", decision.CanonicalModelID)
	assert.False(t, decision.RoutedThroughGateway)
}

func TestBuilderMemoization(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"anthropic": {APIKey: "sk-ant"},
		"xai":       {APIKey: "xai-key"},
	}}
	f := newTestFactory(cfg, nil, nil)

	_, err := f.CreateModel(context.Background(), "anthropic:claude-sonnet-4-5", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.loaders.size())

	_, err = f.CreateModel(context.Background(), "anthropic:claude-haiku-4-5", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.loaders.size())

	_, err = f.CreateModel(context.Background(), "xai:grok-4", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, f.loaders.size())
}

func TestCreateModelMergesHeaders(t *testing.T) {
	clearProviderEnv(t)
	cfg := &fakeConfig{providers: map[string]domain.ProviderSettings{
		"xai": {APIKey: "xai-key", Headers: map[string]string{"X-Base": "base", "X-Both": "base"}},
	}}
	f := newTestFactory(cfg, nil, nil)

	model, err := f.CreateModel(context.Background(), "xai:grok-4", &Options{
		Headers: map[string]string{"X-Both": "override", "X-Extra": "extra"},
	})
	require.NoError(t, err)

	adapter := model.(*openaicompat.Adapter)
	assert.Equal(t, "base", adapter.Headers["X-Base"])
	assert.Equal(t, "override", adapter.Headers["X-Both"])
	assert.Equal(t, "extra", adapter.Headers["X-Extra"])
}

func TestModelRequiresOAuth(t *testing.T) {
	assert.True(t, modelRequiresOAuth("gpt-5.1-codex"))
	assert.True(t, modelRequiresOAuth("gpt-5.1-codex-mini"))
	assert.False(t, modelRequiresOAuth("gpt-5.2"))
}
