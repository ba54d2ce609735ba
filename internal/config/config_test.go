package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return &File{Path: path}
}

func TestSnapshotDefaults(t *testing.T) {
	f := &File{Path: filepath.Join(t.TempDir(), "missing.yaml")}

	snap, err := f.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, "8080", snap.Server.Port)
	assert.Equal(t, "development", snap.Server.Env)
	assert.False(t, snap.Redis.Enabled)
	assert.False(t, snap.Store.Enabled)
	assert.Equal(t, 10.0, snap.RateLimit.RequestsPerSecond)
	assert.Equal(t, 20, snap.RateLimit.Burst)
	assert.True(t, snap.Gateway.IsEnabled())
	assert.False(t, snap.Policy.Enforced)
}

func TestSnapshotFromFile(t *testing.T) {
	f := writeConfig(t, `
server:
  port: "9090"
  env: production
  api_keys:
    - key-1
gateway:
  enabled: false
  models:
    - anthropic:claude-sonnet-4-5
policy:
  enforced: true
  allowed_providers:
    - anthropic
rate_limit:
  requests_per_second: 2.5
  burst: 5
`)

	snap, err := f.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, "9090", snap.Server.Port)
	assert.Equal(t, []string{"key-1"}, snap.Server.APIKeys)
	assert.False(t, snap.Gateway.IsEnabled())
	assert.Equal(t, []string{"anthropic:claude-sonnet-4-5"}, snap.Gateway.Models)
	assert.True(t, snap.Policy.Enforced)
	assert.Equal(t, []string{"anthropic"}, snap.Policy.AllowedProviders)
	assert.Equal(t, 2.5, snap.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, snap.RateLimit.Burst)
}

func TestProvidersMissingFileYieldsEmptyMap(t *testing.T) {
	f := &File{Path: filepath.Join(t.TempDir(), "missing.yaml")}

	providers, err := f.Providers()
	require.NoError(t, err)
	assert.Empty(t, providers)
}

func TestProvidersEnvIndirection(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-from-env")

	f := writeConfig(t, `
providers:
  anthropic:
    api_key: "ENV:TEST_ANTHROPIC_KEY"
  xai:
    api_key: "xai-literal"
    base_url: "https://api.x.ai/v1"
  openai:
    disabled: true
`)

	providers, err := f.Providers()
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", providers["anthropic"].APIKey)
	assert.Equal(t, "xai-literal", providers["xai"].APIKey)
	assert.Equal(t, "https://api.x.ai/v1", providers["xai"].BaseURL)
	assert.True(t, providers["openai"].Disabled)
}

func TestProvidersEnvIndirectionUnsetVar(t *testing.T) {
	t.Setenv("TEST_UNSET_KEY", "")

	f := writeConfig(t, `
providers:
  anthropic:
    api_key: "ENV:TEST_UNSET_KEY"
`)

	providers, err := f.Providers()
	require.NoError(t, err)
	assert.Empty(t, providers["anthropic"].APIKey)
}

func TestProvidersBedrockSettings(t *testing.T) {
	f := writeConfig(t, `
providers:
  bedrock:
    region: us-west-2
    access_key_id: AKIA123
    secret_access_key: secret
`)

	providers, err := f.Providers()
	require.NoError(t, err)

	bedrock := providers["bedrock"]
	assert.Equal(t, "us-west-2", bedrock.Region)
	assert.Equal(t, "AKIA123", bedrock.AccessKeyID)
	assert.Equal(t, "secret", bedrock.SecretAccessKey)
}

func TestGatewayConfigIsEnabled(t *testing.T) {
	assert.True(t, GatewayConfig{}.IsEnabled())

	enabled := true
	assert.True(t, GatewayConfig{Enabled: &enabled}.IsEnabled())

	disabled := false
	assert.False(t, GatewayConfig{Enabled: &disabled}.IsEnabled())
}

func TestClearGatewayCredentials(t *testing.T) {
	f := writeConfig(t, `
providers:
  gateway:
    coupon_code: coupon-123
`)

	providers, err := f.Providers()
	require.NoError(t, err)
	require.Equal(t, "coupon-123", providers["gateway"].CouponCode)

	require.NoError(t, f.ClearGatewayCredentials())

	providers, err = f.Providers()
	require.NoError(t, err)
	assert.Empty(t, providers["gateway"].CouponCode)
}
