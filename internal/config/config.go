package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/modelmux/modelmux/internal/core/domain"
)

// Accessor is the read surface over the persisted configuration. The
// routing core re-reads configuration on every resolution instead of
// caching it: credentials can change between two calls (a settings edit,
// a key rotation) and a stale snapshot would authenticate with the wrong
// key. Implementations must therefore not memoize internally.
type Accessor interface {
	// Providers returns the per-provider settings records. A missing
	// config file yields an empty map, never an error.
	Providers() (map[string]domain.ProviderSettings, error)

	// Snapshot returns the global (non-provider) configuration.
	Snapshot() (*Snapshot, error)

	// ClearGatewayCredentials removes the stored gateway coupon so the
	// next read reflects a logged-out state. Best effort.
	ClearGatewayCredentials() error
}

// Snapshot is a point-in-time view of the global configuration.
type Snapshot struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Policy    PolicyConfig    `mapstructure:"policy"`
}

type ServerConfig struct {
	Port    string   `mapstructure:"port"`
	Env     string   `mapstructure:"env"`
	APIKeys []string `mapstructure:"api_keys"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type StoreConfig struct {
	DSN     string `mapstructure:"dsn"`
	Enabled bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// GatewayConfig controls routing through the shared inference gateway.
// Enabled defaults to true unless explicitly disabled; Models is the
// persisted per-model allowlist in canonical "provider:model-id" form.
type GatewayConfig struct {
	Enabled *bool    `mapstructure:"enabled"`
	Models  []string `mapstructure:"models"`
}

// IsEnabled applies the default-true semantics.
func (g GatewayConfig) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// PolicyConfig is an optional administrative policy. When Enforced is
// false the allow-lists are ignored.
type PolicyConfig struct {
	Enforced         bool              `mapstructure:"enforced"`
	AllowedProviders []string          `mapstructure:"allowed_providers"`
	AllowedModels    []string          `mapstructure:"allowed_models"`
	ForcedBaseURLs   map[string]string `mapstructure:"forced_base_urls"`
}

// File is the viper-backed Accessor. Each call builds a fresh viper
// instance and re-reads the file, preserving the always-fresh invariant.
type File struct {
	// Path optionally pins an exact config file. When empty the usual
	// search paths apply.
	Path string
}

func NewFile(path string) *File {
	_ = godotenv.Load()
	return &File{Path: path}
}

func (f *File) load() (*viper.Viper, error) {
	v := viper.New()

	if f.Path != "" {
		v.SetConfigFile(f.Path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.dsn", "file:modelmux.db?cache=shared&mode=rwc&_journal_mode=WAL")
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if os.IsNotExist(err) {
				return v, nil
			}
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

func (f *File) Snapshot() (*Snapshot, error) {
	v, err := f.load()
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := v.Unmarshal(&snap); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &snap, nil
}

func (f *File) Providers() (map[string]domain.ProviderSettings, error) {
	v, err := f.load()
	if err != nil {
		return nil, err
	}

	providers := make(map[string]domain.ProviderSettings)
	if err := v.UnmarshalKey("providers", &providers); err != nil {
		return nil, fmt.Errorf("unable to decode providers: %w", err)
	}

	// Resolve "ENV:VAR" API-key indirection at read time so callers only
	// ever see concrete values.
	for name, p := range providers {
		if strings.HasPrefix(p.APIKey, "ENV:") {
			envVar := strings.TrimPrefix(p.APIKey, "ENV:")
			p.APIKey = os.Getenv(envVar)
			providers[name] = p
		}
	}

	return providers, nil
}

func (f *File) ClearGatewayCredentials() error {
	v, err := f.load()
	if err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		return nil
	}
	v.Set("providers.gateway.coupon_code", "")
	return v.WriteConfig()
}
