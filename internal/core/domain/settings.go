package domain

// ProviderSettings is the persisted per-provider configuration record.
// All fields are optional; an absent provider section behaves like the
// zero value. The settings store is external to this core: we only ever
// read it, and re-read it on every resolution so edits take effect on
// the next call.
type ProviderSettings struct {
	APIKey  string            `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	BaseURL string            `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Headers map[string]string `json:"headers" yaml:"headers" mapstructure:"headers"`

	// Disabled keeps credentials on disk but excludes the provider from
	// routing. Distinct from "not configured".
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`

	// Bedrock
	Region          string `json:"region" yaml:"region" mapstructure:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" mapstructure:"secret_access_key"`
	BearerToken     string `json:"bearer_token" yaml:"bearer_token" mapstructure:"bearer_token"`

	// OpenAI
	Organization string `json:"organization" yaml:"organization" mapstructure:"organization"`
	ServiceTier  string `json:"service_tier" yaml:"service_tier" mapstructure:"service_tier"`
	// PreferOAuth favors the Codex OAuth path even when an API key is
	// configured.
	PreferOAuth bool `json:"prefer_oauth" yaml:"prefer_oauth" mapstructure:"prefer_oauth"`

	// Gateway
	CouponCode string `json:"coupon_code" yaml:"coupon_code" mapstructure:"coupon_code"`

	// Provider-specific extension fields that have no dedicated column.
	Extra map[string]string `json:"extra" yaml:"extra" mapstructure:"extra"`
}
