// Package credentials derives an ephemeral credential set for a provider
// from its settings record plus the process environment. Resolution is
// recomputed on every call and never cached: credentials may change
// between calls after a settings edit.
package credentials

import (
	"context"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/modelmux/modelmux/internal/core/domain"
)

// Source names which rung of the credential chain produced the result.
type Source string

const (
	SourceNone            Source = "none"
	SourceConfig          Source = "config"
	SourceEnv             Source = "env"
	SourceBearerToken     Source = "bearer_token"
	SourceEnvBearerToken  Source = "env_bearer_token"
	SourceCredentialChain Source = "aws_credential_chain"
	SourceLocal           Source = "local"
	SourceCoupon          Source = "coupon"
)

// Resolved is the normalized credential set for one provider. It is a
// derived value: never persisted, safe to recompute concurrently.
type Resolved struct {
	Configured bool
	Source     Source

	APIKey          string
	BaseURL         string
	Region          string
	CouponCode      string
	Organization    string
	BearerToken     string
	AccessKeyID     string
	SecretAccessKey string
}

// envKeyVars maps providers to the environment variable consulted when
// no explicit API key is configured.
var envKeyVars = map[string]string{
	domain.ProviderAnthropic:  "ANTHROPIC_API_KEY",
	domain.ProviderOpenAI:     "OPENAI_API_KEY",
	domain.ProviderXAI:        "XAI_API_KEY",
	domain.ProviderGoogle:     "GEMINI_API_KEY",
	domain.ProviderOpenRouter: "OPENROUTER_API_KEY",
	"mistral":                 "MISTRAL_API_KEY",
	"deepseek":                "DEEPSEEK_API_KEY",
	"groq":                    "GROQ_API_KEY",
	"together":                "TOGETHER_API_KEY",
	"fireworks":               "FIREWORKS_API_KEY",
}

const (
	bedrockBearerEnv     = "AWS_BEARER_TOKEN_BEDROCK"
	defaultBedrockRegion = "us-east-1"
)

// Resolve derives credentials for the provider. It never fails:
// unresolvable credentials yield Configured == false and the caller
// turns that into a typed error. Field resolution order is explicit
// config value, then environment, then any platform credential chain.
func Resolve(ctx context.Context, provider string, settings domain.ProviderSettings) Resolved {
	switch provider {
	case domain.ProviderOllama:
		// Local service, no credentials required.
		return Resolved{Configured: true, Source: SourceLocal, BaseURL: settings.BaseURL}

	case domain.ProviderGateway:
		return resolveGateway(settings)

	case domain.ProviderBedrock:
		return resolveBedrock(ctx, settings)

	default:
		return resolveAPIKey(provider, settings)
	}
}

func resolveAPIKey(provider string, settings domain.ProviderSettings) Resolved {
	r := Resolved{
		BaseURL:      settings.BaseURL,
		Organization: settings.Organization,
	}
	if settings.APIKey != "" {
		r.APIKey = settings.APIKey
		r.Source = SourceConfig
		r.Configured = true
		return r
	}
	if envVar, ok := envKeyVars[provider]; ok {
		if key := os.Getenv(envVar); key != "" {
			r.APIKey = key
			r.Source = SourceEnv
			r.Configured = true
			return r
		}
	}
	r.Source = SourceNone
	return r
}

func resolveGateway(settings domain.ProviderSettings) Resolved {
	r := Resolved{BaseURL: settings.BaseURL, CouponCode: settings.CouponCode}
	if settings.CouponCode == "" {
		r.Source = SourceNone
		return r
	}
	r.Source = SourceCoupon
	r.Configured = true
	return r
}

// resolveBedrock walks the Bedrock credential chain: explicit access/
// secret pair, configured bearer token, AWS_BEARER_TOKEN_BEDROCK, then
// the ambient AWS SDK default chain. The region resolves from settings,
// then AWS_REGION/AWS_DEFAULT_REGION, then a built-in default.
func resolveBedrock(ctx context.Context, settings domain.ProviderSettings) Resolved {
	r := Resolved{BaseURL: settings.BaseURL}

	r.Region = settings.Region
	if r.Region == "" {
		r.Region = os.Getenv("AWS_REGION")
	}
	if r.Region == "" {
		r.Region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if r.Region == "" {
		r.Region = defaultBedrockRegion
	}

	if settings.AccessKeyID != "" && settings.SecretAccessKey != "" {
		r.AccessKeyID = settings.AccessKeyID
		r.SecretAccessKey = settings.SecretAccessKey
		r.Source = SourceConfig
		r.Configured = true
		return r
	}
	if settings.BearerToken != "" {
		r.BearerToken = settings.BearerToken
		r.Source = SourceBearerToken
		r.Configured = true
		return r
	}
	if token := os.Getenv(bedrockBearerEnv); token != "" {
		r.BearerToken = token
		r.Source = SourceEnvBearerToken
		r.Configured = true
		return r
	}

	// Ambient chain: shared config files, instance metadata, SSO. A
	// failed lookup means "not configured", never an error.
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(r.Region))
	if err != nil {
		r.Source = SourceNone
		return r
	}
	if creds, err := cfg.Credentials.Retrieve(ctx); err == nil && creds.HasKeys() {
		r.AccessKeyID = creds.AccessKeyID
		r.SecretAccessKey = creds.SecretAccessKey
		r.Source = SourceCredentialChain
		r.Configured = true
	} else {
		r.Source = SourceNone
	}
	return r
}
