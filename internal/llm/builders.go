package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/internal/gateway"
	"github.com/modelmux/modelmux/internal/llm/anthropic"
	"github.com/modelmux/modelmux/internal/llm/codex"
	"github.com/modelmux/modelmux/internal/llm/openaicompat"
	"github.com/modelmux/modelmux/internal/transport"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1"
	openaiDefaultBaseURL    = "https://api.openai.com/v1"
	codexDefaultBaseURL     = "https://chatgpt.com/backend-api/codex"
	gatewayDefaultBaseURL   = "https://gateway.modelmux.dev/api/v1"

	clientTimeout = 5 * time.Minute
)

// newClient assembles the transform pipeline around the factory's base
// transport. The first middleware listed ends up outermost.
func (f *Factory) newClient(mws ...transport.Middleware) *http.Client {
	return &http.Client{
		Timeout:   clientTimeout,
		Transport: transport.Chain(f.BaseTransport, mws...),
	}
}

func buildAnthropic(_ context.Context, f *Factory, in buildInput) (Provider, error) {
	if !in.Creds.Configured {
		return nil, domain.NewResolveError(domain.KindAPIKeyNotFound, in.Provider,
			"API key not found for provider \"anthropic\"")
	}
	baseURL := in.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	client := f.newClient(transport.CacheControl(in.Settings.Extra["cache_ttl"]))
	return &anthropic.Adapter{
		Provider: in.Provider,
		Model:    in.ModelID,
		BaseURL:  baseURL,
		APIKey:   in.Creds.APIKey,
		Headers:  in.Headers,
		Client:   client,
	}, nil
}

// modelRequiresOAuth reports whether the model is only reachable via the
// Codex OAuth backend.
func modelRequiresOAuth(modelID string) bool {
	return strings.Contains(modelID, "codex")
}

// buildOpenAI implements the dual-mode routing policy: OAuth is used
// when the model requires it, when no API key is configured, or when the
// stored preference favors OAuth over an available key.
func buildOpenAI(ctx context.Context, f *Factory, in buildInput) (Provider, error) {
	requiresOAuth := modelRequiresOAuth(in.ModelID)
	wantOAuth := requiresOAuth || in.Settings.PreferOAuth || !in.Creds.Configured

	if wantOAuth {
		connected := false
		if f.tokens != nil {
			if _, err := f.tokens.Valid(ctx); err == nil {
				connected = true
			}
		}
		if connected {
			return f.buildCodex(in)
		}
		if requiresOAuth {
			return nil, domain.NewResolveError(domain.KindOAuthNotConnected, in.Provider,
				fmt.Sprintf("model %q requires a connected OpenAI account", in.ModelID))
		}
		if !in.Creds.Configured {
			return nil, domain.NewResolveError(domain.KindAPIKeyNotFound, in.Provider,
				"API key not found for provider \"openai\"")
		}
		// Preference favored OAuth but no grant is stored; fall back to
		// the configured key.
	}

	baseURL := in.BaseURL
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	return &openaicompat.Adapter{
		Provider:     in.Provider,
		Model:        in.ModelID,
		BaseURL:      baseURL,
		APIKey:       in.Creds.APIKey,
		Organization: in.Creds.Organization,
		Headers:      in.Headers,
		Client:       f.newClient(),
	}, nil
}

func (f *Factory) buildCodex(in buildInput) (Provider, error) {
	baseURL := in.BaseURL
	if baseURL == "" {
		baseURL = codexDefaultBaseURL
	}
	// The normalizer is required here: a transform failure must
	// propagate rather than leak a broken request to the key-based
	// backend.
	client := f.newClient(transport.CodexNormalizer(f.tokens, baseURL, true))
	return &codex.Adapter{
		Provider: in.Provider,
		Model:    in.ModelID,
		BaseURL:  baseURL,
		Headers:  in.Headers,
		Client:   client,
	}, nil
}

func buildBedrock(_ context.Context, f *Factory, in buildInput) (Provider, error) {
	if !in.Creds.Configured {
		return nil, domain.NewResolveError(domain.KindAPIKeyNotFound, in.Provider,
			"no AWS credentials found for provider \"bedrock\"")
	}
	baseURL := in.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com/openai/v1", in.Creds.Region)
	}

	adapter := &openaicompat.Adapter{
		Provider: in.Provider,
		Model:    in.ModelID,
		BaseURL:  baseURL,
		Headers:  in.Headers,
	}
	if in.Creds.BearerToken != "" {
		adapter.APIKey = in.Creds.BearerToken
		adapter.Client = f.newClient()
		return adapter, nil
	}

	// Key-pair and ambient-chain credentials sign with SigV4 instead of
	// a bearer header.
	var provider aws.CredentialsProvider = awscreds.NewStaticCredentialsProvider(
		in.Creds.AccessKeyID, in.Creds.SecretAccessKey, "")
	adapter.Client = f.newClient(transport.SigV4(provider, "bedrock", in.Creds.Region))
	return adapter, nil
}

func buildGateway(_ context.Context, f *Factory, in buildInput) (Provider, error) {
	if !in.Creds.Configured {
		return nil, domain.NewResolveError(domain.KindAPIKeyNotFound, in.Provider,
			"gateway coupon code not found")
	}
	baseURL := in.BaseURL
	if baseURL == "" {
		baseURL = gatewayDefaultBaseURL
	}

	// Auto-logout observes the final response, so it wraps outermost;
	// body rewrites sit closest to the serialized payload.
	mws := []transport.Middleware{
		transport.AutoLogout(f.router.ClearCredentials),
		transport.Attribution(defaultAttribution),
	}
	if in.CanonicalProvider == domain.ProviderAnthropic {
		mws = append(mws, transport.CacheControl(in.Settings.Extra["cache_ttl"]))
	}

	return &openaicompat.Adapter{
		Provider: in.Provider,
		Model:    strings.TrimPrefix(in.Effective, gateway.Prefix),
		BaseURL:  baseURL,
		APIKey:   in.Creds.CouponCode,
		Headers:  in.Headers,
		Client:   f.newClient(mws...),
	}, nil
}

// buildGeneric serves every provider in the declarative table.
func buildGeneric(_ context.Context, f *Factory, in buildInput) (Provider, error) {
	spec, ok := providerTable[in.Provider]
	if !ok {
		return nil, domain.NewResolveError(domain.KindProviderNotSupported, in.Provider,
			fmt.Sprintf("provider %q is not supported", in.Provider))
	}
	if spec.RequiresKey && !in.Creds.Configured {
		return nil, domain.NewResolveError(domain.KindAPIKeyNotFound, in.Provider,
			fmt.Sprintf("API key not found for provider %q", in.Provider))
	}

	baseURL := in.BaseURL
	if baseURL == "" {
		baseURL = spec.DefaultBaseURL
	}

	var mws []transport.Middleware
	if spec.Attribution {
		mws = append(mws, transport.Attribution(defaultAttribution))
	}

	return &openaicompat.Adapter{
		Provider: in.Provider,
		Model:    in.ModelID,
		BaseURL:  baseURL,
		APIKey:   in.Creds.APIKey,
		Headers:  in.Headers,
		Client:   f.newClient(mws...),
	}, nil
}
