package llm

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/modelmux/modelmux/internal/config"
	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/internal/credentials"
	"github.com/modelmux/modelmux/internal/gateway"
	"github.com/modelmux/modelmux/internal/oauth"
	"github.com/modelmux/modelmux/internal/platform/logger"
	"github.com/modelmux/modelmux/internal/policy"
)

// defaultAttribution identifies the app to providers that require
// attribution (OpenRouter rankings, gateway usage accounting). Injected
// only when the caller has not set the headers already.
var defaultAttribution = map[string]string{
	"HTTP-Referer": "https://github.com/modelmux/modelmux",
	"X-Title":      "ModelMux",
}

// Factory resolves model strings into ready-to-use provider handles. It
// holds no mutable state shared across calls except the memoized builder
// cache; configuration and credentials are re-read on every call.
type Factory struct {
	cfg    config.Accessor
	policy policy.Policy
	tokens oauth.TokenSource
	router *gateway.Router

	loaders *loaderCache
	log     *zap.Logger

	// BaseTransport is the innermost RoundTripper each pipeline wraps.
	// Nil means http.DefaultTransport. Tests inject a recorder here.
	BaseTransport http.RoundTripper
}

func NewFactory(cfg config.Accessor, pol policy.Policy, tokens oauth.TokenSource) *Factory {
	if pol == nil {
		pol = policy.Open()
	}
	return &Factory{
		cfg:     cfg,
		policy:  pol,
		tokens:  tokens,
		router:  gateway.NewRouter(cfg),
		loaders: newLoaderCache(),
		log:     logger.Get(),
	}
}

// buildInput carries everything a provider builder needs.
type buildInput struct {
	// Provider is the dispatch target: the gateway pseudo-provider when
	// routed, otherwise the canonical provider.
	Provider string
	// CanonicalProvider stays the user-facing provider even when routed.
	CanonicalProvider string
	ModelID           string
	Effective         string
	Routed            bool
	Settings          domain.ProviderSettings
	Creds             credentials.Resolved
	BaseURL           string
	Headers           map[string]string
}

// CreateModel resolves modelString and returns a bound provider handle.
// All failures are *domain.ResolveError values with a closed kind set.
func (f *Factory) CreateModel(ctx context.Context, modelString string, opts *Options) (Provider, error) {
	res, err := f.resolve(ctx, modelString, opts)
	if err != nil {
		return nil, err
	}
	return res.Model, nil
}

// ResolveAndCreateModel applies the thinking-level variant policy, then
// resolves routing, credentials, and the provider handle, returning the
// full routing decision alongside the handle.
func (f *Factory) ResolveAndCreateModel(ctx context.Context, modelString string, level domain.ThinkingLevel, opts *Options) (*Resolution, error) {
	canonical := gateway.Canonicalize(modelString)
	if provider, modelID, err := domain.ParseModelString(canonical); err == nil {
		substituted := applyThinkingVariant(provider, modelID, level)
		if substituted != modelID {
			modelString = domain.FormatModelString(provider, substituted)
		}
	}
	return f.resolve(ctx, modelString, opts)
}

func (f *Factory) resolve(ctx context.Context, modelString string, opts *Options) (res *Resolution, err error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, span := otel.Tracer("modelmux/llm").Start(ctx, "resolve_model")
	defer span.End()

	// Provider construction may touch SDK code paths outside our
	// control; anything unexpected becomes the catch-all kind instead of
	// a crash.
	defer func() {
		if r := recover(); r != nil {
			err = domain.WrapUnknown("", fmt.Errorf("model resolution panicked: %v", r))
		}
	}()

	canonical := gateway.Canonicalize(modelString)
	provider, modelID, parseErr := domain.ParseModelString(canonical)
	if parseErr != nil {
		return nil, domain.NewResolveError(domain.KindInvalidModelString, "", parseErr.Error())
	}

	effective := canonical
	if !opts.DisableGateway {
		effective = f.router.ResolveModelString(ctx, modelString, opts.ModelKey)
	}
	routed := gateway.IsGatewayModel(effective)

	if !f.supported(provider) {
		return nil, domain.NewResolveError(domain.KindProviderNotSupported, provider,
			fmt.Sprintf("provider %q is not supported", provider))
	}

	// Policy is checked before any credential resolution and fails
	// closed.
	if f.policy.Enforced() {
		if !f.policy.ProviderAllowed(provider) {
			return nil, domain.NewResolveError(domain.KindPolicyDenied, provider,
				fmt.Sprintf("provider %q is not allowed by policy", provider))
		}
		if !f.policy.ModelAllowed(provider, modelID) {
			return nil, domain.NewResolveError(domain.KindPolicyDenied, provider,
				fmt.Sprintf("model %q is not allowed by policy", modelID))
		}
	}

	providers, cfgErr := f.cfg.Providers()
	if cfgErr != nil {
		return nil, domain.WrapUnknown(provider, cfgErr)
	}
	settings := providers[provider]
	if settings.Disabled {
		return nil, domain.NewResolveError(domain.KindProviderDisabled, provider,
			fmt.Sprintf("provider %q is disabled", provider))
	}

	dispatch := provider
	dispatchSettings := settings
	if routed {
		dispatch = domain.ProviderGateway
		dispatchSettings = providers[domain.ProviderGateway]
		if dispatchSettings.Disabled {
			return nil, domain.NewResolveError(domain.KindProviderDisabled, dispatch,
				fmt.Sprintf("provider %q is disabled", dispatch))
		}
	}

	baseURL := dispatchSettings.BaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	if forced, ok := f.policy.ForcedBaseURL(dispatch); ok {
		baseURL = forced
	}

	headers := make(map[string]string, len(dispatchSettings.Headers)+len(opts.Headers))
	for k, v := range dispatchSettings.Headers {
		headers[k] = v
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	creds := credentials.Resolve(ctx, dispatch, dispatchSettings)

	b, loadErr := f.loadBuilder(dispatch)
	if loadErr != nil {
		return nil, domain.WrapUnknown(provider, loadErr)
	}

	model, buildErr := b(ctx, f, buildInput{
		Provider:          dispatch,
		CanonicalProvider: provider,
		ModelID:           modelID,
		Effective:         effective,
		Routed:            routed,
		Settings:          dispatchSettings,
		Creds:             creds,
		BaseURL:           baseURL,
		Headers:           headers,
	})
	if buildErr != nil {
		return nil, domain.WrapUnknown(provider, buildErr)
	}

	span.SetAttributes(
		attribute.String("model.canonical", canonical),
		attribute.String("model.effective", effective),
		attribute.Bool("model.gateway", routed),
	)
	f.log.Debug("model resolved",
		zap.String("model", canonical),
		zap.String("effective", effective),
		zap.Bool("gateway", routed),
	)

	return &Resolution{
		Model: model,
		RoutingDecision: domain.RoutingDecision{
			EffectiveModelString: effective,
			CanonicalModelString: canonical,
			CanonicalProvider:    provider,
			CanonicalModelID:     modelID,
			RoutedThroughGateway: routed,
		},
	}, nil
}

// Resolve evaluates routing only, without constructing a handle. Used by
// the introspection endpoint.
func (f *Factory) Resolve(ctx context.Context, modelString string, level domain.ThinkingLevel, opts *Options) (*domain.RoutingDecision, error) {
	res, err := f.ResolveAndCreateModel(ctx, modelString, level, opts)
	if err != nil {
		return nil, err
	}
	return &res.RoutingDecision, nil
}

func (f *Factory) supported(provider string) bool {
	switch provider {
	case domain.ProviderAnthropic, domain.ProviderOpenAI, domain.ProviderBedrock, domain.ProviderGateway:
		return true
	}
	_, ok := providerTable[provider]
	return ok
}

// loadBuilder memoizes the provider branch on first use, standing in for
// the lazy provider SDK import.
func (f *Factory) loadBuilder(provider string) (builder, error) {
	return f.loaders.get(provider, func() builder {
		switch provider {
		case domain.ProviderAnthropic:
			return buildAnthropic
		case domain.ProviderOpenAI:
			return buildOpenAI
		case domain.ProviderBedrock:
			return buildBedrock
		case domain.ProviderGateway:
			return buildGateway
		default:
			return buildGeneric
		}
	})
}
