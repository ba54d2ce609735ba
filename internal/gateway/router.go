// Package gateway decides whether a model request is rewritten to route
// through the shared inference gateway instead of going to the provider
// directly.
package gateway

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/modelmux/modelmux/internal/config"
	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/internal/credentials"
	"github.com/modelmux/modelmux/internal/platform/logger"
)

// Prefix marks an effective model string that dispatches through the
// gateway: "gateway:{provider}/{modelId}".
const Prefix = domain.ProviderGateway + ":"

// eligible is the fixed set of providers the gateway can multiplex. The
// gateway pseudo-provider itself is deliberately absent.
var eligible = map[string]bool{
	domain.ProviderAnthropic: true,
	domain.ProviderOpenAI:    true,
	domain.ProviderXAI:       true,
	domain.ProviderGoogle:    true,
}

// IsGatewayModel reports whether s carries the gateway prefix.
func IsGatewayModel(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// SplitGatewayModel parses "gateway:{provider}/{modelId}". Model IDs may
// contain slashes (OpenRouter-style paths), so only the first slash
// after the prefix delimits.
func SplitGatewayModel(s string) (provider, modelID string, ok bool) {
	if !IsGatewayModel(s) {
		return "", "", false
	}
	rest := strings.TrimPrefix(s, Prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Canonicalize strips any gateway prefix, returning the plain
// "provider:model-id" form. Non-gateway strings pass through unchanged.
func Canonicalize(s string) string {
	if provider, modelID, ok := SplitGatewayModel(s); ok {
		return domain.FormatModelString(provider, modelID)
	}
	return s
}

// Router evaluates gateway routing against freshly loaded configuration.
type Router struct {
	cfg config.Accessor
	log *zap.Logger
}

func NewRouter(cfg config.Accessor) *Router {
	return &Router{cfg: cfg, log: logger.Get()}
}

// ResolveModelString rewrites modelString to its gateway form when every
// routing condition holds, and returns the canonical string otherwise.
//
// The input is canonicalized before evaluation, which makes the function
// idempotent: feeding its own output back in returns the same output. An
// already-prefixed input counts as an explicit gateway request, which
// bypasses the allowlist for back-compat with older clients. modelKey is
// an optional alternate allowlist key supplied by the caller to tolerate
// alias drift.
//
// Routing is best-effort, not validating: malformed or unknown strings
// pass through unchanged.
func (r *Router) ResolveModelString(ctx context.Context, modelString, modelKey string) string {
	explicitlyRequested := IsGatewayModel(modelString)
	canonical := Canonicalize(modelString)

	provider, modelID, err := domain.ParseModelString(canonical)
	if err != nil {
		return modelString
	}
	if !eligible[provider] {
		return canonical
	}

	snap, err := r.cfg.Snapshot()
	if err != nil {
		r.log.Warn("gateway: config read failed, routing direct", zap.Error(err))
		return canonical
	}
	if !snap.Gateway.IsEnabled() {
		return canonical
	}
	if !explicitlyRequested && !r.modelEnabled(snap, canonical, modelKey) {
		return canonical
	}
	if !r.credentialsConfigured(ctx) {
		return canonical
	}

	return Prefix + provider + "/" + modelID
}

// modelEnabled matches the persisted allowlist against both the
// canonical string and the caller-supplied alternate key.
func (r *Router) modelEnabled(snap *config.Snapshot, canonical, modelKey string) bool {
	for _, entry := range snap.Gateway.Models {
		if entry == canonical {
			return true
		}
		if modelKey != "" && entry == modelKey {
			return true
		}
	}
	return false
}

func (r *Router) credentialsConfigured(ctx context.Context) bool {
	providers, err := r.cfg.Providers()
	if err != nil {
		return false
	}
	resolved := credentials.Resolve(ctx, domain.ProviderGateway, providers[domain.ProviderGateway])
	return resolved.Configured
}

// ClearCredentials wipes the stored gateway coupon. Used by the 401
// auto-logout hook; never returns an error to its caller.
func (r *Router) ClearCredentials() {
	if err := r.cfg.ClearGatewayCredentials(); err != nil {
		r.log.Warn("gateway: credential clear failed", zap.Error(err))
	}
}
