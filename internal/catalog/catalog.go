// Package catalog serves the model listing: the static model table
// filtered down to providers that are configured, enabled, and allowed
// by policy.
package catalog

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/modelmux/modelmux/internal/cache"
	"github.com/modelmux/modelmux/internal/config"
	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/internal/credentials"
	"github.com/modelmux/modelmux/internal/platform/logger"
	"github.com/modelmux/modelmux/internal/policy"
	"github.com/modelmux/modelmux/pkg/api"
)

const (
	cacheKey = "catalog:models"
	cacheTTL = 5 * time.Minute
)

type Service struct {
	cfg    config.Accessor
	policy policy.Policy
	cache  cache.Service
	log    *zap.Logger
}

func NewService(cfg config.Accessor, pol policy.Policy, c cache.Service) *Service {
	if pol == nil {
		pol = policy.Open()
	}
	return &Service{
		cfg:    cfg,
		policy: pol,
		cache:  c,
		log:    logger.Get(),
	}
}

// List returns the catalog entries for every usable provider, in router
// model-string form.
func (s *Service) List(ctx context.Context) ([]api.ModelInfo, error) {
	if s.cache != nil {
		var cached []api.ModelInfo
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	providers, err := s.cfg.Providers()
	if err != nil {
		return nil, err
	}

	var out []api.ModelInfo
	for provider, models := range knownModels {
		if !s.usable(ctx, provider, providers[provider]) {
			continue
		}
		for _, m := range models {
			if s.policy.Enforced() && !s.policy.ModelAllowed(provider, m.ID) {
				continue
			}
			entry := m
			entry.ID = domain.FormatModelString(provider, m.ID)
			entry.Provider = provider
			out = append(out, entry)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, out, cacheTTL); err != nil {
			s.log.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// Invalidate drops the cached listing, used after config mutations.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		s.log.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) usable(ctx context.Context, provider string, settings domain.ProviderSettings) bool {
	if settings.Disabled {
		return false
	}
	if s.policy.Enforced() && !s.policy.ProviderAllowed(provider) {
		return false
	}
	return credentials.Resolve(ctx, provider, settings).Configured
}
