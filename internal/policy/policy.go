package policy

import (
	"strings"

	"go.uber.org/zap"

	"github.com/modelmux/modelmux/internal/config"
	"github.com/modelmux/modelmux/internal/platform/logger"
)

// Policy is the administrative policy consulted read-only during model
// resolution. When enforced, provider and model checks fail closed.
type Policy interface {
	Enforced() bool
	ProviderAllowed(provider string) bool
	ModelAllowed(provider, modelID string) bool
	// ForcedBaseURL returns a base URL override for the provider, if any.
	ForcedBaseURL(provider string) (string, bool)
}

// FromConfig builds a Policy over a fixed policy section.
func FromConfig(cfg config.PolicyConfig) Policy {
	return &configPolicy{cfg: cfg}
}

// FromAccessor builds a Policy that re-reads the persisted policy
// section on every predicate call, so edits take effect without a
// restart. A failed config read fails closed.
func FromAccessor(cfg config.Accessor) Policy {
	return &accessorPolicy{cfg: cfg, log: logger.Get()}
}

// Open is the permissive policy used when no policy section is present.
func Open() Policy {
	return &configPolicy{}
}

type configPolicy struct {
	cfg config.PolicyConfig
}

func (p *configPolicy) Enforced() bool { return p.cfg.Enforced }

func (p *configPolicy) ProviderAllowed(provider string) bool {
	if !p.cfg.Enforced {
		return true
	}
	for _, allowed := range p.cfg.AllowedProviders {
		if strings.EqualFold(allowed, provider) {
			return true
		}
	}
	return false
}

// ModelAllowed matches entries of the form "provider:model-id" or the
// wildcard "provider:*". An empty allow-list under enforcement denies
// everything.
func (p *configPolicy) ModelAllowed(provider, modelID string) bool {
	if !p.cfg.Enforced {
		return true
	}
	for _, allowed := range p.cfg.AllowedModels {
		if strings.EqualFold(allowed, provider+":"+modelID) {
			return true
		}
		if strings.EqualFold(allowed, provider+":*") {
			return true
		}
	}
	return false
}

func (p *configPolicy) ForcedBaseURL(provider string) (string, bool) {
	url, ok := p.cfg.ForcedBaseURLs[provider]
	if !ok || url == "" {
		return "", false
	}
	return url, true
}

type accessorPolicy struct {
	cfg config.Accessor
	log *zap.Logger
}

func (p *accessorPolicy) load() *configPolicy {
	snap, err := p.cfg.Snapshot()
	if err != nil {
		p.log.Warn("policy: config read failed, failing closed", zap.Error(err))
		return &configPolicy{cfg: config.PolicyConfig{Enforced: true}}
	}
	return &configPolicy{cfg: snap.Policy}
}

func (p *accessorPolicy) Enforced() bool { return p.load().Enforced() }

func (p *accessorPolicy) ProviderAllowed(provider string) bool {
	return p.load().ProviderAllowed(provider)
}

func (p *accessorPolicy) ModelAllowed(provider, modelID string) bool {
	return p.load().ModelAllowed(provider, modelID)
}

func (p *accessorPolicy) ForcedBaseURL(provider string) (string, bool) {
	return p.load().ForcedBaseURL(provider)
}
