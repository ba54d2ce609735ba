package llm

import (
	"github.com/modelmux/modelmux/internal/core/domain"
)

// modelVariants maps a provider's base model ID to its reasoning and
// non-reasoning catalog variants, for providers that expose both as
// distinct model IDs. Substitution happens before gateway and credential
// resolution so routing always sees the concrete variant.
type modelVariants struct {
	Reasoning    string
	NonReasoning string
}

var thinkingVariants = map[string]map[string]modelVariants{
	domain.ProviderXAI: {
		"grok-4-1-fast": {
			Reasoning:    "grok-4-1-fast-reasoning",
			NonReasoning: "grok-4-1-fast-non-reasoning",
		},
	},
}

// applyThinkingVariant substitutes the model variant matching the
// thinking level. Inputs that already name a concrete variant are
// re-normalized, so a caller asking for the reasoning variant with
// thinking off gets the non-reasoning one.
func applyThinkingVariant(provider, modelID string, level domain.ThinkingLevel) string {
	families, ok := thinkingVariants[provider]
	if !ok {
		return modelID
	}

	family := modelID
	for base, v := range families {
		if modelID == v.Reasoning || modelID == v.NonReasoning {
			family = base
			break
		}
	}

	v, ok := families[family]
	if !ok {
		return modelID
	}
	if level == domain.ThinkingOff || level == "" {
		return v.NonReasoning
	}
	return v.Reasoning
}
