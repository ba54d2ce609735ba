package domain

import (
	"fmt"
	"strings"
)

// ThinkingLevel selects how much reasoning effort a model should spend.
// For providers whose catalog exposes reasoning and non-reasoning variants
// as distinct model IDs, the factory substitutes the matching variant
// before routing.
type ThinkingLevel string

const (
	ThinkingOff    ThinkingLevel = "off"
	ThinkingLow    ThinkingLevel = "low"
	ThinkingMedium ThinkingLevel = "medium"
	ThinkingHigh   ThinkingLevel = "high"
)

// ParseThinkingLevel normalizes a user-supplied effort string. Empty and
// unknown values return the empty level, meaning no preference.
func ParseThinkingLevel(s string) ThinkingLevel {
	switch l := ThinkingLevel(strings.ToLower(s)); l {
	case ThinkingOff, ThinkingLow, ThinkingMedium, ThinkingHigh:
		return l
	}
	return ""
}

// ParseModelString splits a "provider:model-id" string on the FIRST colon.
// Model IDs may themselves contain colons (Ollama tags like "llama3:8b"),
// so only the first colon delimits.
func ParseModelString(s string) (provider, modelID string, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model string %q: want provider:model-id", s)
	}
	return parts[0], parts[1], nil
}

// FormatModelString is the inverse of ParseModelString.
func FormatModelString(provider, modelID string) string {
	return provider + ":" + modelID
}

// RoutingDecision describes how a model request was resolved.
// EffectiveModelString is what is actually dispatched; the canonical form
// has any gateway prefix stripped.
type RoutingDecision struct {
	EffectiveModelString string `json:"effective_model_string"`
	CanonicalModelString string `json:"canonical_model_string"`
	CanonicalProvider    string `json:"canonical_provider"`
	CanonicalModelID     string `json:"canonical_model_id"`
	RoutedThroughGateway bool   `json:"routed_through_gateway"`
}
