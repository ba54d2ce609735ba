package llm

import "github.com/modelmux/modelmux/internal/core/domain"

// providerSpec is the declarative metadata that drives the generic
// builder. Providers listed here have no special-case credential or
// transform logic: they speak the OpenAI-compatible wire protocol with a
// bearer key.
type providerSpec struct {
	Name           string
	DefaultBaseURL string
	RequiresKey    bool
	// Attribution headers are injected only when the caller has not set
	// them already.
	Attribution bool
}

// providerTable covers every provider without a bespoke branch.
var providerTable = map[string]providerSpec{
	domain.ProviderXAI: {
		Name:           domain.ProviderXAI,
		DefaultBaseURL: "https://api.x.ai/v1",
		RequiresKey:    true,
	},
	domain.ProviderOllama: {
		Name:           domain.ProviderOllama,
		DefaultBaseURL: "http://localhost:11434/v1",
		RequiresKey:    false,
	},
	domain.ProviderOpenRouter: {
		Name:           domain.ProviderOpenRouter,
		DefaultBaseURL: "https://openrouter.ai/api/v1",
		RequiresKey:    true,
		Attribution:    true,
	},
	domain.ProviderGoogle: {
		Name:           domain.ProviderGoogle,
		DefaultBaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		RequiresKey:    true,
	},
	"mistral": {
		Name:           "mistral",
		DefaultBaseURL: "https://api.mistral.ai/v1",
		RequiresKey:    true,
	},
	"deepseek": {
		Name:           "deepseek",
		DefaultBaseURL: "https://api.deepseek.com/v1",
		RequiresKey:    true,
	},
	"groq": {
		Name:           "groq",
		DefaultBaseURL: "https://api.groq.com/openai/v1",
		RequiresKey:    true,
	},
	"together": {
		Name:           "together",
		DefaultBaseURL: "https://api.together.xyz/v1",
		RequiresKey:    true,
	},
	"fireworks": {
		Name:           "fireworks",
		DefaultBaseURL: "https://api.fireworks.ai/inference/v1",
		RequiresKey:    true,
	},
}
