package domain

// Canonical provider names. The gateway entry is a pseudo-provider: it
// multiplexes the others behind a single credential and is never itself
// gateway-routable.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderXAI        = "xai"
	ProviderGoogle     = "google"
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
	ProviderBedrock    = "bedrock"
	ProviderGateway    = "gateway"
)
