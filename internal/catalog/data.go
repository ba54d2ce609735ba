package catalog

import "github.com/modelmux/modelmux/pkg/api"

// knownModels is the static catalog served from /v1/models, keyed by
// provider. Entries use the bare upstream model id; the listing prefixes
// them into router form.
var knownModels = map[string][]api.ModelInfo{
	"anthropic": {
		{ID: "claude-opus-4-5", Name: "Claude Opus 4.5", ContextLength: 200000, Reasoning: true},
		{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", ContextLength: 200000, Reasoning: true},
		{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", ContextLength: 200000, Reasoning: true},
	},
	"openai": {
		{ID: "gpt-5.2", Name: "GPT-5.2", ContextLength: 400000, Reasoning: true},
		{ID: "gpt-5.2-pro", Name: "GPT-5.2 Pro", ContextLength: 400000, Reasoning: true},
		{ID: "gpt-5.1-codex", Name: "GPT-5.1 Codex", ContextLength: 400000, Reasoning: true},
		{ID: "gpt-4.1", Name: "GPT-4.1", ContextLength: 1047576},
	},
	"xai": {
		{ID: "grok-4-1-fast-reasoning", Name: "Grok 4.1 Fast (Reasoning)", ContextLength: 2000000, Reasoning: true},
		{ID: "grok-4-1-fast-non-reasoning", Name: "Grok 4.1 Fast", ContextLength: 2000000},
		{ID: "grok-4", Name: "Grok 4", ContextLength: 256000, Reasoning: true},
	},
	"google": {
		{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro", ContextLength: 1048576, Reasoning: true},
		{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", ContextLength: 1048576, Reasoning: true},
	},
	"bedrock": {
		{ID: "anthropic.claude-sonnet-4-5-20250929-v1:0", Name: "Claude Sonnet 4.5 (Bedrock)", ContextLength: 200000, Reasoning: true},
		{ID: "anthropic.claude-haiku-4-5-20251001-v1:0", Name: "Claude Haiku 4.5 (Bedrock)", ContextLength: 200000, Reasoning: true},
	},
	"mistral": {
		{ID: "mistral-large-latest", Name: "Mistral Large", ContextLength: 128000},
		{ID: "mistral-small-latest", Name: "Mistral Small", ContextLength: 128000},
	},
	"deepseek": {
		{ID: "deepseek-chat", Name: "DeepSeek Chat", ContextLength: 128000},
		{ID: "deepseek-reasoner", Name: "DeepSeek Reasoner", ContextLength: 128000, Reasoning: true},
	},
	"groq": {
		{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B", ContextLength: 131072},
	},
	"together": {
		{ID: "meta-llama/Llama-3.3-70B-Instruct-Turbo", Name: "Llama 3.3 70B Turbo", ContextLength: 131072},
	},
	"fireworks": {
		{ID: "accounts/fireworks/models/llama-v3p3-70b-instruct", Name: "Llama 3.3 70B", ContextLength: 131072},
	},
	"openrouter": {
		{ID: "anthropic/claude-sonnet-4.5", Name: "Claude Sonnet 4.5 (OpenRouter)", ContextLength: 200000, Reasoning: true},
		{ID: "openai/gpt-5.2", Name: "GPT-5.2 (OpenRouter)", ContextLength: 400000, Reasoning: true},
	},
	"ollama": {
		{ID: "llama3.2", Name: "Llama 3.2 (local)", ContextLength: 131072},
		{ID: "qwen2.5-coder", Name: "Qwen 2.5 Coder (local)", ContextLength: 32768},
	},
}
