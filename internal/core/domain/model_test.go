package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		provider string
		modelID  string
		wantErr  bool
	}{
		{name: "simple", input: "anthropic:claude-sonnet-4-5", provider: "anthropic", modelID: "claude-sonnet-4-5"},
		{name: "model id with colon", input: "ollama:llama3:8b", provider: "ollama", modelID: "llama3:8b"},
		{name: "model id with slash", input: "openrouter:anthropic/claude-sonnet-4.5", provider: "openrouter", modelID: "anthropic/claude-sonnet-4.5"},
		{name: "no colon", input: "gpt-4", wantErr: true},
		{name: "empty provider", input: ":model", wantErr: true},
		{name: "empty model", input: "openai:", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, modelID, err := ParseModelString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, provider)
			assert.Equal(t, tt.modelID, modelID)
		})
	}
}

func TestFormatModelStringRoundTrip(t *testing.T) {
	s := FormatModelString("ollama", "llama3:8b")
	assert.Equal(t, "ollama:llama3:8b", s)

	provider, modelID, err := ParseModelString(s)
	require.NoError(t, err)
	assert.Equal(t, "ollama", provider)
	assert.Equal(t, "llama3:8b", modelID)
}

func TestParseThinkingLevel(t *testing.T) {
	assert.Equal(t, ThinkingOff, ParseThinkingLevel("off"))
	assert.Equal(t, ThinkingHigh, ParseThinkingLevel("HIGH"))
	assert.Equal(t, ThinkingLevel(""), ParseThinkingLevel(""))
	assert.Equal(t, ThinkingLevel(""), ParseThinkingLevel("maximum"))
}

func TestWrapUnknownPassesTypedErrorsThrough(t *testing.T) {
	typed := NewResolveError(KindPolicyDenied, "openai", "nope")
	wrapped := WrapUnknown("openai", typed)
	assert.Same(t, typed, wrapped)
	assert.Equal(t, KindPolicyDenied, KindOf(wrapped))

	generic := WrapUnknown("openai", assert.AnError)
	assert.Equal(t, KindUnknown, generic.Kind)
}
