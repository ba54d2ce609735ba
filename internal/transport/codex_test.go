package transport

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/modelmux/modelmux/internal/oauth"
)

func connectedTokens() oauth.TokenSource {
	return &oauth.StaticTokenSource{Credentials: oauth.Credentials{
		AccessToken: "at-123",
		AccountID:   "acct-456",
	}}
}

func TestNormalizeCodexBodyForcesTruncation(t *testing.T) {
	out, err := NormalizeCodexBody([]byte(`{"model": "gpt-5.1-codex", "input": []}`))
	require.NoError(t, err)
	assert.Equal(t, "disabled", gjson.GetBytes(out, "truncation").String())

	out, err = NormalizeCodexBody([]byte(`{"model": "gpt-5.1-codex", "input": [], "truncation": "auto"}`))
	require.NoError(t, err)
	assert.Equal(t, "auto", gjson.GetBytes(out, "truncation").String())

	out, err = NormalizeCodexBody([]byte(`{"model": "gpt-5.1-codex", "input": [], "truncation": "enabled"}`))
	require.NoError(t, err)
	assert.Equal(t, "disabled", gjson.GetBytes(out, "truncation").String())
}

func TestNormalizeCodexBodyDisablesStore(t *testing.T) {
	out, err := NormalizeCodexBody([]byte(`{"model": "m", "input": [], "store": true}`))
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(out, "store").Bool())
}

func TestNormalizeCodexBodyRemovesItemReferences(t *testing.T) {
	body := []byte(`{"model": "m", "input": [
		{"type": "item_reference", "id": "rs_123"},
		{"type": "message", "role": "user", "content": "hi"}
	]}`)

	out, err := NormalizeCodexBody(body)
	require.NoError(t, err)

	input := gjson.GetBytes(out, "input").Array()
	require.Len(t, input, 1)
	assert.Equal(t, "message", input[0].Get("type").String())
}

func TestNormalizeCodexBodyLiftsSystemAndDeveloperMessages(t *testing.T) {
	body := []byte(`{"model": "m", "input": [
		{"type": "message", "role": "system", "content": "be terse"},
		{"type": "message", "role": "developer", "content": [{"type": "input_text", "text": "use go"}]},
		{"type": "message", "role": "user", "content": "hi"}
	]}`)

	out, err := NormalizeCodexBody(body)
	require.NoError(t, err)

	assert.Equal(t, "be terse\n\nuse go", gjson.GetBytes(out, "instructions").String())
	input := gjson.GetBytes(out, "input").Array()
	require.Len(t, input, 1)
	assert.Equal(t, "user", input[0].Get("role").String())
}

func TestNormalizeCodexBodyPreservesExistingInstructions(t *testing.T) {
	body := []byte(`{"model": "m", "instructions": "keep me", "input": [
		{"type": "message", "role": "system", "content": "dropped"}
	]}`)

	out, err := NormalizeCodexBody(body)
	require.NoError(t, err)
	assert.Equal(t, "keep me", gjson.GetBytes(out, "instructions").String())
}

func TestNormalizeCodexBodyFallbackInstructions(t *testing.T) {
	out, err := NormalizeCodexBody([]byte(`{"model": "m", "input": []}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultCodexInstructions, gjson.GetBytes(out, "instructions").String())
}

func TestNormalizeCodexBodyStripsUnknownFields(t *testing.T) {
	body := []byte(`{"model": "m", "input": [], "temperature": 0.7, "max_output_tokens": 100, "stream": true}`)

	out, err := NormalizeCodexBody(body)
	require.NoError(t, err)

	assert.False(t, gjson.GetBytes(out, "temperature").Exists())
	assert.False(t, gjson.GetBytes(out, "max_output_tokens").Exists())
	assert.True(t, gjson.GetBytes(out, "stream").Bool())
}

func TestNormalizeCodexBodyRejectsInvalidJSON(t *testing.T) {
	_, err := NormalizeCodexBody([]byte("not json"))
	require.Error(t, err)
}

func TestCodexTransportRedirectsAndAuthenticates(t *testing.T) {
	base := &recorder{}
	rt := Chain(base, CodexNormalizer(connectedTokens(), "https://chatgpt.com/backend-api/codex", true))

	body := []byte(`{"model": "gpt-5.1-codex", "input": []}`)
	req := httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/responses", bytes.NewReader(body))
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)

	assert.Equal(t, "chatgpt.com", base.req.URL.Host)
	assert.Equal(t, "/backend-api/codex/responses", base.req.URL.Path)
	assert.Equal(t, "Bearer at-123", base.req.Header.Get("Authorization"))
	assert.Equal(t, "acct-456", base.req.Header.Get("chatgpt-account-id"))
	assert.NotEmpty(t, base.req.Header.Get("session_id"))
	assert.Equal(t, "disabled", gjson.GetBytes(base.body, "truncation").String())
}

func TestCodexTransportSkipsNonResponsesPaths(t *testing.T) {
	base := &recorder{}
	rt := Chain(base, CodexNormalizer(connectedTokens(), "https://chatgpt.com/backend-api/codex", true))

	req := httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions",
		bytes.NewReader([]byte(`{"model": "gpt-5.2"}`)))
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)

	assert.Equal(t, "api.openai.com", base.req.URL.Host)
	assert.Empty(t, base.req.Header.Get("Authorization"))
}

func TestCodexTransportRequiredPropagatesFailure(t *testing.T) {
	base := &recorder{}
	disconnected := &oauth.StaticTokenSource{}
	rt := Chain(base, CodexNormalizer(disconnected, "https://chatgpt.com/backend-api/codex", true))

	req := httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/responses",
		bytes.NewReader([]byte(`{"model": "m", "input": []}`)))
	_, err := rt.RoundTrip(req)
	require.Error(t, err)
	assert.Nil(t, base.req)
}

func TestCodexTransportOptionalFallsBackToOriginal(t *testing.T) {
	base := &recorder{}
	disconnected := &oauth.StaticTokenSource{}
	rt := Chain(base, CodexNormalizer(disconnected, "https://chatgpt.com/backend-api/codex", false))

	body := []byte(`{"model": "m", "input": []}`)
	req := httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/responses", bytes.NewReader(body))
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)

	assert.Equal(t, "api.openai.com", base.req.URL.Host)
	assert.Equal(t, string(body), string(base.body))
}
