package transport

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestInjectCacheControlLastToolAndLastPart(t *testing.T) {
	body := []byte(`{
		"model": "claude-sonnet-4-5",
		"tools": [
			{"name": "first"},
			{"name": "second"}
		],
		"messages": [
			{"role": "user", "content": [{"type": "text", "text": "a"}]},
			{"role": "user", "content": [{"type": "text", "text": "b"}, {"type": "text", "text": "c"}]}
		]
	}`)

	out, ok := injectCacheControl(body, "1h")
	require.True(t, ok)

	assert.False(t, gjson.GetBytes(out, "tools.0.cache_control").Exists())
	assert.Equal(t, "ephemeral", gjson.GetBytes(out, "tools.1.cache_control.type").String())
	assert.Equal(t, "1h", gjson.GetBytes(out, "tools.1.cache_control.ttl").String())

	assert.False(t, gjson.GetBytes(out, "messages.0.content.0.cache_control").Exists())
	assert.False(t, gjson.GetBytes(out, "messages.1.content.0.cache_control").Exists())
	assert.Equal(t, "ephemeral", gjson.GetBytes(out, "messages.1.content.1.cache_control.type").String())
}

func TestInjectCacheControlStringContentBecomesParts(t *testing.T) {
	body := []byte(`{"messages": [{"role": "user", "content": "hello"}]}`)

	out, ok := injectCacheControl(body, "5m")
	require.True(t, ok)

	content := gjson.GetBytes(out, "messages.0.content")
	require.True(t, content.IsArray())
	assert.Equal(t, "text", content.Get("0.type").String())
	assert.Equal(t, "hello", content.Get("0.text").String())
	assert.Equal(t, "5m", content.Get("0.cache_control.ttl").String())
}

func TestInjectCacheControlPreservesExistingDirectiveOverridesTTL(t *testing.T) {
	body := []byte(`{
		"tools": [{"name": "t", "cache_control": {"type": "persistent", "ttl": "5m"}}]
	}`)

	out, ok := injectCacheControl(body, "1h")
	require.True(t, ok)

	assert.Equal(t, "persistent", gjson.GetBytes(out, "tools.0.cache_control.type").String())
	assert.Equal(t, "1h", gjson.GetBytes(out, "tools.0.cache_control.ttl").String())
}

func TestInjectCacheControlNonJSONNoOp(t *testing.T) {
	_, ok := injectCacheControl([]byte("not json"), "1h")
	assert.False(t, ok)
}

func TestInjectCacheControlNothingToMark(t *testing.T) {
	_, ok := injectCacheControl([]byte(`{"model": "m"}`), "1h")
	assert.False(t, ok)
}

func TestCacheControlTransportSkipsGET(t *testing.T) {
	base := &recorder{}
	rt := Chain(base, CacheControl(""))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Nil(t, base.body)
}

func TestCacheControlTransportRewritesPOST(t *testing.T) {
	base := &recorder{}
	rt := Chain(base, CacheControl(""))

	body := []byte(`{"messages": [{"role": "user", "content": "hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "http://example.com/messages", bytes.NewReader(body))
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)

	assert.Equal(t, DefaultCacheTTL,
		gjson.GetBytes(base.body, "messages.0.content.0.cache_control.ttl").String())
}

func TestCacheControlTransportPassesThroughUnparsableBody(t *testing.T) {
	base := &recorder{}
	rt := Chain(base, CacheControl(""))

	req := httptest.NewRequest(http.MethodPost, "http://example.com/messages", bytes.NewReader([]byte("plain text")))
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "plain text", string(base.body))
}
