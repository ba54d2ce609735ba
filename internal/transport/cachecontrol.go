package transport

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DefaultCacheTTL is the prompt-cache retention applied when no explicit
// TTL is configured.
const DefaultCacheTTL = "1h"

// CacheControl injects Anthropic prompt-cache directives into outgoing
// JSON bodies: one on the last tool definition and one on the last
// content part of the last message. Directives the SDK already set are
// preserved, but their TTL is overridden with the configured value.
//
// The rewrite must never hard-fail a request: non-JSON or unparsable
// bodies pass through unmodified.
func CacheControl(ttl string) Middleware {
	if ttl == "" {
		ttl = DefaultCacheTTL
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return &cacheControlTransport{next: next, ttl: ttl}
	}
}

type cacheControlTransport struct {
	next http.RoundTripper
	ttl  string
}

func (t *cacheControlTransport) Unwrap() http.RoundTripper { return t.next }

func (t *cacheControlTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPost || req.Body == nil {
		return t.next.RoundTrip(req)
	}
	body, err := readBody(req)
	if err != nil {
		return t.next.RoundTrip(req)
	}
	rewritten, ok := injectCacheControl(body, t.ttl)
	if !ok {
		return t.next.RoundTrip(req)
	}
	return t.next.RoundTrip(withBody(req, rewritten))
}

// injectCacheControl returns the rewritten body and whether a rewrite
// applied. A false return means "send the original".
func injectCacheControl(body []byte, ttl string) ([]byte, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	out := body
	changed := false

	// Last tool definition caches all tool definitions before it.
	if tools := gjson.GetBytes(out, "tools"); tools.IsArray() {
		if n := len(tools.Array()); n > 0 {
			out, changed = setDirective(out, fmt.Sprintf("tools.%d.cache_control", n-1), ttl, changed)
		}
	}

	// Last content part of the last message marks the conversation
	// prefix as cacheable.
	msgs := gjson.GetBytes(out, "messages")
	if msgs.IsArray() {
		arr := msgs.Array()
		if n := len(arr); n > 0 {
			content := arr[n-1].Get("content")
			switch {
			case content.IsArray() && len(content.Array()) > 0:
				path := fmt.Sprintf("messages.%d.content.%d.cache_control", n-1, len(content.Array())-1)
				out, changed = setDirective(out, path, ttl, changed)
			case content.Type == gjson.String:
				part := map[string]any{
					"type":          "text",
					"text":          content.String(),
					"cache_control": map[string]string{"type": "ephemeral", "ttl": ttl},
				}
				if updated, err := sjson.SetBytes(out, fmt.Sprintf("messages.%d.content", n-1), []any{part}); err == nil {
					out = updated
					changed = true
				}
			}
		}
	}

	if !changed {
		return nil, false
	}
	return out, true
}

func setDirective(body []byte, path, ttl string, changed bool) ([]byte, bool) {
	if gjson.GetBytes(body, path).Exists() {
		// Keep whatever directive type the SDK chose; the configured TTL
		// wins over the SDK default.
		if updated, err := sjson.SetBytes(body, path+".ttl", ttl); err == nil {
			return updated, true
		}
		return body, changed
	}
	updated, err := sjson.SetBytes(body, path, map[string]string{"type": "ephemeral", "ttl": ttl})
	if err != nil {
		return body, changed
	}
	return updated, true
}
