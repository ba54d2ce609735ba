package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/modelmux/modelmux/internal/oauth"
)

// DefaultCodexInstructions is used when a request carries no system or
// developer content at all; the OAuth endpoint requires the field.
const DefaultCodexInstructions = "You are a helpful coding assistant."

// codexAllowedFields is the fixed allow-list of request fields the OAuth
// completion endpoint accepts. Anything else is rejected upstream, so it
// is stripped here.
var codexAllowedFields = map[string]bool{
	"model":               true,
	"instructions":        true,
	"input":               true,
	"tools":               true,
	"tool_choice":         true,
	"parallel_tool_calls": true,
	"reasoning":           true,
	"store":               true,
	"stream":              true,
	"include":             true,
	"truncation":          true,
	"text":                true,
	"prompt_cache_key":    true,
}

// CodexNormalizer rewrites POST requests to the completion endpoint for
// the Codex OAuth backend: it normalizes the body (truncation, field
// allow-list, reference stripping, instruction lifting), injects a fresh
// bearer token and account identifier from the token source immediately
// before sending, and redirects the request to the OAuth endpoint.
//
// When required is true the request MUST go through OAuth, so any
// internal transform failure propagates: silently falling back would
// leak a broken request to the key-based backend. When required is
// false, failures fall back to the unmodified request.
func CodexNormalizer(tokens oauth.TokenSource, endpoint string, required bool) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return &codexTransport{next: next, tokens: tokens, endpoint: endpoint, required: required}
	}
}

type codexTransport struct {
	next     http.RoundTripper
	tokens   oauth.TokenSource
	endpoint string
	required bool
}

func (t *codexTransport) Unwrap() http.RoundTripper { return t.next }

func (t *codexTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/responses") {
		return t.next.RoundTrip(req)
	}

	out, err := t.transform(req)
	if err != nil {
		if t.required {
			return nil, fmt.Errorf("codex transform: %w", err)
		}
		return t.next.RoundTrip(req)
	}
	return t.next.RoundTrip(out)
}

func (t *codexTransport) transform(req *http.Request) (*http.Request, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}
	rewritten, err := NormalizeCodexBody(body)
	if err != nil {
		return nil, err
	}

	creds, err := t.tokens.Valid(req.Context())
	if err != nil {
		return nil, err
	}

	out := withBody(req, rewritten)
	target, err := url.Parse(strings.TrimSuffix(t.endpoint, "/") + "/responses")
	if err != nil {
		return nil, err
	}
	out.URL = target
	out.Host = target.Host

	out.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	if creds.AccountID != "" {
		out.Header.Set("chatgpt-account-id", creds.AccountID)
	}
	out.Header.Set("session_id", uuid.NewString())
	return out, nil
}

// NormalizeCodexBody applies the body-level Codex rewrites. Exported for
// the pipeline tests.
func NormalizeCodexBody(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	out := body

	// The OAuth path always disables server-side storage, so truncation
	// must be explicit unless the caller deliberately asked for auto.
	if gjson.GetBytes(out, "truncation").String() != "auto" {
		var err error
		out, err = sjson.SetBytes(out, "truncation", "disabled")
		if err != nil {
			return nil, err
		}
	}
	out, _ = sjson.SetBytes(out, "store", false)

	out, instructions, err := rewriteInput(out)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(out, "instructions").Exists() || gjson.GetBytes(out, "instructions").String() == "" {
		if instructions == "" {
			instructions = DefaultCodexInstructions
		}
		if out, err = sjson.SetBytes(out, "instructions", instructions); err != nil {
			return nil, err
		}
	}

	// Strip fields the endpoint does not recognize.
	for _, field := range rootFields(out) {
		if !codexAllowedFields[field] {
			if out, err = sjson.DeleteBytes(out, field); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// rewriteInput removes reference-only items (they depend on server-side
// storage, which this path disables) and lifts system/developer message
// content out of the input array, returning it as instruction text.
func rewriteInput(body []byte) ([]byte, string, error) {
	input := gjson.GetBytes(body, "input")
	if !input.IsArray() {
		return body, "", nil
	}

	var kept []string
	var lifted []string
	input.ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() == "item_reference" {
			return true
		}
		role := item.Get("role").String()
		if role == "system" || role == "developer" {
			if text := itemText(item); text != "" {
				lifted = append(lifted, text)
			}
			return true
		}
		kept = append(kept, item.Raw)
		return true
	})

	raw := "[" + strings.Join(kept, ",") + "]"
	out, err := sjson.SetRawBytes(body, "input", []byte(raw))
	if err != nil {
		return nil, "", err
	}
	return out, strings.Join(lifted, "\n\n"), nil
}

// itemText extracts the text of a message item, whether its content is a
// bare string or a list of input_text parts.
func itemText(item gjson.Result) string {
	content := item.Get("content")
	if content.Type == gjson.String {
		return content.String()
	}
	var parts []string
	content.ForEach(func(_, part gjson.Result) bool {
		switch part.Get("type").String() {
		case "input_text", "text":
			parts = append(parts, part.Get("text").String())
		}
		return true
	})
	return strings.Join(parts, "\n")
}

func rootFields(body []byte) []string {
	var fields []string
	gjson.ParseBytes(body).ForEach(func(key, _ gjson.Result) bool {
		fields = append(fields, key.String())
		return true
	})
	return fields
}
