// Package transport implements the request transform pipeline: composable
// http.RoundTripper decorators applied around a base transport. The
// application order is an explicit contract here, not an accident of
// closure nesting: auth-observing wrappers (auto-logout, attribution) go
// outermost, body-rewriting wrappers (cache-control, Codex
// normalization) innermost, so the outer layers see the final header and
// auth state.
package transport

import (
	"bytes"
	"io"
	"net/http"
)

// Middleware wraps a RoundTripper with additional behavior.
type Middleware func(next http.RoundTripper) http.RoundTripper

// Chain composes middlewares around base. The first middleware listed is
// the outermost wrapper.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// Unwrapper is implemented by every decorator in this package so callers
// can inspect the wrapped transport (connection pre-warming hooks and the
// like survive the wrapping).
type Unwrapper interface {
	Unwrap() http.RoundTripper
}

// readBody drains and restores the request body, returning its bytes.
func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

// withBody returns a shallow clone of req carrying the given body.
func withBody(req *http.Request, body []byte) *http.Request {
	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return out
}
