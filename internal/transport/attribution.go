package transport

import (
	"net/http"
)

// Attribution sets default app-identification headers, but only when the
// caller has not already supplied them. Header lookup is case-insensitive
// per net/http canonicalization.
func Attribution(headers map[string]string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return &attributionTransport{next: next, headers: headers}
	}
}

type attributionTransport struct {
	next    http.RoundTripper
	headers map[string]string
}

func (t *attributionTransport) Unwrap() http.RoundTripper { return t.next }

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request; clone before
	// the first write.
	out := req
	for k, v := range t.headers {
		if req.Header.Get(k) != "" {
			continue
		}
		if out == req {
			out = req.Clone(req.Context())
		}
		out.Header.Set(k, v)
	}
	return t.next.RoundTrip(out)
}
