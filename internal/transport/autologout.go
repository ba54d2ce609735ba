package transport

import (
	"net/http"
)

// AutoLogout observes response status after dispatch and, on a 401,
// invokes clear so locally stored gateway credentials are wiped and the
// UI reflects the logged-out state on its next read. The clear itself is
// best-effort and must never fail the request.
func AutoLogout(clear func()) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return &autoLogoutTransport{next: next, clear: clear}
	}
}

type autoLogoutTransport struct {
	next  http.RoundTripper
	clear func()
}

func (t *autoLogoutTransport) Unwrap() http.RoundTripper { return t.next }

func (t *autoLogoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusUnauthorized && t.clear != nil {
		func() {
			defer func() { _ = recover() }()
			t.clear()
		}()
	}
	return resp, err
}
