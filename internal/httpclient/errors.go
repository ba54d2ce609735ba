package httpclient

import "fmt"

// UpstreamError is a non-2xx response from a provider backend.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d: %s", e.URL, e.StatusCode, string(e.Body))
}
