package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Problem implements RFC 9457 problem details.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]any `json:"-"`

	// Log carries the internal error for server-side logging only.
	Log error `json:"-"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	type alias Problem

	data := make(map[string]any)
	for k, v := range p.Extensions {
		data[k] = v
	}

	stdJSON, _ := json.Marshal(alias(*p))
	_ = json.Unmarshal(stdJSON, &data)

	return json.Marshal(data)
}

type ProblemOption func(*Problem)

// NewError creates a Problem.
func NewError(status int, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:       "about:blank",
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]any),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithExtension adds a custom key-value pair to the response.
func WithExtension(key string, value any) ProblemOption {
	return func(p *Problem) {
		p.Extensions[key] = value
	}
}

// WithLog attaches an internal error for server-side logging.
func WithLog(err error) ProblemOption {
	return func(p *Problem) {
		p.Log = err
	}
}

// WithType sets the RFC "type" URI.
func WithType(uri string) ProblemOption {
	return func(p *Problem) {
		p.Type = uri
	}
}

// ValidationError maps field-level validation failures onto a 400
// Problem with the failing fields in the "errors" extension.
func ValidationError(fields map[string]string) *Problem {
	return NewError(
		http.StatusBadRequest,
		"Validation Failed",
		"One or more request fields failed validation.",
		WithExtension("errors", fields),
	)
}

// InternalError is the catch-all 500 Problem.
func InternalError(detail string, err error) *Problem {
	return NewError(
		http.StatusInternalServerError,
		"Internal Server Error",
		detail,
		WithLog(err),
	)
}
