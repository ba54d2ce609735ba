package llm

import (
	"context"

	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/pkg/api"
)

// Provider is the model handle returned to the caller: a send-completion
// object bound to a specific transport and provider adapter. A handle is
// owned by the caller for the lifetime of one request or stream; handles
// built from different credentials are never shared.
type Provider interface {
	Name() string
	Type() string // wire protocol: "openai-compatible", "anthropic", "codex"
	Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
	Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error)
}

// Resolution bundles the model handle with its routing metadata.
type Resolution struct {
	Model Provider
	domain.RoutingDecision
}

// Options tune a single resolution. All fields are optional.
type Options struct {
	// ModelKey is an alternate gateway-allowlist key, matched alongside
	// the canonical model string to tolerate alias drift.
	ModelKey string
	// BaseURL overrides the provider base URL for this call. A
	// policy-forced base URL still wins.
	BaseURL string
	// Headers are merged over the configured provider headers.
	Headers map[string]string
	// DisableGateway skips gateway routing for this call.
	DisableGateway bool
}
