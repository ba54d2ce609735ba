// Package openaicompat speaks the OpenAI chat completions wire protocol
// with a bearer key. It serves OpenAI itself plus every provider that
// exposes a compatible endpoint (xAI, Groq, Mistral, OpenRouter, the
// gateway, Bedrock's OpenAI-compatible surface, and so on).
package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelmux/modelmux/internal/httpclient"
	"github.com/modelmux/modelmux/pkg/api"
)

type Adapter struct {
	Provider     string
	Model        string
	BaseURL      string
	APIKey       string
	Organization string
	Headers      map[string]string
	Client       *http.Client
}

func (a *Adapter) Name() string { return a.Provider }
func (a *Adapter) Type() string { return "openai-compatible" }

func (a *Adapter) headers() map[string]string {
	h := make(map[string]string, len(a.Headers)+2)
	for k, v := range a.Headers {
		h[k] = v
	}
	if a.APIKey != "" {
		h["Authorization"] = "Bearer " + a.APIKey
	}
	if a.Organization != "" {
		h["OpenAI-Organization"] = a.Organization
	}
	return h
}

func (a *Adapter) url() string {
	return fmt.Sprintf("%s/chat/completions", strings.TrimRight(a.BaseURL, "/"))
}

// upstreamErrorResponse mirrors the standard OpenAI error shape.
type upstreamErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Param   any    `json:"param"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (a *Adapter) handleUpstreamError(err error) error {
	var upstreamErr *httpclient.UpstreamError
	if !errors.As(err, &upstreamErr) {
		return err
	}

	var apiErr upstreamErrorResponse
	if jsonErr := json.Unmarshal(upstreamErr.Body, &apiErr); jsonErr != nil || apiErr.Error.Message == "" {
		return api.NewError(
			upstreamErr.StatusCode,
			"Upstream Error",
			string(upstreamErr.Body),
			api.WithLog(err),
		)
	}

	return api.NewError(
		upstreamErr.StatusCode,
		"Upstream Provider Error",
		apiErr.Error.Message,
		api.WithType("about:blank"),
		api.WithExtension("upstream_code", apiErr.Error.Code),
		api.WithExtension("upstream_type", apiErr.Error.Type),
		api.WithExtension("upstream_param", apiErr.Error.Param),
		api.WithLog(err),
	)
}

func (a *Adapter) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	// The caller's model string is the router form; upstream wants the
	// bare model id.
	r := *req
	r.Model = a.Model
	r.Stream = false
	r.StreamOptions = nil

	var resp api.ChatResponse
	if err := httpclient.SendRequest(ctx, a.Client, http.MethodPost, a.url(), a.headers(), &r, &resp); err != nil {
		return nil, a.handleUpstreamError(err)
	}
	if resp.Error != nil {
		return nil, api.NewError(http.StatusBadGateway, "Upstream Provider Error", resp.Error.Message)
	}
	return &resp, nil
}

func (a *Adapter) Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	r := *req
	r.Model = a.Model
	r.Stream = true
	r.StreamOptions = &api.StreamOptions{IncludeUsage: true}

	ch := make(chan api.StreamResult)
	go func() {
		defer close(ch)

		err := httpclient.StreamRequest(ctx, a.Client, http.MethodPost, a.url(), a.headers(), &r, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return nil
			}

			var chunk api.ChatResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				// Skip malformed keep-alive noise rather than kill the
				// stream.
				return nil
			}

			select {
			case ch <- api.StreamResult{Response: &chunk}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})

		if err != nil {
			// The consumer may have gone away with the context; never
			// park on the send.
			select {
			case ch <- api.StreamResult{Err: a.handleUpstreamError(err)}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}
