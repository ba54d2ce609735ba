// Package codex adapts the unified chat surface to the OpenAI Responses
// API as served by the ChatGPT Codex backend. Authentication, the
// instructions lift, and field normalization live in the transport
// pipeline; the adapter only converts between the two wire shapes.
package codex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelmux/modelmux/internal/httpclient"
	"github.com/modelmux/modelmux/pkg/api"
)

type Adapter struct {
	Provider string
	Model    string
	BaseURL  string
	Headers  map[string]string
	Client   *http.Client
}

func (a *Adapter) Name() string { return a.Provider }
func (a *Adapter) Type() string { return "codex" }

type inputItem struct {
	Type string `json:"type"`

	// message items
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`

	// function_call / function_call_output items
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolDef struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type request struct {
	Model       string      `json:"model"`
	Input       []inputItem `json:"input"`
	Tools       []toolDef   `json:"tools,omitempty"`
	ToolChoice  any         `json:"tool_choice,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
	TopP        float64     `json:"top_p,omitempty"`
	Stream      bool        `json:"stream"`
	Store       bool        `json:"store"`
}

type responseUsage struct {
	InputTokens        int `json:"input_tokens"`
	OutputTokens       int `json:"output_tokens"`
	TotalTokens        int `json:"total_tokens"`
	InputTokensDetails struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details"`
	OutputTokensDetails struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details"`
}

type responseObject struct {
	ID    string         `json:"id"`
	Model string         `json:"model"`
	Usage *responseUsage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type streamEvent struct {
	Type     string          `json:"type"`
	Delta    string          `json:"delta"`
	Item     *inputItem      `json:"item"`
	Response *responseObject `json:"response"`
}

func (a *Adapter) toRequest(req *api.ChatRequest) request {
	r := request{
		Model:       a.Model,
		ToolChoice:  req.ToolChoice,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      true,
		Store:       false,
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "tool":
			r.Input = append(r.Input, inputItem{
				Type:   "function_call_output",
				CallID: m.ToolCallID,
				Output: m.Content.Text,
			})
		case "assistant":
			if text := flattenText(m.Content); text != "" {
				r.Input = append(r.Input, inputItem{
					Type:    "message",
					Role:    "assistant",
					Content: []contentPart{{Type: "output_text", Text: text}},
				})
			}
			for _, tc := range m.ToolCalls {
				r.Input = append(r.Input, inputItem{
					Type:      "function_call",
					CallID:    tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
		default:
			// System and developer items pass through here; the
			// transport normalizer lifts them into instructions.
			r.Input = append(r.Input, inputItem{
				Type:    "message",
				Role:    m.Role,
				Content: []contentPart{{Type: "input_text", Text: flattenText(m.Content)}},
			})
		}
	}

	for _, t := range req.Tools {
		r.Tools = append(r.Tools, toolDef{
			Type:        "function",
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	return r
}

func flattenText(c api.Content) string {
	if len(c.Parts) == 0 {
		return c.Text
	}
	var parts []string
	for _, p := range c.Parts {
		if p.Type == "text" && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (a *Adapter) url() string {
	return fmt.Sprintf("%s/responses", strings.TrimRight(a.BaseURL, "/"))
}

func toUsage(u *responseUsage) *api.ResponseUsage {
	if u == nil {
		return nil
	}
	out := &api.ResponseUsage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.InputTokensDetails.CachedTokens > 0 {
		out.PromptTokensDetails = &api.PromptTokensDetails{
			CachedTokens: u.InputTokensDetails.CachedTokens,
		}
	}
	if u.OutputTokensDetails.ReasoningTokens > 0 {
		out.CompletionTokensDetails = &api.CompletionTokensDetails{
			ReasoningTokens: u.OutputTokensDetails.ReasoningTokens,
		}
	}
	return out
}

// Chat aggregates the stream: the Codex backend only serves streamed
// responses.
func (a *Adapter) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	msg := &api.ChatMessage{Role: "assistant"}
	out := &api.ChatResponse{
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   a.Model,
	}
	finish := "stop"

	err := a.stream(ctx, req, func(event streamEvent) {
		switch event.Type {
		case "response.output_text.delta":
			msg.Content.Text += event.Delta
		case "response.output_item.done":
			if event.Item != nil && event.Item.Type == "function_call" {
				msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
					ID:   event.Item.CallID,
					Type: "function",
					Function: api.FunctionCall{
						Name:      event.Item.Name,
						Arguments: event.Item.Arguments,
					},
				})
				finish = "tool_calls"
			}
		case "response.completed":
			if event.Response != nil {
				out.ID = event.Response.ID
				if event.Response.Model != "" {
					out.Model = event.Response.Model
				}
				out.Usage = toUsage(event.Response.Usage)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	out.Choices = []api.Choice{{
		Index:        0,
		Message:      msg,
		FinishReason: finish,
	}}
	return out, nil
}

func (a *Adapter) Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	ch := make(chan api.StreamResult)
	go func() {
		defer close(ch)

		emit := func(resp *api.ChatResponse) {
			select {
			case ch <- api.StreamResult{Response: resp}:
			case <-ctx.Done():
			}
		}

		err := a.stream(ctx, req, func(event streamEvent) {
			switch event.Type {
			case "response.output_text.delta":
				emit(&api.ChatResponse{
					Object: "chat.completion.chunk",
					Model:  a.Model,
					Choices: []api.Choice{{
						Delta: &api.ChatMessage{
							Content: api.Content{Text: event.Delta},
						},
					}},
				})
			case "response.output_item.done":
				if event.Item != nil && event.Item.Type == "function_call" {
					emit(&api.ChatResponse{
						Object: "chat.completion.chunk",
						Model:  a.Model,
						Choices: []api.Choice{{
							Delta: &api.ChatMessage{
								ToolCalls: []api.ToolCall{{
									ID:   event.Item.CallID,
									Type: "function",
									Function: api.FunctionCall{
										Name:      event.Item.Name,
										Arguments: event.Item.Arguments,
									},
								}},
							},
						}},
					})
				}
			case "response.completed":
				chunk := &api.ChatResponse{
					Object: "chat.completion.chunk",
					Model:  a.Model,
					Choices: []api.Choice{{
						Delta:        &api.ChatMessage{},
						FinishReason: "stop",
					}},
				}
				if event.Response != nil {
					chunk.ID = event.Response.ID
					chunk.Usage = toUsage(event.Response.Usage)
				}
				emit(chunk)
			}
		})

		if err != nil {
			select {
			case ch <- api.StreamResult{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

func (a *Adapter) stream(ctx context.Context, req *api.ChatRequest, onEvent func(streamEvent)) error {
	body := a.toRequest(req)

	var failed error
	err := httpclient.StreamRequest(ctx, a.Client, http.MethodPost, a.url(), a.Headers, body, func(line string) error {
		if !strings.HasPrefix(line, "data: ") {
			return nil
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return nil
		}
		if event.Type == "response.failed" {
			msg := "response failed"
			if event.Response != nil && event.Response.Error != nil {
				msg = event.Response.Error.Message
			}
			failed = api.NewError(http.StatusBadGateway, "Upstream Provider Error", msg)
			return nil
		}
		onEvent(event)
		return nil
	})
	if err != nil {
		var upstreamErr *httpclient.UpstreamError
		if errors.As(err, &upstreamErr) {
			return api.NewError(upstreamErr.StatusCode, "Upstream Error",
				string(upstreamErr.Body), api.WithLog(err))
		}
		return err
	}
	return failed
}
