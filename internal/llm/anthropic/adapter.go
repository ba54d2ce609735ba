// Package anthropic adapts the unified chat surface to the Anthropic
// Messages API.
package anthropic

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

const apiVersion = "2023-06-01"

type Adapter struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Headers  map[string]string
	Client   *http.Client
}

func (a *Adapter) Name() string { return a.Provider }
func (a *Adapter) Type() string { return "anthropic" }

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentBlock
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stop        []string  `json:"stop_sequences,omitempty"`
	Tools       []tool    `json:"tools,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use blocks
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result blocks
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

type response struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

type streamEvent struct {
	Type         string        `json:"type"`
	Index        int           `json:"index"`
	Delta        *eventDelta   `json:"delta,omitempty"`
	ContentBlock *contentBlock `json:"content_block,omitempty"`
	Message      *response     `json:"message,omitempty"`
	Usage        *usage        `json:"usage,omitempty"`
}

type eventDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	case "":
		return ""
	default:
		return reason
	}
}

func (a *Adapter) toRequest(req *api.ChatRequest) request {
	ar := request{
		Model:       a.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	if ar.MaxTokens == 0 {
		ar.MaxTokens = 4096
	}
	if req.Stop != nil {
		ar.Stop = req.Stop.Val
	}
	for _, t := range req.Tools {
		ar.Tools = append(ar.Tools, tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system", "developer":
			// The Messages API takes system text as a top-level field.
			if ar.System != "" {
				ar.System += "\n\n"
			}
			ar.System += flattenText(m.Content)
		case "tool":
			ar.Messages = append(ar.Messages, message{
				Role: "user",
				Content: []contentBlock{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   flattenText(m.Content),
				}},
			})
		case "assistant":
			var blocks []contentBlock
			if text := flattenText(m.Content); text != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: text})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, contentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: json.RawMessage(tc.Function.Arguments),
				})
			}
			if len(blocks) > 0 {
				ar.Messages = append(ar.Messages, message{Role: "assistant", Content: blocks})
			}
		default:
			var blocks []contentBlock
			if m.Content.Text != "" && len(m.Content.Parts) == 0 {
				blocks = append(blocks, contentBlock{Type: "text", Text: m.Content.Text})
			}
			for _, part := range m.Content.Parts {
				if part.Type == "text" {
					blocks = append(blocks, contentBlock{Type: "text", Text: part.Text})
				}
			}
			if len(blocks) > 0 {
				ar.Messages = append(ar.Messages, message{Role: "user", Content: blocks})
			}
		}
	}
	return ar
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

func (a *Adapter) headers() map[string]string {
	h := make(map[string]string, len(a.Headers)+2)
	for k, v := range a.Headers {
		h[k] = v
	}
	h["x-api-key"] = a.APIKey
	if _, ok := h["anthropic-version"]; !ok {
		h["anthropic-version"] = apiVersion
	}
	return h
}

func (a *Adapter) url() string {
	return fmt.Sprintf("%s/messages", strings.TrimRight(a.BaseURL, "/"))
}

func toUsage(u usage) *api.ResponseUsage {
	out := &api.ResponseUsage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.InputTokens + u.OutputTokens,
	}
	if u.CacheReadInputTokens > 0 || u.CacheCreationInputTokens > 0 {
		out.PromptTokensDetails = &api.PromptTokensDetails{
			CachedTokens:     u.CacheReadInputTokens,
			CacheWriteTokens: u.CacheCreationInputTokens,
		}
	}
	return out
}

// upstreamErrorResponse mirrors the Anthropic error envelope.
type upstreamErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
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
		api.WithExtension("upstream_type", apiErr.Error.Type),
		api.WithLog(err),
	)
}

func (a *Adapter) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	ar := a.toRequest(req)
	ar.Stream = false

	var resp response
	if err := httpclient.SendRequest(ctx, a.Client, http.MethodPost, a.url(), a.headers(), ar, &resp); err != nil {
		return nil, a.handleUpstreamError(err)
	}

	msg := &api.ChatMessage{Role: "assistant"}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			msg.Content.Text += block.Text
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: api.FunctionCall{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}

	return &api.ChatResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   resp.Model,
		Choices: []api.Choice{{
			Index:        0,
			Message:      msg,
			FinishReason: mapStopReason(resp.StopReason),
		}},
		Usage: toUsage(resp.Usage),
	}, nil
}

func (a *Adapter) Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	ar := a.toRequest(req)
	ar.Stream = true

	ch := make(chan api.StreamResult)
	go func() {
		defer close(ch)

		finalUsage := &api.ResponseUsage{}

		emit := func(resp *api.ChatResponse) bool {
			select {
			case ch <- api.StreamResult{Response: resp}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		err := httpclient.StreamRequest(ctx, a.Client, http.MethodPost, a.url(), a.headers(), ar, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")

			var event streamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return nil
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					finalUsage.PromptTokens = event.Message.Usage.InputTokens
					if d := toUsage(event.Message.Usage).PromptTokensDetails; d != nil {
						finalUsage.PromptTokensDetails = d
					}
				}
			case "content_block_start":
				if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
					emit(&api.ChatResponse{
						Object: "chat.completion.chunk",
						Choices: []api.Choice{{
							Delta: &api.ChatMessage{
								ToolCalls: []api.ToolCall{{
									ID:   event.ContentBlock.ID,
									Type: "function",
									Function: api.FunctionCall{
										Name: event.ContentBlock.Name,
									},
								}},
							},
						}},
					})
				}
			case "content_block_delta":
				if event.Delta == nil {
					return nil
				}
				switch event.Delta.Type {
				case "text_delta":
					emit(&api.ChatResponse{
						Object: "chat.completion.chunk",
						Choices: []api.Choice{{
							Delta: &api.ChatMessage{
								Content: api.Content{Text: event.Delta.Text},
							},
						}},
					})
				case "input_json_delta":
					emit(&api.ChatResponse{
						Object: "chat.completion.chunk",
						Choices: []api.Choice{{
							Delta: &api.ChatMessage{
								ToolCalls: []api.ToolCall{{
									Function: api.FunctionCall{
										Arguments: event.Delta.PartialJSON,
									},
								}},
							},
						}},
					})
				}
			case "message_delta":
				if event.Usage != nil {
					finalUsage.CompletionTokens = event.Usage.OutputTokens
				}
				if event.Delta != nil && event.Delta.StopReason != "" {
					emit(&api.ChatResponse{
						Object: "chat.completion.chunk",
						Choices: []api.Choice{{
							Delta:        &api.ChatMessage{},
							FinishReason: mapStopReason(event.Delta.StopReason),
						}},
					})
				}
			case "message_stop":
				finalUsage.TotalTokens = finalUsage.PromptTokens + finalUsage.CompletionTokens
				emit(&api.ChatResponse{
					Object: "chat.completion.chunk",
					Usage:  finalUsage,
				})
			}
			return nil
		})

		if err != nil {
			select {
			case ch <- api.StreamResult{Err: a.handleUpstreamError(err)}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}
