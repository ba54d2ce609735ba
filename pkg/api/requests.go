package api

import "encoding/json"

// ChatRequest is the unified completion request shape. Model strings use
// the "provider:model-id" form; the router resolves them to a concrete
// provider before dispatch.
type ChatRequest struct {
	Model    string        `json:"model" binding:"required"`
	Messages []ChatMessage `json:"messages" binding:"required,min=1,dive"`

	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`

	MaxTokens        int      `json:"max_tokens,omitempty"`
	Temperature      float64  `json:"temperature,omitempty"`
	TopP             float64  `json:"top_p,omitempty"`
	FrequencyPenalty float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64  `json:"presence_penalty,omitempty"`
	Seed             int      `json:"seed,omitempty"`
	Stop             *Stop    `json:"stop,omitempty"`
	User             string   `json:"user,omitempty"`

	// ReasoningEffort maps onto the router's thinking level and, for
	// providers with distinct reasoning model variants, picks the
	// variant. Values: "off", "low", "medium", "high".
	ReasoningEffort string `json:"reasoning_effort,omitempty"`

	Tools      []Tool `json:"tools,omitempty"`
	ToolChoice any    `json:"tool_choice,omitempty"` // "none", "auto", or object

	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ChatMessage struct {
	Role       string     `json:"role" binding:"required,oneof=user assistant system developer tool"`
	Content    Content    `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// Content handles the union type: string | []ContentPart.
type Content struct {
	Text  string
	Parts []ContentPart
}

func (c *Content) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Text)
	}
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &c.Parts)
	}
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

// Stop handles the union type: string | []string.
type Stop struct {
	Val []string
}

func (s *Stop) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &s.Val)
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	s.Val = []string{str}
	return nil
}

func (s Stop) MarshalJSON() ([]byte, error) {
	if len(s.Val) == 1 {
		return json.Marshal(s.Val[0])
	}
	return json.Marshal(s.Val)
}

type Tool struct {
	Type     string              `json:"type"` // "function"
	Function FunctionDescription `json:"function"`
}

type FunctionDescription struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema object
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}
