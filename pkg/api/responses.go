package api

type ChatResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"` // "chat.completion" or "chat.completion.chunk"
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []Choice       `json:"choices"`
	Usage   *ResponseUsage `json:"usage,omitempty"`

	Error *ErrorResponse `json:"error,omitempty"`
}

type Choice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"` // non-streaming
	Delta        *ChatMessage `json:"delta,omitempty"`   // streaming
	FinishReason string       `json:"finish_reason"`
}

type ResponseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	PromptTokensDetails     *PromptTokensDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
}

type PromptTokensDetails struct {
	CachedTokens     int `json:"cached_tokens"`
	CacheWriteTokens int `json:"cache_write_tokens,omitempty"`
}

type CompletionTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
}

type ErrorResponse struct {
	Code     any            `json:"code,omitempty"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (e *ErrorResponse) Error() string { return e.Message }

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// StreamResult is one element of a streaming response channel.
type StreamResult struct {
	Response *ChatResponse
	Err      error
}

// ModelInfo describes one catalog entry for the models listing.
type ModelInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	ContextLength int    `json:"context_length,omitempty"`
	Reasoning     bool   `json:"reasoning,omitempty"`
}
