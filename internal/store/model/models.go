package model

import (
	"database/sql"
	"time"
)

// RequestLog captures the routing outcome and usage of one completed
// inference request.
type RequestLog struct {
	ID string `db:"id" json:"id"`

	// Routing decision fields.
	ModelString          string `db:"model_string" json:"model_string"`
	EffectiveModelString string `db:"effective_model_string" json:"effective_model_string"`
	CanonicalProvider    string `db:"canonical_provider" json:"canonical_provider"`
	CanonicalModelID     string `db:"canonical_model_id" json:"canonical_model_id"`
	RoutedThroughGateway bool   `db:"routed_through_gateway" json:"routed_through_gateway"`
	ThinkingLevel        string `db:"thinking_level" json:"thinking_level"`

	FinishReason string `db:"finish_reason" json:"finish_reason"`

	InputTokens     int `db:"input_tokens" json:"input_tokens"`
	OutputTokens    int `db:"output_tokens" json:"output_tokens"`
	CachedTokens    int `db:"cached_tokens" json:"cached_tokens"`
	ReasoningTokens int `db:"reasoning_tokens" json:"reasoning_tokens"`

	LatencyMS  int64         `db:"latency_ms" json:"latency_ms"`
	TTFTMS     sql.NullInt64 `db:"ttft_ms" json:"ttft_ms,omitempty"`
	StatusCode int           `db:"status_code" json:"status_code"`
	IsStreamed bool          `db:"is_streamed" json:"is_streamed"`

	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DailyStats represents aggregated usage data for a specific day.
type DailyStats struct {
	Date            string  `db:"date" json:"date"`
	TotalRequests   int     `db:"total_requests" json:"total_requests"`
	GatewayRequests int     `db:"gateway_requests" json:"gateway_requests"`
	TotalTokens     int     `db:"total_tokens" json:"total_tokens"`
	AverageLatency  float64 `db:"avg_latency" json:"avg_latency"`
}
