package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/internal/llm"
	"github.com/modelmux/modelmux/internal/platform/logger"
	"github.com/modelmux/modelmux/internal/server/validator"
	"github.com/modelmux/modelmux/internal/store"
	"github.com/modelmux/modelmux/internal/store/model"
	"github.com/modelmux/modelmux/pkg/api"
)

type ChatHandler struct {
	factory   *llm.Factory
	repo      store.Repository
	validator *validator.Validator
	log       *zap.Logger
}

// NewChatHandler wires the completion endpoint. repo may be nil when
// usage logging is disabled.
func NewChatHandler(factory *llm.Factory, repo store.Repository, v *validator.Validator) *ChatHandler {
	return &ChatHandler{
		factory:   factory,
		repo:      repo,
		validator: v,
		log:       logger.Get(),
	}
}

// thinkingLevel resolves the effort preference: the header wins over the
// request body field.
func thinkingLevel(c *gin.Context, req *api.ChatRequest) domain.ThinkingLevel {
	if h := c.GetHeader("X-Thinking-Level"); h != "" {
		return domain.ParseThinkingLevel(h)
	}
	return domain.ParseThinkingLevel(req.ReasoningEffort)
}

func (h *ChatHandler) CreateCompletion(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
		return
	}

	start := time.Now()
	res, err := h.factory.ResolveAndCreateModel(c.Request.Context(), req.Model, thinkingLevel(c, &req), nil)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if req.Stream {
		h.handleStream(c, &req, res, start)
		return
	}

	resp, err := res.Model.Chat(c.Request.Context(), &req)
	if err != nil {
		h.logUsage(c, &req, res, usageOutcome{
			status:  upstreamStatus(err),
			latency: time.Since(start),
		})
		_ = c.Error(err)
		return
	}

	outcome := usageOutcome{status: http.StatusOK, latency: time.Since(start)}
	if resp.Usage != nil {
		outcome.usage = resp.Usage
	}
	if len(resp.Choices) > 0 {
		outcome.finishReason = resp.Choices[0].FinishReason
	}
	h.logUsage(c, &req, res, outcome)

	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) handleStream(c *gin.Context, req *api.ChatRequest, res *llm.Resolution, start time.Time) {
	streamChan, err := res.Model.Stream(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	outcome := usageOutcome{status: http.StatusOK, streamed: true}
	var ttft time.Duration

	c.Stream(func(w io.Writer) bool {
		result, ok := <-streamChan
		if !ok {
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
			return false
		}

		if ttft == 0 {
			ttft = time.Since(start)
		}

		if result.Err != nil {
			errResp := api.ChatResponse{
				Object: "chat.completion.chunk",
				Error:  &api.ErrorResponse{Message: result.Err.Error()},
				Choices: []api.Choice{{
					Delta:        &api.ChatMessage{},
					FinishReason: "error",
				}},
			}
			data, _ := json.Marshal(errResp)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			outcome.status = upstreamStatus(result.Err)
			return false
		}

		if result.Response != nil {
			if result.Response.Usage != nil {
				outcome.usage = result.Response.Usage
			}
			if len(result.Response.Choices) > 0 && result.Response.Choices[0].FinishReason != "" {
				outcome.finishReason = result.Response.Choices[0].FinishReason
			}
			data, err := json.Marshal(result.Response)
			if err == nil {
				_, err := fmt.Fprintf(w, "data: %s\n\n", data)
				return err == nil
			}
		}
		return true
	})

	outcome.latency = time.Since(start)
	outcome.ttft = ttft
	h.logUsage(c, req, res, outcome)
}

type usageOutcome struct {
	status       int
	finishReason string
	usage        *api.ResponseUsage
	latency      time.Duration
	ttft         time.Duration
	streamed     bool
}

func upstreamStatus(err error) int {
	var problem *api.Problem
	if errors.As(err, &problem) {
		return problem.Status
	}
	return http.StatusBadGateway
}

// logUsage persists the request record off the hot path.
func (h *ChatHandler) logUsage(c *gin.Context, req *api.ChatRequest, res *llm.Resolution, outcome usageOutcome) {
	if h.repo == nil {
		return
	}

	entry := &model.RequestLog{
		ID:                   uuid.NewString(),
		ModelString:          req.Model,
		EffectiveModelString: res.EffectiveModelString,
		CanonicalProvider:    res.CanonicalProvider,
		CanonicalModelID:     res.CanonicalModelID,
		RoutedThroughGateway: res.RoutedThroughGateway,
		ThinkingLevel:        string(domain.ParseThinkingLevel(req.ReasoningEffort)),
		FinishReason:         outcome.finishReason,
		LatencyMS:            outcome.latency.Milliseconds(),
		StatusCode:           outcome.status,
		IsStreamed:           outcome.streamed,
		IPAddress:            c.ClientIP(),
		UserAgent:            c.Request.UserAgent(),
		CreatedAt:            time.Now().UTC(),
	}
	if outcome.ttft > 0 {
		entry.TTFTMS = sql.NullInt64{Int64: outcome.ttft.Milliseconds(), Valid: true}
	}
	if u := outcome.usage; u != nil {
		entry.InputTokens = u.PromptTokens
		entry.OutputTokens = u.CompletionTokens
		if u.PromptTokensDetails != nil {
			entry.CachedTokens = u.PromptTokensDetails.CachedTokens
		}
		if u.CompletionTokensDetails != nil {
			entry.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.repo.Requests().Log(ctx, entry); err != nil {
			h.log.Warn("usage log failed", zap.Error(err))
		}
	}()
}
