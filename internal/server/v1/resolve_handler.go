package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modelmux/modelmux/internal/core/domain"
	"github.com/modelmux/modelmux/internal/llm"
	"github.com/modelmux/modelmux/pkg/api"
)

type ResolveHandler struct {
	factory *llm.Factory
}

func NewResolveHandler(factory *llm.Factory) *ResolveHandler {
	return &ResolveHandler{factory: factory}
}

// Resolve is the routing introspection endpoint: it evaluates the full
// routing decision for a model string without sending anything upstream.
func (h *ResolveHandler) Resolve(c *gin.Context) {
	modelString := c.Query("model")
	if modelString == "" {
		_ = c.Error(api.NewError(http.StatusBadRequest, "Missing Parameter",
			"query parameter \"model\" is required"))
		return
	}

	level := domain.ParseThinkingLevel(c.Query("thinking_level"))
	opts := &llm.Options{ModelKey: c.Query("model_key")}

	decision, err := h.factory.Resolve(c.Request.Context(), modelString, level, opts)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, decision)
}
