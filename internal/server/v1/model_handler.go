package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modelmux/modelmux/internal/catalog"
	"github.com/modelmux/modelmux/pkg/api"
)

type ModelHandler struct {
	catalog *catalog.Service
}

func NewModelHandler(c *catalog.Service) *ModelHandler {
	return &ModelHandler{catalog: c}
}

// ListModels serves the model catalog in the OpenAI list shape.
func (h *ModelHandler) ListModels(c *gin.Context) {
	models, err := h.catalog.List(c.Request.Context())
	if err != nil {
		_ = c.Error(api.InternalError("Failed to load model catalog", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   models,
	})
}
