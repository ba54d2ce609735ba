package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/modelmux/modelmux/internal/store"
	"github.com/modelmux/modelmux/pkg/api"
)

type UsageHandler struct {
	repo store.Repository
}

func NewUsageHandler(repo store.Repository) *UsageHandler {
	return &UsageHandler{repo: repo}
}

func (h *UsageHandler) Recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := h.repo.Requests().GetRecent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to load request logs", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (h *UsageHandler) DailyStats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		days = 7
	}

	stats, err := h.repo.Requests().GetDailyStats(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to load usage stats", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
