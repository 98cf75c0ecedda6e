package followup

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"textback_backend/platform/httpkit"
	"textback_backend/platform/logger"
)

// Handler exposes the manual poll trigger for operators.
type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// HandlePoll runs one poll cycle inline. The scheduler normally drives this
// through the task queue; the endpoint exists for backfills and debugging.
func (h *Handler) HandlePoll(c *gin.Context) {
	if err := h.service.PollAll(c.Request.Context()); err != nil {
		h.log.Error("poll run failed", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "poll failed")
		return
	}
	httpkit.OK(c, gin.H{"status": "ok"})
}
