package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) healthCheck(c *gin.Context) {
	if h.health == nil {
		respond(c, http.StatusOK, "ok", nil)
		return
	}
	respond(c, http.StatusOK, "ok", h.health.Health(c.Request.Context()))
}
