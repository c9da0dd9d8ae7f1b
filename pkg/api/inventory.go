package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodbank/pkg/auth"
	"bloodbank/pkg/service"
)

func (h *Handler) listInventory(c *gin.Context) {
	list, err := h.svc.Inventory(c.Request.Context(), c.Query("hospital"), c.Query("blood_type"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Inventory retrieved", list)
}

func (h *Handler) updateInventory(c *gin.Context) {
	var in service.InventoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	id, _ := auth.CurrentUser(c)
	in.UpdatedBy = id.UserID

	rec, err := h.svc.UpdateInventory(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Inventory updated", rec)
}
