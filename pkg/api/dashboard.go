package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodbank/pkg/auth"
	"bloodbank/pkg/store"
)

const (
	userRecentLimit          = 5
	adminRecentRequestLimit  = 10
	adminRecentDonationLimit = 5
)

func (h *Handler) userDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	id, _ := auth.CurrentUser(c)

	stats, err := h.svc.UserStatistics(ctx, id.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	requests, err := h.svc.RequestsForUser(ctx, id.UserID, userRecentLimit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	donations, err := h.svc.DonationsForUser(ctx, id.UserID, userRecentLimit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Dashboard retrieved", gin.H{
		"stats":            stats,
		"recent_requests":  requests,
		"recent_donations": donations,
	})
}

func (h *Handler) adminDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.svc.AdminStatistics(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}
	requests, err := h.svc.ListRequestsForAdmin(ctx, store.Filter{Limit: adminRecentRequestLimit})
	if err != nil {
		h.handleError(c, err)
		return
	}
	donations, err := h.svc.ListDonationsForAdmin(ctx, store.Filter{Limit: adminRecentDonationLimit})
	if err != nil {
		h.handleError(c, err)
		return
	}
	inventory, err := h.svc.Inventory(ctx, "", "")
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Dashboard retrieved", gin.H{
		"stats":            stats,
		"recent_requests":  requests,
		"recent_donations": donations,
		"inventory":        inventory,
	})
}
