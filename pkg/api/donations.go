package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodbank/pkg/auth"
	"bloodbank/pkg/models"
	"bloodbank/pkg/service"
)

func (h *Handler) scheduleDonation(c *gin.Context) {
	var in service.DonationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	id, _ := auth.CurrentUser(c)
	in.DonorID = id.UserID
	if in.DonorName == "" {
		in.DonorName = id.Name
	}

	d, err := h.svc.ScheduleDonation(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Donation scheduled", d)
}

func (h *Handler) listDonations(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	id, _ := auth.CurrentUser(c)

	var (
		list []models.DonationSchedule
		err  error
	)
	if id.IsAdmin() {
		list, err = h.svc.ListDonationsForAdmin(c.Request.Context(), f)
	} else {
		f.UserID = id.UserID
		list, err = h.svc.ListDonations(c.Request.Context(), f)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Donations retrieved", list)
}

func (h *Handler) updateDonationStatus(c *gin.Context) {
	var in statusUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "status is required")
		return
	}
	if !models.IsDonationStatus(in.Status) {
		fail(c, http.StatusBadRequest, "unknown donation status: "+in.Status)
		return
	}

	updated, err := h.svc.UpdateDonationStatus(c.Request.Context(), c.Param("id"), in.Status, in.Notes)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !updated {
		fail(c, http.StatusNotFound, "Donation not found")
		return
	}
	respond(c, http.StatusOK, "Donation updated", gin.H{"id": c.Param("id"), "status": in.Status})
}
