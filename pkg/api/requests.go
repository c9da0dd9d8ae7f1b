package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bloodbank/pkg/auth"
	"bloodbank/pkg/models"
	"bloodbank/pkg/service"
	"bloodbank/pkg/store"
)

type statusUpdate struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// listFilter reads status, blood_type, hospital and limit from the query string.
func listFilter(c *gin.Context) (store.Filter, bool) {
	f := store.Filter{
		Status:    c.Query("status"),
		BloodType: c.Query("blood_type"),
		Hospital:  c.Query("hospital"),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, "limit must be a non-negative number")
			return f, false
		}
		f.Limit = n
	}
	return f, true
}

func (h *Handler) createRequest(c *gin.Context) {
	var in service.RequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	id, _ := auth.CurrentUser(c)
	in.UserID = id.UserID

	req, err := h.svc.CreateRequest(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Blood request submitted", req)
}

func (h *Handler) listRequests(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	id, _ := auth.CurrentUser(c)
	ctx := c.Request.Context()

	var (
		list []models.BloodRequest
		err  error
	)
	switch {
	case !id.IsAdmin():
		f.UserID = id.UserID
		list, err = h.svc.ListRequests(ctx, f)
	case c.Query("search") != "":
		list, err = h.svc.SearchRequests(ctx, c.Query("search"), f.Status, f.BloodType)
		if err == nil && f.Limit > 0 && len(list) > f.Limit {
			list = list[:f.Limit]
		}
	default:
		list, err = h.svc.ListRequestsForAdmin(ctx, f)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Blood requests retrieved", list)
}

func (h *Handler) getRequest(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "Blood request retrieved", req)
}

func (h *Handler) updateRequestStatus(c *gin.Context) {
	var in statusUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "status is required")
		return
	}
	if !models.IsRequestStatus(in.Status) {
		fail(c, http.StatusBadRequest, "unknown request status: "+in.Status)
		return
	}

	updated, err := h.svc.UpdateRequestStatus(c.Request.Context(), c.Param("id"), in.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !updated {
		fail(c, http.StatusNotFound, "Blood request not found")
		return
	}
	respond(c, http.StatusOK, "Blood request updated", gin.H{"id": c.Param("id"), "status": in.Status})
}

// ownedRequest loads the :id request and checks the caller may see it.
func (h *Handler) ownedRequest(c *gin.Context) (*models.BloodRequest, bool) {
	req, err := h.svc.RequestByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return nil, false
	}
	id, _ := auth.CurrentUser(c)
	if !id.IsAdmin() && req.UserID != id.UserID {
		fail(c, http.StatusForbidden, "Access denied")
		return nil, false
	}
	return req, true
}
