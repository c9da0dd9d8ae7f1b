package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodbank/pkg/auth"
	"bloodbank/pkg/service"
)

type loginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := h.svc.RegisterUser(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Registration successful", user)
}

func (h *Handler) login(c *gin.Context) {
	var in loginRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Login and password are required")
		return
	}
	login := in.Login
	if login == "" {
		login = in.Email
	}
	if login == "" {
		login = in.Username
	}

	user, err := h.svc.Authenticate(c.Request.Context(), login, in.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Login successful", gin.H{"token": token, "user": user})
}

func (h *Handler) profile(c *gin.Context) {
	id, _ := auth.CurrentUser(c)
	user, err := h.svc.UserByID(c.Request.Context(), id.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile retrieved", user)
}
