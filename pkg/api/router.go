// Package api exposes the blood bank service as a JSON API over gin.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bloodbank/pkg/auth"
	"bloodbank/pkg/documents"
	"bloodbank/pkg/metrics"
	"bloodbank/pkg/models"
	"bloodbank/pkg/ratelimit"
	"bloodbank/pkg/service"
	"bloodbank/pkg/store"
)

// HealthReporter reports which backend is serving data.
type HealthReporter interface {
	Health(ctx context.Context) store.Health
}

type Deps struct {
	Service   *service.Service
	Health    HealthReporter
	Documents *documents.Service
	Tokens    *auth.Tokens
	Limiter   *ratelimit.Limiter
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

type Handler struct {
	svc     *service.Service
	health  HealthReporter
	docs    *documents.Service
	tokens  *auth.Tokens
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Documents == nil {
		d.Documents = documents.NewService(documents.NewMemory(), d.Log)
	}
	h := &Handler{
		svc:     d.Service,
		health:  d.Health,
		docs:    d.Documents,
		tokens:  d.Tokens,
		metrics: d.Metrics,
		log:     d.Log,
	}

	r := gin.New()
	r.Use(gin.Recovery(), accessLog(d.Log, d.Metrics))
	r.MaxMultipartMemory = maxUploadSize

	r.GET("/health", h.healthCheck)
	r.GET("/manage/health", h.healthCheck)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/health", h.healthCheck)
	api.POST("/register", d.Limiter.Middleware("register"), h.register)
	api.POST("/login", d.Limiter.Middleware("login"), h.login)

	authed := api.Group("", auth.RequireAuth(d.Tokens))
	admin := auth.RequireRole(models.RoleAdmin)

	authed.GET("/profile", h.profile)
	authed.GET("/dashboard", h.userDashboard)
	authed.GET("/admin/dashboard", admin, h.adminDashboard)

	authed.POST("/blood-requests", h.createRequest)
	authed.GET("/blood-requests", h.listRequests)
	authed.GET("/blood-requests/:id", h.getRequest)
	authed.PUT("/blood-requests/:id", admin, h.updateRequestStatus)
	authed.POST("/blood-requests/:id/documents", h.uploadDocument)
	authed.GET("/blood-requests/:id/documents", h.listDocuments)

	authed.POST("/donations", h.scheduleDonation)
	authed.GET("/donations", h.listDonations)
	authed.PUT("/donations/:id", admin, h.updateDonationStatus)

	authed.GET("/inventory", h.listInventory)
	authed.PUT("/inventory", admin, h.updateInventory)

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Resource not found")
	})
	return r
}
