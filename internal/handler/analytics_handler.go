package handler

import (
	"errors"
	"net/http"

	"github.com/campustrack/campustrack-backend/internal/middleware"
	"github.com/campustrack/campustrack-backend/internal/response"
	"github.com/campustrack/campustrack-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler handles role-scoped analytics endpoints.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Overview godoc
// GET /api/v1/analytics/overview
// Returns the analytics snapshot for the requester's scope.
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	overview, err := h.analyticsService.Overview(c.Request.Context(), p)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, overview)
}

// Trends godoc
// GET /api/v1/analytics/trends
// Returns the trailing seven days of attendance volume.
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	points, err := h.analyticsService.Trends(c.Request.Context(), p)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"trends": points})
}

// Insights godoc
// GET /api/v1/analytics/insights
// Returns a generated narrative over the requester's attendance numbers.
// Faculty and admin only.
func (h *AnalyticsHandler) Insights(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	text, err := h.analyticsService.Insights(c.Request.Context(), p)
	if err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			response.Fail(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"insights": text})
}
