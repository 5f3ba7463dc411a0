package handler

import (
	"errors"
	"net/http"

	"github.com/campustrack/campustrack-backend/internal/middleware"
	"github.com/campustrack/campustrack-backend/internal/model"
	"github.com/campustrack/campustrack-backend/internal/response"
	"github.com/campustrack/campustrack-backend/internal/service"
	"github.com/campustrack/campustrack-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AttendanceHandler handles attendance recording endpoints.
type AttendanceHandler struct {
	attendanceService *service.AttendanceService
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(attendanceService *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: attendanceService}
}

// Mark godoc
// POST /api/v1/attendance/mark
// Records the requesting student's attendance for an active session.
// At most one record per (session, student) ever succeeds.
func (h *AttendanceHandler) Mark(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.MarkAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	record, err := h.attendanceService.Mark(c.Request.Context(), p, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			response.Fail(c, http.StatusForbidden, response.ErrStudentAccessOnly)
		case errors.Is(err, service.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrSessionClosed):
			response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
		case errors.Is(err, service.ErrDuplicateAttendance):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyMarked)
		case errors.Is(err, service.ErrVerificationFailed):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrVerificationFailed)
		case errors.Is(err, service.ErrUnavailable):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrUnavailable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"record": record})
}

// History godoc
// GET /api/v1/attendance/my-history
// Returns the requesting student's attendance records, newest first.
func (h *AttendanceHandler) History(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	records, err := h.attendanceService.History(c.Request.Context(), p)
	if err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			response.Fail(c, http.StatusForbidden, response.ErrStudentAccessOnly)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"records": records})
}

// ListForSession godoc
// GET /api/v1/attendance/session/:id
// Returns the attendance roster of a session. Owning faculty or admin only.
func (h *AttendanceHandler) ListForSession(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	records, err := h.attendanceService.ListForSession(c.Request.Context(), p, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrPermissionDenied):
			response.Fail(c, http.StatusForbidden, response.ErrPermissionDenied)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"records": records})
}
