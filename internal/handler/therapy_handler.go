package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/therapy-center-api/internal/dto"
	"github.com/noah-isme/therapy-center-api/internal/models"
	"github.com/noah-isme/therapy-center-api/internal/service"
	appErrors "github.com/noah-isme/therapy-center-api/pkg/errors"
	"github.com/noah-isme/therapy-center-api/pkg/response"
)

type therapyService interface {
	List(ctx context.Context, query dto.SessionQuery) ([]models.TherapySession, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.TherapySession, error)
	Create(ctx context.Context, req dto.CreateSessionRequest) (*models.TherapySession, error)
	Update(ctx context.Context, id string, req dto.UpdateSessionRequest) (*models.TherapySession, error)
	Cancel(ctx context.Context, id string) error
	Upcoming(ctx context.Context, therapistID string, limit int) ([]models.TherapySession, error)
	Availability(ctx context.Context, therapistID, date string) (*dto.AvailabilityResponse, error)
	Export(ctx context.Context, query dto.SessionQuery) (*service.ExportResult, error)
}

// TherapyHandler exposes therapy session booking endpoints.
type TherapyHandler struct {
	service therapyService
}

// NewTherapyHandler constructs handler.
func NewTherapyHandler(svc therapyService) *TherapyHandler {
	return &TherapyHandler{service: svc}
}

// List godoc
// @Summary List therapy sessions
// @Tags Therapy
// @Produce json
// @Param therapist_id query string false "Filter by therapist"
// @Param student_id query string false "Filter by student"
// @Param status query string false "scheduled, completed, cancelled or no_show"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /therapy [get]
func (h *TherapyHandler) List(c *gin.Context) {
	var query dto.SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	sessions, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Upcoming godoc
// @Summary List a therapist's upcoming sessions
// @Tags Therapy
// @Produce json
// @Param therapist_id query string true "Therapist ID"
// @Param limit query int false "Maximum number of sessions"
// @Success 200 {object} response.Envelope
// @Router /therapy/upcoming [get]
func (h *TherapyHandler) Upcoming(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	sessions, err := h.service.Upcoming(c.Request.Context(), c.Query("therapist_id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Export godoc
// @Summary Export therapy sessions
// @Tags Therapy
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param therapist_id query string false "Filter by therapist"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /therapy/export [get]
func (h *TherapyHandler) Export(c *gin.Context) {
	var query dto.SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// Get godoc
// @Summary Get therapy session
// @Tags Therapy
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /therapy/{id} [get]
func (h *TherapyHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Create godoc
// @Summary Book therapy session
// @Description Rejects with 409 and a reason code when the therapist is double booked, on holiday or has no matching slot.
// @Tags Therapy
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /therapy [post]
func (h *TherapyHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Update therapy session
// @Tags Therapy
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.UpdateSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /therapy/{id} [put]
func (h *TherapyHandler) Update(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Cancel godoc
// @Summary Cancel therapy session
// @Description The session is kept with status cancelled.
// @Tags Therapy
// @Produce json
// @Param id path string true "Session ID"
// @Success 204
// @Router /therapy/{id} [delete]
func (h *TherapyHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Availability godoc
// @Summary Free windows of a therapist's day
// @Tags Therapy
// @Produce json
// @Param id path string true "Teacher ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/availability [get]
func (h *TherapyHandler) Availability(c *gin.Context) {
	availability, err := h.service.Availability(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}
