package handler

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/therapy-center-api/internal/dto"
	internalmiddleware "github.com/noah-isme/therapy-center-api/internal/middleware"
	"github.com/noah-isme/therapy-center-api/internal/models"
	"github.com/noah-isme/therapy-center-api/internal/service"
	appErrors "github.com/noah-isme/therapy-center-api/pkg/errors"
)

type scheduleServiceMock struct {
	createErr error
	lastQuery dto.ScheduleQuery
	deleted   []string
}

func (m *scheduleServiceMock) List(ctx context.Context, query dto.ScheduleQuery) ([]models.Schedule, *models.Pagination, error) {
	m.lastQuery = query
	return []models.Schedule{{ID: "s1", TeacherID: query.TeacherID}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *scheduleServiceMock) Get(ctx context.Context, id string) (*models.Schedule, error) {
	if id != "s1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	return &models.Schedule{ID: id}, nil
}

func (m *scheduleServiceMock) Create(ctx context.Context, req dto.CreateScheduleRequest) (*models.Schedule, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Schedule{ID: "new", TeacherID: req.TeacherID, Slots: models.TimeSlots(req.Slots)}, nil
}

func (m *scheduleServiceMock) Update(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*models.Schedule, error) {
	return &models.Schedule{ID: id}, nil
}

func (m *scheduleServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type therapyServiceMock struct {
	createErr     error
	lastCreate    dto.CreateSessionRequest
	lastUpdate    dto.UpdateSessionRequest
	lastQuery     dto.SessionQuery
	upcomingLimit int
}

func (m *therapyServiceMock) List(ctx context.Context, query dto.SessionQuery) ([]models.TherapySession, *models.Pagination, error) {
	m.lastQuery = query
	return []models.TherapySession{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *therapyServiceMock) Get(ctx context.Context, id string) (*models.TherapySession, error) {
	return &models.TherapySession{ID: id, Status: models.SessionScheduled}, nil
}

func (m *therapyServiceMock) Create(ctx context.Context, req dto.CreateSessionRequest) (*models.TherapySession, error) {
	m.lastCreate = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.TherapySession{ID: "ses-1", TherapistID: req.TherapistID, Status: models.SessionScheduled}, nil
}

func (m *therapyServiceMock) Update(ctx context.Context, id string, req dto.UpdateSessionRequest) (*models.TherapySession, error) {
	m.lastUpdate = req
	return &models.TherapySession{ID: id}, nil
}

func (m *therapyServiceMock) Cancel(ctx context.Context, id string) error {
	return nil
}

func (m *therapyServiceMock) Upcoming(ctx context.Context, therapistID string, limit int) ([]models.TherapySession, error) {
	m.upcomingLimit = limit
	return []models.TherapySession{}, nil
}

func (m *therapyServiceMock) Availability(ctx context.Context, therapistID, date string) (*dto.AvailabilityResponse, error) {
	return &dto.AvailabilityResponse{TeacherID: therapistID, Date: date, Unconstrained: true}, nil
}

func (m *therapyServiceMock) Export(ctx context.Context, query dto.SessionQuery) (*service.ExportResult, error) {
	m.lastQuery = query
	return &service.ExportResult{Filename: "therapy-sessions.csv", ContentType: "text/csv; charset=utf-8", Body: []byte("Date\n")}, nil
}

func buildTestRouter(schedules *scheduleServiceMock, therapy *therapyServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	auth := func(c *gin.Context) {
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
			UserID: c.GetHeader("X-Test-User"),
			Role:   models.UserRole(role),
		})
		c.Next()
	}

	Routes{
		Schedules: NewScheduleHandler(schedules),
		Therapy:   NewTherapyHandler(therapy),
		Metrics:   NewMetricsHandler(service.NewMetricsService(), nil),
	}.Register(router.Group("/api/v1"), auth)
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
