package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/therapy-center-api/internal/models"
	appErrors "github.com/noah-isme/therapy-center-api/pkg/errors"
)

func newRequest(method, path, role, body string) *http.Request {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	return req
}

func TestRoutesRoleMatrix(t *testing.T) {
	router := buildTestRouter(&scheduleServiceMock{}, &therapyServiceMock{})
	schedulePayload := `{"teacher_id":"t1","date":"2024-03-04"}`
	sessionPayload := `{"teacher_id":"t1"}`

	cases := []struct {
		name   string
		method string
		path   string
		role   models.UserRole
		body   string
		want   int
	}{
		{"list schedules as teacher", http.MethodGet, "/api/v1/schedules", models.RoleTeacher, "", http.StatusOK},
		{"create schedule as staff", http.MethodPost, "/api/v1/schedules", models.RoleStaff, schedulePayload, http.StatusCreated},
		{"create schedule as teacher", http.MethodPost, "/api/v1/schedules", models.RoleTeacher, schedulePayload, http.StatusForbidden},
		{"delete schedule as staff", http.MethodDelete, "/api/v1/schedules/s1", models.RoleStaff, "", http.StatusForbidden},
		{"delete schedule as admin", http.MethodDelete, "/api/v1/schedules/s1", models.RoleAdmin, "", http.StatusNoContent},
		{"book session as parent", http.MethodPost, "/api/v1/therapy", models.RoleParent, sessionPayload, http.StatusForbidden},
		{"cancel session as staff", http.MethodDelete, "/api/v1/therapy/ses-1", models.RoleStaff, "", http.StatusNoContent},
		{"export as teacher", http.MethodGet, "/api/v1/therapy/export", models.RoleTeacher, "", http.StatusForbidden},
		{"summary as staff", http.MethodGet, "/api/v1/metrics/summary", models.RoleStaff, "", http.StatusForbidden},
		{"summary as admin", http.MethodGet, "/api/v1/metrics/summary", models.RoleAdmin, "", http.StatusOK},
		{"unauthenticated", http.MethodGet, "/api/v1/therapy", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := performRequest(router, newRequest(tc.method, tc.path, string(tc.role), tc.body))
			assert.Equal(t, tc.want, resp.Code, resp.Body.String())
		})
	}
}

func TestAvailabilityAllowsTheTeacherThemself(t *testing.T) {
	router := buildTestRouter(&scheduleServiceMock{}, &therapyServiceMock{})

	req := newRequest(http.MethodGet, "/api/v1/teachers/t1/availability?date=2024-03-04", string(models.RoleTeacher), "")
	req.Header.Set("X-Test-User", "t1")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"unconstrained":true`)

	req = newRequest(http.MethodGet, "/api/v1/teachers/t2/availability?date=2024-03-04", string(models.RoleTeacher), "")
	req.Header.Set("X-Test-User", "t1")
	assert.Equal(t, http.StatusForbidden, performRequest(router, req).Code)
}

func TestCreateSessionConflictCarriesReason(t *testing.T) {
	detail := models.ConflictDetail{Reason: models.ConflictDoubleBooked, Message: "Therapist has a conflicting session", SessionID: "ses-9"}
	therapy := &therapyServiceMock{createErr: appErrors.WithDetails(appErrors.ErrConflict, detail.Message, detail)}
	router := buildTestRouter(&scheduleServiceMock{}, therapy)

	body := `{"student_id":"st1","therapist_id":"t1","date_time":"2024-03-04T10:00:00+07:00","duration":45}`
	resp := performRequest(router, newRequest(http.MethodPost, "/api/v1/therapy", string(models.RoleStaff), body))
	require.Equal(t, http.StatusConflict, resp.Code)

	var envelope struct {
		Error struct {
			Code    string                `json:"code"`
			Message string                `json:"message"`
			Details models.ConflictDetail `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "CONFLICT", envelope.Error.Code)
	assert.Equal(t, models.ConflictDoubleBooked, envelope.Error.Details.Reason)
	assert.Equal(t, "ses-9", envelope.Error.Details.SessionID)

	require.NotNil(t, therapy.lastCreate.DateTime)
	assert.Equal(t, 45, therapy.lastCreate.Duration)
	assert.Equal(t, "2024-03-04T03:00:00Z", therapy.lastCreate.DateTime.UTC().Format("2006-01-02T15:04:05Z07:00"))
}

func TestCreateSessionRejectsMalformedJSON(t *testing.T) {
	router := buildTestRouter(&scheduleServiceMock{}, &therapyServiceMock{})
	resp := performRequest(router, newRequest(http.MethodPost, "/api/v1/therapy", string(models.RoleAdmin), `{"duration":"long"}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "VALIDATION_ERROR")
}

func TestScheduleNotFound(t *testing.T) {
	router := buildTestRouter(&scheduleServiceMock{}, &therapyServiceMock{})
	resp := performRequest(router, newRequest(http.MethodGet, "/api/v1/schedules/missing", string(models.RoleAdmin), ""))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListQueryBinding(t *testing.T) {
	schedules := &scheduleServiceMock{}
	therapy := &therapyServiceMock{}
	router := buildTestRouter(schedules, therapy)

	resp := performRequest(router, newRequest(http.MethodGet, "/api/v1/schedules?teacher_id=t1&from=2024-03-01&page=2", string(models.RoleStaff), ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "t1", schedules.lastQuery.TeacherID)
	assert.Equal(t, "2024-03-01", schedules.lastQuery.From)
	assert.Equal(t, 2, schedules.lastQuery.Page)
	assert.Contains(t, resp.Body.String(), `"total_count":1`)

	resp = performRequest(router, newRequest(http.MethodGet, "/api/v1/therapy/upcoming?therapist_id=t1&limit=3", string(models.RoleTeacher), ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 3, therapy.upcomingLimit)
}

func TestExportStreamsAttachment(t *testing.T) {
	therapy := &therapyServiceMock{}
	router := buildTestRouter(&scheduleServiceMock{}, therapy)

	resp := performRequest(router, newRequest(http.MethodGet, "/api/v1/therapy/export?format=csv&therapist_id=t1", string(models.RoleStaff), ""))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `attachment; filename="therapy-sessions.csv"`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.Equal(t, "csv", therapy.lastQuery.Format)
	assert.Equal(t, "Date\n", resp.Body.String())
}

func TestUpdateSessionPartialPayload(t *testing.T) {
	therapy := &therapyServiceMock{}
	router := buildTestRouter(&scheduleServiceMock{}, therapy)

	resp := performRequest(router, newRequest(http.MethodPut, "/api/v1/therapy/ses-1", string(models.RoleStaff), `{"status":"completed","progress":{"rating":4}}`))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, therapy.lastUpdate.Status)
	assert.Equal(t, models.SessionCompleted, *therapy.lastUpdate.Status)
	assert.Nil(t, therapy.lastUpdate.DateTime)
	assert.Equal(t, 4, therapy.lastUpdate.Progress.Rating)
}
