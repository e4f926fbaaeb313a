package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/therapy-center-api/internal/dto"
	"github.com/noah-isme/therapy-center-api/internal/models"
	"github.com/noah-isme/therapy-center-api/internal/repository"
	"github.com/noah-isme/therapy-center-api/pkg/clock"
	appErrors "github.com/noah-isme/therapy-center-api/pkg/errors"
	"github.com/noah-isme/therapy-center-api/pkg/export"
	"github.com/noah-isme/therapy-center-api/pkg/lock"
	"github.com/noah-isme/therapy-center-api/pkg/logger"
	"github.com/noah-isme/therapy-center-api/pkg/timeslot"
)

const (
	opCreate = "create"
	opUpdate = "update"

	msgTherapistUnavailable = "Therapist not found or inactive"
	msgStudentUnavailable   = "Student not found or inactive"

	defaultExportLimit = 5000
)

type therapySessionRepository interface {
	scheduledSessionLister
	FindByID(ctx context.Context, id string) (*models.TherapySession, error)
	ListUpcoming(ctx context.Context, therapistID string, from time.Time, limit int) ([]models.TherapySession, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.TherapySession, int, error)
	ListAll(ctx context.Context, filter models.SessionFilter, limit int) ([]models.TherapySession, error)
	Create(ctx context.Context, session *models.TherapySession) error
	Update(ctx context.Context, session *models.TherapySession, prevUpdatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// TherapyConfig carries the settings TherapyService reads.
type TherapyConfig struct {
	Location      *time.Location
	UpcomingLimit int
	ExportLimit   int
	LockBackend   string
}

// TherapyService books, updates and cancels therapy sessions.
type TherapyService struct {
	repo      therapySessionRepository
	teachers  teacherLookup
	students  studentLookup
	schedules scheduleLookup
	resolver  *ConflictResolver
	locker    lock.Locker
	clock     clock.Clock
	cfg       TherapyConfig
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTherapyService wires the booking workflow.
func NewTherapyService(
	repo therapySessionRepository,
	teachers teacherLookup,
	students studentLookup,
	schedules scheduleLookup,
	locker lock.Locker,
	clk clock.Clock,
	cfg TherapyConfig,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TherapyService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.UpcomingLimit <= 0 {
		cfg.UpcomingLimit = 20
	}
	if cfg.ExportLimit <= 0 {
		cfg.ExportLimit = defaultExportLimit
	}
	if locker == nil {
		locker = lock.NewKeyedMutex(0)
	}
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TherapyService{
		repo:      repo,
		teachers:  teachers,
		students:  students,
		schedules: schedules,
		resolver:  NewConflictResolver(repo, schedules, cfg.Location),
		locker:    locker,
		clock:     clk,
		cfg:       cfg,
		metrics:   metrics,
		validator: prepareValidator(validate),
		logger:    logger,
	}
}

// Resolver exposes the conflict engine used by the service.
func (s *TherapyService) Resolver() *ConflictResolver {
	return s.resolver
}

// Create books a new session after the participant, double-booking and
// schedule checks pass.
func (s *TherapyService) Create(ctx context.Context, req dto.CreateSessionRequest) (session *models.TherapySession, err error) {
	defer func() { s.recordOutcome(opCreate, err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, msgMissingFields)
	}
	if err := s.ensureTherapist(ctx, req.TherapistID); err != nil {
		return nil, err
	}
	if err := s.ensureStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}

	candidate := &models.TherapySession{
		StudentID:   req.StudentID,
		TherapistID: req.TherapistID,
		DateTime:    *req.DateTime,
		Duration:    req.Duration,
		Type:        strings.TrimSpace(req.Type),
		Status:      models.SessionScheduled,
	}
	if req.Notes != nil {
		candidate.Notes = *req.Notes
	}
	if err := s.checkSameDay(candidate); err != nil {
		return nil, err
	}

	err = s.withTherapistLock(ctx, candidate.TherapistID, func(ctx context.Context) error {
		if err := s.resolver.Check(ctx, candidate.TherapistID, candidate.DateTime, candidate.End(), ""); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, candidate); err != nil {
			return s.translateWriteError(err, "failed to create therapy session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("therapy session booked",
		zap.String("session_id", candidate.ID),
		zap.String("therapist_id", candidate.TherapistID),
		zap.String("student_id", candidate.StudentID),
		zap.Time("start", candidate.DateTime),
		zap.Int("duration", candidate.Duration),
	)
	return candidate, nil
}

// Update applies a partial update. Conflict and schedule checks run again
// when the session stays scheduled and its therapist or time changed, or
// when it returns to scheduled.
func (s *TherapyService) Update(ctx context.Context, id string, req dto.UpdateSessionRequest) (session *models.TherapySession, err error) {
	defer func() { s.recordOutcome(opUpdate, err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.StudentID != nil {
		updated.StudentID = *req.StudentID
	}
	if req.TherapistID != nil {
		updated.TherapistID = *req.TherapistID
	}
	if req.DateTime != nil {
		updated.DateTime = *req.DateTime
	}
	if req.Duration != nil {
		updated.Duration = *req.Duration
	}
	if req.Type != nil {
		updated.Type = strings.TrimSpace(*req.Type)
	}
	if req.Status != nil {
		updated.Status = *req.Status
	}
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}
	if req.Progress != nil {
		progress := *req.Progress
		updated.Progress = &progress
	}

	if updated.TherapistID != existing.TherapistID {
		if err := s.ensureTherapist(ctx, updated.TherapistID); err != nil {
			return nil, err
		}
	}
	if updated.StudentID != existing.StudentID {
		if err := s.ensureStudent(ctx, updated.StudentID); err != nil {
			return nil, err
		}
	}

	if !needsRecheck(existing, &updated) {
		if err := s.save(ctx, &updated, existing.UpdatedAt); err != nil {
			return nil, err
		}
		return &updated, nil
	}

	if err := s.checkSameDay(&updated); err != nil {
		return nil, err
	}
	err = s.withTherapistLock(ctx, updated.TherapistID, func(ctx context.Context) error {
		if err := s.resolver.Check(ctx, updated.TherapistID, updated.DateTime, updated.End(), updated.ID); err != nil {
			return err
		}
		return s.save(ctx, &updated, existing.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("therapy session rescheduled",
		zap.String("session_id", updated.ID),
		zap.String("therapist_id", updated.TherapistID),
		zap.Time("start", updated.DateTime),
		zap.Int("duration", updated.Duration),
	)
	return &updated, nil
}

// Cancel marks a session cancelled. The record is kept.
func (s *TherapyService) Cancel(ctx context.Context, id string) error {
	if err := s.repo.UpdateStatus(ctx, id, models.SessionCancelled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("therapy session not found")
		}
		return internalError(err, "failed to cancel therapy session")
	}

	logger.FromContext(ctx, s.logger).Info("therapy session cancelled", zap.String("session_id", id))
	return nil
}

// Get returns a session by id.
func (s *TherapyService) Get(ctx context.Context, id string) (*models.TherapySession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("therapy session not found")
		}
		return nil, internalError(err, "failed to load therapy session")
	}
	return session, nil
}

// List returns sessions with pagination metadata.
func (s *TherapyService) List(ctx context.Context, query dto.SessionQuery) ([]models.TherapySession, *models.Pagination, error) {
	filter, err := s.sessionFilter(query)
	if err != nil {
		return nil, nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list therapy sessions")
	}
	if sessions == nil {
		sessions = []models.TherapySession{}
	}
	return sessions, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Upcoming lists the therapist's scheduled sessions starting from now.
func (s *TherapyService) Upcoming(ctx context.Context, therapistID string, limit int) ([]models.TherapySession, error) {
	if strings.TrimSpace(therapistID) == "" {
		return nil, invalid("therapist_id is required")
	}
	if limit <= 0 || limit > s.cfg.UpcomingLimit {
		limit = s.cfg.UpcomingLimit
	}
	sessions, err := s.repo.ListUpcoming(ctx, therapistID, s.clock.Now(), limit)
	if err != nil {
		return nil, internalError(err, "failed to list upcoming sessions")
	}
	if sessions == nil {
		sessions = []models.TherapySession{}
	}
	return sessions, nil
}

// Availability lists the windows of a therapist's day that can still take a
// session, together with what is already booked.
func (s *TherapyService) Availability(ctx context.Context, therapistID, rawDate string) (*dto.AvailabilityResponse, error) {
	date, err := timeslot.ParseDate(rawDate)
	if err != nil {
		return nil, invalid("date must use YYYY-MM-DD")
	}
	if _, err := s.teachers.FindByID(ctx, therapistID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("teacher not found")
		}
		return nil, internalError(err, "failed to load teacher")
	}

	resp := &dto.AvailabilityResponse{
		TeacherID: therapistID,
		Date:      date.Format(timeslot.DateLayout),
		Windows:   []dto.AvailabilityWindow{},
		Booked:    []dto.AvailabilityWindow{},
	}

	sessions, err := s.repo.ListScheduledByTherapist(ctx, therapistID)
	if err != nil {
		return nil, internalError(err, "failed to load therapist sessions")
	}
	var busy []timeslot.Interval
	for _, session := range sessions {
		if !timeslot.CalendarDate(session.DateTime, s.cfg.Location).Equal(date) {
			continue
		}
		interval := s.localInterval(session)
		busy = append(busy, interval)
		resp.Booked = append(resp.Booked, dto.AvailabilityWindow{StartTime: interval.Start, EndTime: interval.End, Activity: models.ActivityTherapy})
	}
	sort.Slice(resp.Booked, func(i, j int) bool { return resp.Booked[i].StartTime < resp.Booked[j].StartTime })

	schedule, err := s.schedules.FindForTeacherDate(ctx, therapistID, date)
	if err != nil {
		return nil, err
	}
	switch {
	case schedule == nil:
		resp.Unconstrained = true
	case schedule.IsHoliday:
		resp.IsHoliday = true
		resp.HolidayReason = schedule.HolidayReason
	default:
		for _, slot := range schedule.Slots {
			if !slot.Activity.Bookable() {
				continue
			}
			for _, free := range timeslot.Subtract(slot.Interval(), busy) {
				resp.Windows = append(resp.Windows, dto.AvailabilityWindow{StartTime: free.Start, EndTime: free.End, Activity: slot.Activity})
			}
		}
		sort.Slice(resp.Windows, func(i, j int) bool { return resp.Windows[i].StartTime < resp.Windows[j].StartTime })
	}
	return resp, nil
}

// ExportResult is a rendered session sheet.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Export renders the sessions matching query as CSV or PDF.
func (s *TherapyService) Export(ctx context.Context, query dto.SessionQuery) (*ExportResult, error) {
	filter, err := s.sessionFilter(query)
	if err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListAll(ctx, filter, s.cfg.ExportLimit)
	if err != nil {
		return nil, internalError(err, "failed to load sessions for export")
	}

	dataset := s.sessionDataset(ctx, sessions)
	stamp := s.clock.Now().In(s.cfg.Location).Format("20060102-1504")

	if strings.EqualFold(query.Format, "pdf") {
		exporter := export.NewPDFExporter().WithSubtitle(describeFilter(query))
		body, err := exporter.Render(dataset, "Therapy Sessions")
		if err != nil {
			return nil, internalError(err, "failed to render session sheet")
		}
		return &ExportResult{Filename: "therapy-sessions-" + stamp + ".pdf", ContentType: exporter.ContentType(), Body: body}, nil
	}

	exporter := export.NewCSVExporter()
	body, err := exporter.Render(dataset)
	if err != nil {
		return nil, internalError(err, "failed to render session sheet")
	}
	return &ExportResult{Filename: "therapy-sessions-" + stamp + ".csv", ContentType: exporter.ContentType(), Body: body}, nil
}

func (s *TherapyService) sessionDataset(ctx context.Context, sessions []models.TherapySession) export.Dataset {
	teacherNames := map[string]string{}
	studentNames := map[string]string{}
	teacherName := func(id string) string {
		if name, ok := teacherNames[id]; ok {
			return name
		}
		name := id
		if t, err := s.teachers.FindByID(ctx, id); err == nil && t.FullName != "" {
			name = t.FullName
		}
		teacherNames[id] = name
		return name
	}
	studentName := func(id string) string {
		if name, ok := studentNames[id]; ok {
			return name
		}
		name := id
		if st, err := s.students.FindByID(ctx, id); err == nil && st.FullName != "" {
			name = st.FullName
		}
		studentNames[id] = name
		return name
	}

	dataset := export.Dataset{Headers: []string{"Date", "Start", "End", "Duration", "Therapist", "Student", "Type", "Status"}}
	for _, session := range sessions {
		interval := s.localInterval(session)
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":      session.DateTime.In(s.cfg.Location).Format(timeslot.DateLayout),
			"Start":     interval.Start,
			"End":       interval.End,
			"Duration":  strconv.Itoa(session.Duration),
			"Therapist": teacherName(session.TherapistID),
			"Student":   studentName(session.StudentID),
			"Type":      session.Type,
			"Status":    string(session.Status),
		})
	}
	return dataset
}

func (s *TherapyService) sessionFilter(query dto.SessionQuery) (models.SessionFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.SessionFilter{}, validationError(err, "invalid session filter")
	}
	filter := models.SessionFilter{
		TherapistID: strings.TrimSpace(query.TherapistID),
		StudentID:   strings.TrimSpace(query.StudentID),
		Status:      models.SessionStatus(query.Status),
		Page:        query.Page,
		PageSize:    query.PageSize,
	}
	if query.From != "" {
		date, _ := timeslot.ParseDate(query.From)
		from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.cfg.Location)
		filter.From = &from
	}
	if query.To != "" {
		date, _ := timeslot.ParseDate(query.To)
		to := time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, s.cfg.Location).Add(-time.Nanosecond)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return models.SessionFilter{}, invalid("from must not be after to")
	}
	return filter, nil
}

func (s *TherapyService) ensureTherapist(ctx context.Context, id string) error {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalid(msgTherapistUnavailable)
		}
		return internalError(err, "failed to load therapist")
	}
	if !teacher.Active {
		return invalid(msgTherapistUnavailable)
	}
	return nil
}

func (s *TherapyService) ensureStudent(ctx context.Context, id string) error {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalid(msgStudentUnavailable)
		}
		return internalError(err, "failed to load student")
	}
	if !student.Active {
		return invalid(msgStudentUnavailable)
	}
	return nil
}

// checkSameDay rejects sessions whose end falls on a later local date than their
// start, and sessions that do not end after they start.
func (s *TherapyService) checkSameDay(session *models.TherapySession) error {
	if !session.End().After(session.DateTime) {
		return invalid(msgNonPositiveDuration)
	}
	startDate := timeslot.CalendarDate(session.DateTime, s.cfg.Location)
	endDate := timeslot.CalendarDate(session.End(), s.cfg.Location)
	if !endDate.Equal(startDate) {
		return invalid(msgCrossingMidnight)
	}
	return nil
}

func (s *TherapyService) localInterval(session models.TherapySession) timeslot.Interval {
	start := session.DateTime.In(s.cfg.Location)
	end := session.End().In(s.cfg.Location)
	interval := timeslot.Interval{Start: timeslot.FromTime(start), End: timeslot.FromTime(end)}
	if !timeslot.CalendarDate(end, s.cfg.Location).Equal(timeslot.CalendarDate(start, s.cfg.Location)) {
		interval.End = "23:59"
	}
	return interval
}

func (s *TherapyService) withTherapistLock(ctx context.Context, therapistID string, fn func(ctx context.Context) error) error {
	requested := time.Now()
	err := s.locker.WithLock(ctx, "therapist:"+therapistID, func(ctx context.Context) error {
		s.metrics.ObserveLockWait(s.cfg.LockBackend, time.Since(requested))
		return fn(ctx)
	})
	if errors.Is(err, lock.ErrTimeout) {
		logger.FromContext(ctx, s.logger).Warn("therapist lock wait exceeded", zap.String("therapist_id", therapistID))
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "therapist calendar is busy, retry shortly")
	}
	var appErr *appErrors.Error
	if err != nil && !errors.As(err, &appErr) {
		return internalError(err, "failed to acquire therapist lock")
	}
	return err
}

func (s *TherapyService) save(ctx context.Context, session *models.TherapySession, prevUpdatedAt time.Time) error {
	if err := s.repo.Update(ctx, session, prevUpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("therapy session not found")
		}
		if errors.Is(err, repository.ErrStaleSession) {
			return conflict(models.ConflictStaleSession, msgStaleSession, session.ID, "")
		}
		return s.translateWriteError(err, "failed to update therapy session")
	}
	return nil
}

func (s *TherapyService) translateWriteError(err error, message string) error {
	if errors.Is(err, repository.ErrSessionOverlap) {
		return conflict(models.ConflictDoubleBooked, "Therapist has a conflicting session", "", "")
	}
	return internalError(err, message)
}

func (s *TherapyService) recordOutcome(operation string, err error) {
	if s.metrics == nil {
		return
	}
	if err == nil {
		s.metrics.RecordBooking(operation, OutcomeAccepted)
		return
	}
	if reason, ok := ConflictReasonOf(err); ok {
		s.metrics.RecordBooking(operation, string(reason))
		return
	}
	switch {
	case appErrors.HasCode(err, appErrors.ErrValidation.Code):
		s.metrics.RecordBooking(operation, OutcomeValidation)
	case appErrors.HasCode(err, appErrors.ErrNotFound.Code):
		s.metrics.RecordBooking(operation, OutcomeNotFound)
	default:
		s.metrics.RecordBooking(operation, OutcomeError)
	}
}

func needsRecheck(before, after *models.TherapySession) bool {
	if after.Status != models.SessionScheduled {
		return false
	}
	if before.Status != models.SessionScheduled {
		return true
	}
	return before.TherapistID != after.TherapistID ||
		!before.DateTime.Equal(after.DateTime) ||
		before.Duration != after.Duration
}

func describeFilter(query dto.SessionQuery) string {
	var parts []string
	if query.TherapistID != "" {
		parts = append(parts, "therapist "+query.TherapistID)
	}
	if query.StudentID != "" {
		parts = append(parts, "student "+query.StudentID)
	}
	if query.Status != "" {
		parts = append(parts, "status "+query.Status)
	}
	if query.From != "" || query.To != "" {
		parts = append(parts, fmt.Sprintf("%s to %s", orDash(query.From), orDash(query.To)))
	}
	return strings.Join(parts, ", ")
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
