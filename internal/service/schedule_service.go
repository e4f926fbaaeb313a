package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/therapy-center-api/internal/dto"
	"github.com/noah-isme/therapy-center-api/internal/models"
	"github.com/noah-isme/therapy-center-api/internal/repository"
	"github.com/noah-isme/therapy-center-api/pkg/logger"
	"github.com/noah-isme/therapy-center-api/pkg/timeslot"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	FindByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) error
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type cachedScheduleList struct {
	Items []models.Schedule `json:"items"`
	Total int               `json:"total"`
}

// ScheduleService manages the per-day schedules of teachers.
type ScheduleService struct {
	repo      scheduleRepository
	teachers  teacherLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService. cache may be nil.
func NewScheduleService(repo scheduleRepository, teachers teacherLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, teachers: teachers, cache: cache, validator: prepareValidator(validate), logger: logger}
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, query dto.ScheduleQuery) ([]models.Schedule, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid schedule filter")
	}
	filter := models.ScheduleFilter{TeacherID: strings.TrimSpace(query.TeacherID), Page: query.Page, PageSize: query.PageSize}
	if query.From != "" {
		from, _ := timeslot.ParseDate(query.From)
		filter.From = &from
	}
	if query.To != "" {
		to, _ := timeslot.ParseDate(query.To)
		filter.To = &to
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	key := scheduleListKey(filter)
	var cached cachedScheduleList
	if !s.cache.Get(ctx, key, &cached) {
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, nil, internalError(err, "failed to list schedules")
		}
		cached = cachedScheduleList{Items: items, Total: total}
		s.cache.Set(ctx, key, cached, 0)
	}
	if cached.Items == nil {
		cached.Items = []models.Schedule{}
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: cached.Total}
	return cached.Items, pagination, nil
}

// Get returns a schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("schedule not found")
		}
		return nil, internalError(err, "failed to load schedule")
	}
	return schedule, nil
}

// FindForTeacherDate returns the teacher's schedule for date, or nil when none exists.
func (s *ScheduleService) FindForTeacherDate(ctx context.Context, teacherID string, date time.Time) (*models.Schedule, error) {
	schedule, err := s.repo.FindByTeacherAndDate(ctx, teacherID, timeslot.NormaliseDate(date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalError(err, "failed to load teacher schedule")
	}
	return schedule, nil
}

// Create validates and stores a new schedule.
func (s *ScheduleService) Create(ctx context.Context, req dto.CreateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid schedule payload")
	}
	date, err := timeslot.ParseDate(req.Date)
	if err != nil {
		return nil, invalid("date must use YYYY-MM-DD")
	}

	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("teacher not found")
		}
		return nil, internalError(err, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, invalid("teacher is inactive")
	}

	if req.Slots != nil && len(req.Slots) == 0 {
		return nil, invalid(msgEmptySlots)
	}
	schedule := models.Schedule{
		TeacherID:     req.TeacherID,
		Date:          date,
		Slots:         models.TimeSlots(req.Slots),
		IsHoliday:     req.IsHoliday,
		HolidayReason: strings.TrimSpace(req.HolidayReason),
	}
	if err := s.validateSchedule(schedule); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &schedule); err != nil {
		return nil, s.translateWriteError(err, "failed to create schedule")
	}
	s.cache.Invalidate(ctx, scheduleCachePrefix+"*")

	logger.FromContext(ctx, s.logger).Info("schedule created",
		zap.String("schedule_id", schedule.ID),
		zap.String("teacher_id", schedule.TeacherID),
		zap.String("date", req.Date),
		zap.Int("slots", len(schedule.Slots)),
	)
	return &schedule, nil
}

// Update applies the provided fields and re-validates the whole slot list.
func (s *ScheduleService) Update(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid schedule payload")
	}

	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Date != nil {
		date, err := timeslot.ParseDate(*req.Date)
		if err != nil {
			return nil, invalid("date must use YYYY-MM-DD")
		}
		schedule.Date = date
	}
	if req.Slots != nil {
		if len(req.Slots) == 0 {
			return nil, invalid(msgEmptySlots)
		}
		schedule.Slots = models.TimeSlots(req.Slots)
	}
	if req.IsHoliday != nil {
		schedule.IsHoliday = *req.IsHoliday
	}
	if req.HolidayReason != nil {
		schedule.HolidayReason = strings.TrimSpace(*req.HolidayReason)
	}
	if err := s.validateSchedule(*schedule); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, schedule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("schedule not found")
		}
		return nil, s.translateWriteError(err, "failed to update schedule")
	}
	s.cache.Invalidate(ctx, scheduleCachePrefix+"*")

	logger.FromContext(ctx, s.logger).Info("schedule updated", zap.String("schedule_id", schedule.ID))
	return schedule, nil
}

// Delete removes a schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("schedule not found")
		}
		return internalError(err, "failed to delete schedule")
	}
	s.cache.Invalidate(ctx, scheduleCachePrefix+"*")

	logger.FromContext(ctx, s.logger).Info("schedule deleted", zap.String("schedule_id", id))
	return nil
}

func (s *ScheduleService) validateSchedule(schedule models.Schedule) error {
	if err := validateSlots(schedule.Slots); err != nil {
		return err
	}
	if schedule.IsHoliday && schedule.HolidayReason == "" {
		return invalid(msgHolidayReason)
	}
	return nil
}

func (s *ScheduleService) translateWriteError(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicateSchedule) {
		return conflict(models.ConflictDuplicateSchedule, "schedule for this teacher on this date already exists", "", "")
	}
	return internalError(err, message)
}
