package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/therapy-center-api/internal/models"
	"github.com/noah-isme/therapy-center-api/internal/repository"
	appErrors "github.com/noah-isme/therapy-center-api/pkg/errors"
)

type fakeTeachers map[string]*models.Teacher

func (f fakeTeachers) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := f[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type fakeStudents map[string]*models.Student

func (f fakeStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := f[id]; ok {
		cp := *student
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type fakeScheduleRepo struct {
	mu        sync.Mutex
	items     map[string]*models.Schedule
	seq       int
	listCalls int
}

func newFakeScheduleRepo(schedules ...models.Schedule) *fakeScheduleRepo {
	repo := &fakeScheduleRepo{items: make(map[string]*models.Schedule)}
	for i := range schedules {
		s := schedules[i]
		if s.ID == "" {
			repo.seq++
			s.ID = fmt.Sprintf("sch-%d", repo.seq)
		}
		repo.items[s.ID] = &s
	}
	return repo
}

func (r *fakeScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []models.Schedule
	for _, s := range r.items {
		if filter.TeacherID != "" && s.TeacherID != filter.TeacherID {
			continue
		}
		if filter.From != nil && s.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && s.Date.After(*filter.To) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, len(out), nil
}

func (r *fakeScheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeScheduleRepo) FindByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.TeacherID == teacherID && s.Date.Equal(date) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeScheduleRepo) duplicate(schedule *models.Schedule) bool {
	for id, s := range r.items {
		if id != schedule.ID && s.TeacherID == schedule.TeacherID && s.Date.Equal(schedule.Date) {
			return true
		}
	}
	return false
}

func (r *fakeScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.duplicate(schedule) {
		return fmt.Errorf("create schedule: %w", repository.ErrDuplicateSchedule)
	}
	r.seq++
	schedule.ID = fmt.Sprintf("sch-%d", r.seq)
	cp := *schedule
	r.items[schedule.ID] = &cp
	return nil
}

func (r *fakeScheduleRepo) Update(ctx context.Context, schedule *models.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[schedule.ID]; !ok {
		return sql.ErrNoRows
	}
	if r.duplicate(schedule) {
		return fmt.Errorf("update schedule: %w", repository.ErrDuplicateSchedule)
	}
	cp := *schedule
	r.items[schedule.ID] = &cp
	return nil
}

func (r *fakeScheduleRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

type fakeSessionRepo struct {
	mu        sync.Mutex
	items     map[string]*models.TherapySession
	seq       int
	writes    int
	createErr error
	// beforeUpdate runs ahead of every Update, outside the repo mutex.
	beforeUpdate func()
}

// stamp returns a fresh updated_at for every write. Callers hold r.mu.
func (r *fakeSessionRepo) stamp() time.Time {
	r.writes++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(r.writes) * time.Microsecond)
}

func newFakeSessionRepo(sessions ...models.TherapySession) *fakeSessionRepo {
	repo := &fakeSessionRepo{items: make(map[string]*models.TherapySession)}
	for i := range sessions {
		s := sessions[i]
		if s.Status == "" {
			s.Status = models.SessionScheduled
		}
		s.EndsAt = s.End()
		repo.items[s.ID] = &s
	}
	return repo
}

func (r *fakeSessionRepo) sorted(keep func(models.TherapySession) bool) []models.TherapySession {
	var out []models.TherapySession
	for _, s := range r.items {
		if keep(*s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out
}

func (r *fakeSessionRepo) ListScheduledByTherapist(ctx context.Context, therapistID string) ([]models.TherapySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(s models.TherapySession) bool {
		return s.TherapistID == therapistID && s.Status == models.SessionScheduled
	}), nil
}

func (r *fakeSessionRepo) FindByID(ctx context.Context, id string) (*models.TherapySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeSessionRepo) ListUpcoming(ctx context.Context, therapistID string, from time.Time, limit int) ([]models.TherapySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(s models.TherapySession) bool {
		return s.TherapistID == therapistID && s.Status == models.SessionScheduled && !s.DateTime.Before(from)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSessionRepo) matches(filter models.SessionFilter) func(models.TherapySession) bool {
	return func(s models.TherapySession) bool {
		switch {
		case filter.TherapistID != "" && s.TherapistID != filter.TherapistID:
			return false
		case filter.StudentID != "" && s.StudentID != filter.StudentID:
			return false
		case filter.Status != "" && s.Status != filter.Status:
			return false
		case filter.From != nil && s.DateTime.Before(*filter.From):
			return false
		case filter.To != nil && s.DateTime.After(*filter.To):
			return false
		}
		return true
	}
}

func (r *fakeSessionRepo) List(ctx context.Context, filter models.SessionFilter) ([]models.TherapySession, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(r.matches(filter))
	return out, len(out), nil
}

func (r *fakeSessionRepo) ListAll(ctx context.Context, filter models.SessionFilter, limit int) ([]models.TherapySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(r.matches(filter))
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *models.TherapySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	session.ID = fmt.Sprintf("ses-%d", r.seq)
	session.EndsAt = session.End()
	session.UpdatedAt = r.stamp()
	cp := *session
	r.items[session.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *models.TherapySession, prevUpdatedAt time.Time) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[session.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if !stored.UpdatedAt.Equal(prevUpdatedAt) {
		return repository.ErrStaleSession
	}
	session.EndsAt = session.End()
	session.UpdatedAt = r.stamp()
	cp := *session
	r.items[session.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Status = status
	s.UpdatedAt = r.stamp()
	return nil
}

func (r *fakeSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fakeCacheRepo struct {
	mu          sync.Mutex
	values      map[string][]byte
	invalidated []string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{values: make(map[string][]byte)}
}

func (r *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.values[key] = raw
	return nil
}

func (r *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, pattern)
	r.values = make(map[string][]byte)
	return nil
}
