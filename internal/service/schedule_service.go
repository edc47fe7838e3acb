package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/acadplan/timetable-api/internal/dto"
	"github.com/acadplan/timetable-api/internal/models"
	appErrors "github.com/acadplan/timetable-api/pkg/errors"
	"github.com/acadplan/timetable-api/pkg/export"
)

type scheduleStore interface {
	Create(ctx context.Context, schedule *models.StoredSchedule) error
	Update(ctx context.Context, schedule *models.StoredSchedule) error
	List(ctx context.Context) ([]models.StoredSchedule, error)
	FindByID(ctx context.Context, id string) (*models.StoredSchedule, error)
	ExistsByDescription(ctx context.Context, description, excludeID string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ScheduleService manages stored schedules and answers the by-teacher,
// by-group and by-room projections over their normalized payloads. Queries
// are read-only and deterministic, so payloads are cached per schedule id.
type ScheduleService struct {
	repo     scheduleStore
	cache    scheduleCache
	cacheTTL time.Duration
	validate *validator.Validate
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewScheduleService wires the schedule service. cache may be nil.
func NewScheduleService(repo scheduleStore, cache scheduleCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &ScheduleService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		validate: validate,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Create registers an externally produced schedule payload.
func (s *ScheduleService) Create(ctx context.Context, req dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	var normalized models.NormalizedSchedule
	if err := json.Unmarshal(req.Payload, &normalized); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload is not a normalized schedule")
	}

	taken, err := s.repo.ExistsByDescription(ctx, req.Description, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check schedule description")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a schedule named %q already exists", req.Description))
	}

	schedule := &models.StoredSchedule{
		Description: req.Description,
		Payload:     types.JSONText(req.Payload),
		UserID:      req.UserID,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create schedule")
	}
	return scheduleResponse(schedule), nil
}

// Update replaces a stored schedule's description, payload and owner.
func (s *ScheduleService) Update(ctx context.Context, id string, req dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	var normalized models.NormalizedSchedule
	if err := json.Unmarshal(req.Payload, &normalized); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload is not a normalized schedule")
	}

	taken, err := s.repo.ExistsByDescription(ctx, req.Description, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check schedule description")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a schedule named %q already exists", req.Description))
	}

	existing.Description = req.Description
	existing.Payload = types.JSONText(req.Payload)
	existing.UserID = req.UserID
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update schedule")
	}
	s.invalidate(ctx, id)
	return scheduleResponse(existing), nil
}

// List returns stored schedule metadata, newest first.
func (s *ScheduleService) List(ctx context.Context) ([]dto.ScheduleResponse, error) {
	schedules, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list schedules")
	}
	out := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		out = append(out, *scheduleResponse(&schedules[i]))
	}
	return out, nil
}

// Get returns one stored schedule including its payload.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.StoredSchedule, error) {
	return s.find(ctx, id)
}

// Delete removes a stored schedule and drops its cached payload.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete schedule")
	}
	s.invalidate(ctx, id)
	return nil
}

// ByTeacher projects every placement of the named teacher, in payload
// traversal order. Matching is case-insensitive and exact.
func (s *ScheduleService) ByTeacher(ctx context.Context, scheduleID, teacher string) ([]dto.TeacherScheduleCell, error) {
	schedule, err := s.loadNormalized(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(teacher)
	cells := make([]dto.TeacherScheduleCell, 0)
	walk(schedule, func(subgroup, day string, hour models.ScheduleHour) {
		a := hour.Activity
		if a == nil || a.Teacher == nil || strings.ToLower(*a.Teacher) != want {
			return
		}
		cells = append(cells, dto.TeacherScheduleCell{
			Subject:     strings.ToUpper(a.Subject),
			Room:        strings.ToUpper(deref(a.Room)),
			Group:       strings.ToUpper(subgroup),
			ActivityTag: a.ActivityTag,
			Day:         strings.ToUpper(day),
			Hour:        hourKey(hour.Name),
		})
	})
	return cells, nil
}

// ByGroup projects every placement of the named group. A subgroup belongs to
// a group when its label's leading token equals the group name. Cells carry
// no subgroup field, so sibling subgroups sharing a placement collapse to one.
func (s *ScheduleService) ByGroup(ctx context.Context, scheduleID, group string) ([]dto.GroupScheduleCell, error) {
	schedule, err := s.loadNormalized(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(group)
	cells := make([]dto.GroupScheduleCell, 0)
	seen := make(map[dto.GroupScheduleCell]struct{})
	walk(schedule, func(subgroup, day string, hour models.ScheduleHour) {
		if strings.ToLower(groupToken(subgroup)) != want {
			return
		}
		a := hour.Activity
		if a == nil {
			return
		}
		cell := dto.GroupScheduleCell{
			Teacher:     strings.ToUpper(deref(a.Teacher)),
			Subject:     strings.ToUpper(a.Subject),
			ActivityTag: a.ActivityTag,
			Day:         strings.ToUpper(day),
			Hour:        hourKey(hour.Name),
			Room:        strings.ToUpper(deref(a.Room)),
		}
		if _, dup := seen[cell]; dup {
			return
		}
		seen[cell] = struct{}{}
		cells = append(cells, cell)
	})
	return cells, nil
}

// ByRoom projects every placement assigned to the named room.
func (s *ScheduleService) ByRoom(ctx context.Context, scheduleID, room string) ([]dto.RoomScheduleCell, error) {
	schedule, err := s.loadNormalized(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(room)
	cells := make([]dto.RoomScheduleCell, 0)
	walk(schedule, func(subgroup, day string, hour models.ScheduleHour) {
		a := hour.Activity
		if a == nil || a.Room == nil || strings.ToLower(*a.Room) != want {
			return
		}
		cells = append(cells, dto.RoomScheduleCell{
			Teacher:     strings.ToUpper(deref(a.Teacher)),
			Subject:     strings.ToUpper(a.Subject),
			Group:       strings.ToUpper(subgroup),
			ActivityTag: a.ActivityTag,
			Day:         strings.ToUpper(day),
			Hour:        hourKey(hour.Name),
		})
	})
	return cells, nil
}

// Export flattens the full schedule and renders it as CSV or PDF.
func (s *ScheduleService) Export(ctx context.Context, scheduleID, format string) (string, string, []byte, error) {
	stored, err := s.find(ctx, scheduleID)
	if err != nil {
		return "", "", nil, err
	}
	schedule, err := s.loadNormalized(ctx, scheduleID)
	if err != nil {
		return "", "", nil, err
	}

	var cells []export.Cell
	walk(schedule, func(subgroup, day string, hour models.ScheduleHour) {
		a := hour.Activity
		if a == nil {
			return
		}
		cells = append(cells, export.Cell{
			Day:         day,
			Hour:        hour.Name,
			Subject:     a.Subject,
			Teacher:     deref(a.Teacher),
			Group:       subgroup,
			Room:        deref(a.Room),
			ActivityTag: a.ActivityTag,
		})
	})

	switch strings.ToLower(format) {
	case "csv":
		body, err := s.csv.Render(cells)
		if err != nil {
			return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv")
		}
		return fmt.Sprintf("schedule-%s.csv", scheduleID), "text/csv", body, nil
	case "pdf":
		body, err := s.pdf.Render(stored.Description, cells)
		if err != nil {
			return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf")
		}
		return fmt.Sprintf("schedule-%s.pdf", scheduleID), "application/pdf", body, nil
	default:
		return "", "", nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ScheduleService) find(ctx context.Context, id string) (*models.StoredSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load schedule")
	}
	return schedule, nil
}

// loadNormalized resolves the decoded payload, preferring the cache.
func (s *ScheduleService) loadNormalized(ctx context.Context, id string) (*models.NormalizedSchedule, error) {
	key := cacheKey(id)
	var cached models.NormalizedSchedule
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Sugar().Warnw("schedule cache read failed", "schedule_id", id, "error", err)
		}
	}

	stored, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	var schedule models.NormalizedSchedule
	if err := json.Unmarshal(stored.Payload, &schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decode schedule payload")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, schedule, s.cacheTTL); err != nil {
			s.logger.Sugar().Warnw("schedule cache write failed", "schedule_id", id, "error", err)
		}
	}
	return &schedule, nil
}

func (s *ScheduleService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.logger.Sugar().Warnw("schedule cache invalidation failed", "schedule_id", id, "error", err)
	}
}

func cacheKey(id string) string {
	return "schedule:" + id
}

// walk visits every hour slot in payload traversal order.
func walk(schedule *models.NormalizedSchedule, visit func(subgroup, day string, hour models.ScheduleHour)) {
	for _, subgroup := range schedule.Subgroups {
		for _, day := range subgroup.Days {
			for _, hour := range day.Hours {
				visit(subgroup.Name, day.Name, hour)
			}
		}
	}
}

// groupToken extracts the owning group name from a subgroup label: the label
// text up to the first space.
func groupToken(subgroup string) string {
	if i := strings.IndexByte(subgroup, ' '); i >= 0 {
		return subgroup[:i]
	}
	return subgroup
}

// hourKey renders an hour label for projections with its spaces stripped.
func hourKey(hour string) string {
	return strings.ReplaceAll(hour, " ", "")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func scheduleResponse(schedule *models.StoredSchedule) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
		ID:          schedule.ID,
		Description: schedule.Description,
		UserID:      schedule.UserID,
		CreatedAt:   schedule.CreatedAt,
	}
}
