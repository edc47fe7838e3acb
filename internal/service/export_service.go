package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/acadplan/timetable-api/internal/fet"
	"github.com/acadplan/timetable-api/internal/models"
	appErrors "github.com/acadplan/timetable-api/pkg/errors"
)

type timeStructureReader interface {
	SemesterInProgress(ctx context.Context) (*models.Semester, error)
	WorkingDays(ctx context.Context, semesterID int64) ([]models.WorkingDay, error)
	Intervals(ctx context.Context, workingDayID int64) ([]models.Interval, error)
}

type catalogReader interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListRoomTypes(ctx context.Context) ([]models.RoomType, error)
	ListFaculties(ctx context.Context) ([]models.Faculty, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
}

type levelReader interface {
	ListLevels(ctx context.Context) ([]models.Level, error)
	ListGroupsByLevel(ctx context.Context, levelID int64) ([]models.StudentGroup, error)
}

type activityReader interface {
	List(ctx context.Context) ([]models.Activity, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.Activity, error)
}

type constraintReader interface {
	ListPreferredSlots(ctx context.Context) ([]models.PreferredSlot, error)
	ListPreferredRooms(ctx context.Context) ([]models.PreferredRoom, error)
	ListUnavailableHours(ctx context.Context) ([]models.UnavailableHour, error)
}

// ExportConfig carries the static document policy: institution header and the
// break-time block injected into every document.
type ExportConfig struct {
	University  string
	Faculty     string
	BreakDay    string
	BreakHours  []string
	TargetHours int
}

// ExportService maps relational snapshots into the solver's interchange
// document. Each mapper preserves its collaborator's native ordering; the
// solver's tie-break behaviour is order-sensitive.
type ExportService struct {
	timeStructure timeStructureReader
	catalogs      catalogReader
	levels        levelReader
	activities    activityReader
	constraints   constraintReader
	logger        *zap.Logger
	cfg           ExportConfig
}

// NewExportService wires the export mappers.
func NewExportService(
	timeStructure timeStructureReader,
	catalogs catalogReader,
	levels levelReader,
	activities activityReader,
	constraints constraintReader,
	logger *zap.Logger,
	cfg ExportConfig,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TargetHours <= 0 {
		cfg.TargetHours = 10
	}
	return &ExportService{
		timeStructure: timeStructure,
		catalogs:      catalogs,
		levels:        levels,
		activities:    activities,
		constraints:   constraints,
		logger:        logger,
		cfg:           cfg,
	}
}

// TimeStructure is the mapped day and hour axis of the document.
type TimeStructure struct {
	Days  []fet.Day
	Hours []fet.Hour
}

// MapTimeStructure resolves the in-progress semester's working days and the
// hour slots of its first configured day. No document can be built without a
// time structure, so a missing configuration is surfaced as NOT_FOUND.
func (s *ExportService) MapTimeStructure(ctx context.Context) (*TimeStructure, error) {
	semester, err := s.timeStructure.SemesterInProgress(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no semester with planning in progress")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load semester")
	}

	workingDays, err := s.timeStructure.WorkingDays(ctx, semester.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load working days")
	}
	if len(workingDays) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no working day configured for the semester in progress")
	}

	intervals, err := s.timeStructure.Intervals(ctx, workingDays[0].ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load intervals")
	}

	structure := &TimeStructure{
		Days:  make([]fet.Day, 0, len(workingDays)),
		Hours: make([]fet.Hour, 0, len(intervals)),
	}
	for _, day := range workingDays {
		structure.Days = append(structure.Days, fet.Day{Name: dayLabel(day.Name)})
	}
	for _, interval := range intervals {
		structure.Hours = append(structure.Hours, fet.Hour{Name: hourLabel(interval.StartHour, interval.EndHour)})
	}

	return structure, nil
}

// MapSubjects projects subjects into catalog entries with composite labels.
func (s *ExportService) MapSubjects(ctx context.Context) ([]fet.Subject, error) {
	subjects, err := s.catalogs.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]fet.Subject, 0, len(subjects))
	for _, subject := range subjects {
		out = append(out, fet.Subject{Name: subject.Label()})
	}
	return out, nil
}

// MapActivityTags projects room types into activity tags. The owning faculty
// rides along as the tag comment.
func (s *ExportService) MapActivityTags(ctx context.Context) ([]fet.ActivityTag, error) {
	types, err := s.catalogs.ListRoomTypes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]fet.ActivityTag, 0, len(types))
	for _, t := range types {
		out = append(out, fet.ActivityTag{Name: t.Name, Printable: true, Comments: t.FacultyName})
	}
	return out, nil
}

// MapTeachers projects teachers with their qualified subject set: the
// distinct subject labels of the teacher's activities in first-appearance
// order. This tells the solver what a teacher may teach; it is not the
// activity list itself.
func (s *ExportService) MapTeachers(ctx context.Context) ([]fet.Teacher, error) {
	teachers, err := s.catalogs.ListTeachers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]fet.Teacher, 0, len(teachers))
	for _, teacher := range teachers {
		activities, err := s.activities.ListByTeacher(ctx, teacher.ID)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(activities))
		var qualified []string
		for _, activity := range activities {
			label := activity.SubjectLabel()
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			qualified = append(qualified, label)
		}
		out = append(out, fet.Teacher{
			Name:              teacher.FullName,
			TargetHours:       s.cfg.TargetHours,
			QualifiedSubjects: fet.QualifiedSubjects{Subjects: qualified},
		})
	}
	return out, nil
}

// MapYears projects levels and their nested groups into the student tree.
func (s *ExportService) MapYears(ctx context.Context) ([]fet.Year, error) {
	levels, err := s.levels.ListLevels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]fet.Year, 0, len(levels))
	for _, level := range levels {
		groups, err := s.levels.ListGroupsByLevel(ctx, level.ID)
		if err != nil {
			return nil, err
		}
		year := fet.Year{
			Name:             level.Name,
			NumberOfStudents: level.StudentCount,
			Comments:         level.CareerName,
			Separator:        " ",
			Groups:           make([]fet.Group, 0, len(groups)),
		}
		for _, group := range groups {
			year.Groups = append(year.Groups, fet.Group{Name: group.Name, NumberOfStudents: group.StudentCount})
		}
		out = append(out, year)
	}
	return out, nil
}

// MapActivities projects stored activities one-to-one. Inactive activities
// are emitted too; the solver decides whether to place them.
func (s *ExportService) MapActivities(ctx context.Context) ([]fet.Activity, error) {
	activities, err := s.activities.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]fet.Activity, 0, len(activities))
	for _, activity := range activities {
		out = append(out, fet.Activity{
			Teacher:          activity.TeacherName,
			Subject:          activity.SubjectLabel(),
			ActivityTag:      activity.RoomTypeName,
			Students:         activity.GroupName,
			Duration:         activity.Duration,
			TotalDuration:    activity.Duration,
			ID:               activity.ID,
			ActivityGroupID:  0,
			NumberOfStudents: activity.StudentCount,
			Active:           activity.Active,
		})
	}
	return out, nil
}

// MapBuildings projects faculties into the building list.
func (s *ExportService) MapBuildings(ctx context.Context) ([]fet.Building, error) {
	faculties, err := s.catalogs.ListFaculties(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]fet.Building, 0, len(faculties))
	for _, faculty := range faculties {
		out = append(out, fet.Building{Name: faculty.Name})
	}
	return out, nil
}

// MapRooms projects rooms with their owning faculty as building and room
// type as comment.
func (s *ExportService) MapRooms(ctx context.Context) ([]fet.Room, error) {
	rooms, err := s.catalogs.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]fet.Room, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, fet.Room{
			Name:     room.Name,
			Building: room.FacultyName,
			Capacity: room.Capacity,
			Virtual:  false,
			Comments: room.RoomTypeName,
		})
	}
	return out, nil
}

// BuildDocument aggregates all mappers into one interchange document and
// validates it. Deterministic given identical collaborator snapshots; the
// institution header is static configuration.
func (s *ExportService) BuildDocument(ctx context.Context) (*fet.Document, error) {
	structure, err := s.MapTimeStructure(ctx)
	if err != nil {
		return nil, err
	}
	subjects, err := s.MapSubjects(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.MapActivityTags(ctx)
	if err != nil {
		return nil, err
	}
	teachers, err := s.MapTeachers(ctx)
	if err != nil {
		return nil, err
	}
	years, err := s.MapYears(ctx)
	if err != nil {
		return nil, err
	}
	activities, err := s.MapActivities(ctx)
	if err != nil {
		return nil, err
	}
	buildings, err := s.MapBuildings(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.MapRooms(ctx)
	if err != nil {
		return nil, err
	}

	preferredSlots, err := s.constraints.ListPreferredSlots(ctx)
	if err != nil {
		return nil, err
	}
	preferredRooms, err := s.constraints.ListPreferredRooms(ctx)
	if err != nil {
		return nil, err
	}
	unavailable, err := s.constraints.ListUnavailableHours(ctx)
	if err != nil {
		return nil, err
	}

	doc := &fet.Document{
		Version:         fet.Version,
		InstitutionName: s.cfg.University,
		Comments:        s.cfg.Faculty,
		Days:            fet.DaysList{NumberOfDays: len(structure.Days), Days: structure.Days},
		Hours:           fet.HoursList{NumberOfHours: len(structure.Hours), Hours: structure.Hours},
		Subjects:        fet.SubjectsList{Subjects: subjects},
		ActivityTags:    fet.ActivityTagsList{Tags: tags},
		Teachers:        fet.TeachersList{Teachers: teachers},
		Students:        fet.StudentsList{Years: years},
		Activities:      fet.ActivitiesList{Activities: activities},
		Buildings:       fet.BuildingsList{Buildings: buildings},
		Rooms:           fet.RoomsList{Rooms: rooms},
		TimeConstraints: fet.TimeConstraintsList{
			Basic:                   fet.ConstraintBasicCompulsoryTime{WeightPercentage: 100, Active: true},
			Breaks:                  s.breakConstraint(),
			PreferredStartingTimes:  mapPreferredSlots(preferredSlots),
			TeacherNotAvailableList: groupUnavailableHours(unavailable),
		},
		SpaceConstraints: fet.SpaceConstraintsList{
			Basic:          fet.ConstraintBasicCompulsorySpace{WeightPercentage: 100, Active: true},
			PreferredRooms: mapPreferredRooms(preferredRooms),
		},
	}

	if err := doc.Validate(); err != nil {
		s.logger.Sugar().Errorw("document validation failed", "error", err)
		return nil, err
	}

	return doc, nil
}

func (s *ExportService) breakConstraint() *fet.ConstraintBreakTimes {
	if s.cfg.BreakDay == "" || len(s.cfg.BreakHours) == 0 {
		return nil
	}
	breaks := make([]fet.BreakTime, 0, len(s.cfg.BreakHours))
	for _, hour := range s.cfg.BreakHours {
		breaks = append(breaks, fet.BreakTime{Day: s.cfg.BreakDay, Hour: hour})
	}
	return &fet.ConstraintBreakTimes{
		WeightPercentage:   100,
		NumberOfBreakTimes: len(breaks),
		BreakTimes:         breaks,
		Active:             true,
	}
}

func mapPreferredSlots(slots []models.PreferredSlot) []fet.ConstraintActivityPreferredStartingTime {
	out := make([]fet.ConstraintActivityPreferredStartingTime, 0, len(slots))
	for _, slot := range slots {
		out = append(out, fet.ConstraintActivityPreferredStartingTime{
			WeightPercentage:  slot.Weight,
			ActivityID:        slot.ActivityID,
			PreferredDay:      slot.Day,
			PreferredHour:     slot.Hour,
			PermanentlyLocked: slot.Locked,
			Active:            true,
		})
	}
	return out
}

func mapPreferredRooms(rooms []models.PreferredRoom) []fet.ConstraintActivityPreferredRoom {
	out := make([]fet.ConstraintActivityPreferredRoom, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, fet.ConstraintActivityPreferredRoom{
			WeightPercentage:  room.Weight,
			ActivityID:        room.ActivityID,
			Room:              room.RoomName,
			PermanentlyLocked: room.Locked,
			Active:            true,
		})
	}
	return out
}

// groupUnavailableHours folds per-teacher unavailability rows (already
// ordered by teacher) into one constraint block per teacher.
func groupUnavailableHours(hours []models.UnavailableHour) []fet.ConstraintTeacherNotAvailableTimes {
	var out []fet.ConstraintTeacherNotAvailableTimes
	index := make(map[int64]int)
	for _, hour := range hours {
		i, ok := index[hour.TeacherID]
		if !ok {
			out = append(out, fet.ConstraintTeacherNotAvailableTimes{
				WeightPercentage: 100,
				Teacher:          hour.TeacherName,
				Active:           true,
			})
			i = len(out) - 1
			index[hour.TeacherID] = i
		}
		out[i].NotAvailableTimes = append(out[i].NotAvailableTimes, fet.NotAvailableTime{Day: hour.Day, Hour: hour.Hour})
		out[i].NumberOfNotAvailableTimes = len(out[i].NotAvailableTimes)
	}
	return out
}

// dayLabel renders a day name with the first letter upper-cased and the rest
// lowered.
func dayLabel(name string) string {
	if name == "" {
		return name
	}
	lowered := strings.ToLower(name)
	return strings.ToUpper(lowered[:1]) + lowered[1:]
}

// hourLabel renders a zero-padded "HH-HH" slot label from raw hour tokens.
func hourLabel(start, end string) string {
	return padHour(start) + "-" + padHour(end)
}

func padHour(token string) string {
	token = strings.TrimSpace(token)
	if v, err := strconv.Atoi(token); err == nil && v < 10 && len(token) == 1 {
		return "0" + token
	}
	return token
}
