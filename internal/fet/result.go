package fet

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/acadplan/timetable-api/internal/models"
	appErrors "github.com/acadplan/timetable-api/pkg/errors"
)

// Raw shapes of the solver's subgroup timetable output. Everything of
// interest lives in attributes; optional children are modeled as pointers so
// presence is detected structurally, never by value truthiness.
type resultTimetable struct {
	XMLName   xml.Name         `xml:"Students_Timetable"`
	Subgroups []resultSubgroup `xml:"Subgroup"`
}

type resultSubgroup struct {
	Name string      `xml:"name,attr"`
	Days []resultDay `xml:"Day"`
}

type resultDay struct {
	Name  string       `xml:"name,attr"`
	Hours []resultHour `xml:"Hour"`
}

type resultHour struct {
	Name        string         `xml:"name,attr"`
	Activity    *resultIDRef   `xml:"Activity"`
	Teacher     *resultNameRef `xml:"Teacher"`
	Subject     *resultNameRef `xml:"Subject"`
	ActivityTag *resultNameRef `xml:"Activity_Tag"`
	Room        *resultNameRef `xml:"Room"`
}

type resultIDRef struct {
	ID string `xml:"id,attr"`
}

type resultNameRef struct {
	Name string `xml:"name,attr"`
}

// ParseResult normalizes the solver's subgroup output into the queryable
// schedule tree, preserving subgroup, day and hour order. A malformed shape
// yields a PARSE_ERROR naming the offending node path; this is deliberately
// distinct from solver runtime failures.
func ParseResult(data []byte) (*models.NormalizedSchedule, error) {
	var raw resultTimetable
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrParse.Code, appErrors.ErrParse.Status, "solver output is not well-formed XML")
	}
	if len(raw.Subgroups) == 0 {
		return nil, parseError("Students_Timetable", "no Subgroup nodes")
	}

	schedule := &models.NormalizedSchedule{Subgroups: make([]models.Subgroup, 0, len(raw.Subgroups))}
	for si, sub := range raw.Subgroups {
		if sub.Name == "" {
			return nil, parseError(fmt.Sprintf("Subgroup[%d]", si), "missing name attribute")
		}
		normalized := models.Subgroup{Name: sub.Name, Days: make([]models.ScheduleDay, 0, len(sub.Days))}
		for di, day := range sub.Days {
			dayPath := fmt.Sprintf("Subgroup[%s].Day[%d]", sub.Name, di)
			if day.Name == "" {
				return nil, parseError(dayPath, "missing name attribute")
			}
			normalizedDay := models.ScheduleDay{Name: day.Name, Hours: make([]models.ScheduleHour, 0, len(day.Hours))}
			for hi, hour := range day.Hours {
				hourPath := fmt.Sprintf("%s.Hour[%d]", dayPath, hi)
				normalizedHour, err := normalizeHour(hour, hourPath)
				if err != nil {
					return nil, err
				}
				normalizedDay.Hours = append(normalizedDay.Hours, normalizedHour)
			}
			normalized.Days = append(normalized.Days, normalizedDay)
		}
		schedule.Subgroups = append(schedule.Subgroups, normalized)
	}

	return schedule, nil
}

func normalizeHour(hour resultHour, path string) (models.ScheduleHour, error) {
	if hour.Name == "" {
		return models.ScheduleHour{}, parseError(path, "missing name attribute")
	}
	normalized := models.ScheduleHour{Name: hour.Name}

	// An hour with no Activity child is a legitimately free slot.
	if hour.Activity == nil {
		return normalized, nil
	}

	id, err := strconv.ParseInt(hour.Activity.ID, 10, 64)
	if err != nil {
		return models.ScheduleHour{}, parseError(path+".Activity", fmt.Sprintf("non-numeric id %q", hour.Activity.ID))
	}
	if hour.Subject == nil || hour.Subject.Name == "" {
		return models.ScheduleHour{}, parseError(path+".Subject", "missing for placed activity")
	}
	if hour.ActivityTag == nil {
		return models.ScheduleHour{}, parseError(path+".Activity_Tag", "missing for placed activity")
	}

	placed := &models.PlacedActivity{
		ActivityID:  id,
		Subject:     hour.Subject.Name,
		ActivityTag: hour.ActivityTag.Name,
	}
	// Teacher and room are optional placements. An element carrying an empty
	// name attribute is treated the same as an absent element.
	if hour.Teacher != nil && hour.Teacher.Name != "" {
		name := hour.Teacher.Name
		placed.Teacher = &name
	}
	if hour.Room != nil && hour.Room.Name != "" {
		name := hour.Room.Name
		placed.Room = &name
	}
	normalized.Activity = placed

	return normalized, nil
}

func parseError(path, msg string) error {
	return appErrors.Clone(appErrors.ErrParse, fmt.Sprintf("%s: %s", path, msg))
}
