// Package fet builds and parses documents in the interchange format of the
// FET timetabling solver. Element names and nesting are fixed by the solver's
// schema and must be reproduced exactly.
package fet

import (
	"encoding/xml"
	"fmt"

	appErrors "github.com/acadplan/timetable-api/pkg/errors"
)

// Version is the solver schema version the document declares.
const Version = "6.1.5"

// Document is the root aggregate written for one generation run. It is built
// once, serialized, and discarded; it is not a domain entity.
type Document struct {
	XMLName          xml.Name             `xml:"fet"`
	Version          string               `xml:"version,attr"`
	InstitutionName  string               `xml:"Institution_Name"`
	Comments         string               `xml:"Comments"`
	Days             DaysList             `xml:"Days_List"`
	Hours            HoursList            `xml:"Hours_List"`
	Subjects         SubjectsList         `xml:"Subjects_List"`
	ActivityTags     ActivityTagsList     `xml:"Activity_Tags_List"`
	Teachers         TeachersList         `xml:"Teachers_List"`
	Students         StudentsList         `xml:"Students_List"`
	Activities       ActivitiesList       `xml:"Activities_List"`
	Buildings        BuildingsList        `xml:"Buildings_List"`
	Rooms            RoomsList            `xml:"Rooms_List"`
	TimeConstraints  TimeConstraintsList  `xml:"Time_Constraints_List"`
	SpaceConstraints SpaceConstraintsList `xml:"Space_Constraints_List"`
}

type DaysList struct {
	NumberOfDays int   `xml:"Number_of_Days"`
	Days         []Day `xml:"Day"`
}

type Day struct {
	Name string `xml:"Name"`
}

type HoursList struct {
	NumberOfHours int    `xml:"Number_of_Hours"`
	Hours         []Hour `xml:"Hour"`
}

type Hour struct {
	Name string `xml:"Name"`
}

type SubjectsList struct {
	Subjects []Subject `xml:"Subject"`
}

type Subject struct {
	Name     string `xml:"Name"`
	Comments string `xml:"Comments"`
}

type ActivityTagsList struct {
	Tags []ActivityTag `xml:"Activity_Tag"`
}

type ActivityTag struct {
	Name      string `xml:"Name"`
	Printable bool   `xml:"Printable"`
	Comments  string `xml:"Comments"`
}

type TeachersList struct {
	Teachers []Teacher `xml:"Teacher"`
}

type Teacher struct {
	Name              string            `xml:"Name"`
	TargetHours       int               `xml:"Target_Number_of_Hours"`
	QualifiedSubjects QualifiedSubjects `xml:"Qualified_Subjects"`
	Comments          string            `xml:"Comments"`
}

// QualifiedSubjects lists the subjects a teacher may be scheduled for, in
// first-appearance order.
type QualifiedSubjects struct {
	Subjects []string `xml:"Qualified_Subject"`
}

type StudentsList struct {
	Years []Year `xml:"Year"`
}

// Year is a level; its groups nest underneath.
type Year struct {
	Name             string  `xml:"Name"`
	NumberOfStudents int     `xml:"Number_of_Students"`
	Comments         string  `xml:"Comments"`
	Separator        string  `xml:"Separator"`
	Groups           []Group `xml:"Group"`
}

type Group struct {
	Name             string `xml:"Name"`
	NumberOfStudents int    `xml:"Number_of_Students"`
	Comments         string `xml:"Comments"`
}

type ActivitiesList struct {
	Activities []Activity `xml:"Activity"`
}

// Activity references catalog entries by label. Id must be unique across the
// document; it is the join key used to re-link solver placements to source
// activities.
type Activity struct {
	Teacher          string `xml:"Teacher"`
	Subject          string `xml:"Subject"`
	ActivityTag      string `xml:"Activity_Tag"`
	Students         string `xml:"Students"`
	Duration         int    `xml:"Duration"`
	TotalDuration    int    `xml:"Total_Duration"`
	ID               int64  `xml:"Id"`
	ActivityGroupID  int64  `xml:"Activity_Group_Id"`
	NumberOfStudents int    `xml:"Number_Of_Students"`
	Active           bool   `xml:"Active"`
	Comments         string `xml:"Comments"`
}

type BuildingsList struct {
	Buildings []Building `xml:"Building"`
}

type Building struct {
	Name     string `xml:"Name"`
	Comments string `xml:"Comments"`
}

type RoomsList struct {
	Rooms []Room `xml:"Room"`
}

type Room struct {
	Name     string `xml:"Name"`
	Building string `xml:"Building"`
	Capacity int    `xml:"Capacity"`
	Virtual  bool   `xml:"Virtual"`
	Comments string `xml:"Comments"`
}

type TimeConstraintsList struct {
	Basic                   ConstraintBasicCompulsoryTime             `xml:"ConstraintBasicCompulsoryTime"`
	Breaks                  *ConstraintBreakTimes                     `xml:"ConstraintBreakTimes,omitempty"`
	PreferredStartingTimes  []ConstraintActivityPreferredStartingTime `xml:"ConstraintActivityPreferredStartingTime"`
	TeacherNotAvailableList []ConstraintTeacherNotAvailableTimes      `xml:"ConstraintTeacherNotAvailableTimes"`
}

type SpaceConstraintsList struct {
	Basic          ConstraintBasicCompulsorySpace    `xml:"ConstraintBasicCompulsorySpace"`
	PreferredRooms []ConstraintActivityPreferredRoom `xml:"ConstraintActivityPreferredRoom"`
}

type ConstraintBasicCompulsoryTime struct {
	WeightPercentage int    `xml:"Weight_Percentage"`
	Active           bool   `xml:"Active"`
	Comments         string `xml:"Comments"`
}

type ConstraintBreakTimes struct {
	WeightPercentage   int         `xml:"Weight_Percentage"`
	NumberOfBreakTimes int         `xml:"Number_of_Break_Times"`
	BreakTimes         []BreakTime `xml:"Break_Time"`
	Active             bool        `xml:"Active"`
	Comments           string      `xml:"Comments"`
}

type BreakTime struct {
	Day  string `xml:"Day"`
	Hour string `xml:"Hour"`
}

type ConstraintActivityPreferredStartingTime struct {
	WeightPercentage  int    `xml:"Weight_Percentage"`
	ActivityID        int64  `xml:"Activity_Id"`
	PreferredDay      string `xml:"Preferred_Day"`
	PreferredHour     string `xml:"Preferred_Hour"`
	PermanentlyLocked bool   `xml:"Permanently_Locked"`
	Active            bool   `xml:"Active"`
	Comments          string `xml:"Comments"`
}

type ConstraintTeacherNotAvailableTimes struct {
	WeightPercentage          int                `xml:"Weight_Percentage"`
	Teacher                   string             `xml:"Teacher"`
	NumberOfNotAvailableTimes int                `xml:"Number_of_Not_Available_Times"`
	NotAvailableTimes         []NotAvailableTime `xml:"Not_Available_Time"`
	Active                    bool               `xml:"Active"`
	Comments                  string             `xml:"Comments"`
}

type NotAvailableTime struct {
	Day  string `xml:"Day"`
	Hour string `xml:"Hour"`
}

type ConstraintBasicCompulsorySpace struct {
	WeightPercentage int    `xml:"Weight_Percentage"`
	Active           bool   `xml:"Active"`
	Comments         string `xml:"Comments"`
}

type ConstraintActivityPreferredRoom struct {
	WeightPercentage  int    `xml:"Weight_Percentage"`
	ActivityID        int64  `xml:"Activity_Id"`
	Room              string `xml:"Room"`
	PermanentlyLocked bool   `xml:"Permanently_Locked"`
	Active            bool   `xml:"Active"`
	Comments          string `xml:"Comments"`
}

// Marshal renders the document with XML header and stable element order.
func (d *Document) Marshal() ([]byte, error) {
	if d.Version == "" {
		d.Version = Version
	}
	body, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal fet document: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// Validate checks the document's internal consistency before it is handed to
// the solver: declared counts must match list lengths, activity ids must be
// unique, and every label an activity references must exist in its catalog
// list. A document failing validation must never be staged.
func (d *Document) Validate() error {
	if d.Days.NumberOfDays != len(d.Days.Days) {
		return appErrors.Clone(appErrors.ErrReferentialInconsistency,
			fmt.Sprintf("declared %d days but listed %d", d.Days.NumberOfDays, len(d.Days.Days)))
	}
	if d.Hours.NumberOfHours != len(d.Hours.Hours) {
		return appErrors.Clone(appErrors.ErrReferentialInconsistency,
			fmt.Sprintf("declared %d hours but listed %d", d.Hours.NumberOfHours, len(d.Hours.Hours)))
	}

	teachers := make(map[string]struct{}, len(d.Teachers.Teachers))
	for _, t := range d.Teachers.Teachers {
		teachers[t.Name] = struct{}{}
	}
	subjects := make(map[string]struct{}, len(d.Subjects.Subjects))
	for _, s := range d.Subjects.Subjects {
		subjects[s.Name] = struct{}{}
	}
	tags := make(map[string]struct{}, len(d.ActivityTags.Tags))
	for _, tag := range d.ActivityTags.Tags {
		tags[tag.Name] = struct{}{}
	}
	groups := make(map[string]struct{})
	for _, year := range d.Students.Years {
		groups[year.Name] = struct{}{}
		for _, g := range year.Groups {
			groups[g.Name] = struct{}{}
		}
	}

	ids := make(map[int64]struct{}, len(d.Activities.Activities))
	for _, a := range d.Activities.Activities {
		if _, dup := ids[a.ID]; dup {
			return appErrors.Clone(appErrors.ErrReferentialInconsistency,
				fmt.Sprintf("activity id %d appears more than once", a.ID))
		}
		ids[a.ID] = struct{}{}

		if _, ok := teachers[a.Teacher]; !ok {
			return referenceError(a.ID, "teacher", a.Teacher)
		}
		if _, ok := subjects[a.Subject]; !ok {
			return referenceError(a.ID, "subject", a.Subject)
		}
		if _, ok := tags[a.ActivityTag]; !ok {
			return referenceError(a.ID, "activity tag", a.ActivityTag)
		}
		if _, ok := groups[a.Students]; !ok {
			return referenceError(a.ID, "group", a.Students)
		}
	}

	return nil
}

func referenceError(activityID int64, kind, label string) error {
	return appErrors.Clone(appErrors.ErrReferentialInconsistency,
		fmt.Sprintf("activity %d references unknown %s %q", activityID, kind, label))
}
