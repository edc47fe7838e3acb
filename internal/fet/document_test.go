package fet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/acadplan/timetable-api/pkg/errors"
)

func sampleDocument() *Document {
	return &Document{
		Version:         Version,
		InstitutionName: "Universidad Nacional",
		Comments:        "Facultad de Ingenieria",
		Days: DaysList{NumberOfDays: 2, Days: []Day{
			{Name: "Lunes"}, {Name: "Martes"},
		}},
		Hours: HoursList{NumberOfHours: 2, Hours: []Hour{
			{Name: "07-08"}, {Name: "08-09"},
		}},
		Subjects: SubjectsList{Subjects: []Subject{
			{Name: "Calculo I (MAT101)"},
		}},
		ActivityTags: ActivityTagsList{Tags: []ActivityTag{
			{Name: "Teorica", Printable: true},
		}},
		Teachers: TeachersList{Teachers: []Teacher{
			{Name: "Ana Perez", TargetHours: 10, QualifiedSubjects: QualifiedSubjects{Subjects: []string{"Calculo I (MAT101)"}}},
		}},
		Students: StudentsList{Years: []Year{
			{Name: "Primero", NumberOfStudents: 30, Separator: " ", Groups: []Group{
				{Name: "1A", NumberOfStudents: 30},
			}},
		}},
		Activities: ActivitiesList{Activities: []Activity{
			{Teacher: "Ana Perez", Subject: "Calculo I (MAT101)", ActivityTag: "Teorica", Students: "1A", Duration: 2, TotalDuration: 2, ID: 1, NumberOfStudents: 30, Active: true},
		}},
		Buildings: BuildingsList{Buildings: []Building{{Name: "Ingenieria"}}},
		Rooms: RoomsList{Rooms: []Room{
			{Name: "A-101", Building: "Ingenieria", Capacity: 40},
		}},
		TimeConstraints: TimeConstraintsList{
			Basic: ConstraintBasicCompulsoryTime{WeightPercentage: 100, Active: true},
		},
		SpaceConstraints: SpaceConstraintsList{
			Basic: ConstraintBasicCompulsorySpace{WeightPercentage: 100, Active: true},
		},
	}
}

func TestDocumentMarshal(t *testing.T) {
	doc := sampleDocument()
	out, err := doc.Marshal()
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "<?xml"))
	assert.Contains(t, text, `<fet version="6.1.5">`)
	assert.Contains(t, text, "<Institution_Name>Universidad Nacional</Institution_Name>")
	assert.Contains(t, text, "<Number_of_Days>2</Number_of_Days>")
	assert.Contains(t, text, "<Qualified_Subject>Calculo I (MAT101)</Qualified_Subject>")
	assert.Contains(t, text, "<Id>1</Id>")
	assert.Contains(t, text, "<ConstraintBasicCompulsoryTime>")
	assert.Contains(t, text, "<ConstraintBasicCompulsorySpace>")

	// Element order is fixed by the solver schema.
	assert.Less(t, strings.Index(text, "<Days_List>"), strings.Index(text, "<Hours_List>"))
	assert.Less(t, strings.Index(text, "<Teachers_List>"), strings.Index(text, "<Students_List>"))
	assert.Less(t, strings.Index(text, "<Activities_List>"), strings.Index(text, "<Rooms_List>"))
}

func TestDocumentValidate(t *testing.T) {
	require.NoError(t, sampleDocument().Validate())
}

func TestDocumentValidateCountMismatch(t *testing.T) {
	doc := sampleDocument()
	doc.Days.NumberOfDays = 5

	err := doc.Validate()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferentialInconsistency.Code, appErrors.CodeOf(err))
}

func TestDocumentValidateDuplicateActivityID(t *testing.T) {
	doc := sampleDocument()
	dup := doc.Activities.Activities[0]
	doc.Activities.Activities = append(doc.Activities.Activities, dup)

	err := doc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "appears more than once")
}

func TestDocumentValidateUnknownReferences(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Document)
	}{
		{"teacher", func(d *Document) { d.Activities.Activities[0].Teacher = "Nadie" }},
		{"subject", func(d *Document) { d.Activities.Activities[0].Subject = "Quimica (QUI)" }},
		{"activity tag", func(d *Document) { d.Activities.Activities[0].ActivityTag = "Laboratorio" }},
		{"group", func(d *Document) { d.Activities.Activities[0].Students = "9Z" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := sampleDocument()
			tc.mutate(doc)

			err := doc.Validate()
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrReferentialInconsistency.Code, appErrors.CodeOf(err))
			assert.Contains(t, err.Error(), "unknown "+tc.name)
		})
	}
}

func TestDocumentValidateYearLabelCountsAsGroup(t *testing.T) {
	doc := sampleDocument()
	doc.Activities.Activities[0].Students = "Primero"
	require.NoError(t, doc.Validate())
}
