package fet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/acadplan/timetable-api/pkg/errors"
)

const sampleResult = `<?xml version="1.0" encoding="UTF-8"?>
<Students_Timetable>
  <Subgroup name="1A Sub1">
    <Day name="Lunes">
      <Hour name="07-08">
        <Activity id="1"/>
        <Teacher name="Ana Perez"/>
        <Subject name="Calculo I (MAT101)"/>
        <Activity_Tag name="Teorica"/>
        <Room name="A-101"/>
      </Hour>
      <Hour name="08-09"/>
      <Hour name="09-10">
        <Activity id="2"/>
        <Subject name="Fisica I (FIS101)"/>
        <Activity_Tag name="Laboratorio"/>
      </Hour>
    </Day>
    <Day name="Martes">
      <Hour name="07-08">
        <Activity id="1"/>
        <Teacher name=""/>
        <Subject name="Calculo I (MAT101)"/>
        <Activity_Tag name="Teorica"/>
        <Room name=""/>
      </Hour>
    </Day>
  </Subgroup>
  <Subgroup name="1B Sub1">
    <Day name="Lunes">
      <Hour name="07-08"/>
    </Day>
  </Subgroup>
</Students_Timetable>`

func TestParseResult(t *testing.T) {
	schedule, err := ParseResult([]byte(sampleResult))
	require.NoError(t, err)
	require.Len(t, schedule.Subgroups, 2)

	first := schedule.Subgroups[0]
	assert.Equal(t, "1A Sub1", first.Name)
	require.Len(t, first.Days, 2)
	require.Len(t, first.Days[0].Hours, 3)

	placed := first.Days[0].Hours[0].Activity
	require.NotNil(t, placed)
	assert.Equal(t, int64(1), placed.ActivityID)
	assert.Equal(t, "Calculo I (MAT101)", placed.Subject)
	assert.Equal(t, "Teorica", placed.ActivityTag)
	require.NotNil(t, placed.Teacher)
	assert.Equal(t, "Ana Perez", *placed.Teacher)
	require.NotNil(t, placed.Room)
	assert.Equal(t, "A-101", *placed.Room)

	// Free slot keeps its label but carries no activity.
	assert.Nil(t, first.Days[0].Hours[1].Activity)
	assert.Equal(t, "08-09", first.Days[0].Hours[1].Name)

	// Placement without teacher or room stays nil on those fields.
	unassigned := first.Days[0].Hours[2].Activity
	require.NotNil(t, unassigned)
	assert.Nil(t, unassigned.Teacher)
	assert.Nil(t, unassigned.Room)

	// Empty name attributes are treated as absent.
	emptyAttrs := first.Days[1].Hours[0].Activity
	require.NotNil(t, emptyAttrs)
	assert.Nil(t, emptyAttrs.Teacher)
	assert.Nil(t, emptyAttrs.Room)
}

func TestParseResultActivityIDs(t *testing.T) {
	schedule, err := ParseResult([]byte(sampleResult))
	require.NoError(t, err)

	// Distinct ids in traversal order; id 1 appears twice but is kept once.
	assert.Equal(t, []int64{1, 2}, schedule.ActivityIDs())
}

func TestParseResultMalformedXML(t *testing.T) {
	_, err := ParseResult([]byte("<Students_Timetable><Subgroup"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrParse.Code, appErrors.CodeOf(err))
}

func TestParseResultEmptyTimetable(t *testing.T) {
	_, err := ParseResult([]byte(`<Students_Timetable></Students_Timetable>`))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrParse.Code, appErrors.CodeOf(err))
}

func TestParseResultShapeErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{
			"non-numeric activity id",
			`<Students_Timetable><Subgroup name="1A Sub1"><Day name="Lunes"><Hour name="07-08"><Activity id="x"/><Subject name="S"/><Activity_Tag name="T"/></Hour></Day></Subgroup></Students_Timetable>`,
		},
		{
			"missing subject",
			`<Students_Timetable><Subgroup name="1A Sub1"><Day name="Lunes"><Hour name="07-08"><Activity id="1"/><Activity_Tag name="T"/></Hour></Day></Subgroup></Students_Timetable>`,
		},
		{
			"missing activity tag",
			`<Students_Timetable><Subgroup name="1A Sub1"><Day name="Lunes"><Hour name="07-08"><Activity id="1"/><Subject name="S"/></Hour></Day></Subgroup></Students_Timetable>`,
		},
		{
			"unnamed subgroup",
			`<Students_Timetable><Subgroup><Day name="Lunes"/></Subgroup></Students_Timetable>`,
		},
		{
			"unnamed day",
			`<Students_Timetable><Subgroup name="1A Sub1"><Day/></Subgroup></Students_Timetable>`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseResult([]byte(tc.body))
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrParse.Code, appErrors.CodeOf(err))
		})
	}
}
