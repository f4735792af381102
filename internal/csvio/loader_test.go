package csvio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulo-hq/schedulo-api/internal/models"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRooms(t *testing.T) {
	path := writeTemp(t, "rooms.csv", "id,room_number,capacity,type,building\n1,A101,60,lecture,Main\n2,C301,24,lab,Science\n")

	rooms, err := LoadRooms(path)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, models.RoomTypeLab, rooms[1].Type)
	assert.Equal(t, 60, rooms[0].Capacity)
}

func TestLoadFacultyParsesBlackouts(t *testing.T) {
	path := writeTemp(t, "faculty.csv", "id,name,employee_id,department_id,max_weekly_load,blackouts\n1,Dr. Rao,EMP-001,1,12,2:4;3:1\n2,Dr. Iyer,EMP-002,1,0,\n")

	faculty, err := LoadFaculty(path)
	require.NoError(t, err)
	require.Len(t, faculty, 2)
	assert.True(t, faculty[0].IsBlackedOut(2, 4))
	assert.True(t, faculty[0].IsBlackedOut(3, 1))
	assert.False(t, faculty[0].IsBlackedOut(3, 2))
	assert.Empty(t, faculty[1].Blackouts)
}

func TestLoadFacultyMalformedBlackout(t *testing.T) {
	path := writeTemp(t, "faculty.csv", "id,name,employee_id,department_id,max_weekly_load,blackouts\n1,Dr. Rao,EMP-001,1,0,oops\n")

	_, err := LoadFaculty(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed blackout")
}

func TestLoadSectionsHydratesCourse(t *testing.T) {
	path := writeTemp(t, "sections.csv",
		"id,course_id,course_code,course_name,credits,weekly_sessions,session_minutes,required_room_type,faculty_id,cohort_size,department_id,semester,year\n"+
			"1,101,CS301,Operating Systems,4,3,50,lecture,5,42,1,3,2026\n")

	sections, err := LoadSections(path)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.NotNil(t, sections[0].Course)
	assert.Equal(t, "CS301", sections[0].Course.Code)
	assert.Equal(t, 3, sections[0].Course.WeeklySessions)
	assert.Equal(t, "1/3/2026", sections[0].CohortKey())
}

func TestLoadRoomsMissingFile(t *testing.T) {
	_, err := LoadRooms(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
