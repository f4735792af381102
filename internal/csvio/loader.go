// Package csvio loads scheduling universes from CSV files and writes
// generated timetables back out. It backs the offline schedulectl tool so
// a term can be scheduled without a running database.
package csvio

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/schedulo-hq/schedulo-api/internal/models"
)

type roomRow struct {
	ID         int64  `csv:"id"`
	RoomNumber string `csv:"room_number"`
	Capacity   int    `csv:"capacity"`
	Type       string `csv:"type"`
	Building   string `csv:"building"`
}

type facultyRow struct {
	ID            int64  `csv:"id"`
	Name          string `csv:"name"`
	EmployeeID    string `csv:"employee_id"`
	DepartmentID  int64  `csv:"department_id"`
	MaxWeeklyLoad int    `csv:"max_weekly_load"`
	Blackouts     string `csv:"blackouts"`
}

type sectionRow struct {
	ID               int64  `csv:"id"`
	CourseID         int64  `csv:"course_id"`
	CourseCode       string `csv:"course_code"`
	CourseName       string `csv:"course_name"`
	Credits          int    `csv:"credits"`
	WeeklySessions   int    `csv:"weekly_sessions"`
	SessionMinutes   int    `csv:"session_minutes"`
	RequiredRoomType string `csv:"required_room_type"`
	FacultyID        int64  `csv:"faculty_id"`
	CohortSize       int    `csv:"cohort_size"`
	DepartmentID     int64  `csv:"department_id"`
	Semester         int    `csv:"semester"`
	Year             int    `csv:"year"`
}

// LoadRooms reads the room inventory from a CSV file.
func LoadRooms(path string) ([]models.Room, error) {
	var rows []*roomRow
	if err := unmarshalFile(path, &rows); err != nil {
		return nil, err
	}
	rooms := make([]models.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, models.Room{
			ID:         row.ID,
			RoomNumber: row.RoomNumber,
			Capacity:   row.Capacity,
			Type:       models.RoomType(row.Type),
			Building:   row.Building,
		})
	}
	return rooms, nil
}

// LoadFaculty reads faculty records from a CSV file. Blackout cells use
// the compact "day:slot" form separated by semicolons, e.g. "2:4;3:1".
func LoadFaculty(path string) ([]models.Faculty, error) {
	var rows []*facultyRow
	if err := unmarshalFile(path, &rows); err != nil {
		return nil, err
	}
	faculty := make([]models.Faculty, 0, len(rows))
	for _, row := range rows {
		blackouts, err := parseBlackouts(row.Blackouts)
		if err != nil {
			return nil, fmt.Errorf("faculty %d: %w", row.ID, err)
		}
		faculty = append(faculty, models.Faculty{
			ID:            row.ID,
			Name:          row.Name,
			EmployeeID:    row.EmployeeID,
			DepartmentID:  row.DepartmentID,
			MaxWeeklyLoad: row.MaxWeeklyLoad,
			Blackouts:     blackouts,
		})
	}
	return faculty, nil
}

// LoadSections reads sections with their course attributes inlined per row.
func LoadSections(path string) ([]models.Section, error) {
	var rows []*sectionRow
	if err := unmarshalFile(path, &rows); err != nil {
		return nil, err
	}
	sections := make([]models.Section, 0, len(rows))
	for _, row := range rows {
		course := &models.Course{
			ID:               row.CourseID,
			Code:             row.CourseCode,
			Name:             row.CourseName,
			Credits:          row.Credits,
			DepartmentID:     row.DepartmentID,
			WeeklySessions:   row.WeeklySessions,
			SessionMinutes:   row.SessionMinutes,
			RequiredRoomType: models.RoomType(row.RequiredRoomType),
		}
		sections = append(sections, models.Section{
			ID:           row.ID,
			CourseID:     row.CourseID,
			FacultyID:    row.FacultyID,
			CohortSize:   row.CohortSize,
			DepartmentID: row.DepartmentID,
			Semester:     row.Semester,
			Year:         row.Year,
			Course:       course,
		})
	}
	return sections, nil
}

func unmarshalFile(path string, out interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.UnmarshalFile(file, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func parseBlackouts(raw string) ([]models.BlackoutSlot, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []models.BlackoutSlot
	for _, pair := range strings.Split(raw, ";") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed blackout cell %q", pair)
		}
		day, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("malformed blackout day %q", parts[0])
		}
		slot, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("malformed blackout slot %q", parts[1])
		}
		out = append(out, models.BlackoutSlot{DayOfWeek: day, SlotIndex: slot})
	}
	return out, nil
}
