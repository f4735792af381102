package csvio

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/schedulo-hq/schedulo-api/internal/models"
	"github.com/schedulo-hq/schedulo-api/internal/scheduler"
)

type assignmentRow struct {
	SectionID int64  `csv:"section_id"`
	CourseID  int64  `csv:"course_id"`
	FacultyID int64  `csv:"faculty_id"`
	RoomID    int64  `csv:"room_id"`
	DayOfWeek int    `csv:"day_of_week"`
	SlotIndex int    `csv:"slot_index"`
	StartTime string `csv:"start_time"`
	EndTime   string `csv:"end_time"`
}

type unplacedRow struct {
	SectionID  int64  `csv:"section_id"`
	Occurrence int    `csv:"occurrence"`
	Reason     string `csv:"last_failure_reason"`
}

// WriteAssignments writes placed sessions in grid order.
func WriteAssignments(path string, assignments []models.Assignment) error {
	rows := make([]*assignmentRow, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, &assignmentRow{
			SectionID: a.SectionID,
			CourseID:  a.CourseID,
			FacultyID: a.FacultyID,
			RoomID:    a.RoomID,
			DayOfWeek: a.DayOfWeek,
			SlotIndex: a.SlotIndex,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
		})
	}
	return marshalFile(path, &rows)
}

// WriteUnplaced writes the per-session diagnostics of a run.
func WriteUnplaced(path string, unplaced []scheduler.UnplacedSection) error {
	rows := make([]*unplacedRow, 0, len(unplaced))
	for _, u := range unplaced {
		rows = append(rows, &unplacedRow{
			SectionID:  u.SectionID,
			Occurrence: u.Occurrence,
			Reason:     u.Reason,
		})
	}
	return marshalFile(path, &rows)
}

func marshalFile(path string, rows interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(rows, file); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
