package models

import "time"

// Timetable is one persisted generation run for a semester/year.
type Timetable struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Semester  int       `db:"semester" json:"semester"`
	Year      int       `db:"year" json:"year"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Assignment is the atomic scheduler output: one weekly meeting of a
// section pinned to a room and a grid cell. The row shape matches the
// timetable_slots table consumed by attendance and export.
type Assignment struct {
	ID          int64  `db:"id" json:"id,omitempty"`
	TimetableID int64  `db:"timetable_id" json:"timetable_id,omitempty"`
	SectionID   int64  `db:"section_id" json:"section_id"`
	CourseID    int64  `db:"course_id" json:"course_id"`
	FacultyID   int64  `db:"faculty_id" json:"faculty_id"`
	RoomID      int64  `db:"room_id" json:"room_id"`
	DayOfWeek   int    `db:"day_of_week" json:"day_of_week"`
	SlotIndex   int    `db:"slot_index" json:"slot_index"`
	StartTime   string `db:"start_time" json:"start_time"`
	EndTime     string `db:"end_time" json:"end_time"`
}
