package models

// RoomType classifies teaching spaces. A course may require a specific
// type; an empty requirement accepts any room.
type RoomType string

const (
	RoomTypeLecture  RoomType = "lecture"
	RoomTypeLab      RoomType = "lab"
	RoomTypeSeminar  RoomType = "seminar"
	RoomTypeTutorial RoomType = "tutorial"
)

// ValidRoomType reports whether t names a known room type.
func ValidRoomType(t RoomType) bool {
	switch t {
	case RoomTypeLecture, RoomTypeLab, RoomTypeSeminar, RoomTypeTutorial:
		return true
	}
	return false
}

// Course is an immutable catalogue entry loaded once per scheduling run.
type Course struct {
	ID               int64    `db:"id" json:"id"`
	Code             string   `db:"code" json:"code"`
	Name             string   `db:"name" json:"name"`
	Credits          int      `db:"credits" json:"credits"`
	DepartmentID     int64    `db:"department_id" json:"department_id"`
	WeeklySessions   int      `db:"weekly_sessions" json:"weekly_sessions"`
	SessionMinutes   int      `db:"session_minutes" json:"session_minutes"`
	RequiredRoomType RoomType `db:"required_room_type" json:"required_room_type,omitempty"`
}
