package models

// BlackoutSlot marks a (day, slot) cell a faculty member can never teach.
type BlackoutSlot struct {
	DayOfWeek int `json:"day_of_week"`
	SlotIndex int `json:"slot_index"`
}

// Faculty is a teaching staff record with explicit unavailability and an
// optional weekly load cap (0 means uncapped).
type Faculty struct {
	ID            int64          `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	EmployeeID    string         `db:"employee_id" json:"employee_id"`
	DepartmentID  int64          `db:"department_id" json:"department_id"`
	MaxWeeklyLoad int            `db:"max_weekly_load" json:"max_weekly_load"`
	Blackouts     []BlackoutSlot `db:"-" json:"blackouts,omitempty"`
}

// IsBlackedOut reports whether the faculty member is unavailable at the
// given cell.
func (f Faculty) IsBlackedOut(day, slot int) bool {
	for _, b := range f.Blackouts {
		if b.DayOfWeek == day && b.SlotIndex == slot {
			return true
		}
	}
	return false
}
