package models

import "fmt"

// Section is one offering of a course: a fixed faculty member teaches a
// cohort of CohortSize students for Course.WeeklySessions meetings per
// week. Sections sharing a department/semester/year triple share a cohort
// and therefore can never meet at the same time.
type Section struct {
	ID           int64 `db:"id" json:"id"`
	CourseID     int64 `db:"course_id" json:"course_id"`
	FacultyID    int64 `db:"faculty_id" json:"faculty_id"`
	CohortSize   int   `db:"cohort_size" json:"cohort_size"`
	DepartmentID int64 `db:"department_id" json:"department_id"`
	Semester     int   `db:"semester" json:"semester"`
	Year         int   `db:"year" json:"year"`

	// Course is hydrated by the loader; never nil during a run.
	Course *Course `db:"-" json:"course,omitempty"`
}

// CohortKey identifies the student group attending this section for
// conflict purposes.
func (s Section) CohortKey() string {
	return fmt.Sprintf("%d/%d/%d", s.DepartmentID, s.Semester, s.Year)
}
