package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/schedulo-hq/schedulo-api/internal/models"
)

// SectionRepository loads course sections for scheduling runs.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// ListForTerm returns all sections of the semester/year with their course
// hydrated. The engine requires Course to be non-nil on every section.
func (r *SectionRepository) ListForTerm(ctx context.Context, semester, year int) ([]models.Section, error) {
	const query = `SELECT id, course_id, faculty_id, cohort_size, department_id, semester, year
FROM sections WHERE semester = $1 AND year = $2 ORDER BY id ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, semester, year); err != nil {
		return nil, fmt.Errorf("list sections for term: %w", err)
	}
	if len(sections) == 0 {
		return sections, nil
	}

	courseIDs := lo.Uniq(lo.Map(sections, func(s models.Section, _ int) int64 { return s.CourseID }))
	const courseQuery = `SELECT id, code, name, credits, department_id, weekly_sessions, session_minutes, required_room_type
FROM courses WHERE id = ANY($1)`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, courseQuery, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("hydrate section courses: %w", err)
	}

	byID := lo.SliceToMap(courses, func(c models.Course) (int64, models.Course) { return c.ID, c })
	for i := range sections {
		course, ok := byID[sections[i].CourseID]
		if !ok {
			return nil, fmt.Errorf("section %d references missing course %d", sections[i].ID, sections[i].CourseID)
		}
		sections[i].Course = &course
	}
	return sections, nil
}

// ListByDepartment narrows ListForTerm to one department, used by batch runs.
func (r *SectionRepository) ListByDepartment(ctx context.Context, semester, year int, departmentID int64) ([]models.Section, error) {
	sections, err := r.ListForTerm(ctx, semester, year)
	if err != nil {
		return nil, err
	}
	return lo.Filter(sections, func(s models.Section, _ int) bool { return s.DepartmentID == departmentID }), nil
}

// DepartmentsForTerm lists the distinct departments that offer sections in
// the term, in stable order.
func (r *SectionRepository) DepartmentsForTerm(ctx context.Context, semester, year int) ([]int64, error) {
	const query = `SELECT DISTINCT department_id FROM sections WHERE semester = $1 AND year = $2 ORDER BY department_id ASC`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, semester, year); err != nil {
		return nil, fmt.Errorf("list departments for term: %w", err)
	}
	return ids, nil
}
