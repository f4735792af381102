package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/schedulo-hq/schedulo-api/internal/models"
)

// TimetableRepository persists generated timetables and their assignments.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a timetable header and fills in its generated id.
func (r *TimetableRepository) Create(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable) error {
	if tt == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if tt.CreatedAt.IsZero() {
		tt.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO timetables (name, semester, year, is_active, created_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &tt.ID, query, tt.Name, tt.Semester, tt.Year, tt.IsActive, tt.CreatedAt); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// InsertAssignments writes the scheduler output rows for a timetable.
func (r *TimetableRepository) InsertAssignments(ctx context.Context, exec sqlx.ExtContext, timetableID int64, assignments []models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	target := r.exec(exec)

	const query = `
INSERT INTO timetable_slots (timetable_id, section_id, course_id, faculty_id, room_id, day_of_week, slot_index, start_time, end_time)
VALUES (:timetable_id, :section_id, :course_id, :faculty_id, :room_id, :day_of_week, :slot_index, :start_time, :end_time)`

	for i := range assignments {
		assignments[i].TimetableID = timetableID
		if _, err := sqlx.NamedExecContext(ctx, target, query, assignments[i]); err != nil {
			return fmt.Errorf("insert timetable slot: %w", err)
		}
	}
	return nil
}

// FindByID loads a timetable header.
func (r *TimetableRepository) FindByID(ctx context.Context, id int64) (*models.Timetable, error) {
	const query = `SELECT id, name, semester, year, is_active, created_at FROM timetables WHERE id = $1`
	var tt models.Timetable
	if err := r.db.GetContext(ctx, &tt, query, id); err != nil {
		return nil, err
	}
	return &tt, nil
}

// ListByTerm returns the timetables of a semester/year, newest first.
func (r *TimetableRepository) ListByTerm(ctx context.Context, semester, year int) ([]models.Timetable, error) {
	const query = `SELECT id, name, semester, year, is_active, created_at
FROM timetables WHERE semester = $1 AND year = $2 ORDER BY created_at DESC, id DESC`
	var list []models.Timetable
	if err := r.db.SelectContext(ctx, &list, query, semester, year); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return list, nil
}

// ListAssignments returns the slots of a timetable in grid order.
func (r *TimetableRepository) ListAssignments(ctx context.Context, timetableID int64) ([]models.Assignment, error) {
	const query = `SELECT id, timetable_id, section_id, course_id, faculty_id, room_id, day_of_week, slot_index, start_time, end_time
FROM timetable_slots WHERE timetable_id = $1 ORDER BY day_of_week ASC, slot_index ASC, room_id ASC`
	var slots []models.Assignment
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable slots: %w", err)
	}
	return slots, nil
}

// Activate flips the timetable to active and deactivates its term siblings.
// Callers run it inside a transaction so the term never has two active
// timetables.
func (r *TimetableRepository) Activate(ctx context.Context, exec sqlx.ExtContext, id int64, semester, year int) error {
	target := r.exec(exec)

	const deactivate = `UPDATE timetables SET is_active = FALSE WHERE semester = $1 AND year = $2 AND id <> $3`
	if _, err := target.ExecContext(ctx, deactivate, semester, year, id); err != nil {
		return fmt.Errorf("deactivate sibling timetables: %w", err)
	}

	const activate = `UPDATE timetables SET is_active = TRUE WHERE id = $1`
	result, err := target.ExecContext(ctx, activate, id)
	if err != nil {
		return fmt.Errorf("activate timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a timetable and its slots.
func (r *TimetableRepository) Delete(ctx context.Context, id int64) error {
	const slotQuery = `DELETE FROM timetable_slots WHERE timetable_id = $1`
	if _, err := r.db.ExecContext(ctx, slotQuery, id); err != nil {
		return fmt.Errorf("delete timetable slots: %w", err)
	}
	const query = `DELETE FROM timetables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
