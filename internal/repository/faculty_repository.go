package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/schedulo-hq/schedulo-api/internal/models"
)

// FacultyRepository loads teaching staff and their availability blackouts.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

type facultyRow struct {
	ID            int64          `db:"id"`
	Name          string         `db:"name"`
	EmployeeID    string         `db:"employee_id"`
	DepartmentID  int64          `db:"department_id"`
	MaxWeeklyLoad int            `db:"max_weekly_load"`
	Blackouts     types.JSONText `db:"blackouts"`
}

func (row facultyRow) toModel() (models.Faculty, error) {
	f := models.Faculty{
		ID:            row.ID,
		Name:          row.Name,
		EmployeeID:    row.EmployeeID,
		DepartmentID:  row.DepartmentID,
		MaxWeeklyLoad: row.MaxWeeklyLoad,
	}
	if len(row.Blackouts) > 0 {
		if err := json.Unmarshal(row.Blackouts, &f.Blackouts); err != nil {
			return f, fmt.Errorf("decode blackouts for faculty %d: %w", row.ID, err)
		}
	}
	return f, nil
}

// ListAll returns every faculty member with decoded blackout slots.
func (r *FacultyRepository) ListAll(ctx context.Context) ([]models.Faculty, error) {
	const query = `SELECT id, name, employee_id, department_id, max_weekly_load, COALESCE(blackouts, '[]') AS blackouts
FROM faculty ORDER BY id ASC`
	var rows []facultyRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	out := make([]models.Faculty, 0, len(rows))
	for _, row := range rows {
		f, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// FindByID loads a single faculty member.
func (r *FacultyRepository) FindByID(ctx context.Context, id int64) (*models.Faculty, error) {
	const query = `SELECT id, name, employee_id, department_id, max_weekly_load, COALESCE(blackouts, '[]') AS blackouts
FROM faculty WHERE id = $1`
	var row facultyRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	f, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &f, nil
}
