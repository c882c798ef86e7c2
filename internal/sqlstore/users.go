package sqlstore

import (
	"context"
	"fmt"

	"faceattend/internal/model"
)

// RegisterUser inserts u and fills in its id. The roll number must be unused
// and the department must exist.
func (s *Store) RegisterUser(ctx context.Context, u *model.User) error {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM departments WHERE id = ?`, u.DepartmentID).Scan(&n); err != nil {
		return fmt.Errorf("check department: %w", err)
	}
	if n == 0 {
		return ErrUnknownDepartment
	}

	id, err := s.insertID(ctx,
		`INSERT INTO users (name, department_id, branch, roll_number, photo) VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.DepartmentID, u.Branch, u.RollNumber, u.Photo,
	)
	if err != nil {
		if s.dialect.isUnique(err) {
			return fmt.Errorf("roll number %s: %w", u.RollNumber, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

// ListUsers returns every user, newest first, with department names joined.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.query(ctx, `SELECT `+userColumns+userFrom+` ORDER BY u.created_at DESC, u.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListDepartments returns departments ordered by name.
func (s *Store) ListDepartments(ctx context.Context) ([]model.Department, error) {
	rows, err := s.query(ctx, `SELECT id, name, created_at FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	depts := []model.Department{}
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		depts = append(depts, d)
	}
	return depts, rows.Err()
}

// Stats counts registered users and attendance rows on date.
func (s *Store) Stats(ctx context.Context, date string) (model.Stats, error) {
	var st model.Stats
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&st.TotalUsers); err != nil {
		return st, fmt.Errorf("count users: %w", err)
	}
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM attendance WHERE att_date = ?`, date).Scan(&st.TodayAttendance); err != nil {
		return st, fmt.Errorf("count attendance: %w", err)
	}
	return st, nil
}
