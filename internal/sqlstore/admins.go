package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"faceattend/internal/model"
)

// CreateAdmin inserts a with an already-hashed password.
func (s *Store) CreateAdmin(ctx context.Context, a *model.Admin) error {
	var dept sql.NullInt64
	if a.DepartmentID != nil {
		dept = sql.NullInt64{Int64: *a.DepartmentID, Valid: true}
	}
	id, err := s.insertID(ctx,
		`INSERT INTO admins (username, password_hash, department_id) VALUES (?, ?, ?)`,
		a.Username, a.PasswordHash, dept,
	)
	if err != nil {
		if s.dialect.isUnique(err) {
			return fmt.Errorf("admin %s: %w", a.Username, ErrDuplicate)
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	a.ID = id
	return nil
}

// FindAdmin looks up an admin by username. It returns (nil, nil) when none
// exists.
func (s *Store) FindAdmin(ctx context.Context, username string) (*model.Admin, error) {
	var (
		a    model.Admin
		dept sql.NullInt64
	)
	err := s.queryRow(ctx, `
		SELECT a.id, a.username, a.password_hash, a.department_id, COALESCE(d.name, ''), a.created_at
		FROM admins a LEFT JOIN departments d ON d.id = a.department_id
		WHERE a.username = ?`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &dept, &a.Department, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if dept.Valid {
		a.DepartmentID = &dept.Int64
	}
	return &a, nil
}
