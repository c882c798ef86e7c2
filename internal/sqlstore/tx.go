package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"faceattend/internal/attendance"
	"faceattend/internal/model"
)

const userColumns = `u.id, u.roll_number, u.name, u.department_id, COALESCE(d.name, ''), u.branch, u.created_at`

const userFrom = ` FROM users u LEFT JOIN departments d ON d.id = u.department_id`

// Begin opens a transaction for the attendance recorder.
func (s *Store) Begin(ctx context.Context) (attendance.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &recordTx{tx: tx, dialect: s.dialect}, nil
}

type recordTx struct {
	tx      *sql.Tx
	dialect dialect
}

func (t *recordTx) FindUser(ctx context.Context, rollNumber string) (*model.User, error) {
	row := t.tx.QueryRowContext(ctx, t.dialect.rebind(`SELECT `+userColumns+userFrom+` WHERE u.roll_number = ?`), rollNumber)
	return scanOptionalUser(row)
}

func (t *recordTx) FindAnyUser(ctx context.Context) (*model.User, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+userColumns+userFrom+` ORDER BY u.id LIMIT 1`)
	return scanOptionalUser(row)
}

func (t *recordTx) CountAttendance(ctx context.Context, rollNumber, date string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		t.dialect.rebind(`SELECT COUNT(*) FROM attendance WHERE roll_number = ? AND att_date = ?`),
		rollNumber, date,
	).Scan(&n)
	return n, err
}

func (t *recordTx) InsertAttendance(ctx context.Context, rec model.AttendanceRecord) error {
	_, err := t.tx.ExecContext(ctx,
		t.dialect.rebind(`INSERT INTO attendance (roll_number, att_date, att_time, status, capture_id) VALUES (?, ?, ?, ?, ?)`),
		rec.RollNumber, rec.Date, rec.Time, rec.Status, rec.CaptureID,
	)
	if err != nil && t.dialect.isUnique(err) {
		return fmt.Errorf("%w: %v", attendance.ErrDuplicateAttendance, err)
	}
	return err
}

func (t *recordTx) Commit() error   { return t.tx.Commit() }
func (t *recordTx) Rollback() error { return t.tx.Rollback() }

func scanUser(sc scanner) (*model.User, error) {
	var u model.User
	if err := sc.Scan(&u.ID, &u.RollNumber, &u.Name, &u.DepartmentID, &u.Department, &u.Branch, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanOptionalUser(sc scanner) (*model.User, error) {
	u, err := scanUser(sc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}
