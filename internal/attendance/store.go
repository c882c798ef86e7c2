package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"

	"faceattend/internal/model"
)

// ErrDuplicateAttendance is returned by Tx.InsertAttendance when the store's
// (roll number, date) uniqueness constraint rejects the row.
var ErrDuplicateAttendance = errors.New("attendance already recorded for date")

// Store opens request-scoped transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the transactional view the Recorder needs.
// FindUser and FindAnyUser return (nil, nil) when no user matches.
type Tx interface {
	FindUser(ctx context.Context, rollNumber string) (*model.User, error)
	FindAnyUser(ctx context.Context) (*model.User, error)
	CountAttendance(ctx context.Context, rollNumber, date string) (int, error)
	InsertAttendance(ctx context.Context, rec model.AttendanceRecord) error
	Commit() error
	Rollback() error
}

// withTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on every other exit, panics included.
func withTx(ctx context.Context, s Store, fn func(Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	done := false
	defer func() {
		if done {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("rollback failed: %v", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	done = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
