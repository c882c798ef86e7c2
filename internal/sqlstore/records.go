package sqlstore

import (
	"context"
	"fmt"

	"faceattend/internal/model"
)

// AttendanceOn lists the records for date with user names joined, in the
// order they were marked.
func (s *Store) AttendanceOn(ctx context.Context, date string) ([]model.AttendanceRecord, error) {
	rows, err := s.query(ctx, `
		SELECT a.roll_number, u.name, a.att_date, a.att_time, a.status, a.capture_id, a.capture_url
		FROM attendance a
		JOIN users u ON u.roll_number = a.roll_number
		WHERE a.att_date = ?
		ORDER BY a.att_time, a.id`, date)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	recs := []model.AttendanceRecord{}
	for rows.Next() {
		var r model.AttendanceRecord
		if err := rows.Scan(&r.RollNumber, &r.Name, &r.Date, &r.Time, &r.Status, &r.CaptureID, &r.CaptureURL); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// DeleteAttendance removes one user's record for date so they can be marked
// again. ErrNotFound means there was nothing to remove.
func (s *Store) DeleteAttendance(ctx context.Context, rollNumber, date string) error {
	res, err := s.exec(ctx, `DELETE FROM attendance WHERE roll_number = ? AND att_date = ?`, rollNumber, date)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllAttendance clears every record for date and reports how many were
// removed.
func (s *Store) DeleteAllAttendance(ctx context.Context, date string) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM attendance WHERE att_date = ?`, date)
	if err != nil {
		return 0, fmt.Errorf("delete attendance: %w", err)
	}
	return res.RowsAffected()
}

// SetCaptureURL attaches an archived image URL to the record created by
// captureID.
func (s *Store) SetCaptureURL(ctx context.Context, captureID, url string) error {
	res, err := s.exec(ctx, `UPDATE attendance SET capture_url = ? WHERE capture_id = ?`, url, captureID)
	if err != nil {
		return fmt.Errorf("set capture url: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set capture url: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
