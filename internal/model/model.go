package model

import "time"

// StatusPresent is the only status a capture ever writes.
const StatusPresent = "Present"

// Department is static reference data seeded at migration time.
type Department struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a registered attendee, keyed by roll number.
type User struct {
	ID           int64     `json:"id"`
	RollNumber   string    `json:"roll_number"`
	Name         string    `json:"name"`
	DepartmentID int64     `json:"department_id"`
	Department   string    `json:"department,omitempty"` // joined from departments
	Branch       string    `json:"branch"`
	Photo        []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AttendanceRecord is one row of the daily attendance log.
type AttendanceRecord struct {
	RollNumber string `json:"roll_number"`
	Name       string `json:"name,omitempty"` // joined from users
	Date       string `json:"date"`           // YYYY-MM-DD
	Time       string `json:"time"`           // HH:MM:SS
	Status     string `json:"status"`
	CaptureID  string `json:"capture_id"`
	CaptureURL string `json:"capture_url,omitempty"`
}

// Admin is a console principal.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	Department   string    `json:"department,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats backs the landing page counters.
type Stats struct {
	TotalUsers      int `json:"total_users"`
	TodayAttendance int `json:"today_attendance"`
}
