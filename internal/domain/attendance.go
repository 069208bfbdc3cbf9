package domain

import "time"

// AttendanceSummary is one employee's attendance for a calendar month.
type AttendanceSummary struct {
	ID               int64     `json:"id"`
	TenantID         int64     `json:"tenant_id"`
	EmployeeID       string    `json:"employee_id"`
	Name             string    `json:"name"`
	Department       string    `json:"department"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	PresentDays      float64   `json:"present_days"`
	AbsentDays       float64   `json:"absent_days"`
	TotalWorkingDays float64   `json:"total_working_days"`
	OTHours          float64   `json:"ot_hours"`
	LateMinutes      int64     `json:"late_minutes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
