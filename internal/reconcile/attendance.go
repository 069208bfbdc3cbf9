package reconcile

import (
	"github.com/rpattn/payrolldesk/internal/normalize"
	"github.com/rpattn/payrolldesk/internal/tabular"
)

// AttendanceRecord is one row of a monthly attendance summary.
type AttendanceRecord struct {
	Row         int
	EmployeeID  string
	Name        string
	Department  string
	PresentDays float64
	AbsentDays  float64
	OTHours     float64
	LateMinutes int64
	Source      map[string]any
	Extra       map[string]string
}

// Value returns the raw cell for a canonical column, or the overflow text.
func (r AttendanceRecord) Value(column string) any {
	if v, ok := r.Source[column]; ok {
		return v
	}
	if v, ok := r.Extra[column]; ok {
		return v
	}
	return nil
}

// TotalWorkingDays is present plus absent days.
func (r AttendanceRecord) TotalWorkingDays() float64 {
	return r.PresentDays + r.AbsentDays
}

// Attendance maps every table row onto an AttendanceRecord.
func (r *Reconciler) Attendance(table tabular.Table) []AttendanceRecord {
	out := make([]AttendanceRecord, 0, len(table.Records))

	for _, rec := range table.Records {
		source, extra := canonicalize(rec, table.Headers, attendanceColumns, attendanceAliases)

		record := AttendanceRecord{
			Row:         rec.Row,
			EmployeeID:  normalize.ToText(source[ColEmployeeID]),
			Name:        normalize.ToText(source[ColName]),
			Department:  normalize.ToText(source[ColDepartment]),
			PresentDays: normalize.ToFloat(source[ColPresentDays]),
			AbsentDays:  normalize.ToFloat(source[ColAbsentDays]),
			OTHours:     normalize.ToFloat(source[ColOTHours]),
			LateMinutes: normalize.ToInteger(source[ColLateMinutes]),
			Source:      source,
			Extra:       extra,
		}

		out = append(out, record)
	}

	return out
}
