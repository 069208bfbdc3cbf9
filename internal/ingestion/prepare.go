package ingestion

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/normalize"
	"github.com/rpattn/payrolldesk/internal/reconcile"
)

var (
	errInvalidDate     = errors.New("unrecognised date")
	errNegative        = errors.New("must not be negative")
	errTooLarge        = errors.New("exceeds 9,999,999,999.99")
	errMissingEmployee = errors.New("employee id is required")
)

// prepareEmployee re-parses the raw cells strictly. Reconciliation already
// defaulted bad values to zero; here they become row errors instead.
func prepareEmployee(tenantID int64, rec reconcile.EmployeeRecord, now time.Time) (domain.Employee, *RowError) {
	employee := domain.Employee{
		TenantID:   tenantID,
		FirstName:  rec.FirstName,
		LastName:   rec.LastName,
		Department: rec.Department,
		Position:   rec.Position,
		Email:      rec.Email,
		Phone:      rec.Phone,
	}

	money := []struct {
		column string
		dst    *decimal.Decimal
	}{
		{reconcile.ColBasicSalary, &employee.BasicSalary},
		{reconcile.ColHouseRentAllowance, &employee.HouseRentAllowance},
		{reconcile.ColMedicalAllowance, &employee.MedicalAllowance},
		{reconcile.ColTransportAllowance, &employee.TransportAllowance},
	}
	for _, m := range money {
		value, err := normalize.ParseDecimal(rec.Source[m.column])
		if err != nil {
			return domain.Employee{}, &RowError{Row: rec.Row, Field: m.column, Err: err}
		}
		if value.IsNegative() {
			return domain.Employee{}, &RowError{Row: rec.Row, Field: m.column, Err: errNegative}
		}
		if !normalize.FitsMoney(value) {
			return domain.Employee{}, &RowError{Row: rec.Row, Field: m.column, Err: errTooLarge}
		}
		*m.dst = value
	}

	tds, err := normalize.ParseFloat(rec.Source[reconcile.ColTDS])
	if err != nil {
		return domain.Employee{}, &RowError{Row: rec.Row, Field: reconcile.ColTDS, Err: err}
	}
	employee.TDSPercent = tds

	rawDate := rec.Source[reconcile.ColDateOfJoining]
	switch date, ok := normalize.ToDate(rawDate); {
	case ok:
		employee.DateOfJoining = date
	case normalize.IsMissing(rawDate):
		employee.DateOfJoining = dateOf(now)
	default:
		return domain.Employee{}, &RowError{
			Row:   rec.Row,
			Field: reconcile.ColDateOfJoining,
			Err:   fmt.Errorf("%w %q", errInvalidDate, normalize.ToText(rawDate)),
		}
	}

	return employee, nil
}

func prepareAttendance(tenantID int64, year, month int, rec reconcile.AttendanceRecord) (domain.AttendanceSummary, *RowError) {
	if rec.EmployeeID == "" {
		return domain.AttendanceSummary{}, &RowError{Row: rec.Row, Field: reconcile.ColEmployeeID, Err: errMissingEmployee}
	}

	summary := domain.AttendanceSummary{
		TenantID:   tenantID,
		EmployeeID: rec.EmployeeID,
		Name:       rec.Name,
		Department: rec.Department,
		Year:       year,
		Month:      month,
	}

	quantities := []struct {
		column string
		dst    *float64
	}{
		{reconcile.ColPresentDays, &summary.PresentDays},
		{reconcile.ColAbsentDays, &summary.AbsentDays},
		{reconcile.ColOTHours, &summary.OTHours},
	}
	for _, q := range quantities {
		value, err := normalize.ParseFloat(rec.Source[q.column])
		if err != nil {
			return domain.AttendanceSummary{}, &RowError{Row: rec.Row, Field: q.column, Err: err}
		}
		if value < 0 {
			return domain.AttendanceSummary{}, &RowError{Row: rec.Row, Field: q.column, Err: errNegative}
		}
		*q.dst = value
	}

	late, err := normalize.ParseFloat(rec.Source[reconcile.ColLateMinutes])
	if err != nil {
		return domain.AttendanceSummary{}, &RowError{Row: rec.Row, Field: reconcile.ColLateMinutes, Err: err}
	}
	if late < 0 {
		return domain.AttendanceSummary{}, &RowError{Row: rec.Row, Field: reconcile.ColLateMinutes, Err: errNegative}
	}
	summary.LateMinutes = int64(late)
	summary.TotalWorkingDays = summary.PresentDays + summary.AbsentDays

	return summary, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
