package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rpattn/payrolldesk/internal/normalize"
	"github.com/rpattn/payrolldesk/internal/tabular"
)

// EmployeeRecord is one upload row mapped onto the canonical employee
// columns. Source keeps the raw canonical cells for strict re-parsing and
// Extra carries columns the schema does not know.
type EmployeeRecord struct {
	Row                int
	EmployeeID         string
	FirstName          string
	LastName           string
	Department         string
	Position           string
	Email              string
	Phone              string
	BasicSalary        decimal.Decimal
	HouseRentAllowance decimal.Decimal
	MedicalAllowance   decimal.Decimal
	TransportAllowance decimal.Decimal
	TDSPercent         float64
	DateOfJoining      time.Time
	Source             map[string]any
	Extra              map[string]string
}

// Value returns the raw cell for a canonical column, or the overflow text.
func (r EmployeeRecord) Value(column string) any {
	if v, ok := r.Source[column]; ok {
		return v
	}
	if v, ok := r.Extra[column]; ok {
		return v
	}
	return nil
}

// FullName joins first and last name.
func (r EmployeeRecord) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	if r.FirstName == "" {
		return r.LastName
	}
	return r.FirstName + " " + r.LastName
}

// Employees maps every table row onto an EmployeeRecord. No rows are
// dropped; missing or unparseable values fall back to column defaults.
func (r *Reconciler) Employees(table tabular.Table) []EmployeeRecord {
	today := dateOf(r.now())
	out := make([]EmployeeRecord, 0, len(table.Records))

	for _, rec := range table.Records {
		source, extra := canonicalize(rec, table.Headers, employeeColumns, employeeAliases)

		record := EmployeeRecord{
			Row:    rec.Row,
			Source: source,
			Extra:  extra,
		}

		for _, c := range employeeColumns {
			raw := source[c.Name]
			switch c.Name {
			case ColFirstName:
				record.FirstName = textOrDefault(source, c)
			case ColLastName:
				record.LastName = textOrDefault(source, c)
			case ColDepartment:
				record.Department = textOrDefault(source, c)
			case ColPosition:
				record.Position = textOrDefault(source, c)
			case ColEmail:
				record.Email = textOrDefault(source, c)
			case ColPhone:
				record.Phone = textOrDefault(source, c)
			case ColBasicSalary:
				record.BasicSalary = normalize.ToDecimal(raw)
			case ColHouseRentAllowance:
				record.HouseRentAllowance = normalize.ToDecimal(raw)
			case ColMedicalAllowance:
				record.MedicalAllowance = normalize.ToDecimal(raw)
			case ColTransportAllowance:
				record.TransportAllowance = normalize.ToDecimal(raw)
			case ColTDS:
				record.TDSPercent = normalize.ToFloat(raw)
			case ColDateOfJoining:
				if d, ok := normalize.ToDate(raw); ok {
					record.DateOfJoining = d
				} else {
					record.DateOfJoining = today
				}
			}
		}

		out = append(out, record)
	}

	return out
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
