package reconcile

import "github.com/rpattn/payrolldesk/internal/normalize"

// Valuer exposes a record's cell by column name.
type Valuer interface {
	Value(column string) any
}

// FilterValidRows keeps the records whose nameColumn holds a usable name.
// An empty nameColumn means DefaultNameColumn.
func FilterValidRows[T Valuer](records []T, nameColumn string) []T {
	if nameColumn == "" {
		nameColumn = DefaultNameColumn
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		if normalize.IsValidName(rec.Value(nameColumn)) {
			out = append(out, rec)
		}
	}
	return out
}

var summaryLabels = map[string]struct{}{
	"total":       {},
	"totals":      {},
	"grand total": {},
	"sub total":   {},
	"subtotal":    {},
}

// FilterAttendanceRows drops footer rows: rows with neither an employee id
// nor a name, and rows labelled as a total. A named row without an id is
// kept so it can be reported.
func FilterAttendanceRows(records []AttendanceRecord) []AttendanceRecord {
	out := make([]AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if isSummaryLabel(rec.EmployeeID) || isSummaryLabel(rec.Name) {
			continue
		}
		if !normalize.IsValidName(rec.EmployeeID) && !normalize.IsValidName(rec.Name) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func isSummaryLabel(value string) bool {
	_, ok := summaryLabels[headerKey(value)]
	return ok
}
