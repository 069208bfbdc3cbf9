// Package reconcile maps loosely named upload columns onto the canonical
// employee and attendance schemas.
package reconcile

import (
	"strings"
	"time"

	"github.com/rpattn/payrolldesk/internal/normalize"
	"github.com/rpattn/payrolldesk/internal/tabular"
)

// Canonical employee columns.
const (
	ColFirstName          = "First Name"
	ColLastName           = "Last Name"
	ColDepartment         = "Department"
	ColPosition           = "Position"
	ColEmail              = "Email"
	ColPhone              = "Phone"
	ColBasicSalary        = "Basic Salary"
	ColHouseRentAllowance = "House Rent Allowance"
	ColMedicalAllowance   = "Medical Allowance"
	ColTransportAllowance = "Transport Allowance"
	ColTDS                = "TDS (%)"
	ColDateOfJoining      = "Date of joining"
)

// Canonical attendance columns.
const (
	ColEmployeeID  = "Employee ID"
	ColName        = "Name"
	ColPresentDays = "Present Days"
	ColAbsentDays  = "Absent Days"
	ColOTHours     = "OT Hours"
	ColLateMinutes = "Late Minutes"
)

// DefaultNameColumn is the column FilterValidRows checks for employees.
const DefaultNameColumn = ColFirstName

type rule int

const (
	ruleText rule = iota
	ruleMoney
	ruleRate
	ruleCount
	ruleDate
)

type column struct {
	Name    string
	Default string
	Rule    rule
}

type alias struct {
	From string
	To   string
}

var employeeColumns = []column{
	{Name: ColFirstName, Rule: ruleText},
	{Name: ColLastName, Rule: ruleText},
	{Name: ColDepartment, Default: "General", Rule: ruleText},
	{Name: ColPosition, Default: "Employee", Rule: ruleText},
	{Name: ColEmail, Rule: ruleText},
	{Name: ColPhone, Rule: ruleText},
	{Name: ColBasicSalary, Rule: ruleMoney},
	{Name: ColHouseRentAllowance, Rule: ruleMoney},
	{Name: ColMedicalAllowance, Rule: ruleMoney},
	{Name: ColTransportAllowance, Rule: ruleMoney},
	{Name: ColTDS, Rule: ruleRate},
	{Name: ColDateOfJoining, Rule: ruleDate},
}

// Earlier aliases win when several map onto the same column.
var employeeAliases = []alias{
	{From: "employee_name", To: ColFirstName},
	{From: "Name", To: ColFirstName},
	{From: "first_name", To: ColFirstName},
	{From: "last_name", To: ColLastName},
	{From: "department", To: ColDepartment},
	{From: "position", To: ColPosition},
	{From: "designation", To: ColPosition},
	{From: "email", To: ColEmail},
	{From: "phone", To: ColPhone},
	{From: "basic_salary", To: ColBasicSalary},
	{From: "SALARY", To: ColBasicSalary},
	{From: "date_of_joining", To: ColDateOfJoining},
	{From: "DOJ", To: ColDateOfJoining},
}

var attendanceColumns = []column{
	{Name: ColEmployeeID, Rule: ruleText},
	{Name: ColName, Rule: ruleText},
	{Name: ColDepartment, Rule: ruleText},
	{Name: ColPresentDays, Rule: ruleRate},
	{Name: ColAbsentDays, Rule: ruleRate},
	{Name: ColOTHours, Rule: ruleRate},
	{Name: ColLateMinutes, Rule: ruleCount},
}

var attendanceAliases = []alias{
	{From: "employee_id", To: ColEmployeeID},
	{From: "EMP ID", To: ColEmployeeID},
	{From: "employee_name", To: ColName},
	{From: "department", To: ColDepartment},
	{From: "PRESENT", To: ColPresentDays},
	{From: "ABSENT", To: ColAbsentDays},
	{From: "OT", To: ColOTHours},
	{From: "LATE", To: ColLateMinutes},
}

// EmployeeColumns lists the canonical employee headers in upload order.
func EmployeeColumns() []string {
	return columnNames(employeeColumns)
}

// AttendanceColumns lists the canonical attendance headers in upload order.
func AttendanceColumns() []string {
	return columnNames(attendanceColumns)
}

func columnNames(cols []column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the clock used for the Date of joining default.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// Reconciler applies the alias maps and canonical defaults.
type Reconciler struct {
	now func() time.Time
}

// New constructs a Reconciler.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile maps a table onto employee records with the default Reconciler.
func Reconcile(table tabular.Table) []EmployeeRecord {
	return New().Employees(table)
}

// headerKey folds case and runs of whitespace so "first  name" matches
// "First Name".
func headerKey(header string) string {
	return strings.ToLower(strings.Join(strings.Fields(header), " "))
}

// canonicalize resolves canonical names, then aliases, for one record. It
// returns the canonical cells and the unrecognised columns as text. An exact
// header match beats a folded one; among folded matches the leftmost wins.
func canonicalize(rec tabular.Record, headers []string, cols []column, aliases []alias) (map[string]any, map[string]string) {
	exact := make(map[string]struct{}, len(headers))
	byKey := make(map[string]string, len(headers))
	for _, header := range headers {
		exact[header] = struct{}{}
		key := headerKey(header)
		if _, ok := byKey[key]; !ok {
			byKey[key] = header
		}
	}

	source := make(map[string]any, len(cols))
	consumed := make(map[string]struct{}, len(cols))
	take := func(column, name string) {
		header := name
		if _, ok := exact[name]; !ok {
			folded, ok := byKey[headerKey(name)]
			if !ok {
				return
			}
			header = folded
		}
		if _, used := consumed[header]; used {
			return
		}
		consumed[header] = struct{}{}
		if v, ok := rec.Values[header]; ok {
			source[column] = v
		}
	}

	for _, c := range cols {
		take(c.Name, c.Name)
	}
	for _, a := range aliases {
		if _, present := source[a.To]; present {
			continue
		}
		take(a.To, a.From)
	}

	var extra map[string]string
	for _, header := range headers {
		if _, ok := consumed[header]; ok {
			continue
		}
		v, ok := rec.Values[header]
		if !ok || normalize.IsMissing(v) {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		extra[header] = normalize.ToText(v)
	}

	return source, extra
}

func textOrDefault(source map[string]any, c column) string {
	v := source[c.Name]
	if normalize.IsMissing(v) {
		return c.Default
	}
	if text := normalize.ToText(v); text != "" {
		return text
	}
	return c.Default
}
