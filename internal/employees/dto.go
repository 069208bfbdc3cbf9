package employees

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/normalize"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateEmployeeDTO is the payload for a single employee.
type CreateEmployeeDTO struct {
	FirstName          string          `json:"first_name" validate:"required,max=100"`
	LastName           string          `json:"last_name" validate:"max=100"`
	Department         string          `json:"department" validate:"max=100"`
	Position           string          `json:"position" validate:"max=100"`
	Email              string          `json:"email" validate:"omitempty,email,max=254"`
	Phone              string          `json:"phone" validate:"max=20"`
	DateOfJoining      string          `json:"date_of_joining"`
	BasicSalary        decimal.Decimal `json:"basic_salary"`
	HouseRentAllowance decimal.Decimal `json:"house_rent_allowance"`
	MedicalAllowance   decimal.Decimal `json:"medical_allowance"`
	TransportAllowance decimal.Decimal `json:"transport_allowance"`
	TDSPercent         float64         `json:"tds_percentage" validate:"gte=0,lte=100"`
}

// ValidationError lists rejected fields with the rule each one broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return "invalid employee: " + strings.Join(parts, "; ")
}

// Normalize trims text fields and applies the upload defaults.
func (d *CreateEmployeeDTO) Normalize() {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Department = strings.TrimSpace(d.Department)
	d.Position = strings.TrimSpace(d.Position)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.DateOfJoining = strings.TrimSpace(d.DateOfJoining)
	if d.Department == "" {
		d.Department = "General"
	}
	if d.Position == "" {
		d.Position = "Employee"
	}
}

// Validate normalizes the payload and checks every rule, returning a
// *ValidationError when any fails.
func (d *CreateEmployeeDTO) Validate() error {
	d.Normalize()

	fields := map[string]string{}
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[jsonName(fe.Field())] = fe.Tag()
		}
	}

	if _, ok := fields["first_name"]; !ok && !normalize.IsValidName(d.FirstName) {
		fields["first_name"] = "name"
	}
	money := map[string]decimal.Decimal{
		"basic_salary":         d.BasicSalary,
		"house_rent_allowance": d.HouseRentAllowance,
		"medical_allowance":    d.MedicalAllowance,
		"transport_allowance":  d.TransportAllowance,
	}
	for name, value := range money {
		switch {
		case value.IsNegative():
			fields[name] = "gte"
		case !normalize.FitsMoney(value):
			fields[name] = "lt"
		}
	}
	if d.DateOfJoining != "" {
		if _, ok := normalize.ToDate(d.DateOfJoining); !ok {
			fields["date_of_joining"] = "date"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ToEmployee builds the domain value. Call Validate first.
func (d CreateEmployeeDTO) ToEmployee(tenantID int64, today time.Time) domain.Employee {
	joined, ok := normalize.ToDate(d.DateOfJoining)
	if !ok {
		y, m, day := today.Date()
		joined = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}
	return domain.Employee{
		TenantID:           tenantID,
		FirstName:          d.FirstName,
		LastName:           d.LastName,
		Department:         d.Department,
		Position:           d.Position,
		Email:              d.Email,
		Phone:              d.Phone,
		DateOfJoining:      joined,
		BasicSalary:        normalize.ToDecimal(d.BasicSalary),
		HouseRentAllowance: normalize.ToDecimal(d.HouseRentAllowance),
		MedicalAllowance:   normalize.ToDecimal(d.MedicalAllowance),
		TransportAllowance: normalize.ToDecimal(d.TransportAllowance),
		TDSPercent:         d.TDSPercent,
	}
}

var fieldNames = map[string]string{
	"FirstName":          "first_name",
	"LastName":           "last_name",
	"Department":         "department",
	"Position":           "position",
	"Email":              "email",
	"Phone":              "phone",
	"DateOfJoining":      "date_of_joining",
	"BasicSalary":        "basic_salary",
	"HouseRentAllowance": "house_rent_allowance",
	"MedicalAllowance":   "medical_allowance",
	"TransportAllowance": "transport_allowance",
	"TDSPercent":         "tds_percentage",
}

func jsonName(field string) string {
	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
