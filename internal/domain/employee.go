package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is a persisted employee profile.
type Employee struct {
	ID                 int64           `json:"id"`
	TenantID           int64           `json:"tenant_id"`
	EmployeeID         string          `json:"employee_id"`
	FirstName          string          `json:"first_name"`
	LastName           string          `json:"last_name"`
	Department         string          `json:"department"`
	Position           string          `json:"position"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	DateOfJoining      time.Time       `json:"date_of_joining"`
	BasicSalary        decimal.Decimal `json:"basic_salary"`
	HouseRentAllowance decimal.Decimal `json:"house_rent_allowance"`
	MedicalAllowance   decimal.Decimal `json:"medical_allowance"`
	TransportAllowance decimal.Decimal `json:"transport_allowance"`
	TDSPercent         float64         `json:"tds_percentage"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// GrossSalary is basic salary plus allowances.
func (e Employee) GrossSalary() decimal.Decimal {
	return e.BasicSalary.
		Add(e.HouseRentAllowance).
		Add(e.MedicalAllowance).
		Add(e.TransportAllowance)
}
