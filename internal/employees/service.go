// Package employees manages individual employee profiles outside bulk
// uploads.
package employees

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/payrolldesk/internal/auth"
	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/identifier"
	"github.com/rpattn/payrolldesk/internal/logging"
	"github.com/rpattn/payrolldesk/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	createAttempts  = 3
)

// ErrInvalidTenant is returned when the tenant is missing, inactive or out
// of scope.
var ErrInvalidTenant = errors.New("invalid tenant")

// Page is one slice of a tenant's employees.
type Page struct {
	Employees []domain.Employee `json:"employees"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// Service creates and lists employees.
type Service struct {
	repo repository.EmployeeRepository
	ids  *identifier.Generator
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for the default joining date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service.
func NewService(repo repository.EmployeeRepository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		ids:  identifier.NewGenerator(repo),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func checkTenant(ctx context.Context, tenant domain.Tenant) error {
	if tenant.ID <= 0 || !tenant.IsActive {
		return fmt.Errorf("%w: tenant %d is not active", ErrInvalidTenant, tenant.ID)
	}
	if err := auth.EnforceTenantScope(ctx, tenant.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTenant, err)
	}
	return nil
}

// Create validates the payload, assigns an identifier checked against the
// database and inserts the employee. A lost race on the identifier is
// retried with a fresh lookup.
func (s *Service) Create(ctx context.Context, tenant domain.Tenant, dto CreateEmployeeDTO) (domain.Employee, error) {
	if err := checkTenant(ctx, tenant); err != nil {
		return domain.Employee{}, err
	}
	if err := dto.Validate(); err != nil {
		return domain.Employee{}, err
	}

	employee := dto.ToEmployee(tenant.ID, s.now())
	log := logging.FromContext(ctx).WithField("tenant_id", tenant.ID)

	for attempt := 1; ; attempt++ {
		id, err := s.ids.Generate(ctx, employee.FirstName, tenant.ID, employee.Department)
		if err != nil {
			return domain.Employee{}, fmt.Errorf("generate employee id: %w", err)
		}
		employee.EmployeeID = id

		created, err := s.repo.Create(ctx, employee)
		if err == nil {
			log.WithFields(logrus.Fields{"employee_id": created.EmployeeID}).Info("employee created")
			return created, nil
		}
		if !errors.Is(err, repository.ErrDuplicateEmployeeID) || attempt == createAttempts {
			return domain.Employee{}, fmt.Errorf("create employee: %w", err)
		}
		log.WithField("employee_id", id).Debug("employee id taken concurrently, retrying")
	}
}

// List returns one page of the tenant's employees ordered by identifier.
func (s *Service) List(ctx context.Context, tenant domain.Tenant, limit, offset int) (Page, error) {
	if err := checkTenant(ctx, tenant); err != nil {
		return Page{}, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	offset = max(offset, 0)

	rows, total, err := s.repo.List(ctx, tenant.ID, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("list employees: %w", err)
	}
	if rows == nil {
		rows = []domain.Employee{}
	}
	return Page{Employees: rows, Total: total, Limit: limit, Offset: offset}, nil
}
