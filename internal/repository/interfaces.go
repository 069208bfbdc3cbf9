package repository

import (
	"context"

	gerrors "github.com/go-faster/errors"

	"github.com/rpattn/payrolldesk/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = gerrors.New("record not found")
	// ErrNotInitialized is returned by a repository built without a pool.
	ErrNotInitialized = gerrors.New("repository not initialized")
)

// TenantRepository defines the interface for tenant operations
type TenantRepository interface {
	Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error)
	GetByID(ctx context.Context, id int64) (domain.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (domain.Tenant, error)
	List(ctx context.Context) ([]domain.Tenant, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// UserRepository loads the principals used for tenant resolution.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.Principal, error)
	Upsert(ctx context.Context, principal domain.Principal) (domain.Principal, error)
}

// EmployeeRepository defines the interface for employee operations
type EmployeeRepository interface {
	EmployeeIDExists(ctx context.Context, tenantID int64, employeeID string) (bool, error)
	ListEmployeeIDs(ctx context.Context, tenantID int64) ([]string, error)
	Create(ctx context.Context, employee domain.Employee) (domain.Employee, error)
	// InsertBatch skips rows whose employee id already exists and returns
	// how many were written.
	InsertBatch(ctx context.Context, employees []domain.Employee) (int, error)
	List(ctx context.Context, tenantID int64, limit int, offset int) ([]domain.Employee, int, error)
}

// AttendanceRepository defines the interface for monthly attendance rows
type AttendanceRepository interface {
	// UpsertBatch returns how many rows were inserted and how many replaced.
	UpsertBatch(ctx context.Context, rows []domain.AttendanceSummary) (created int, updated int, err error)
	List(ctx context.Context, tenantID int64, year int, month int) ([]domain.AttendanceSummary, error)
}

// IngestionLogRepository persists row-level ingestion issues.
type IngestionLogRepository interface {
	Record(ctx context.Context, entry domain.IngestionLogEntry) error
	List(ctx context.Context, tenantID int64, kind domain.UploadKind, fileName string, limit int, offset int) ([]domain.IngestionLogEntry, error)
}
