package repository

import (
	"context"
	"errors"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/rpattn/payrolldesk/internal/db"
	"github.com/rpattn/payrolldesk/internal/domain"
)

const employeeColumns = `id, tenant_id, employee_id, first_name, last_name, department, position,
	email, phone_number, date_of_joining, basic_salary, house_rent_allowance,
	medical_allowance, transport_allowance, tds_percentage, created_at, updated_at`

const insertEmployeeSQL = `INSERT INTO employees (
	tenant_id, employee_id, first_name, last_name, department, position,
	email, phone_number, date_of_joining, basic_salary, house_rent_allowance,
	medical_allowance, transport_allowance, tds_percentage
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// ErrDuplicateEmployeeID is returned by Create when the id is already used.
var ErrDuplicateEmployeeID = gerrors.New("employee id already exists")

type employeeRepository struct {
	pool db.Querier
}

// NewEmployeeRepository wires a repository backed by pgx.
func NewEmployeeRepository(pool db.Querier) EmployeeRepository {
	return &employeeRepository{pool: pool}
}

func (r *employeeRepository) EmployeeIDExists(ctx context.Context, tenantID int64, employeeID string) (bool, error) {
	if r.pool == nil {
		return false, ErrNotInitialized
	}

	var exists bool
	err := db.QuerierFromContext(ctx, r.pool).QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM employees WHERE tenant_id = $1 AND employee_id = $2)`,
		tenantID,
		employeeID,
	).Scan(&exists)
	if err != nil {
		return false, gerrors.Wrap(err, "failed to check employee id")
	}
	return exists, nil
}

func (r *employeeRepository) ListEmployeeIDs(ctx context.Context, tenantID int64) ([]string, error) {
	if r.pool == nil {
		return nil, ErrNotInitialized
	}

	rows, err := db.QuerierFromContext(ctx, r.pool).Query(
		ctx,
		`SELECT employee_id FROM employees WHERE tenant_id = $1`,
		tenantID,
	)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list employee ids")
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to scan employee ids")
	}
	return ids, nil
}

func (r *employeeRepository) Create(ctx context.Context, employee domain.Employee) (domain.Employee, error) {
	if r.pool == nil {
		return domain.Employee{}, ErrNotInitialized
	}

	row := db.QuerierFromContext(ctx, r.pool).QueryRow(
		ctx,
		insertEmployeeSQL+`
		 ON CONFLICT (tenant_id, employee_id) DO NOTHING
		 RETURNING `+employeeColumns,
		employeeArgs(employee)...,
	)
	created, err := scanEmployee(row)
	if errors.Is(err, ErrNotFound) {
		return domain.Employee{}, ErrDuplicateEmployeeID
	}
	if err != nil {
		return domain.Employee{}, gerrors.Wrap(err, "failed to create employee")
	}
	return created, nil
}

// InsertBatch sends every row in one pgx batch. Rows that conflict on
// (tenant_id, employee_id) are skipped and not counted.
func (r *employeeRepository) InsertBatch(ctx context.Context, employees []domain.Employee) (int, error) {
	if r.pool == nil {
		return 0, ErrNotInitialized
	}
	if len(employees) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, employee := range employees {
		batch.Queue(insertEmployeeSQL+` ON CONFLICT (tenant_id, employee_id) DO NOTHING`, employeeArgs(employee)...)
	}

	results := db.QuerierFromContext(ctx, r.pool).SendBatch(ctx, batch)
	inserted := 0
	for i := range employees {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return inserted, gerrors.Wrapf(err, "failed to insert employee %s", employees[i].EmployeeID)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return inserted, gerrors.Wrap(err, "failed to close employee batch")
	}
	return inserted, nil
}

func (r *employeeRepository) List(ctx context.Context, tenantID int64, limit int, offset int) ([]domain.Employee, int, error) {
	if r.pool == nil {
		return nil, 0, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := db.QuerierFromContext(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM employees WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, gerrors.Wrap(err, "failed to count employees")
	}

	rows, err := q.Query(
		ctx,
		`SELECT `+employeeColumns+` FROM employees
		 WHERE tenant_id = $1
		 ORDER BY employee_id
		 LIMIT $2 OFFSET $3`,
		tenantID,
		limit,
		offset,
	)
	if err != nil {
		return nil, 0, gerrors.Wrap(err, "failed to list employees")
	}
	employees, err := collectEmployees(rows)
	if err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

func collectEmployees(rows pgx.Rows) ([]domain.Employee, error) {
	defer rows.Close()

	employees := []domain.Employee{}
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return employees, nil
}

func employeeArgs(e domain.Employee) []any {
	return []any{
		e.TenantID,
		e.EmployeeID,
		e.FirstName,
		e.LastName,
		e.Department,
		e.Position,
		e.Email,
		e.Phone,
		e.DateOfJoining,
		e.BasicSalary,
		e.HouseRentAllowance,
		e.MedicalAllowance,
		e.TransportAllowance,
		e.TDSPercent,
	}
}

func scanEmployee(row pgx.Row) (domain.Employee, error) {
	var e domain.Employee
	err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.EmployeeID,
		&e.FirstName,
		&e.LastName,
		&e.Department,
		&e.Position,
		&e.Email,
		&e.Phone,
		&e.DateOfJoining,
		&e.BasicSalary,
		&e.HouseRentAllowance,
		&e.MedicalAllowance,
		&e.TransportAllowance,
		&e.TDSPercent,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Employee{}, ErrNotFound
	}
	if err != nil {
		return domain.Employee{}, err
	}
	return e, nil
}
