// Package export writes a tenant's employees back out as a workbook that
// the upload pipeline accepts unchanged.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/payrolldesk/internal/auth"
	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/logging"
	"github.com/rpattn/payrolldesk/internal/reconcile"
)

// Format selects the output encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const (
	sheetName       = "Employees"
	defaultPageSize = 1000
)

// ErrInvalidTenant is returned when the tenant is missing, inactive or out
// of scope.
var ErrInvalidTenant = errors.New("invalid tenant")

// EmployeeLister pages through a tenant's employees.
type EmployeeLister interface {
	List(ctx context.Context, tenantID int64, limit int, offset int) ([]domain.Employee, int, error)
}

type Service struct {
	employees EmployeeLister
	pageSize  int
	now       func() time.Time
}

type Option func(*Service)

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(employees EmployeeLister, opts ...Option) *Service {
	service := &Service{
		employees: employees,
		pageSize:  defaultPageSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// ParseFormat maps a query value onto a Format, defaulting to xlsx.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q", value)
}

// Headers is the header row of every export: the employee id followed by
// the canonical upload columns.
func Headers() []string {
	return append([]string{reconcile.ColEmployeeID}, reconcile.EmployeeColumns()...)
}

// FileName suggests a download name for the tenant's export.
func (s *Service) FileName(tenant domain.Tenant, format Format) string {
	name := sanitizeFileComponent(tenant.Subdomain)
	if name == "" {
		name = "tenant-" + strconv.FormatInt(tenant.ID, 10)
	}
	return fmt.Sprintf("employees-%s-%s.%s", name, s.now().UTC().Format("20060102"), format)
}

type rowWriter interface {
	write(values []any) error
	close(w io.Writer) error
}

// WriteEmployees streams every employee of the tenant to w and returns the
// number of rows written.
func (s *Service) WriteEmployees(ctx context.Context, tenant domain.Tenant, format Format, w io.Writer) (int, error) {
	if tenant.ID <= 0 || !tenant.IsActive {
		return 0, fmt.Errorf("%w: tenant %d is not active", ErrInvalidTenant, tenant.ID)
	}
	if err := auth.EnforceTenantScope(ctx, tenant.ID); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTenant, err)
	}

	var out rowWriter
	switch format {
	case FormatCSV:
		out = newCSVRows(w)
	case FormatXLSX:
		xw, err := newSheetRows()
		if err != nil {
			return 0, err
		}
		out = xw
	default:
		return 0, fmt.Errorf("unsupported export format %q", format)
	}

	headers := Headers()
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := out.write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	rowsExported := 0
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return rowsExported, err
		}
		employees, total, err := s.employees.List(ctx, tenant.ID, s.pageSize, offset)
		if err != nil {
			return rowsExported, fmt.Errorf("list employees: %w", err)
		}
		for _, employee := range employees {
			if err := out.write(employeeRow(employee)); err != nil {
				return rowsExported, fmt.Errorf("write employee %s: %w", employee.EmployeeID, err)
			}
			rowsExported++
		}
		if len(employees) < s.pageSize || rowsExported >= total {
			break
		}
		offset += s.pageSize
	}

	if err := out.close(w); err != nil {
		return rowsExported, fmt.Errorf("finish %s export: %w", format, err)
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"tenant_id": tenant.ID,
		"format":    format,
		"rows":      rowsExported,
	}).Info("employee export completed")
	return rowsExported, nil
}

func employeeRow(e domain.Employee) []any {
	return []any{
		e.EmployeeID,
		e.FirstName,
		e.LastName,
		e.Department,
		e.Position,
		e.Email,
		e.Phone,
		e.BasicSalary.InexactFloat64(),
		e.HouseRentAllowance.InexactFloat64(),
		e.MedicalAllowance.InexactFloat64(),
		e.TransportAllowance.InexactFloat64(),
		e.TDSPercent,
		e.DateOfJoining.Format("2006-01-02"),
	}
}

type sheetRows struct {
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

func newSheetRows() (*sheetRows, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	stream, err := f.NewStreamWriter(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open stream writer: %w", err)
	}
	return &sheetRows{file: f, stream: stream}, nil
}

func (s *sheetRows) write(values []any) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	return s.stream.SetRow(cell, values)
}

func (s *sheetRows) close(w io.Writer) error {
	defer s.file.Close()
	if err := s.stream.Flush(); err != nil {
		return err
	}
	_, err := s.file.WriteTo(w)
	return err
}

type csvRows struct {
	writer *csv.Writer
	record []string
}

func newCSVRows(w io.Writer) *csvRows {
	return &csvRows{writer: csv.NewWriter(w)}
}

func (c *csvRows) write(values []any) error {
	c.record = c.record[:0]
	for _, v := range values {
		c.record = append(c.record, formatValue(v))
	}
	return c.writer.Write(c.record)
}

func (c *csvRows) close(io.Writer) error {
	c.writer.Flush()
	return c.writer.Error()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	return strings.Trim(builder.String(), "-")
}
