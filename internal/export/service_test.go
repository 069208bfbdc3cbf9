package export

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/payrolldesk/internal/auth"
	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/reconcile"
	"github.com/rpattn/payrolldesk/internal/tabular"
)

type stubEmployeeLister struct {
	rows  []domain.Employee
	calls int
}

func (s *stubEmployeeLister) List(_ context.Context, _ int64, limit, offset int) ([]domain.Employee, int, error) {
	s.calls++
	offset = min(offset, len(s.rows))
	return s.rows[offset:min(offset+limit, len(s.rows))], len(s.rows), nil
}

var (
	tenant     = domain.Tenant{ID: 4, Subdomain: "Acme Corp", IsActive: true}
	exportTime = func() time.Time { return time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC) }
)

func sampleEmployees() []domain.Employee {
	joined := time.Date(2022, 7, 15, 0, 0, 0, 0, time.UTC)
	return []domain.Employee{
		{EmployeeID: "ASH-SA-004", FirstName: "Asha", LastName: "Rao", Department: "Sales", Position: "Lead", DateOfJoining: joined, BasicSalary: decimal.RequireFromString("15000.50"), TDSPercent: 10},
		{EmployeeID: "RAV-SA-004", FirstName: "Ravi", Department: "Sales", Position: "Employee", DateOfJoining: joined, BasicSalary: decimal.RequireFromString("12000")},
		{EmployeeID: "MEE-FI-004", FirstName: "Meera", Department: "Finance", Position: "Employee", DateOfJoining: joined, HouseRentAllowance: decimal.RequireFromString("2500.25")},
	}
}

func TestWriteEmployeesWorkbookReadsBack(t *testing.T) {
	lister := &stubEmployeeLister{rows: sampleEmployees()}
	svc := NewService(lister, WithPageSize(2))

	var buf bytes.Buffer
	n, err := svc.WriteEmployees(context.Background(), tenant, FormatXLSX, &buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 2, lister.calls)

	table, err := tabular.NewReader().Read(&buf, tabular.Hint{FileName: "export.xlsx"})
	require.NoError(t, err)
	require.Equal(t, Headers(), table.Headers)

	records := reconcile.New().Employees(table)
	require.Len(t, records, 3)
	require.Equal(t, "Asha", records[0].FirstName)
	require.Equal(t, "Lead", records[0].Position)
	require.Equal(t, "15000.5", records[0].BasicSalary.String())
	require.Equal(t, 10.0, records[0].TDSPercent)
	require.Equal(t, time.Date(2022, 7, 15, 0, 0, 0, 0, time.UTC), records[0].DateOfJoining)
	require.Equal(t, "2500.25", records[2].HouseRentAllowance.String())
	require.Equal(t, "MEE-FI-004", records[2].Extra[reconcile.ColEmployeeID])
}

func TestWriteEmployeesCSV(t *testing.T) {
	svc := NewService(&stubEmployeeLister{rows: sampleEmployees()[:1]})

	var buf bytes.Buffer
	n, err := svc.WriteEmployees(context.Background(), tenant, FormatCSV, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "Employee ID,First Name,Last Name,Department,Position,Email,Phone,Basic Salary,House Rent Allowance,Medical Allowance,Transport Allowance,TDS (%),Date of joining", lines[0])
	require.Equal(t, "ASH-SA-004,Asha,Rao,Sales,Lead,,,15000.5,0,0,0,10,2022-07-15", lines[1])
}

func TestWriteEmployeesEmptyTenant(t *testing.T) {
	lister := &stubEmployeeLister{}
	var buf bytes.Buffer

	n, err := NewService(lister).WriteEmployees(context.Background(), tenant, FormatCSV, &buf)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, lister.calls)
	require.True(t, strings.HasPrefix(buf.String(), "Employee ID,"))
}

func TestWriteEmployeesRejectsTenant(t *testing.T) {
	svc := NewService(&stubEmployeeLister{})

	_, err := svc.WriteEmployees(context.Background(), domain.Tenant{ID: 4}, FormatCSV, &bytes.Buffer{})
	require.ErrorIs(t, err, ErrInvalidTenant)

	_, err = svc.WriteEmployees(context.Background(), tenant, Format("pdf"), &bytes.Buffer{})
	require.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{"": FormatXLSX, "Excel": FormatXLSX, " csv ": FormatCSV} {
		got, err := ParseFormat(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("ods")
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	svc := NewService(nil, WithClock(exportTime))

	require.Equal(t, "employees-acme-corp-20240506.xlsx", svc.FileName(tenant, FormatXLSX))
	require.Equal(t, "employees-tenant-9-20240506.csv", svc.FileName(domain.Tenant{ID: 9}, FormatCSV))
}

func TestHandlerServesAttachment(t *testing.T) {
	handler := NewHTTPHandler(NewService(&stubEmployeeLister{rows: sampleEmployees()}, WithClock(exportTime)))

	req := httptest.NewRequest(http.MethodGet, "/api/employees/export?format=csv", nil)
	req = req.WithContext(auth.ContextWithTenant(req.Context(), tenant))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "employees-acme-corp-20240506.csv")
	require.Contains(t, rec.Body.String(), "MEE-FI-004")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/employees/export", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
