package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rpattn/payrolldesk/internal/auth"
	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/metrics"
	"github.com/rpattn/payrolldesk/internal/tabular"
)

var (
	acme      = domain.Tenant{ID: 7, Name: "Acme", IsActive: true}
	fixedTime = func() time.Time { return time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC) }
)

const employeeCSV = `First Name,Last Name,Department,Basic Salary,House Rent Allowance,TDS (%),Date of joining
Asha,Rao,Sales,"15,000",2000,10%,15/07/2022
Ravi,Kumar,Sales,abc,1500,5,2022-07-15
Meera,Iyer,Finance,22000.50,0,0,
Kiran,,Operations,18000,500,,44757
Ravi,Shah,Sales,19000,0,0,2023-01-02
`

func employeeRequest(data string) UploadRequest {
	return UploadRequest{
		Tenant:   acme,
		FileName: "employees.csv",
		Data:     strings.NewReader(data),
	}
}

func TestUploadEmployeesReportsUnparseableRow(t *testing.T) {
	f := newFixture()

	result, err := f.service(WithClock(fixedTime)).UploadEmployees(context.Background(), employeeRequest(employeeCSV))
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}

	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly one row error, got %v", result.Errors)
	}
	if !strings.HasPrefix(result.Errors[0], "Row 3: Basic Salary:") {
		t.Fatalf("expected error for row 3 basic salary, got %q", result.Errors[0])
	}
	if result.Created != 4 || result.TotalProcessed != 5 || result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Success {
		t.Fatalf("expected success to be false when a row failed")
	}

	if len(f.logs.entries) != 1 || f.logs.entries[0].RowNumber == nil || *f.logs.entries[0].RowNumber != 3 {
		t.Fatalf("expected ingestion log for row 3, got %+v", f.logs.entries)
	}
	if f.logs.entries[0].Kind != domain.UploadKindEmployees {
		t.Fatalf("expected employees log kind, got %q", f.logs.entries[0].Kind)
	}
}

func TestUploadEmployeesPersistsNormalizedValues(t *testing.T) {
	f := newFixture()

	if _, err := f.service(WithClock(fixedTime)).UploadEmployees(context.Background(), employeeRequest(employeeCSV)); err != nil {
		t.Fatalf("upload returned error: %v", err)
	}

	asha, ok := f.store.employees[employeeKey(7, "ASH-SA-007")]
	if !ok {
		t.Fatalf("expected ASH-SA-007 to be stored, got %v", f.store.employees)
	}
	if asha.BasicSalary.StringFixed(2) != "15000.00" || asha.TDSPercent != 10 {
		t.Fatalf("unexpected money fields %+v", asha)
	}
	if !asha.DateOfJoining.Equal(time.Date(2022, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date of joining %s", asha.DateOfJoining)
	}

	meera := f.store.employees[employeeKey(7, "MEE-FI-007")]
	if !meera.DateOfJoining.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected missing date to default to today, got %s", meera.DateOfJoining)
	}

	kiran := f.store.employees[employeeKey(7, "KIR-OP-007")]
	if !kiran.DateOfJoining.Equal(time.Date(2022, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected serial date to convert, got %s", kiran.DateOfJoining)
	}

	if _, ok := f.store.employees[employeeKey(7, "RAV-SA-007")]; !ok {
		t.Fatalf("expected second Ravi to take the base id once the first was rejected")
	}
}

func TestUploadEmployeesSuccess(t *testing.T) {
	f := newFixture()
	data := "employee_name,department,basic_salary\nRavi,Sales,100\nRavi,Sales,200\n-,Sales,300\n,Sales,400\n"

	result, err := f.service().UploadEmployees(context.Background(), employeeRequest(data))
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}

	if !result.Success || result.Created != 2 || result.TotalProcessed != 2 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, ok := f.store.employees[employeeKey(7, "RAV-SA-007")]; !ok {
		t.Fatalf("expected base id to be used")
	}
	if _, ok := f.store.employees[employeeKey(7, "RAV-SA-007-A")]; !ok {
		t.Fatalf("expected suffixed id for the second Ravi")
	}
	if f.employees.listCalls != 1 || f.employees.existsCalls != 0 {
		t.Fatalf("expected one id fetch and no per-row lookups, got list=%d exists=%d", f.employees.listCalls, f.employees.existsCalls)
	}
	if f.tx.commits != 1 {
		t.Fatalf("expected one committed transaction, got %d", f.tx.commits)
	}
}

func TestUploadEmployeesInsertsInBatches(t *testing.T) {
	f := newFixture()
	var b strings.Builder
	b.WriteString("First Name,Department\n")
	for i := 0; i < 7; i++ {
		b.WriteString("Asha,Sales\n")
	}

	result, err := f.service(WithBatchSize(1000)).UploadEmployees(context.Background(), UploadRequest{
		Tenant:    acme,
		FileName:  "employees.csv",
		Data:      strings.NewReader(b.String()),
		BatchSize: 3,
	})
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if result.Created != 7 {
		t.Fatalf("expected 7 created, got %+v", result)
	}
	if f.employees.insertCalls != 3 {
		t.Fatalf("expected 3 insert batches, got %d", f.employees.insertCalls)
	}
}

func TestUploadEmployeesRollsBackOnPersistenceFailure(t *testing.T) {
	f := newFixture()
	f.store.employees[employeeKey(7, "OLD-HR-007")] = domain.Employee{TenantID: 7, EmployeeID: "OLD-HR-007"}
	f.employees.failOnBatch = 2

	data := "First Name,Department\nAsha,Sales\nRavi,Sales\nMeera,Finance\nKiran,Ops\n"
	result, err := f.service(WithBatchSize(2)).UploadEmployees(context.Background(), employeeRequest(data))

	var persistErr *PersistenceError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected *PersistenceError, got %v", err)
	}
	if result.Success || result.Created != 0 || len(result.Errors) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(f.store.employees) != 1 {
		t.Fatalf("expected store to be restored to its pre-upload state, got %v", f.store.employees)
	}
	if f.tx.aborts != 1 {
		t.Fatalf("expected one aborted transaction, got %d", f.tx.aborts)
	}
	if len(f.logs.entries) != 1 || f.logs.entries[0].RowNumber != nil {
		t.Fatalf("expected one file-level ingestion log, got %+v", f.logs.entries)
	}
}

func TestUploadEmployeesCountsConflictsAsDuplicates(t *testing.T) {
	f := newFixture()
	f.store.employees[employeeKey(7, "ASH-SA-007")] = domain.Employee{TenantID: 7, EmployeeID: "ASH-SA-007"}
	f.employees.staleList = true

	data := "First Name,Department\nAsha,Sales\nRavi,Sales\n"
	result, err := f.service().UploadEmployees(context.Background(), employeeRequest(data))
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if result.Created != 1 || result.DuplicatesSkipped != 1 || !result.Success {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestUploadEmployeesRejectsInvalidDate(t *testing.T) {
	f := newFixture()
	data := "First Name,Date of joining\nAsha,31/31/2022\nRavi,2022-01-01\n"

	result, err := f.service().UploadEmployees(context.Background(), employeeRequest(data))
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "Row 2: Date of joining") {
		t.Fatalf("expected date error on row 2, got %v", result.Errors)
	}
	if result.Created != 1 {
		t.Fatalf("expected remaining row to be created, got %+v", result)
	}
}

func TestUploadEmployeesNoData(t *testing.T) {
	f := newFixture()

	result, err := f.service().UploadEmployees(context.Background(), employeeRequest("First Name,Department\nnan,Sales\n"))
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if result.Success || len(result.Errors) != 1 || result.Errors[0] != NoDataMessage {
		t.Fatalf("unexpected result %+v", result)
	}
	if f.tx.commits+f.tx.aborts != 0 {
		t.Fatalf("expected no transaction for an empty file")
	}
}

func TestUploadEmployeesRejectsUnreadableFile(t *testing.T) {
	f := newFixture()
	req := UploadRequest{Tenant: acme, FileName: "employees.xlsx", Data: strings.NewReader("not a workbook")}

	_, err := f.service().UploadEmployees(context.Background(), req)
	if !errors.Is(err, tabular.ErrUnreadable) {
		t.Fatalf("expected unreadable file error, got %v", err)
	}
}

func TestUploadEmployeesRejectsTenantProblems(t *testing.T) {
	f := newFixture()

	cases := map[string]struct {
		ctx    context.Context
		tenant domain.Tenant
	}{
		"missing":  {ctx: context.Background(), tenant: domain.Tenant{}},
		"inactive": {ctx: context.Background(), tenant: domain.Tenant{ID: 7}},
		"scope":    {ctx: auth.ContextWithTenant(context.Background(), domain.Tenant{ID: 8, IsActive: true}), tenant: acme},
	}

	for name, tc := range cases {
		_, err := f.service().UploadEmployees(tc.ctx, UploadRequest{Tenant: tc.tenant, FileName: "a.csv", Data: strings.NewReader("First Name\nAsha\n")})
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%s: expected ErrInvalidRequest, got %v", name, err)
		}
	}
	if len(f.store.employees) != 0 {
		t.Fatalf("expected nothing to be stored")
	}
}

func TestUploadEmployeesRecordsMetrics(t *testing.T) {
	f := newFixture()
	reg := prometheus.NewRegistry()
	uploads := metrics.NewUploads(reg)

	if _, err := f.service(WithMetrics(uploads)).UploadEmployees(context.Background(), employeeRequest("First Name\nAsha\n")); err != nil {
		t.Fatalf("upload returned error: %v", err)
	}

	count, err := testutil.GatherAndCount(reg, "payrolldesk_upload_total")
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one upload series recorded, got %d", count)
	}
}

const attendanceCSV = `Employee ID,Name,Department,Present Days,Absent Days,OT Hours,Late Minutes
ASH-SA-007,Asha,Sales,22,2,4.5,30
RAV-SA-007,Ravi,Sales,20,4,0,0
,Ghost,Sales,1,1,1,1
`

func TestUploadAttendanceCreatesThenUpdates(t *testing.T) {
	f := newFixture()
	svc := f.service()
	req := func() AttendanceRequest {
		return AttendanceRequest{Tenant: acme, Year: 2022, Month: 7, FileName: "july.csv", Data: strings.NewReader(attendanceCSV)}
	}

	first, err := svc.UploadAttendance(context.Background(), req())
	if err != nil {
		t.Fatalf("first upload returned error: %v", err)
	}
	if first.Created != 2 || first.Updated != 0 || first.Failed != 1 {
		t.Fatalf("unexpected first result %+v", first)
	}
	if !strings.HasPrefix(first.Errors[0], "Row 4: Employee ID") {
		t.Fatalf("expected missing id error on row 4, got %v", first.Errors)
	}

	second, err := svc.UploadAttendance(context.Background(), req())
	if err != nil {
		t.Fatalf("second upload returned error: %v", err)
	}
	if second.Created != 0 || second.Updated != 2 {
		t.Fatalf("unexpected second result %+v", second)
	}

	asha := f.store.attendance["7/ASH-SA-007/2022/7"]
	if asha.TotalWorkingDays != 24 || asha.OTHours != 4.5 || asha.LateMinutes != 30 {
		t.Fatalf("unexpected stored attendance %+v", asha)
	}
}

func TestUploadEmployeesRejectsOversizedMoney(t *testing.T) {
	f := newFixture()
	data := "First Name,Department,Basic Salary\nAsha,Sales,10000000000\nRavi,Sales,9999999999.99\n"

	result, err := f.service().UploadEmployees(context.Background(), UploadRequest{
		Tenant: acme, FileName: "staff.csv", Data: strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if result.Created != 1 || len(result.Errors) != 1 {
		t.Fatalf("expected one row error and one insert, got %+v", result)
	}
	if !strings.HasPrefix(result.Errors[0], "Row 2: Basic Salary:") {
		t.Fatalf("expected oversized salary on row 2, got %v", result.Errors)
	}
}

func TestUploadAttendanceSkipsFooterRows(t *testing.T) {
	f := newFixture()
	data := attendanceCSV + ",,,,,,\nTotal,,,43,7,4.5,31\n"

	result, err := f.service().UploadAttendance(context.Background(), AttendanceRequest{
		Tenant: acme, Year: 2022, Month: 7, FileName: "july.csv", Data: strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if result.Created != 2 || result.TotalProcessed != 3 || len(result.Errors) != 1 {
		t.Fatalf("expected only the unnamed-id row to be reported, got %+v", result)
	}
	if _, ok := f.store.attendance["7/Total/2022/7"]; ok {
		t.Fatalf("expected total footer to be skipped")
	}
}

func TestUploadAttendanceRollsBack(t *testing.T) {
	f := newFixture()
	f.attendance.failErr = errors.New("deadlock detected")

	result, err := f.service().UploadAttendance(context.Background(), AttendanceRequest{
		Tenant: acme, Year: 2022, Month: 7, FileName: "july.csv", Data: strings.NewReader(attendanceCSV),
	})
	var persistErr *PersistenceError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected *PersistenceError, got %v", err)
	}
	if result.Success || len(f.store.attendance) != 0 {
		t.Fatalf("expected rollback, got result %+v and store %v", result, f.store.attendance)
	}
}

func TestUploadAttendanceValidatesPeriod(t *testing.T) {
	f := newFixture()

	for _, month := range []int{0, 13} {
		_, err := f.service().UploadAttendance(context.Background(), AttendanceRequest{
			Tenant: acme, Year: 2022, Month: month, FileName: "x.csv", Data: strings.NewReader(attendanceCSV),
		})
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("month %d: expected ErrInvalidRequest, got %v", month, err)
		}
	}
}

func TestUploadAttendanceRejectsNegativeValues(t *testing.T) {
	f := newFixture()
	data := "Employee ID,Present Days,Late Minutes\nA-1,-2,0\nA-2,20,-5\nA-3,20,5\n"

	result, err := f.service().UploadAttendance(context.Background(), AttendanceRequest{
		Tenant: acme, Year: 2022, Month: 7, FileName: "x.csv", Data: strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("upload returned error: %v", err)
	}
	if result.Created != 1 || len(result.Errors) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}
