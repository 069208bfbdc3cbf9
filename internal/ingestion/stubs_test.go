package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rpattn/payrolldesk/internal/db"
	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/repository"
)

type memoryStore struct {
	employees  map[string]domain.Employee
	attendance map[string]domain.AttendanceSummary
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		employees:  map[string]domain.Employee{},
		attendance: map[string]domain.AttendanceSummary{},
	}
}

func (m *memoryStore) clone() *memoryStore {
	out := newMemoryStore()
	for k, v := range m.employees {
		out.employees[k] = v
	}
	for k, v := range m.attendance {
		out.attendance[k] = v
	}
	return out
}

func employeeKey(tenantID int64, employeeID string) string {
	return fmt.Sprintf("%d/%s", tenantID, employeeID)
}

func attendanceKey(s domain.AttendanceSummary) string {
	return fmt.Sprintf("%d/%s/%d/%d", s.TenantID, s.EmployeeID, s.Year, s.Month)
}

// stubTransactor snapshots the store and restores it when fn fails.
type stubTransactor struct {
	store   *memoryStore
	commits int
	aborts  int
}

var _ db.Transactor = (*stubTransactor)(nil)

func (t *stubTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := t.store.clone()
	if err := fn(ctx); err != nil {
		*t.store = *snapshot
		t.aborts++
		return err
	}
	t.commits++
	return nil
}

type stubEmployeeRepo struct {
	store *memoryStore

	failOnBatch int
	staleList   bool

	insertCalls int
	listCalls   int
	existsCalls int
}

var _ repository.EmployeeRepository = (*stubEmployeeRepo)(nil)

func (r *stubEmployeeRepo) EmployeeIDExists(_ context.Context, tenantID int64, employeeID string) (bool, error) {
	r.existsCalls++
	_, ok := r.store.employees[employeeKey(tenantID, employeeID)]
	return ok, nil
}

func (r *stubEmployeeRepo) ListEmployeeIDs(_ context.Context, tenantID int64) ([]string, error) {
	r.listCalls++
	ids := []string{}
	if r.staleList {
		return ids, nil
	}
	for _, e := range r.store.employees {
		if e.TenantID == tenantID {
			ids = append(ids, e.EmployeeID)
		}
	}
	return ids, nil
}

func (r *stubEmployeeRepo) Create(_ context.Context, e domain.Employee) (domain.Employee, error) {
	key := employeeKey(e.TenantID, e.EmployeeID)
	if _, ok := r.store.employees[key]; ok {
		return domain.Employee{}, repository.ErrDuplicateEmployeeID
	}
	e.ID = int64(len(r.store.employees) + 1)
	r.store.employees[key] = e
	return e, nil
}

func (r *stubEmployeeRepo) InsertBatch(_ context.Context, employees []domain.Employee) (int, error) {
	r.insertCalls++
	inserted := 0
	for _, e := range employees {
		key := employeeKey(e.TenantID, e.EmployeeID)
		if _, ok := r.store.employees[key]; ok {
			continue
		}
		r.store.employees[key] = e
		inserted++
	}
	if r.failOnBatch > 0 && r.insertCalls == r.failOnBatch {
		return inserted, errors.New("connection reset by peer")
	}
	return inserted, nil
}

func (r *stubEmployeeRepo) List(ctx context.Context, tenantID int64, limit int, offset int) ([]domain.Employee, int, error) {
	all, _ := r.ListAll(ctx, tenantID)
	if offset > len(all) {
		offset = len(all)
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func (r *stubEmployeeRepo) ListAll(_ context.Context, tenantID int64) ([]domain.Employee, error) {
	out := []domain.Employee{}
	for _, e := range r.store.employees {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

type stubAttendanceRepo struct {
	store   *memoryStore
	failErr error
}

var _ repository.AttendanceRepository = (*stubAttendanceRepo)(nil)

func (r *stubAttendanceRepo) UpsertBatch(_ context.Context, rows []domain.AttendanceSummary) (int, int, error) {
	created, updated := 0, 0
	for _, row := range rows {
		key := attendanceKey(row)
		if _, ok := r.store.attendance[key]; ok {
			updated++
		} else {
			created++
		}
		r.store.attendance[key] = row
	}
	if r.failErr != nil {
		return created, updated, r.failErr
	}
	return created, updated, nil
}

func (r *stubAttendanceRepo) List(_ context.Context, tenantID int64, year int, month int) ([]domain.AttendanceSummary, error) {
	out := []domain.AttendanceSummary{}
	for _, s := range r.store.attendance {
		if s.TenantID == tenantID && s.Year == year && s.Month == month {
			out = append(out, s)
		}
	}
	return out, nil
}

type stubLogRepo struct {
	entries []domain.IngestionLogEntry
}

var _ repository.IngestionLogRepository = (*stubLogRepo)(nil)

func (s *stubLogRepo) Record(_ context.Context, entry domain.IngestionLogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubLogRepo) List(context.Context, int64, domain.UploadKind, string, int, int) ([]domain.IngestionLogEntry, error) {
	return s.entries, nil
}

type fixture struct {
	store      *memoryStore
	tx         *stubTransactor
	employees  *stubEmployeeRepo
	attendance *stubAttendanceRepo
	logs       *stubLogRepo
}

func newFixture() *fixture {
	store := newMemoryStore()
	return &fixture{
		store:      store,
		tx:         &stubTransactor{store: store},
		employees:  &stubEmployeeRepo{store: store},
		attendance: &stubAttendanceRepo{store: store},
		logs:       &stubLogRepo{},
	}
}

func (f *fixture) service(opts ...Option) *Service {
	return NewService(f.employees, f.attendance, f.logs, f.tx, opts...)
}
