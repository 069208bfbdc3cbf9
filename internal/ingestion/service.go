package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/payrolldesk/internal/auth"
	"github.com/rpattn/payrolldesk/internal/db"
	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/identifier"
	"github.com/rpattn/payrolldesk/internal/logging"
	"github.com/rpattn/payrolldesk/internal/metrics"
	"github.com/rpattn/payrolldesk/internal/reconcile"
	"github.com/rpattn/payrolldesk/internal/repository"
	"github.com/rpattn/payrolldesk/internal/tabular"
)

// DefaultBatchSize is the insert chunk size when none is configured.
const DefaultBatchSize = 1000

// NoDataMessage is reported when a file has no usable rows.
const NoDataMessage = "No data found in file"

var (
	// ErrInvalidRequest is returned for requests rejected before reading the file.
	ErrInvalidRequest = errors.New("invalid upload request")
)

// RowError describes one row excluded from an upload.
type RowError struct {
	Row   int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("Row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("Row %d: %s: %v", e.Row, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// PersistenceError reports a failed transactional write. Nothing from the
// upload was kept.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("bulk upload failed, no rows were saved: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Service ingests employee and attendance spreadsheets.
type Service struct {
	employees  repository.EmployeeRepository
	attendance repository.AttendanceRepository
	logRepo    repository.IngestionLogRepository
	tx         db.Transactor
	reader     tabular.TabularSource
	reconciler *reconcile.Reconciler
	ids        *identifier.Generator
	metrics    *metrics.Uploads
	batchSize  int
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBatchSize sets the default insert chunk size.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithReader overrides the tabular decoder.
func WithReader(reader tabular.TabularSource) Option {
	return func(s *Service) {
		if reader != nil {
			s.reader = reader
		}
	}
}

// WithMetrics records upload outcomes.
func WithMetrics(m *metrics.Uploads) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new ingestion service.
func NewService(
	employees repository.EmployeeRepository,
	attendance repository.AttendanceRepository,
	logRepo repository.IngestionLogRepository,
	tx db.Transactor,
	opts ...Option,
) *Service {
	s := &Service{
		employees:  employees,
		attendance: attendance,
		logRepo:    logRepo,
		tx:         tx,
		reader:     tabular.NewReader(),
		batchSize:  DefaultBatchSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reconciler = reconcile.New(reconcile.WithClock(s.now))
	s.ids = identifier.NewGenerator(employees)
	return s
}

// UploadRequest describes an employee upload.
type UploadRequest struct {
	Tenant    domain.Tenant
	FileName  string
	Format    tabular.Format
	Data      io.Reader
	BatchSize int
}

func (s *Service) validateTenant(ctx context.Context, tenant domain.Tenant) error {
	if tenant.ID <= 0 {
		return fmt.Errorf("%w: tenant is required", ErrInvalidRequest)
	}
	if !tenant.IsActive {
		return fmt.Errorf("%w: tenant %d is inactive", ErrInvalidRequest, tenant.ID)
	}
	if err := auth.EnforceTenantScope(ctx, tenant.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func (s *Service) chunkSize(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.batchSize
}

// UploadEmployees reads, reconciles, identifies and inserts employees in
// one transaction. Rows that fail to parse are reported and skipped; a
// failed write rolls back the whole upload.
func (s *Service) UploadEmployees(ctx context.Context, req UploadRequest) (domain.UploadResult, error) {
	start := s.now()
	kind := domain.UploadKindEmployees
	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"tenant_id": req.Tenant.ID,
		"file":      req.FileName,
		"kind":      kind,
	})

	if err := s.validateTenant(ctx, req.Tenant); err != nil {
		s.observe(kind, metrics.ResultRejected, start)
		return domain.FailedUpload(0, err), err
	}

	table, err := s.reader.Read(req.Data, tabular.Hint{FileName: req.FileName, Format: req.Format})
	if err != nil {
		log.WithError(err).Warn("upload rejected: unreadable file")
		s.observe(kind, metrics.ResultRejected, start)
		return domain.FailedUpload(0, err), err
	}

	records := reconcile.FilterValidRows(s.reconciler.Employees(table), reconcile.DefaultNameColumn)
	if len(records) == 0 {
		s.observe(kind, metrics.ResultRejected, start)
		return domain.NewUploadResult(0, 0, 0, 0, []string{NoDataMessage}), nil
	}

	var rowErrs []*RowError
	prepared := make([]domain.Employee, 0, len(records))
	for _, rec := range records {
		employee, rowErr := prepareEmployee(req.Tenant.ID, rec, s.now())
		if rowErr != nil {
			rowErrs = append(rowErrs, rowErr)
			continue
		}
		prepared = append(prepared, employee)
	}

	created, duplicates := 0, 0
	if len(prepared) > 0 {
		txErr := s.tx.InTx(ctx, func(txCtx context.Context) error {
			subjects := make([]identifier.Subject, len(prepared))
			for i, e := range prepared {
				subjects[i] = identifier.Subject{Name: e.FirstName, Department: e.Department}
			}
			ids, err := s.ids.GenerateBatch(txCtx, subjects, req.Tenant.ID)
			if err != nil {
				return err
			}
			for i := range prepared {
				prepared[i].EmployeeID = ids[i]
			}

			size := s.chunkSize(req.BatchSize)
			for startIdx := 0; startIdx < len(prepared); startIdx += size {
				endIdx := min(startIdx+size, len(prepared))
				chunk := prepared[startIdx:endIdx]
				inserted, err := s.employees.InsertBatch(txCtx, chunk)
				if err != nil {
					return fmt.Errorf("batch starting at row %d: %w", startIdx+1, err)
				}
				created += inserted
				duplicates += len(chunk) - inserted
			}
			return nil
		})
		if txErr != nil {
			persistErr := &PersistenceError{Err: txErr}
			log.WithError(txErr).Error("employee upload rolled back")
			s.logIngestionError(ctx, req.Tenant.ID, kind, req.FileName, nil, persistErr)
			s.observe(kind, metrics.ResultFailed, start)
			return domain.FailedUpload(len(records), persistErr), persistErr
		}
	}

	messages := s.recordRowErrors(ctx, req.Tenant.ID, kind, req.FileName, rowErrs)
	result := domain.NewUploadResult(created, 0, len(records), duplicates, messages)

	s.metrics.Rows(string(kind), "created", created)
	s.metrics.Rows(string(kind), "duplicate", duplicates)
	s.metrics.Rows(string(kind), "failed", len(rowErrs))
	s.observe(kind, outcome(result), start)

	log.WithFields(logrus.Fields{
		"created":    result.Created,
		"duplicates": result.DuplicatesSkipped,
		"failed":     result.Failed,
		"processed":  result.TotalProcessed,
	}).Info("employee upload finished")

	return result, nil
}

func (s *Service) recordRowErrors(ctx context.Context, tenantID int64, kind domain.UploadKind, fileName string, rowErrs []*RowError) []string {
	messages := make([]string, 0, len(rowErrs))
	for _, rowErr := range rowErrs {
		row := rowErr.Row
		s.logIngestionError(ctx, tenantID, kind, fileName, &row, rowErr)
		messages = append(messages, rowErr.Error())
	}
	return messages
}

func (s *Service) logIngestionError(ctx context.Context, tenantID int64, kind domain.UploadKind, fileName string, rowNumber *int, err error) {
	if s.logRepo == nil || err == nil {
		return
	}
	entry := domain.IngestionLogEntry{
		TenantID:     tenantID,
		Kind:         kind,
		FileName:     fileName,
		RowNumber:    rowNumber,
		ErrorMessage: err.Error(),
	}
	if logErr := s.logRepo.Record(ctx, entry); logErr != nil {
		logging.FromContext(ctx).WithError(logErr).Warn("failed to record ingestion log")
	}
}

func (s *Service) observe(kind domain.UploadKind, result string, start time.Time) {
	s.metrics.Observe(string(kind), result, s.now().Sub(start))
}

func outcome(result domain.UploadResult) string {
	switch {
	case result.Success:
		return metrics.ResultSuccess
	case result.Created+result.Updated > 0:
		return metrics.ResultPartial
	default:
		return metrics.ResultFailed
	}
}
