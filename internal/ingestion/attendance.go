package ingestion

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/logging"
	"github.com/rpattn/payrolldesk/internal/metrics"
	"github.com/rpattn/payrolldesk/internal/reconcile"
	"github.com/rpattn/payrolldesk/internal/tabular"
)

// AttendanceRequest describes a monthly attendance upload.
type AttendanceRequest struct {
	Tenant    domain.Tenant
	Year      int
	Month     int
	FileName  string
	Format    tabular.Format
	Data      io.Reader
	BatchSize int
}

// UploadAttendance upserts monthly attendance summaries. Rows already
// stored for the same employee and month are replaced and counted as
// updated.
func (s *Service) UploadAttendance(ctx context.Context, req AttendanceRequest) (domain.UploadResult, error) {
	start := s.now()
	kind := domain.UploadKindAttendance
	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"tenant_id": req.Tenant.ID,
		"file":      req.FileName,
		"kind":      kind,
		"period":    fmt.Sprintf("%04d-%02d", req.Year, req.Month),
	})

	if err := s.validateTenant(ctx, req.Tenant); err != nil {
		s.observe(kind, metrics.ResultRejected, start)
		return domain.FailedUpload(0, err), err
	}
	if req.Month < 1 || req.Month > 12 {
		err := fmt.Errorf("%w: month must be between 1 and 12, got %d", ErrInvalidRequest, req.Month)
		s.observe(kind, metrics.ResultRejected, start)
		return domain.FailedUpload(0, err), err
	}
	if req.Year < 1900 || req.Year > 9999 {
		err := fmt.Errorf("%w: year %d is out of range", ErrInvalidRequest, req.Year)
		s.observe(kind, metrics.ResultRejected, start)
		return domain.FailedUpload(0, err), err
	}

	table, err := s.reader.Read(req.Data, tabular.Hint{FileName: req.FileName, Format: req.Format})
	if err != nil {
		log.WithError(err).Warn("upload rejected: unreadable file")
		s.observe(kind, metrics.ResultRejected, start)
		return domain.FailedUpload(0, err), err
	}

	records := reconcile.FilterAttendanceRows(s.reconciler.Attendance(table))
	if len(records) == 0 {
		s.observe(kind, metrics.ResultRejected, start)
		return domain.NewUploadResult(0, 0, 0, 0, []string{NoDataMessage}), nil
	}

	var rowErrs []*RowError
	prepared := make([]domain.AttendanceSummary, 0, len(records))
	for _, rec := range records {
		summary, rowErr := prepareAttendance(req.Tenant.ID, req.Year, req.Month, rec)
		if rowErr != nil {
			rowErrs = append(rowErrs, rowErr)
			continue
		}
		prepared = append(prepared, summary)
	}

	created, updated := 0, 0
	if len(prepared) > 0 {
		txErr := s.tx.InTx(ctx, func(txCtx context.Context) error {
			size := s.chunkSize(req.BatchSize)
			for startIdx := 0; startIdx < len(prepared); startIdx += size {
				endIdx := min(startIdx+size, len(prepared))
				c, u, err := s.attendance.UpsertBatch(txCtx, prepared[startIdx:endIdx])
				if err != nil {
					return fmt.Errorf("batch starting at row %d: %w", startIdx+1, err)
				}
				created += c
				updated += u
			}
			return nil
		})
		if txErr != nil {
			persistErr := &PersistenceError{Err: txErr}
			log.WithError(txErr).Error("attendance upload rolled back")
			s.logIngestionError(ctx, req.Tenant.ID, kind, req.FileName, nil, persistErr)
			s.observe(kind, metrics.ResultFailed, start)
			return domain.FailedUpload(len(records), persistErr), persistErr
		}
	}

	messages := s.recordRowErrors(ctx, req.Tenant.ID, kind, req.FileName, rowErrs)
	result := domain.NewUploadResult(created, updated, len(records), 0, messages)

	s.metrics.Rows(string(kind), "created", created)
	s.metrics.Rows(string(kind), "updated", updated)
	s.metrics.Rows(string(kind), "failed", len(rowErrs))
	s.observe(kind, outcome(result), start)

	log.WithFields(logrus.Fields{
		"created":   result.Created,
		"updated":   result.Updated,
		"failed":    result.Failed,
		"processed": result.TotalProcessed,
	}).Info("attendance upload finished")

	return result, nil
}
