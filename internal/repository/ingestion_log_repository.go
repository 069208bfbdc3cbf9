package repository

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rpattn/payrolldesk/internal/db"
	"github.com/rpattn/payrolldesk/internal/domain"
)

const defaultLogPageSize = 200

type ingestionLogRepository struct {
	pool db.Querier
}

// NewIngestionLogRepository wires a repository backed by pgx.
func NewIngestionLogRepository(pool db.Querier) IngestionLogRepository {
	return &ingestionLogRepository{pool: pool}
}

// Record ignores any transaction in ctx so entries outlive a rolled back upload.
func (r *ingestionLogRepository) Record(ctx context.Context, entry domain.IngestionLogEntry) error {
	if r.pool == nil {
		return ErrNotInitialized
	}

	rowNumber := pgtype.Int4{}
	if entry.RowNumber != nil {
		rowNumber = pgtype.Int4{Int32: int32(*entry.RowNumber), Valid: true}
	}

	if _, err := r.pool.Exec(
		ctx,
		`INSERT INTO ingestion_logs (tenant_id, kind, file_name, row_number, error_message)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.TenantID,
		string(entry.Kind),
		entry.FileName,
		rowNumber,
		entry.ErrorMessage,
	); err != nil {
		return gerrors.Wrapf(err, "failed to record ingestion log for %s", entry.FileName)
	}
	return nil
}

// List returns the newest entries for one uploaded file first.
func (r *ingestionLogRepository) List(ctx context.Context, tenantID int64, kind domain.UploadKind, fileName string, limit int, offset int) ([]domain.IngestionLogEntry, error) {
	if r.pool == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = defaultLogPageSize
	}
	offset = max(offset, 0)

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, tenant_id, kind, file_name, row_number, error_message, created_at
		 FROM ingestion_logs
		 WHERE tenant_id = $1 AND kind = $2 AND file_name = $3
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5`,
		tenantID,
		string(kind),
		fileName,
		limit,
		offset,
	)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list ingestion logs")
	}

	entries, err := pgx.CollectRows(rows, scanLogEntry)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to scan ingestion logs")
	}
	return entries, nil
}

func scanLogEntry(row pgx.CollectableRow) (domain.IngestionLogEntry, error) {
	var (
		entry     domain.IngestionLogEntry
		kind      string
		rowNumber pgtype.Int4
	)
	if err := row.Scan(
		&entry.ID,
		&entry.TenantID,
		&kind,
		&entry.FileName,
		&rowNumber,
		&entry.ErrorMessage,
		&entry.CreatedAt,
	); err != nil {
		return domain.IngestionLogEntry{}, err
	}

	entry.Kind = domain.UploadKind(kind)
	if rowNumber.Valid {
		n := int(rowNumber.Int32)
		entry.RowNumber = &n
	}
	return entry, nil
}
