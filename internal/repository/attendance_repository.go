package repository

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/rpattn/payrolldesk/internal/db"
	"github.com/rpattn/payrolldesk/internal/domain"
)

const attendanceColumns = `id, tenant_id, employee_id, name, department, year, month,
	present_days, absent_days, total_working_days, ot_hours, late_minutes, created_at, updated_at`

// xmax is zero only for a freshly inserted tuple.
const upsertAttendanceSQL = `INSERT INTO attendance_summaries (
	tenant_id, employee_id, name, department, year, month,
	present_days, absent_days, total_working_days, ot_hours, late_minutes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (tenant_id, employee_id, year, month) DO UPDATE SET
	name = EXCLUDED.name,
	department = EXCLUDED.department,
	present_days = EXCLUDED.present_days,
	absent_days = EXCLUDED.absent_days,
	total_working_days = EXCLUDED.total_working_days,
	ot_hours = EXCLUDED.ot_hours,
	late_minutes = EXCLUDED.late_minutes,
	updated_at = NOW()
RETURNING (xmax = 0)`

type attendanceRepository struct {
	pool db.Querier
}

// NewAttendanceRepository wires a repository backed by pgx.
func NewAttendanceRepository(pool db.Querier) AttendanceRepository {
	return &attendanceRepository{pool: pool}
}

func (r *attendanceRepository) UpsertBatch(ctx context.Context, rows []domain.AttendanceSummary) (int, int, error) {
	if r.pool == nil {
		return 0, 0, ErrNotInitialized
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			upsertAttendanceSQL,
			row.TenantID,
			row.EmployeeID,
			row.Name,
			row.Department,
			row.Year,
			row.Month,
			row.PresentDays,
			row.AbsentDays,
			row.TotalWorkingDays,
			row.OTHours,
			row.LateMinutes,
		)
	}

	results := db.QuerierFromContext(ctx, r.pool).SendBatch(ctx, batch)
	created, updated := 0, 0
	for i := range rows {
		var inserted bool
		if err := results.QueryRow().Scan(&inserted); err != nil {
			_ = results.Close()
			return created, updated, gerrors.Wrapf(err, "failed to upsert attendance for %s", rows[i].EmployeeID)
		}
		if inserted {
			created++
		} else {
			updated++
		}
	}
	if err := results.Close(); err != nil {
		return created, updated, gerrors.Wrap(err, "failed to close attendance batch")
	}
	return created, updated, nil
}

func (r *attendanceRepository) List(ctx context.Context, tenantID int64, year int, month int) ([]domain.AttendanceSummary, error) {
	if r.pool == nil {
		return nil, ErrNotInitialized
	}

	rows, err := db.QuerierFromContext(ctx, r.pool).Query(
		ctx,
		`SELECT `+attendanceColumns+` FROM attendance_summaries
		 WHERE tenant_id = $1 AND year = $2 AND month = $3
		 ORDER BY employee_id`,
		tenantID,
		year,
		month,
	)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list attendance")
	}
	defer rows.Close()

	summaries := []domain.AttendanceSummary{}
	for rows.Next() {
		var s domain.AttendanceSummary
		if err := rows.Scan(
			&s.ID,
			&s.TenantID,
			&s.EmployeeID,
			&s.Name,
			&s.Department,
			&s.Year,
			&s.Month,
			&s.PresentDays,
			&s.AbsentDays,
			&s.TotalWorkingDays,
			&s.OTHours,
			&s.LateMinutes,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan attendance")
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "failed to iterate attendance")
	}
	return summaries, nil
}
