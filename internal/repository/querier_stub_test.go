package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rpattn/payrolldesk/internal/db"
)

// nilQuerier fails every call; it proves a code path never reached the database.
type nilQuerier struct{}

var _ db.Querier = nilQuerier{}

func (nilQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("unexpected Exec")
}

func (nilQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("unexpected Query")
}

func (nilQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("unexpected QueryRow")
}

func (nilQuerier) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("unexpected SendBatch")
}
