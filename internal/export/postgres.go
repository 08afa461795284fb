package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// TableName is the table results are copied into.
const TableName = "label_results"

const createTableSQL = `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID NOT NULL,
	image       TEXT NOT NULL,
	sequence    INTEGER NOT NULL,
	text        TEXT NOT NULL,
	row_index   INTEGER NOT NULL,
	x1          INTEGER NOT NULL,
	y1          INTEGER NOT NULL,
	x2          INTEGER NOT NULL,
	y2          INTEGER NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// copyColumns are the columns filled by Write, in copyRow order.
var copyColumns = []string{
	"run_id", "image", "sequence", "text", "row_index",
	"x1", "y1", "x2", "y2", "confidence",
}

// PostgresSink stores a batch's records in PostgreSQL.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink connects to databaseURL and creates the results table if
// it does not exist.
func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer per run
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create %s: %w", TableName, err)
	}

	return &PostgresSink{db: db}, nil
}

// Write bulk-copies every record of the dataset in one transaction, tagged
// with the dataset's run id. It returns the number of rows written.
func (s *PostgresSink) Write(ctx context.Context, d *Dataset) (int, error) {
	records := d.Records()
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(TableName, copyColumns...))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare copy: %w", err)
	}

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, copyRow(d.RunID, r)...); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("failed to copy record %s#%d: %w", r.Image, r.Sequence, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return len(records), nil
}

// Close closes the database connection.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

func copyRow(runID string, r Record) []any {
	return []any{
		runID, r.Image, r.Sequence, r.Text, r.Row,
		r.X1, r.Y1, r.X2, r.Y2, r.RoundedConfidence(),
	}
}
