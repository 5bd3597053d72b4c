package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at INTEGER NOT NULL,
	tenant TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	outcome TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_usage_recorded_at ON usage_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_usage_provider_model ON usage_records(provider, model);
`

// SQLiteBackend persists usage records to a SQLite database, for
// single-instance deployments that want accounting across restarts.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at path with WAL
// journaling and initializes the schema.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// SaveBatch implements Backend. The batch is written in one
// transaction.
func (s *SQLiteBackend) SaveBatch(ctx context.Context, records []UsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO usage_records
			(recorded_at, tenant, provider, model, endpoint,
			 prompt_tokens, completion_tokens, cost_usd, latency_ms, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Time.UnixMilli(), r.Tenant, r.Provider, r.Model, r.Endpoint,
			r.PromptTokens, r.CompletionTokens, r.CostUSD, r.LatencyMS, r.Outcome,
		); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}
	return tx.Commit()
}

// Totals implements Backend.
func (s *SQLiteBackend) Totals(ctx context.Context, since time.Time) ([]Total, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, model,
		       COUNT(*), SUM(prompt_tokens), SUM(completion_tokens), SUM(cost_usd)
		FROM usage_records
		WHERE recorded_at >= ?
		GROUP BY provider, model
		ORDER BY provider, model`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer rows.Close()

	var out []Total
	for rows.Next() {
		var t Total
		if err := rows.Scan(&t.Provider, &t.Model, &t.Requests,
			&t.PromptTokens, &t.CompletionTokens, &t.CostUSD); err != nil {
			return nil, fmt.Errorf("failed to scan total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PurgeBefore implements Backend.
func (s *SQLiteBackend) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM usage_records WHERE recorded_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge records: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Backend.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
