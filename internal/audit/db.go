package audit

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// the audit table exists. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// WAL keeps concurrent reads from the diagnostics API cheap.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transaction_records (
			id TEXT PRIMARY KEY,
			recorded_at DATETIME NOT NULL,
			outcome TEXT NOT NULL,
			amount INTEGER NOT NULL,
			transaction_status TEXT NOT NULL,
			entry_method TEXT NOT NULL,
			merchant_id TEXT NOT NULL,
			merchant_name TEXT NOT NULL,
			card_scheme TEXT NOT NULL,
			masked_pan TEXT NOT NULL,
			cvm TEXT NOT NULL,
			host_message TEXT NOT NULL,
			diagnostic_code TEXT NOT NULL,
			receipt_number TEXT NOT NULL,
			terminal_timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_records_outcome ON transaction_records(outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_records_recorded_at ON transaction_records(recorded_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
