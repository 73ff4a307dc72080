package audit

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore mirrors every record into a queryable journal for the
// diagnostics API.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Save(rec Record) error {
	_, err := s.db.Exec(
		`INSERT INTO transaction_records
		(id, recorded_at, outcome, amount, transaction_status, entry_method,
		 merchant_id, merchant_name, card_scheme, masked_pan, cvm,
		 host_message, diagnostic_code, receipt_number, terminal_timestamp)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.RecordedAt.Format(time.RFC3339Nano), rec.Outcome, rec.Amount,
		rec.TransactionStatus, rec.EntryMethod, rec.MerchantID, rec.MerchantName,
		rec.CardScheme, rec.MaskedPAN, rec.CVM, rec.HostMessage,
		rec.DiagnosticCode, rec.ReceiptNumber,
		rec.TerminalTimestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM transaction_records").Scan(&count)
	return count, err
}

// Filter narrows a List call. Zero values mean "no constraint".
type Filter struct {
	Outcome string
	Limit   int
}

// List returns records newest first.
func (s *SQLiteStore) List(f Filter) ([]Record, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	query := `SELECT id, recorded_at, outcome, amount, transaction_status,
		entry_method, merchant_id, merchant_name, card_scheme, masked_pan, cvm,
		host_message, diagnostic_code, receipt_number, terminal_timestamp
		FROM transaction_records`
	args := []any{}
	if f.Outcome != "" {
		query += " WHERE outcome = ?"
		args = append(args, f.Outcome)
	}
	query += " ORDER BY recorded_at DESC LIMIT ?"
	args = append(args, f.Limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var recordedAt, terminalTS string
		if err := rows.Scan(
			&rec.ID, &recordedAt, &rec.Outcome, &rec.Amount,
			&rec.TransactionStatus, &rec.EntryMethod, &rec.MerchantID,
			&rec.MerchantName, &rec.CardScheme, &rec.MaskedPAN, &rec.CVM,
			&rec.HostMessage, &rec.DiagnosticCode, &rec.ReceiptNumber,
			&terminalTS,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		rec.TerminalTimestamp, _ = time.Parse(time.RFC3339Nano, terminalTS)
		records = append(records, rec)
	}
	return records, rows.Err()
}
