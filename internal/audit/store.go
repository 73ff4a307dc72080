// Package audit persists one record per transaction attempt, successful or
// not. Records are append-only; nothing in the system ever updates or deletes
// one.
package audit

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tdonkor/payterm/internal/domain"
)

// Record is a flattened, timestamped copy of a terminal response together
// with the engine's verdict on the attempt.
type Record struct {
	ID                string    `json:"id"`
	RecordedAt        time.Time `json:"recorded_at"`
	Outcome           string    `json:"outcome"`
	Amount            int64     `json:"amount"`
	TransactionStatus string    `json:"transaction_status"`
	EntryMethod       string    `json:"entry_method"`
	MerchantID        string    `json:"merchant_id"`
	MerchantName      string    `json:"merchant_name"`
	CardScheme        string    `json:"card_scheme"`
	MaskedPAN         string    `json:"masked_pan"`
	CVM               string    `json:"cvm"`
	HostMessage       string    `json:"host_message"`
	DiagnosticCode    string    `json:"diagnostic_code"`
	ReceiptNumber     string    `json:"receipt_number"`
	TerminalTimestamp time.Time `json:"terminal_timestamp"`
}

// NewRecord flattens a response into an audit record.
func NewRecord(resp *domain.TransactionResponse, outcome domain.Result, amount int64) Record {
	return Record{
		ID:                uuid.NewString(),
		RecordedAt:        time.Now().UTC(),
		Outcome:           string(outcome),
		Amount:            amount,
		TransactionStatus: string(resp.TransactionStatus),
		EntryMethod:       string(resp.EntryMethod),
		MerchantID:        resp.MerchantID,
		MerchantName:      resp.MerchantName,
		CardScheme:        resp.CardScheme,
		MaskedPAN:         resp.MaskedPAN,
		CVM:               resp.CVM,
		HostMessage:       resp.HostMessage,
		DiagnosticCode:    resp.DiagnosticCode,
		ReceiptNumber:     resp.ReceiptNumber,
		TerminalTimestamp: resp.Timestamp,
	}
}

// Store is a single audit sink.
type Store interface {
	Save(rec Record) error
}

// Recorder fans one record out to every configured sink. Persistence failures
// are logged and swallowed: an audit write must never retroactively change a
// financial result already decided against the terminal.
type Recorder struct {
	stores []Store
}

// NewRecorder builds a recorder over the given sinks.
func NewRecorder(stores ...Store) *Recorder {
	return &Recorder{stores: stores}
}

// Record persists one attempt and returns the flattened record.
func (r *Recorder) Record(resp *domain.TransactionResponse, outcome domain.Result, amount int64) Record {
	rec := NewRecord(resp, outcome, amount)
	for _, s := range r.stores {
		if err := s.Save(rec); err != nil {
			log.Printf("[audit] WARNING: save record %s: %v", rec.ID, err)
		}
	}
	return rec
}
