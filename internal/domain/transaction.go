package domain

import "time"

// TransactionStatus is the terminal's classification of a processed request.
// Anything other than the two known values is passed through and treated as
// ambiguous by the engine.
type TransactionStatus string

const (
	StatusSuccessful TransactionStatus = "SUCCESSFUL"
	StatusFailed     TransactionStatus = "FAILED"
)

// EntryMethod describes how the card was presented to the terminal.
type EntryMethod string

const (
	EntryChip        EntryMethod = "CHIP"
	EntrySwipe       EntryMethod = "SWIPE"
	EntryContactless EntryMethod = "CONTACTLESS"
	EntryManual      EntryMethod = "MANUAL"
)

// DiagnosticApproved is the host confirmation code for a fully approved
// authorization.
const DiagnosticApproved = "00"

// TransactionRequest is built fresh for every Pay call and never persisted.
// Amount is in minor currency units.
type TransactionRequest struct {
	Amount      int64 `json:"amount"`
	POSNumber   int   `json:"pos_number"`
	ForceOnline bool  `json:"force_online"`
}

// TransactionResponse is the terminal's answer to a pay or reverse request.
// It is never mutated after receipt; the audit record and receipts are built
// from a flattened copy.
type TransactionResponse struct {
	TransactionStatus TransactionStatus `json:"transaction_status"`
	EntryMethod       EntryMethod       `json:"entry_method"`
	MerchantID        string            `json:"merchant_id"`
	MerchantName      string            `json:"merchant_name"`
	CardScheme        string            `json:"card_scheme"`
	MaskedPAN         string            `json:"masked_pan"`
	CVM               string            `json:"cvm"`
	Amount            int64             `json:"amount"`
	CashbackAmount    int64             `json:"cashback_amount"`
	HostMessage       string            `json:"host_message"`
	DiagnosticCode    string            `json:"diagnostic_code"`
	ReceiptNumber     string            `json:"receipt_number"`
	Timestamp         time.Time         `json:"timestamp"`
}

// Approved reports whether the host confirmation code reads approved.
func (r *TransactionResponse) Approved() bool {
	return r.DiagnosticCode == DiagnosticApproved
}

// RequiresSignature reports whether the authorization was entered in a way
// that needs a manual cardholder signature. An unattended kiosk cannot
// capture one, so such authorizations must be reversed.
func (r *TransactionResponse) RequiresSignature() bool {
	return r.EntryMethod == EntrySwipe
}
