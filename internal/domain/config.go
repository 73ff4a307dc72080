package domain

import "errors"

var (
	ErrNilConfiguration   = errors.New("configuration is nil")
	ErrEmptyAddress       = errors.New("terminal address must not be empty")
	ErrInvalidPOSNumber   = errors.New("pos number must be greater than zero")
	ErrEmptyRecordDir     = errors.New("record directory must not be empty")
	ErrEmptyPendingTicket = errors.New("pending ticket path must not be empty")
)

// RuntimeConfiguration is the peripheral's active configuration. It is built
// once from caller-supplied settings at Init time and replaced wholesale only
// by a new Init; the engine copies it on acceptance so callers cannot mutate
// it afterwards.
type RuntimeConfiguration struct {
	// Address is the terminal's remote address/identifier, handed to the
	// driver on every connect.
	Address string `json:"address"`
	// POSNumber identifies this kiosk lane to the acquirer.
	POSNumber int `json:"pos_number"`
	// ForceOnline forces every authorization to go online to the host.
	ForceOnline bool `json:"force_online"`
	// RecordDir is where per-attempt audit record files are written.
	RecordDir string `json:"record_dir"`
	// PendingTicketPath is the transient customer-ticket artifact, overwritten
	// per attempt and deleted at the start of the next Pay.
	PendingTicketPath string `json:"pending_ticket_path"`
}

// Validate enforces the Init preconditions.
func (c *RuntimeConfiguration) Validate() error {
	if c == nil {
		return ErrNilConfiguration
	}
	if c.Address == "" {
		return ErrEmptyAddress
	}
	if c.POSNumber <= 0 {
		return ErrInvalidPOSNumber
	}
	if c.RecordDir == "" {
		return ErrEmptyRecordDir
	}
	if c.PendingTicketPath == "" {
		return ErrEmptyPendingTicket
	}
	return nil
}
