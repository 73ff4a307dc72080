// Package terminal defines the outbound contract to the terminal-driver
// process and its channel implementation. The vendor wire protocol itself is
// the driver's business; only the request/response contract lives here.
package terminal

import (
	"context"

	"github.com/tdonkor/payterm/internal/domain"
)

// Code is the raw result of a single terminal call. Zero means the call was
// accepted; any other value passes through to the caller untouched, and only
// the response's transaction-status field decides the business outcome.
type Code int

const (
	CodeOK           Code = 0
	CodeConnectFail  Code = 1
	CodeSubmitFail   Code = 2
	CodeReverseFail  Code = 3
	CodeDisconnFail  Code = 4
	CodeChannelError Code = 5
)

// OK reports whether the call was accepted by the driver.
func (c Code) OK() bool { return c == CodeOK }

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeConnectFail:
		return "CONNECT_FAILED"
	case CodeSubmitFail:
		return "SUBMIT_FAILED"
	case CodeReverseFail:
		return "REVERSE_FAILED"
	case CodeDisconnFail:
		return "DISCONNECT_FAILED"
	case CodeChannelError:
		return "CHANNEL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Session is one logical connection to the terminal. A session is owned
// exclusively by the operation that dialed it and must be closed before that
// operation returns, whatever the outcome.
type Session interface {
	// Connect asks the driver to open its link to the terminal at address.
	Connect(address string) Code
	// Pay submits an authorization for the request's amount.
	Pay(req domain.TransactionRequest) (Code, *domain.TransactionResponse)
	// Reverse unwinds a just-authorized charge of the given amount.
	Reverse(amount int64) (Code, *domain.TransactionResponse)
	// Disconnect closes the driver's link to the terminal.
	Disconnect() Code
	// Close releases the underlying channel resources.
	Close() error
}

// Dialer creates sessions on demand. The supervisor owns the live
// implementation for the peripheral's lifetime and hands it to the engine,
// which dials a fresh session per operation.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}
