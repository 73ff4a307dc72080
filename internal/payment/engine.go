// Package payment implements the transaction engine: Init, Test, Pay and
// Unload against the terminal, including the post-authorization decision
// logic, audit persistence and receipt generation.
package payment

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tdonkor/payterm/internal/audit"
	"github.com/tdonkor/payterm/internal/domain"
	"github.com/tdonkor/payterm/internal/metrics"
	"github.com/tdonkor/payterm/internal/receipt"
	"github.com/tdonkor/payterm/internal/terminal"
)

// Engine runs one payment state machine per Pay call. The only state shared
// across calls is the active configuration and the heartbeat flag, both
// guarded by the mutex; the mutex also makes every operation single-flight,
// so a Pay can never race an Init or Unload on a half-torn-down channel.
type Engine struct {
	mu       sync.Mutex
	dialer   terminal.Dialer
	journal  audit.Store
	defaults domain.RuntimeConfiguration

	cfg      *domain.RuntimeConfiguration
	alive    bool
	recorder *audit.Recorder
	receipts *receipt.Writer
}

// NewEngine builds an engine. journal receives a copy of every audit record
// in addition to the per-attempt record files; defaults seed the settings
// entry points before the first Init.
func NewEngine(dialer terminal.Dialer, journal audit.Store, defaults domain.RuntimeConfiguration) *Engine {
	return &Engine{
		dialer:   dialer,
		journal:  journal,
		defaults: defaults,
	}
}

// Init validates the configuration, proves the terminal reachable with a
// connect handshake, and on success swaps in the new configuration and marks
// the heartbeat alive. Any failure leaves prior state untouched. The session
// used for the handshake is always closed before returning.
func (e *Engine) Init(ctx context.Context, cfg *domain.RuntimeConfiguration) (ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log.Printf("[engine] init start")
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[engine] init panic: %v", r)
			ok = false
		}
		log.Printf("[engine] init done ok=%t", ok)
	}()

	if err := cfg.Validate(); err != nil {
		log.Printf("[engine] init rejected: %v", err)
		return false
	}

	sess, err := e.dialer.Dial(ctx)
	if err != nil {
		log.Printf("[engine] init dial: %v", err)
		return false
	}
	defer sess.Close()

	if code := connect(sess, cfg.Address); !code.OK() {
		log.Printf("[engine] init handshake failed: %s", code)
		return false
	}
	if code := disconnect(sess); !code.OK() {
		// The handshake already proved reachability.
		log.Printf("[engine] WARNING: init hangup: %s", code)
	}

	accepted := *cfg
	e.cfg = &accepted
	e.alive = true
	e.recorder = audit.NewRecorder(e.auditStores(accepted.RecordDir)...)
	e.receipts = receipt.NewWriter(accepted.RecordDir, accepted.PendingTicketPath)
	return true
}

func (e *Engine) auditStores(recordDir string) []audit.Store {
	stores := []audit.Store{audit.NewFileStore(recordDir)}
	if e.journal != nil {
		stores = append(stores, e.journal)
	}
	return stores
}

// Test reports the heartbeat. Pure read: no terminal I/O, no side effects.
func (e *Engine) Test() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alive
}

// Pay runs one transaction for amount minor currency units and drives the
// decision tree: classify the terminal's status, reverse signature-entry
// authorizations, persist every terminated branch after a successful submit,
// and leave the right customer artifact behind.
func (e *Engine) Pay(ctx context.Context, amount int64) (out domain.PaymentOutcome) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log.Printf("[engine] pay start amount=%d", amount)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[engine] pay panic: %v", r)
			out = domain.PaymentOutcome{Result: domain.ResultGenericError}
		}
		metrics.PaymentsTotal.WithLabelValues(string(out.Result)).Inc()
		log.Printf("[engine] pay done result=%s paid=%d receipt=%t",
			out.Result, out.PaidAmount, out.CustomerReceipt)
	}()

	return e.pay(ctx, amount)
}

func (e *Engine) pay(ctx context.Context, amount int64) domain.PaymentOutcome {
	if amount <= 0 {
		return domain.PaymentOutcome{Result: domain.ResultValidationError}
	}
	if e.cfg == nil || !e.alive {
		return domain.PaymentOutcome{Result: domain.ResultGenericError}
	}

	// A crash between two Pay calls must never leave a stale ticket visible
	// to the next attempt.
	if err := e.receipts.ClearPending(); err != nil {
		log.Printf("[engine] WARNING: clear pending ticket: %v", err)
	}

	sess, err := e.dialer.Dial(ctx)
	if err != nil {
		// The channel to the driver is gone; stop reporting alive until the
		// next successful Init.
		e.alive = false
		log.Printf("[engine] pay dial: %v", err)
		return domain.PaymentOutcome{Result: domain.ResultConnectError}
	}
	defer sess.Close()

	if code := connect(sess, e.cfg.Address); !code.OK() {
		log.Printf("[engine] pay connect failed: %s", code)
		return domain.PaymentOutcome{Result: domain.ResultConnectError}
	}

	code, resp := submit(sess, domain.TransactionRequest{
		Amount:      amount,
		POSNumber:   e.cfg.POSNumber,
		ForceOnline: e.cfg.ForceOnline,
	})
	if !code.OK() || resp == nil {
		log.Printf("[engine] pay submit failed: %s", code)
		return domain.PaymentOutcome{Result: domain.ResultSubmitError}
	}

	switch resp.TransactionStatus {
	case domain.StatusFailed:
		e.recorder.Record(resp, domain.ResultDeclined, 0)
		e.writeDeclined(resp)
		return domain.PaymentOutcome{
			Result:          domain.ResultDeclined,
			CustomerReceipt: true,
			HostMessage:     resp.HostMessage,
		}

	case domain.StatusSuccessful:
		return e.settle(sess, resp, amount)

	default:
		// Ambiguous status: persist for audit, promise nothing to the
		// customer, and surface the raw result to the caller.
		e.recorder.Record(resp, domain.ResultGenericError, 0)
		log.Printf("[engine] ambiguous transaction status %q", resp.TransactionStatus)
		return domain.PaymentOutcome{
			Result:      domain.ResultGenericError,
			HostMessage: resp.HostMessage,
		}
	}
}

// settle finishes a successful initial authorization. Every path through here
// persists the (possibly post-reversal) response exactly once, then
// disconnects; a disconnect error is logged but cannot fail a payment already
// decided.
func (e *Engine) settle(sess terminal.Session, resp *domain.TransactionResponse, amount int64) domain.PaymentOutcome {
	out := domain.PaymentOutcome{
		Result:      domain.ResultOK,
		PaidAmount:  amount,
		HostMessage: resp.HostMessage,
	}

	switch {
	case resp.RequiresSignature():
		// The kiosk is unattended: a swipe-authorized sale must be unwound,
		// never left captured, whatever the reversal itself reports.
		log.Printf("[engine] signature entry %s, reversing %d", resp.EntryMethod, amount)
		revCode, revResp := reverse(sess, amount)
		metrics.ReversalsTotal.Inc()
		if !revCode.OK() {
			log.Printf("[engine] WARNING: reversal returned %s", revCode)
		}
		final := resp
		if revResp != nil {
			final = revResp
		}
		e.recorder.Record(final, domain.ResultCancelled, 0)
		e.writeDeclined(final)
		out = domain.PaymentOutcome{
			Result:          domain.ResultCancelled,
			PaidAmount:      0,
			CustomerReceipt: true,
			HostMessage:     final.HostMessage,
		}

	case resp.Approved() && resp.TransactionStatus == domain.StatusSuccessful:
		e.recorder.Record(resp, domain.ResultOK, amount)
		e.writeApproved(resp, amount)
		out.CustomerReceipt = true

	default:
		// Authorized but the confirmation code disagrees: the money moved, so
		// the amount stands. The customer was charged and must get an explicit
		// notice even though no success receipt can be promised.
		log.Printf("[engine] WARNING: successful status with diagnostic %q", resp.DiagnosticCode)
		e.recorder.Record(resp, domain.ResultOK, amount)
		e.writeUnconfirmed(resp, amount)
		out.CustomerReceipt = true
	}

	if code := disconnect(sess); !code.OK() {
		log.Printf("[engine] WARNING: disconnect after settle: %s", code)
	}
	return out
}

// Unload stops the peripheral serving calls. No transaction-state cleanup
// happens here; the mutex guarantees no Pay is in flight.
func (e *Engine) Unload() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alive = false
	log.Printf("[engine] unloaded")
	return true
}

// UpdateSettings applies a serialized settings document on top of the stored
// defaults. The active configuration is untouched; the new values take effect
// at the next Init.
func (e *Engine) UpdateSettings(doc []byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := domain.ParseSettingsDocument(doc, e.defaults)
	if err != nil {
		log.Printf("[engine] settings update rejected: %v", err)
		return false
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[engine] settings update invalid: %v", err)
		return false
	}
	e.defaults = *cfg
	return true
}

// DescribeSettings returns the peripheral's declared configurable settings as
// a serialized document.
func (e *Engine) DescribeSettings() ([]byte, error) {
	return domain.DescribeSettings()
}

// Defaults returns a copy of the stored default configuration.
func (e *Engine) Defaults() domain.RuntimeConfiguration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.defaults
}

// --- receipt helpers: failures logged, never alter the outcome ---

func (e *Engine) writeDeclined(resp *domain.TransactionResponse) {
	if err := e.receipts.WriteDeclined(resp); err != nil {
		log.Printf("[engine] WARNING: write declined receipt: %v", err)
	}
}

func (e *Engine) writeApproved(resp *domain.TransactionResponse, amount int64) {
	if err := e.receipts.WriteApproved(resp, amount); err != nil {
		log.Printf("[engine] WARNING: write approved receipt: %v", err)
	}
}

func (e *Engine) writeUnconfirmed(resp *domain.TransactionResponse, amount int64) {
	if err := e.receipts.WriteUnconfirmed(resp, amount); err != nil {
		log.Printf("[engine] WARNING: write payment-taken notice: %v", err)
	}
}

// --- instrumented terminal calls ---

func connect(sess terminal.Session, address string) terminal.Code {
	defer observe("connect", time.Now())
	return sess.Connect(address)
}

func submit(sess terminal.Session, req domain.TransactionRequest) (terminal.Code, *domain.TransactionResponse) {
	defer observe("pay", time.Now())
	return sess.Pay(req)
}

func reverse(sess terminal.Session, amount int64) (terminal.Code, *domain.TransactionResponse) {
	defer observe("reverse", time.Now())
	return sess.Reverse(amount)
}

func disconnect(sess terminal.Session) terminal.Code {
	defer observe("disconnect", time.Now())
	return sess.Disconnect()
}

func observe(op string, start time.Time) {
	metrics.TerminalCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
