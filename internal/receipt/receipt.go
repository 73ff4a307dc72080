// Package receipt generates the customer and merchant receipt content for a
// transaction attempt. Print routing is the host's concern; this package only
// produces the text artifacts.
package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tdonkor/payterm/internal/domain"
)

// Writer owns the receipt artifacts: a transient pending customer ticket at a
// fixed path, overwritten per attempt, plus merchant copies in a directory.
type Writer struct {
	dir         string
	pendingPath string
}

// NewWriter builds a writer. dir receives merchant copies; pendingPath is the
// customer ticket slot.
func NewWriter(dir, pendingPath string) *Writer {
	return &Writer{dir: dir, pendingPath: pendingPath}
}

// ClearPending deletes any stale customer ticket from a prior attempt. It is
// idempotent: a missing ticket is not an error.
func (w *Writer) ClearPending() error {
	if err := os.Remove(w.pendingPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pending ticket: %w", err)
	}
	return nil
}

// WriteDeclined leaves the explicit no-charge notice as the customer ticket.
func (w *Writer) WriteDeclined(resp *domain.TransactionResponse) error {
	var b strings.Builder
	writeHeader(&b, resp)
	b.WriteString("TRANSACTION DECLINED\n")
	b.WriteString("No payment has been taken.\n")
	b.WriteString("Please try another card.\n")
	if resp.HostMessage != "" {
		fmt.Fprintf(&b, "\n%s\n", resp.HostMessage)
	}
	return w.writePending(b.String())
}

// WriteApproved writes the full customer ticket and a merchant copy for a
// committed payment of amount minor units.
func (w *Writer) WriteApproved(resp *domain.TransactionResponse, amount int64) error {
	customer := buildApproved(resp, amount, "CUSTOMER COPY")
	if err := w.writePending(customer); err != nil {
		return err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create receipt dir: %w", err)
	}
	name := fmt.Sprintf("merchant-%s.txt", time.Now().UTC().Format("20060102-150405.000"))
	merchant := buildApproved(resp, amount, "MERCHANT COPY")
	if err := os.WriteFile(filepath.Join(w.dir, name), []byte(merchant), 0o644); err != nil {
		return fmt.Errorf("write merchant receipt: %w", err)
	}
	return nil
}

// WriteUnconfirmed leaves an explicit payment-taken notice for a successful
// authorization whose host confirmation code disagrees. The customer was
// charged, so something must be left behind even though no success receipt can
// be promised.
func (w *Writer) WriteUnconfirmed(resp *domain.TransactionResponse, amount int64) error {
	var b strings.Builder
	writeHeader(&b, resp)
	b.WriteString("PAYMENT TAKEN\n")
	fmt.Fprintf(&b, "AMOUNT        %s\n", FormatAmount(amount))
	b.WriteString("A receipt is unavailable for this transaction.\n")
	b.WriteString("Please contact the merchant with this ticket.\n")
	if resp.ReceiptNumber != "" {
		fmt.Fprintf(&b, "\nRECEIPT NO    %s\n", resp.ReceiptNumber)
	}
	if resp.HostMessage != "" {
		fmt.Fprintf(&b, "\n%s\n", resp.HostMessage)
	}
	return w.writePending(b.String())
}

func (w *Writer) writePending(content string) error {
	if dir := filepath.Dir(w.pendingPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ticket dir: %w", err)
		}
	}
	if err := os.WriteFile(w.pendingPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write pending ticket: %w", err)
	}
	return nil
}

func buildApproved(resp *domain.TransactionResponse, amount int64, copyLabel string) string {
	var b strings.Builder
	writeHeader(&b, resp)
	fmt.Fprintf(&b, "%s\n\n", copyLabel)
	fmt.Fprintf(&b, "AMOUNT        %s\n", FormatAmount(amount))
	if resp.CashbackAmount > 0 {
		fmt.Fprintf(&b, "CASHBACK      %s\n", FormatAmount(resp.CashbackAmount))
	}
	fmt.Fprintf(&b, "CARD          %s %s\n", resp.CardScheme, resp.MaskedPAN)
	fmt.Fprintf(&b, "ENTRY         %s\n", resp.EntryMethod)
	if resp.CVM != "" {
		fmt.Fprintf(&b, "VERIFIED BY   %s\n", resp.CVM)
	}
	if resp.ReceiptNumber != "" {
		fmt.Fprintf(&b, "RECEIPT NO    %s\n", resp.ReceiptNumber)
	}
	b.WriteString("\nAUTHORIZED - THANK YOU\n")
	return b.String()
}

func writeHeader(b *strings.Builder, resp *domain.TransactionResponse) {
	if resp.MerchantName != "" {
		fmt.Fprintf(b, "%s\n", resp.MerchantName)
	}
	if resp.MerchantID != "" {
		fmt.Fprintf(b, "MERCHANT %s\n", resp.MerchantID)
	}
	ts := resp.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	fmt.Fprintf(b, "%s\n\n", ts.Format("02/01/2006 15:04"))
}

// FormatAmount renders minor currency units as a decimal string:
// 2500 -> "25.00", -5 -> "-0.05".
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
