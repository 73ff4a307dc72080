package domain

// Result classifies how a peripheral operation terminated. Only the terminal's
// transaction-status field decides the business outcome; raw call codes map to
// the connect/submit/generic results.
type Result string

const (
	ResultOK               Result = "OK"
	ResultValidationError  Result = "VALIDATION_ERROR"
	ResultConnectError     Result = "CONNECT_ERROR"
	ResultSubmitError      Result = "SUBMIT_ERROR"
	ResultDeclined         Result = "DECLINED"
	ResultCancelled        Result = "CANCELLED"
	ResultGenericError     Result = "GENERIC_ERROR"
	ResultSupervisionError Result = "SUPERVISION_ERROR"
)

// PaymentOutcome is the engine's answer to a Pay call. PaidAmount is zero
// unless the payment committed; CustomerReceipt records whether a
// customer-facing artifact was produced for this attempt.
type PaymentOutcome struct {
	Result          Result `json:"result"`
	PaidAmount      int64  `json:"paid_amount"`
	CustomerReceipt bool   `json:"customer_receipt"`
	HostMessage     string `json:"host_message,omitempty"`
}

// Committed reports whether money was actually taken.
func (o PaymentOutcome) Committed() bool {
	return o.Result == ResultOK && o.PaidAmount > 0
}
