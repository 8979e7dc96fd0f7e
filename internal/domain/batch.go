package domain

// Batch row outcomes. Terminal per row; one row's outcome never affects
// another row.
const (
	RowSuccess = "success"
	RowFailed  = "failed"
	RowSkipped = "skipped"
)

// AutoPaymentRow is one logical row of the batch input file. Empty Amount
// means "pay the full bill amount"; PaymentMethod defaults to "visa".
type AutoPaymentRow struct {
	BillNumber    string `json:"billNumber,omitempty"`
	CustomerID    string `json:"customerId,omitempty"`
	Amount        string `json:"amount,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

// AutoPaymentResult is the recorded outcome of one batch row. Entries are
// append-only within a run and immutable once written.
type AutoPaymentResult struct {
	BillNumber    string `json:"billNumber"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	Amount        int64  `json:"amount,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// BatchSummary aggregates one batch run. Always Success+Failed+Skipped ==
// Total, and TotalAmount is the sum of Amount over success rows only.
type BatchSummary struct {
	Total       int   `json:"total"`
	Success     int   `json:"success"`
	Failed      int   `json:"failed"`
	Skipped     int   `json:"skipped"`
	TotalAmount int64 `json:"totalAmount"`
}

// BatchOutcome bundles the per-row results with their summary.
type BatchOutcome struct {
	RunID   string              `json:"runId"`
	Results []AutoPaymentResult `json:"results"`
	Summary BatchSummary        `json:"summary"`
}

// BillImportOutcome reports a bulk bill import. Processed counts the
// lines persisted; Errors carries one localized message per rejected
// line.
type BillImportOutcome struct {
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}
