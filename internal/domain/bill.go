package domain

import "time"

// Bill statuses.
const (
	BillStatusPending = "pending"
	BillStatusPaid    = "paid"
)

// Bill types recognized by the engine. Unrecognized bill number prefixes
// map to BillTypeUnknown.
const (
	BillTypeElectricity = "electricity"
	BillTypeWater       = "water"
	BillTypeTelecom     = "telecom"
	BillTypeTelevision  = "television"
	BillTypePhonecard   = "phonecard"
	BillTypeUnknown     = "unknown"
)

// BillQuery identifies the bill to resolve. Exactly one of CustomerID or
// BillNumber must be populated; BillNumber takes priority when both are set.
type BillQuery struct {
	CustomerID string `json:"customerId,omitempty"`
	BillNumber string `json:"billNumber,omitempty"`
	BillType   string `json:"billType,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Period     string `json:"period,omitempty"`
}

// Identifier returns the string that identifies this query: the bill
// number when present, otherwise the customer ID.
func (q BillQuery) Identifier() string {
	if q.BillNumber != "" {
		return q.BillNumber
	}
	return q.CustomerID
}

// BillInfo is a resolved bill, normalized from whichever cascade tier
// answered. Amount is in the smallest currency unit (VND has no minor
// unit, so this is whole dong).
//
// Invariant: when OldIndex and NewIndex are both set, Consumption equals
// NewIndex-OldIndex. The resolver reconciles this; upstream values are
// not trusted as-is.
type BillInfo struct {
	CustomerID   string `json:"customerId"`
	CustomerName string `json:"customerName"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	BillType     string `json:"billType"`
	Provider     string `json:"provider"`
	Period       string `json:"period"`
	Amount       int64  `json:"amount"`
	DueDate      string `json:"dueDate"`
	Status       string `json:"status"`
	BillNumber   string `json:"billNumber"`
	Description  string `json:"description,omitempty"`
	OldIndex     *int   `json:"oldIndex,omitempty"`
	NewIndex     *int   `json:"newIndex,omitempty"`
	Consumption  *int   `json:"consumption,omitempty"`
	Taxes        int64  `json:"taxes,omitempty"`
	Fees         int64  `json:"fees,omitempty"`
}

// Customer is a stored customer record.
type Customer struct {
	ID         int       `json:"id"`
	CustomerID string    `json:"customerId"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Bill is a stored bill record.
type Bill struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customerId"`
	BillType    string    `json:"billType"`
	Provider    string    `json:"provider"`
	Period      string    `json:"period"`
	OldIndex    *int      `json:"oldIndex,omitempty"`
	NewIndex    *int      `json:"newIndex,omitempty"`
	Consumption *int      `json:"consumption,omitempty"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	BillNumber  string    `json:"billNumber,omitempty"`
	DueDate     string    `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Payment is a stored payment record.
type Payment struct {
	ID            int        `json:"id"`
	BillID        string     `json:"billId"`
	CustomerID    string     `json:"customerId,omitempty"`
	Amount        int64      `json:"amount"`
	PaymentMethod string     `json:"paymentMethod"`
	TransactionID string     `json:"transactionId"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

// ProviderConfig describes one utility provider API. Loaded once at
// process start and never mutated at request time.
type ProviderConfig struct {
	Name              string
	BillType          string
	Provider          string
	BaseURL           string
	APIKey            string
	AuthType          string
	Timeout           time.Duration
	RetryCount        int
	BillNumberPattern string
	QueryPath         string
}

// Key returns the registry key for a provider config.
func (c ProviderConfig) Key() string {
	return c.BillType + "_" + c.Provider
}

// Configured reports whether the provider has credentials and can be
// called directly.
func (c ProviderConfig) Configured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}
