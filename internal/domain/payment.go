package domain

// Payment result statuses, as normalized from the card network response.
const (
	PaymentApproved = "APPROVED"
	PaymentDeclined = "DECLINED"
	PaymentPending  = "PENDING"
	PaymentError    = "ERROR"
)

// Card brands derived from the leading digits of the PAN.
const (
	BrandVisa       = "VISA"
	BrandMastercard = "MASTERCARD"
	BrandAmex       = "AMERICAN_EXPRESS"
	BrandDiscover   = "DISCOVER"
	BrandUnknown    = "UNKNOWN"
)

// PaymentInstrument is a card presented for payment. It is never
// persisted in plaintext; only a derived CardToken may be stored.
type PaymentInstrument struct {
	CardNumber  string `json:"cardNumber"`
	Holder      string `json:"holder"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CVV         string `json:"cvv"`
}

// CardToken is the storable representation of a tokenized card.
type CardToken struct {
	Token        string `json:"token"`
	MaskedNumber string `json:"maskedNumber"`
	Brand        string `json:"brand"`
	ExpiryMonth  string `json:"expiryMonth"`
	ExpiryYear   string `json:"expiryYear"`
	Status       string `json:"status"`
}

// PaymentResult is the normalized outcome of an authorization attempt.
// TransactionID is generated client-side before submission, so it is
// known even when the network call fails (idempotency key).
type PaymentResult struct {
	TransactionID     string `json:"transactionId"`
	Status            string `json:"status"`
	ResponseCode      string `json:"responseCode"`
	Message           string `json:"message"`
	AuthorizationCode string `json:"authorizationCode,omitempty"`
	ChallengeToken    string `json:"challengeToken,omitempty"`
	ProcessingTimeMs  int64  `json:"processingTimeMs"`
}

// LinkedCard is a card stored in the vault. The PAN is held only in
// encrypted form; MaskedNumber is what gets displayed.
type LinkedCard struct {
	ID           int    `json:"id"`
	CustomerID   string `json:"customerId"`
	Token        string `json:"token"`
	EncryptedPAN string `json:"-"`
	MaskedNumber string `json:"maskedNumber"`
	Brand        string `json:"brand"`
	Holder       string `json:"holder"`
	ExpiryMonth  string `json:"expiryMonth"`
	ExpiryYear   string `json:"expiryYear"`
	IsDefault    bool   `json:"isDefault"`
	IsActive     bool   `json:"isActive"`
}
