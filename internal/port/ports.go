// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
)

// ProviderFetcher queries a utility provider API directly for bill data.
type ProviderFetcher interface {
	FetchBill(ctx context.Context, cfg domain.ProviderConfig, query domain.BillQuery) (*domain.BillInfo, error)
}

// BankFetcher queries the aggregating bank API for bill data.
type BankFetcher interface {
	QueryBill(ctx context.Context, query domain.BillQuery) (*domain.BillInfo, error)
}

// CardProcessor submits card authorizations to the payment network.
type CardProcessor interface {
	Authorize(ctx context.Context, card domain.PaymentInstrument, amount int64, transactionID, orderRef string) (*domain.PaymentResult, error)
	QueryTransaction(ctx context.Context, transactionID string) (*domain.PaymentResult, error)
}

// RowCodec reads batch rows from a spreadsheet and writes results back out.
type RowCodec interface {
	ParseRows(data []byte) ([]domain.AutoPaymentRow, error)
	SerializeResults(results []domain.AutoPaymentResult, summary domain.BatchSummary) ([]byte, error)
	Template() ([]byte, error)
}

// Store defines all persistence operations for the billing engine.
// Implemented by the in-memory adapter (or any other persistence layer).
type Store interface {
	// Customers
	GetCustomer(ctx context.Context, customerID string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, c *domain.Customer) (*domain.Customer, error)

	// Bills
	GetBill(ctx context.Context, billID string) (*domain.Bill, error)
	GetBillByNumber(ctx context.Context, billNumber string) (*domain.Bill, error)
	GetBillByCustomer(ctx context.Context, customerID, billType, period string) (*domain.Bill, error)
	ListBillsByCustomer(ctx context.Context, customerID string) ([]domain.Bill, error)
	CreateBill(ctx context.Context, b *domain.Bill) (*domain.Bill, error)
	UpdateBillStatus(ctx context.Context, billID, status string) error

	// Payments
	CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, transactionID, status string) error
	ListPaymentsByCustomer(ctx context.Context, customerID string) ([]domain.Payment, error)

	// Linked cards
	ListCards(ctx context.Context, customerID string) ([]domain.LinkedCard, error)
	GetCard(ctx context.Context, customerID string, cardID int) (*domain.LinkedCard, error)
	CreateCard(ctx context.Context, card *domain.LinkedCard) (*domain.LinkedCard, error)
	SetDefaultCard(ctx context.Context, customerID string, cardID int) error
	DeactivateCard(ctx context.Context, customerID string, cardID int) error
}
