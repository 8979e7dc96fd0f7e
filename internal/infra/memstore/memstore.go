// Package memstore is the in-memory Store adapter. It backs development
// and tests; swapping in a database only means re-implementing port.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"

	"github.com/google/uuid"
)

// Store holds all records behind a single RWMutex. Operations copy on
// the way out so callers can never mutate shared state.
type Store struct {
	mu sync.RWMutex

	customers map[string]*domain.Customer
	bills     map[string]*domain.Bill
	payments  map[string]*domain.Payment
	cards     map[int]*domain.LinkedCard

	nextCustomerID int
	nextPaymentID  int
	nextCardID     int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		customers:      make(map[string]*domain.Customer),
		bills:          make(map[string]*domain.Bill),
		payments:       make(map[string]*domain.Payment),
		cards:          make(map[int]*domain.LinkedCard),
		nextCustomerID: 1,
		nextPaymentID:  1,
		nextCardID:     1,
	}
}

// GetCustomer returns the customer with the given business identifier.
func (s *Store) GetCustomer(_ context.Context, customerID string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[customerID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "customer", ID: customerID}
	}
	cp := *c
	return &cp, nil
}

// CreateCustomer stores a new customer record.
func (s *Store) CreateCustomer(_ context.Context, c *domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.CustomerID]; exists {
		return nil, &domain.ErrDuplicate{Key: c.CustomerID}
	}
	stored := *c
	stored.ID = s.nextCustomerID
	s.nextCustomerID++
	stored.CreatedAt = time.Now()
	s.customers[stored.CustomerID] = &stored

	cp := stored
	return &cp, nil
}

// GetBill returns a bill by its record ID.
func (s *Store) GetBill(_ context.Context, billID string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bills[billID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "bill", ID: billID}
	}
	cp := *b
	return &cp, nil
}

// GetBillByNumber returns the bill carrying the given bill number.
func (s *Store) GetBillByNumber(_ context.Context, billNumber string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bills {
		if b.BillNumber == billNumber {
			cp := *b
			return &cp, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "bill", ID: billNumber}
}

// GetBillByCustomer returns the customer's bill for a type and period.
func (s *Store) GetBillByCustomer(_ context.Context, customerID, billType, period string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bills {
		if b.CustomerID == customerID && b.BillType == billType && (period == "" || b.Period == period) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "bill", ID: customerID}
}

// ListBillsByCustomer returns every bill belonging to the customer.
func (s *Store) ListBillsByCustomer(_ context.Context, customerID string) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Bill
	for _, b := range s.bills {
		if b.CustomerID == customerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

// CreateBill stores a new bill record.
func (s *Store) CreateBill(_ context.Context, b *domain.Bill) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *b
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Status == "" {
		stored.Status = domain.BillStatusPending
	}
	stored.CreatedAt = time.Now()
	s.bills[stored.ID] = &stored

	cp := stored
	return &cp, nil
}

// UpdateBillStatus sets the status of an existing bill.
func (s *Store) UpdateBillStatus(_ context.Context, billID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bills[billID]
	if !ok {
		return &domain.ErrNotFound{Resource: "bill", ID: billID}
	}
	b.Status = status
	return nil
}

// CreatePayment stores a payment record keyed by transaction ID.
func (s *Store) CreatePayment(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.TransactionID]; exists {
		return nil, &domain.ErrDuplicate{Key: p.TransactionID}
	}
	stored := *p
	stored.ID = s.nextPaymentID
	s.nextPaymentID++
	stored.CreatedAt = time.Now()
	if stored.Status == "completed" {
		now := stored.CreatedAt
		stored.PaidAt = &now
	}
	s.payments[stored.TransactionID] = &stored

	cp := stored
	return &cp, nil
}

// GetPaymentByTransactionID returns the payment with the idempotency key.
func (s *Store) GetPaymentByTransactionID(_ context.Context, transactionID string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[transactionID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "payment", ID: transactionID}
	}
	cp := *p
	return &cp, nil
}

// UpdatePaymentStatus sets the status of an existing payment.
func (s *Store) UpdatePaymentStatus(_ context.Context, transactionID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[transactionID]
	if !ok {
		return &domain.ErrNotFound{Resource: "payment", ID: transactionID}
	}
	p.Status = status
	if status == "completed" && p.PaidAt == nil {
		now := time.Now()
		p.PaidAt = &now
	}
	return nil
}

// ListPaymentsByCustomer returns all payments made for the customer.
func (s *Store) ListPaymentsByCustomer(_ context.Context, customerID string) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Payment
	for _, p := range s.payments {
		if p.CustomerID == customerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// ListCards returns every linked card for the customer.
func (s *Store) ListCards(_ context.Context, customerID string) ([]domain.LinkedCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.LinkedCard
	for _, c := range s.cards {
		if c.CustomerID == customerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

// GetCard returns one of the customer's cards by record ID.
func (s *Store) GetCard(_ context.Context, customerID string, cardID int) (*domain.LinkedCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[cardID]
	if !ok || c.CustomerID != customerID {
		return nil, &domain.ErrNotFound{Resource: "card", ID: customerID}
	}
	cp := *c
	return &cp, nil
}

// CreateCard stores a new linked card.
func (s *Store) CreateCard(_ context.Context, card *domain.LinkedCard) (*domain.LinkedCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *card
	stored.ID = s.nextCardID
	s.nextCardID++
	if stored.IsDefault {
		for _, c := range s.cards {
			if c.CustomerID == stored.CustomerID {
				c.IsDefault = false
			}
		}
	}
	s.cards[stored.ID] = &stored

	cp := stored
	return &cp, nil
}

// SetDefaultCard marks one card default and clears the flag elsewhere.
func (s *Store) SetDefaultCard(_ context.Context, customerID string, cardID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.cards[cardID]
	if !ok || target.CustomerID != customerID {
		return &domain.ErrNotFound{Resource: "card", ID: customerID}
	}
	for _, c := range s.cards {
		if c.CustomerID == customerID {
			c.IsDefault = false
		}
	}
	target.IsDefault = true
	return nil
}

// DeactivateCard soft-deletes a linked card.
func (s *Store) DeactivateCard(_ context.Context, customerID string, cardID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[cardID]
	if !ok || c.CustomerID != customerID {
		return &domain.ErrNotFound{Resource: "card", ID: customerID}
	}
	c.IsActive = false
	c.IsDefault = false
	return nil
}
