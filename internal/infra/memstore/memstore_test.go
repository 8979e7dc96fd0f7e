package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/memstore"
)

func TestCustomerLifecycle(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	if _, err := s.GetCustomer(ctx, "KH001"); err == nil {
		t.Fatal("expected not found for missing customer")
	}

	created, err := s.CreateCustomer(ctx, &domain.Customer{CustomerID: "KH001", Name: "Trần Thị Bình"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected assigned numeric ID")
	}

	got, err := s.GetCustomer(ctx, "KH001")
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if got.Name != "Trần Thị Bình" {
		t.Errorf("Name = %q", got.Name)
	}

	if _, err := s.CreateCustomer(ctx, &domain.Customer{CustomerID: "KH001"}); err == nil {
		t.Error("expected duplicate error")
	}
}

func TestBillStatusUpdate(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	bill, err := s.CreateBill(ctx, &domain.Bill{
		CustomerID: "PD29007350490",
		BillType:   domain.BillTypeElectricity,
		BillNumber: "PD29007350490",
		Amount:     802271,
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	if bill.Status != domain.BillStatusPending {
		t.Errorf("new bill status = %q, want pending", bill.Status)
	}

	if err := s.UpdateBillStatus(ctx, bill.ID, domain.BillStatusPaid); err != nil {
		t.Fatalf("UpdateBillStatus: %v", err)
	}

	got, err := s.GetBillByNumber(ctx, "PD29007350490")
	if err != nil {
		t.Fatalf("GetBillByNumber: %v", err)
	}
	if got.Status != domain.BillStatusPaid {
		t.Errorf("status = %q, want paid", got.Status)
	}

	var notFound *domain.ErrNotFound
	if err := s.UpdateBillStatus(ctx, "missing", domain.BillStatusPaid); !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPaymentIdempotencyKey(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	_, err := s.CreatePayment(ctx, &domain.Payment{
		BillID:        "b1",
		TransactionID: "TXN_A",
		Amount:        150000,
		Status:        "completed",
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	var dup *domain.ErrDuplicate
	_, err = s.CreatePayment(ctx, &domain.Payment{BillID: "b1", TransactionID: "TXN_A"})
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicate for reused transaction ID, got %v", err)
	}

	got, err := s.GetPaymentByTransactionID(ctx, "TXN_A")
	if err != nil {
		t.Fatalf("GetPaymentByTransactionID: %v", err)
	}
	if got.PaidAt == nil {
		t.Error("completed payment should carry PaidAt")
	}
}

func TestCardDefaultHandling(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	first, err := s.CreateCard(ctx, &domain.LinkedCard{CustomerID: "KH001", Token: "tok_1", IsDefault: true, IsActive: true})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	second, err := s.CreateCard(ctx, &domain.LinkedCard{CustomerID: "KH001", Token: "tok_2", IsActive: true})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	if err := s.SetDefaultCard(ctx, "KH001", second.ID); err != nil {
		t.Fatalf("SetDefaultCard: %v", err)
	}

	cards, err := s.ListCards(ctx, "KH001")
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	for _, c := range cards {
		if c.ID == first.ID && c.IsDefault {
			t.Error("first card should no longer be default")
		}
		if c.ID == second.ID && !c.IsDefault {
			t.Error("second card should be default")
		}
	}

	if err := s.DeactivateCard(ctx, "KH001", second.ID); err != nil {
		t.Fatalf("DeactivateCard: %v", err)
	}
	got, err := s.GetCard(ctx, "KH001", second.ID)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got.IsActive {
		t.Error("deactivated card should be inactive")
	}

	if err := s.DeactivateCard(ctx, "KH002", first.ID); err == nil {
		t.Error("expected not found for another customer's card")
	}
}
