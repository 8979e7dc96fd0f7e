package service_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/service"
)

var syntheticNow = time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)

func TestSynthesizeBillDeterministic(t *testing.T) {
	query := domain.BillQuery{BillNumber: "PD29007350490"}

	first := service.SynthesizeBill(query, syntheticNow)
	second := service.SynthesizeBill(query, syntheticNow)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("same identifier produced different bills:\n%+v\n%+v", first, second)
	}

	other := service.SynthesizeBill(domain.BillQuery{BillNumber: "PD29007350491"}, syntheticNow)
	if other.CustomerName == first.CustomerName && other.Amount == first.Amount && other.Phone == first.Phone {
		t.Error("different identifiers should not produce an identical bill")
	}
}

func TestSynthesizeBillElectricityIndices(t *testing.T) {
	info := service.SynthesizeBill(domain.BillQuery{BillNumber: "PD29007350490"}, syntheticNow)

	if info.OldIndex == nil || info.NewIndex == nil || info.Consumption == nil {
		t.Fatal("electricity bills must carry meter indices")
	}
	if *info.NewIndex-*info.OldIndex != *info.Consumption {
		t.Errorf("consumption = %d, indices differ by %d", *info.Consumption, *info.NewIndex-*info.OldIndex)
	}
	if *info.Consumption <= 0 {
		t.Errorf("consumption = %d, want positive", *info.Consumption)
	}
}

func TestSynthesizeBillNonElectricityHasNoIndices(t *testing.T) {
	info := service.SynthesizeBill(domain.BillQuery{BillNumber: "NC29007654321"}, syntheticNow)

	if info.OldIndex != nil || info.NewIndex != nil {
		t.Error("water bills should not carry meter indices")
	}
	if info.BillType != domain.BillTypeWater {
		t.Errorf("billType = %q", info.BillType)
	}
	if info.Provider != "sawaco" {
		t.Errorf("provider = %q", info.Provider)
	}
}

func TestSynthesizeBillAmountFloor(t *testing.T) {
	// Scan a range of identifiers; no synthesized amount may dip below
	// the 50 000 VND floor regardless of the hash variation.
	for i := 0; i < 200; i++ {
		query := domain.BillQuery{CustomerID: "KH" + string(rune('A'+i%26)) + string(rune('0'+i%10))}
		info := service.SynthesizeBill(query, syntheticNow)
		if info.Amount < 50_000 {
			t.Fatalf("identifier %q synthesized amount %d below floor", query.CustomerID, info.Amount)
		}
	}
}

func TestSynthesizeBillCustomerIDOnly(t *testing.T) {
	info := service.SynthesizeBill(domain.BillQuery{CustomerID: "KH001234"}, syntheticNow)

	if info.CustomerID != "KH001234" {
		t.Errorf("customerId = %q", info.CustomerID)
	}
	if info.BillNumber == "" {
		t.Error("a bill number must be synthesized when the query has none")
	}
	if err := service.ValidateBillNumber(info.BillNumber); err != nil {
		t.Errorf("synthesized bill number %q is malformed: %v", info.BillNumber, err)
	}
	if info.Status != domain.BillStatusPending {
		t.Errorf("status = %q, want pending", info.Status)
	}
	if info.Period != "2025-08" {
		t.Errorf("period = %q", info.Period)
	}
}
