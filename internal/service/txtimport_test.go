package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/memstore"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/service"

	"go.uber.org/zap"
)

func importFile(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n"))
}

func TestTxtImportCreatesCustomersAndBills(t *testing.T) {
	store := memstore.New()
	importer := service.NewTxtImporter(store, zap.NewNop())

	data := importFile(
		"customerId|customerName|customerAddress|billType|provider|amount|dueDate",
		"EVN001234|Nguyễn Văn A|123 Nguyễn Huệ, Q1|electricity|EVN TP.HCM|500000|2025-09-15",
		"SAW567890|Trần Thị B|456 Lê Lợi, Q2|water|SAWACO|150000|2025-09-20",
	)
	outcome, err := importer.ImportFile(context.Background(), data)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if outcome.Processed != 2 || len(outcome.Errors) != 0 {
		t.Fatalf("outcome = %+v", outcome)
	}

	customer, err := store.GetCustomer(context.Background(), "EVN001234")
	if err != nil {
		t.Fatalf("customer not created: %v", err)
	}
	if customer.Name != "Nguyễn Văn A" {
		t.Errorf("name = %q", customer.Name)
	}

	bills, err := store.ListBillsByCustomer(context.Background(), "SAW567890")
	if err != nil {
		t.Fatalf("ListBillsByCustomer: %v", err)
	}
	if len(bills) != 1 {
		t.Fatalf("bills = %d, want 1", len(bills))
	}
	bill := bills[0]
	if bill.Status != domain.BillStatusPending {
		t.Errorf("status = %q, want pending", bill.Status)
	}
	if bill.Amount != 150000 {
		t.Errorf("amount = %d", bill.Amount)
	}
	if bill.BillType != domain.BillTypeWater {
		t.Errorf("billType = %q", bill.BillType)
	}
	if want := time.Now().Format("2006-01"); bill.Period != want {
		t.Errorf("period = %q, want current month %q", bill.Period, want)
	}
	if bill.DueDate != "2025-09-20" {
		t.Errorf("dueDate = %q", bill.DueDate)
	}
}

func TestTxtImportReusesExistingCustomer(t *testing.T) {
	store := memstore.New()
	if _, err := store.CreateCustomer(context.Background(), &domain.Customer{
		CustomerID: "EVN001234",
		Name:       "Nguyễn Văn A",
	}); err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	importer := service.NewTxtImporter(store, zap.NewNop())

	data := importFile(
		"customerId|customerName|customerAddress|billType|provider|amount|dueDate",
		"EVN001234|Tên Khác|Địa chỉ khác|electricity|EVN TP.HCM|200000|2025-09-15",
	)
	outcome, err := importer.ImportFile(context.Background(), data)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if outcome.Processed != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}

	customer, err := store.GetCustomer(context.Background(), "EVN001234")
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if customer.Name != "Nguyễn Văn A" {
		t.Errorf("existing customer must not be overwritten, name = %q", customer.Name)
	}
	bills, err := store.ListBillsByCustomer(context.Background(), "EVN001234")
	if err != nil {
		t.Fatalf("ListBillsByCustomer: %v", err)
	}
	if len(bills) != 1 {
		t.Errorf("bills = %d, want 1", len(bills))
	}
}

func TestTxtImportRejectsBadLines(t *testing.T) {
	store := memstore.New()
	importer := service.NewTxtImporter(store, zap.NewNop())

	data := importFile(
		"customerId|customerName|customerAddress|billType|provider|amount|dueDate",
		"A|B",
		"EVN001234||Địa chỉ|electricity|EVN|100000|2025-09-15",
		"EVN001234|Tên|Địa chỉ|gas|EVN|100000|2025-09-15",
		"EVN001234|Tên|Địa chỉ|electricity|EVN|abc|2025-09-15",
		"EVN001234|Tên|Địa chỉ|electricity|EVN|-5000|2025-09-15",
		"EVN001234|Tên|Địa chỉ|electricity|EVN|100000|15/09/2025",
	)
	outcome, err := importer.ImportFile(context.Background(), data)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if outcome.Processed != 0 {
		t.Errorf("processed = %d, want 0", outcome.Processed)
	}
	if len(outcome.Errors) != 6 {
		t.Fatalf("errors = %v", outcome.Errors)
	}

	wants := []string{
		"Dòng 2: Định dạng dòng không đúng",
		"Dòng 3: Thiếu thông tin bắt buộc",
		"Dòng 4: Loại hóa đơn không hợp lệ: gas",
		"Dòng 5: Số tiền không hợp lệ: abc",
		"Dòng 6: Số tiền không hợp lệ: -5000",
		"Dòng 7: Ngày hết hạn không hợp lệ: 15/09/2025",
	}
	for i, want := range wants {
		if !strings.Contains(outcome.Errors[i], want) {
			t.Errorf("error %d = %q, want %q", i, outcome.Errors[i], want)
		}
	}
}

func TestTxtImportBadLineDoesNotAbortRest(t *testing.T) {
	store := memstore.New()
	importer := service.NewTxtImporter(store, zap.NewNop())

	data := importFile(
		"customerId|customerName|customerAddress|billType|provider|amount|dueDate",
		"EVN001234|Tên|Địa chỉ|gas|EVN|100000|2025-09-15",
		"SAW567890|Trần Thị B|456 Lê Lợi, Q2|water|SAWACO|150000|2025-09-20",
	)
	outcome, err := importer.ImportFile(context.Background(), data)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if outcome.Processed != 1 || len(outcome.Errors) != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if _, err := store.GetCustomer(context.Background(), "SAW567890"); err != nil {
		t.Errorf("line after a rejected one must still import: %v", err)
	}
}

func TestTxtImportTemplateRoundTrip(t *testing.T) {
	store := memstore.New()
	importer := service.NewTxtImporter(store, zap.NewNop())

	outcome, err := importer.ImportFile(context.Background(), importer.Template())
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if outcome.Processed != 3 || len(outcome.Errors) != 0 {
		t.Fatalf("template must import cleanly, outcome = %+v", outcome)
	}
}
