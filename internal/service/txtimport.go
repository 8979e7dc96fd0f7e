package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// importBillTypes is the set of bill types a TXT import line may declare.
var importBillTypes = map[string]bool{
	domain.BillTypeElectricity: true,
	domain.BillTypeWater:       true,
	domain.BillTypeTelecom:     true,
	domain.BillTypeTelevision:  true,
	domain.BillTypePhonecard:   true,
}

// TxtImporter loads bills in bulk from a pipe-delimited text file. Each
// accepted line creates a pending bill, registering the customer first
// when it has not been seen before. Lines are independent: a rejected
// line is reported and the rest of the file still imports.
type TxtImporter struct {
	store  port.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewTxtImporter creates the importer over the given store.
func NewTxtImporter(store port.Store, logger *zap.Logger) *TxtImporter {
	return &TxtImporter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// ImportFile parses the uploaded text file and persists its bills. The
// first data line is the header and is skipped; blank lines and lines
// starting with "#" are ignored. Error messages are localized and carry
// the one-based line number of the offending line.
func (t *TxtImporter) ImportFile(ctx context.Context, data []byte) (*domain.BillImportOutcome, error) {
	ctx, span := tracer.Start(ctx, "TxtImporter.ImportFile")
	defer span.End()

	outcome := &domain.BillImportOutcome{Errors: []string{}}
	headerSeen := false

	for i, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}
		if err := t.importLine(ctx, line); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("Dòng %d: %v", i+1, err))
			continue
		}
		outcome.Processed++
	}

	span.SetAttributes(
		attribute.Int("import.processed", outcome.Processed),
		attribute.Int("import.rejected", len(outcome.Errors)),
	)
	t.logger.Info("bill import finished",
		zap.Int("processed", outcome.Processed),
		zap.Int("rejected", len(outcome.Errors)),
	)
	return outcome, nil
}

// importLine validates one data line and writes its customer and bill.
// Format: customerId|customerName|customerAddress|billType|provider|amount|dueDate.
func (t *TxtImporter) importLine(ctx context.Context, line string) error {
	parts := strings.Split(line, "|")
	if len(parts) < 7 {
		return fmt.Errorf("Định dạng dòng không đúng, cần 7 trường, có %d trường", len(parts))
	}
	for i := range parts[:7] {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return fmt.Errorf("Thiếu thông tin bắt buộc")
		}
	}
	customerID, name, address, billType, provider, rawAmount, rawDueDate := parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], parts[6]

	if !importBillTypes[billType] {
		return fmt.Errorf("Loại hóa đơn không hợp lệ: %s", billType)
	}
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil || amount <= 0 {
		return fmt.Errorf("Số tiền không hợp lệ: %s", rawAmount)
	}
	if _, err := time.Parse("2006-01-02", rawDueDate); err != nil {
		return fmt.Errorf("Ngày hết hạn không hợp lệ: %s", rawDueDate)
	}

	if _, err := t.store.GetCustomer(ctx, customerID); err != nil {
		if _, ok := err.(*domain.ErrNotFound); !ok {
			return err
		}
		if _, err := t.store.CreateCustomer(ctx, &domain.Customer{
			CustomerID: customerID,
			Name:       name,
			Address:    address,
		}); err != nil {
			return err
		}
	}

	_, err = t.store.CreateBill(ctx, &domain.Bill{
		CustomerID: customerID,
		BillType:   billType,
		Provider:   provider,
		Period:     t.now().Format("2006-01"),
		Amount:     amount,
		Status:     domain.BillStatusPending,
		DueDate:    rawDueDate,
	})
	return err
}

// Template returns the sample input file with inline usage notes.
func (t *TxtImporter) Template() []byte {
	lines := []string{
		"customerId|customerName|customerAddress|billType|provider|amount|dueDate",
		"EVN001234|Nguyễn Văn A|123 Nguyễn Huệ, Q1, TP.HCM|electricity|EVN TP.HCM|500000|2025-09-15",
		"SAW567890|Trần Thị B|456 Lê Lợi, Q2, TP.HCM|water|SAWACO|150000|2025-09-20",
		"VNPT12345|Lê Văn C|789 Trần Hưng Đạo, Q3, TP.HCM|telecom|VNPT|300000|2025-09-25",
		"",
		"# Hướng dẫn sử dụng:",
		"# - Mỗi dòng là một hóa đơn",
		"# - Các trường cách nhau bằng dấu |",
		"# - Định dạng ngày: YYYY-MM-DD",
		"# - Loại hóa đơn: electricity, water, telecom, television, phonecard",
		"# - Số tiền: số nguyên (đơn vị VND)",
		"# - Không để trống các trường bắt buộc",
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
