package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/observability"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// vnLocation is used for the localized timestamps on report rows.
var vnLocation = time.FixedZone("ICT", 7*60*60)

type billResolving interface {
	Resolve(ctx context.Context, query domain.BillQuery) (*domain.BillInfo, error)
}

type paymentAuthorizing interface {
	Authorize(ctx context.Context, card domain.PaymentInstrument, amount int64, orderRef string) (*domain.PaymentResult, error)
}

// BatchProcessor drives bulk bill payment from a tabular input file.
// Rows are isolated: one row's failure never aborts the batch or leaks
// into another row's outcome.
type BatchProcessor struct {
	resolver    billResolving
	gateway     paymentAuthorizing
	store       port.Store
	codec       port.RowCodec
	parallelism int
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewBatchProcessor creates the processor with all dependencies injected.
// parallelism below 2 means strictly sequential row processing.
func NewBatchProcessor(
	resolver billResolving,
	gateway paymentAuthorizing,
	store port.Store,
	codec port.RowCodec,
	parallelism int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *BatchProcessor {
	if parallelism < 1 {
		parallelism = 1
	}
	return &BatchProcessor{
		resolver:    resolver,
		gateway:     gateway,
		store:       store,
		codec:       codec,
		parallelism: parallelism,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// ProcessFile parses the uploaded spreadsheet and runs the batch. A parse
// failure is the only hard error; everything past parsing is captured as
// per-row outcomes.
func (p *BatchProcessor) ProcessFile(ctx context.Context, data []byte, card domain.PaymentInstrument) (*domain.BatchOutcome, error) {
	rows, err := p.codec.ParseRows(data)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "file", Message: fmt.Sprintf("cannot parse input: %v", err)}
	}
	return p.ProcessRows(ctx, rows, card), nil
}

// ProcessRows executes every row and aggregates the summary in a single
// pass over the accumulated results. Cancellation stops row iteration
// but still returns the outcomes of rows processed so far.
func (p *BatchProcessor) ProcessRows(ctx context.Context, rows []domain.AutoPaymentRow, card domain.PaymentInstrument) *domain.BatchOutcome {
	ctx, span := tracer.Start(ctx, "BatchProcessor.ProcessRows")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.rows", len(rows)))

	start := p.now()
	defer func() {
		p.metrics.RecordRequestDuration("batch", time.Since(start))
	}()

	slots := make([]*domain.AutoPaymentResult, len(rows))

	if p.parallelism > 1 {
		g := &errgroup.Group{}
		g.SetLimit(p.parallelism)
		for i, row := range rows {
			if ctx.Err() != nil {
				break
			}
			i, row := i, row
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				res := p.processRow(ctx, row, i+1, card)
				slots[i] = &res
				return nil
			})
		}
		g.Wait()
	} else {
		for i, row := range rows {
			if ctx.Err() != nil {
				break
			}
			res := p.processRow(ctx, row, i+1, card)
			slots[i] = &res
		}
	}

	results := make([]domain.AutoPaymentResult, 0, len(rows))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}

	outcome := &domain.BatchOutcome{
		RunID:   uuid.NewString(),
		Results: results,
		Summary: summarize(results),
	}

	for _, r := range results {
		p.metrics.IncrBatchRow(r.Status)
	}
	p.logger.Info("batch run finished",
		zap.String("run_id", outcome.RunID),
		zap.Int("total", outcome.Summary.Total),
		zap.Int("success", outcome.Summary.Success),
		zap.Int("failed", outcome.Summary.Failed),
		zap.Int("skipped", outcome.Summary.Skipped),
		zap.Int64("total_amount", outcome.Summary.TotalAmount),
	)
	return outcome
}

// GenerateReport serializes the batch outcome back into a downloadable
// spreadsheet.
func (p *BatchProcessor) GenerateReport(outcome *domain.BatchOutcome) ([]byte, error) {
	return p.codec.SerializeResults(outcome.Results, outcome.Summary)
}

// Template returns the empty input template for batch uploads.
func (p *BatchProcessor) Template() ([]byte, error) {
	return p.codec.Template()
}

// processRow runs the per-row state machine. Every exit path returns a
// result; errors never escape to the caller.
func (p *BatchProcessor) processRow(ctx context.Context, row domain.AutoPaymentRow, rowNumber int, card domain.PaymentInstrument) domain.AutoPaymentResult {
	timestamp := p.now().In(vnLocation).Format("02/01/2006 15:04:05")
	label := row.BillNumber
	if label == "" {
		label = row.CustomerID
	}
	if label == "" {
		label = fmt.Sprintf("Dòng %d", rowNumber)
	}

	if row.BillNumber == "" && row.CustomerID == "" {
		return domain.AutoPaymentResult{
			BillNumber: label,
			Status:     domain.RowSkipped,
			Message:    fmt.Sprintf("Dòng %d: thiếu số hóa đơn hoặc mã khách hàng", rowNumber),
			Timestamp:  timestamp,
		}
	}

	bill, customer, skipMsg, err := p.resolveRow(ctx, row)
	if err != nil {
		p.logger.Warn("row resolution failed",
			zap.Int("row", rowNumber),
			zap.String("identifier", label),
			zap.Error(err),
		)
		return domain.AutoPaymentResult{
			BillNumber: label,
			Status:     domain.RowFailed,
			Message:    fmt.Sprintf("Lỗi xử lý: %v", err),
			Timestamp:  timestamp,
		}
	}
	if skipMsg != "" {
		res := domain.AutoPaymentResult{
			BillNumber: label,
			Status:     domain.RowSkipped,
			Message:    skipMsg,
			Timestamp:  timestamp,
		}
		if bill != nil {
			res.Amount = bill.Amount
		}
		return res
	}

	amount := bill.Amount
	if row.Amount != "" {
		parsed, err := strconv.ParseInt(row.Amount, 10, 64)
		if err != nil || parsed <= 0 {
			return domain.AutoPaymentResult{
				BillNumber: label,
				Status:     domain.RowSkipped,
				Message:    fmt.Sprintf("Số tiền không hợp lệ: %s", row.Amount),
				Timestamp:  timestamp,
			}
		}
		amount = parsed
	}

	method := row.PaymentMethod
	if method == "" {
		method = "visa"
	}

	result, err := p.gateway.Authorize(ctx, card, amount, bill.BillNumber)
	if err != nil {
		return domain.AutoPaymentResult{
			BillNumber: label,
			Status:     domain.RowFailed,
			Message:    fmt.Sprintf("Lỗi thanh toán: %v", err),
			Amount:     amount,
			Timestamp:  timestamp,
		}
	}
	if result.Status != domain.PaymentApproved {
		return domain.AutoPaymentResult{
			BillNumber:    label,
			Status:        domain.RowFailed,
			Message:       fmt.Sprintf("Thanh toán bị từ chối: %s", result.Message),
			Amount:        amount,
			TransactionID: result.TransactionID,
			Timestamp:     timestamp,
		}
	}

	p.recordPayment(ctx, bill, amount, method, result.TransactionID)

	return domain.AutoPaymentResult{
		BillNumber:    label,
		Status:        domain.RowSuccess,
		Message:       fmt.Sprintf("Thanh toán thành công cho %s", customer.Name),
		Amount:        amount,
		TransactionID: result.TransactionID,
		Timestamp:     timestamp,
	}
}

// resolveRow locates (or materializes) the bill and customer for a row.
// A non-empty skip message means the row ends as skipped; a returned
// error means it ends as failed.
func (p *BatchProcessor) resolveRow(ctx context.Context, row domain.AutoPaymentRow) (*domain.Bill, *domain.Customer, string, error) {
	if row.BillNumber != "" {
		if err := ValidateBillNumber(row.BillNumber); err != nil {
			return nil, nil, fmt.Sprintf("Số hóa đơn không đúng định dạng: %s", row.BillNumber), nil
		}

		info, err := p.resolver.Resolve(ctx, domain.BillQuery{BillNumber: row.BillNumber})
		if err != nil {
			switch err.(type) {
			case *domain.ErrNotFound, *domain.ErrValidation:
				return nil, nil, fmt.Sprintf("Không tìm thấy hóa đơn %s: %v", row.BillNumber, err), nil
			}
			return nil, nil, "", err
		}

		customer, err := p.ensureCustomer(ctx, row.BillNumber, info)
		if err != nil {
			return nil, nil, "", err
		}
		bill, err := p.ensureBill(ctx, row.BillNumber, info)
		if err != nil {
			return nil, nil, "", err
		}
		if bill.Status == domain.BillStatusPaid {
			return bill, customer, "Hóa đơn đã được thanh toán", nil
		}
		return bill, customer, "", nil
	}

	customer, err := p.store.GetCustomer(ctx, row.CustomerID)
	if err != nil {
		if _, ok := err.(*domain.ErrNotFound); ok {
			return nil, nil, fmt.Sprintf("Không tìm thấy khách hàng: %s", row.CustomerID), nil
		}
		return nil, nil, "", err
	}

	bills, err := p.store.ListBillsByCustomer(ctx, row.CustomerID)
	if err != nil {
		return nil, nil, "", err
	}
	for i := range bills {
		if bills[i].Status == domain.BillStatusPending {
			return &bills[i], customer, "", nil
		}
	}
	return nil, customer, fmt.Sprintf("Không có hóa đơn chờ thanh toán cho khách hàng: %s", row.CustomerID), nil
}

// ensureCustomer returns the stored customer for the identifier, creating
// one from resolved bill data when absent.
func (p *BatchProcessor) ensureCustomer(ctx context.Context, id string, info *domain.BillInfo) (*domain.Customer, error) {
	customer, err := p.store.GetCustomer(ctx, id)
	if err == nil {
		return customer, nil
	}
	if _, ok := err.(*domain.ErrNotFound); !ok {
		return nil, err
	}
	return p.store.CreateCustomer(ctx, &domain.Customer{
		CustomerID: id,
		Name:       info.CustomerName,
		Address:    info.Address,
		Phone:      info.Phone,
		Email:      info.Email,
	})
}

// ensureBill returns the stored bill for the identifier, creating one
// from resolved bill data when absent.
func (p *BatchProcessor) ensureBill(ctx context.Context, id string, info *domain.BillInfo) (*domain.Bill, error) {
	bill, err := p.store.GetBillByNumber(ctx, info.BillNumber)
	if err == nil {
		return bill, nil
	}
	if _, ok := err.(*domain.ErrNotFound); !ok {
		return nil, err
	}
	return p.store.CreateBill(ctx, &domain.Bill{
		CustomerID:  id,
		BillType:    info.BillType,
		Provider:    info.Provider,
		Period:      info.Period,
		OldIndex:    info.OldIndex,
		NewIndex:    info.NewIndex,
		Consumption: info.Consumption,
		Amount:      info.Amount,
		Status:      info.Status,
		BillNumber:  info.BillNumber,
		DueDate:     info.DueDate,
	})
}

// recordPayment persists the completed payment and flips the bill to
// paid. Store errors here are logged, not surfaced: the charge already
// went through and the row outcome must reflect that.
func (p *BatchProcessor) recordPayment(ctx context.Context, bill *domain.Bill, amount int64, method, transactionID string) {
	if _, err := p.store.CreatePayment(ctx, &domain.Payment{
		BillID:        bill.ID,
		CustomerID:    bill.CustomerID,
		Amount:        amount,
		PaymentMethod: method,
		TransactionID: transactionID,
		Status:        "completed",
	}); err != nil {
		p.logger.Error("payment record write failed",
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
	}
	if err := p.store.UpdateBillStatus(ctx, bill.ID, domain.BillStatusPaid); err != nil {
		p.logger.Error("bill status update failed",
			zap.String("bill_id", bill.ID),
			zap.Error(err),
		)
	}
}

// summarize computes the run summary in one pass over the result list.
func summarize(results []domain.AutoPaymentResult) domain.BatchSummary {
	s := domain.BatchSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case domain.RowSuccess:
			s.Success++
			s.TotalAmount += r.Amount
		case domain.RowFailed:
			s.Failed++
		case domain.RowSkipped:
			s.Skipped++
		}
	}
	return s
}
