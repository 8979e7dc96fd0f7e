// Package excel reads batch input workbooks and writes result reports
// using excelize.
package excel

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	inputSheet       = "Auto Payment"
	resultSheet      = "Kết quả thanh toán"
	instructionSheet = "Hướng dẫn"
)

// Codec is the XLSX implementation of the batch row codec.
type Codec struct{}

// NewCodec creates the XLSX codec.
func NewCodec() *Codec {
	return &Codec{}
}

// ParseRows reads the first sheet of an uploaded workbook. The header
// row maps columns to fields by name, so column order is free.
func (c *Codec) ParseRows(data []byte) ([]domain.AutoPaymentRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[normalizeHeader(name)] = i
	}

	out := make([]domain.AutoPaymentRow, 0, len(rows)-1)
	for _, raw := range rows[1:] {
		row := domain.AutoPaymentRow{
			BillNumber:    cell(raw, cols, "billnumber"),
			CustomerID:    cell(raw, cols, "customerid"),
			Amount:        cell(raw, cols, "amount"),
			PaymentMethod: cell(raw, cols, "paymentmethod"),
		}
		if row.BillNumber == "" && row.CustomerID == "" && row.Amount == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// SerializeResults writes the per-row outcomes plus a summary block into
// a downloadable workbook with localized status labels.
func (c *Codec) SerializeResults(results []domain.AutoPaymentResult, summary domain.BatchSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultSheet); err != nil {
		return nil, err
	}

	header := []any{"Số hóa đơn", "Trạng thái", "Thông báo", "Số tiền", "Mã giao dịch", "Thời gian"}
	if err := f.SetSheetRow(resultSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range results {
		amount := ""
		if r.Amount > 0 {
			amount = strconv.FormatInt(r.Amount, 10)
		}
		row := []any{r.BillNumber, statusLabel(r.Status), r.Message, amount, r.TransactionID, r.Timestamp}
		if err := f.SetSheetRow(resultSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	base := len(results) + 3
	summaryRows := [][]any{
		{"Tổng số dòng", summary.Total},
		{"Thành công", summary.Success},
		{"Thất bại", summary.Failed},
		{"Bỏ qua", summary.Skipped},
		{"Tổng số tiền", summary.TotalAmount},
	}
	for i, row := range summaryRows {
		if err := f.SetSheetRow(resultSheet, fmt.Sprintf("A%d", base+i), &row); err != nil {
			return nil, err
		}
	}

	for i, width := range []float64{18, 12, 50, 15, 38, 20} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(resultSheet, col, col, width); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Template builds the empty input workbook with sample rows and a usage
// instruction sheet.
func (c *Codec) Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inputSheet); err != nil {
		return nil, err
	}

	rows := [][]any{
		{"billNumber", "customerId", "amount", "paymentMethod"},
		{"PD29007350490", "", "", "visa"},
		{"NC29007654321", "", "", "visa"},
		{"", "KH001234", "", "visa"},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(inputSheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(instructionSheet); err != nil {
		return nil, err
	}
	instructions := []string{
		"HƯỚNG DẪN SỬ DỤNG:",
		"",
		"1. Điền số hóa đơn (billNumber) HOẶC mã khách hàng (customerId)",
		"2. Nếu có cả hai, hệ thống sẽ ưu tiên số hóa đơn",
		"3. Bỏ trống amount nếu muốn thanh toán toàn bộ số tiền hóa đơn",
		"4. paymentMethod: visa (mặc định)",
		"",
		"Định dạng số hóa đơn:",
		"- Điện: PD + 11 số (VD: PD29007350490)",
		"- Nước: NC + 11 số (VD: NC29007654321)",
		"- Điện thoại: DT + 11 số",
		"- Truyền hình: TV + 11 số",
		"- Thẻ trả trước: TC + 11 số",
	}
	for i, line := range instructions {
		if err := f.SetCellValue(instructionSheet, fmt.Sprintf("A%d", i+1), line); err != nil {
			return nil, err
		}
	}

	for i, width := range []float64{20, 15, 15, 15} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(inputSheet, col, col, width); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func statusLabel(status string) string {
	switch status {
	case domain.RowSuccess:
		return "Thành công"
	case domain.RowFailed:
		return "Thất bại"
	default:
		return "Bỏ qua"
	}
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func cell(row []string, cols map[string]int, key string) string {
	idx, ok := cols[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
