package client

import (
	"strconv"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
)

// billPayload is the wire shape shared by the provider and bank bill
// endpoints. Meter readings arrive as strings from some upstreams, so
// they are parsed leniently and dropped when malformed.
type billPayload struct {
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
	Description  string `json:"description"`
	OldReading   string `json:"oldReading"`
	NewReading   string `json:"newReading"`
	Consumption  string `json:"consumption"`
	Taxes        int64  `json:"taxes"`
	Fees         int64  `json:"fees"`
}

func (p *billPayload) toBillInfo() *domain.BillInfo {
	info := &domain.BillInfo{
		CustomerID:   p.CustomerID,
		CustomerName: p.CustomerName,
		Address:      p.Address,
		Phone:        p.Phone,
		Email:        p.Email,
		BillType:     p.BillType,
		Provider:     p.Provider,
		Period:       p.Period,
		Amount:       p.Amount,
		DueDate:      p.DueDate,
		Status:       p.Status,
		BillNumber:   p.BillNumber,
		Description:  p.Description,
		Taxes:        p.Taxes,
		Fees:         p.Fees,
	}
	if info.Status == "" {
		info.Status = domain.BillStatusPending
	}
	info.OldIndex = parseReading(p.OldReading)
	info.NewIndex = parseReading(p.NewReading)
	info.Consumption = parseReading(p.Consumption)
	return info
}

func parseReading(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
