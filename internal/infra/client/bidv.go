package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/resilience"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/signer"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// BIDVClient queries the BIDV open-banking bill aggregator, the second
// tier of the lookup cascade.
type BIDVClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	signer     *signer.HMACSigner
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewBIDVClient creates a new BIDVClient.
func NewBIDVClient(httpClient *http.Client, baseURL, apiKey, apiSecret string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *BIDVClient {
	return &BIDVClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		signer:     signer.New(apiSecret),
		cb:         cb,
		cfg:        cfg,
	}
}

type bidvResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   string       `json:"error"`
	Data    *billPayload `json:"data"`
}

// QueryBill looks up a bill through the aggregator. Signature and
// timestamp headers are rebuilt per attempt.
func (c *BIDVClient) QueryBill(ctx context.Context, query domain.BillQuery) (*domain.BillInfo, error) {
	ctx, span := tracer.Start(ctx, "BIDVClient.QueryBill")
	defer span.End()
	span.SetAttributes(attribute.String("bill.identifier", query.Identifier()))

	payload, err := json.Marshal(map[string]string{
		"customerId": query.CustomerID,
		"billNumber": query.BillNumber,
		"billType":   query.BillType,
		"provider":   query.Provider,
	})
	if err != nil {
		return nil, err
	}

	var out bidvResponse

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
			sig := c.signer.Sign(map[string]string{
				"apiKey":    c.apiKey,
				"body":      string(payload),
				"timestamp": timestamp,
			})

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/bills/lookup", bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-API-Key", c.apiKey)
			req.Header.Set("X-Timestamp", timestamp)
			req.Header.Set("X-Signature", sig)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return resilience.Permanent(&domain.ErrNotFound{Resource: "bill", ID: query.Identifier()})
			case resp.StatusCode == http.StatusUnauthorized:
				return resilience.Permanent(&domain.ErrAuthentication{Service: "bidv"})
			case resp.StatusCode == http.StatusBadRequest:
				return resilience.Permanent(&domain.ErrValidation{Field: "billNumber", Message: "rejected by aggregator"})
			case resp.StatusCode != http.StatusOK:
				return fmt.Errorf("bidv returned status %d", resp.StatusCode)
			}

			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return err
			}
			if !out.Success || out.Data == nil {
				return resilience.Permanent(&domain.ErrNotFound{Resource: "bill", ID: query.Identifier()})
			}
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return out.Data.toBillInfo(), nil
	})

	if err != nil {
		return nil, wrapUpstream("bidv", err)
	}
	return result.(*domain.BillInfo), nil
}
