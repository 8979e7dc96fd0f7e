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

const fundsTransferPath = "/visadirect/fundstransfer/v1/pushfundstransactions"

// VisaClient submits card authorizations to the Visa Direct sandbox or
// production endpoint.
type VisaClient struct {
	httpClient *http.Client
	baseURL    string
	userID     string
	merchantID string
	signer     *signer.HMACSigner
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewVisaClient creates a new VisaClient.
func NewVisaClient(httpClient *http.Client, baseURL, userID, apiSecret, merchantID string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *VisaClient {
	return &VisaClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		userID:     userID,
		merchantID: merchantID,
		signer:     signer.New(apiSecret),
		cb:         cb,
		cfg:        cfg,
	}
}

type visaResponse struct {
	TransactionIdentifier string `json:"transactionIdentifier"`
	ResponseCode          string `json:"responseCode"`
	ResponseMessage       string `json:"responseMessage"`
	AuthorizationCode     string `json:"authorizationCode"`
}

// Authorize pushes a funds transfer for the given card and amount.
// transactionID is supplied by the caller and reused verbatim on retries
// so the receiving side can deduplicate.
func (c *VisaClient) Authorize(ctx context.Context, card domain.PaymentInstrument, amount int64, transactionID, orderRef string) (*domain.PaymentResult, error) {
	ctx, span := tracer.Start(ctx, "VisaClient.Authorize")
	defer span.End()
	span.SetAttributes(
		attribute.String("transaction.id", transactionID),
		attribute.Int64("amount", amount),
	)

	start := time.Now()

	body := map[string]any{
		"amount":                        strconv.FormatInt(amount, 10),
		"transactionCurrencyCode":       "VND",
		"recipientName":                 card.Holder,
		"recipientPrimaryAccountNumber": card.CardNumber,
		"senderReference":               orderRef,
		"transactionIdentifier":         transactionID,
		"merchantCategoryCode":          "6012",
		"cardAcceptor": map[string]string{
			"idCode": c.merchantID,
			"name":   "BILLPAY VIETNAM",
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var out visaResponse

	_, err = c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			timestamp := strconv.FormatInt(time.Now().Unix(), 10)
			sig := c.signer.Sign(map[string]string{
				"amount":        strconv.FormatInt(amount, 10),
				"currency":      "VND",
				"merchantId":    c.merchantID,
				"timestamp":     timestamp,
				"transactionId": transactionID,
			})

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+fundsTransferPath, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
			req.SetBasicAuth(c.userID, sig)
			req.Header.Set("X-Merchant-Id", c.merchantID)
			req.Header.Set("X-Timestamp", timestamp)
			req.Header.Set("X-Signature", sig)
			req.Header.Set("X-Client-Transaction-Id", transactionID)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusUnauthorized:
				return resilience.Permanent(&domain.ErrAuthentication{Service: "visa"})
			case resp.StatusCode == http.StatusTooManyRequests:
				return fmt.Errorf("visa rate limited")
			case resp.StatusCode != http.StatusOK:
				return fmt.Errorf("visa returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &out, nil
	})

	if err != nil {
		return nil, wrapUpstream("visa", err)
	}

	result := &domain.PaymentResult{
		TransactionID:     transactionID,
		ResponseCode:      out.ResponseCode,
		Message:           out.ResponseMessage,
		AuthorizationCode: out.AuthorizationCode,
		ProcessingTimeMs:  time.Since(start).Milliseconds(),
	}
	if out.ResponseCode == "00" {
		result.Status = domain.PaymentApproved
		if result.Message == "" {
			result.Message = "Transaction approved"
		}
	} else {
		result.Status = domain.PaymentDeclined
		if result.ResponseCode == "" {
			result.ResponseCode = "05"
		}
		if result.Message == "" {
			result.Message = "Transaction declined"
		}
	}
	return result, nil
}

// QueryTransaction fetches the current status of a previously submitted
// transaction.
func (c *VisaClient) QueryTransaction(ctx context.Context, transactionID string) (*domain.PaymentResult, error) {
	ctx, span := tracer.Start(ctx, "VisaClient.QueryTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	start := time.Now()
	var out visaResponse

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			timestamp := strconv.FormatInt(time.Now().Unix(), 10)
			sig := c.signer.Sign(map[string]string{
				"merchantId":    c.merchantID,
				"timestamp":     timestamp,
				"transactionId": transactionID,
			})

			url := fmt.Sprintf("%s%s/%s", c.baseURL, fundsTransferPath, transactionID)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			req.SetBasicAuth(c.userID, sig)
			req.Header.Set("X-Merchant-Id", c.merchantID)
			req.Header.Set("X-Timestamp", timestamp)
			req.Header.Set("X-Signature", sig)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return resilience.Permanent(&domain.ErrNotFound{Resource: "transaction", ID: transactionID})
			case resp.StatusCode == http.StatusUnauthorized:
				return resilience.Permanent(&domain.ErrAuthentication{Service: "visa"})
			case resp.StatusCode != http.StatusOK:
				return fmt.Errorf("visa returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &out, nil
	})

	if err != nil {
		return nil, wrapUpstream("visa", err)
	}

	status := domain.PaymentDeclined
	if out.ResponseCode == "00" {
		status = domain.PaymentApproved
	}
	return &domain.PaymentResult{
		TransactionID:     transactionID,
		Status:            status,
		ResponseCode:      out.ResponseCode,
		Message:           out.ResponseMessage,
		AuthorizationCode: out.AuthorizationCode,
		ProcessingTimeMs:  time.Since(start).Milliseconds(),
	}, nil
}
