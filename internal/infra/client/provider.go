package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/resilience"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/signer"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// ProviderClient issues signed bill lookups against the utility
// providers' own APIs.
type ProviderClient struct {
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulk       *resilience.Bulkhead
}

// NewProviderClient creates a new ProviderClient. Concurrent provider
// calls are capped by a bulkhead sized from cfg.MaxConcurrency.
func NewProviderClient(httpClient *http.Client, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ProviderClient {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &ProviderClient{
		httpClient: httpClient,
		cb:         cb,
		cfg:        cfg,
		bulk:       resilience.NewBulkhead(maxConcurrency),
	}
}

type providerResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *billPayload `json:"data"`
}

// FetchBill queries a single provider with retry, circuit breaker, and
// tracing. The timestamp and signature are rebuilt on every attempt;
// receivers reject stale timestamps, so a retry must never reuse them.
func (c *ProviderClient) FetchBill(ctx context.Context, pc domain.ProviderConfig, query domain.BillQuery) (*domain.BillInfo, error) {
	ctx, span := tracer.Start(ctx, "ProviderClient.FetchBill")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", pc.Provider),
		attribute.String("bill.type", pc.BillType),
	)

	body := map[string]string{
		"customerId": query.CustomerID,
		"billNumber": query.BillNumber,
		"billType":   query.BillType,
		"provider":   query.Provider,
		"period":     query.Period,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	sig := signer.New(pc.APIKey)

	if err := c.bulk.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulk.Release()

	var out providerResponse

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			timestamp := strconv.FormatInt(time.Now().Unix(), 10)
			signed := map[string]string{
				"customerId": query.CustomerID,
				"billNumber": query.BillNumber,
				"timestamp":  timestamp,
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.BaseURL+pc.QueryPath, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Timestamp", timestamp)
			req.Header.Set("X-Signature", sig.Sign(signed))
			switch pc.AuthType {
			case "bearer":
				req.Header.Set("Authorization", "Bearer "+pc.APIKey)
			default:
				req.Header.Set("X-API-Key", pc.APIKey)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return resilience.Permanent(&domain.ErrNotFound{Resource: "bill", ID: query.Identifier()})
			case resp.StatusCode == http.StatusUnauthorized:
				return resilience.Permanent(&domain.ErrAuthentication{Service: pc.Provider})
			case resp.StatusCode != http.StatusOK:
				return fmt.Errorf("provider %s returned status %d", pc.Provider, resp.StatusCode)
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
		return nil, wrapUpstream(pc.Provider, err)
	}
	return result.(*domain.BillInfo), nil
}

// wrapUpstream keeps typed errors intact and wraps everything else as an
// upstream failure for the given service.
func wrapUpstream(service string, err error) error {
	var notFound *domain.ErrNotFound
	var auth *domain.ErrAuthentication
	var validation *domain.ErrValidation
	if errors.As(err, &notFound) || errors.As(err, &auth) || errors.As(err, &validation) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrUpstreamTimeout{Operation: service}
	}
	return &domain.ErrUpstream{Service: service, Err: err}
}
