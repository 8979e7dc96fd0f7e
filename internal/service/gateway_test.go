package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/observability"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/service"

	"go.uber.org/zap"
)

type processorStub struct {
	result *domain.PaymentResult
	err    error
	calls  int
}

func (s *processorStub) Authorize(_ context.Context, _ domain.PaymentInstrument, _ int64, transactionID, _ string) (*domain.PaymentResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	res := *s.result
	res.TransactionID = transactionID
	return &res, nil
}

func (s *processorStub) QueryTransaction(_ context.Context, transactionID string) (*domain.PaymentResult, error) {
	return &domain.PaymentResult{TransactionID: transactionID, Status: domain.PaymentApproved}, nil
}

var validCard = domain.PaymentInstrument{
	CardNumber:  "4111111111111111",
	Holder:      "NGUYEN VAN A",
	ExpiryMonth: "12",
	ExpiryYear:  "30",
	CVV:         "123",
}

func newGateway(p *processorStub, production bool) *service.PaymentGateway {
	return service.NewPaymentGateway(p, production, 10_000_000, observability.NewMetrics(), zap.NewNop())
}

func TestAuthorizeRejectsNonPositiveAmount(t *testing.T) {
	p := &processorStub{}
	g := newGateway(p, false)

	for _, amount := range []int64{0, -1000} {
		_, err := g.Authorize(context.Background(), validCard, amount, "PD29007350490")
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) {
			t.Errorf("amount %d: expected ErrValidation, got %v", amount, err)
		}
	}
	if p.calls != 0 {
		t.Error("invalid amounts must not reach the processor")
	}
}

func TestAuthorizeRejectsLuhnFailure(t *testing.T) {
	p := &processorStub{}
	g := newGateway(p, false)

	card := validCard
	card.CardNumber = "4000000000000002"
	_, err := g.Authorize(context.Background(), card, 150_000, "PD29007350490")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if p.calls != 0 {
		t.Error("checksum failures must not reach the processor")
	}
}

func TestAuthorizeRejectsExpiredCard(t *testing.T) {
	p := &processorStub{}
	g := newGateway(p, false)

	card := validCard
	card.ExpiryYear = "20"
	_, err := g.Authorize(context.Background(), card, 150_000, "PD29007350490")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if p.calls != 0 {
		t.Error("expired cards must not reach the processor")
	}
}

func TestAuthorizeStepUpAboveThreshold(t *testing.T) {
	p := &processorStub{}
	g := newGateway(p, false)

	result, err := g.Authorize(context.Background(), validCard, 15_000_000, "PD29007350490")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if result.Status != domain.PaymentPending {
		t.Errorf("status = %q, want PENDING", result.Status)
	}
	if result.ResponseCode != "3DS" {
		t.Errorf("responseCode = %q", result.ResponseCode)
	}
	if result.ChallengeToken == "" {
		t.Error("step-up result must carry a challenge token")
	}
	if p.calls != 0 {
		t.Error("step-up must defer submission until the challenge completes")
	}
}

func TestAuthorizeApproved(t *testing.T) {
	p := &processorStub{result: &domain.PaymentResult{
		Status:       domain.PaymentApproved,
		ResponseCode: "00",
		Message:      "Transaction approved",
	}}
	g := newGateway(p, false)

	result, err := g.Authorize(context.Background(), validCard, 150_000, "PD29007350490")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if result.Status != domain.PaymentApproved {
		t.Errorf("status = %q", result.Status)
	}
	if !strings.HasPrefix(result.TransactionID, "TXN_") {
		t.Errorf("transactionID = %q", result.TransactionID)
	}
	if p.calls != 1 {
		t.Errorf("processor calls = %d, want 1", p.calls)
	}
}

func TestAuthorizeSandboxFallback(t *testing.T) {
	p := &processorStub{err: &domain.ErrUpstreamTimeout{Operation: "push funds"}}
	g := newGateway(p, false)

	result, err := g.Authorize(context.Background(), validCard, 150_000, "PD29007350490")
	if err != nil {
		t.Fatalf("expected sandbox approval, got %v", err)
	}
	if result.Status != domain.PaymentApproved || result.ResponseCode != "00" {
		t.Errorf("result = %+v", result)
	}
	if result.AuthorizationCode == "" {
		t.Error("sandbox approval must carry an authorization code")
	}
}

func TestAuthorizeNoSandboxInProduction(t *testing.T) {
	p := &processorStub{err: &domain.ErrUpstreamTimeout{Operation: "push funds"}}
	g := newGateway(p, true)

	_, err := g.Authorize(context.Background(), validCard, 150_000, "PD29007350490")
	var timeout *domain.ErrUpstreamTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("production must surface the upstream error, got %v", err)
	}
}

func TestAuthorizeNoSandboxForOtherCards(t *testing.T) {
	p := &processorStub{err: &domain.ErrUpstreamTimeout{Operation: "push funds"}}
	g := newGateway(p, false)

	card := validCard
	card.CardNumber = "4242424242424242"
	if _, err := g.Authorize(context.Background(), card, 150_000, "PD29007350490"); err == nil {
		t.Error("sandbox fallback is reserved for the designated test card range")
	}
}

func TestAuthorizeNoSandboxOnAuthRejection(t *testing.T) {
	p := &processorStub{err: &domain.ErrAuthentication{Service: "visa"}}
	g := newGateway(p, false)

	_, err := g.Authorize(context.Background(), validCard, 150_000, "PD29007350490")
	var auth *domain.ErrAuthentication
	if !errors.As(err, &auth) {
		t.Fatalf("credential rejections must never be masked, got %v", err)
	}
}

func TestLuhn(t *testing.T) {
	valid := []string{"4111111111111111", "5500005555555559", "4111 1111 1111 1111", "378282246310005"}
	for _, n := range valid {
		if !service.Luhn(n) {
			t.Errorf("Luhn(%q) = false, want true", n)
		}
	}
	invalid := []string{"", "4111111111111112", "1234", "4111-1111-1111-1111", "abcdefghijklmnop"}
	for _, n := range invalid {
		if service.Luhn(n) {
			t.Errorf("Luhn(%q) = true, want false", n)
		}
	}
}

func TestCardBrand(t *testing.T) {
	cases := map[string]string{
		"4111111111111111": domain.BrandVisa,
		"5500005555555559": domain.BrandMastercard,
		"378282246310005":  domain.BrandAmex,
		"6011000990139424": domain.BrandDiscover,
		"9999999999999999": domain.BrandUnknown,
	}
	for number, want := range cases {
		if got := service.CardBrand(number); got != want {
			t.Errorf("CardBrand(%q) = %q, want %q", number, got, want)
		}
	}
}
