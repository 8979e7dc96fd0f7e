package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/observability"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/service"

	"go.uber.org/zap"
)

type providerStub struct {
	info  *domain.BillInfo
	err   error
	calls int
}

func (s *providerStub) FetchBill(_ context.Context, _ domain.ProviderConfig, _ domain.BillQuery) (*domain.BillInfo, error) {
	s.calls++
	return s.info, s.err
}

type bankStub struct {
	info  *domain.BillInfo
	err   error
	calls int
}

func (s *bankStub) QueryBill(_ context.Context, _ domain.BillQuery) (*domain.BillInfo, error) {
	s.calls++
	return s.info, s.err
}

func configuredProviders() map[string]domain.ProviderConfig {
	return map[string]domain.ProviderConfig{
		"electricity_evn-hcm": {
			BillType:          domain.BillTypeElectricity,
			Provider:          "evn-hcm",
			BaseURL:           "https://api.pchochiminh.vn/v1",
			APIKey:            "test-key",
			BillNumberPattern: `^PD\d{11}$`,
		},
	}
}

func newResolver(providers map[string]domain.ProviderConfig, p *providerStub, b *bankStub) *service.BillResolver {
	return service.NewBillResolver(providers, p, b, observability.NewMetrics(), zap.NewNop())
}

func TestResolveRequiresIdentifier(t *testing.T) {
	p := &providerStub{}
	b := &bankStub{}
	r := newResolver(configuredProviders(), p, b)

	_, err := r.Resolve(context.Background(), domain.BillQuery{})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if p.calls != 0 || b.calls != 0 {
		t.Error("validation must fail before any tier is called")
	}
}

func TestResolveRejectsMalformedBillNumber(t *testing.T) {
	p := &providerStub{}
	b := &bankStub{}
	r := newResolver(configuredProviders(), p, b)

	_, err := r.Resolve(context.Background(), domain.BillQuery{BillNumber: "PD123"})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if p.calls != 0 || b.calls != 0 {
		t.Error("malformed bill numbers must not reach the network")
	}
}

func TestResolveProviderTierWins(t *testing.T) {
	p := &providerStub{info: &domain.BillInfo{
		BillNumber: "PD29007350490",
		Amount:     802_271,
		Status:     domain.BillStatusPending,
	}}
	b := &bankStub{}
	r := newResolver(configuredProviders(), p, b)

	info, err := r.Resolve(context.Background(), domain.BillQuery{BillNumber: "PD29007350490"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if info.Amount != 802_271 {
		t.Errorf("amount = %d", info.Amount)
	}
	if b.calls != 0 {
		t.Error("bank tier must not be queried when the provider answers")
	}
}

func TestResolveFallsThroughToBank(t *testing.T) {
	p := &providerStub{err: &domain.ErrUpstreamTimeout{Operation: "fetch bill"}}
	b := &bankStub{info: &domain.BillInfo{
		BillNumber: "PD29007350490",
		Amount:     650_000,
		Status:     domain.BillStatusPending,
	}}
	r := newResolver(configuredProviders(), p, b)

	info, err := r.Resolve(context.Background(), domain.BillQuery{BillNumber: "PD29007350490"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}
	if info.Amount != 650_000 {
		t.Errorf("amount = %d, want the bank tier answer", info.Amount)
	}
}

func TestResolveSyntheticTierAlwaysAnswers(t *testing.T) {
	p := &providerStub{err: &domain.ErrUpstreamTimeout{Operation: "fetch bill"}}
	b := &bankStub{err: &domain.ErrUpstream{Service: "bidv"}}
	r := newResolver(configuredProviders(), p, b)

	first, err := r.Resolve(context.Background(), domain.BillQuery{BillNumber: "PD29007350490"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), domain.BillQuery{BillNumber: "PD29007350490"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.Amount != second.Amount || first.CustomerName != second.CustomerName {
		t.Error("synthetic tier must be deterministic across calls")
	}
	if first.BillType != domain.BillTypeElectricity {
		t.Errorf("billType = %q", first.BillType)
	}
}

func TestResolveSkipsUnconfiguredProvider(t *testing.T) {
	providers := configuredProviders()
	cfg := providers["electricity_evn-hcm"]
	cfg.APIKey = ""
	providers["electricity_evn-hcm"] = cfg

	p := &providerStub{}
	b := &bankStub{info: &domain.BillInfo{BillNumber: "PD29007350490", Amount: 100_000}}
	r := newResolver(providers, p, b)

	if _, err := r.Resolve(context.Background(), domain.BillQuery{BillNumber: "PD29007350490"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.calls != 0 {
		t.Error("provider without credentials must not be called")
	}
	if b.calls != 1 {
		t.Errorf("bank calls = %d, want 1", b.calls)
	}
}

func TestResolveRejectsProviderPatternMismatch(t *testing.T) {
	providers := configuredProviders()
	cfg := providers["electricity_evn-hcm"]
	cfg.BillNumberPattern = `^NC\d{11}$`
	providers["electricity_evn-hcm"] = cfg

	p := &providerStub{}
	b := &bankStub{}
	r := newResolver(providers, p, b)

	_, err := r.Resolve(context.Background(), domain.BillQuery{BillNumber: "PD29007350490"})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestResolveReconcilesConsumption(t *testing.T) {
	oldIdx, newIdx, consumption := 500, 300, 999
	b := &bankStub{info: &domain.BillInfo{
		BillNumber:  "PD29007350490",
		Amount:      200_000,
		OldIndex:    &oldIdx,
		NewIndex:    &newIdx,
		Consumption: &consumption,
	}}
	r := newResolver(nil, &providerStub{}, b)

	info, err := r.Resolve(context.Background(), domain.BillQuery{BillNumber: "PD29007350490"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if *info.OldIndex != 300 || *info.NewIndex != 500 {
		t.Errorf("indices = %d..%d, want reversed readings swapped", *info.OldIndex, *info.NewIndex)
	}
	if *info.Consumption != 200 {
		t.Errorf("consumption = %d, want recomputed 200", *info.Consumption)
	}
}
