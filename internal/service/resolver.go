package service

import (
	"context"
	"regexp"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/observability"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// BillResolver executes the three-tier lookup cascade: direct provider
// API, then the bank aggregator, then the deterministic synthetic tier.
// The first tier to answer wins; tier failures fall through silently.
type BillResolver struct {
	providers      map[string]domain.ProviderConfig
	providerClient port.ProviderFetcher
	bankClient     port.BankFetcher
	metrics        *observability.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewBillResolver creates the resolver with all dependencies injected.
func NewBillResolver(
	providers map[string]domain.ProviderConfig,
	providerClient port.ProviderFetcher,
	bankClient port.BankFetcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *BillResolver {
	return &BillResolver{
		providers:      providers,
		providerClient: providerClient,
		bankClient:     bankClient,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// Resolve returns the authoritative bill for the query. Validation
// errors surface before any network attempt; past that point the
// cascade always produces a bill because the synthetic tier cannot fail.
func (r *BillResolver) Resolve(ctx context.Context, query domain.BillQuery) (*domain.BillInfo, error) {
	ctx, span := tracer.Start(ctx, "BillResolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("bill.identifier", query.Identifier()))

	start := time.Now()
	defer func() {
		r.metrics.RecordRequestDuration("resolve", time.Since(start))
	}()

	if query.BillNumber == "" && query.CustomerID == "" {
		return nil, &domain.ErrValidation{Field: "query", Message: "customerId or billNumber is required"}
	}

	if query.BillNumber != "" {
		if err := ValidateBillNumber(query.BillNumber); err != nil {
			return nil, err
		}
		query.BillType = BillTypeFromNumber(query.BillNumber)
		query.Provider = ProviderFromNumber(query.BillNumber)
	}

	// Tier 1: direct provider API.
	if cfg, ok := r.providers[query.BillType+"_"+query.Provider]; ok {
		if cfg.BillNumberPattern != "" && query.BillNumber != "" {
			matched, err := regexp.MatchString(cfg.BillNumberPattern, query.BillNumber)
			if err == nil && !matched {
				return nil, &domain.ErrValidation{Field: "billNumber", Message: "does not match provider format"}
			}
		}
		if cfg.Configured() {
			info, err := r.providerClient.FetchBill(ctx, cfg, query)
			if err == nil {
				r.metrics.IncrLookupTier("provider")
				return reconcileConsumption(info), nil
			}
			r.logger.Debug("provider tier failed, falling through",
				zap.String("provider", cfg.Provider),
				zap.Error(err),
			)
			r.metrics.IncrUpstreamError("provider")
		}
	}

	// Tier 2: bank aggregator.
	info, err := r.bankClient.QueryBill(ctx, query)
	if err == nil {
		r.metrics.IncrLookupTier("bank")
		return reconcileConsumption(info), nil
	}
	r.logger.Debug("bank tier failed, falling through",
		zap.String("identifier", query.Identifier()),
		zap.Error(err),
	)
	r.metrics.IncrUpstreamError("bidv")

	// Tier 3: deterministic synthesis. Never fails, never calls out.
	r.metrics.IncrLookupTier("synthetic")
	return reconcileConsumption(SynthesizeBill(query, r.now())), nil
}

// reconcileConsumption enforces consumption == newIndex - oldIndex.
// Reversed readings are swapped first; upstream-provided consumption is
// always recomputed rather than trusted.
func reconcileConsumption(info *domain.BillInfo) *domain.BillInfo {
	if info.OldIndex == nil || info.NewIndex == nil {
		return info
	}
	if *info.NewIndex < *info.OldIndex {
		info.OldIndex, info.NewIndex = info.NewIndex, info.OldIndex
	}
	consumption := *info.NewIndex - *info.OldIndex
	info.Consumption = &consumption
	return info
}
