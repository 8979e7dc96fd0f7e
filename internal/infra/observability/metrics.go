package observability

import (
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the billing engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	upstreamErrors  *prometheus.CounterVec
	lookupTierHits  *prometheus.CounterVec
	paymentsTotal   *prometheus.CounterVec
	batchRows       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billpay_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billpay_upstream_errors_total",
				Help: "Total errors from external provider and gateway APIs.",
			},
			[]string{"service"},
		),
		lookupTierHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billpay_lookup_tier_hits_total",
				Help: "Bill lookups answered, by cascade tier.",
			},
			[]string{"tier"},
		),
		paymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billpay_payments_total",
				Help: "Card authorizations processed, by final status.",
			},
			[]string{"status"},
		),
		batchRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billpay_batch_rows_total",
				Help: "Batch rows processed, by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrUpstreamError increments the upstream error counter.
func (m *Metrics) IncrUpstreamError(service string) {
	m.upstreamErrors.WithLabelValues(service).Inc()
}

// IncrLookupTier records which cascade tier answered a lookup.
func (m *Metrics) IncrLookupTier(tier string) {
	m.lookupTierHits.WithLabelValues(tier).Inc()
}

// IncrPayment increments the payment counter with the final status.
func (m *Metrics) IncrPayment(status string) {
	m.paymentsTotal.WithLabelValues(status).Inc()
}

// IncrBatchRow increments the batch row counter with the row outcome.
func (m *Metrics) IncrBatchRow(outcome string) {
	m.batchRows.WithLabelValues(outcome).Inc()
}

// GetEngineSnapshot returns a snapshot of the engine counters suitable for
// the GET /v1/metrics/engine endpoint.
func (m *Metrics) GetEngineSnapshot() *domain.OpsSnapshot {
	// Gather current values from Prometheus counters.
	// Note: Prometheus counters expose cumulative values.
	provider := getCounterValue(m.lookupTierHits, "provider")
	bank := getCounterValue(m.lookupTierHits, "bank")
	synthetic := getCounterValue(m.lookupTierHits, "synthetic")
	totalLookups := provider + bank + synthetic

	approved := getCounterValue(m.paymentsTotal, domain.PaymentApproved)
	declined := getCounterValue(m.paymentsTotal, domain.PaymentDeclined)
	pending := getCounterValue(m.paymentsTotal, domain.PaymentPending)
	errored := getCounterValue(m.paymentsTotal, domain.PaymentError)
	totalPayments := approved + declined + pending + errored

	success := getCounterValue(m.batchRows, domain.RowSuccess)
	failed := getCounterValue(m.batchRows, domain.RowFailed)
	skipped := getCounterValue(m.batchRows, domain.RowSkipped)
	totalRows := success + failed + skipped

	upstreamErrors := getCounterValue(m.upstreamErrors, "provider") +
		getCounterValue(m.upstreamErrors, "bidv") +
		getCounterValue(m.upstreamErrors, "visa")

	syntheticRate := float64(0)
	approvalRate := float64(0)
	batchSuccessRate := float64(0)

	if totalLookups > 0 {
		syntheticRate = synthetic / totalLookups
	}
	if totalPayments > 0 {
		approvalRate = approved / totalPayments
	}
	if totalRows > 0 {
		batchSuccessRate = success / totalRows
	}

	return &domain.OpsSnapshot{
		TotalLookups:     int64(totalLookups),
		SyntheticRate:    syntheticRate,
		TotalPayments:    int64(totalPayments),
		ApprovalRate:     approvalRate,
		BatchRowsTotal:   int64(totalRows),
		BatchSuccessRate: batchSuccessRate,
		UpstreamErrors:   int64(upstreamErrors),
		Period:           "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
