package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/observability"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// sandboxCardPrefix marks the designated test card range. Simulated
// approvals are only ever produced for these cards outside production.
const sandboxCardPrefix = "4111"

// PaymentGateway validates card instruments and drives authorization
// through the card network, with a sandbox-simulated fallback for test
// cards in non-production environments.
type PaymentGateway struct {
	processor       port.CardProcessor
	production      bool
	stepUpThreshold int64
	metrics         *observability.Metrics
	logger          *zap.Logger
	now             func() time.Time
}

// NewPaymentGateway creates the gateway with all dependencies injected.
func NewPaymentGateway(
	processor port.CardProcessor,
	production bool,
	stepUpThreshold int64,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *PaymentGateway {
	return &PaymentGateway{
		processor:       processor,
		production:      production,
		stepUpThreshold: stepUpThreshold,
		metrics:         metrics,
		logger:          logger,
		now:             time.Now,
	}
}

// Authorize runs the payment gates in order: Luhn, expiry, step-up
// decision, then signed submission. Each gate fails fast. The
// transaction ID is generated before submission so retries and failure
// reports share one idempotency key.
func (g *PaymentGateway) Authorize(ctx context.Context, card domain.PaymentInstrument, amount int64, orderRef string) (*domain.PaymentResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentGateway.Authorize")
	defer span.End()
	span.SetAttributes(attribute.Int64("amount", amount))

	start := g.now()
	defer func() {
		g.metrics.RecordRequestDuration("authorize", time.Since(start))
	}()

	if amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if !Luhn(card.CardNumber) {
		return nil, &domain.ErrValidation{Field: "cardNumber", Message: "failed checksum validation"}
	}
	if err := validateExpiry(card.ExpiryMonth, card.ExpiryYear, g.now()); err != nil {
		return nil, err
	}

	transactionID := newTransactionID()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	if g.requiresStepUp(card.CardNumber, amount) {
		g.metrics.IncrPayment(domain.PaymentPending)
		return &domain.PaymentResult{
			TransactionID:    transactionID,
			Status:           domain.PaymentPending,
			ResponseCode:     "3DS",
			Message:          "Strong authentication required",
			ChallengeToken:   uuid.NewString(),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	result, err := g.processor.Authorize(ctx, card, amount, transactionID, orderRef)
	if err != nil {
		g.metrics.IncrUpstreamError("visa")

		if g.sandboxEligible(card.CardNumber, err) {
			g.logger.Warn("card network unreachable, sandbox fallback engaged",
				zap.String("transaction_id", transactionID),
				zap.Error(err),
			)
			g.metrics.IncrPayment(domain.PaymentApproved)
			return &domain.PaymentResult{
				TransactionID:     transactionID,
				Status:            domain.PaymentApproved,
				ResponseCode:      "00",
				Message:           "Sandbox transaction approved",
				AuthorizationCode: sandboxAuthCode(),
				ProcessingTimeMs:  time.Since(start).Milliseconds(),
			}, nil
		}

		g.metrics.IncrPayment(domain.PaymentError)
		return nil, err
	}

	g.metrics.IncrPayment(result.Status)
	return result, nil
}

// CheckStatus queries the network for the state of a prior transaction.
func (g *PaymentGateway) CheckStatus(ctx context.Context, transactionID string) (*domain.PaymentResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentGateway.CheckStatus")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	if transactionID == "" {
		return nil, &domain.ErrValidation{Field: "transactionId", Message: "is required"}
	}
	return g.processor.QueryTransaction(ctx, transactionID)
}

// requiresStepUp flags high-value transactions on the risk-flagged brand
// for a 3-D Secure style challenge.
func (g *PaymentGateway) requiresStepUp(cardNumber string, amount int64) bool {
	return strings.HasPrefix(cardNumber, "4") && amount > g.stepUpThreshold
}

// sandboxEligible gates the simulated approval path. Production never
// simulates, and authentication rejections are never masked.
func (g *PaymentGateway) sandboxEligible(cardNumber string, err error) bool {
	if g.production {
		return false
	}
	if _, ok := err.(*domain.ErrAuthentication); ok {
		return false
	}
	return strings.HasPrefix(cardNumber, sandboxCardPrefix)
}

// Luhn reports whether the card number passes the Luhn checksum.
func Luhn(cardNumber string) bool {
	digits := strings.ReplaceAll(cardNumber, " ", "")
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// CardBrand derives the brand from the leading digits of the PAN.
func CardBrand(cardNumber string) string {
	switch {
	case strings.HasPrefix(cardNumber, "4"):
		return domain.BrandVisa
	case len(cardNumber) >= 2 && cardNumber[0] == '5' && cardNumber[1] >= '1' && cardNumber[1] <= '5':
		return domain.BrandMastercard
	case strings.HasPrefix(cardNumber, "34") || strings.HasPrefix(cardNumber, "37"):
		return domain.BrandAmex
	case strings.HasPrefix(cardNumber, "6011"):
		return domain.BrandDiscover
	default:
		return domain.BrandUnknown
	}
}

// validateExpiry derives the full year from a 2-digit year (<50 means
// 2000s, otherwise 1900s) and rejects cards expiring strictly before the
// current month.
func validateExpiry(month, year string, now time.Time) error {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return &domain.ErrValidation{Field: "expiryMonth", Message: "must be between 01 and 12"}
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 0 {
		return &domain.ErrValidation{Field: "expiryYear", Message: "must be numeric"}
	}
	if y < 100 {
		if y < 50 {
			y += 2000
		} else {
			y += 1900
		}
	}

	if y < now.Year() || (y == now.Year() && m < int(now.Month())) {
		return &domain.ErrValidation{Field: "expiryYear", Message: "card has expired"}
	}
	return nil
}

func newTransactionID() string {
	return "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func sandboxAuthCode() string {
	return fmt.Sprintf("AUTH%06d", uuid.New().ID()%1_000_000)
}
