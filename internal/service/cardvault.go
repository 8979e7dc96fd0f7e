package service

import (
	"context"
	"fmt"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/vault"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CardVault links cards to customers. PANs are sealed before storage and
// only opened again when a batch run needs the instrument. Customers
// authenticate to card operations with short-lived JWTs.
type CardVault struct {
	store     port.Store
	vault     *vault.Vault
	jwtSecret []byte
	accessTTL time.Duration
	maxCards  int
	logger    *zap.Logger
	now       func() time.Time
}

// NewCardVault creates the card vault service.
func NewCardVault(store port.Store, v *vault.Vault, jwtSecret string, accessTTL time.Duration, maxCards int, logger *zap.Logger) *CardVault {
	return &CardVault{
		store:     store,
		vault:     v,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		maxCards:  maxCards,
		logger:    logger,
		now:       time.Now,
	}
}

// IssueToken mints a customer access token for card operations.
func (c *CardVault) IssueToken(customerID string) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   customerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		Issuer:    "billpay",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.jwtSecret)
}

// VerifyToken validates a customer token and returns the customer ID.
func (c *CardVault) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", &domain.ErrUnauthorized{Message: "token missing subject"}
	}
	return claims.Subject, nil
}

// LinkCard validates and stores a card for the customer. The first card
// linked becomes the default.
func (c *CardVault) LinkCard(ctx context.Context, customerID string, card domain.PaymentInstrument) (*domain.CardToken, error) {
	ctx, span := tracer.Start(ctx, "CardVault.LinkCard")
	defer span.End()

	if !Luhn(card.CardNumber) {
		return nil, &domain.ErrValidation{Field: "cardNumber", Message: "failed checksum validation"}
	}
	if err := validateExpiry(card.ExpiryMonth, card.ExpiryYear, c.now()); err != nil {
		return nil, err
	}

	existing, err := c.store.ListCards(ctx, customerID)
	if err != nil {
		return nil, err
	}
	active := 0
	for _, lc := range existing {
		if lc.IsActive {
			active++
		}
	}
	if active >= c.maxCards {
		return nil, &domain.ErrLimitExceeded{LimitType: "linked_cards", Limit: c.maxCards}
	}

	sealed, err := c.vault.Seal(card.CardNumber)
	if err != nil {
		return nil, fmt.Errorf("seal card: %w", err)
	}

	linked := &domain.LinkedCard{
		CustomerID:   customerID,
		Token:        "tok_" + uuid.NewString(),
		EncryptedPAN: sealed,
		MaskedNumber: MaskCardNumber(card.CardNumber),
		Brand:        CardBrand(card.CardNumber),
		Holder:       card.Holder,
		ExpiryMonth:  card.ExpiryMonth,
		ExpiryYear:   card.ExpiryYear,
		IsDefault:    active == 0,
		IsActive:     true,
	}
	stored, err := c.store.CreateCard(ctx, linked)
	if err != nil {
		return nil, err
	}

	c.logger.Info("card linked",
		zap.String("customer_id", customerID),
		zap.String("masked_number", stored.MaskedNumber),
		zap.String("brand", stored.Brand),
	)
	return &domain.CardToken{
		Token:        stored.Token,
		MaskedNumber: stored.MaskedNumber,
		Brand:        stored.Brand,
		ExpiryMonth:  stored.ExpiryMonth,
		ExpiryYear:   stored.ExpiryYear,
		Status:       "active",
	}, nil
}

// ListCards returns the customer's cards as display-safe tokens.
func (c *CardVault) ListCards(ctx context.Context, customerID string) ([]domain.CardToken, error) {
	cards, err := c.store.ListCards(ctx, customerID)
	if err != nil {
		return nil, err
	}
	tokens := make([]domain.CardToken, 0, len(cards))
	for _, lc := range cards {
		if !lc.IsActive {
			continue
		}
		status := "active"
		if lc.IsDefault {
			status = "default"
		}
		tokens = append(tokens, domain.CardToken{
			Token:        lc.Token,
			MaskedNumber: lc.MaskedNumber,
			Brand:        lc.Brand,
			ExpiryMonth:  lc.ExpiryMonth,
			ExpiryYear:   lc.ExpiryYear,
			Status:       status,
		})
	}
	return tokens, nil
}

// SetDefault marks one of the customer's cards as the default.
func (c *CardVault) SetDefault(ctx context.Context, customerID string, cardID int) error {
	return c.store.SetDefaultCard(ctx, customerID, cardID)
}

// RemoveCard deactivates a linked card. The sealed PAN stays on the
// record for payment reconciliation but is never served again.
func (c *CardVault) RemoveCard(ctx context.Context, customerID string, cardID int) error {
	return c.store.DeactivateCard(ctx, customerID, cardID)
}

// Instrument opens the sealed PAN of a stored card for use in a payment
// run. Only active cards can be opened.
func (c *CardVault) Instrument(ctx context.Context, customerID string, cardID int) (*domain.PaymentInstrument, error) {
	card, err := c.store.GetCard(ctx, customerID, cardID)
	if err != nil {
		return nil, err
	}
	if !card.IsActive {
		return nil, &domain.ErrValidation{Field: "cardId", Message: "card is no longer active"}
	}
	pan, err := c.vault.Open(card.EncryptedPAN)
	if err != nil {
		return nil, fmt.Errorf("open sealed card: %w", err)
	}
	return &domain.PaymentInstrument{
		CardNumber:  pan,
		Holder:      card.Holder,
		ExpiryMonth: card.ExpiryMonth,
		ExpiryYear:  card.ExpiryYear,
	}, nil
}

// MaskCardNumber hides all but the last four digits of a PAN.
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) < 4 {
		return "****"
	}
	return "**** **** **** " + cardNumber[len(cardNumber)-4:]
}
