// Package handler wires the HTTP surface: bill lookup, card payments,
// batch runs, and card vault management.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/observability"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// maxUploadBytes caps batch workbook uploads.
const maxUploadBytes = 10 << 20

type contextKey string

const customerIDKey contextKey = "customerID"

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(
	resolver *service.BillResolver,
	gateway *service.PaymentGateway,
	batch *service.BatchProcessor,
	importer *service.TxtImporter,
	cards *service.CardVault,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/bills/lookup", lookupBillHandler(resolver, logger))
		r.Post("/bills/import", importBillsHandler(importer, logger))
		r.Get("/bills/import/template", importTemplateHandler(importer))
		r.Get("/bills/{billNumber}", getBillHandler(resolver, logger))

		r.Post("/payments", authorizePaymentHandler(gateway, logger))
		r.Get("/payments/{transactionId}", paymentStatusHandler(gateway, logger))

		r.Post("/payments/batch", batchPaymentHandler(batch, cards, logger))
		r.Get("/payments/batch/template", batchTemplateHandler(batch, logger))

		r.Post("/auth/token", issueTokenHandler(cards, logger))
		r.Route("/cards", func(r chi.Router) {
			r.Use(authMiddleware(cards))
			r.Get("/", listCardsHandler(cards, logger))
			r.Post("/", linkCardHandler(cards, logger))
			r.Post("/{cardId}/default", setDefaultCardHandler(cards, logger))
			r.Delete("/{cardId}", removeCardHandler(cards, logger))
		})

		r.Get("/metrics/engine", engineMetricsHandler(metrics))
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "billpay",
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func lookupBillHandler(resolver *service.BillResolver, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /bills/lookup")
		defer span.End()

		var query domain.BillQuery
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("bill.identifier", query.Identifier()))

		info, err := resolver.Resolve(ctx, query)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func getBillHandler(resolver *service.BillResolver, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /bills/{billNumber}")
		defer span.End()

		billNumber := chi.URLParam(r, "billNumber")
		span.SetAttributes(attribute.String("bill.number", billNumber))

		info, err := resolver.Resolve(ctx, domain.BillQuery{BillNumber: billNumber})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

// importBillsHandler accepts a multipart upload with the pipe-delimited
// bill file under "file" and responds with the import tally.
func importBillsHandler(importer *service.TxtImporter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /bills/import")
		defer span.End()

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "expected multipart form upload")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "cannot read uploaded file")
			return
		}

		outcome, err := importer.ImportFile(ctx, data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("import.processed", outcome.Processed))
		writeJSON(w, http.StatusOK, outcome)
	}
}

func importTemplateHandler(importer *service.TxtImporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /bills/import/template")
		defer span.End()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="mau-nhap-hoa-don.txt"`)
		w.WriteHeader(http.StatusOK)
		w.Write(importer.Template())
	}
}

type paymentRequest struct {
	BillNumber  string `json:"billNumber"`
	Amount      int64  `json:"amount"`
	CardNumber  string `json:"cardNumber"`
	CardHolder  string `json:"cardHolder"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CVV         string `json:"cvv"`
}

func authorizePaymentHandler(gateway *service.PaymentGateway, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /payments")
		defer span.End()

		var req paymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(
			attribute.String("bill.number", req.BillNumber),
			attribute.Int64("amount", req.Amount),
		)

		card := domain.PaymentInstrument{
			CardNumber:  req.CardNumber,
			Holder:      req.CardHolder,
			ExpiryMonth: req.ExpiryMonth,
			ExpiryYear:  req.ExpiryYear,
			CVV:         req.CVV,
		}
		result, err := gateway.Authorize(ctx, card, req.Amount, req.BillNumber)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func paymentStatusHandler(gateway *service.PaymentGateway, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /payments/{transactionId}")
		defer span.End()

		transactionID := chi.URLParam(r, "transactionId")
		span.SetAttributes(attribute.String("transaction.id", transactionID))

		result, err := gateway.CheckStatus(ctx, transactionID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// batchPaymentHandler accepts a multipart upload with the workbook under
// "file" and the charging instrument either inline (card form fields) or
// as a stored card reference (cardId plus bearer token). With
// ?format=xlsx the response is the report workbook instead of JSON.
func batchPaymentHandler(batch *service.BatchProcessor, cards *service.CardVault, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /payments/batch")
		defer span.End()

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "expected multipart form upload")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "cannot read uploaded file")
			return
		}

		card, err := batchInstrument(ctx, r, cards)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		outcome, err := batch.ProcessFile(ctx, data, card)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("batch.run_id", outcome.RunID),
			attribute.Int("batch.total", outcome.Summary.Total),
		)

		if r.URL.Query().Get("format") == "xlsx" {
			report, err := batch.GenerateReport(outcome)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeWorkbook(w, fmt.Sprintf("ket-qua-%s.xlsx", outcome.RunID), report)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

// batchInstrument extracts the charging card from the form. A cardId
// field selects a vaulted card and requires a customer token.
func batchInstrument(ctx context.Context, r *http.Request, cards *service.CardVault) (domain.PaymentInstrument, error) {
	if raw := r.FormValue("cardId"); raw != "" {
		cardID, err := strconv.Atoi(raw)
		if err != nil {
			return domain.PaymentInstrument{}, &domain.ErrValidation{Field: "cardId", Message: "must be numeric"}
		}
		customerID, err := cards.VerifyToken(bearerToken(r))
		if err != nil {
			return domain.PaymentInstrument{}, err
		}
		instrument, err := cards.Instrument(ctx, customerID, cardID)
		if err != nil {
			return domain.PaymentInstrument{}, err
		}
		return *instrument, nil
	}

	card := domain.PaymentInstrument{
		CardNumber:  r.FormValue("cardNumber"),
		Holder:      r.FormValue("cardHolder"),
		ExpiryMonth: r.FormValue("expiryMonth"),
		ExpiryYear:  r.FormValue("expiryYear"),
		CVV:         r.FormValue("cvv"),
	}
	if card.CardNumber == "" {
		return domain.PaymentInstrument{}, &domain.ErrValidation{Field: "cardNumber", Message: "card fields or cardId are required"}
	}
	return card, nil
}

func batchTemplateHandler(batch *service.BatchProcessor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /payments/batch/template")
		defer span.End()

		data, err := batch.Template()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeWorkbook(w, "thanh-toan-tu-dong.xlsx", data)
	}
}

type tokenRequest struct {
	CustomerID string `json:"customerId"`
}

func issueTokenHandler(cards *service.CardVault, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /auth/token")
		defer span.End()

		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CustomerID == "" {
			writeError(w, http.StatusBadRequest, "customerId is required")
			return
		}
		span.SetAttributes(attribute.String("customer.id", req.CustomerID))

		token, err := cards.IssueToken(req.CustomerID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// authMiddleware resolves the bearer token to a customer ID and stores
// it on the request context.
func authMiddleware(cards *service.CardVault) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			customerID, err := cards.VerifyToken(bearerToken(r))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
			ctx := context.WithValue(r.Context(), customerIDKey, customerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func customerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(customerIDKey).(string)
	return id
}

type linkCardRequest struct {
	CardNumber  string `json:"cardNumber"`
	CardHolder  string `json:"cardHolder"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CVV         string `json:"cvv"`
}

func linkCardHandler(cards *service.CardVault, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /cards")
		defer span.End()

		var req linkCardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		token, err := cards.LinkCard(ctx, customerFromContext(ctx), domain.PaymentInstrument{
			CardNumber:  req.CardNumber,
			Holder:      req.CardHolder,
			ExpiryMonth: req.ExpiryMonth,
			ExpiryYear:  req.ExpiryYear,
			CVV:         req.CVV,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, token)
	}
}

func listCardsHandler(cards *service.CardVault, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /cards")
		defer span.End()

		tokens, err := cards.ListCards(ctx, customerFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cards": tokens})
	}
}

func setDefaultCardHandler(cards *service.CardVault, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /cards/{cardId}/default")
		defer span.End()

		cardID, err := strconv.Atoi(chi.URLParam(r, "cardId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "cardId must be numeric")
			return
		}
		if err := cards.SetDefault(ctx, customerFromContext(ctx), cardID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "default updated"})
	}
}

func removeCardHandler(cards *service.CardVault, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /cards/{cardId}")
		defer span.End()

		cardID, err := strconv.Atoi(chi.URLParam(r, "cardId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "cardId must be numeric")
			return
		}
		if err := cards.RemoveCard(ctx, customerFromContext(ctx), cardID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "card removed"})
	}
}

func engineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /metrics/engine")
		defer span.End()

		writeJSON(w, http.StatusOK, metrics.GetEngineSnapshot())
	}
}

func writeWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
