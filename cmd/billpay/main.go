package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/config"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/handler"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/client"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/excel"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/memstore"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/observability"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/resilience"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/infra/vault"
	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/service"

	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv(".env")
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "billpay")
	if err != nil {
		logger.Warn("tracer init failed, continuing without traces", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	retryCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	providerHTTP := &http.Client{Timeout: cfg.ProviderTimeout}
	bankHTTP := &http.Client{Timeout: cfg.BankTimeout}
	gatewayHTTP := &http.Client{Timeout: cfg.GatewayTimeout}

	providerClient := client.NewProviderClient(providerHTTP, resilience.NewCircuitBreaker("provider"), retryCfg)
	bankClient := client.NewBIDVClient(bankHTTP, cfg.BankAPIURL, cfg.BankAPIKey, cfg.BankAPISecret, resilience.NewCircuitBreaker("bidv"), retryCfg)
	visaClient := client.NewVisaClient(gatewayHTTP, cfg.GatewayURL, cfg.GatewayUserID, cfg.GatewaySecret, cfg.MerchantID, resilience.NewCircuitBreaker("visa"), retryCfg)

	store := memstore.New()

	cardVault, err := vault.New(cfg.VaultSecret)
	if err != nil {
		logger.Fatal("card vault init failed", zap.Error(err))
	}

	resolver := service.NewBillResolver(cfg.Providers, providerClient, bankClient, metrics, logger)
	gateway := service.NewPaymentGateway(visaClient, cfg.Production(), cfg.StepUpThreshold, metrics, logger)
	batch := service.NewBatchProcessor(resolver, gateway, store, excel.NewCodec(), cfg.BatchParallelism, metrics, logger)
	importer := service.NewTxtImporter(store, logger)
	cards := service.NewCardVault(store, cardVault, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.MaxCardsPerCustomer, logger)

	router := handler.NewRouter(resolver, gateway, batch, importer, cards, metrics, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if shutdownTracer != nil {
		if err := shutdownTracer(ctx); err != nil {
			logger.Error("tracer shutdown failed", zap.Error(err))
		}
	}
	logger.Info("server stopped")
}
