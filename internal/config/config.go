package config

import (
	"os"
	"strconv"
	"time"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Environment ("production" disables every sandbox fallback)
	Environment string

	// Bank aggregator API (tier 2 of the lookup cascade)
	BankAPIURL    string
	BankAPIKey    string
	BankAPISecret string
	BankTimeout   time.Duration

	// Card network gateway
	GatewayURL     string
	GatewayUserID  string
	GatewaySecret  string
	MerchantID     string
	GatewayTimeout time.Duration

	// Step-up authentication threshold in VND
	StepUpThreshold int64

	// Provider lookups (tier 1 of the cascade)
	ProviderTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Batch processing
	BatchParallelism int

	// Observability
	OTLPEndpoint string

	// Card vault / customer tokens
	JWTSecret           string
	JWTAccessTTL        time.Duration
	VaultSecret         string
	MaxCardsPerCustomer int

	// Providers keyed by billType_provider
	Providers map[string]domain.ProviderConfig
}

// Production reports whether sandbox fallbacks must stay disabled.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Environment: getEnv("APP_ENV", "development"),

		BankAPIURL:    getEnv("BIDV_API_URL", "https://openapi.bidv.com.vn/bidv/sandbox/open-banking/bill/v1"),
		BankAPIKey:    getEnv("BIDV_API_KEY", ""),
		BankAPISecret: getEnv("BIDV_API_SECRET", ""),
		BankTimeout:   getEnvDuration("BIDV_TIMEOUT", 30*time.Second),

		GatewayURL:     getEnv("VISA_API_URL", "https://sandbox.api.visa.com"),
		GatewayUserID:  getEnv("VISA_USER_ID", ""),
		GatewaySecret:  getEnv("VISA_API_SECRET", ""),
		MerchantID:     getEnv("VISA_MERCHANT_ID", "MERCHANT_VN_001"),
		GatewayTimeout: getEnvDuration("VISA_TIMEOUT", 45*time.Second),

		StepUpThreshold: getEnvInt64("STEP_UP_THRESHOLD_VND", 10_000_000),

		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		BatchParallelism: getEnvInt("BATCH_PARALLELISM", 1),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret:    getEnv("JWT_SECRET", "billpay-default-dev-secret-change-me"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		VaultSecret:  getEnv("VAULT_SECRET", "billpay-dev-vault-secret"),

		MaxCardsPerCustomer: getEnvInt("MAX_CARDS_PER_CUSTOMER", 5),

		Providers: loadProviders(),
	}
}

// loadProviders builds the provider registry. Endpoints and formats are
// fixed per provider; only credentials come from the environment, so a
// provider with no API key present simply reports Configured() == false
// and the lookup cascade falls through to the next tier.
func loadProviders() map[string]domain.ProviderConfig {
	providers := []domain.ProviderConfig{
		{
			Name:              "Tổng công ty Điện lực Hà Nội",
			BillType:          domain.BillTypeElectricity,
			Provider:          "evn-hanoi",
			BaseURL:           getEnv("EVN_HANOI_API_URL", "https://api.pchanoi.vn/v1"),
			APIKey:            getEnv("EVN_HANOI_API_KEY", ""),
			AuthType:          "bearer",
			BillNumberPattern: `^PD\d{11}$`,
			QueryPath:         "/bills/lookup",
		},
		{
			Name:              "Tổng công ty Điện lực TP.HCM",
			BillType:          domain.BillTypeElectricity,
			Provider:          "evn-hcm",
			BaseURL:           getEnv("EVN_HCM_API_URL", "https://api.pchochiminh.vn/v1"),
			APIKey:            getEnv("EVN_HCM_API_KEY", ""),
			AuthType:          "bearer",
			BillNumberPattern: `^PD\d{11}$`,
			QueryPath:         "/bills/search",
		},
		{
			Name:              "Tổng công ty Cấp nước Sài Gòn",
			BillType:          domain.BillTypeWater,
			Provider:          "sawaco",
			BaseURL:           getEnv("SAWACO_API_URL", "https://api.sawaco.com.vn/v1"),
			APIKey:            getEnv("SAWACO_API_KEY", ""),
			AuthType:          "bearer",
			BillNumberPattern: `^NC\d{11}$`,
			QueryPath:         "/bills/query",
		},
		{
			Name:              "Tổng công ty Cấp nước Hà Nội",
			BillType:          domain.BillTypeWater,
			Provider:          "hawaco",
			BaseURL:           getEnv("HAWACO_API_URL", "https://api.hawaco.vn/v1"),
			APIKey:            getEnv("HAWACO_API_KEY", ""),
			AuthType:          "bearer",
			BillNumberPattern: `^NC\d{11}$`,
			QueryPath:         "/bills/lookup",
		},
		{
			Name:              "Tập đoàn Viễn thông Quân đội",
			BillType:          domain.BillTypeTelecom,
			Provider:          "viettel",
			BaseURL:           getEnv("VIETTEL_API_URL", "https://api.viettel.vn/v1"),
			APIKey:            getEnv("VIETTEL_API_KEY", ""),
			AuthType:          "hmac",
			BillNumberPattern: `^DT\d{11}$`,
			QueryPath:         "/bills/query",
		},
		{
			Name:              "Truyền hình cáp Việt Nam",
			BillType:          domain.BillTypeTelevision,
			Provider:          "vtvcab",
			BaseURL:           getEnv("VTVCAB_API_URL", "https://api.vtvcab.vn/v1"),
			APIKey:            getEnv("VTVCAB_API_KEY", ""),
			AuthType:          "api_key",
			BillNumberPattern: `^TV\d{11}$`,
			QueryPath:         "/bills/query",
		},
		{
			Name:              "Viettel thẻ trả trước",
			BillType:          domain.BillTypePhonecard,
			Provider:          "viettel-card",
			BaseURL:           getEnv("VIETTEL_PREPAID_API_URL", "https://api.viettel.vn/prepaid/v1"),
			APIKey:            getEnv("VIETTEL_PREPAID_API_KEY", ""),
			AuthType:          "hmac",
			BillNumberPattern: `^TC\d{11}$`,
			QueryPath:         "/cards/query",
		},
	}

	registry := make(map[string]domain.ProviderConfig, len(providers))
	for _, p := range providers {
		p.Timeout = getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second)
		p.RetryCount = getEnvInt("PROVIDER_RETRY_COUNT", 3)
		registry[p.Key()] = p
	}
	return registry
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
