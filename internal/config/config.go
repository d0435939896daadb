package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	Port      string
	MongoURI  string
	DBName    string
	JWTSecret string
	APIURL    string
	FrontURL  string

	LogLevel  string
	LogFormat string

	Payment PaymentConfig
	Email   EmailConfig

	RateLimitRPS    float64
	RateLimitBurst  int
	OrderCodeTries  int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type PaymentConfig struct {
	CheckoutURL             string
	MerchantID              string
	SecretKey               string
	Currency                string
	Timeout                 time.Duration
	VerifyCallbackSignature bool
}

type EmailConfig struct {
	ResendKey string
	From      string
	TestEmail string
}

// MissingError lists every required variable that was not set.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}

	cfg := Config{
		Env:       getEnvOrDefault("APP_ENV", "development"),
		Port:      getEnvOrDefault("PORT", "8080"),
		MongoURI:  getEnvOrDefault("MONGO_URI", ""),
		DBName:    getEnvOrDefault("DB_NAME", "storefront"),
		JWTSecret: getEnvOrDefault("JWT_SECRET", ""),
		APIURL:    withTrailingSlash(getEnvOrDefault("API_URL", "")),
		FrontURL:  withTrailingSlash(getEnvOrDefault("FRONT_URL", "")),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Payment: PaymentConfig{
			CheckoutURL:             getEnvOrDefault("PAYMENT_CHECKOUT_URL", "https://pay.flitt.com/api/checkout/url"),
			MerchantID:              getEnvOrDefault("PAYMENT_MERCHANT_ID", ""),
			SecretKey:               getEnvOrDefault("PAYMENT_SECRET_KEY", ""),
			Currency:                getEnvOrDefault("PAYMENT_CURRENCY", "GEL"),
			Timeout:                 getDurationEnv("PAYMENT_TIMEOUT", 15, time.Second),
			VerifyCallbackSignature: getBoolEnv("PAYMENT_VERIFY_CALLBACK_SIGNATURE", false),
		},
		Email: EmailConfig{
			ResendKey: getEnvOrDefault("RESEND_EMAIL_KEY", ""),
			From:      getEnvOrDefault("RESEND_FROM_EMAIL", "onboarding@resend.dev"),
			TestEmail: getEnvOrDefault("RESEND_TEST_EMAIL", ""),
		},
		RateLimitRPS:    getFloatEnv("RATE_LIMIT_RPS", 10),
		RateLimitBurst:  getIntEnv("RATE_LIMIT_BURST", 20),
		OrderCodeTries:  getIntEnv("ORDER_CODE_MAX_ATTEMPTS", 10),
		RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", 5, time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 20, time.Second),
	}

	return cfg, cfg.Validate()
}

// Validate fails when a value the service cannot start without is missing.
func (c Config) Validate() error {
	var missing []string
	required := map[string]string{
		"MONGO_URI":          c.MongoURI,
		"JWT_SECRET":         c.JWTSecret,
		"API_URL":            c.APIURL,
		"FRONT_URL":          c.FrontURL,
		"PAYMENT_SECRET_KEY": c.Payment.SecretKey,
	}
	for _, key := range []string{"MONGO_URI", "JWT_SECRET", "API_URL", "FRONT_URL", "PAYMENT_SECRET_KEY"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	if c.OrderCodeTries < 1 {
		return errors.New("ORDER_CODE_MAX_ATTEMPTS must be positive")
	}
	return nil
}

func (c Config) Production() bool {
	return c.Env == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func withTrailingSlash(value string) string {
	if value == "" || strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}
