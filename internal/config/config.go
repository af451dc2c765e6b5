package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wellness-api/internal/domain"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	StoreDriver    string // "dynamo" | "memory"
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SNSRegion    string

	AllowedOrigins []string // CORS allowed origins
	RateLimitRPS   float64
	RateLimitBurst int

	Engine Engine
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	OTPs         string
	Tokens       string
	Accounts     string
	Guards       string
	MoodEntries  string
	Transactions string
}

// Engine is the read-only configuration shared by the OTP registry, the
// registration finalizer, the mood tracker and the wallet meter.
type Engine struct {
	OTPWindow          time.Duration
	TokenWindow        time.Duration
	OTPMaxAttempts     int
	DispatchTimeout    time.Duration
	MoodDailyLimit     int
	DefaultTimezone    string
	BillingRules       map[string]domain.BillingRule
	MaxRecharge        int64 // 0 disables the per-request cap
	MaxDebitMinutes    int64 // 0 disables the per-request cap
	MaxConflictRetries int
}

// DefaultEngine returns the engine configuration used when no overrides are set.
func DefaultEngine() Engine {
	return Engine{
		OTPWindow:       10 * time.Minute,
		TokenWindow:     30 * time.Minute,
		OTPMaxAttempts:  5,
		DispatchTimeout: 15 * time.Second,
		MoodDailyLimit:  3,
		DefaultTimezone: "UTC",
		BillingRules: map[string]domain.BillingRule{
			"call": {RateMilli: 5000, MinimumBalance: 5},
			"chat": {RateMilli: 1000, MinimumBalance: 1},
		},
		MaxRecharge:        600,
		MaxDebitMinutes:    240,
		MaxConflictRetries: 3,
	}
}

// Load reads all configuration from environment variables.
func Load() *Config {
	def := DefaultEngine()
	rules := def.BillingRules
	if raw := os.Getenv("BILLING_RULES"); raw != "" {
		parsed, err := ParseBillingRules(raw)
		if err != nil {
			slog.Warn("ignoring BILLING_RULES", "err", err)
		} else {
			rules = parsed
		}
	}
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		StoreDriver:    getEnv("STORE_DRIVER", "dynamo"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			OTPs:         getEnv("DYNAMO_TABLE_OTPS", "otp_records"),
			Tokens:       getEnv("DYNAMO_TABLE_TOKENS", "provisioning_tokens"),
			Accounts:     getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			Guards:       getEnv("DYNAMO_TABLE_GUARDS", "account_guards"),
			MoodEntries:  getEnv("DYNAMO_TABLE_MOOD_ENTRIES", "mood_entries"),
			Transactions: getEnv("DYNAMO_TABLE_WALLET_TRANSACTIONS", "wallet_transactions"),
		},
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "1025"),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		RateLimitRPS:      getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 10),
		Engine: checkEngine(Engine{
			OTPWindow:          getEnvDuration("OTP_WINDOW", def.OTPWindow),
			TokenWindow:        getEnvDuration("PROVISIONING_TOKEN_WINDOW", def.TokenWindow),
			OTPMaxAttempts:     getEnvInt("OTP_MAX_ATTEMPTS", def.OTPMaxAttempts),
			DispatchTimeout:    getEnvDuration("OTP_DISPATCH_TIMEOUT", def.DispatchTimeout),
			MoodDailyLimit:     getEnvInt("MOOD_DAILY_LIMIT", def.MoodDailyLimit),
			DefaultTimezone:    getEnv("DEFAULT_TIMEZONE", def.DefaultTimezone),
			BillingRules:       rules,
			MaxRecharge:        int64(getEnvInt("WALLET_MAX_RECHARGE", int(def.MaxRecharge))),
			MaxDebitMinutes:    int64(getEnvInt("WALLET_MAX_DEBIT_MINUTES", int(def.MaxDebitMinutes))),
			MaxConflictRetries: getEnvInt("ENGINE_MAX_CONFLICT_RETRIES", def.MaxConflictRetries),
		}, def),
	}
}

// checkEngine replaces out-of-range values with their defaults.
func checkEngine(e, def Engine) Engine {
	warn := func(key string, got, fallback interface{}) {
		slog.Warn("ignoring out-of-range engine setting", "key", key, "value", got, "default", fallback)
	}
	if e.OTPWindow <= 0 {
		warn("OTP_WINDOW", e.OTPWindow, def.OTPWindow)
		e.OTPWindow = def.OTPWindow
	}
	if e.TokenWindow <= 0 {
		warn("PROVISIONING_TOKEN_WINDOW", e.TokenWindow, def.TokenWindow)
		e.TokenWindow = def.TokenWindow
	}
	if e.OTPMaxAttempts < 1 {
		warn("OTP_MAX_ATTEMPTS", e.OTPMaxAttempts, def.OTPMaxAttempts)
		e.OTPMaxAttempts = def.OTPMaxAttempts
	}
	if e.DispatchTimeout <= 0 {
		warn("OTP_DISPATCH_TIMEOUT", e.DispatchTimeout, def.DispatchTimeout)
		e.DispatchTimeout = def.DispatchTimeout
	}
	if e.MoodDailyLimit < 1 {
		warn("MOOD_DAILY_LIMIT", e.MoodDailyLimit, def.MoodDailyLimit)
		e.MoodDailyLimit = def.MoodDailyLimit
	}
	if _, err := time.LoadLocation(e.DefaultTimezone); err != nil {
		warn("DEFAULT_TIMEZONE", e.DefaultTimezone, def.DefaultTimezone)
		e.DefaultTimezone = def.DefaultTimezone
	}
	if e.MaxRecharge < 0 {
		warn("WALLET_MAX_RECHARGE", e.MaxRecharge, def.MaxRecharge)
		e.MaxRecharge = def.MaxRecharge
	}
	if e.MaxDebitMinutes < 0 {
		warn("WALLET_MAX_DEBIT_MINUTES", e.MaxDebitMinutes, def.MaxDebitMinutes)
		e.MaxDebitMinutes = def.MaxDebitMinutes
	}
	if e.MaxConflictRetries < 0 {
		warn("ENGINE_MAX_CONFLICT_RETRIES", e.MaxConflictRetries, def.MaxConflictRetries)
		e.MaxConflictRetries = def.MaxConflictRetries
	}
	return e
}

// ParseBillingRules parses "kind:rate:minimum" entries separated by commas,
// e.g. "call:5:5,chat:1.5:1". Rates may carry up to three decimals.
func ParseBillingRules(raw string) (map[string]domain.BillingRule, error) {
	rules := make(map[string]domain.BillingRule)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("billing rule %q: want kind:rate:minimum", part)
		}
		kind := strings.ToLower(strings.TrimSpace(fields[0]))
		if kind == "" {
			return nil, fmt.Errorf("billing rule %q: empty service kind", part)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("billing rule %q: rate must be a positive number", part)
		}
		minimum, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil || minimum < 0 {
			return nil, fmt.Errorf("billing rule %q: minimum must be a non-negative integer", part)
		}
		rules[kind] = domain.BillingRule{
			RateMilli:      int64(math.Round(rate * 1000)),
			MinimumBalance: minimum,
		}
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("no billing rules in %q", raw)
	}
	return rules, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("10m", "36h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
