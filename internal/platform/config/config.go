// Package config loads process configuration from NAMELEDGER_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/holiman/uint256"

	"nameledger/pkg/domain"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`

	Registry   RegistryConfig
	Auth       AuthConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Settlement SettlementConfig
	Audit      AuditConfig
	Telemetry  TelemetryConfig
	RateLimit  RateLimitConfig
}

// RegistryConfig holds the policy used when the registry is first created.
// After that the stored policy wins.
type RegistryConfig struct {
	AdminAddress  string        `env:"ADMIN_ADDRESS"`
	OneYearCharge string        `env:"ONE_YEAR_CHARGE" envDefault:"50000000000000000"`
	RenewRatio    uint64        `env:"RENEW_RATIO" envDefault:"12"`
	TxTimeout     time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`
}

type AuthConfig struct {
	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"nameledger"`
	JWTAudience   string        `env:"JWT_AUDIENCE" envDefault:"nameledger-api"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
}

// DatabaseConfig selects the Postgres backend when URL is set; otherwise the
// registry runs in memory.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig enables the lease cache when URL is set.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	LeaseTTL     time.Duration `env:"LEASE_CACHE_TTL" envDefault:"30s"`
}

// SettlementConfig publishes withdrawals to Kafka when Brokers is set;
// otherwise they are journaled in memory.
type SettlementConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic            string        `env:"SETTLEMENT_TOPIC" envDefault:"nameledger.settlement.transfers"`
	FailureThreshold int           `env:"SETTLEMENT_FAILURE_THRESHOLD" envDefault:"5"`
	Cooldown         time.Duration `env:"SETTLEMENT_COOLDOWN" envDefault:"10s"`
}

// RateLimitConfig budgets requests per client IP. The Redis bucket store is
// used whenever the lease cache is enabled.
type RateLimitConfig struct {
	Disabled bool          `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
	Reads    int           `env:"RATE_LIMIT_READS" envDefault:"600"`
	Writes   int           `env:"RATE_LIMIT_WRITES" envDefault:"60"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

type AuditConfig struct {
	BufferSize int `env:"AUDIT_BUFFER" envDefault:"1024"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string  `env:"OTEL_ENDPOINT"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"nameledger"`
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	return parse(env.Options{Prefix: "NAMELEDGER_"})
}

// FromMap parses cfg from an explicit variable set, for tests.
func FromMap(vars map[string]string) (Server, error) {
	return parse(env.Options{Prefix: "NAMELEDGER_", Environment: vars})
}

func parse(opts env.Options) (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks values the registry cannot start without.
func (c Server) Validate() error {
	var errs []error
	if admin, err := domain.ParseAddress(c.Registry.AdminAddress); err != nil {
		errs = append(errs, fmt.Errorf("NAMELEDGER_ADMIN_ADDRESS: %w", err))
	} else if admin.IsZero() {
		errs = append(errs, errors.New("NAMELEDGER_ADMIN_ADDRESS must not be the zero address"))
	}
	if _, err := domain.ParseAmount(c.Registry.OneYearCharge); err != nil {
		errs = append(errs, fmt.Errorf("NAMELEDGER_ONE_YEAR_CHARGE: %w", err))
	}
	if c.Registry.TxTimeout <= 0 {
		errs = append(errs, errors.New("NAMELEDGER_TX_TIMEOUT must be positive"))
	}
	if c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("NAMELEDGER_JWT_SIGNING_KEY is required"))
	}
	if c.IsProduction() && c.Auth.JWTSigningKey == devSigningKey {
		errs = append(errs, errors.New("NAMELEDGER_JWT_SIGNING_KEY must be set in production"))
	}
	if !c.RateLimit.Disabled && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("NAMELEDGER_RATE_LIMIT_WINDOW must be positive"))
	}
	if c.Audit.BufferSize < 0 {
		errs = append(errs, errors.New("NAMELEDGER_AUDIT_BUFFER must not be negative"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("NAMELEDGER_OTEL_SAMPLE_RATIO must be within [0, 1]"))
	}
	return errors.Join(errs...)
}

func (c Server) IsProduction() bool {
	return c.Environment == "production"
}

// Admin returns the parsed admin address. Only valid after Validate.
func (c RegistryConfig) Admin() domain.Address {
	return domain.MustParseAddress(c.AdminAddress)
}

// Charge returns the parsed one-year charge. Only valid after Validate.
func (c RegistryConfig) Charge() *uint256.Int {
	return domain.MustParseAmount(c.OneYearCharge)
}
