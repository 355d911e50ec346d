// Package devtoken mints caller bearer tokens for local development.
package devtoken

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	jwttoken "nameledger/internal/jwt_token"
	"nameledger/pkg/domain"
)

// Config holds the token parameters. Key, Issuer and Audience must match the
// server's NAMELEDGER_JWT_* settings.
type Config struct {
	Caller   string
	TTL      time.Duration
	Key      string
	Issuer   string
	Audience string
}

// ParseConfig parses flags into a Config. lookupEnv seeds the signing
// settings so the CLI agrees with a server started from the same shell.
func ParseConfig(fs *flag.FlagSet, args []string, lookupEnv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if lookupEnv != nil {
			if v := lookupEnv(key); v != "" {
				return v
			}
		}
		return fallback
	}
	cfg := Config{
		TTL:      time.Hour,
		Key:      env("NAMELEDGER_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Issuer:   env("NAMELEDGER_JWT_ISSUER", "nameledger"),
		Audience: env("NAMELEDGER_JWT_AUDIENCE", "nameledger-api"),
	}
	fs.StringVar(&cfg.Caller, "caller", "", "0x-prefixed caller address (required)")
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "token lifetime")
	fs.StringVar(&cfg.Key, "key", cfg.Key, "HMAC signing key")
	fs.StringVar(&cfg.Issuer, "issuer", cfg.Issuer, "token issuer")
	fs.StringVar(&cfg.Audience, "audience", cfg.Audience, "token audience")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run mints the token and writes it to out.
func Run(cfg Config, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	if cfg.TTL <= 0 {
		return errors.New("ttl must be greater than zero")
	}
	caller, err := domain.ParseAddress(cfg.Caller)
	if err != nil {
		return fmt.Errorf("caller: %w", err)
	}
	if caller.IsZero() {
		return errors.New("caller must not be the zero address")
	}

	token, err := jwttoken.NewJWTService(cfg.Key, cfg.Issuer, cfg.Audience).GenerateCallerToken(caller, cfg.TTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
