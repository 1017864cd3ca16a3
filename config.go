package authkit

import (
	"errors"
	"time"
)

// Config defines every tunable of the engine. Configure once before Build;
// Engine treats its config as immutable afterwards.
type Config struct {
	Token         TokenConfig
	Password      PasswordConfig
	Verification  VerificationConfig
	PasswordReset PasswordResetConfig
	Notify        NotifyConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Store         StoreConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls the session token issuer. The signing key is
// process-wide static configuration; it is injected here and never rotated
// at runtime.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	Secret        []byte // hs256 secret, or ed25519 private key
	PublicKey     []byte // ed25519 only
	Issuer        string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries the argon2id work factors plus the minimum
// plaintext length enforced at registration and reset.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

/*
====================================
ONE-TIME CODE CONFIG
====================================
*/

// VerificationConfig controls the email-verification code policy: a short
// numeric code the user types by hand.
type VerificationConfig struct {
	Digits int
	TTL    time.Duration
}

// PasswordResetConfig controls the reset code policy: a high-entropy hex
// token delivered inside a link, never typed. The request cooldown equals
// the code's own lifetime.
type PasswordResetConfig struct {
	SecretBytes int
	TTL         time.Duration
}

/*
====================================
NOTIFY / AUDIT / METRICS CONFIG
====================================
*/

// NotifyConfig controls the outbound notification dispatcher. ClientURL is
// the frontend origin used to build reset links.
type NotifyConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	ClientURL  string
}

// AuditConfig controls the audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// StoreConfig applies to the bundled Redis account store.
type StoreConfig struct {
	RedisPrefix string
}

// DefaultConfig returns the production defaults: 24-hour stateless session
// tokens, 6-digit verification codes valid 10 minutes, 40-hex reset codes
// valid 30 seconds.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:           24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   6,
		},
		Verification: VerificationConfig{
			Digits: 6,
			TTL:    10 * time.Minute,
		},
		PasswordReset: PasswordResetConfig{
			SecretBytes: 20,
			TTL:         30 * time.Second,
		},
		Notify: NotifyConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Store: StoreConfig{
			RedisPrefix: "ak",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = append([]byte(nil), cfg.Token.Secret...)
	out.Token.PublicKey = append([]byte(nil), cfg.Token.PublicKey...)
	return out
}

func validateConfig(cfg Config) error {
	if cfg.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if cfg.Password.MinLength < 1 {
		return errors.New("password minimum length must be positive")
	}
	if cfg.Verification.Digits < 4 || cfg.Verification.Digits > 10 {
		return errors.New("verification code digits out of range")
	}
	if cfg.Verification.TTL <= 0 {
		return errors.New("verification TTL must be positive")
	}
	if cfg.PasswordReset.SecretBytes < 16 {
		return errors.New("reset secret too short")
	}
	if cfg.PasswordReset.TTL <= 0 {
		return errors.New("reset TTL must be positive")
	}
	if cfg.Store.RedisPrefix == "" {
		return errors.New("store prefix must not be empty")
	}
	return nil
}
