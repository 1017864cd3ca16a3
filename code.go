package authkit

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"
)

// codeStatus is the outcome of validating a submitted one-time code against
// the stored code and its expiry.
type codeStatus int

const (
	codeValid codeStatus = iota
	codeUnset
	codeMismatch
	codeExpired
)

// newVerifyCode generates the verification-purpose code: numeric, fixed
// length, meant to be read from an email and typed by hand.
func newVerifyCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid verify code digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// newResetCode generates the reset-purpose code: secretBytes of randomness
// hex-encoded, carried inside a link. Deliberately a different format from
// the verification code so the two can never be confused for each other.
func newResetCode(secretBytes int) (string, error) {
	if secretBytes < 16 {
		return "", errors.New("reset secret too short")
	}

	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return hex.EncodeToString(raw), nil
}

// validateCode classifies a submission. The check order is load-bearing:
// mismatch is reported before expiry, so probing with wrong codes never
// reveals whether a real code exists or has expired.
func validateCode(stored string, expiry int64, submitted string, now time.Time) codeStatus {
	if stored == "" || expiry == 0 {
		return codeUnset
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) != 1 {
		return codeMismatch
	}
	if now.Unix() >= expiry {
		return codeExpired
	}
	return codeValid
}

func isNumericString(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}
