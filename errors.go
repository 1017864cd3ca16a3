package authkit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed caller input. Use [AsValidationError] to
	// recover the per-field messages.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials is returned by Login for both an unknown email
	// and a wrong password. The message is deliberately generic to prevent
	// account enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized marks a request without a valid authenticated session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAccountExists is returned when registering an email that already has
	// an account.
	ErrAccountExists = errors.New("account with this email already exists")
	// ErrAccountNotFound is returned when no account matches the given
	// identity or reset code.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAlreadyVerified is returned by the verification flows once the
	// account's verified flag is set. The flag never transitions back.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrInvalidCode is returned when a submitted one-time code is unset or
	// does not match the stored code. Mismatch takes precedence over expiry.
	ErrInvalidCode = errors.New("invalid one-time code")
	// ErrExpiredCode is returned when a matching one-time code has passed its
	// expiry timestamp.
	ErrExpiredCode = errors.New("one-time code expired")
	// ErrResetCooldown is returned when a password reset is requested while a
	// previously issued reset code is still unexpired.
	ErrResetCooldown = errors.New("reset code already sent, wait before retrying")
	// ErrTokenInvalid covers every session token failure: malformed, bad
	// signature, or expired. Callers are not told which.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrInternal is the generic boundary error for unexpected store or
	// hashing failures. Details go to the audit stream, never to the caller.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned when an Engine is used before Build
	// completed or after a dependency was left unset.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrStoreNotFound is the sentinel an [AccountStore] implementation must
	// return when no record matches a lookup.
	ErrStoreNotFound = errors.New("store: account not found")
	// ErrStoreDuplicateEmail is the sentinel an [AccountStore] implementation
	// must return when Insert would violate email uniqueness.
	ErrStoreDuplicateEmail = errors.New("store: duplicate email")
)

// FieldError carries one per-field validation message, mirroring the
// request surface's {field, message} error objects.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates the field errors of one rejected input. It
// unwraps to [ErrValidation] so boundaries can classify it with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}

	var b strings.Builder
	b.WriteString("invalid input: ")
	for i, f := range e.Fields {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", f.Field, f.Message)
	}
	return b.String()
}

// Unwrap makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// AsValidationError extracts a *ValidationError from an error chain, or
// returns nil when err is not a validation failure.
func AsValidationError(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
