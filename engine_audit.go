package authkit

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterFailure      = "register_failure"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLogout               = "logout"
	auditEventSessionCheck         = "session_check"
	auditEventVerificationRequest  = "verification_request"
	auditEventVerificationConfirm  = "verification_confirm"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
)

// auditErrorCode collapses an operation error to a stable short code so
// sinks never see raw error text.
func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAccountExists):
		return "account_exists"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrAlreadyVerified):
		return "already_verified"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrExpiredCode):
		return "expired_code"
	case errors.Is(err, ErrResetCooldown):
		return "reset_cooldown"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	default:
		return "internal"
	}
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, accountID string, err error, metadata map[string]string) {
	if e.audit == nil {
		return
	}

	e.audit.dispatch(AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Error:     auditErrorCode(err),
		Metadata:  metadata,
	})
}
