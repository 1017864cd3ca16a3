package authkit

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// RequestPasswordReset issues a reset code for the account behind email and
// queues a link carrying it. Unknown emails return nil exactly like known
// ones, padded with a small random delay, so the endpoint cannot be used to
// probe which addresses have accounts.
//
// While a previously issued code is still live the request is refused with
// [ErrResetCooldown]; the code's own lifetime doubles as the resend
// cooldown. Unlike the anti-enumeration path above, this rejection is
// visible, but it only ever fires for an email that just received a reset
// link, so it confirms nothing the caller does not already know.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" {
		verr := &ValidationError{Fields: []FieldError{
			{Field: "email", Message: "email is required"},
		}}
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", verr, map[string]string{
			"reason": "validation",
		})
		return verr
	}

	account, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			if derr := sleepEnumerationDelay(ctx); derr != nil {
				return derr
			}
			e.metricInc(MetricResetRequest)
			e.emitAudit(ctx, auditEventPasswordResetRequest, true, "", nil, map[string]string{
				"outcome": "unknown_email",
			})
			return nil
		}
		return e.failInternal(ctx, auditEventPasswordResetRequest, "", err)
	}

	now := time.Now()
	if account.ResetCode != "" && account.ResetCodeExpiry != 0 && now.Unix() < account.ResetCodeExpiry {
		e.metricInc(MetricResetCooldown)
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, account.ID, ErrResetCooldown, nil)
		return ErrResetCooldown
	}

	code, err := newResetCode(e.config.PasswordReset.SecretBytes)
	if err != nil {
		return e.failInternal(ctx, auditEventPasswordResetRequest, account.ID, err)
	}
	expiry := now.Add(e.config.PasswordReset.TTL).Unix()

	if err := e.store.UpdateFields(ctx, account.ID, AccountUpdate{
		ResetCode:       strPtr(code),
		ResetCodeExpiry: int64Ptr(expiry),
	}); err != nil {
		return e.failInternal(ctx, auditEventPasswordResetRequest, account.ID, err)
	}

	e.emitNotify(Notification{
		Kind:     NotifyResetLink,
		Email:    account.Email,
		Name:     account.Name,
		Code:     code,
		ResetURL: e.config.Notify.ClientURL + "/reset-password/" + code,
	})

	e.metricInc(MetricResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, account.ID, nil, nil)

	return nil
}

// ConfirmPasswordReset trades a reset code for a new password. The code is
// the only credential: it identifies the account, so an unknown code yields
// [ErrAccountNotFound] and a known but lapsed one [ErrExpiredCode].
//
// The new hash is written and the code cleared in one store update, making
// the code single-use even under concurrent confirms.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, code, newPassword, confirmPassword string) error {
	if e == nil || e.store == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	var fields []FieldError
	if code == "" {
		fields = append(fields, FieldError{Field: "otp", Message: "reset code is required"})
	}
	if verr := validateNewPassword(newPassword, confirmPassword, e.config.Password.MinLength); verr != nil {
		fields = append(fields, verr.Fields...)
	}
	if len(fields) > 0 {
		verr := &ValidationError{Fields: fields}
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", verr, map[string]string{
			"reason": "validation",
		})
		return verr
	}

	account, err := e.store.FindByResetCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.metricInc(MetricResetConfirmFailure)
			e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", ErrAccountNotFound, map[string]string{
				"reason": "unknown_code",
			})
			return ErrAccountNotFound
		}
		return e.failInternal(ctx, auditEventPasswordResetConfirm, "", err)
	}

	if account.ResetCodeExpiry == 0 || time.Now().Unix() >= account.ResetCodeExpiry {
		e.metricInc(MetricResetConfirmFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, account.ID, ErrExpiredCode, nil)
		return ErrExpiredCode
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return e.failInternal(ctx, auditEventPasswordResetConfirm, account.ID, err)
	}

	if err := e.store.UpdateFields(ctx, account.ID, AccountUpdate{
		PasswordHash:    strPtr(hash),
		ResetCode:       strPtr(""),
		ResetCodeExpiry: int64Ptr(0),
	}); err != nil {
		return e.failInternal(ctx, auditEventPasswordResetConfirm, account.ID, err)
	}

	e.emitNotify(Notification{
		Kind:  NotifyResetSuccess,
		Email: account.Email,
		Name:  account.Name,
	})

	e.metricInc(MetricResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, account.ID, nil, nil)

	return nil
}

// sleepEnumerationDelay pads the unknown-email path of a reset request so
// its latency blends in with the path that generates and stores a code.
func sleepEnumerationDelay(ctx context.Context) error {
	minMs := int64(20)
	maxMs := int64(40)
	span := maxMs - minMs + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return err
	}

	delay := time.Duration(minMs+n.Int64()) * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
