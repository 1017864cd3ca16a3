package authkit

import (
	"context"
	"errors"
	"time"
)

// RequestEmailVerification issues a fresh verification code for the account
// and queues it for delivery. A previously issued code is superseded
// immediately; there is no cooldown on this flow, so a user who never
// received the email can always ask again.
func (e *Engine) RequestEmailVerification(ctx context.Context, accountID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	account, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.metricInc(MetricVerificationFailure)
			e.emitAudit(ctx, auditEventVerificationRequest, false, accountID, ErrAccountNotFound, nil)
			return ErrAccountNotFound
		}
		return e.failInternal(ctx, auditEventVerificationRequest, accountID, err)
	}

	if account.Verified {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationRequest, false, account.ID, ErrAlreadyVerified, nil)
		return ErrAlreadyVerified
	}

	code, err := newVerifyCode(e.config.Verification.Digits)
	if err != nil {
		return e.failInternal(ctx, auditEventVerificationRequest, account.ID, err)
	}
	expiry := time.Now().Add(e.config.Verification.TTL).Unix()

	if err := e.store.UpdateFields(ctx, account.ID, AccountUpdate{
		VerifyCode:       strPtr(code),
		VerifyCodeExpiry: int64Ptr(expiry),
	}); err != nil {
		return e.failInternal(ctx, auditEventVerificationRequest, account.ID, err)
	}

	e.emitNotify(Notification{
		Kind:  NotifyVerificationCode,
		Email: account.Email,
		Name:  account.Name,
		Code:  code,
	})

	e.metricInc(MetricVerificationRequest)
	e.emitAudit(ctx, auditEventVerificationRequest, true, account.ID, nil, nil)

	return nil
}

// ConfirmEmailVerification checks a submitted code and marks the account
// verified. Outcomes are checked in a fixed order: already verified, then
// code mismatch, then expiry. A wrong code therefore reads the same whether
// or not a real code exists or has lapsed.
//
// On success the verified flag is set and the stored code cleared in one
// store update, so a code can never be accepted twice.
func (e *Engine) ConfirmEmailVerification(ctx context.Context, accountID, code string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	if code == "" {
		verr := &ValidationError{Fields: []FieldError{
			{Field: "otp", Message: "verification code is required"},
		}}
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, accountID, verr, map[string]string{
			"reason": "validation",
		})
		return verr
	}

	account, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.metricInc(MetricVerificationFailure)
			e.emitAudit(ctx, auditEventVerificationConfirm, false, accountID, ErrAccountNotFound, nil)
			return ErrAccountNotFound
		}
		return e.failInternal(ctx, auditEventVerificationConfirm, accountID, err)
	}

	if account.Verified {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, account.ID, ErrAlreadyVerified, nil)
		return ErrAlreadyVerified
	}

	// Malformed submissions are plain mismatches; they compare against the
	// stored code like any other wrong guess would.
	if len(code) != e.config.Verification.Digits || !isNumericString(code) {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, account.ID, ErrInvalidCode, map[string]string{
			"reason": "malformed_code",
		})
		return ErrInvalidCode
	}

	switch validateCode(account.VerifyCode, account.VerifyCodeExpiry, code, time.Now()) {
	case codeUnset, codeMismatch:
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, account.ID, ErrInvalidCode, nil)
		return ErrInvalidCode
	case codeExpired:
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, account.ID, ErrExpiredCode, nil)
		return ErrExpiredCode
	}

	if err := e.store.UpdateFields(ctx, account.ID, AccountUpdate{
		Verified:         boolPtr(true),
		VerifyCode:       strPtr(""),
		VerifyCodeExpiry: int64Ptr(0),
	}); err != nil {
		return e.failInternal(ctx, auditEventVerificationConfirm, account.ID, err)
	}

	e.emitNotify(Notification{
		Kind:  NotifyWelcomeVerified,
		Email: account.Email,
		Name:  account.Name,
	})

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, account.ID, nil, nil)

	return nil
}
