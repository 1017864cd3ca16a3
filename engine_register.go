package authkit

import (
	"context"
	"errors"
	"fmt"
)

// Register creates an account, issues a session token for it, and queues a
// welcome notification. The account starts unverified; verification is a
// separate explicit flow.
//
// A duplicate email returns [ErrAccountExists] whether it is caught by the
// pre-insert lookup or by the store's uniqueness constraint.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if e == nil || e.store == nil || e.hasher == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	if verr := validateRegisterInput(in, e.config.Password.MinLength); verr != nil {
		e.metricInc(MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", verr, map[string]string{
			"reason": "validation",
		})
		return nil, verr
	}

	email := normalizeEmail(in.Email)

	existing, err := e.store.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrStoreNotFound) {
		return nil, e.failInternal(ctx, auditEventRegisterFailure, "", err)
	}
	if existing != nil {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterFailure, false, existing.ID, ErrAccountExists, map[string]string{
			"reason": "duplicate_email",
		})
		return nil, ErrAccountExists
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, e.failInternal(ctx, auditEventRegisterFailure, "", err)
	}

	account, err := e.store.Insert(ctx, &Account{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		// Lost the race against a concurrent registration of the same email.
		if errors.Is(err, ErrStoreDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", ErrAccountExists, map[string]string{
				"reason": "duplicate_email",
			})
			return nil, ErrAccountExists
		}
		return nil, e.failInternal(ctx, auditEventRegisterFailure, "", err)
	}

	token, err := e.tokens.Issue(account.ID)
	if err != nil {
		return nil, e.failInternal(ctx, auditEventRegisterFailure, account.ID, err)
	}

	e.emitNotify(Notification{
		Kind:  NotifyWelcome,
		Email: account.Email,
		Name:  account.Name,
	})

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, account.ID, nil, nil)

	return &AuthResult{
		Account: account.Public(),
		Token:   token,
	}, nil
}

// failInternal records an unexpected backend failure and returns the
// caller-facing ErrInternal. The underlying error reaches the audit stream
// only as a metadata string, never the caller.
func (e *Engine) failInternal(ctx context.Context, eventType, accountID string, err error) error {
	e.metricInc(MetricInternalError)
	e.emitAudit(ctx, eventType, false, accountID, ErrInternal, map[string]string{
		"cause": err.Error(),
	})
	return fmt.Errorf("%w: %v", ErrInternal, err)
}
