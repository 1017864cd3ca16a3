package authkit

import (
	"context"
	"errors"
	"log"
	"time"
)

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords both collapse to [ErrInvalidCredentials]; the caller
// learns nothing about which part failed or whether the account exists.
func (e *Engine) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if e == nil || e.store == nil || e.hasher == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}()
	}

	var fields []FieldError
	if normalizeEmail(email) == "" {
		fields = append(fields, FieldError{Field: "email", Message: "email is required"})
	}
	if password == "" {
		fields = append(fields, FieldError{Field: "password", Message: "password is required"})
	}
	if len(fields) > 0 {
		verr := &ValidationError{Fields: fields}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", verr, map[string]string{
			"reason": "validation",
		})
		return nil, verr
	}

	account, err := e.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, map[string]string{
				"reason": "account_not_found",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, e.failInternal(ctx, auditEventLoginFailure, "", err)
	}

	ok, err := e.hasher.Verify(password, account.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, ErrInvalidCredentials, map[string]string{
			"reason": "password_mismatch",
		})
		return nil, ErrInvalidCredentials
	}

	if needsUpgrade, err := e.hasher.NeedsUpgrade(account.PasswordHash); err == nil && needsUpgrade {
		if upgraded, err := e.hasher.Hash(password); err == nil {
			// Rehash is best-effort and must not block a successful login.
			if err := e.store.UpdateFields(ctx, account.ID, AccountUpdate{PasswordHash: strPtr(upgraded)}); err != nil {
				log.Print("authkit: password hash upgrade update failed")
			}
		} else {
			log.Print("authkit: password hash upgrade generation failed")
		}
	}
	password = ""

	token, err := e.tokens.Issue(account.ID)
	if err != nil {
		return nil, e.failInternal(ctx, auditEventLoginFailure, account.ID, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, nil, nil)

	return &AuthResult{
		Account: account.Public(),
		Token:   token,
	}, nil
}

// Logout records the end of a session. Tokens are stateless, so there is
// nothing to revoke server-side; the transport layer clears the cookie and
// Logout always succeeds, even for a missing or invalid token.
func (e *Engine) Logout(ctx context.Context, token string) {
	if e == nil {
		return
	}

	var accountID string
	if token != "" && e.tokens != nil {
		if claims, err := e.tokens.Parse(token); err == nil {
			accountID = claims.UID
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, accountID, nil, nil)
}

// VerifyToken checks a session token's signature and expiry and returns the
// account ID it was issued for. It does not touch the store; a token can
// outlive its account by up to the token TTL.
func (e *Engine) VerifyToken(token string) (string, error) {
	if e == nil || e.tokens == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(token)
	if err != nil {
		e.metricInc(MetricTokenInvalid)
		return "", ErrTokenInvalid
	}

	return claims.UID, nil
}

// CheckSession returns the public view of an authenticated account. Token
// verification happens before this, in [VerifyToken] or the HTTP guard; a
// valid token whose account no longer exists returns [ErrAccountNotFound].
func (e *Engine) CheckSession(ctx context.Context, accountID string) (*PublicAccount, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	e.metricInc(MetricSessionCheck)

	account, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.emitAudit(ctx, auditEventSessionCheck, false, accountID, ErrAccountNotFound, map[string]string{
				"reason": "account_gone",
			})
			return nil, ErrAccountNotFound
		}
		return nil, e.failInternal(ctx, auditEventSessionCheck, accountID, err)
	}

	public := account.Public()
	e.emitAudit(ctx, auditEventSessionCheck, true, account.ID, nil, nil)

	return &public, nil
}
