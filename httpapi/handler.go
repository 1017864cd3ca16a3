package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	authkit "github.com/quillbox/authkit"
	"github.com/quillbox/authkit/middleware"
)

// Options tunes the HTTP adapter. Zero values fall back to the cookie name
// "token" and the engine's token TTL.
type Options struct {
	CookieName    string
	CookieTTL     time.Duration
	SecureCookies bool
	// CrossSiteCookies sets SameSite=None for frontends served from a
	// different origin. Requires SecureCookies.
	CrossSiteCookies bool
}

// Handler adapts an [authkit.Engine] to the JSON-over-HTTP surface the
// frontend consumes. Every response is the same envelope:
//
//	{"success": bool, "message": string, "errors": [...], "user": {...}}
type Handler struct {
	engine  *authkit.Engine
	cookies *CookieManager
}

func NewHandler(engine *authkit.Engine, opts Options) *Handler {
	ttl := opts.CookieTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handler{
		engine:  engine,
		cookies: NewCookieManager(opts.CookieName, ttl, opts.SecureCookies, opts.CrossSiteCookies),
	}
}

// Mount registers every route on mux. Verification endpoints sit behind the
// session guard; the reset flow is reachable without one, since its caller
// is locked out by definition.
func (h *Handler) Mount(mux *http.ServeMux) {
	guard := middleware.GuardWithCookie(h.engine, h.cookies.Name())

	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/logout", h.logout)
	mux.Handle("POST /api/auth/send-verify-otp", guard(http.HandlerFunc(h.sendVerifyCode)))
	mux.Handle("POST /api/auth/verify-email", guard(http.HandlerFunc(h.verifyEmail)))
	mux.HandleFunc("POST /api/auth/send-forget-password-otp", h.sendResetCode)
	mux.HandleFunc("POST /api/auth/reset-password/{code}", h.resetPassword)
	mux.Handle("GET /api/user/check-auth", guard(http.HandlerFunc(h.checkAuth)))
}

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Errors  []authkit.FieldError   `json:"errors,omitempty"`
	User    *authkit.PublicAccount `json:"user,omitempty"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	OTP string `json:"otp"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.engine.Register(requestContext(r), authkit.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.cookies.Set(w, result.Token)
	h.write(w, http.StatusCreated, envelope{
		Success: true,
		Message: "account created",
		User:    &result.Account,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.engine.Login(requestContext(r), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.cookies.Set(w, result.Token)
	h.write(w, http.StatusOK, envelope{
		Success: true,
		Message: "logged in",
		User:    &result.Account,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.engine.Logout(requestContext(r), h.cookies.Read(r))
	h.cookies.Clear(w)
	h.write(w, http.StatusOK, envelope{
		Success: true,
		Message: "logged out",
	})
}

func (h *Handler) sendVerifyCode(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, authkit.ErrUnauthorized)
		return
	}

	if err := h.engine.RequestEmailVerification(requestContext(r), accountID); err != nil {
		h.writeError(w, err)
		return
	}

	h.write(w, http.StatusOK, envelope{
		Success: true,
		Message: "verification code sent",
	})
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, authkit.ErrUnauthorized)
		return
	}

	var req verifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.engine.ConfirmEmailVerification(requestContext(r), accountID, req.OTP); err != nil {
		h.writeError(w, err)
		return
	}

	h.write(w, http.StatusOK, envelope{
		Success: true,
		Message: "email verified",
	})
}

func (h *Handler) sendResetCode(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.engine.RequestPasswordReset(requestContext(r), req.Email); err != nil {
		h.writeError(w, err)
		return
	}

	// Same response for known and unknown emails.
	h.write(w, http.StatusOK, envelope{
		Success: true,
		Message: "if the email exists, a reset link has been sent",
	})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.engine.ConfirmPasswordReset(requestContext(r), r.PathValue("code"), req.Password, req.ConfirmPassword)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.write(w, http.StatusOK, envelope{
		Success: true,
		Message: "password has been reset",
	})
}

func (h *Handler) checkAuth(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		h.writeError(w, authkit.ErrUnauthorized)
		return
	}

	account, err := h.engine.CheckSession(requestContext(r), accountID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.write(w, http.StatusOK, envelope{
		Success: true,
		User:    account,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.write(w, http.StatusBadRequest, envelope{
			Success: false,
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func (h *Handler) write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	resp := envelope{
		Success: false,
		Message: publicMessage(err),
	}
	if verr := authkit.AsValidationError(err); verr != nil {
		resp.Errors = verr.Fields
	}

	h.write(w, statusForError(err), resp)
}

// publicMessage keeps internal failure detail out of responses; everything
// else surfaces its sentinel text.
func publicMessage(err error) string {
	if errors.Is(err, authkit.ErrInternal) {
		return "internal error"
	}
	if verr := authkit.AsValidationError(err); verr != nil {
		return "invalid input"
	}
	return err.Error()
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, authkit.ErrValidation),
		errors.Is(err, authkit.ErrAlreadyVerified):
		return http.StatusBadRequest
	case errors.Is(err, authkit.ErrInvalidCredentials),
		errors.Is(err, authkit.ErrUnauthorized),
		errors.Is(err, authkit.ErrTokenInvalid),
		errors.Is(err, authkit.ErrInvalidCode),
		errors.Is(err, authkit.ErrExpiredCode):
		return http.StatusUnauthorized
	case errors.Is(err, authkit.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, authkit.ErrAccountExists),
		errors.Is(err, authkit.ErrResetCooldown):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// requestContext attaches the caller's IP for audit events.
func requestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return authkit.WithClientIP(r.Context(), host)
}
