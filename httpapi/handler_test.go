package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authkit "github.com/quillbox/authkit"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []authkit.Notification
}

func (n *recordingNotifier) Send(_ context.Context, msg authkit.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) waitFor(t *testing.T, kind authkit.NotificationKind) authkit.Notification {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n.mu.Lock()
		for i := len(n.sent) - 1; i >= 0; i-- {
			if n.sent[i].Kind == kind {
				msg := n.sent[i]
				n.mu.Unlock()
				return msg
			}
		}
		n.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for notification %q", kind)
	return authkit.Notification{}
}

func newTestServer(t *testing.T) (*httptest.Server, *recordingNotifier) {
	t.Helper()

	server, notifier, _ := newTestServerWithOptions(t, Options{})
	return server, notifier
}

func newTestServerWithOptions(t *testing.T, opts Options) (*httptest.Server, *recordingNotifier, *authkit.RedisAccountStore) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := authkit.DefaultConfig()
	cfg.Token.Secret = []byte("httpapi-test-secret-httpapi-1234")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Notify.ClientURL = "http://localhost:5173"

	store := authkit.NewRedisAccountStore(rdb, cfg.Store.RedisPrefix)

	notifier := &recordingNotifier{}
	engine, err := authkit.New().WithConfig(cfg).WithStore(store).WithNotifier(notifier).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	mux := http.NewServeMux()
	NewHandler(engine, opts).Mount(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, notifier, store
}

type apiResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Errors  []authkit.FieldError `json:"errors"`
	User    *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Verified bool   `json:"isVerified"`
	} `json:"user"`
}

func postJSON(t *testing.T, client *http.Client, url string, body any) (*http.Response, apiResponse) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func newCookieClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func TestRegisterEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	client := newCookieClient(t)

	resp, body := postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "secret1",
	})

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if !body.Success || body.User == nil {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.User.Email != "alice@example.com" || body.User.Verified {
		t.Fatalf("unexpected user: %+v", body.User)
	}

	cookie := sessionCookie(resp)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("session cookie not set")
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HTTP-only")
	}
}

func TestRegisterValidationEnvelope(t *testing.T) {
	server, _ := newTestServer(t)
	client := newCookieClient(t)

	resp, body := postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name":     "",
		"email":    "bad",
		"password": "x",
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body.Success || len(body.Errors) != 3 {
		t.Fatalf("expected 3 field errors, got %+v", body)
	}
}

func TestDuplicateRegisterConflict(t *testing.T) {
	server, _ := newTestServer(t)
	client := newCookieClient(t)

	payload := map[string]string{"name": "Alice", "email": "alice@example.com", "password": "secret1"}
	postJSON(t, client, server.URL+"/api/auth/register", payload)

	resp, _ := postJSON(t, client, server.URL+"/api/auth/register", payload)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestLoginLogoutCheckAuth(t *testing.T) {
	server, _ := newTestServer(t)
	client := newCookieClient(t)

	postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})

	resp, body := postJSON(t, client, server.URL+"/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "secret1",
	})
	if resp.StatusCode != http.StatusOK || body.User == nil {
		t.Fatalf("login failed: %d %+v", resp.StatusCode, body)
	}

	checkResp, err := client.Get(server.URL + "/api/user/check-auth")
	if err != nil {
		t.Fatalf("check-auth failed: %v", err)
	}
	if checkResp.StatusCode != http.StatusOK {
		t.Fatalf("check-auth status = %d, want 200", checkResp.StatusCode)
	}
	checkResp.Body.Close()

	resp, _ = postJSON(t, client, server.URL+"/api/auth/logout", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}
	cookie := sessionCookie(resp)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Fatal("logout did not clear the cookie")
	}

	checkResp, err = client.Get(server.URL + "/api/user/check-auth")
	if err != nil {
		t.Fatalf("check-auth failed: %v", err)
	}
	defer checkResp.Body.Close()
	if checkResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("check-auth after logout = %d, want 401", checkResp.StatusCode)
	}
}

func TestWrongCredentialsUnauthorized(t *testing.T) {
	server, _ := newTestServer(t)
	client := newCookieClient(t)

	postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})

	resp, _ := postJSON(t, client, server.URL+"/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestVerifyEmailEndpoints(t *testing.T) {
	server, notifier := newTestServer(t)
	client := newCookieClient(t)

	postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})

	resp, _ := postJSON(t, client, server.URL+"/api/auth/send-verify-otp", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send-verify-otp status = %d, want 200", resp.StatusCode)
	}

	code := notifier.waitFor(t, authkit.NotifyVerificationCode).Code

	resp, _ = postJSON(t, client, server.URL+"/api/auth/verify-email", map[string]string{"otp": code})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify-email status = %d, want 200", resp.StatusCode)
	}

	// The guard rejects these endpoints without a session.
	anon := newCookieClient(t)
	anonResp, err := anon.Post(server.URL+"/api/auth/send-verify-otp", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		t.Fatalf("anonymous request failed: %v", err)
	}
	defer anonResp.Body.Close()
	if anonResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous send-verify-otp = %d, want 401", anonResp.StatusCode)
	}
}

func TestPasswordResetEndpoints(t *testing.T) {
	server, notifier := newTestServer(t)
	client := newCookieClient(t)

	postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})

	// Unknown email gets the same response as a known one.
	resp, body := postJSON(t, client, server.URL+"/api/auth/send-forget-password-otp", map[string]string{
		"email": "nobody@example.com",
	})
	if resp.StatusCode != http.StatusOK || !body.Success {
		t.Fatalf("unknown email: %d %+v", resp.StatusCode, body)
	}

	resp, _ = postJSON(t, client, server.URL+"/api/auth/send-forget-password-otp", map[string]string{
		"email": "alice@example.com",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send reset status = %d, want 200", resp.StatusCode)
	}

	// Immediate resend hits the cooldown.
	resp, _ = postJSON(t, client, server.URL+"/api/auth/send-forget-password-otp", map[string]string{
		"email": "alice@example.com",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("cooldown status = %d, want 409", resp.StatusCode)
	}

	code := notifier.waitFor(t, authkit.NotifyResetLink).Code

	resp, _ = postJSON(t, client, server.URL+"/api/auth/reset-password/"+code, map[string]string{
		"password":        "newsecret1",
		"confirmPassword": "newsecret1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", resp.StatusCode)
	}

	// Reused code 404s, new password logs in.
	resp, _ = postJSON(t, client, server.URL+"/api/auth/reset-password/"+code, map[string]string{
		"password":        "othersecret1",
		"confirmPassword": "othersecret1",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("reused code status = %d, want 404", resp.StatusCode)
	}

	resp, _ = postJSON(t, client, server.URL+"/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "newsecret1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with new password = %d, want 200", resp.StatusCode)
	}
}

func TestWrongVerifyCodeUnauthorized(t *testing.T) {
	server, notifier := newTestServer(t)
	client := newCookieClient(t)

	postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})
	postJSON(t, client, server.URL+"/api/auth/send-verify-otp", struct{}{})

	code := notifier.waitFor(t, authkit.NotifyVerificationCode).Code
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	resp, body := postJSON(t, client, server.URL+"/api/auth/verify-email", map[string]string{"otp": wrong})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong code status = %d, want 401", resp.StatusCode)
	}
	if body.Success {
		t.Fatal("wrong code must not report success")
	}

	// The real code still works afterwards.
	resp, _ = postJSON(t, client, server.URL+"/api/auth/verify-email", map[string]string{"otp": code})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("right code status = %d, want 200", resp.StatusCode)
	}
}

func TestExpiredVerifyCodeUnauthorized(t *testing.T) {
	server, notifier, store := newTestServerWithOptions(t, Options{})
	client := newCookieClient(t)

	_, registered := postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})
	postJSON(t, client, server.URL+"/api/auth/send-verify-otp", struct{}{})

	code := notifier.waitFor(t, authkit.NotifyVerificationCode).Code

	expired := time.Now().Add(-time.Minute).Unix()
	err := store.UpdateFields(context.Background(), registered.User.ID, authkit.AccountUpdate{
		VerifyCodeExpiry: &expired,
	})
	if err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}

	resp, _ := postJSON(t, client, server.URL+"/api/auth/verify-email", map[string]string{"otp": code})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expired code status = %d, want 401", resp.StatusCode)
	}
}

func TestExpiredResetCodeUnauthorized(t *testing.T) {
	server, notifier, store := newTestServerWithOptions(t, Options{})
	client := newCookieClient(t)

	_, registered := postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})
	postJSON(t, client, server.URL+"/api/auth/send-forget-password-otp", map[string]string{
		"email": "alice@example.com",
	})

	code := notifier.waitFor(t, authkit.NotifyResetLink).Code

	expired := time.Now().Add(-time.Minute).Unix()
	err := store.UpdateFields(context.Background(), registered.User.ID, authkit.AccountUpdate{
		ResetCodeExpiry: &expired,
	})
	if err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}

	resp, _ := postJSON(t, client, server.URL+"/api/auth/reset-password/"+code, map[string]string{
		"password":        "newsecret1",
		"confirmPassword": "newsecret1",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expired reset code status = %d, want 401", resp.StatusCode)
	}
}

func TestAlreadyVerifiedBadRequest(t *testing.T) {
	server, notifier := newTestServer(t)
	client := newCookieClient(t)

	postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})
	postJSON(t, client, server.URL+"/api/auth/send-verify-otp", struct{}{})

	code := notifier.waitFor(t, authkit.NotifyVerificationCode).Code
	postJSON(t, client, server.URL+"/api/auth/verify-email", map[string]string{"otp": code})

	resp, _ := postJSON(t, client, server.URL+"/api/auth/send-verify-otp", struct{}{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("send-verify-otp after verification = %d, want 400", resp.StatusCode)
	}
}

func TestCustomCookieName(t *testing.T) {
	server, _, _ := newTestServerWithOptions(t, Options{CookieName: "session"})
	client := newCookieClient(t)

	resp, _ := postJSON(t, client, server.URL+"/api/auth/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "session" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("session cookie not set under the configured name")
	}

	// The guard must read the same name the handler writes.
	checkResp, err := client.Get(server.URL + "/api/user/check-auth")
	if err != nil {
		t.Fatalf("check-auth failed: %v", err)
	}
	defer checkResp.Body.Close()
	if checkResp.StatusCode != http.StatusOK {
		t.Fatalf("check-auth with fresh session = %d, want 200", checkResp.StatusCode)
	}

	verifyResp, _ := postJSON(t, client, server.URL+"/api/auth/send-verify-otp", struct{}{})
	if verifyResp.StatusCode != http.StatusOK {
		t.Fatalf("send-verify-otp with fresh session = %d, want 200", verifyResp.StatusCode)
	}
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}
