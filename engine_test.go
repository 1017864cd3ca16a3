package authkit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("test-secret-test-secret-test-1234")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Notify.ClientURL = "http://localhost:5173"
	cfg.Metrics.Enabled = true
	return cfg
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []Notification
	ch   chan Notification
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{
		ch: make(chan Notification, 32),
	}
}

func (c *captureNotifier) Send(_ context.Context, n Notification) error {
	c.mu.Lock()
	c.sent = append(c.sent, n)
	c.mu.Unlock()
	c.ch <- n
	return nil
}

func (c *captureNotifier) wait(t *testing.T, kind NotificationKind) Notification {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-c.ch:
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("timed out waiting for notification %q", kind)
		}
	}
}

func newTestEngine(t *testing.T) (*Engine, *captureNotifier) {
	t.Helper()

	_, rdb := newTestRedis(t)
	notifier := newCaptureNotifier()

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithNotifier(notifier).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, notifier
}

func mustRegister(t *testing.T, engine *Engine, email string) *AuthResult {
	t.Helper()

	result, err := engine.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    email,
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return result
}
