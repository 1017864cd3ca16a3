// Command authkitd runs the authentication service as a standalone HTTP
// daemon backed by Redis.
//
// Configuration comes from the environment:
//
//	ADDR          listen address (default ":8080")
//	REDIS_ADDR    redis address (default "localhost:6379")
//	TOKEN_SECRET  HMAC secret for session tokens (required)
//	CLIENT_URL    frontend origin used in reset links (default "http://localhost:5173")
//	SECURE_COOKIES  "1" to mark cookies Secure and SameSite=None
//	METRICS       "1" to collect counters and expose GET /metrics
//	AUDIT_LOG     file path for JSON-lines audit events (optional)
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authkit "github.com/quillbox/authkit"
	"github.com/quillbox/authkit/httpapi"
	"github.com/quillbox/authkit/metrics/export/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		log.Fatal("TOKEN_SECRET is required")
	}

	cfg := authkit.DefaultConfig()
	cfg.Token.Secret = []byte(secret)
	cfg.Notify.ClientURL = envOr("CLIENT_URL", "http://localhost:5173")
	cfg.Metrics.Enabled = os.Getenv("METRICS") == "1"
	cfg.Metrics.EnableLatencyHistograms = cfg.Metrics.Enabled

	rdb := redis.NewClient(&redis.Options{Addr: envOr("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatal("redis ping: ", err)
	}

	builder := authkit.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithNotifier(logNotifier{})

	if path := os.Getenv("AUDIT_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			log.Fatal("open audit log: ", err)
		}
		defer f.Close()
		builder = builder.WithAuditSink(authkit.NewJSONWriterSink(f))
	}

	engine, err := builder.Build()
	if err != nil {
		log.Fatal("engine build: ", err)
	}
	defer engine.Close()

	secure := os.Getenv("SECURE_COOKIES") == "1"

	mux := http.NewServeMux()
	handler := httpapi.NewHandler(engine, httpapi.Options{
		CookieTTL:        cfg.Token.TTL,
		SecureCookies:    secure,
		CrossSiteCookies: secure,
	})
	handler.Mount(mux)

	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(engine).Handler())
	}

	server := &http.Server{
		Addr:              envOr("ADDR", ":8080"),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Print("listening on ", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Print("shutdown: ", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// logNotifier stands in for a real mail transport; deployments pass their
// own Notifier via the library API instead of running authkitd.
type logNotifier struct{}

func (logNotifier) Send(_ context.Context, n authkit.Notification) error {
	switch n.Kind {
	case authkit.NotifyVerificationCode:
		log.Printf("notify %s: verification code %s for %s", n.Kind, n.Code, n.Email)
	case authkit.NotifyResetLink:
		log.Printf("notify %s: reset link %s for %s", n.Kind, n.ResetURL, n.Email)
	default:
		log.Printf("notify %s: %s", n.Kind, n.Email)
	}
	return nil
}
