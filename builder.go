package authkit

import (
	"errors"

	"github.com/quillbox/authkit/jwt"
	"github.com/quillbox/authkit/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it with the With* methods and
// call Build once; a Builder is not safe for concurrent use.
type Builder struct {
	config Config
	redis  *redis.Client

	store     AccountStore
	notifier  Notifier
	auditSink AuditSink

	built bool
}

// New starts a builder with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client backing the bundled Redis account store.
// Ignored when WithStore provides a store directly.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithStore supplies a custom account store instead of the bundled Redis
// one.
func (b *Builder) WithStore(store AccountStore) *Builder {
	b.store = store
	return b
}

// WithNotifier supplies the delivery channel for verification codes, reset
// links, and welcome messages.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink enables audit emission into the given sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the dependencies, and starts
// the background dispatchers. A Builder can build at most one engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("account store or redis client required")
		}
		store = NewRedisAccountStore(b.redis, cfg.Store.RedisPrefix)
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Token.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		Secret:        append([]byte(nil), cfg.Token.Secret...),
		PublicKey:     append([]byte(nil), cfg.Token.PublicKey...),
		Issuer:        cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		store:   store,
		hasher:  hasher,
		tokens:  tokens,
		metrics: NewMetrics(cfg.Metrics),
	}

	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = NoOpSink{}
		}
		engine.audit = newAuditDispatcher(sink, cfg.Audit.BufferSize, cfg.Audit.DropIfFull)
	}

	if cfg.Notify.Enabled {
		notifier := b.notifier
		if notifier == nil {
			notifier = NoOpNotifier{}
		}
		engine.notify = newNotifyDispatcher(notifier, engine.metrics, cfg.Notify.BufferSize, cfg.Notify.DropIfFull)
	}

	b.built = true

	return engine, nil
}
