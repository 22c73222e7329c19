package providerAuth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/providerAuth/internal"
	internalaudit "github.com/MrEthical07/providerAuth/internal/audit"
	"github.com/MrEthical07/providerAuth/internal/rate"
	"github.com/MrEthical07/providerAuth/jwt"
	"github.com/MrEthical07/providerAuth/password"
	"github.com/MrEthical07/providerAuth/session"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it during initialization and call
// Build once; a Builder cannot be reused.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials store.CredentialStore
	ledger      store.AttemptLedger
	tokens      store.TokenStore

	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore sets the principal store. If it also implements
// [store.PhoneDirectory], non-email identifiers are looked up by phone.
func (b *Builder) WithCredentialStore(s store.CredentialStore) *Builder {
	b.credentials = s
	return b
}

// WithAttemptLedger sets the login-attempt ledger.
func (b *Builder) WithAttemptLedger(l store.AttemptLedger) *Builder {
	b.ledger = l
	return b
}

// WithTokenStore sets the refresh-token store. When unset, Build uses a
// Redis store over the client passed to [Builder.WithRedis].
func (b *Builder) WithTokenStore(s store.TokenStore) *Builder {
	b.tokens = s
	return b
}

// WithRedis sets the Redis client backing the default token store and the
// registration throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Nil discards logs.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the engine clock, including token issue and expiry
// checks. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready [Engine].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}
	if b.ledger == nil {
		return nil, errors.New("attempt ledger required")
	}
	tokens := b.tokens
	if tokens == nil {
		if b.redis == nil {
			return nil, errors.New("token store or redis client required")
		}
		tokens = session.NewStore(b.redis, cfg.Tokens.RedisPrefix, 0)
	}
	phones, _ := b.credentials.(store.PhoneDirectory)

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}

	// -------- TOKEN CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.Tokens.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Tokens.PrivateKey),
		PublicKey:     cloneBytes(cfg.Tokens.PublicKey),
		Issuer:        cfg.Tokens.Issuer,
		Audience:      cfg.Tokens.Audience,
		Leeway:        cfg.Tokens.Leeway,
		RequireIAT:    true,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	tokenHasher, err := internal.NewTokenHasher(cfg.tokenHashKey())
	if err != nil {
		return nil, err
	}

	// -------- REGISTRATION THROTTLE --------
	var registration *rate.Limiter
	if cfg.Registration.Enabled {
		var counters rate.Store
		if b.redis != nil {
			counters = rate.NewRedisStore(b.redis)
		} else {
			counters = rate.NewMemoryStore(now)
		}
		registration, err = rate.New(counters, rate.Config{
			Prefix:      cfg.Registration.RedisPrefix,
			Window:      cfg.Registration.Window,
			MaxRequests: cfg.Registration.MaxRequests,
			FailOpen:    cfg.Registration.FailOpen,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	sink := b.auditSink
	if sink == nil {
		sink = NoOpSink{}
	}

	engine := &Engine{
		config:       cfg,
		logger:       logger,
		now:          now,
		credentials:  b.credentials,
		ledger:       b.ledger,
		tokens:       tokens,
		hasher:       hasher,
		tokenHasher:  tokenHasher,
		jwtManager:   jm,
		registration: registration,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink),
		metrics: NewMetrics(cfg.Metrics),
	}
	engine.flow = engine.buildFlows(phones)

	b.built = true
	return engine, nil
}
