package providerAuth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/providerAuth/password"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/MrEthical07/providerAuth/store/memory"
	"github.com/google/uuid"
)

const (
	testEmail    = "dr.house@example.com"
	testPhone    = "+15550100"
	testPassword = "correct-horse-battery"
	testIP       = "203.0.113.7"
	testUA       = "providerAuth-test/1.0"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testConfig keeps the documented policy defaults but uses cheap Argon2
// parameters.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Tokens.PrivateKey = testSigningKey
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 256
	cfg.Audit.DropIfFull = false
	cfg.Metrics.Enabled = true
	return cfg
}

type testEnv struct {
	engine      *Engine
	clock       *testClock
	credentials *memory.Credentials
	ledger      *memory.Ledger
	tokens      *memory.Tokens
	sink        *ChannelSink
	principal   *store.Principal
}

type envOptions struct {
	credentials store.CredentialStore
	ledger      store.AttemptLedger
	tokens      store.TokenStore
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	return newTestEnvWith(t, cfg, nil)
}

// newTestEnvWith lets wrap replace any of the memory stores, typically with
// a fault-injecting wrapper around them.
func newTestEnvWith(t *testing.T, cfg Config, wrap func(*testEnv) envOptions) *testEnv {
	t.Helper()

	env := &testEnv{
		clock:       newTestClock(),
		credentials: memory.NewCredentials(),
		ledger:      memory.NewLedger(),
		tokens:      memory.NewTokens(),
		sink:        NewChannelSink(256),
	}
	env.principal = env.seed(t, cfg, testEmail, testPhone, func(p *store.Principal) {})

	var opts envOptions
	if wrap != nil {
		opts = wrap(env)
	}

	var credentials store.CredentialStore = env.credentials
	if opts.credentials != nil {
		credentials = opts.credentials
	}
	var ledger store.AttemptLedger = env.ledger
	if opts.ledger != nil {
		ledger = opts.ledger
	}
	var tokens store.TokenStore = env.tokens
	if opts.tokens != nil {
		tokens = opts.tokens
	}

	engine, err := New().
		WithConfig(cfg).
		WithCredentialStore(credentials).
		WithAttemptLedger(ledger).
		WithTokenStore(tokens).
		WithAuditSink(env.sink).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

// seed stores an active, verified principal hashed with cfg's parameters.
func (env *testEnv) seed(t *testing.T, cfg Config, email, phone string, mutate func(*store.Principal)) *store.Principal {
	t.Helper()
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	p := &store.Principal{
		ID:                 uuid.New(),
		Email:              email,
		PhoneNumber:        phone,
		FirstName:          "Gregory",
		LastName:           "House",
		Specialization:     "Diagnostic Medicine",
		VerificationStatus: "verified",
		PasswordHash:       hash,
		Active:             true,
		EmailVerified:      true,
		CreatedAt:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	mutate(p)
	if err := env.credentials.Put(p); err != nil {
		t.Fatalf("seed principal: %v", err)
	}
	return p
}

func (env *testEnv) login(rememberMe bool) (*LoginResult, error) {
	return env.engine.Login(context.Background(), LoginRequest{
		Identifier: testEmail,
		Password:   testPassword,
		RememberMe: rememberMe,
		IPAddress:  testIP,
		UserAgent:  testUA,
	})
}

func (env *testEnv) loginWith(identifier, secret, ip string) (*LoginResult, error) {
	return env.engine.Login(context.Background(), LoginRequest{
		Identifier: identifier,
		Password:   secret,
		IPAddress:  ip,
		UserAgent:  testUA,
	})
}

func (env *testEnv) stored(t *testing.T) *store.Principal {
	t.Helper()
	p, err := env.credentials.FindByID(context.Background(), env.principal.ID)
	if err != nil {
		t.Fatalf("find principal: %v", err)
	}
	return p
}

func (env *testEnv) lastAttempt(t *testing.T) store.LoginAttempt {
	t.Helper()
	rows := env.ledger.Attempts()
	if len(rows) == 0 {
		t.Fatal("expected at least one ledger row")
	}
	return rows[len(rows)-1]
}

// events closes the engine's dispatcher and drains every delivered event.
func (env *testEnv) events() []AuditEvent {
	env.engine.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-env.sink.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func hasEvent(events []AuditEvent, eventType string) bool {
	for _, ev := range events {
		if ev.EventType == eventType {
			return true
		}
	}
	return false
}

func assertKind(t *testing.T, err error, want *Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Kind.Code(), err)
	}
}

// faultyTokens fails selected token-store calls.
type faultyTokens struct {
	store.TokenStore
	saveErr   error
	rotateErr error
	countErr  error
	revokeErr error
	onCount   func()
	revoked   []string
}

func (f *faultyTokens) Save(ctx context.Context, rec store.RefreshTokenRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.TokenStore.Save(ctx, rec)
}

func (f *faultyTokens) CountActiveForPrincipal(ctx context.Context, id uuid.UUID, now time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	n, err := f.TokenStore.CountActiveForPrincipal(ctx, id, now)
	if f.onCount != nil {
		f.onCount()
	}
	return n, err
}

func (f *faultyTokens) RevokeByHash(ctx context.Context, hash string, now time.Time) (bool, error) {
	f.revoked = append(f.revoked, hash)
	if f.revokeErr != nil {
		return false, f.revokeErr
	}
	return f.TokenStore.RevokeByHash(ctx, hash, now)
}

func (f *faultyTokens) Rotate(ctx context.Context, oldHash string, next store.RefreshTokenRecord, now time.Time) error {
	if f.rotateErr != nil {
		return f.rotateErr
	}
	return f.TokenStore.Rotate(ctx, oldHash, next, now)
}

// faultyCredentials fails the login writes, or fails them once ctx is done.
type faultyCredentials struct {
	store.CredentialStore
	saveErr error
	findErr error
}

func (f *faultyCredentials) FindByIdentifier(ctx context.Context, email string) (*store.Principal, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.CredentialStore.FindByIdentifier(ctx, email)
}

func (f *faultyCredentials) RecordLogin(ctx context.Context, id uuid.UUID, u store.LoginUpdate) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.CredentialStore.RecordLogin(ctx, id, u)
}

func (f *faultyCredentials) RecordFailure(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockout time.Duration) (store.LockoutState, bool, error) {
	if f.saveErr != nil {
		return store.LockoutState{}, false, f.saveErr
	}
	return f.CredentialStore.RecordFailure(ctx, id, now, maxAttempts, lockout)
}

type faultyLedger struct {
	store.AttemptLedger
	appendErr error
	countErr  error
}

func (f *faultyLedger) Append(ctx context.Context, a store.LoginAttempt) error {
	if f.appendErr != nil && a.Outcome == store.OutcomeSuccess {
		return f.appendErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.AttemptLedger.Append(ctx, a)
}

func (f *faultyLedger) CountFailedSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.AttemptLedger.CountFailedSince(ctx, identifier, since)
}

func (env *testEnv) update(t *testing.T, mutate func(*store.Principal)) {
	t.Helper()
	p := env.stored(t)
	mutate(p)
	if err := env.credentials.Put(p); err != nil {
		t.Fatalf("update principal: %v", err)
	}
}

func (env *testEnv) activeSessions(t *testing.T) int {
	t.Helper()
	n, err := env.tokens.CountActiveForPrincipal(context.Background(), env.principal.ID, env.clock.Now())
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	return n
}

type revokeAllFailing struct {
	faultyTokens
}

func (r *revokeAllFailing) RevokeAllForPrincipal(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, errors.New("store down")
}
