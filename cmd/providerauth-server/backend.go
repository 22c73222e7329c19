package main

import (
	"context"
	"fmt"
	"time"

	providerAuth "github.com/MrEthical07/providerAuth"
	"github.com/MrEthical07/providerAuth/password"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/MrEthical07/providerAuth/store/memory"
	"github.com/MrEthical07/providerAuth/store/postgres"
	"github.com/MrEthical07/providerAuth/store/sqlite"
	"github.com/google/uuid"
)

type ledger interface {
	store.AttemptLedger
	store.AttemptPruner
}

type tokens interface {
	store.TokenStore
	store.TokenPruner
}

// backend bundles the stores of one database.
type backend struct {
	credentials store.CredentialStore
	ledger      ledger
	tokens      tokens
	insert      func(ctx context.Context, p *store.Principal) error
	close       func()
}

func openBackend(ctx context.Context, kind, dsn string) (*backend, error) {
	switch kind {
	case "memory":
		creds := memory.NewCredentials()
		return &backend{
			credentials: creds,
			ledger:      memory.NewLedger(),
			tokens:      memory.NewTokens(),
			insert:      func(_ context.Context, p *store.Principal) error { return creds.Put(p) },
			close:       func() {},
		}, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		s := sqlite.New(db)
		return &backend{
			credentials: s,
			ledger:      s,
			tokens:      s.Tokens(),
			insert:      s.Insert,
			close:       func() { _ = db.Close() },
		}, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, dsn, 0)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		s := postgres.New(pool)
		return &backend{
			credentials: s,
			ledger:      s,
			tokens:      s.Tokens(),
			insert:      s.Insert,
			close:       pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

// seedPrincipal inserts an active, verified provider. An existing email is
// left untouched.
func seedPrincipal(ctx context.Context, be *backend, cfg providerAuth.Config, email, secret string) error {
	if secret == "" {
		return fmt.Errorf("seed password required for %s", email)
	}
	if _, err := be.credentials.FindByIdentifier(ctx, email); err == nil {
		return nil
	}
	hasher, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(secret)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return be.insert(ctx, &store.Principal{
		ID:                 uuid.New(),
		Email:              email,
		FirstName:          "Demo",
		LastName:           "Provider",
		Specialization:     "General Practice",
		VerificationStatus: "VERIFIED",
		Role:               store.DefaultRole,
		PasswordHash:       hash,
		Active:             true,
		EmailVerified:      true,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
}
