//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
)

func TestStoreConsistencyRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _, cleanup := newIntegrationStore(t)
	defer cleanup()

	principal := uuid.New()
	if err := s.Save(ctx, makeRecord(principal, hashByte(5))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	changed, err := s.RevokeByHash(ctx, hashByte(5), time.Now())
	if err != nil || !changed {
		t.Fatalf("first revoke: changed=%v err=%v", changed, err)
	}
	changed, err = s.RevokeByHash(ctx, hashByte(5), time.Now())
	if err != nil || changed {
		t.Fatalf("second revoke: changed=%v err=%v", changed, err)
	}

	count, err := s.CountActiveForPrincipal(ctx, principal, time.Now())
	if err != nil {
		t.Fatalf("CountActiveForPrincipal failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected active count 0, got %d", count)
	}
}

func TestStoreConsistencyFailedRotationWritesNothing(t *testing.T) {
	ctx := context.Background()
	s, _, cleanup := newIntegrationStore(t)
	defer cleanup()

	principal := uuid.New()
	current := hashByte(7)
	if err := s.Save(ctx, makeRecord(principal, current)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	next := makeRecord(principal, hashByte(8))
	if err := s.Rotate(ctx, hashByte(9), next, time.Now()); !errors.Is(err, store.ErrTokenNotActive) {
		t.Fatalf("expected ErrTokenNotActive for unknown predecessor, got %v", err)
	}
	if _, err := s.FindByHash(ctx, next.TokenHash); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no successor written, got %v", err)
	}

	if _, err := s.RevokeAllForPrincipal(ctx, principal, time.Now()); err != nil {
		t.Fatalf("RevokeAllForPrincipal failed: %v", err)
	}
	if err := s.Rotate(ctx, current, next, time.Now()); !errors.Is(err, store.ErrTokenNotActive) {
		t.Fatalf("expected ErrTokenNotActive for revoked predecessor, got %v", err)
	}

	count, err := s.CountActiveForPrincipal(ctx, principal, time.Now())
	if err != nil {
		t.Fatalf("CountActiveForPrincipal failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("active count must stay 0, got %d", count)
	}
}
