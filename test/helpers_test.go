//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	"github.com/MrEthical07/providerAuth/session"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newIntegrationStore(t *testing.T) (*session.Store, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := session.NewStore(rdb, "pa", 0)

	return s, rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func makeRecord(principalID uuid.UUID, hash string) store.RefreshTokenRecord {
	now := time.Now()
	return store.RefreshTokenRecord{
		ID:          uuid.New(),
		PrincipalID: principalID,
		TokenHash:   hash,
		TokenID:     uuid.NewString(),
		ExpiresAt:   now.Add(time.Hour),
		IPAddress:   "203.0.113.7",
		UserAgent:   "integration",
		CreatedAt:   now,
	}
}

func hashByte(b byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 64)
	for i := range out {
		out[i] = hexdigits[(int(b)+i)%16]
	}
	return string(out)
}
