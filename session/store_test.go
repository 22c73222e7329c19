package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/providerAuth/store"
	"github.com/MrEthical07/providerAuth/store/storetest"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	mr.SetTime(storetest.Base)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewStore(rdb, "pa", time.Hour), mr
}

func TestStoreContract(t *testing.T) {
	storetest.RunTokenStore(t, func(t *testing.T) store.TokenStore {
		s, _ := newSessionStoreTest(t)
		return s
	})
}

func TestSaveDuplicateHashConflicts(t *testing.T) {
	s, _ := newSessionStoreTest(t)
	ctx := context.Background()
	rec := storetest.NewRecord(uuid.New(), "dup", storetest.Base.Add(time.Hour))
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, rec); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRecordKeyExpiresAfterRetention(t *testing.T) {
	s, mr := newSessionStoreTest(t)
	ctx := context.Background()
	rec := storetest.NewRecord(uuid.New(), "ttl", storetest.Base.Add(time.Hour))
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("pa:t:ttl"); ttl != 2*time.Hour {
		t.Fatalf("expected expiry plus retention, got %v", ttl)
	}

	mr.FastForward(2*time.Hour + time.Second)
	if _, err := s.FindByHash(ctx, "ttl"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected evicted record, got %v", err)
	}
}

func TestCountPrunesEvictedIndexEntries(t *testing.T) {
	s, mr := newSessionStoreTest(t)
	ctx := context.Background()
	pid := uuid.New()
	if err := s.Save(ctx, storetest.NewRecord(pid, "gone", storetest.Base.Add(time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.Del("pa:t:gone")

	n, err := s.CountActiveForPrincipal(ctx, pid, storetest.Base)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 active, got %d", n)
	}
	if ok, _ := mr.SIsMember("pa:p:"+pid.String(), "gone"); ok {
		t.Fatal("expected stale index member to be removed")
	}
}

func TestFindByHashCorruptRecord(t *testing.T) {
	s, mr := newSessionStoreTest(t)
	mr.HSet("pa:t:bad", "id", "not-a-uuid")
	if _, err := s.FindByHash(context.Background(), "bad"); !errors.Is(err, ErrRecordCorrupt) {
		t.Fatalf("expected ErrRecordCorrupt, got %v", err)
	}
}

func TestRedisDownIsWrapped(t *testing.T) {
	s, mr := newSessionStoreTest(t)
	mr.Close()
	_, err := s.FindByHash(context.Background(), "x")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
