//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/providerAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis Hook that counts Redis round-trips.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64 { return h.commands.Load() }

func newCountedStore(t *testing.T) (*session.Store, *cmdCounter, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	// Keep connection handshake noise out of the budget.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter.Reset()

	return session.NewStore(rdb, "pa", 0), counter, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

// Every token-store operation is one script or one command. The first call
// of a script may cost EVALSHA plus an EVAL fallback.
func TestTokenStoreRedisBudget(t *testing.T) {
	s, counter, cleanup := newCountedStore(t)
	defer cleanup()

	ctx := context.Background()
	principal := uuid.New()

	measure := func(name string, budget int64, op func() error) {
		t.Helper()
		counter.Reset()
		if err := op(); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := counter.Commands(); got > budget {
			t.Errorf("%s used %d Redis commands; budget is %d", name, got, budget)
		}
	}

	measure("Save", 2, func() error { return s.Save(ctx, makeRecord(principal, hashByte(1))) })
	measure("Save (warm)", 1, func() error { return s.Save(ctx, makeRecord(principal, hashByte(2))) })
	measure("FindByHash", 1, func() error {
		_, err := s.FindByHash(ctx, hashByte(1))
		return err
	})
	measure("Rotate", 2, func() error {
		return s.Rotate(ctx, hashByte(1), makeRecord(principal, hashByte(3)), time.Now())
	})
	measure("Rotate (warm)", 1, func() error {
		return s.Rotate(ctx, hashByte(3), makeRecord(principal, hashByte(4)), time.Now())
	})
	measure("CountActiveForPrincipal", 2, func() error {
		_, err := s.CountActiveForPrincipal(ctx, principal, time.Now())
		return err
	})
	measure("RevokeByHash", 2, func() error {
		_, err := s.RevokeByHash(ctx, hashByte(2), time.Now())
		return err
	})
	measure("RevokeAllForPrincipal", 2, func() error {
		_, err := s.RevokeAllForPrincipal(ctx, principal, time.Now())
		return err
	})
}
