package retention

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/providerAuth/store"
	"github.com/MrEthical07/providerAuth/store/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRunOncePrunesPastRetention(t *testing.T) {
	ctx := context.Background()
	tokens := memory.NewTokens()
	ledger := memory.NewLedger()
	principal := uuid.New()

	for i, exp := range []time.Time{
		now.Add(-31 * 24 * time.Hour),
		now.Add(-29 * 24 * time.Hour),
		now.Add(time.Hour),
	} {
		require.NoError(t, tokens.Save(ctx, store.RefreshTokenRecord{
			ID:          uuid.New(),
			PrincipalID: principal,
			TokenHash:   "hash-" + string(rune('a'+i)),
			ExpiresAt:   exp,
		}))
	}
	for _, at := range []time.Time{now.Add(-91 * 24 * time.Hour), now.Add(-time.Hour)} {
		require.NoError(t, ledger.Append(ctx, store.LoginAttempt{
			ID:         uuid.New(),
			Identifier: "doc@example.com",
			Outcome:    store.OutcomeFailed,
			CreatedAt:  at,
		}))
	}

	c := New(tokens, ledger, Config{}, nil).WithClock(func() time.Time { return now })
	rep, err := c.RunOnce(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, rep.TokensDeleted)
	require.EqualValues(t, 1, rep.AttemptsDeleted)

	_, err = tokens.FindByHash(ctx, "hash-a")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = tokens.FindByHash(ctx, "hash-b")
	require.NoError(t, err)
	require.Len(t, ledger.Attempts(), 1)
}

type failingPruner struct{ calls atomic.Int64 }

func (f *failingPruner) DeleteExpiredBefore(context.Context, time.Time) (int64, error) {
	f.calls.Add(1)
	return 0, errors.New("db down")
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	tokens := &failingPruner{}
	ledger := memory.NewLedger()

	_, err := New(tokens, ledger, Config{}, nil).RunOnce(context.Background())
	require.Error(t, err)
	require.EqualValues(t, 1, tokens.calls.Load())
}

func TestRunOnceSkipsNilPruners(t *testing.T) {
	rep, err := New(nil, nil, Config{}, nil).RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, rep.TokensDeleted)
	require.Zero(t, rep.AttemptsDeleted)
}

func TestRunStopsOnCancel(t *testing.T) {
	tokens := &failingPruner{}
	ctx, cancel := context.WithCancel(context.Background())
	c := New(tokens, nil, Config{Interval: time.Millisecond}, nil)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return tokens.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
