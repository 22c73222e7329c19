package providerAuth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// TestRefreshConcurrencySingleWinner races rotations through the Redis
// token store, where revoke-old and create-new run in one script.
func TestRefreshConcurrencySingleWinner(t *testing.T) {
	engine, done := newBenchmarkEngine(t, ModeJWTOnly)
	defer done()

	login, err := benchmarkLogin(engine)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	principalID := uuid.MustParse(login.Principal.ID)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	start := make(chan struct{})
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := engine.Refresh(context.Background(), login.RefreshToken, testIP)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	success := 0
	fail := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		if errors.Is(err, ErrAuthenticationFailed) {
			fail++
			continue
		}
		t.Fatalf("unexpected refresh error: %v", err)
	}

	if success != 1 {
		t.Fatalf("expected exactly one refresh success, got %d", success)
	}
	if fail != n-1 {
		t.Fatalf("expected %d refresh failures, got %d", n-1, fail)
	}

	active, err := engine.ActiveSessions(context.Background(), principalID)
	if err != nil {
		t.Fatalf("ActiveSessions: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected one active lineage after the race, got %d", active)
	}
}
