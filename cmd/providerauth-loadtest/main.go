// Command providerauth-loadtest drives the Redis refresh-token store with
// concurrent lookups, rotations and session counts and prints latency
// percentiles for each phase.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/providerAuth/internal"
	"github.com/MrEthical07/providerAuth/session"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type tokenState struct {
	principal uuid.UUID
	hash      string
	gen       int
	mu        sync.Mutex
}

func main() {
	var (
		tokens      = flag.Int("tokens", 100000, "number of refresh tokens to seed")
		perProvider = flag.Int("per-provider", 5, "refresh tokens per provider")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "pa:loadtest", "token key prefix")
	)
	flag.Parse()

	if *tokens <= 0 || *perProvider <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, per-provider, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
		os.Exit(1)
	}
	hasher, err := internal.NewTokenHasher(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hasher init failed: %v\n", err)
		os.Exit(1)
	}

	tokenStore := session.NewStore(client, *prefix, time.Hour)

	states := make([]tokenState, *tokens)
	principals := make([]uuid.UUID, 0, *tokens / *perProvider + 1)
	fmt.Printf("seeding %d refresh tokens...\n", *tokens)
	startSeed := time.Now()
	now := time.Now()
	for i := range states {
		if i%*perProvider == 0 {
			principals = append(principals, uuid.New())
		}
		states[i].principal = principals[len(principals)-1]
		states[i].hash = hasher.Hash(tokenValue(i, 0))
		if err := tokenStore.Save(ctx, record(states[i].principal, states[i].hash, now)); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	lookupStats := runPhase(*ops, *concurrency, 7919, func(r *mrand.Rand, _ int) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		hash := st.hash
		st.mu.Unlock()
		_, err := tokenStore.FindByHash(ctx, hash)
		return err
	})
	rotateStats := runPhase(*ops, *concurrency, 6151, func(r *mrand.Rand, _ int) error {
		idx := r.Intn(len(states))
		st := &states[idx]
		st.mu.Lock()
		defer st.mu.Unlock()
		next := hasher.Hash(tokenValue(idx, st.gen+1))
		if err := tokenStore.Rotate(ctx, st.hash, record(st.principal, next, time.Now()), time.Now()); err != nil {
			return err
		}
		st.hash = next
		st.gen++
		return nil
	})
	countStats := runPhase(*ops, *concurrency, 4099, func(r *mrand.Rand, _ int) error {
		_, err := tokenStore.CountActiveForPrincipal(ctx, principals[r.Intn(len(principals))], time.Now())
		return err
	})

	fmt.Println("---- results ----")
	printStats("lookup", lookupStats)
	printStats("rotate", rotateStats)
	printStats("count", countStats)
}

func runPhase(ops, concurrency int, seed int64, op func(r *mrand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func tokenValue(i, gen int) string {
	return fmt.Sprintf("rt-%d-%d", i, gen)
}

func record(principal uuid.UUID, hash string, now time.Time) store.RefreshTokenRecord {
	return store.RefreshTokenRecord{
		ID:          uuid.New(),
		PrincipalID: principal,
		TokenHash:   hash,
		TokenID:     uuid.NewString(),
		ExpiresAt:   now.Add(24 * time.Hour),
		IPAddress:   "198.51.100.10",
		UserAgent:   "providerauth-loadtest",
		CreatedAt:   now,
	}
}
