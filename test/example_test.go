package test

import (
	"context"
	"errors"
	"fmt"

	providerAuth "github.com/MrEthical07/providerAuth"
	"github.com/MrEthical07/providerAuth/store/memory"
	"github.com/redis/go-redis/v9"
)

// ExampleNew builds an engine with Redis-held refresh tokens.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := providerAuth.DefaultConfig()
	cfg.Tokens.PrivateKey = []byte("replace-with-a-32-byte-secret!!!")

	engine, err := providerAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(memory.NewCredentials()).
		WithAttemptLedger(memory.NewLedger()).
		Build()
	if err != nil {
		return
	}
	defer engine.Close()
}

// ExampleEngine_Login shows switching on the error kind of a failed login.
func ExampleEngine_Login() {
	var engine *providerAuth.Engine
	_, err := engine.Login(context.Background(), providerAuth.LoginRequest{
		Identifier: "dr.house@example.com",
		Password:   "correct-horse-battery",
		IPAddress:  "203.0.113.7",
	})

	switch {
	case err == nil:
	case errors.Is(err, providerAuth.ErrRateLimited), errors.Is(err, providerAuth.ErrAccountLocked):
		// ask the caller to wait
	default:
		fmt.Println(providerAuth.KindOf(err).Code())
	}
	// Output: INTERNAL
}

// ExampleEngine_MetricsSnapshot reads in-process counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *providerAuth.Engine
	snapshot := engine.MetricsSnapshot()
	fmt.Println(snapshot.Counters[providerAuth.MetricLoginSuccess])
	// Output: 0
}
