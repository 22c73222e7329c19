package internal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"sync"
)

// MinHashKeyBytes is the shortest accepted fingerprint key.
const MinHashKeyBytes = 32

// TokenHasher derives the lookup fingerprint stored for refresh tokens. The
// output is deterministic for a given key, so stores can index on it, and it
// reveals nothing about the raw token without the key.
type TokenHasher struct {
	pool sync.Pool
}

// NewTokenHasher returns an HMAC-SHA256 hasher keyed by key.
func NewTokenHasher(key []byte) (*TokenHasher, error) {
	if len(key) < MinHashKeyBytes {
		return nil, errors.New("token hash key must be at least 32 bytes")
	}
	k := append([]byte(nil), key...)
	h := &TokenHasher{}
	h.pool.New = func() any { return hmac.New(sha256.New, k) }
	return h, nil
}

// Hash returns the lowercase hex fingerprint of token.
func (h *TokenHasher) Hash(token string) string {
	mac := h.pool.Get().(hash.Hash)
	mac.Reset()
	mac.Write([]byte(token))
	var sum [sha256.Size]byte
	out := hex.EncodeToString(mac.Sum(sum[:0]))
	h.pool.Put(mac)
	return out
}
