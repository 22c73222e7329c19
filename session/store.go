package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/providerAuth/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport and server failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRecordCorrupt is returned when a stored hash is missing required fields.
var ErrRecordCorrupt = errors.New("refresh record corrupt")

// DefaultRetention is how long a record outlives its expiry in Redis.
const DefaultRetention = 24 * time.Hour

const saveScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "id", ARGV[1], "pid", ARGV[2], "tid", ARGV[3], "exp", ARGV[4],
  "rev", ARGV[5], "rat", ARGV[6], "rem", ARGV[7], "dev", ARGV[8],
  "ip", ARGV[9], "ua", ARGV[10], "cat", ARGV[11])
redis.call("PEXPIREAT", KEYS[1], ARGV[12])
redis.call("SADD", KEYS[2], ARGV[13])
return 1
`

const revokeScript = `
local rev = redis.call("HGET", KEYS[1], "rev")
if not rev or rev == "1" then
  return 0
end
redis.call("HSET", KEYS[1], "rev", "1", "rat", ARGV[1])
return 1
`

const revokeAllScript = `
local members = redis.call("SMEMBERS", KEYS[1])
local n = 0
for _, h in ipairs(members) do
  local k = ARGV[2] .. h
  local rev = redis.call("HGET", k, "rev")
  if not rev then
    redis.call("SREM", KEYS[1], h)
  elseif rev ~= "1" then
    redis.call("HSET", k, "rev", "1", "rat", ARGV[1])
    n = n + 1
  end
end
return n
`

const countActiveScript = `
local members = redis.call("SMEMBERS", KEYS[1])
local now = tonumber(ARGV[1])
local n = 0
for _, h in ipairs(members) do
  local vals = redis.call("HMGET", ARGV[2] .. h, "rev", "exp")
  if not vals[1] then
    redis.call("SREM", KEYS[1], h)
  elseif vals[1] == "0" and tonumber(vals[2]) > now then
    n = n + 1
  end
end
return n
`

const rotateScript = `
local vals = redis.call("HMGET", KEYS[1], "rev", "exp")
local now = tonumber(ARGV[1])
if not vals[1] or vals[1] ~= "0" or tonumber(vals[2]) <= now then
  return 0
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return -1
end
redis.call("HSET", KEYS[1], "rev", "1", "rat", ARGV[1])
redis.call("HSET", KEYS[2],
  "id", ARGV[2], "pid", ARGV[3], "tid", ARGV[4], "exp", ARGV[5],
  "rev", "0", "rat", "0", "rem", ARGV[6], "dev", ARGV[7],
  "ip", ARGV[8], "ua", ARGV[9], "cat", ARGV[10])
redis.call("PEXPIREAT", KEYS[2], ARGV[11])
redis.call("SADD", KEYS[3], ARGV[12])
return 1
`

var (
	saveLua        = redis.NewScript(saveScript)
	revokeLua      = redis.NewScript(revokeScript)
	revokeAllLua   = redis.NewScript(revokeAllScript)
	countActiveLua = redis.NewScript(countActiveScript)
	rotateLua      = redis.NewScript(rotateScript)
)

// Store is a Redis-backed [store.TokenStore].
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewStore returns a Store over client. prefix namespaces all keys; a
// non-positive retention uses [DefaultRetention].
func NewStore(client redis.UniversalClient, prefix string, retention time.Duration) *Store {
	if prefix == "" {
		prefix = "pa"
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{redis: client, prefix: prefix, retention: retention}
}

func (s *Store) tokenPrefix() string { return s.prefix + ":t:" }

func (s *Store) tokenKey(hash string) string { return s.tokenPrefix() + hash }

func (s *Store) principalKey(id uuid.UUID) string { return s.prefix + ":p:" + id.String() }

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func wrap(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}

// Save inserts rec. An existing record with the same fingerprint yields
// store.ErrConflict.
func (s *Store) Save(ctx context.Context, rec store.RefreshTokenRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	keys := []string{s.tokenKey(rec.TokenHash), s.principalKey(rec.PrincipalID)}
	n, err := saveLua.Run(ctx, s.redis, keys,
		rec.ID.String(), rec.PrincipalID.String(), rec.TokenID, millis(rec.ExpiresAt),
		flag(rec.Revoked), millis(rec.RevokedAt), flag(rec.RememberMe), rec.DeviceInfo,
		rec.IPAddress, rec.UserAgent, millis(rec.CreatedAt),
		rec.ExpiresAt.Add(s.retention).UnixMilli(), rec.TokenHash,
	).Int64()
	if err != nil {
		return wrap(err)
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

// FindByHash loads the record stored under hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (*store.RefreshTokenRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.tokenKey(hash)).Result()
	if err != nil {
		return nil, wrap(err)
	}
	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}
	return decodeRecord(hash, fields)
}

func decodeRecord(hash string, f map[string]string) (*store.RefreshTokenRecord, error) {
	id, err := uuid.Parse(f["id"])
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrRecordCorrupt, err)
	}
	pid, err := uuid.Parse(f["pid"])
	if err != nil {
		return nil, fmt.Errorf("%w: pid: %v", ErrRecordCorrupt, err)
	}
	num := func(name string) (int64, error) {
		v, err := strconv.ParseInt(f[name], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrRecordCorrupt, name, err)
		}
		return v, nil
	}
	exp, err := num("exp")
	if err != nil {
		return nil, err
	}
	rat, err := num("rat")
	if err != nil {
		return nil, err
	}
	cat, err := num("cat")
	if err != nil {
		return nil, err
	}
	return &store.RefreshTokenRecord{
		ID:          id,
		PrincipalID: pid,
		TokenHash:   hash,
		TokenID:     f["tid"],
		ExpiresAt:   fromMillis(exp),
		Revoked:     f["rev"] == "1",
		RevokedAt:   fromMillis(rat),
		RememberMe:  f["rem"] == "1",
		DeviceInfo:  f["dev"],
		IPAddress:   f["ip"],
		UserAgent:   f["ua"],
		CreatedAt:   fromMillis(cat),
	}, nil
}

// RevokeByHash flips the revoked flag of one record.
func (s *Store) RevokeByHash(ctx context.Context, hash string, now time.Time) (bool, error) {
	n, err := revokeLua.Run(ctx, s.redis, []string{s.tokenKey(hash)}, millis(now)).Int64()
	if err != nil {
		return false, wrap(err)
	}
	return n == 1, nil
}

// RevokeAllForPrincipal revokes every unrevoked record indexed for the principal.
func (s *Store) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID, now time.Time) (int64, error) {
	n, err := revokeAllLua.Run(ctx, s.redis, []string{s.principalKey(principalID)},
		millis(now), s.tokenPrefix()).Int64()
	if err != nil {
		return 0, wrap(err)
	}
	return n, nil
}

// CountActiveForPrincipal counts unrevoked, unexpired records and drops index
// entries whose records Redis has already evicted.
func (s *Store) CountActiveForPrincipal(ctx context.Context, principalID uuid.UUID, now time.Time) (int, error) {
	n, err := countActiveLua.Run(ctx, s.redis, []string{s.principalKey(principalID)},
		millis(now), s.tokenPrefix()).Int64()
	if err != nil {
		return 0, wrap(err)
	}
	return int(n), nil
}

// Rotate revokes oldHash and writes next in one script.
func (s *Store) Rotate(ctx context.Context, oldHash string, next store.RefreshTokenRecord, now time.Time) error {
	if next.ID == uuid.Nil {
		next.ID = uuid.New()
	}
	keys := []string{s.tokenKey(oldHash), s.tokenKey(next.TokenHash), s.principalKey(next.PrincipalID)}
	n, err := rotateLua.Run(ctx, s.redis, keys,
		millis(now), next.ID.String(), next.PrincipalID.String(), next.TokenID,
		millis(next.ExpiresAt), flag(next.RememberMe), next.DeviceInfo, next.IPAddress,
		next.UserAgent, millis(next.CreatedAt), next.ExpiresAt.Add(s.retention).UnixMilli(),
		next.TokenHash,
	).Int64()
	if err != nil {
		return wrap(err)
	}
	switch n {
	case 1:
		return nil
	case -1:
		return store.ErrConflict
	default:
		return store.ErrTokenNotActive
	}
}

var _ store.TokenStore = (*Store)(nil)

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
