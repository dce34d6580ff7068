// Package redis backs the TokenStore and RateLimitStore with Redis so every
// gate instance behind a load balancer shares one revocation epoch, one set
// of refresh chains and one set of rate windows.
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/store"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix = "agency:"

	tokenVersionPrefix = "tv:"
	rotationPrefix     = "rot:"
)

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key. Defaults to DefaultPrefix.
	Prefix string
}

// NewClient creates a go-redis client from Options.
func NewClient(opts Options) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// VersionLedger is the durable record of token versions. The principal
// database implements it.
type VersionLedger interface {
	TokenVersion(ctx context.Context, principalID string) (int64, error)
	IncrementTokenVersion(ctx context.Context, principalID string, now time.Time) (int64, error)
}

// Store implements store.TokenStore and store.RateLimitStore. Every
// read-modify-write runs as a Lua script so it is atomic on the server.
type Store struct {
	client goredis.UniversalClient
	prefix string
	ledger VersionLedger
}

var (
	_ store.TokenStore     = (*Store)(nil)
	_ store.RateLimitStore = (*Store)(nil)
)

// NewStore wraps an existing client. An empty prefix selects DefaultPrefix.
func NewStore(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Ping verifies the server is reachable.
// WithVersionLedger makes l the owner of token versions. Redis then only
// caches them: bumps are written to l first and a missing key is reseeded
// from l, so a flushed or evicted key never resurrects revoked tokens.
// Without a ledger a missing key reads as version 0.
func (s *Store) WithVersionLedger(l VersionLedger) *Store {
	s.ledger = l
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += p
	}
	return k
}

// createRotationScript refuses to overwrite a live session.
var createRotationScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'principal', ARGV[1], 'hash', ARGV[2])
redis.call('PEXPIREAT', KEYS[1], ARGV[3])
return 1
`)

// swapRotationScript returns 1 on swap, 0 when the session is gone and -1
// when the stored fingerprint differs.
var swapRotationScript = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'hash')
if not cur then
  return 0
end
if cur ~= ARGV[1] then
  return -1
end
redis.call('HSET', KEYS[1], 'hash', ARGV[2])
redis.call('PEXPIREAT', KEYS[1], ARGV[3])
return 1
`)

var deleteRotationScript = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'hash')
if not cur then
  return 0
end
if cur ~= ARGV[1] then
  return -1
end
redis.call('DEL', KEYS[1])
return 1
`)

// raiseVersionScript stores ARGV[1] unless the key already holds a higher
// version and returns what the key ends up holding. Versions only grow, so
// concurrent reseeds and bumps settle on the maximum.
var raiseVersionScript = goredis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]))
local v = tonumber(ARGV[1])
if cur and cur >= v then
  return cur
end
redis.call('SET', KEYS[1], v)
return v
`)

// bumpVersionScript stores the ledger's new version ARGV[1], or one past the
// cached version when the cache is ahead, so a bump always invalidates what
// the cache handed out.
var bumpVersionScript = goredis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]))
local v = tonumber(ARGV[1])
if cur and cur >= v then
  v = cur + 1
end
redis.call('SET', KEYS[1], v)
return v
`)

// incrementWindowScript adds cost and starts the expiry on the first write
// of a window. The key expiring is what resets the window.
var incrementWindowScript = goredis.NewScript(`
local count = redis.call('INCRBY', KEYS[1], ARGV[1])
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  ttl = tonumber(ARGV[2])
end
return {count, ttl}
`)

// TokenVersion returns 0 for a principal that was never revoked.
func (s *Store) TokenVersion(ctx context.Context, principalID string) (int64, error) {
	k := s.key(tokenVersionPrefix, principalID)
	v, err := s.client.Get(ctx, k).Int64()
	if !errors.Is(err, goredis.Nil) {
		return v, err
	}
	if s.ledger == nil {
		return 0, nil
	}

	durable, err := s.ledger.TokenVersion(ctx, principalID)
	if err != nil {
		return 0, err
	}
	return raiseVersionScript.Run(ctx, s.client, []string{k}, durable).Int64()
}

func (s *Store) IncrementTokenVersion(ctx context.Context, principalID string, now time.Time) (int64, error) {
	k := s.key(tokenVersionPrefix, principalID)
	if s.ledger == nil {
		return s.client.Incr(ctx, k).Result()
	}

	v, err := s.ledger.IncrementTokenVersion(ctx, principalID, now)
	if err != nil {
		return 0, err
	}
	return bumpVersionScript.Run(ctx, s.client, []string{k}, v).Int64()
}

func (s *Store) CreateRotation(ctx context.Context, r domain.Rotation) error {
	n, err := createRotationScript.Run(ctx, s.client,
		[]string{s.key(rotationPrefix, r.SessionID)},
		r.PrincipalID, r.RotationHash, r.ExpiresAt.UnixMilli(),
	).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

// SwapRotation relies on key expiry for session lifetime, so now is unused.
func (s *Store) SwapRotation(
	ctx context.Context,
	sessionID, expected, next string,
	expiresAt, _ time.Time,
) error {
	n, err := swapRotationScript.Run(ctx, s.client,
		[]string{s.key(rotationPrefix, sessionID)},
		expected, next, expiresAt.UnixMilli(),
	).Int64()
	if err != nil {
		return err
	}
	return casResult(n)
}

func (s *Store) DeleteRotation(ctx context.Context, sessionID, expected string) error {
	n, err := deleteRotationScript.Run(ctx, s.client,
		[]string{s.key(rotationPrefix, sessionID)},
		expected,
	).Int64()
	if err != nil {
		return err
	}
	return casResult(n)
}

func casResult(n int64) error {
	switch n {
	case 1:
		return nil
	case 0:
		return store.ErrNotFound
	default:
		return store.ErrRotationMismatch
	}
}

// DeleteExpiredRotations is a no-op, sessions expire through key TTLs.
func (s *Store) DeleteExpiredRotations(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *Store) Increment(
	ctx context.Context,
	key string,
	cost int64,
	window time.Duration,
	now time.Time,
) (domain.Window, error) {
	res, err := incrementWindowScript.Run(ctx, s.client,
		[]string{s.key(key)},
		cost, window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return domain.Window{}, err
	}
	if len(res) != 2 {
		return domain.Window{}, errors.New("redis: unexpected window reply of length " + strconv.Itoa(len(res)))
	}

	ttl := time.Duration(res[1]) * time.Millisecond
	return domain.Window{
		Key:         key,
		Count:       res[0],
		WindowStart: now.Add(ttl - window),
		Length:      window,
	}, nil
}

// DeleteExpiredWindows is a no-op, windows expire through key TTLs.
func (s *Store) DeleteExpiredWindows(context.Context, time.Time) (int64, error) {
	return 0, nil
}
