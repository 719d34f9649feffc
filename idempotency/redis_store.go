package idempotency

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claim and complete run as Lua scripts so the check-and-insert is a single
// atomic step on the Redis side, matching the SQL store's unique-index
// semantics.
var redisClaimScript = redis.NewScript(`
local key = KEYS[1]
local fingerprint = ARGV[1]
local ttl_ms = ARGV[2]

if redis.call("EXISTS", key) == 0 then
  redis.call("HSET", key, "fingerprint", fingerprint, "status", "processing")
  redis.call("PEXPIRE", key, ttl_ms)
  return {"new"}
end

local stored_fp = redis.call("HGET", key, "fingerprint") or ""
local status = redis.call("HGET", key, "status")
if status == "completed" then
  local response_status = redis.call("HGET", key, "response_status")
  if response_status then
    return {"replay", stored_fp, response_status, redis.call("HGET", key, "response_body") or ""}
  end
end

return {"conflict", stored_fp}
`)

var redisCompleteScript = redis.NewScript(`
local key = KEYS[1]

if redis.call("EXISTS", key) == 0 then
  return 0
end

redis.call("HSET", key, "status", "completed", "response_status", ARGV[1], "response_body", ARGV[2])
return 1
`)

// RedisStore keeps idempotency records as Redis hashes with a native TTL, so
// expiry needs no reaper sweep. The completion deliberately does not refresh
// the TTL: a record expires relative to its claim time.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "idem"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) TryClaim(ctx context.Context, key string, fp Fingerprint) (Claim, error) {
	raw, err := redisClaimScript.Run(
		ctx,
		s.client,
		[]string{s.redisKey(key)},
		fp.Hash,
		int(s.ttl/time.Millisecond),
	).Result()
	if err != nil {
		return Claim{}, fmt.Errorf("idempotency claim failed: %w", err)
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) == 0 {
		return Claim{}, fmt.Errorf("unexpected redis claim result %T", raw)
	}

	switch State(asString(values[0])) {
	case StateNew:
		return Claim{State: StateNew}, nil
	case StateConflict:
		claim := Claim{State: StateConflict}
		if len(values) > 1 {
			claim.Fingerprint = asString(values[1])
		}
		return claim, nil
	case StateReplay:
		if len(values) < 4 {
			return Claim{}, fmt.Errorf("unexpected replay payload")
		}
		status, parseErr := strconv.Atoi(asString(values[2]))
		if parseErr != nil {
			return Claim{}, fmt.Errorf("parse replay status: %w", parseErr)
		}
		body, decodeErr := base64.StdEncoding.DecodeString(asString(values[3]))
		if decodeErr != nil {
			return Claim{}, fmt.Errorf("decode replay body: %w", decodeErr)
		}
		return Claim{
			State:       StateReplay,
			Fingerprint: asString(values[1]),
			Response:    &CachedResponse{Status: status, Body: body},
		}, nil
	default:
		return Claim{}, fmt.Errorf("unknown claim state %q", asString(values[0]))
	}
}

func (s *RedisStore) Complete(ctx context.Context, key string, resp CachedResponse) error {
	n, err := redisCompleteScript.Run(
		ctx,
		s.client,
		[]string{s.redisKey(key)},
		resp.Status,
		base64.StdEncoding.EncodeToString(resp.Body),
	).Int()
	if err != nil {
		return fmt.Errorf("idempotency complete failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("idempotency complete: no record for key %q", key)
	}
	return nil
}

// SweepExpired is a no-op: Redis evicts expired keys itself.
func (s *RedisStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func asString(v interface{}) string {
	switch typed := v.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(v)
	}
}
