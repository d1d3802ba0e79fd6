package store

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"github.com/lpoller/go-hasp/v1/lockrec"
)

// DefaultKeyPrefix namespaces lock documents inside Redis.
const DefaultKeyPrefix = "hasp:lock:"

// The version pair lives in a small JSON envelope next to the body and is
// advanced atomically server-side, which stands in for the sequence-number/
// primary-term CAS of a replicated document store. Redis has no primary-term
// notion, so the envelope keeps the field constant at 1 to stay
// token-compatible with stores that do.
var writeScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
local expSeq = tonumber(ARGV[1])
local expTerm = tonumber(ARGV[2])
if not cur then
    if expSeq ~= -2 then
        return {-1, -1}
    end
    redis.call("SET", KEYS[1], cjson.encode({seq_no = 0, primary_term = 1, body = ARGV[3]}))
    return {0, 1}
end
local env = cjson.decode(cur)
if expSeq == -2 or env.seq_no ~= expSeq or env.primary_term ~= expTerm then
    return {-1, -1}
end
local nextSeq = env.seq_no + 1
redis.call("SET", KEYS[1], cjson.encode({seq_no = nextSeq, primary_term = env.primary_term, body = ARGV[3]}))
return {nextSeq, env.primary_term}
`)

var deleteScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
    return -2
end
local env = cjson.decode(cur)
if env.seq_no ~= tonumber(ARGV[1]) or env.primary_term ~= tonumber(ARGV[2]) then
    return -1
end
redis.call("DEL", KEYS[1])
return 0
`)

type redisEnvelope struct {
	SeqNo       int64  `json:"seq_no"`
	PrimaryTerm int64  `json:"primary_term"`
	Body        string `json:"body"`
}

// Redis implements Store on a single Redis instance.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis returns a Redis-backed store using the provided client. An empty
// prefix falls back to DefaultKeyPrefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(id string) string { return r.prefix + id }

// Read implements Store.Read.
func (r *Redis) Read(ctx context.Context, id string) ([]byte, lockrec.Version, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Result()
	if err == redis.Nil {
		return nil, lockrec.UnassignedVersion, ErrNotFound
	}
	if err != nil {
		return nil, lockrec.UnassignedVersion, err
	}
	var env redisEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, lockrec.UnassignedVersion, err
	}
	return []byte(env.Body), lockrec.NewVersion(env.SeqNo, env.PrimaryTerm), nil
}

// Write implements Store.Write.
func (r *Redis) Write(ctx context.Context, id string, body []byte, expected lockrec.Version) (lockrec.Version, error) {
	res, err := writeScript.Run(ctx, r.client, []string{r.key(id)},
		expected.SeqNo(), expected.PrimaryTerm(), string(body)).Int64Slice()
	if err != nil {
		return lockrec.UnassignedVersion, err
	}
	if len(res) != 2 || res[0] < 0 {
		return lockrec.UnassignedVersion, ErrVersionConflict
	}
	return lockrec.NewVersion(res[0], res[1]), nil
}

// Delete implements Store.Delete.
func (r *Redis) Delete(ctx context.Context, id string, expected lockrec.Version) error {
	res, err := deleteScript.Run(ctx, r.client, []string{r.key(id)},
		expected.SeqNo(), expected.PrimaryTerm()).Int64()
	if err != nil {
		return err
	}
	switch res {
	case 0:
		return nil
	case -2:
		return ErrNotFound
	default:
		return ErrVersionConflict
	}
}
