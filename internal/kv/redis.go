package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// fetchHashesScript resolves many hashes in one round trip
var fetchHashesScript = redis.NewScript(`
local res = {}
for i, key in ipairs(KEYS) do
  res[i] = redis.call('HGETALL', key)
end
return res
`)

// sremIfEmptyScript drops ARGV[1] from KEYS[2] while KEYS[1] is empty
var sremIfEmptyScript = redis.NewScript(`
if redis.call('SCARD', KEYS[1]) == 0 then
  return redis.call('SREM', KEYS[2], ARGV[1])
end
return 0
`)

const scanBatch = 256

// RedisOptions holds connection parameters for NewRedisEngine
type RedisOptions struct {
	URL          string
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisEngine implements Engine for Redis
type RedisEngine struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisEngine connects to Redis and verifies the connection
func NewRedisEngine(opts RedisOptions, logger *zap.Logger) (*RedisEngine, error) {
	var ro *redis.Options
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		ro = parsed
	} else {
		ro = &redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}
	}
	if opts.PoolSize > 0 {
		ro.PoolSize = opts.PoolSize
	}
	if opts.MinIdleConns > 0 {
		ro.MinIdleConns = opts.MinIdleConns
	}
	if opts.MaxRetries != 0 {
		ro.MaxRetries = opts.MaxRetries
	}
	if opts.DialTimeout > 0 {
		ro.DialTimeout = opts.DialTimeout
	}
	if opts.ReadTimeout > 0 {
		ro.ReadTimeout = opts.ReadTimeout
	}
	if opts.WriteTimeout > 0 {
		ro.WriteTimeout = opts.WriteTimeout
	}

	client := redis.NewClient(ro)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Connected to Redis", zap.String("addr", ro.Addr), zap.Int("db", ro.DB))

	return NewRedisEngineFromClient(client, logger), nil
}

// NewRedisEngineFromClient wraps an existing client
func NewRedisEngineFromClient(client redis.UniversalClient, logger *zap.Logger) *RedisEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisEngine{client: client, logger: logger}
}

// HGet reads one hash field
func (e *RedisEngine) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := e.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNil
	}
	return v, err
}

// HGetAll reads a whole hash; a missing key yields an empty map
func (e *RedisEngine) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return e.client.HGetAll(ctx, key).Result()
}

// HSet upserts hash fields
func (e *RedisEngine) HSet(ctx context.Context, key string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return e.client.HSet(ctx, key, flatten(values)...).Err()
}

// SAdd adds members to a set
func (e *RedisEngine) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return e.client.SAdd(ctx, key, toArgs(members)...).Err()
}

// SRem removes members from a set
func (e *RedisEngine) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return e.client.SRem(ctx, key, toArgs(members)...).Err()
}

// SIsMember checks set membership
func (e *RedisEngine) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return e.client.SIsMember(ctx, key, member).Result()
}

// SMembers lists a set
func (e *RedisEngine) SMembers(ctx context.Context, key string) ([]string, error) {
	return e.client.SMembers(ctx, key).Result()
}

// SUnion computes the union of sets
func (e *RedisEngine) SUnion(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return []string{}, nil
	}
	return e.client.SUnion(ctx, keys...).Result()
}

// SInter computes the intersection of sets
func (e *RedisEngine) SInter(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return []string{}, nil
	}
	return e.client.SInter(ctx, keys...).Result()
}

// SRandMember picks a random member
func (e *RedisEngine) SRandMember(ctx context.Context, key string) (string, error) {
	v, err := e.client.SRandMember(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNil
	}
	return v, err
}

// SRemIfEmpty runs the guarded removal script
func (e *RedisEngine) SRemIfEmpty(ctx context.Context, guard, key, member string) (bool, error) {
	n, err := sremIfEmptyScript.Run(ctx, e.client, []string{guard, key}, member).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Scan walks the keyspace with SCAN
func (e *RedisEngine) Scan(ctx context.Context, match string) ([]string, error) {
	keys := []string{}
	iter := e.client.Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Incr atomically increments and returns a counter
func (e *RedisEngine) Incr(ctx context.Context, key string) (int64, error) {
	return e.client.Incr(ctx, key).Result()
}

// FetchHashes runs the batch fetch script
func (e *RedisEngine) FetchHashes(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return []map[string]string{}, nil
	}

	res, err := fetchHashesScript.Run(ctx, e.client, keys).Result()
	if err != nil {
		return nil, fmt.Errorf("batch fetch script failed: %w", err)
	}

	rows, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected batch fetch reply %T", res)
	}

	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		pairs, ok := row.([]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected batch fetch row %T", row)
		}
		hash := make(map[string]string, len(pairs)/2)
		for i := 0; i+1 < len(pairs); i += 2 {
			hash[fmt.Sprint(pairs[i])] = fmt.Sprint(pairs[i+1])
		}
		out = append(out, hash)
	}
	return out, nil
}

// Begin starts staging a MULTI/EXEC transaction
func (e *RedisEngine) Begin() Transaction {
	return &redisTx{client: e.client}
}

// Ping checks the Redis connection
func (e *RedisEngine) Ping(ctx context.Context) error {
	return e.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (e *RedisEngine) Close() error {
	return e.client.Close()
}

// redisTx stages ops locally and sends them in one MULTI/EXEC on Commit.
// Redis does not roll back EXEC when a single command fails, so per-op
// failures are reported but already-applied siblings stay applied.
type redisTx struct {
	client    redis.UniversalClient
	ops       []Op
	discarded bool
}

func (t *redisTx) Stage(op Op) {
	if t.discarded {
		return
	}
	t.ops = append(t.ops, op)
}

func (t *redisTx) Len() int {
	return len(t.ops)
}

func (t *redisTx) Discard() {
	t.discarded = true
	t.ops = nil
}

func (t *redisTx) Commit(ctx context.Context) ([]OpResult, error) {
	if t.discarded {
		return nil, errors.New("transaction discarded")
	}
	if len(t.ops) == 0 {
		return []OpResult{}, nil
	}

	pipe := t.client.TxPipeline()
	cmds := make([]redis.Cmder, 0, len(t.ops))
	for _, op := range t.ops {
		cmd, err := queue(ctx, pipe, op)
		if err != nil {
			pipe.Discard()
			return nil, err
		}
		cmds = append(cmds, cmd)
	}

	_, execErr := pipe.Exec(ctx)

	results := make([]OpResult, len(t.ops))
	var firstErr error
	for i, cmd := range cmds {
		err := cmd.Err()
		if errors.Is(err, redis.Nil) {
			err = nil
		}
		results[i] = OpResult{Op: t.ops[i], Err: err}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.ops = nil

	if firstErr == nil && execErr != nil && !errors.Is(execErr, redis.Nil) {
		firstErr = execErr
	}
	return results, firstErr
}

func queue(ctx context.Context, pipe redis.Pipeliner, op Op) (redis.Cmder, error) {
	switch op.Kind {
	case OpHSet:
		return pipe.HSet(ctx, op.Key, flatten(op.Values)...), nil
	case OpHDel:
		return pipe.HDel(ctx, op.Key, op.Members...), nil
	case OpSAdd:
		return pipe.SAdd(ctx, op.Key, toArgs(op.Members)...), nil
	case OpSRem:
		return pipe.SRem(ctx, op.Key, toArgs(op.Members)...), nil
	case OpDel:
		return pipe.Del(ctx, op.Key), nil
	default:
		return nil, fmt.Errorf("unsupported op kind %q", op.Kind)
	}
}

func flatten(values map[string]string) []interface{} {
	args := make([]interface{}, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	return args
}

func toArgs(members []string) []interface{} {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}
