// Package testutil starts throwaway in-process Redis servers for tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/apmoronez/dogbot/internal/kv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedis starts a miniredis server and a client for it. Both are closed
// when the test ends.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// NewEngine returns a RedisEngine backed by a fresh miniredis server
func NewEngine(t testing.TB) (*kv.RedisEngine, *miniredis.Miniredis) {
	t.Helper()

	mr, client := NewRedis(t)
	return kv.NewRedisEngineFromClient(client, zap.NewNop()), mr
}
