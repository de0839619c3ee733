package kv

import (
	"context"
	"errors"
	"time"

	"github.com/apmoronez/dogbot/internal/metrics"
)

// InstrumentedEngine records Prometheus metrics for every command of the
// wrapped engine
type InstrumentedEngine struct {
	next    Engine
	metrics *metrics.Metrics
}

// NewInstrumentedEngine wraps next
func NewInstrumentedEngine(next Engine, m *metrics.Metrics) *InstrumentedEngine {
	return &InstrumentedEngine{next: next, metrics: m}
}

func (e *InstrumentedEngine) record(command string, start time.Time, err error) {
	// ErrNil is an answer, not a failure
	if errors.Is(err, ErrNil) {
		err = nil
	}
	e.metrics.RecordCommand(command, time.Since(start), err)
}

func (e *InstrumentedEngine) HGet(ctx context.Context, key, field string) (string, error) {
	start := time.Now()
	v, err := e.next.HGet(ctx, key, field)
	e.record("hget", start, err)
	return v, err
}

func (e *InstrumentedEngine) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	start := time.Now()
	v, err := e.next.HGetAll(ctx, key)
	e.record("hgetall", start, err)
	return v, err
}

func (e *InstrumentedEngine) HSet(ctx context.Context, key string, values map[string]string) error {
	start := time.Now()
	err := e.next.HSet(ctx, key, values)
	e.record("hset", start, err)
	return err
}

func (e *InstrumentedEngine) SAdd(ctx context.Context, key string, members ...string) error {
	start := time.Now()
	err := e.next.SAdd(ctx, key, members...)
	e.record("sadd", start, err)
	return err
}

func (e *InstrumentedEngine) SRem(ctx context.Context, key string, members ...string) error {
	start := time.Now()
	err := e.next.SRem(ctx, key, members...)
	e.record("srem", start, err)
	return err
}

func (e *InstrumentedEngine) SIsMember(ctx context.Context, key, member string) (bool, error) {
	start := time.Now()
	v, err := e.next.SIsMember(ctx, key, member)
	e.record("sismember", start, err)
	return v, err
}

func (e *InstrumentedEngine) SMembers(ctx context.Context, key string) ([]string, error) {
	start := time.Now()
	v, err := e.next.SMembers(ctx, key)
	e.record("smembers", start, err)
	return v, err
}

func (e *InstrumentedEngine) SUnion(ctx context.Context, keys ...string) ([]string, error) {
	start := time.Now()
	v, err := e.next.SUnion(ctx, keys...)
	e.record("sunion", start, err)
	return v, err
}

func (e *InstrumentedEngine) SInter(ctx context.Context, keys ...string) ([]string, error) {
	start := time.Now()
	v, err := e.next.SInter(ctx, keys...)
	e.record("sinter", start, err)
	return v, err
}

func (e *InstrumentedEngine) SRandMember(ctx context.Context, key string) (string, error) {
	start := time.Now()
	v, err := e.next.SRandMember(ctx, key)
	e.record("srandmember", start, err)
	return v, err
}

func (e *InstrumentedEngine) SRemIfEmpty(ctx context.Context, guard, key, member string) (bool, error) {
	start := time.Now()
	v, err := e.next.SRemIfEmpty(ctx, guard, key, member)
	e.record("srem_if_empty", start, err)
	return v, err
}

func (e *InstrumentedEngine) Scan(ctx context.Context, match string) ([]string, error) {
	start := time.Now()
	v, err := e.next.Scan(ctx, match)
	e.record("scan", start, err)
	return v, err
}

func (e *InstrumentedEngine) Incr(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	v, err := e.next.Incr(ctx, key)
	e.record("incr", start, err)
	return v, err
}

func (e *InstrumentedEngine) FetchHashes(ctx context.Context, keys []string) ([]map[string]string, error) {
	start := time.Now()
	v, err := e.next.FetchHashes(ctx, keys)
	e.record("fetch_hashes", start, err)
	return v, err
}

func (e *InstrumentedEngine) Begin() Transaction {
	return &instrumentedTx{next: e.next.Begin(), metrics: e.metrics}
}

func (e *InstrumentedEngine) Ping(ctx context.Context) error {
	start := time.Now()
	err := e.next.Ping(ctx)
	e.record("ping", start, err)
	return err
}

func (e *InstrumentedEngine) Close() error {
	return e.next.Close()
}

type instrumentedTx struct {
	next    Transaction
	metrics *metrics.Metrics
}

func (t *instrumentedTx) Stage(op Op) { t.next.Stage(op) }
func (t *instrumentedTx) Len() int    { return t.next.Len() }
func (t *instrumentedTx) Discard()    { t.next.Discard() }

func (t *instrumentedTx) Commit(ctx context.Context) ([]OpResult, error) {
	start := time.Now()
	n := t.next.Len()
	res, err := t.next.Commit(ctx)
	t.metrics.RecordTransaction(n, time.Since(start), err)
	return res, err
}
