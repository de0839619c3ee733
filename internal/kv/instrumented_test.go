package kv_test

import (
	"context"
	"testing"

	"github.com/apmoronez/dogbot/internal/kv"
	"github.com/apmoronez/dogbot/internal/metrics"
	"github.com/apmoronez/dogbot/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstrumented(t *testing.T) (*kv.InstrumentedEngine, *metrics.Metrics) {
	t.Helper()
	engine, _ := testutil.NewEngine(t)
	m := metrics.NewMetrics(prometheus.NewRegistry(), "test")
	return kv.NewInstrumentedEngine(engine, m), m
}

func TestInstrumentedEngine_CountsCommands(t *testing.T) {
	engine, m := newInstrumented(t)
	ctx := context.Background()

	require.NoError(t, engine.SAdd(ctx, "s", "1"))
	_, err := engine.SMembers(ctx, "s")
	require.NoError(t, err)
	_, err = engine.SMembers(ctx, "s")
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.EngineCommandsTotal.WithLabelValues("sadd", "success")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.EngineCommandsTotal.WithLabelValues("smembers", "success")))
}

func TestInstrumentedEngine_NilIsNotAnError(t *testing.T) {
	engine, m := newInstrumented(t)
	ctx := context.Background()

	_, err := engine.SRandMember(ctx, "empty")
	assert.ErrorIs(t, err, kv.ErrNil)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.EngineCommandsTotal.WithLabelValues("srandmember", "success")))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.EngineCommandsTotal.WithLabelValues("srandmember", "error")))
}

func TestInstrumentedEngine_RecordsTransactions(t *testing.T) {
	engine, m := newInstrumented(t)
	ctx := context.Background()

	tx := engine.Begin()
	tx.Stage(kv.SAdd("a", "1"))
	tx.Stage(kv.SAdd("b", "1"))
	_, err := tx.Commit(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.EngineCommandsTotal.WithLabelValues("exec", "success")))
	assert.Equal(t, 1, promtest.CollectAndCount(m.EngineBatchSize))
}
