package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	storeerrors "github.com/apmoronez/dogbot/internal/errors"
	"github.com/apmoronez/dogbot/internal/kv"
	"github.com/apmoronez/dogbot/internal/model"
	"github.com/apmoronez/dogbot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTransaction struct {
	mock.Mock
}

func (m *mockTransaction) Stage(op kv.Op) { m.Called(op) }

func (m *mockTransaction) Len() int { return m.Called().Int(0) }

func (m *mockTransaction) Commit(ctx context.Context) ([]kv.OpResult, error) {
	args := m.Called(ctx)
	results, _ := args.Get(0).([]kv.OpResult)
	return results, args.Error(1)
}

func (m *mockTransaction) Discard() { m.Called() }

// txEngine hands out a fixed transaction
type txEngine struct {
	kv.Engine
	tx kv.Transaction
}

func (e *txEngine) Begin() kv.Transaction { return e.tx }

func TestRepository_CommitFailure(t *testing.T) {
	engine, mr := testutil.NewEngine(t)
	ctx := context.Background()

	seed := NewRepository(engine, testNamespace, CollectionTeams)
	dog := mustCreate(t, seed, tenantA, model.Patch{"name": "Rex", "breed": "lab"})
	before := mr.Dump()

	tx := &mockTransaction{}
	tx.On("Stage", mock.Anything).Return()
	tx.On("Commit", mock.Anything).Return(nil, errors.New("EXECABORT"))
	tx.On("Discard").Return()

	r := NewRepository(&txEngine{Engine: engine, tx: tx}, testNamespace, CollectionTeams)

	_, err := r.Update(ctx, tenantA, dog.ID, model.Patch{"breed": "pug"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storeerrors.ErrStorageWrite)
	assert.Contains(t, err.Error(), "EXECABORT")

	err = r.Delete(ctx, tenantA, dog.ID)
	assert.ErrorIs(t, err, storeerrors.ErrStorageWrite)

	tx.AssertNumberOfCalls(t, "Commit", 2)
	tx.AssertNumberOfCalls(t, "Discard", 2)
	assert.Equal(t, before, mr.Dump())
}

func TestRepository_UpdateStagesOnlyChanges(t *testing.T) {
	engine, _ := testutil.NewEngine(t)
	ctx := context.Background()

	seed := NewRepository(engine, testNamespace, CollectionTeams)
	dog := mustCreate(t, seed, tenantA, model.Patch{"name": "Rex", "breed": "lab", "birthYear": 2019})

	tx := &mockTransaction{}
	tx.On("Stage", mock.Anything).Return()
	tx.On("Commit", mock.Anything).Return([]kv.OpResult{}, nil)

	r := NewRepository(&txEngine{Engine: engine, tx: tx}, testNamespace, CollectionTeams)

	_, err := r.Update(ctx, tenantA, dog.ID, model.Patch{"breed": "pug", "birthYear": "2019"})
	require.NoError(t, err)

	dataKey := r.Keys().DataKey(tenantA, dog.ID)
	tx.AssertCalled(t, "Stage", kv.HSet(dataKey, map[string]string{"breed": "pug"}))
	tx.AssertCalled(t, "Stage", kv.SAdd(r.Keys().IndexKey(tenantA, "breed", "pug"), idString(dog.ID)))
	tx.AssertCalled(t, "Stage", kv.SRem(r.Keys().IndexKey(tenantA, "breed", "lab"), idString(dog.ID)))
	tx.AssertCalled(t, "Stage", kv.SAdd(r.Keys().NameRegistryKey(tenantA), "Rex"))
	tx.AssertNumberOfCalls(t, "Stage", 4)
	tx.AssertNotCalled(t, "Discard")
}

// pruneFailEngine fails registry cleanups guarded by a name index set
type pruneFailEngine struct {
	kv.Engine
	nameIndexPrefix string
}

func (e *pruneFailEngine) SRemIfEmpty(ctx context.Context, guard, key, member string) (bool, error) {
	if strings.HasPrefix(guard, e.nameIndexPrefix) {
		return false, errors.New("connection reset")
	}
	return e.Engine.SRemIfEmpty(ctx, guard, key, member)
}

func TestRepository_RenameReturnsDogWhenPruneFails(t *testing.T) {
	engine, mr := testutil.NewEngine(t)
	ctx := context.Background()

	seed := NewRepository(engine, testNamespace, CollectionTeams)
	dog := mustCreate(t, seed, tenantA, model.Patch{"name": "Rex"})

	r := NewRepository(&pruneFailEngine{
		Engine:          engine,
		nameIndexPrefix: seed.Keys().IndexKey(tenantA, model.FieldName, ""),
	}, testNamespace, CollectionTeams)

	saved, err := r.Update(ctx, tenantA, dog.ID, model.Patch{"name": "Max"})
	assert.ErrorIs(t, err, storeerrors.ErrEngine)
	require.NotNil(t, saved)
	assert.Equal(t, "Max", saved.Name())

	// the write landed; only the registry cleanup is pending
	got, err := seed.GetByID(ctx, tenantA, dog.ID)
	require.NoError(t, err)
	assert.Equal(t, "Max", got.Name())

	registered, err := mr.Members(seed.Keys().NameRegistryKey(tenantA))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Max", "Rex"}, registered)

	// a later delete of a Rex namesake, or any rename, prunes it again
	other := mustCreate(t, seed, tenantA, model.Patch{"name": "Rex"})
	require.NoError(t, seed.Delete(ctx, tenantA, other.ID))
	registered, err = mr.Members(seed.Keys().NameRegistryKey(tenantA))
	require.NoError(t, err)
	assert.Equal(t, []string{"Max"}, registered)
	assertIndexConsistent(t, mr, seed, tenantA)
}
