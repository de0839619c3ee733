package store

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/apmoronez/dogbot/internal/model"
	"github.com/apmoronez/dogbot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testNamespace = "test"
	tenantA       = "T1"
	tenantB       = "T2"
)

func newTestRepository(t *testing.T, opts ...Option) (*Repository, *miniredis.Miniredis) {
	t.Helper()
	engine, mr := testutil.NewEngine(t)
	return NewRepository(engine, testNamespace, CollectionTeams, opts...), mr
}

func mustCreate(t *testing.T, r *Repository, tenant string, patch model.Patch) *model.Dog {
	t.Helper()
	dog, err := r.Create(context.Background(), tenant, patch)
	require.NoError(t, err)
	require.NotNil(t, dog)
	return dog
}

func ids(dogs []*model.Dog) []int64 {
	out := make([]int64, len(dogs))
	for i, d := range dogs {
		out[i] = d.ID
	}
	return out
}

// assertIndexConsistent checks that every dog sits in exactly the index sets
// of its current indexed values and that every registered name has a holder.
func assertIndexConsistent(t *testing.T, mr *miniredis.Miniredis, r *Repository, tenant string) {
	t.Helper()

	dataPrefix := r.keys.Key(tenant, CategoryData, "")
	setsPrefix := r.keys.Key(tenant, CategorySets, "")
	photoPrefix := r.keys.PhotoKey(tenant, 0)
	photoPrefix = strings.TrimSuffix(photoPrefix, "0")

	records := make(map[string]map[string]string)
	for _, key := range mr.Keys() {
		if !strings.HasPrefix(key, dataPrefix) {
			continue
		}
		id := strings.TrimPrefix(key, dataPrefix)
		fields, err := mr.HKeys(key)
		require.NoError(t, err)
		rec := make(map[string]string, len(fields))
		for _, f := range fields {
			rec[f] = mr.HGet(key, f)
		}
		records[id] = rec
	}

	// every index member matches the record's current value
	indexed := make(map[string]map[string]bool)
	for _, key := range mr.Keys() {
		if !strings.HasPrefix(key, setsPrefix) || strings.HasPrefix(key, photoPrefix) {
			continue
		}
		field, value, ok := strings.Cut(strings.TrimPrefix(key, setsPrefix), ":")
		require.True(t, ok, key)
		members, err := mr.Members(key)
		require.NoError(t, err)
		indexed[key] = make(map[string]bool, len(members))
		for _, id := range members {
			indexed[key][id] = true
			rec, exists := records[id]
			require.True(t, exists, "index %s holds deleted dog %s", key, id)
			assert.Equal(t, value, rec[field], "dog %s is in stale index %s", id, key)
		}
	}

	// every current indexed value has the dog in its index
	for id, rec := range records {
		for _, def := range model.DogFields {
			value, ok := rec[def.Name]
			if !def.Indexed || !ok {
				continue
			}
			assert.True(t, indexed[r.keys.IndexKey(tenant, def.Name, value)][id],
				"dog %s missing from index %s=%s", id, def.Name, value)
		}
	}

	// the name registry is exactly the set of names in use
	want := make(map[string]bool)
	for _, rec := range records {
		want[rec[model.FieldName]] = true
	}
	var registered []string
	if mr.Exists(r.keys.NameRegistryKey(tenant)) {
		var err error
		registered, err = mr.Members(r.keys.NameRegistryKey(tenant))
		require.NoError(t, err)
	}
	assert.Len(t, registered, len(want))
	for _, name := range registered {
		assert.True(t, want[name], "registry keeps unused name %q", name)
	}
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
