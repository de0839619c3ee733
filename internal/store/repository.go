// Package store implements the per-tenant dog repository on top of a kv.Engine:
// schema-driven coercion, secondary index reconciliation, set-algebra queries
// and the tenant metadata collections.
//
// The repository holds no mutable state. Reads and the following write of an
// update are not isolated from each other; callers that need read-modify-write
// isolation per dog must serialize updates themselves.
package store

import (
	"context"
	"math/rand/v2"
	"strconv"

	"github.com/apmoronez/dogbot/internal/errors"
	"github.com/apmoronez/dogbot/internal/kv"
	"github.com/apmoronez/dogbot/internal/model"
	"github.com/apmoronez/dogbot/internal/validation"
)

// Repository stores dogs for every tenant of one collection
type Repository struct {
	engine    kv.Engine
	keys      KeyNamer
	validator *validation.Validator
	intN      func(n int) int
}

// Option configures a Repository
type Option func(*Repository)

// WithRandom replaces the uniform [0,n) picker used by random selection
func WithRandom(intN func(n int) int) Option {
	return func(r *Repository) {
		r.intN = intN
	}
}

// NewRepository creates a repository for collection under namespace
func NewRepository(engine kv.Engine, namespace, collection string, opts ...Option) *Repository {
	r := &Repository{
		engine:    engine,
		keys:      NewKeyNamer(namespace, collection),
		validator: validation.NewValidator(),
		intN:      rand.IntN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Keys exposes the key layout, for tooling and tests
func (r *Repository) Keys() KeyNamer {
	return r.keys
}

// Create stores a new dog and assigns its id. The patch must not carry an id.
// A dog that is not explicitly bad starts as good.
func (r *Repository) Create(ctx context.Context, tenant string, patch model.Patch) (*model.Dog, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	if id, ok := patch[model.FieldID]; ok && id != nil {
		return nil, errors.AlreadyHasID(id)
	}

	fields := copyPatch(patch)
	// only a dog with no say on isBad gets the default
	if raw, ok := fields[model.FieldIsBad]; !ok || raw == nil {
		fields[model.FieldIsGood] = true
		fields[model.FieldIsBad] = false
	}

	// Reject bad input before an id is spent on it
	fields[model.FieldID] = int64(1)
	if _, err := planSave(fields, nil, true); err != nil {
		return nil, err
	}

	id, err := r.engine.Incr(ctx, r.keys.IDSequenceKey(tenant))
	if err != nil {
		return nil, errors.Engine("could not get new id for dog", err)
	}
	fields[model.FieldID] = id

	return r.save(ctx, tenant, id, fields, true)
}

// Update applies a partial update to an existing dog. Absent fields are left
// untouched and fields mapped to nil are cleared.
//
// When the write succeeds but pruning the previous name from the registry
// fails, the saved dog is returned together with the error.
func (r *Repository) Update(ctx context.Context, tenant string, id int64, patch model.Patch) (*model.Dog, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, errors.Validation(model.FieldID, "dog does not have an id (use create for new dogs)")
	}

	fields := copyPatch(patch)
	if raw, ok := fields[model.FieldID]; ok && raw != nil {
		def, _ := model.LookupField(model.FieldID)
		given, err := validation.Coerce(def, raw)
		if err != nil {
			return nil, err
		}
		if given != strconv.FormatInt(id, 10) {
			return nil, errors.Validation(model.FieldID, "cannot change a dog's id")
		}
	}
	fields[model.FieldID] = id

	return r.save(ctx, tenant, id, fields, false)
}

// save is the shared write path of Create and Update
func (r *Repository) save(ctx context.Context, tenant string, id int64, fields model.Patch, creating bool) (*model.Dog, error) {
	dataKey := r.keys.DataKey(tenant, id)

	old, err := r.engine.HGetAll(ctx, dataKey)
	if err != nil {
		return nil, errors.Engine("could not retrieve dog "+strconv.FormatInt(id, 10), err)
	}
	exists := len(old) > 0

	if !exists && !creating {
		return nil, errors.NotFound("dog", strconv.FormatInt(id, 10))
	}
	if exists && creating {
		return nil, errors.DuplicateID(id)
	}

	plan, err := planSave(fields, old, creating)
	if err != nil {
		return nil, err
	}

	member := strconv.FormatInt(id, 10)
	tx := r.engine.Begin()
	if len(plan.deletes) > 0 {
		tx.Stage(kv.HDel(dataKey, plan.deletes...))
	}
	if len(plan.upserts) > 0 {
		tx.Stage(kv.HSet(dataKey, plan.upserts))
	}
	for _, ix := range plan.addIndexes {
		tx.Stage(kv.SAdd(r.keys.IndexKey(tenant, ix.field, ix.value), member))
	}
	for _, ix := range plan.removeIndexes {
		tx.Stage(kv.SRem(r.keys.IndexKey(tenant, ix.field, ix.value), member))
	}
	if plan.newName != "" {
		tx.Stage(kv.SAdd(r.keys.NameRegistryKey(tenant), plan.newName))
	}

	if _, err := tx.Commit(ctx); err != nil {
		tx.Discard()
		return nil, errors.StorageWrite("could not save dog data", err).
			WithDetail("id", id)
	}

	dog := model.DecodeDog(plan.merged(old))
	dog.ID = id

	if plan.oldName != "" && plan.oldName != plan.newName {
		if err := r.pruneName(ctx, tenant, plan.oldName); err != nil {
			return dog, err
		}
	}
	return dog, nil
}

// Delete removes a dog, its index memberships and its photos, then prunes
// its name from the registry if no other dog still uses it.
func (r *Repository) Delete(ctx context.Context, tenant string, id int64) error {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return err
	}

	dataKey := r.keys.DataKey(tenant, id)
	current, err := r.engine.HGetAll(ctx, dataKey)
	if err != nil {
		return errors.Engine("could not retrieve dog "+strconv.FormatInt(id, 10), err)
	}
	if len(current) == 0 {
		return errors.NotFound("dog", strconv.FormatInt(id, 10))
	}

	member := strconv.FormatInt(id, 10)
	tx := r.engine.Begin()
	tx.Stage(kv.Del(dataKey))
	for _, def := range model.DogFields {
		if !def.Indexed {
			continue
		}
		if value, ok := current[def.Name]; ok && value != "" {
			tx.Stage(kv.SRem(r.keys.IndexKey(tenant, def.Name, value), member))
		}
	}
	tx.Stage(kv.Del(r.keys.PhotoKey(tenant, id)))

	if _, err := tx.Commit(ctx); err != nil {
		tx.Discard()
		return errors.StorageWrite("could not delete dog data", err).
			WithDetail("id", id)
	}

	return r.pruneName(ctx, tenant, current[model.FieldName])
}

// pruneName drops name from the registry once its index set is empty. The
// emptiness check and the removal run as one engine step, so a dog created
// with the same name in between keeps its registry entry. Safe to run any
// number of times.
func (r *Repository) pruneName(ctx context.Context, tenant, name string) error {
	if name == "" {
		return nil
	}
	guard := r.keys.IndexKey(tenant, model.FieldName, name)
	if _, err := r.engine.SRemIfEmpty(ctx, guard, r.keys.NameRegistryKey(tenant), name); err != nil {
		return errors.Engine("could not clean up dog name registry", err).
			WithDetail("name", name)
	}
	return nil
}

func copyPatch(p model.Patch) model.Patch {
	out := make(model.Patch, len(p)+3)
	for k, v := range p {
		out[k] = v
	}
	return out
}
