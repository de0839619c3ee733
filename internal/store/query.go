package store

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	storeerrors "github.com/apmoronez/dogbot/internal/errors"
	"github.com/apmoronez/dogbot/internal/model"
	"github.com/apmoronez/dogbot/internal/validation"
)

// GetByID loads one dog with a random photo, if it has any
func (r *Repository) GetByID(ctx context.Context, tenant string, id int64) (*model.Dog, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}

	raw, err := r.engine.HGetAll(ctx, r.keys.DataKey(tenant, id))
	if err != nil {
		return nil, storeerrors.Engine("could not retrieve dog "+strconv.FormatInt(id, 10), err)
	}
	if len(raw) == 0 {
		return nil, storeerrors.NotFound("dog", strconv.FormatInt(id, 10))
	}

	dog := model.DecodeDog(raw)
	dog.ID = id

	url, ok, err := r.PickRandomPhoto(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if ok {
		dog.ImageURL = url
	}
	return dog, nil
}

// GetAll lists every dog of the tenant by scanning its record hashes
func (r *Repository) GetAll(ctx context.Context, tenant string) ([]*model.Dog, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}

	keys, err := r.engine.Scan(ctx, r.keys.DataKeyPattern(tenant))
	if err != nil {
		return nil, storeerrors.Engine("could not list dogs", err)
	}

	prefix := r.keys.DataKeyPrefix(tenant)
	members := make([]string, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimPrefix(key, prefix)
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			continue
		}
		members = append(members, id)
	}
	return r.fetchMembers(ctx, tenant, members)
}

// GetAllAsMap is GetAll keyed by dog id
func (r *Repository) GetAllAsMap(ctx context.Context, tenant string) (map[int64]*model.Dog, error) {
	dogs, err := r.GetAll(ctx, tenant)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*model.Dog, len(dogs))
	for _, d := range dogs {
		out[d.ID] = d
	}
	return out, nil
}

// GetByIndexValue returns the dogs whose indexed field equals value
func (r *Repository) GetByIndexValue(ctx context.Context, tenant, field string, value interface{}) ([]*model.Dog, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	key, err := r.indexKey(tenant, field, value)
	if err != nil {
		return nil, err
	}

	ids, err := r.engine.SMembers(ctx, key)
	if err != nil {
		return nil, storeerrors.Engine("could not get dogs", err)
	}
	return r.fetchMembers(ctx, tenant, ids)
}

// GetByIndexValuesUnion returns the dogs whose field equals any of values.
// No values means no dogs, without touching the engine.
func (r *Repository) GetByIndexValuesUnion(ctx context.Context, tenant, field string, values []string) ([]*model.Dog, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return []*model.Dog{}, nil
	}

	keys := make([]string, 0, len(values))
	for _, v := range values {
		key, err := r.indexKey(tenant, field, v)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	ids, err := r.engine.SUnion(ctx, keys...)
	if err != nil {
		return nil, storeerrors.Engine("could not get set union", err)
	}
	return r.fetchMembers(ctx, tenant, ids)
}

// GetByFilterIntersection returns the dogs matching every filter.
// No filters means no dogs.
func (r *Repository) GetByFilterIntersection(ctx context.Context, tenant string, filters []model.Filter) ([]*model.Dog, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return []*model.Dog{}, nil
	}

	ids, err := r.intersect(ctx, tenant, filters)
	if err != nil {
		return nil, err
	}
	return r.fetchMembers(ctx, tenant, ids)
}

// GetRandom picks one dog, or returns nil when nothing matches.
//
// With filters the pick is uniform over the matching dogs. Without filters a
// name is picked uniformly from the name registry and then a dog uniformly
// among the dogs sharing it, so dogs with common names are picked less often
// than dogs with unique names.
func (r *Repository) GetRandom(ctx context.Context, tenant string, filters []model.Filter) (*model.Dog, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}

	if len(filters) > 0 {
		ids, err := r.intersect(ctx, tenant, filters)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		sortIDs(ids)
		id, err := strconv.ParseInt(ids[r.intN(len(ids))], 10, 64)
		if err != nil {
			return nil, storeerrors.Internal("corrupt dog id in index", err)
		}
		return r.GetByID(ctx, tenant, id)
	}

	names, err := r.GetAllNames(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	name := names[r.intN(len(names))]

	dogs, err := r.GetByIndexValue(ctx, tenant, model.FieldName, name)
	if err != nil {
		return nil, err
	}
	if len(dogs) == 0 {
		return nil, nil
	}
	return dogs[r.intN(len(dogs))], nil
}

// GetActiveOnDate returns the dogs expected on date's UTC day: dogs here on
// that exact date, on that weekday, or every day. Dogs whose goneDate is that
// day are still included; see ExcludeDepartedOn.
func (r *Repository) GetActiveOnDate(ctx context.Context, tenant string, date time.Time) ([]*model.Dog, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}

	day := model.Midnight(date)
	keys := []string{
		r.keys.IndexKey(tenant, model.FieldHereDate, model.FormatDate(day)),
		r.keys.IndexKey(tenant, model.WeekdayField(int(day.Weekday())), validation.StoredTrue),
		r.keys.IndexKey(tenant, model.FieldIsHereEveryday, validation.StoredTrue),
	}

	ids, err := r.engine.SUnion(ctx, keys...)
	if err != nil {
		return nil, storeerrors.Engine("could not get dogs that are here", err)
	}
	return r.fetchMembers(ctx, tenant, ids)
}

// ExcludeDepartedOn drops dogs whose goneDate is date's UTC day
func ExcludeDepartedOn(dogs []*model.Dog, date time.Time) []*model.Dog {
	gone := model.FormatDate(model.Midnight(date))
	out := make([]*model.Dog, 0, len(dogs))
	for _, d := range dogs {
		if v, ok := d.String(model.FieldGoneDate); ok && v == gone {
			continue
		}
		out = append(out, d)
	}
	return out
}

// GetAllNames lists the name registry, sorted
func (r *Repository) GetAllNames(ctx context.Context, tenant string) ([]string, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	names, err := r.engine.SMembers(ctx, r.keys.NameRegistryKey(tenant))
	if err != nil {
		return nil, storeerrors.Engine("could not get dog names", err)
	}
	sort.Strings(names)
	return names, nil
}

// FindByName returns every dog whose name matches name ignoring case
func (r *Repository) FindByName(ctx context.Context, tenant, name string) ([]*model.Dog, error) {
	names, err := r.GetAllNames(ctx, tenant)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, n := range names {
		if strings.EqualFold(n, name) {
			matches = append(matches, n)
		}
	}
	return r.GetByIndexValuesUnion(ctx, tenant, model.FieldName, matches)
}

// FetchMany resolves ids to dogs in one engine round trip. Ids without a
// stored record are skipped.
func (r *Repository) FetchMany(ctx context.Context, tenant string, ids []int64) ([]*model.Dog, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	members := make([]string, len(ids))
	for i, id := range ids {
		members[i] = strconv.FormatInt(id, 10)
	}
	return r.fetchMembers(ctx, tenant, members)
}

func (r *Repository) fetchMembers(ctx context.Context, tenant string, members []string) ([]*model.Dog, error) {
	if len(members) == 0 {
		return []*model.Dog{}, nil
	}

	sortIDs(members)
	ids := make([]int64, 0, len(members))
	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, storeerrors.Internal("corrupt dog id in index", err).WithDetail("member", m)
		}
		ids = append(ids, id)
		keys = append(keys, r.keys.DataKey(tenant, id))
	}

	rows, err := r.engine.FetchHashes(ctx, keys)
	if err != nil {
		return nil, storeerrors.Engine("could not get dogs from id list", err)
	}

	dogs := make([]*model.Dog, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		dog := model.DecodeDog(row)
		dog.ID = ids[i]
		dogs = append(dogs, dog)
	}
	return dogs, nil
}

func (r *Repository) intersect(ctx context.Context, tenant string, filters []model.Filter) ([]string, error) {
	keys := make([]string, 0, len(filters))
	for _, f := range filters {
		key, err := r.indexKey(tenant, f.Field, f.Value)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	ids, err := r.engine.SInter(ctx, keys...)
	if err != nil {
		return nil, storeerrors.Engine("could not get set intersection", err)
	}
	return ids, nil
}

// indexKey canonicalizes value through the field's coercer
func (r *Repository) indexKey(tenant, field string, value interface{}) (string, error) {
	def, ok := model.LookupField(field)
	if !ok || !def.Indexed {
		return "", storeerrors.Validation(field, "is not an indexed dog field")
	}
	if value == nil {
		return "", storeerrors.Validation(field, "index lookups need a value")
	}
	canonical, err := validation.Coerce(def, value)
	if err != nil {
		return "", err
	}
	return r.keys.IndexKey(tenant, field, canonical), nil
}

func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.ParseInt(ids[i], 10, 64)
		b, errB := strconv.ParseInt(ids[j], 10, 64)
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})
}

// IsNotFound reports whether err means the dog or document does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, storeerrors.ErrNotFound)
}
