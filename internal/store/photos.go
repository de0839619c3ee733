package store

import (
	"context"
	"errors"
	"sort"

	storeerrors "github.com/apmoronez/dogbot/internal/errors"
	"github.com/apmoronez/dogbot/internal/kv"
)

// AddPhoto adds url to the dog's photo set
func (r *Repository) AddPhoto(ctx context.Context, tenant string, id int64, url string) error {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return err
	}
	if url == "" {
		return storeerrors.Validation("imageURL", "cannot be empty")
	}
	if err := r.engine.SAdd(ctx, r.keys.PhotoKey(tenant, id), url); err != nil {
		return storeerrors.Engine("could not add dog photo", err)
	}
	return nil
}

// RemovePhoto removes url from the dog's photo set
func (r *Repository) RemovePhoto(ctx context.Context, tenant string, id int64, url string) error {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return err
	}
	if err := r.engine.SRem(ctx, r.keys.PhotoKey(tenant, id), url); err != nil {
		return storeerrors.Engine("could not remove dog photo", err)
	}
	return nil
}

// HasPhoto reports whether url is in the dog's photo set
func (r *Repository) HasPhoto(ctx context.Context, tenant string, id int64, url string) (bool, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return false, err
	}
	ok, err := r.engine.SIsMember(ctx, r.keys.PhotoKey(tenant, id), url)
	if err != nil {
		return false, storeerrors.Engine("could not check dog photo", err)
	}
	return ok, nil
}

// ListPhotos returns the dog's photo URLs, sorted
func (r *Repository) ListPhotos(ctx context.Context, tenant string, id int64) ([]string, error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	urls, err := r.engine.SMembers(ctx, r.keys.PhotoKey(tenant, id))
	if err != nil {
		return nil, storeerrors.Engine("could not list dog photos", err)
	}
	sort.Strings(urls)
	return urls, nil
}

// PickRandomPhoto returns a random photo URL; ok is false for an empty set
func (r *Repository) PickRandomPhoto(ctx context.Context, tenant string, id int64) (url string, ok bool, err error) {
	if err := r.validator.ValidateTenantID(tenant); err != nil {
		return "", false, err
	}
	url, err = r.engine.SRandMember(ctx, r.keys.PhotoKey(tenant, id))
	if errors.Is(err, kv.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeerrors.Engine("could not pick dog photo", err)
	}
	return url, true, nil
}
