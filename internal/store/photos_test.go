package store

import (
	"context"
	"testing"

	storeerrors "github.com/apmoronez/dogbot/internal/errors"
	"github.com/apmoronez/dogbot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Photos(t *testing.T) {
	r, _ := newTestRepository(t)
	ctx := context.Background()

	dog := mustCreate(t, r, tenantA, model.Patch{"name": "Rex"})

	url, ok, err := r.PickRandomPhoto(ctx, tenantA, dog.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, url)

	require.NoError(t, r.AddPhoto(ctx, tenantA, dog.ID, "https://example.com/b.png"))
	require.NoError(t, r.AddPhoto(ctx, tenantA, dog.ID, "https://example.com/a.png"))
	require.NoError(t, r.AddPhoto(ctx, tenantA, dog.ID, "https://example.com/a.png"))

	urls, err := r.ListPhotos(ctx, tenantA, dog.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a.png", "https://example.com/b.png"}, urls)

	has, err := r.HasPhoto(ctx, tenantA, dog.ID, "https://example.com/a.png")
	require.NoError(t, err)
	assert.True(t, has)

	url, ok, err = r.PickRandomPhoto(ctx, tenantA, dog.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, urls, url)

	withPhoto, err := r.GetByID(ctx, tenantA, dog.ID)
	require.NoError(t, err)
	assert.Contains(t, urls, withPhoto.ImageURL)

	require.NoError(t, r.RemovePhoto(ctx, tenantA, dog.ID, "https://example.com/a.png"))
	has, err = r.HasPhoto(ctx, tenantA, dog.ID, "https://example.com/a.png")
	require.NoError(t, err)
	assert.False(t, has)

	// removing an absent photo is fine
	require.NoError(t, r.RemovePhoto(ctx, tenantA, dog.ID, "https://example.com/missing.png"))
}

func TestRepository_AddPhotoRejectsEmptyURL(t *testing.T) {
	r, mr := newTestRepository(t)

	err := r.AddPhoto(context.Background(), tenantA, 1, "")
	assert.ErrorIs(t, err, storeerrors.ErrValidation)
	assert.Empty(t, mr.Keys())
}
