// AngelaMos | 2026
// service_test.go

package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autowds/server/internal/core"
)

type favKey struct {
	userID     int64
	templateID int64
}

type memStore struct {
	counts    map[int64]int
	favorites map[favKey]bool
}

func newMemStore() *memStore {
	return &memStore{
		counts:    map[int64]int{},
		favorites: map[favKey]bool{},
	}
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.counts {
		c.counts[k] = v
	}
	for k, v := range s.favorites {
		c.favorites[k] = v
	}
	return c
}

type memRepo struct {
	store *memStore
}

func (r *memRepo) GetByID(_ context.Context, id int64) (*Template, error) {
	count, ok := r.store.counts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &Template{ID: id, FavCount: count}, nil
}

func (r *memRepo) List(
	_ context.Context, _ int64, _ ListTemplatesParams,
) ([]Template, int, error) {
	return nil, 0, nil
}

func (r *memRepo) ListFavorites(
	_ context.Context,
	userID int64,
) ([]Template, error) {
	var out []Template
	for key := range r.store.favorites {
		if key.userID == userID {
			out = append(out, Template{
				ID:       key.templateID,
				FavCount: r.store.counts[key.templateID],
				Liked:    true,
			})
		}
	}
	return out, nil
}

func (r *memRepo) IncrementFavCountIn(
	_ context.Context, _ core.DBTX, id int64,
) (bool, error) {
	if _, ok := r.store.counts[id]; !ok {
		return false, nil
	}
	r.store.counts[id]++
	return true, nil
}

func (r *memRepo) DecrementFavCountIn(
	_ context.Context, _ core.DBTX, id int64,
) (bool, error) {
	count, ok := r.store.counts[id]
	if !ok {
		return false, nil
	}
	if count > 0 {
		r.store.counts[id] = count - 1
	}
	return true, nil
}

func (r *memRepo) InsertFavoriteIn(
	_ context.Context, _ core.DBTX, userID, templateID int64,
) error {
	key := favKey{userID: userID, templateID: templateID}
	if r.store.favorites[key] {
		return core.ErrDuplicateKey
	}
	r.store.favorites[key] = true
	return nil
}

func (r *memRepo) DeleteFavoriteIn(
	_ context.Context, _ core.DBTX, userID, templateID int64,
) (bool, error) {
	key := favKey{userID: userID, templateID: templateID}
	if !r.store.favorites[key] {
		return false, nil
	}
	delete(r.store.favorites, key)
	return true, nil
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) InTx(_ context.Context, fn func(tx core.DBTX) error) error {
	saved := t.repo.store.clone()
	if err := fn(nil); err != nil {
		t.repo.store.counts = saved.counts
		t.repo.store.favorites = saved.favorites
		return err
	}
	return nil
}

func newTemplateService(templateIDs ...int64) (*Service, *memStore) {
	store := newMemStore()
	for _, id := range templateIDs {
		store.counts[id] = 0
	}
	repo := &memRepo{store: store}
	return NewService(repo, &memTx{repo: repo}), store
}

func TestFavorite_BumpsCountAndRecordsRow(t *testing.T) {
	svc, store := newTemplateService(10)
	ctx := context.Background()

	require.NoError(t, svc.Favorite(ctx, 1, 10))

	assert.Equal(t, 1, store.counts[10])
	assert.True(t, store.favorites[favKey{userID: 1, templateID: 10}])
}

func TestFavorite_MissingTemplateIsNotFound(t *testing.T) {
	svc, store := newTemplateService(10)

	err := svc.Favorite(context.Background(), 1, 999)
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, store.favorites)
}

func TestFavorite_DuplicateRollsBackCounter(t *testing.T) {
	svc, store := newTemplateService(10)
	ctx := context.Background()

	require.NoError(t, svc.Favorite(ctx, 1, 10))

	err := svc.Favorite(ctx, 1, 10)
	require.ErrorIs(t, err, core.ErrDuplicateKey)

	assert.Equal(t, 1, store.counts[10],
		"duplicate favorite must not inflate the counter")
}

func TestUnfavorite_RemovesRowAndDecrements(t *testing.T) {
	svc, store := newTemplateService(10)
	ctx := context.Background()

	require.NoError(t, svc.Favorite(ctx, 1, 10))
	require.NoError(t, svc.Unfavorite(ctx, 1, 10))

	assert.Equal(t, 0, store.counts[10])
	assert.Empty(t, store.favorites)
}

func TestUnfavorite_NotFavoritedRollsBackCounter(t *testing.T) {
	svc, store := newTemplateService(10)
	ctx := context.Background()

	require.NoError(t, svc.Favorite(ctx, 1, 10))

	err := svc.Unfavorite(ctx, 2, 10)
	require.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, 1, store.counts[10],
		"another user's unfavorite must not touch the counter")
}
