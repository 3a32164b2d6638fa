package service

import (
	"context"
	"testing"
	"time"

	"botforge/internal/model"
	"botforge/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKeyQueries struct {
	created  []string // tokens passed to CreateAPIKey
	listFn   func(ctx context.Context) ([]model.ApiKey, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeKeyQueries) CreateAPIKey(ctx context.Context, id, label, token string) (model.ApiKey, error) {
	f.created = append(f.created, token)
	return model.ApiKey{ID: id, Label: label, CreatedAt: time.Now(), Active: true}, nil
}

func (f *fakeKeyQueries) ListAPIKeys(ctx context.Context) ([]model.ApiKey, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return []model.ApiKey{}, nil
}

func (f *fakeKeyQueries) SetAPIKeyActive(ctx context.Context, id string, active bool) error {
	return nil
}

func (f *fakeKeyQueries) DeleteAPIKey(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func TestKeyStore_CreateReturnsTokenExactlyOnce(t *testing.T) {
	q := &fakeKeyQueries{}
	s := NewKeyStore(q, notify.NewCenter(), NewBusyTracker(), zap.NewNop())

	key, token, err := s.Create(context.Background(), "n8n production")
	require.NoError(t, err)

	assert.Len(t, token, 64, "32 random bytes hex-encoded")
	require.Len(t, q.created, 1)
	assert.Equal(t, q.created[0], token, "stored token must be the one handed back")
	assert.Equal(t, "n8n production", key.Label)
	assert.True(t, key.Active)

	// Nothing reachable after creation carries the token
	for _, k := range s.List() {
		assert.NotContains(t, []string{k.ID, k.Label}, token)
	}

	_, token2, err := s.Create(context.Background(), "staging")
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}

func TestKeyStore_CreatePrependsToCache(t *testing.T) {
	q := &fakeKeyQueries{
		listFn: func(ctx context.Context) ([]model.ApiKey, error) {
			return []model.ApiKey{{ID: "old", Label: "old"}}, nil
		},
	}
	s := NewKeyStore(q, notify.NewCenter(), NewBusyTracker(), zap.NewNop())
	require.NoError(t, s.Fetch(context.Background()))

	key, _, err := s.Create(context.Background(), "new")
	require.NoError(t, err)

	got := s.List()
	require.Len(t, got, 2)
	assert.Equal(t, key.ID, got[0].ID, "newest key first, matching the listing order")
}

func TestKeyStore_SetActiveUpdatesCache(t *testing.T) {
	q := &fakeKeyQueries{
		listFn: func(ctx context.Context) ([]model.ApiKey, error) {
			return []model.ApiKey{{ID: "k1", Active: true}}, nil
		},
	}
	s := NewKeyStore(q, notify.NewCenter(), NewBusyTracker(), zap.NewNop())
	require.NoError(t, s.Fetch(context.Background()))

	require.NoError(t, s.SetActive(context.Background(), "k1", false))

	got := s.List()
	require.Len(t, got, 1)
	assert.False(t, got[0].Active)
}

func TestKeyStore_DeleteRemovesFromCache(t *testing.T) {
	q := &fakeKeyQueries{
		listFn: func(ctx context.Context) ([]model.ApiKey, error) {
			return []model.ApiKey{{ID: "k1"}, {ID: "k2"}}, nil
		},
	}
	s := NewKeyStore(q, notify.NewCenter(), NewBusyTracker(), zap.NewNop())
	require.NoError(t, s.Fetch(context.Background()))

	require.NoError(t, s.Delete(context.Background(), "k1"))

	got := s.List()
	require.Len(t, got, 1)
	assert.Equal(t, "k2", got[0].ID)
}
