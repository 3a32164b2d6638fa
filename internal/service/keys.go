package service

import (
	"context"
	"sync"

	"botforge/internal/auth"
	"botforge/internal/model"
	"botforge/internal/notify"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	BusyKeysLoad = "keys.load"
	BusyKeysSave = "keys.save"
)

// secretTokenBytes gives 256 bits of entropy per key
const secretTokenBytes = 32

// KeyQueries is the slice of the query layer the key store needs
type KeyQueries interface {
	CreateAPIKey(ctx context.Context, id, label, token string) (model.ApiKey, error)
	ListAPIKeys(ctx context.Context) ([]model.ApiKey, error)
	SetAPIKeyActive(ctx context.Context, id string, active bool) error
	DeleteAPIKey(ctx context.Context, id string) error
}

// KeyStore manages publishing API keys. The cache only ever holds the
// non-secret projection; the plaintext token leaves Create exactly once
// and is not retrievable afterwards.
type KeyStore struct {
	mu      sync.RWMutex
	cache   []model.ApiKey
	queries KeyQueries
	notify  *notify.Center
	busy    *BusyTracker
	log     *zap.Logger
}

func NewKeyStore(queries KeyQueries, center *notify.Center, busy *BusyTracker, log *zap.Logger) *KeyStore {
	return &KeyStore{
		queries: queries,
		notify:  center,
		busy:    busy,
		log:     log,
	}
}

func (s *KeyStore) List() []model.ApiKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ApiKey, len(s.cache))
	copy(out, s.cache)
	return out
}

func (s *KeyStore) Fetch(ctx context.Context) error {
	s.busy.Begin(BusyKeysLoad)
	defer s.busy.End(BusyKeysLoad)

	keys, err := s.queries.ListAPIKeys(ctx)
	if err != nil {
		s.log.Error("Failed to fetch API keys", zap.Error(err))
		s.notify.Error("Failed to load API keys", err.Error())
		return err
	}

	s.mu.Lock()
	s.cache = keys
	s.mu.Unlock()
	return nil
}

// Create mints a key and returns the plaintext token alongside the
// stored projection. This is the only moment the token is visible.
func (s *KeyStore) Create(ctx context.Context, label string) (model.ApiKey, string, error) {
	s.busy.Begin(BusyKeysSave)
	defer s.busy.End(BusyKeysSave)

	token, err := auth.NewSecretToken(secretTokenBytes)
	if err != nil {
		s.log.Error("Failed to generate API key token", zap.Error(err))
		s.notify.Error("Failed to create API key", err.Error())
		return model.ApiKey{}, "", err
	}

	key, err := s.queries.CreateAPIKey(ctx, ulid.Make().String(), label, token)
	if err != nil {
		s.log.Error("Failed to create API key", zap.Error(err))
		s.notify.Error("Failed to create API key", err.Error())
		return model.ApiKey{}, "", err
	}

	s.mu.Lock()
	s.cache = append([]model.ApiKey{key}, s.cache...)
	s.mu.Unlock()

	s.notify.Success("API key created")
	return key, token, nil
}

// SetActive toggles a key without touching its token
func (s *KeyStore) SetActive(ctx context.Context, id string, active bool) error {
	s.busy.Begin(BusyKeysSave)
	defer s.busy.End(BusyKeysSave)

	if err := s.queries.SetAPIKeyActive(ctx, id, active); err != nil {
		s.log.Error("Failed to toggle API key", zap.String("id", id), zap.Error(err))
		s.notify.Error("Failed to update API key", err.Error())
		return err
	}

	s.mu.Lock()
	for i := range s.cache {
		if s.cache[i].ID == id {
			s.cache[i].Active = active
			break
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *KeyStore) Delete(ctx context.Context, id string) error {
	s.busy.Begin(BusyKeysSave)
	defer s.busy.End(BusyKeysSave)

	if err := s.queries.DeleteAPIKey(ctx, id); err != nil {
		s.log.Error("Failed to delete API key", zap.String("id", id), zap.Error(err))
		s.notify.Error("Failed to delete API key", err.Error())
		return err
	}

	s.mu.Lock()
	kept := s.cache[:0]
	for _, k := range s.cache {
		if k.ID != id {
			kept = append(kept, k)
		}
	}
	s.cache = kept
	s.mu.Unlock()

	s.notify.Success("API key deleted")
	return nil
}
