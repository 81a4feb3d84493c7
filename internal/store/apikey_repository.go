package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/models"
)

// apiKeysBlobKey is the fixed key the saved-key list is persisted under.
const apiKeysBlobKey = "api_keys"

// APIKeyRepository stores the operator's saved backend keys as one JSON blob,
// with the same read-modify-write and tombstoning behavior as the datasets.
type APIKeyRepository struct {
	store BlobStore
	mu    sync.Mutex
}

// NewAPIKeyRepository creates a repository over the given blob store.
func NewAPIKeyRepository(store BlobStore) *APIKeyRepository {
	return &APIKeyRepository{store: store}
}

func (r *APIKeyRepository) load(ctx context.Context) ([]models.APIKey, error) {
	data, ok, err := r.store.Get(ctx, apiKeysBlobKey)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, nil
	}

	var keys []models.APIKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("decode api keys blob: %w", err)
	}

	return keys, nil
}

func (r *APIKeyRepository) persist(ctx context.Context, keys []models.APIKey) error {
	if len(keys) == 0 {
		return r.store.Delete(ctx, apiKeysBlobKey)
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encode api keys blob: %w", err)
	}

	return r.store.Put(ctx, apiKeysBlobKey, data)
}

// List returns all saved keys.
func (r *APIKeyRepository) List(ctx context.Context) ([]models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(ctx)
}

// Get returns the saved key with the given id.
func (r *APIKeyRepository) Get(ctx context.Context, id string) (*models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range keys {
		if keys[i].ID == id {
			return &keys[i], nil
		}
	}

	return nil, apperrors.NewNotFoundError("api key", "api key "+id+" not found")
}

// Add appends a saved key and persists the whole list.
func (r *APIKeyRepository) Add(ctx context.Context, key models.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, err := r.load(ctx)
	if err != nil {
		return err
	}

	keys = append(keys, key)

	return r.persist(ctx, keys)
}

// Delete removes the saved key with the given id.
func (r *APIKeyRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, err := r.load(ctx)
	if err != nil {
		return err
	}

	remaining := keys[:0]
	found := false

	for _, k := range keys {
		if k.ID == id {
			found = true
			continue
		}

		remaining = append(remaining, k)
	}

	if !found {
		return apperrors.NewNotFoundError("api key", "api key "+id+" not found")
	}

	return r.persist(ctx, remaining)
}
