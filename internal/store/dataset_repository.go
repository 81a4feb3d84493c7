package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/models"
)

// datasetsBlobKey is the fixed key the dataset collection is persisted under.
const datasetsBlobKey = "datasets"

// DatasetRepository stores the dataset collection as one JSON blob.
type DatasetRepository struct {
	store BlobStore

	// mu serializes in-process read-modify-write cycles. Writers in other
	// processes still race with last-write-wins, matching the store's model.
	mu sync.Mutex
}

// NewDatasetRepository creates a repository over the given blob store.
func NewDatasetRepository(store BlobStore) *DatasetRepository {
	return &DatasetRepository{store: store}
}

func (r *DatasetRepository) load(ctx context.Context) ([]models.Dataset, error) {
	data, ok, err := r.store.Get(ctx, datasetsBlobKey)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, nil
	}

	var datasets []models.Dataset
	if err := json.Unmarshal(data, &datasets); err != nil {
		return nil, fmt.Errorf("decode datasets blob: %w", err)
	}

	return datasets, nil
}

func (r *DatasetRepository) persist(ctx context.Context, datasets []models.Dataset) error {
	// Empty-collection tombstoning: removing the last dataset removes the
	// blob entirely instead of writing an empty array.
	if len(datasets) == 0 {
		return r.store.Delete(ctx, datasetsBlobKey)
	}

	data, err := json.Marshal(datasets)
	if err != nil {
		return fmt.Errorf("encode datasets blob: %w", err)
	}

	return r.store.Put(ctx, datasetsBlobKey, data)
}

// List returns all stored datasets. An absent blob is an empty list.
func (r *DatasetRepository) List(ctx context.Context) ([]models.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(ctx)
}

// Get returns the dataset with the given id.
func (r *DatasetRepository) Get(ctx context.Context, id int64) (*models.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	datasets, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range datasets {
		if datasets[i].ID == id {
			return &datasets[i], nil
		}
	}

	return nil, apperrors.NewNotFoundError("dataset", "dataset "+strconv.FormatInt(id, 10)+" not found")
}

// Add appends a dataset and persists the whole collection.
func (r *DatasetRepository) Add(ctx context.Context, dataset models.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	datasets, err := r.load(ctx)
	if err != nil {
		return err
	}

	dataset.DuplicationFactor = models.NormalizeDuplicationFactor(dataset.DuplicationFactor)
	datasets = append(datasets, dataset)

	return r.persist(ctx, datasets)
}

// Delete removes the dataset with the given id.
func (r *DatasetRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	datasets, err := r.load(ctx)
	if err != nil {
		return err
	}

	remaining := datasets[:0]
	found := false

	for _, ds := range datasets {
		if ds.ID == id {
			found = true
			continue
		}

		remaining = append(remaining, ds)
	}

	if !found {
		return apperrors.NewNotFoundError("dataset", "dataset "+strconv.FormatInt(id, 10)+" not found")
	}

	return r.persist(ctx, remaining)
}
