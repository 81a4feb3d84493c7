package service

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/observability"
	"github.com/evaldeck/console/pkg/cache"
	"github.com/evaldeck/console/pkg/evalbackend"
)

const cacheNameAssistant = "assistant"

// Assistant metadata rarely changes mid-session; a short TTL keeps repeated
// console renders off the backend without serving stale documents for long.
const (
	assistantCacheSize = 128
	assistantCacheTTL  = 5 * time.Minute
)

// AssistantFetcher is the slice of the backend client the assistant lookup
// needs. Tests substitute a mock.
type AssistantFetcher interface {
	GetAssistant(ctx context.Context, apiKey, assistantID string) (*evalbackend.AssistantDocument, error)
}

// AssistantService fetches assistant metadata through a loader cache, keyed
// per API key so one key's access never leaks into another's view. The
// cached document keeps the upstream status, so a replay mirrors the
// original response exactly.
type AssistantService struct {
	backend AssistantFetcher
	cache   *cache.LoaderCache[*evalbackend.AssistantDocument]
	metrics observability.CacheMetrics
}

// NewAssistantService creates an AssistantService. metrics may be nil.
func NewAssistantService(backend AssistantFetcher, metrics observability.CacheMetrics) *AssistantService {
	return &AssistantService{
		backend: backend,
		cache:   cache.NewLoaderCache[*evalbackend.AssistantDocument](assistantCacheSize, assistantCacheTTL),
		metrics: metrics,
	}
}

// GetAssistant returns the assistant document, from cache when fresh.
func (s *AssistantService) GetAssistant(ctx context.Context, apiKey, assistantID string) (*evalbackend.AssistantDocument, error) {
	if assistantID == "" {
		return nil, apperrors.NewValidationError("assistant_id", "assistant_id is required")
	}

	cacheKey := apiKey + "\x00" + assistantID

	doc, hit, err := s.cache.Get(ctx, cacheKey, func(ctx context.Context, _ string) (*evalbackend.AssistantDocument, error) {
		return s.backend.GetAssistant(ctx, apiKey, assistantID)
	})
	if err != nil {
		return nil, fmt.Errorf("get assistant: %w", err)
	}

	if s.metrics != nil {
		if hit {
			s.metrics.RecordHit(ctx, cacheNameAssistant)
		} else {
			s.metrics.RecordMiss(ctx, cacheNameAssistant)
		}
	}

	return doc, nil
}
