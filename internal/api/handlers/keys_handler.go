package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evaldeck/console/internal/api/response"
	"github.com/evaldeck/console/internal/api/validation"
	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/models"
	"github.com/evaldeck/console/internal/store"
)

// KeysHandler manages the operator's saved backend API keys. Keys are stored
// verbatim for forwarding but listed masked; the full value is only returned
// once, from Create.
type KeysHandler struct {
	repo *store.APIKeyRepository
}

// NewKeysHandler creates a keys handler.
func NewKeysHandler(repo *store.APIKeyRepository) *KeysHandler {
	return &KeysHandler{repo: repo}
}

type createKeyRequest struct {
	Name string `json:"name" validate:"required,no_null_bytes"`
	Key  string `json:"key" validate:"required,no_null_bytes"`
}

type keyView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MaskedKey string    `json:"masked_key"`
	CreatedAt time.Time `json:"created_at"`
}

func maskKey(key string) string {
	const visible = 4

	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}

	return strings.Repeat("*", len(key)-visible) + key[len(key)-visible:]
}

// List handles GET /v1/keys.
func (h *KeysHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("Failed to list api keys", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	views := make([]keyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, keyView{
			ID:        k.ID,
			Name:      k.Name,
			MaskedKey: maskKey(k.Key),
			CreatedAt: k.CreatedAt,
		})
	}

	response.RespondJSON(w, http.StatusOK, views)
}

// Create handles POST /v1/keys.
func (h *KeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		slog.Warn("Invalid request body", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	key := models.APIKey{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      req.Name,
		Key:       req.Key,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.repo.Add(r.Context(), key); err != nil {
		slog.Error("Failed to store api key", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusCreated, key)
}

// Delete handles DELETE /v1/keys/{id}.
func (h *KeysHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		response.RespondBadRequest(w, "Key ID is required")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			response.RespondNotFound(w, "API key not found")
			return
		}

		slog.Error("Failed to delete api key", "id", id, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
