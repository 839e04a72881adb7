package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/localdiscovery/internal/api/middleware"
	"github.com/zatekoja/localdiscovery/internal/application/services"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

// SemanticSearcher ranks indexed documents against a free-text query
type SemanticSearcher interface {
	Search(ctx context.Context, q services.SemanticQuery) ([]services.SemanticResult, error)
}

// EntityIndexer embeds one entity into the document index
type EntityIndexer interface {
	IndexEntity(ctx context.Context, entityType entities.EntityType, entityID string) (string, error)
}

// SemanticHandler handles semantic search and on-demand indexing
type SemanticHandler struct {
	searcher SemanticSearcher
	indexer  EntityIndexer
}

// NewSemanticHandler creates a new semantic handler
func NewSemanticHandler(searcher SemanticSearcher, indexer EntityIndexer) *SemanticHandler {
	return &SemanticHandler{
		searcher: searcher,
		indexer:  indexer,
	}
}

// Search handles GET /api/semantic-search
func (h *SemanticHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	query := services.SemanticQuery{
		Query:          q.str("query"),
		TopK:           q.intPtr("topK"),
		MinScore:       q.float("minScore"),
		Alpha:          q.float("alpha"),
		IncludeContent: q.bool("includeContent"),
	}
	if err := q.Err(); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	results, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if results == nil {
		results = []services.SemanticResult{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"data":  results,
		"count": len(results),
	})
}

// IndexEntity handles POST /api/index/{entityType}/{id}
func (h *SemanticHandler) IndexEntity(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respondWithAppError(w, r, apperrors.NewUnauthorizedError("authentication required"))
		return
	}
	if !user.IsAdmin() {
		respondWithAppError(w, r, apperrors.NewForbiddenError("indexing requires an admin session"))
		return
	}

	entityType, err := entities.ParseEntityType(r.PathValue("entityType"))
	if err != nil {
		respondWithAppError(w, r, apperrors.NewValidationError(err.Error()))
		return
	}
	entityID := r.PathValue("id")
	if entityID == "" {
		respondWithError(w, http.StatusBadRequest, "entity ID is required")
		return
	}

	docID, err := h.indexer.IndexEntity(r.Context(), entityType, entityID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"id": docID})
}
