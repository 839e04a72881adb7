package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
	"github.com/zatekoja/localdiscovery/pkg/vectors"
)

const (
	DefaultTopK     = 5
	MaxTopK         = 50
	DefaultMinScore = 0.2
	DefaultAlpha    = 0.7
)

// SemanticQuery holds the parameters of a semantic search. Nil fields take
// their defaults.
type SemanticQuery struct {
	Query          string
	TopK           *int
	MinScore       *float64
	Alpha          *float64
	IncludeContent bool
}

// SemanticResult is one ranked document
type SemanticResult struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content,omitempty"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    float64                `json:"score"`
}

// SemanticSearchService ranks embedding documents by a blend of cosine and
// lexical similarity. Every active document is scored on each query.
type SemanticSearchService struct {
	documents repositories.EmbeddingRepository
	embedder  providers.EmbeddingProvider
}

// NewSemanticSearchService creates a new semantic search service
func NewSemanticSearchService(documents repositories.EmbeddingRepository, embedder providers.EmbeddingProvider) *SemanticSearchService {
	return &SemanticSearchService{documents: documents, embedder: embedder}
}

// Search returns at most topK documents scoring at least minScore, best first
func (s *SemanticSearchService) Search(ctx context.Context, q SemanticQuery) ([]SemanticResult, error) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required")
	}
	topK, minScore, alpha := q.resolve()

	ctx, span := observability.StartSpan(ctx, "search.semantic",
		attribute.Int("search.top_k", topK),
		attribute.Float64("search.alpha", alpha),
	)
	defer span.End()

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewExternalError("failed to embed query", err)
	}

	docs, err := s.documents.ListActive(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, asAppError("failed to load embedding documents", err)
	}

	results := make([]SemanticResult, 0, len(docs))
	for _, doc := range docs {
		// A missing or mismatched vector contributes a zero cosine term
		score := HybridScore(vectors.Cosine(queryVector, doc.Vector), LexicalScore(query, doc.Title, doc.Content), alpha)
		if score < minScore {
			continue
		}
		results = append(results, toSemanticResult(doc, score, q.IncludeContent))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}

	span.SetAttributes(attribute.Int("search.candidates", len(docs)), attribute.Int("search.results", len(results)))
	return results, nil
}

func (q SemanticQuery) resolve() (topK int, minScore, alpha float64) {
	topK, minScore, alpha = DefaultTopK, DefaultMinScore, DefaultAlpha
	if q.TopK != nil {
		topK = min(max(*q.TopK, 1), MaxTopK)
	}
	if q.MinScore != nil && finite(*q.MinScore) {
		minScore = *q.MinScore
	}
	if q.Alpha != nil && finite(*q.Alpha) {
		alpha = min(max(*q.Alpha, 0), 1)
	}
	return topK, minScore, alpha
}

// finite is false for NaN and ±Inf, which min and max do not clamp
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// HybridScore blends the two similarities; alpha weights the cosine term
func HybridScore(cosine, lexical, alpha float64) float64 {
	return alpha*cosine + (1-alpha)*lexical
}

// LexicalScore rewards query tokens found in the title (1 each) and content
// (0.5 each), normalized to [0,1]. A title equal to the query scores 1.
func LexicalScore(query, title, content string) float64 {
	if strings.EqualFold(strings.TrimSpace(query), strings.TrimSpace(title)) && title != "" {
		return 1
	}

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return 0
	}

	lowerTitle, lowerContent := strings.ToLower(title), strings.ToLower(content)
	var score float64
	for _, tok := range tokens {
		if strings.Contains(lowerTitle, tok) {
			score += 1
		}
		if strings.Contains(lowerContent, tok) {
			score += 0.5
		}
	}
	return score / (float64(len(tokens)) * 1.5)
}

func toSemanticResult(doc *entities.EmbeddingDocument, score float64, includeContent bool) SemanticResult {
	r := SemanticResult{
		ID:       doc.ID,
		Title:    doc.Title,
		Metadata: doc.Metadata,
		Score:    score,
	}
	if r.Metadata == nil {
		r.Metadata = map[string]interface{}{}
	}
	if includeContent {
		r.Content = doc.Content
	}
	return r
}
