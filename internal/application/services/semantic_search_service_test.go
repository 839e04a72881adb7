package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localdiscovery/internal/adapters/memory"
	"github.com/zatekoja/localdiscovery/internal/application/services"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

func ptr[T any](v T) *T { return &v }

// unitWithCosine returns a unit vector whose cosine with [1, 0] is c
func unitWithCosine(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

func doc(id, title, content string, vector []float32) *entities.EmbeddingDocument {
	return &entities.EmbeddingDocument{
		ID:       id,
		Title:    title,
		Content:  content,
		Vector:   vector,
		IsActive: true,
		Metadata: map[string]interface{}{entities.MetadataEntityType: "business", entities.MetadataEntityID: id},
	}
}

func queryEmbedder(query string) *MockEmbeddingProvider {
	m := new(MockEmbeddingProvider)
	m.On("Embed", mock.Anything, query).Return([]float32{1, 0}, nil)
	return m
}

func TestSemanticSearch_ExactTitleOutranksHighCosine(t *testing.T) {
	store := memory.NewEmbeddingStore(
		doc("d1", "Coffee Corner", "a small cafe", unitWithCosine(0.1)),
		doc("d2", "Espresso bar", "roasted beans", unitWithCosine(0.9)),
	)
	svc := services.NewSemanticSearchService(store, queryEmbedder("coffee corner"))

	results, err := svc.Search(context.Background(), services.SemanticQuery{Query: "coffee corner", Alpha: ptr(0.5)})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "d1", results[0].ID)
	assert.InDelta(t, 0.55, results[0].Score, 1e-6)
	assert.Equal(t, "d2", results[1].ID)
	assert.InDelta(t, 0.45, results[1].Score, 1e-6)
	assert.Empty(t, results[0].Content, "content is omitted unless requested")
	assert.Equal(t, "d1", results[0].Metadata[entities.MetadataEntityID])
}

func TestSemanticSearch_Defaults(t *testing.T) {
	var docs []*entities.EmbeddingDocument
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		docs = append(docs, doc(id, "doc "+id, "", unitWithCosine(0.9-float64(i)*0.01)))
	}
	// below the default min score: 0.7*0.05 = 0.035
	docs = append(docs, doc("low", "unrelated", "", unitWithCosine(0.05)))
	svc := services.NewSemanticSearchService(memory.NewEmbeddingStore(docs...), queryEmbedder("thing"))

	results, err := svc.Search(context.Background(), services.SemanticQuery{Query: "thing"})
	require.NoError(t, err)

	require.Len(t, results, services.DefaultTopK)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, []string{results[0].ID, results[1].ID, results[2].ID, results[3].ID, results[4].ID})
	assert.InDelta(t, 0.7*0.9, results[0].Score, 1e-6)
}

func TestSemanticSearch_TopKClampedAndContentIncluded(t *testing.T) {
	store := memory.NewEmbeddingStore(
		doc("a", "x", "body", unitWithCosine(0.8)),
		doc("b", "y", "body", unitWithCosine(0.7)),
	)
	svc := services.NewSemanticSearchService(store, queryEmbedder("q"))

	results, err := svc.Search(context.Background(), services.SemanticQuery{Query: "q", TopK: ptr(0), IncludeContent: true})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "body", results[0].Content)
}

func TestSemanticSearch_MissingVectorKeepsLexicalScore(t *testing.T) {
	store := memory.NewEmbeddingStore(
		doc("novec", "bike repair", "", nil),
		doc("badvec", "bike shop", "", []float32{1, 0, 0}),
	)
	svc := services.NewSemanticSearchService(store, queryEmbedder("bike"))

	results, err := svc.Search(context.Background(), services.SemanticQuery{Query: "bike", Alpha: ptr(0.0)})
	require.NoError(t, err)

	require.Len(t, results, 2)
	// lexical = 1 / (1 * 1.5) for a title hit
	assert.InDelta(t, 1/1.5, results[0].Score, 1e-9)
	assert.Equal(t, "badvec", results[0].ID, "ties break by id")
	assert.Equal(t, "novec", results[1].ID)
}

func TestSemanticSearch_AlphaClamped(t *testing.T) {
	store := memory.NewEmbeddingStore(doc("a", "zzz", "", unitWithCosine(0.5)))
	svc := services.NewSemanticSearchService(store, queryEmbedder("q"))

	results, err := svc.Search(context.Background(), services.SemanticQuery{Query: "q", Alpha: ptr(7.0), MinScore: ptr(0.0)})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.InDelta(t, 0.5, results[0].Score, 1e-6)
}

func TestSemanticSearch_NonFiniteInputsUseDefaults(t *testing.T) {
	store := memory.NewEmbeddingStore(
		doc("a", "zzz", "", unitWithCosine(0.5)),
		doc("low", "yyy", "", unitWithCosine(0.1)),
	)
	svc := services.NewSemanticSearchService(store, queryEmbedder("q"))

	results, err := svc.Search(context.Background(), services.SemanticQuery{
		Query:    "q",
		Alpha:    ptr(math.NaN()),
		MinScore: ptr(math.Inf(-1)),
	})
	require.NoError(t, err)

	// default alpha 0.7 and default min score 0.2 drop "low" at 0.07
	require.Len(t, results, 1)
	assert.InDelta(t, 0.35, results[0].Score, 1e-6)
	_, err = json.Marshal(results)
	assert.NoError(t, err)
}

func TestSemanticSearch_RepeatedSearchIsDeterministic(t *testing.T) {
	tied := unitWithCosine(0.6)
	store := memory.NewEmbeddingStore(
		doc("c", "corner shop", "", tied),
		doc("a", "corner shop", "", tied),
		doc("top", "bakery", "", unitWithCosine(0.95)),
		doc("b", "corner shop", "", tied),
	)
	svc := services.NewSemanticSearchService(store, queryEmbedder("shop"))
	q := services.SemanticQuery{Query: "shop", Alpha: ptr(0.5), TopK: ptr(10)}

	first, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	ids := make([]string, len(first))
	for i, r := range first {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"a", "b", "c", "top"}, ids)
	assert.Equal(t, first[0].Score, first[1].Score)
	assert.Equal(t, first[1].Score, first[2].Score)
}

func TestSemanticSearch_Errors(t *testing.T) {
	t.Run("blank query", func(t *testing.T) {
		svc := services.NewSemanticSearchService(memory.NewEmbeddingStore(), new(MockEmbeddingProvider))
		_, err := svc.Search(context.Background(), services.SemanticQuery{Query: "  "})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("embedding failure", func(t *testing.T) {
		embedder := new(MockEmbeddingProvider)
		embedder.On("Embed", mock.Anything, "q").Return(nil, errors.New("timeout"))
		svc := services.NewSemanticSearchService(memory.NewEmbeddingStore(), embedder)

		_, err := svc.Search(context.Background(), services.SemanticQuery{Query: "q"})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	})

	t.Run("store failure", func(t *testing.T) {
		docs := new(MockEmbeddingRepository)
		docs.On("ListActive", mock.Anything).Return(nil, errors.New("connection reset"))
		svc := services.NewSemanticSearchService(docs, queryEmbedder("q"))

		_, err := svc.Search(context.Background(), services.SemanticQuery{Query: "q"})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	})
}

func TestLexicalScore(t *testing.T) {
	assert.Equal(t, 1.0, services.LexicalScore("Coffee Corner", "coffee corner", "anything"))
	assert.InDelta(t, 1.5/3.0, services.LexicalScore("fresh bread", "Fresh croissants", "bread and butter"), 1e-9)
	assert.InDelta(t, 0.5/1.5, services.LexicalScore("bread", "Bakery", "fresh bread"), 1e-9)
	assert.Zero(t, services.LexicalScore("   ", "title", "content"))
	assert.Zero(t, services.LexicalScore("tyres", "Bakery", "bread"))
}

func TestHybridScore(t *testing.T) {
	assert.InDelta(t, 0.55, services.HybridScore(0.1, 1, 0.5), 1e-12)
	assert.InDelta(t, 0.9, services.HybridScore(0.9, 0, 1), 1e-12)
}
