package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/localdiscovery/internal/application/services"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
)

// DefaultK is the cutoff used when the runner is given none
const DefaultK = 5

// SemanticSearcher is the ranking under evaluation
type SemanticSearcher interface {
	Search(ctx context.Context, q services.SemanticQuery) ([]services.SemanticResult, error)
}

// Runner runs a golden query set through the semantic search
type Runner struct {
	searcher SemanticSearcher
	k        int
}

// NewRunner creates a runner scoring the top k results of each query
func NewRunner(searcher SemanticSearcher, k int) *Runner {
	if k <= 0 {
		k = DefaultK
	}
	return &Runner{searcher: searcher, k: k}
}

// Run evaluates every query. A failed query counts as zero recall and MRR.
func (r *Runner) Run(ctx context.Context, queries []GoldenQuery) (*EvalSummary, error) {
	summary := &EvalSummary{
		K:            r.k,
		TotalQueries: len(queries),
		ByEntityType: make(map[entities.EntityType]*TypeSummary),
	}

	for _, gq := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary.add(r.runOne(ctx, gq))
	}

	summary.finalize()
	return summary, nil
}

func (r *Runner) runOne(ctx context.Context, gq GoldenQuery) EvalResult {
	res := EvalResult{QueryID: gq.ID, Query: gq.Query, EntityType: gq.EntityType}

	// Filtering by type happens after ranking, so fetch the widest window
	topK := r.k
	if gq.EntityType != "" {
		topK = services.MaxTopK
	}
	minScore := 0.0

	start := time.Now()
	results, err := r.searcher.Search(ctx, services.SemanticQuery{Query: gq.Query, TopK: &topK, MinScore: &minScore})
	res.Latency = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	for _, sr := range results {
		id, t := entityRef(sr)
		if gq.EntityType != "" && t != gq.EntityType {
			continue
		}
		res.RetrievedIDs = append(res.RetrievedIDs, id)
	}
	res.ResultCount = len(res.RetrievedIDs)
	res.Recall = RecallAtK(gq.ExpectedIDs, res.RetrievedIDs, r.k)
	res.MRR = MRRAtK(gq.ExpectedIDs, res.RetrievedIDs, r.k)
	return res
}

// entityRef reads the indexed entity behind a result from its metadata
func entityRef(sr services.SemanticResult) (string, entities.EntityType) {
	id, _ := sr.Metadata[entities.MetadataEntityID].(string)
	raw, _ := sr.Metadata[entities.MetadataEntityType].(string)
	if id == "" {
		id = sr.ID
	}
	t, _ := parseType(raw)
	return id, t
}

func parseType(s string) (entities.EntityType, error) {
	t, err := entities.ParseEntityType(s)
	if err != nil {
		return "", fmt.Errorf("invalid entity type: %w", err)
	}
	return t, nil
}

func (s *EvalSummary) add(res EvalResult) {
	s.Results = append(s.Results, res)
	if res.Error != "" {
		s.FailedQueries++
	}
	s.AvgRecall += res.Recall
	s.AvgMRR += res.MRR
	s.AvgLatency += res.Latency
	if res.ResultCount > 0 {
		s.QueriesWithHits++
	}

	ts, ok := s.ByEntityType[res.EntityType]
	if !ok {
		ts = &TypeSummary{}
		s.ByEntityType[res.EntityType] = ts
	}
	ts.Count++
	ts.AvgRecall += res.Recall
	ts.AvgMRR += res.MRR
}

func (s *EvalSummary) finalize() {
	if s.TotalQueries > 0 {
		n := float64(s.TotalQueries)
		s.AvgRecall /= n
		s.AvgMRR /= n
		s.AvgLatency /= time.Duration(s.TotalQueries)
	}

	for _, ts := range s.ByEntityType {
		if ts.Count > 0 {
			n := float64(ts.Count)
			ts.AvgRecall /= n
			ts.AvgMRR /= n
		}
	}
}
