// Package evaluation measures semantic search relevance against a labeled
// query set.
package evaluation

import (
	"time"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
)

// GoldenQuery is a labeled query with the entity IDs a good ranking returns
type GoldenQuery struct {
	ID          string              `json:"id"`
	Query       string              `json:"query"`
	EntityType  entities.EntityType `json:"entity_type"`
	ExpectedIDs []string            `json:"expected_ids"`
	Difficulty  string              `json:"difficulty"` // easy, medium, hard
}

// EvalResult holds the outcome of one query
type EvalResult struct {
	QueryID      string
	Query        string
	EntityType   entities.EntityType
	Recall       float64
	MRR          float64
	ResultCount  int
	RetrievedIDs []string
	Latency      time.Duration
	Error        string `json:",omitempty"`
}

// EvalSummary aggregates results across the query set
type EvalSummary struct {
	K               int
	TotalQueries    int
	FailedQueries   int
	AvgRecall       float64
	AvgMRR          float64
	AvgLatency      time.Duration
	QueriesWithHits int
	ByEntityType    map[entities.EntityType]*TypeSummary
	Results         []EvalResult
}

// TypeSummary holds the averages of one target entity type
type TypeSummary struct {
	Count     int
	AvgRecall float64
	AvgMRR    float64
}
