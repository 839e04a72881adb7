package services

import (
	"math"
	"sort"
	"strings"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// Weights of the popular_nearby score when a text query is present
const (
	weightDistance      = -0.1
	weightRating        = 0.3
	weightTextRelevance = 0.6
)

// GeoCandidate is one store result entering the proximity pipeline
type GeoCandidate[T any] struct {
	Item     T
	ID       string
	Title    string
	Body     string
	Rating   float64
	Location *geo.Point
	// DistanceKm is NaN until known
	DistanceKm float64
	Score      float64
}

// GeoQuery describes how candidates are ordered around an origin
type GeoQuery struct {
	Origin        geo.Point
	MaxDistanceKm *float64
	Sort          SortMode
	Tokens        []string
}

// OrderByProximity assigns every candidate a distance, drops those beyond the
// radius and orders the rest. popular_nearby with text ranks by the combined
// score; every other mode is nearest-first. Ties resolve by id.
func OrderByProximity[T any](cands []GeoCandidate[T], q GeoQuery) []GeoCandidate[T] {
	origin := q.Origin
	scored := q.Sort == SortPopularNearby && len(q.Tokens) > 0

	out := make([]GeoCandidate[T], 0, len(cands))
	for _, c := range cands {
		if math.IsNaN(c.DistanceKm) {
			c.DistanceKm = geo.Distance(&origin, c.Location)
		}
		if q.MaxDistanceKm != nil && !(c.DistanceKm <= *q.MaxDistanceKm) {
			continue
		}
		if scored {
			c.Score = CombinedScore(c.DistanceKm, c.Rating, TextRelevance(q.Tokens, c.Title, c.Body))
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if scored && a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		if q.Sort == SortPopularNearby && a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	})

	return out
}

// CombinedScore blends proximity, quality and text relevance. A missing
// location scores -Inf and sorts last.
func CombinedScore(distanceKm, rating, textRelevance float64) float64 {
	return weightDistance*distanceKm + weightRating*rating + weightTextRelevance*textRelevance
}

// TextRelevance is the share of tokens found in the candidate. A title hit
// counts 1, a body-only hit counts 0.5.
func TextRelevance(tokens []string, title, body string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	title, body = strings.ToLower(title), strings.ToLower(body)

	var hits float64
	for _, tok := range tokens {
		switch {
		case strings.Contains(title, tok):
			hits++
		case strings.Contains(body, tok):
			hits += 0.5
		}
	}
	return math.Min(1, hits/float64(len(tokens)))
}

func businessCandidates(rows []repositories.Nearby[*entities.Business]) []GeoCandidate[*entities.Business] {
	out := make([]GeoCandidate[*entities.Business], len(rows))
	for i, r := range rows {
		out[i] = GeoCandidate[*entities.Business]{
			Item: r.Item, ID: r.Item.ID, Title: r.Item.Name, Body: r.Item.Description,
			Rating: r.Item.Rating, Location: r.Item.Location, DistanceKm: r.DistanceKm,
		}
	}
	return out
}

func saleCandidates(rows []repositories.Nearby[*entities.SaleAd]) []GeoCandidate[*entities.SaleAd] {
	out := make([]GeoCandidate[*entities.SaleAd], len(rows))
	for i, r := range rows {
		out[i] = GeoCandidate[*entities.SaleAd]{
			Item: r.Item, ID: r.Item.ID, Title: r.Item.Title, Body: r.Item.Description,
			Location: r.Item.Location, DistanceKm: r.DistanceKm,
		}
	}
	return out
}

func promoCandidates(rows []repositories.Nearby[*entities.PromoAd]) []GeoCandidate[*entities.PromoAd] {
	out := make([]GeoCandidate[*entities.PromoAd], len(rows))
	for i, r := range rows {
		out[i] = GeoCandidate[*entities.PromoAd]{
			Item: r.Item, ID: r.Item.ID, Title: r.Item.Title, Body: r.Item.Description + " " + r.Item.City,
			Location: r.Item.Location, DistanceKm: r.DistanceKm,
		}
	}
	return out
}
