package predicates

import (
	"slices"
	"strings"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
)

// The Matches methods evaluate a predicate in process with the same
// semantics the SQL adapters compile it to.

// Matches reports whether b satisfies the predicate
func (p Business) Matches(b *entities.Business) bool {
	if p.MatchNone {
		return false
	}
	if !p.IncludeInactive && !b.IsActive {
		return false
	}
	if len(p.ServiceIDs) > 0 {
		if !anyShared(p.ServiceIDs, b.ServiceIDs) {
			return false
		}
	} else if len(p.CategoryIDs) > 0 && !slices.Contains(p.CategoryIDs, b.CategoryID) {
		return false
	}
	if p.MinRating != nil && b.Rating < *p.MinRating {
		return false
	}
	if p.Text.Empty() {
		return true
	}
	if p.Text.LooksLikeEmail() && strings.EqualFold(b.Email, p.Text.Raw) {
		return true
	}
	if digits := p.Text.PhoneDigits(); digits != "" && strings.Contains(onlyDigits(b.Phone), digits) {
		return true
	}
	return anyTokenIn(p.Text.Tokens, b.Name, b.Description)
}

// Matches reports whether s satisfies the predicate
func (p SaleAd) Matches(s *entities.SaleAd) bool {
	if p.MatchNone || !s.IsActive {
		return false
	}
	if len(p.CategoryIDs) > 0 && !slices.Contains(p.CategoryIDs, s.CategoryID) {
		return false
	}
	if len(p.SubcategoryIDs) > 0 && !slices.Contains(p.SubcategoryIDs, s.SubcategoryID) {
		return false
	}
	if p.RequirePrice || p.HasPriceBounds() {
		if s.Price == nil {
			return false
		}
		if p.PriceMin != nil && *s.Price < *p.PriceMin {
			return false
		}
		if p.PriceMax != nil && *s.Price > *p.PriceMax {
			return false
		}
	}
	return p.Text.Empty() || anyTokenIn(p.Text.Tokens, s.Title, s.Description)
}

// Matches reports whether a satisfies the predicate
func (p PromoAd) Matches(a *entities.PromoAd) bool {
	if p.MatchNone || !a.IsActive {
		return false
	}
	switch p.Status {
	case PromoStatusActive:
		if (!a.ValidFrom.IsZero() && a.ValidFrom.After(p.Now)) || (!a.ValidTo.IsZero() && a.ValidTo.Before(p.Now)) {
			return false
		}
	case PromoStatusUpcoming:
		if a.ValidFrom.IsZero() || !a.ValidFrom.After(p.Now) {
			return false
		}
	case PromoStatusExpired:
		if a.ValidTo.IsZero() || !a.ValidTo.Before(p.Now) {
			return false
		}
	}
	if p.City != "" && !strings.Contains(strings.ToLower(a.City), strings.ToLower(p.City)) {
		return false
	}
	return p.Text.Empty() || anyTokenIn(p.Text.Tokens, a.Title, a.Description, a.City)
}

func anyTokenIn(tokens []string, fields ...string) bool {
	for _, field := range fields {
		lower := strings.ToLower(field)
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				return true
			}
		}
	}
	return false
}

func anyShared(want, have []string) bool {
	for _, id := range want {
		if slices.Contains(have, id) {
			return true
		}
	}
	return false
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
