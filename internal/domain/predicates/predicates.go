// Package predicates defines the typed, immutable filter values that query
// builders produce and stores consume. Every predicate has an explicit
// MatchNone variant that stores must answer with zero rows.
package predicates

import (
	"strings"
	"time"
	"unicode"
)

// TextMatch is a free-text query split into lowercase tokens
type TextMatch struct {
	Raw    string
	Tokens []string
}

// Empty reports whether there is nothing to match on
func (t TextMatch) Empty() bool {
	return len(t.Tokens) == 0
}

// LooksLikeEmail enables the exact email match on businesses
func (t TextMatch) LooksLikeEmail() bool {
	at := strings.IndexByte(t.Raw, '@')
	return at > 0 && at < len(t.Raw)-1 && !strings.ContainsAny(t.Raw, " \t")
}

// PhoneDigits returns the digits of a phone-like query, or "" when the query
// does not look like a phone number
func (t TextMatch) PhoneDigits() string {
	var digits strings.Builder
	for _, r := range t.Raw {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')':
		default:
			return ""
		}
	}
	if digits.Len() < 6 {
		return ""
	}
	return digits.String()
}

// Business filters the business collection
type Business struct {
	MatchNone       bool
	IncludeInactive bool
	Text            TextMatch
	// CategoryIDs is ignored by stores when ServiceIDs is non-empty
	CategoryIDs []string
	ServiceIDs  []string
	MinRating   *float64
}

// NoBusinesses is the predicate that matches nothing
func NoBusinesses() Business {
	return Business{MatchNone: true}
}

// SaleAd filters the sale ad collection
type SaleAd struct {
	MatchNone      bool
	Text           TextMatch
	CategoryIDs    []string
	SubcategoryIDs []string
	PriceMin       *float64
	PriceMax       *float64
	RequirePrice   bool
}

// NoSaleAds is the predicate that matches nothing
func NoSaleAds() SaleAd {
	return SaleAd{MatchNone: true}
}

// HasPriceBounds reports whether either price bound is set
func (s SaleAd) HasPriceBounds() bool {
	return s.PriceMin != nil || s.PriceMax != nil
}

// PromoStatus selects promos by validity window
type PromoStatus string

const (
	PromoStatusActive   PromoStatus = "active"
	PromoStatusUpcoming PromoStatus = "upcoming"
	PromoStatusExpired  PromoStatus = "expired"
	PromoStatusAll      PromoStatus = "all"
)

// ParsePromoStatus returns the status for s, defaulting to all when s is empty
func ParsePromoStatus(s string) (PromoStatus, bool) {
	switch PromoStatus(strings.ToLower(s)) {
	case "", PromoStatusAll:
		return PromoStatusAll, true
	case PromoStatusActive:
		return PromoStatusActive, true
	case PromoStatusUpcoming:
		return PromoStatusUpcoming, true
	case PromoStatusExpired:
		return PromoStatusExpired, true
	}
	return "", false
}

// PromoAd filters the promo ad collection. Now pins the instant the
// validity window is evaluated at.
type PromoAd struct {
	MatchNone bool
	Text      TextMatch
	Status    PromoStatus
	City      string
	Now       time.Time
}

// NoPromoAds is the predicate that matches nothing
func NoPromoAds() PromoAd {
	return PromoAd{MatchNone: true}
}
