package entities

import "fmt"

// EntityType discriminates the three searchable collections
type EntityType string

const (
	EntityTypeBusiness EntityType = "business"
	EntityTypeSale     EntityType = "sale"
	EntityTypePromo    EntityType = "promo"
)

// AllEntityTypes lists the collections in a stable order
var AllEntityTypes = []EntityType{EntityTypeBusiness, EntityTypeSale, EntityTypePromo}

// ParseEntityType accepts the canonical names and their plural route forms
func ParseEntityType(s string) (EntityType, error) {
	switch s {
	case "business", "businesses":
		return EntityTypeBusiness, nil
	case "sale", "sale-ad", "sale-ads", "sales":
		return EntityTypeSale, nil
	case "promo", "promo-ad", "promo-ads", "promos":
		return EntityTypePromo, nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}
