package database

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/postgres"
)

type businessRow struct {
	ID           string          `db:"id"`
	Name         string          `db:"name"`
	Description  sql.NullString  `db:"description"`
	Email        sql.NullString  `db:"email"`
	Phone        sql.NullString  `db:"phone"`
	City         sql.NullString  `db:"city"`
	Address      sql.NullString  `db:"address"`
	CategoryID   sql.NullString  `db:"category_id"`
	ServiceIDs   pq.StringArray  `db:"service_ids"`
	Rating       sql.NullFloat64 `db:"rating"`
	Latitude     sql.NullFloat64 `db:"latitude"`
	Longitude    sql.NullFloat64 `db:"longitude"`
	OpeningHours []byte          `db:"opening_hours"`
	OwnerID      sql.NullString  `db:"owner_id"`
	IsActive     bool            `db:"is_active"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
	DistanceKm   sql.NullFloat64 `db:"distance_km"`
}

var businessColumns = []interface{}{
	"id", "name", "description", "email", "phone", "city", "address", "category_id",
	"service_ids", "rating", "latitude", "longitude", "opening_hours", "owner_id",
	"is_active", "created_at", "updated_at",
}

// BusinessAdapter implements the BusinessRepository interface
type BusinessAdapter struct {
	*listingAdapter[*entities.Business, predicates.Business, businessRow]
}

// NewBusinessAdapter creates a new business adapter
func NewBusinessAdapter(client *postgres.Client) repositories.BusinessRepository {
	return &BusinessAdapter{newListingAdapter(client, table[*entities.Business, predicates.Business, businessRow]{
		name:      "businesses",
		kind:      "business",
		columns:   businessColumns,
		titleCol:  "name",
		ratingCol: "rating",
		where:     businessConditions,
		matchNone: func(p predicates.Business) bool { return p.MatchNone },
		toEntity:  businessFromRow,
		id:        func(b *entities.Business) string { return b.ID },
		distance:  func(r *businessRow) sql.NullFloat64 { return r.DistanceKm },
	})}
}

func businessFromRow(r *businessRow) *entities.Business {
	serviceIDs := []string(r.ServiceIDs)
	if serviceIDs == nil {
		serviceIDs = []string{}
	}
	return &entities.Business{
		ID:           r.ID,
		Name:         r.Name,
		Description:  nullString(r.Description),
		Email:        nullString(r.Email),
		Phone:        nullString(r.Phone),
		City:         nullString(r.City),
		Address:      nullString(r.Address),
		CategoryID:   nullString(r.CategoryID),
		ServiceIDs:   serviceIDs,
		Rating:       r.Rating.Float64,
		Location:     pointFrom(r.Latitude, r.Longitude),
		OpeningHours: entities.DecodeOpeningHours(r.OpeningHours),
		OwnerID:      nullString(r.OwnerID),
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
