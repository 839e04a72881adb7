package database

import (
	"database/sql"
	"time"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/postgres"
)

type saleAdRow struct {
	ID            string          `db:"id"`
	Title         string          `db:"title"`
	Description   sql.NullString  `db:"description"`
	CategoryID    sql.NullString  `db:"category_id"`
	SubcategoryID sql.NullString  `db:"subcategory_id"`
	Price         sql.NullFloat64 `db:"price"`
	Currency      sql.NullString  `db:"currency"`
	City          sql.NullString  `db:"city"`
	Latitude      sql.NullFloat64 `db:"latitude"`
	Longitude     sql.NullFloat64 `db:"longitude"`
	OwnerID       sql.NullString  `db:"owner_id"`
	IsActive      bool            `db:"is_active"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	DistanceKm    sql.NullFloat64 `db:"distance_km"`
}

var saleAdColumns = []interface{}{
	"id", "title", "description", "category_id", "subcategory_id", "price", "currency",
	"city", "latitude", "longitude", "owner_id", "is_active", "created_at", "updated_at",
}

// SaleAdAdapter implements the SaleAdRepository interface
type SaleAdAdapter struct {
	*listingAdapter[*entities.SaleAd, predicates.SaleAd, saleAdRow]
}

// NewSaleAdAdapter creates a new sale ad adapter
func NewSaleAdAdapter(client *postgres.Client) repositories.SaleAdRepository {
	return &SaleAdAdapter{newListingAdapter(client, table[*entities.SaleAd, predicates.SaleAd, saleAdRow]{
		name:      "sale_ads",
		kind:      "sale ad",
		columns:   saleAdColumns,
		titleCol:  "title",
		priceCol:  "price",
		where:     saleAdConditions,
		matchNone: func(p predicates.SaleAd) bool { return p.MatchNone },
		toEntity:  saleAdFromRow,
		id:        func(s *entities.SaleAd) string { return s.ID },
		distance:  func(r *saleAdRow) sql.NullFloat64 { return r.DistanceKm },
	})}
}

func saleAdFromRow(r *saleAdRow) *entities.SaleAd {
	ad := &entities.SaleAd{
		ID:            r.ID,
		Title:         r.Title,
		Description:   nullString(r.Description),
		CategoryID:    nullString(r.CategoryID),
		SubcategoryID: nullString(r.SubcategoryID),
		Currency:      nullString(r.Currency),
		City:          nullString(r.City),
		Location:      pointFrom(r.Latitude, r.Longitude),
		OwnerID:       nullString(r.OwnerID),
		IsActive:      r.IsActive,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Price.Valid {
		price := r.Price.Float64
		ad.Price = &price
	}
	return ad
}
