package database

import (
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
)

// Compiles predicates to goqu expressions. The in-process Matches methods in
// the predicates package are the reference semantics for everything here.

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// anyTokenIn ORs a case-insensitive substring match of every token against every column
func anyTokenIn(tokens []string, columns ...string) exp.Expression {
	ors := make([]exp.Expression, 0, len(tokens)*len(columns))
	for _, col := range columns {
		for _, tok := range tokens {
			ors = append(ors, goqu.L("COALESCE(?, '') ILIKE ?", goqu.I(col), containsPattern(tok)))
		}
	}
	return goqu.Or(ors...)
}

func businessConditions(p predicates.Business) []exp.Expression {
	var where []exp.Expression
	if !p.IncludeInactive {
		where = append(where, goqu.C("is_active").IsTrue())
	}
	if len(p.ServiceIDs) > 0 {
		where = append(where, goqu.L("service_ids && ?::text[]", pq.Array(p.ServiceIDs)))
	} else if len(p.CategoryIDs) > 0 {
		where = append(where, goqu.C("category_id").In(p.CategoryIDs))
	}
	if p.MinRating != nil {
		where = append(where, goqu.C("rating").Gte(*p.MinRating))
	}
	if !p.Text.Empty() {
		text := []exp.Expression{anyTokenIn(p.Text.Tokens, "name", "description")}
		if p.Text.LooksLikeEmail() {
			text = append(text, goqu.L("lower(email) = lower(?)", p.Text.Raw))
		}
		if digits := p.Text.PhoneDigits(); digits != "" {
			text = append(text, goqu.L("regexp_replace(COALESCE(phone, ''), '[^0-9]', '', 'g') LIKE ?", "%"+digits+"%"))
		}
		where = append(where, goqu.Or(text...))
	}
	return where
}

func saleAdConditions(p predicates.SaleAd) []exp.Expression {
	where := []exp.Expression{goqu.C("is_active").IsTrue()}
	if len(p.CategoryIDs) > 0 {
		where = append(where, goqu.C("category_id").In(p.CategoryIDs))
	}
	if len(p.SubcategoryIDs) > 0 {
		where = append(where, goqu.C("subcategory_id").In(p.SubcategoryIDs))
	}
	if p.RequirePrice || p.HasPriceBounds() {
		where = append(where, goqu.C("price").IsNotNull())
		if p.PriceMin != nil {
			where = append(where, goqu.C("price").Gte(*p.PriceMin))
		}
		if p.PriceMax != nil {
			where = append(where, goqu.C("price").Lte(*p.PriceMax))
		}
	}
	if !p.Text.Empty() {
		where = append(where, anyTokenIn(p.Text.Tokens, "title", "description"))
	}
	return where
}

func promoAdConditions(p predicates.PromoAd) []exp.Expression {
	where := []exp.Expression{goqu.C("is_active").IsTrue()}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	switch p.Status {
	case predicates.PromoStatusActive:
		where = append(where,
			goqu.Or(goqu.C("valid_from").IsNull(), goqu.C("valid_from").Lte(now)),
			goqu.Or(goqu.C("valid_to").IsNull(), goqu.C("valid_to").Gte(now)),
		)
	case predicates.PromoStatusUpcoming:
		where = append(where, goqu.C("valid_from").Gt(now))
	case predicates.PromoStatusExpired:
		where = append(where, goqu.C("valid_to").Lt(now))
	}
	if p.City != "" {
		where = append(where, goqu.L("COALESCE(city, '') ILIKE ?", containsPattern(p.City)))
	}
	if !p.Text.Empty() {
		where = append(where, anyTokenIn(p.Text.Tokens, "title", "description", "city"))
	}
	return where
}
