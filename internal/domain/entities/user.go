package entities

// Roles recognized by the identity provider
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Favorite is an entity a user has bookmarked
type Favorite struct {
	EntityType EntityType `json:"entityType" db:"entity_type"`
	EntityID   string     `json:"entityId" db:"entity_id"`
}

// User is the identity attached to a request. It only personalizes
// responses, it never gates public data.
type User struct {
	ID        string     `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	Role      string     `json:"role" db:"role"`
	Favorites []Favorite `json:"favorites,omitempty" db:"-"`
}

// IsAdmin reports whether the user may use admin-only switches
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasFavorite reports whether the user bookmarked the given entity
func (u *User) HasFavorite(t EntityType, id string) bool {
	if u == nil {
		return false
	}
	for _, f := range u.Favorites {
		if f.EntityType == t && f.EntityID == id {
			return true
		}
	}
	return false
}
