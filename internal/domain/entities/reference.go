package entities

// ReferenceKind identifies a reference collection used for name resolution
type ReferenceKind string

const (
	ReferenceBusinessCategory ReferenceKind = "business_category"
	ReferenceSaleCategory     ReferenceKind = "sale_category"
	ReferenceSaleSubcategory  ReferenceKind = "sale_subcategory"
	ReferenceService          ReferenceKind = "service"
)

// Category is a business or sale category. Subcategories carry a ParentID.
type Category struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Scope    string `json:"scope" db:"scope"`
	ParentID string `json:"parentId,omitempty" db:"parent_id"`
}

// Service is something a business offers, e.g. "delivery"
type Service struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
