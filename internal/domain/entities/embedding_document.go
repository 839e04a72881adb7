package entities

import "time"

// Metadata keys that form the natural key of entity-backed documents
const (
	MetadataEntityType = "entityType"
	MetadataEntityID   = "entityId"
)

// EmbeddingDocument is a searchable text with its embedding vector.
// There is at most one active document per (entityType, entityId).
type EmbeddingDocument struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Content   string                 `json:"content" db:"content"`
	Vector    []float32              `json:"-" db:"-"`
	Metadata  map[string]interface{} `json:"metadata" db:"-"`
	IsActive  bool                   `json:"active" db:"is_active"`
	CreatedAt time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time              `json:"updatedAt" db:"updated_at"`
}

// NaturalKey returns the entity the document was built from, if any
func (d *EmbeddingDocument) NaturalKey() (EntityType, string, bool) {
	t, _ := d.Metadata[MetadataEntityType].(string)
	id, _ := d.Metadata[MetadataEntityID].(string)
	if t == "" || id == "" {
		return "", "", false
	}
	return EntityType(t), id, true
}
