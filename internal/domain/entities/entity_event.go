package entities

import (
	"time"

	"github.com/google/uuid"
)

// EntityAction is what happened to an entity
type EntityAction string

const (
	EntityActionUpserted EntityAction = "upserted"
	EntityActionDeleted  EntityAction = "deleted"
)

// EntityEvent is published whenever a business, sale ad or promo ad changes
type EntityEvent struct {
	ID         string       `json:"id"`
	EntityType EntityType   `json:"entity_type"`
	EntityID   string       `json:"entity_id"`
	Action     EntityAction `json:"action"`
	Timestamp  time.Time    `json:"timestamp"`
}

// NewEntityEvent creates a new entity event
func NewEntityEvent(entityType EntityType, entityID string, action EntityAction) *EntityEvent {
	return &EntityEvent{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Timestamp:  time.Now().UTC(),
	}
}
