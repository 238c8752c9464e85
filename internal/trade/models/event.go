package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType names the kind of entity a status event refers to.
type EntityType string

const (
	EntityLink      EntityType = "link"
	EntityOrder     EntityType = "order"
	EntityComplaint EntityType = "complaint"
)

// StatusEvent is published after every committed Link, Order or Complaint
// status change. SupplierID and ConsumerID let the relay fan the event out
// to both companies.
type StatusEvent struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	NewStatus  string     `json:"new_status"`
	SupplierID uuid.UUID  `json:"supplier_id"`
	ConsumerID uuid.UUID  `json:"consumer_id"`
	OccurredAt time.Time  `json:"occurred_at"`
}
