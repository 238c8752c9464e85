package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LinkStatus is the handshake state of a Link.
type LinkStatus string

const (
	LinkPending  LinkStatus = "PENDING"
	LinkApproved LinkStatus = "APPROVED"
	LinkRejected LinkStatus = "REJECTED"
	LinkBlocked  LinkStatus = "BLOCKED"
)

// linkTransitions lists every status change a supplier may perform.
var linkTransitions = map[LinkStatus][]LinkStatus{
	LinkPending:  {LinkApproved, LinkRejected},
	LinkApproved: {LinkBlocked},
}

// Valid reports whether s is a known link status.
func (s LinkStatus) Valid() bool {
	switch s {
	case LinkPending, LinkApproved, LinkRejected, LinkBlocked:
		return true
	}
	return false
}

// Open reports whether s counts against the one-open-link-per-pair rule.
func (s LinkStatus) Open() bool {
	return s == LinkPending || s == LinkApproved
}

// CanTransitionTo reports whether the transition table allows s -> next.
func (s LinkStatus) CanTransitionTo(next LinkStatus) bool {
	for _, allowed := range linkTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Link is the approval relationship between one supplier and one consumer.
// Rows are only transitioned; unblocking soft-deletes the row so the pair
// can start a fresh handshake while the history stays in the table.
type Link struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SupplierID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ConsumerID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status     LinkStatus `gorm:"size:16;not null;index"`
	// DecidedBy is the supplier-side user behind the last status change.
	DecidedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
