package models

import (
	"time"

	"github.com/google/uuid"
)

// ComplaintStatus is the escalation state of a Complaint.
type ComplaintStatus string

const (
	ComplaintOpen      ComplaintStatus = "OPEN"
	ComplaintEscalated ComplaintStatus = "ESCALATED"
	ComplaintResolved  ComplaintStatus = "RESOLVED"
)

// Valid reports whether s is a known complaint status.
func (s ComplaintStatus) Valid() bool {
	return s == ComplaintOpen || s == ComplaintEscalated || s == ComplaintResolved
}

// EscalationReason records why a complaint reached ESCALATED.
type EscalationReason string

const (
	EscalationNone EscalationReason = ""
	// EscalationHandoff is a sales rep passing an open complaint upward.
	EscalationHandoff EscalationReason = "HANDOFF"
	// EscalationReopen is the creating consumer rejecting a resolution.
	EscalationReopen EscalationReason = "REOPEN"
)

// Complaint is a dispute raised against an Order.
type Complaint struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID           uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedBy         uuid.UUID `gorm:"type:uuid;not null"`
	ConsumerCompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	SupplierCompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	// HandlerID and HandlerRole change only through assign, escalate and
	// resolve.
	HandlerID        *uuid.UUID       `gorm:"type:uuid"`
	HandlerRole      *Role            `gorm:"size:32"`
	Status           ComplaintStatus  `gorm:"size:16;not null;index"`
	EscalationReason EscalationReason `gorm:"size:16;not null"`
	Description      string           `gorm:"size:1000;not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ResolvedAt       *time.Time
}
