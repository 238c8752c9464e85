// Package models defines the domain models of the trading engine: companies
// and their users, the links between suppliers and consumers, products,
// orders and complaints, together with the closed status enumerations and
// their transition tables. The structs double as GORM models.
package models

import (
	"time"

	"github.com/google/uuid"
)

// CompanyKind says on which side of a link a company trades.
type CompanyKind string

const (
	CompanySupplier CompanyKind = "SUPPLIER"
	CompanyConsumer CompanyKind = "CONSUMER"
)

// Valid reports whether k is a known company kind.
func (k CompanyKind) Valid() bool {
	return k == CompanySupplier || k == CompanyConsumer
}

// Company defines a trading entity. Companies are never hard-deleted; they
// are deactivated instead.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	// Name is the company's registered name.
	Name string `gorm:"size:255;uniqueIndex;not null"`
	// Kind is SUPPLIER or CONSUMER.
	Kind CompanyKind `gorm:"size:16;not null;index"`
	// Verified is the KYB flag. Only verified suppliers accept link requests.
	Verified bool `gorm:"not null"`
	// Active is cleared on soft deactivation.
	Active    bool `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role is the role of a user inside its company.
type Role string

const (
	RoleConsumer        Role = "CONSUMER"
	RoleSupplierOwner   Role = "SUPPLIER_OWNER"
	RoleSupplierManager Role = "SUPPLIER_MANAGER"
	RoleSupplierSales   Role = "SUPPLIER_SALES"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleSupplierOwner, RoleSupplierManager, RoleSupplierSales:
		return true
	}
	return false
}

// IsSupplierSide reports whether r belongs to a supplier company.
func (r Role) IsSupplierSide() bool {
	return r == RoleSupplierOwner || r == RoleSupplierManager || r == RoleSupplierSales
}

// User is a human actor belonging to exactly one company.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"size:320;uniqueIndex;not null"`
	Role      Role      `gorm:"size:32;not null"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor is the authenticated caller of an operation, resolved from its user
// and company rows at request time.
type Actor struct {
	UserID      uuid.UUID
	Role        Role
	CompanyID   uuid.UUID
	CompanyKind CompanyKind
}
