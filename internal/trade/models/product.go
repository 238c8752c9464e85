package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog item owned by one supplier company.
type Product struct {
	// ID is the unique identifier for the product.
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	// SupplierID is the owning supplier company.
	SupplierID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_products_supplier_sku"`
	Name       string    `gorm:"size:255;not null"`
	// SKU is unique within the supplier.
	SKU   string          `gorm:"column:sku;size:64;not null;uniqueIndex:idx_products_supplier_sku"`
	Price decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	// StockQuantity is only changed by the supplier's catalog edits and by
	// the inventory ledger.
	StockQuantity int `gorm:"not null;check:stock_quantity >= 0"`
	MinOrderQty   int `gorm:"not null;check:min_order_qty >= 1"`
	// Active is materialized from StockQuantity > 0 in the same statement
	// that changes the stock.
	Active    bool `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductUpdate represents the fields a supplier may change on a product.
// Pointer types are used to allow partial updates.
type ProductUpdate struct {
	ID            uuid.UUID
	Name          *string
	Price         *decimal.Decimal
	StockQuantity *int
	MinOrderQty   *int
}

// StockAdjustment is one signed change of a product's stock.
type StockAdjustment struct {
	ProductID uuid.UUID
	Delta     int
}
