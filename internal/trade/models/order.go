package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an Order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderAccepted   OrderStatus = "ACCEPTED"
	OrderRejected   OrderStatus = "REJECTED"
	OrderInDelivery OrderStatus = "IN_DELIVERY"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// OrderAction is an event that moves an Order between states.
type OrderAction string

const (
	OrderAccept   OrderAction = "accept"
	OrderReject   OrderAction = "reject"
	OrderShip     OrderAction = "ship"
	OrderComplete OrderAction = "complete"
	OrderCancel   OrderAction = "cancel"
)

var orderTransitions = map[OrderStatus]map[OrderAction]OrderStatus{
	OrderPending: {
		OrderAccept: OrderAccepted,
		OrderReject: OrderRejected,
		OrderCancel: OrderCancelled,
	},
	OrderAccepted: {
		OrderShip:   OrderInDelivery,
		OrderCancel: OrderCancelled,
	},
	OrderInDelivery: {
		OrderComplete: OrderCompleted,
	},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderAccepted, OrderRejected, OrderInDelivery, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no action leaves s.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// Next returns the state reached by applying action to s.
func (s OrderStatus) Next(action OrderAction) (OrderStatus, bool) {
	next, ok := orderTransitions[s][action]
	return next, ok
}

// StockReserved reports whether an order in s holds decremented stock.
func (s OrderStatus) StockReserved() bool {
	return s == OrderAccepted || s == OrderInDelivery || s == OrderCompleted
}

// OrderActionFor maps a requested target status to the action producing it.
func OrderActionFor(target OrderStatus) (OrderAction, bool) {
	switch target {
	case OrderAccepted:
		return OrderAccept, true
	case OrderRejected:
		return OrderReject, true
	case OrderInDelivery:
		return OrderShip, true
	case OrderCompleted:
		return OrderComplete, true
	case OrderCancelled:
		return OrderCancel, true
	}
	return "", false
}

// Order is a purchase placed by a consumer company with one supplier.
type Order struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey"`
	ConsumerID uuid.UUID   `gorm:"type:uuid;not null;index"`
	SupplierID uuid.UUID   `gorm:"type:uuid;not null;index"`
	Status     OrderStatus `gorm:"size:16;not null;index"`
	// TotalAmount is the sum of the item line totals at snapshot prices.
	TotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CreatedBy   uuid.UUID       `gorm:"type:uuid;not null"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem is one product line of an Order. UnitPriceAtTime is the price
// snapshot taken at creation and never changes afterwards.
type OrderItem struct {
	OrderID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID       uuid.UUID       `gorm:"type:uuid;primaryKey;index"`
	Quantity        int             `gorm:"not null;check:quantity > 0"`
	UnitPriceAtTime decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

// LineTotal is quantity times the snapshot price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderLine is a requested line of a new order.
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// ComputeTotal sums the line totals of items.
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// DecrementAdjustments returns one negative adjustment per item.
// RestoreAdjustments negates them exactly.
func DecrementAdjustments(items []OrderItem) []StockAdjustment {
	adjustments := make([]StockAdjustment, 0, len(items))
	for _, item := range items {
		adjustments = append(adjustments, StockAdjustment{ProductID: item.ProductID, Delta: -item.Quantity})
	}
	return adjustments
}

func RestoreAdjustments(items []OrderItem) []StockAdjustment {
	adjustments := DecrementAdjustments(items)
	for i := range adjustments {
		adjustments[i].Delta = -adjustments[i].Delta
	}
	return adjustments
}
