package db

import (
	"context"
	"fmt"

	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
)

// OrderFilter narrows ListOrders to one side of the trade.
type OrderFilter struct {
	SupplierID *uuid.UUID
	ConsumerID *uuid.UUID
}

// CreateOrder inserts the order together with its items. Callers that need
// the insert to be atomic with other writes run it inside WithTransaction;
// on its own GORM already wraps the association insert in a transaction.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	result := r.db.WithContext(ctx).Create(order)
	return translate(result.Error, "order", order.ID)
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	result := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "order", id)
	}
	return &order, nil
}

func (r *Repository) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.ConsumerID != nil {
		query = query.Where("consumer_id = ?", *filter.ConsumerID)
	}
	var orders []models.Order
	result := query.Order("created_at DESC").Find(&orders)
	return orders, result.Error
}

// UpdateOrderStatus is a compare-and-set on the order status. Only the
// status column is written; items and totals are immutable.
func (r *Repository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return translate(result.Error, "order", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: order %s is no longer %s", e.ErrConflict, id, from)
	}
	return nil
}
