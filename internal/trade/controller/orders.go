package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/linktrade/internal/trade/db"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/metrics"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/gartstein/linktrade/internal/trade/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderWorkflow drives the order state machine. Accepting an order reserves
// its stock through the ledger and cancelling an accepted order releases
// it, in the same transaction as the status change.
type OrderWorkflow struct {
	service
}

func NewOrderWorkflow(repo Repository, producer EventProducer, m *metrics.Metrics, logger *zap.Logger) *OrderWorkflow {
	return &OrderWorkflow{service: newService(repo, producer, m, logger, "order_workflow")}
}

// CreateOrder places a PENDING order from the actor's company with a
// supplier it holds an APPROVED link with. Prices are snapshotted; stock is
// not touched until the supplier accepts.
func (w *OrderWorkflow) CreateOrder(ctx context.Context, actor *models.Actor, supplierID uuid.UUID, lines []models.OrderLine) (*models.Order, error) {
	if err := policy.Check(actor, policy.OrderCreate, policy.RelationshipOf(actor, supplierID, actor.CompanyID)); err != nil {
		return nil, err
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:         uuid.New(),
		ConsumerID: actor.CompanyID,
		SupplierID: supplierID,
		Status:     models.OrderPending,
		CreatedBy:  actor.UserID,
	}
	err := w.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		approved, err := tx.HasApprovedLink(ctx, supplierID, actor.CompanyID)
		if err != nil {
			return err
		}
		if !approved {
			return fmt.Errorf("%w: no approved link with supplier %s", e.ErrForbidden, supplierID)
		}

		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ProductID)
		}
		products, err := tx.GetProducts(ctx, ids)
		if err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			product, ok := products[line.ProductID]
			if !ok {
				return fmt.Errorf("%w: product %s", e.ErrNotFound, line.ProductID)
			}
			if product.SupplierID != supplierID {
				return fmt.Errorf("%w: product %s does not belong to supplier %s", e.ErrInvalidInput, product.ID, supplierID)
			}
			if line.Quantity < product.MinOrderQty {
				return fmt.Errorf("%w: product %s requires at least %d units", e.ErrInvalidInput, product.ID, product.MinOrderQty)
			}
			items = append(items, models.OrderItem{
				OrderID:         order.ID,
				ProductID:       product.ID,
				Quantity:        line.Quantity,
				UnitPriceAtTime: product.Price,
			})
		}
		order.Items = items
		order.TotalAmount = models.ComputeTotal(items)
		return tx.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, wrapInternal(err, "create order")
	}

	w.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("supplier_id", supplierID.String()),
		zap.String("consumer_id", actor.CompanyID.String()),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	w.publish(models.EntityOrder, order.ID, string(order.Status), order.SupplierID, order.ConsumerID)
	return order, nil
}

// TransitionOrder applies action to the order. Legality is checked before
// authorization; the ledger adjustment and the status compare-and-set share
// one transaction, so an order is never ACCEPTED without its stock.
func (w *OrderWorkflow) TransitionOrder(ctx context.Context, actor *models.Actor, orderID uuid.UUID, action models.OrderAction) (*models.Order, error) {
	order, err := w.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, wrapInternal(err, "get order")
	}

	next, ok := order.Status.Next(action)
	if !ok {
		return nil, fmt.Errorf("%w: cannot %s order %s in status %s", e.ErrInvalidTransition, action, orderID, order.Status)
	}
	guard, _ := policy.OrderAction(action)
	if err := policy.Check(actor, guard, policy.RelationshipOf(actor, order.SupplierID, order.ConsumerID)); err != nil {
		return nil, err
	}

	var adjustments []models.StockAdjustment
	switch {
	case action == models.OrderAccept:
		adjustments = models.DecrementAdjustments(order.Items)
	case action == models.OrderCancel && order.Status.StockReserved():
		adjustments = models.RestoreAdjustments(order.Items)
	}

	err = w.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.ApplyStockAdjustments(ctx, adjustments); err != nil {
			return err
		}
		return tx.UpdateOrderStatus(ctx, orderID, order.Status, next)
	})
	if err != nil {
		if stockErr, ok := e.AsInsufficientStock(err); ok {
			w.metrics.RecordStockRejection()
			w.logger.Info("Order accept refused by ledger",
				zap.String("order_id", orderID.String()),
				zap.String("product_id", stockErr.ProductID.String()),
				zap.Int("requested", stockErr.Requested),
				zap.Int("available", stockErr.Available),
			)
			return nil, err
		}
		return nil, wrapInternal(err, "transition order")
	}

	w.logger.Info("Order transitioned",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next)),
		zap.String("by", actor.UserID.String()),
	)
	order.Status = next
	w.publish(models.EntityOrder, order.ID, string(order.Status), order.SupplierID, order.ConsumerID)
	return order, nil
}

// GetOrder returns an order to either of its companies.
func (w *OrderWorkflow) GetOrder(ctx context.Context, actor *models.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := w.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, wrapInternal(err, "get order")
	}
	if err := policy.Check(actor, policy.OrderView, policy.RelationshipOf(actor, order.SupplierID, order.ConsumerID)); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns the orders of the actor's company on its own side.
func (w *OrderWorkflow) ListOrders(ctx context.Context, actor *models.Actor) ([]models.Order, error) {
	if err := policy.Check(actor, policy.OrderView, policy.OwnSide(actor)); err != nil {
		return nil, err
	}
	filter := db.OrderFilter{ConsumerID: &actor.CompanyID}
	if actor.Role.IsSupplierSide() {
		filter = db.OrderFilter{SupplierID: &actor.CompanyID}
	}
	orders, err := w.repo.ListOrders(ctx, filter)
	return orders, wrapInternal(err, "list orders")
}

func validateLines(lines []models.OrderLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: order has no items", e.ErrInvalidInput)
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return fmt.Errorf("%w: item without product", e.ErrInvalidInput)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for product %s must be positive", e.ErrInvalidInput, line.ProductID)
		}
		if _, dup := seen[line.ProductID]; dup {
			return fmt.Errorf("%w: product %s listed twice", e.ErrInvalidInput, line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}
