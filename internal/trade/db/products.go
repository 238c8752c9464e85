package db

import (
	"context"
	"fmt"

	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
)

// ProductFilter narrows ListProducts. An empty SupplierIDs slice matches
// nothing.
type ProductFilter struct {
	SupplierIDs []uuid.UUID
	ActiveOnly  bool
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	product.Active = product.StockQuantity > 0
	result := r.db.WithContext(ctx).Create(product)
	return translate(result.Error, "product", product.ID)
}

func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	result := r.db.WithContext(ctx).First(&product, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "product", id)
	}
	return &product, nil
}

// GetProducts loads the given products keyed by id. Missing ids are absent
// from the map.
func (r *Repository) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	products := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		products[p.ID] = p
	}
	return products, nil
}

func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	if len(filter.SupplierIDs) == 0 {
		return []models.Product{}, nil
	}
	query := r.db.WithContext(ctx).Where("supplier_id IN ?", filter.SupplierIDs)
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	var products []models.Product
	result := query.Order("name, sku").Find(&products)
	return products, result.Error
}

// UpdateProduct applies a partial catalog edit. Active is recomputed from
// the stock in the same statement whenever the stock changes.
func (r *Repository) UpdateProduct(ctx context.Context, update *models.ProductUpdate) error {
	changes := map[string]interface{}{}
	if update.Name != nil {
		changes["name"] = *update.Name
	}
	if update.Price != nil {
		changes["price"] = *update.Price
	}
	if update.MinOrderQty != nil {
		changes["min_order_qty"] = *update.MinOrderQty
	}
	if update.StockQuantity != nil {
		changes["stock_quantity"] = *update.StockQuantity
		changes["active"] = *update.StockQuantity > 0
	}
	if len(changes) == 0 {
		_, err := r.GetProduct(ctx, update.ID)
		return err
	}

	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", update.ID).
		Updates(changes)
	if result.Error != nil {
		return translate(result.Error, "product", update.ID)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: product %s", e.ErrNotFound, update.ID)
	}
	return nil
}
