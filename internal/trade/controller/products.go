package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/linktrade/internal/pkg/utils"
	"github.com/gartstein/linktrade/internal/trade/db"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/metrics"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/gartstein/linktrade/internal/trade/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxProductName = 255
	maxSKU         = 64
	// priceScale matches the numeric(12,2) price column.
	priceScale = 2
)

// maxPrice is the first value the price column cannot hold.
var maxPrice = decimal.New(1, 12-priceScale)

// ProductCatalog lets supplier owners and managers maintain their catalog.
// Stock set here is an absolute correction; orders only move stock through
// the ledger.
type ProductCatalog struct {
	service
}

func NewProductCatalog(repo Repository, m *metrics.Metrics, logger *zap.Logger) *ProductCatalog {
	return &ProductCatalog{service: newService(repo, nil, m, logger, "product_catalog")}
}

// CreateProduct adds a product to the actor's own catalog. The caller's
// Active and SupplierID are ignored.
func (p *ProductCatalog) CreateProduct(ctx context.Context, actor *models.Actor, product *models.Product) (*models.Product, error) {
	if err := policy.Check(actor, policy.ProductManage, policy.OwnSide(actor)); err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(product.Name)
	product.SKU = strings.TrimSpace(product.SKU)
	if err := validateProduct(product.Name, product.SKU, product.Price, product.StockQuantity, product.MinOrderQty); err != nil {
		return nil, err
	}

	product.ID = uuid.New()
	product.SupplierID = actor.CompanyID
	err := p.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.CreateProduct(ctx, product)
	})
	if err != nil {
		return nil, wrapInternal(err, "create product")
	}

	p.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("supplier_id", product.SupplierID.String()),
		zap.String("sku", product.SKU),
	)
	return product, nil
}

// UpdateProduct applies a partial edit to a product of the actor's company.
func (p *ProductCatalog) UpdateProduct(ctx context.Context, actor *models.Actor, update *models.ProductUpdate) (*models.Product, error) {
	if update.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid product ID", e.ErrInvalidInput)
	}

	current, err := p.repo.GetProduct(ctx, update.ID)
	if err != nil {
		return nil, wrapInternal(err, "get product")
	}
	if err := policy.Check(actor, policy.ProductManage, policy.RelationshipOf(actor, current.SupplierID, uuid.Nil)); err != nil {
		return nil, err
	}

	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}
	err = validateProduct(
		utils.Deref(update.Name, current.Name),
		current.SKU,
		utils.Deref(update.Price, current.Price),
		utils.Deref(update.StockQuantity, current.StockQuantity),
		utils.Deref(update.MinOrderQty, current.MinOrderQty),
	)
	if err != nil {
		return nil, err
	}

	var updated *models.Product
	err = p.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.UpdateProduct(ctx, update); err != nil {
			return err
		}
		updated, err = tx.GetProduct(ctx, update.ID)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "update product")
	}

	p.logger.Info("Product updated",
		zap.String("product_id", updated.ID.String()),
		zap.Int("stock_quantity", updated.StockQuantity),
	)
	return updated, nil
}

func validateProduct(name, sku string, price decimal.Decimal, stock, minOrderQty int) error {
	switch {
	case name == "" || len(name) > maxProductName:
		return fmt.Errorf("%w: invalid name", e.ErrInvalidInput)
	case sku == "" || len(sku) > maxSKU:
		return fmt.Errorf("%w: invalid sku", e.ErrInvalidInput)
	case price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", e.ErrInvalidInput)
	case !price.Equal(price.Round(priceScale)):
		return fmt.Errorf("%w: price has more than %d decimal places", e.ErrInvalidInput, priceScale)
	case price.GreaterThanOrEqual(maxPrice):
		return fmt.Errorf("%w: price must be below %s", e.ErrInvalidInput, maxPrice)
	case stock < 0:
		return fmt.Errorf("%w: stock must not be negative", e.ErrInvalidInput)
	case minOrderQty < 1:
		return fmt.Errorf("%w: min order quantity must be at least 1", e.ErrInvalidInput)
	}
	return nil
}
