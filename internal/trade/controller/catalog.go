package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/linktrade/internal/trade/db"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/gartstein/linktrade/internal/trade/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogFilter decides which products an actor may see.
type CatalogFilter struct {
	service
	links *LinkGate
}

func NewCatalogFilter(repo Repository, links *LinkGate, logger *zap.Logger) *CatalogFilter {
	return &CatalogFilter{
		service: newService(repo, nil, nil, logger, "catalog_filter"),
		links:   links,
	}
}

// VisibleProducts lists the catalog as seen by actor. Consumers see the
// active products of every supplier they hold an APPROVED link with;
// filtering on any other supplier yields an empty list. Supplier staff see
// all of their own products, including inactive ones.
func (c *CatalogFilter) VisibleProducts(ctx context.Context, actor *models.Actor, supplierFilter *uuid.UUID) ([]models.Product, error) {
	if err := policy.Check(actor, policy.CatalogView, policy.OwnSide(actor)); err != nil {
		return nil, err
	}

	if actor.Role.IsSupplierSide() {
		if supplierFilter != nil && *supplierFilter != actor.CompanyID {
			return []models.Product{}, nil
		}
		products, err := c.repo.ListProducts(ctx, db.ProductFilter{SupplierIDs: []uuid.UUID{actor.CompanyID}})
		return products, wrapInternal(err, "list products")
	}

	approved, err := c.links.ApprovedSupplierIDs(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if supplierFilter != nil {
		approved = intersect(approved, *supplierFilter)
	}

	products, err := c.repo.ListProducts(ctx, db.ProductFilter{SupplierIDs: approved, ActiveOnly: true})
	return products, wrapInternal(err, "list products")
}

// GetProduct returns one product. Consumers need an APPROVED link with its
// supplier and never see inactive products, matching VisibleProducts;
// supplier staff may only read their own products.
func (c *CatalogFilter) GetProduct(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Product, error) {
	product, err := c.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, wrapInternal(err, "get product")
	}

	if err := policy.Check(actor, policy.CatalogView, policy.RelationshipOf(actor, product.SupplierID, actor.CompanyID)); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleConsumer {
		approved, err := c.links.HasApprovedLink(ctx, product.SupplierID, actor.CompanyID)
		if err != nil {
			return nil, err
		}
		if !approved {
			return nil, fmt.Errorf("%w: no approved link with supplier %s", e.ErrForbidden, product.SupplierID)
		}
		if !product.Active {
			return nil, fmt.Errorf("%w: product %s is not available", e.ErrNotFound, id)
		}
	}
	return product, nil
}

func intersect(ids []uuid.UUID, want uuid.UUID) []uuid.UUID {
	for _, id := range ids {
		if id == want {
			return []uuid.UUID{want}
		}
	}
	return nil
}
