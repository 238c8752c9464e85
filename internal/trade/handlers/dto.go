package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// errMalformed marks requests that could not be parsed at all.
var errMalformed = errors.New("malformed request")

type linkRequest struct {
	SupplierID string `json:"supplier_id" validate:"required,uuid"`
}

// statusRequest carries the target status of a link or order.
type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type productRequest struct {
	Name          string          `json:"name" validate:"required,max=255"`
	SKU           string          `json:"sku" validate:"required,max=64"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	MinOrderQty   int             `json:"min_order_qty" validate:"gte=1"`
}

func (p *productRequest) toModel() *models.Product {
	return &models.Product{
		Name:          p.Name,
		SKU:           p.SKU,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		MinOrderQty:   p.MinOrderQty,
	}
}

// productPatch is a partial product edit; absent fields stay unchanged.
type productPatch struct {
	Name          *string          `json:"name" validate:"omitempty,max=255"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity"`
	MinOrderQty   *int             `json:"min_order_qty"`
}

func (p *productPatch) toUpdate(id uuid.UUID) *models.ProductUpdate {
	return &models.ProductUpdate{
		ID:            id,
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		MinOrderQty:   p.MinOrderQty,
	}
}

type orderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type orderRequest struct {
	SupplierID string             `json:"supplier_id" validate:"required,uuid"`
	Items      []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (o *orderRequest) lines() []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, models.OrderLine{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
		})
	}
	return lines
}

type complaintRequest struct {
	OrderID     string `json:"order_id" validate:"required,uuid"`
	Description string `json:"description" validate:"required,max=1000"`
}

// escalateRequest optionally names the manager taking over a hand-off.
type escalateRequest struct {
	TargetManagerID string `json:"target_manager_id" validate:"omitempty,uuid"`
}

func (r *escalateRequest) target() *uuid.UUID {
	if r.TargetManagerID == "" {
		return nil
	}
	id := uuid.MustParse(r.TargetManagerID)
	return &id
}

// validationMessage flattens validator errors into "field: rule" pairs.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
