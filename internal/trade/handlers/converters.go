package handlers

import (
	"errors"
	"net/http"
	"time"

	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type companyResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Verified bool      `json:"verified"`
}

type linkResponse struct {
	ID         uuid.UUID  `json:"id"`
	SupplierID uuid.UUID  `json:"supplier_id"`
	ConsumerID uuid.UUID  `json:"consumer_id"`
	Status     string     `json:"status"`
	DecidedBy  *uuid.UUID `json:"decided_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type productResponse struct {
	ID            uuid.UUID       `json:"id"`
	SupplierID    uuid.UUID       `json:"supplier_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	MinOrderQty   int             `json:"min_order_qty"`
	Active        bool            `json:"active"`
}

type orderItemResponse struct {
	ProductID       uuid.UUID       `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPriceAtTime decimal.Decimal `json:"unit_price_at_time"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	SupplierID  uuid.UUID           `json:"supplier_id"`
	ConsumerID  uuid.UUID           `json:"consumer_id"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Items       []orderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
}

type complaintResponse struct {
	ID                uuid.UUID  `json:"id"`
	OrderID           uuid.UUID  `json:"order_id"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	ConsumerCompanyID uuid.UUID  `json:"consumer_company_id"`
	SupplierCompanyID uuid.UUID  `json:"supplier_company_id"`
	HandlerID         *uuid.UUID `json:"handler_id"`
	HandlerRole       *string    `json:"handler_role"`
	Status            string     `json:"status"`
	EscalationReason  string     `json:"escalation_reason,omitempty"`
	Description       string     `json:"description"`
	CreatedAt         time.Time  `json:"created_at"`
	ResolvedAt        *time.Time `json:"resolved_at"`
}

type errorResponse struct {
	Error     string     `json:"error"`
	Message   string     `json:"message"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
}

func toCompanyResponse(c *models.Company) companyResponse {
	return companyResponse{ID: c.ID, Name: c.Name, Kind: string(c.Kind), Verified: c.Verified}
}

func toLinkResponse(l *models.Link) linkResponse {
	return linkResponse{
		ID:         l.ID,
		SupplierID: l.SupplierID,
		ConsumerID: l.ConsumerID,
		Status:     string(l.Status),
		DecidedBy:  l.DecidedBy,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

func toProductResponse(p *models.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		SupplierID:    p.SupplierID,
		Name:          p.Name,
		SKU:           p.SKU,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		MinOrderQty:   p.MinOrderQty,
		Active:        p.Active,
	}
}

func toOrderResponse(o *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			UnitPriceAtTime: item.UnitPriceAtTime,
		})
	}
	return orderResponse{
		ID:          o.ID,
		SupplierID:  o.SupplierID,
		ConsumerID:  o.ConsumerID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		Items:       items,
		CreatedAt:   o.CreatedAt,
	}
}

func toComplaintResponse(c *models.Complaint) complaintResponse {
	var role *string
	if c.HandlerRole != nil {
		r := string(*c.HandlerRole)
		role = &r
	}
	return complaintResponse{
		ID:                c.ID,
		OrderID:           c.OrderID,
		CreatedBy:         c.CreatedBy,
		ConsumerCompanyID: c.ConsumerCompanyID,
		SupplierCompanyID: c.SupplierCompanyID,
		HandlerID:         c.HandlerID,
		HandlerRole:       role,
		Status:            string(c.Status),
		EscalationReason:  string(c.EscalationReason),
		Description:       c.Description,
		CreatedAt:         c.CreatedAt,
		ResolvedAt:        c.ResolvedAt,
	}
}

// mapServiceError maps domain or repository errors to HTTP status codes and
// writes the error body.
func (h *TradeHandler) mapServiceError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Internal server error", zap.Error(err))
		body.Message = "internal server error"
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorResponse) {
	body := errorResponse{Message: err.Error()}
	if stockErr, ok := e.AsInsufficientStock(err); ok {
		body.Error = "insufficient_stock"
		body.ProductID = &stockErr.ProductID
		return http.StatusConflict, body
	}

	switch {
	case errors.Is(err, e.ErrUnauthenticated):
		body.Error = "unauthenticated"
		return http.StatusUnauthorized, body
	case errors.Is(err, errMalformed):
		body.Error = "bad_request"
		return http.StatusBadRequest, body
	case errors.Is(err, e.ErrInvalidInput):
		body.Error = "validation_error"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, e.ErrInvalidTransition):
		body.Error = "invalid_transition"
		return http.StatusBadRequest, body
	case errors.Is(err, e.ErrForbidden):
		body.Error = "forbidden"
		return http.StatusForbidden, body
	case errors.Is(err, e.ErrNotFound):
		body.Error = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, e.ErrConflict):
		body.Error = "conflict"
		return http.StatusConflict, body
	default:
		body.Error = "internal"
		return http.StatusInternalServerError, body
	}
}
