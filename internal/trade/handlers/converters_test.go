package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gartstein/linktrade/internal/pkg/utils"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	productID := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("%w: quantity", e.ErrInvalidInput), http.StatusUnprocessableEntity, "validation_error"},
		{"malformed", fmt.Errorf("%w: bad json", errMalformed), http.StatusBadRequest, "bad_request"},
		{"invalid transition", fmt.Errorf("%w: COMPLETED -> ship", e.ErrInvalidTransition), http.StatusBadRequest, "invalid_transition"},
		{"forbidden", fmt.Errorf("%w: no link", e.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"not found", fmt.Errorf("%w: order", e.ErrNotFound), http.StatusNotFound, "not_found"},
		{"conflict", fmt.Errorf("%w: stale", e.ErrConflict), http.StatusConflict, "conflict"},
		{"unauthenticated", e.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"insufficient stock", fmt.Errorf("failed: %w", &e.InsufficientStockError{ProductID: productID, Requested: 3, Available: 1}), http.StatusConflict, "insufficient_stock"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body.Error)
			if tt.wantCode == "insufficient_stock" {
				require.NotNil(t, body.ProductID)
				assert.Equal(t, productID, *body.ProductID)
			} else {
				assert.Nil(t, body.ProductID)
			}
		})
	}
}

func TestToComplaintResponse(t *testing.T) {
	handler := uuid.New()
	complaint := &models.Complaint{
		ID:               uuid.New(),
		HandlerID:        &handler,
		HandlerRole:      utils.Ptr(models.RoleSupplierManager),
		Status:           models.ComplaintEscalated,
		EscalationReason: models.EscalationHandoff,
	}

	resp := toComplaintResponse(complaint)

	require.NotNil(t, resp.HandlerRole)
	assert.Equal(t, "SUPPLIER_MANAGER", *resp.HandlerRole)
	assert.Equal(t, "HANDOFF", resp.EscalationReason)
	assert.Nil(t, toComplaintResponse(&models.Complaint{}).HandlerRole)
}

func TestToOrderResponse(t *testing.T) {
	productID := uuid.New()
	order := &models.Order{
		ID:          uuid.New(),
		Status:      models.OrderPending,
		TotalAmount: decimal.RequireFromString("39.98"),
		Items: []models.OrderItem{
			{ProductID: productID, Quantity: 2, UnitPriceAtTime: decimal.RequireFromString("19.99")},
		},
	}

	resp := toOrderResponse(order)

	assert.Equal(t, "PENDING", resp.Status)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, productID, resp.Items[0].ProductID)
	assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("39.98")))
}
