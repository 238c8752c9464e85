package policy

import (
	"testing"

	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name   string
		role   models.Role
		action Action
		rel    Relationship
		want   bool
	}{
		{"consumer requests link", models.RoleConsumer, LinkRequest, OwnsAsConsumer, true},
		{"sales cannot request link", models.RoleSupplierSales, LinkRequest, OwnsAsSupplier, false},
		{"sales approves link", models.RoleSupplierSales, LinkApprove, OwnsAsSupplier, true},
		{"consumer cannot approve link", models.RoleConsumer, LinkApprove, OwnsAsConsumer, false},
		{"owner of another supplier cannot block", models.RoleSupplierOwner, LinkBlock, Unrelated, false},
		{"manager unblocks", models.RoleSupplierManager, LinkUnblock, OwnsAsSupplier, true},
		{"sales cannot manage products", models.RoleSupplierSales, ProductManage, OwnsAsSupplier, false},
		{"manager manages products", models.RoleSupplierManager, ProductManage, OwnsAsSupplier, true},
		{"consumer creates order", models.RoleConsumer, OrderCreate, OwnsAsConsumer, true},
		{"consumer cannot accept order", models.RoleConsumer, OrderAccept, OwnsAsConsumer, false},
		{"sales accepts order", models.RoleSupplierSales, OrderAccept, OwnsAsSupplier, true},
		{"consumer cancels own order", models.RoleConsumer, OrderCancel, OwnsAsConsumer, true},
		{"consumer cannot cancel foreign order", models.RoleConsumer, OrderCancel, Unrelated, false},
		{"owner cancels order", models.RoleSupplierOwner, OrderCancel, OwnsAsSupplier, true},
		{"sales cannot cancel order", models.RoleSupplierSales, OrderCancel, OwnsAsSupplier, false},
		{"only sales assigns complaint", models.RoleSupplierManager, ComplaintAssign, OwnsAsSupplier, false},
		{"sales assigns complaint", models.RoleSupplierSales, ComplaintAssign, OwnsAsSupplier, true},
		{"consumer reopens complaint", models.RoleConsumer, ComplaintReopen, OwnsAsConsumer, true},
		{"sales cannot resolve escalated", models.RoleSupplierSales, ComplaintResolveEscalated, OwnsAsSupplier, false},
		{"manager resolves escalated", models.RoleSupplierManager, ComplaintResolveEscalated, OwnsAsSupplier, true},
		{"owner overrides open complaint", models.RoleSupplierOwner, ComplaintResolveOpen, OwnsAsSupplier, true},
		{"unknown action denied", models.RoleSupplierOwner, Action("DROP_TABLES"), OwnsAsSupplier, false},
		{"unknown role denied", models.Role("ADMIN"), OrderView, OwnsAsSupplier, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allow(tt.role, tt.action, tt.rel))
		})
	}
}

func TestCheck(t *testing.T) {
	actor := &models.Actor{UserID: uuid.New(), Role: models.RoleConsumer, CompanyKind: models.CompanyConsumer}

	assert.NoError(t, Check(actor, OrderCreate, OwnsAsConsumer))
	assert.ErrorIs(t, Check(actor, OrderAccept, OwnsAsConsumer), e.ErrForbidden)
	assert.ErrorIs(t, Check(nil, OrderView, OwnsAsConsumer), e.ErrForbidden)
}

func TestRelationshipOf(t *testing.T) {
	supplierID := uuid.New()
	consumerID := uuid.New()

	sales := &models.Actor{Role: models.RoleSupplierSales, CompanyID: supplierID, CompanyKind: models.CompanySupplier}
	consumer := &models.Actor{Role: models.RoleConsumer, CompanyID: consumerID, CompanyKind: models.CompanyConsumer}
	stranger := &models.Actor{Role: models.RoleSupplierOwner, CompanyID: uuid.New(), CompanyKind: models.CompanySupplier}
	// A consumer-role user whose company id collides with the supplier side
	// must not be treated as the supplier.
	miscast := &models.Actor{Role: models.RoleConsumer, CompanyID: supplierID, CompanyKind: models.CompanyConsumer}

	assert.Equal(t, OwnsAsSupplier, RelationshipOf(sales, supplierID, consumerID))
	assert.Equal(t, OwnsAsConsumer, RelationshipOf(consumer, supplierID, consumerID))
	assert.Equal(t, Unrelated, RelationshipOf(stranger, supplierID, consumerID))
	assert.Equal(t, Unrelated, RelationshipOf(miscast, supplierID, consumerID))
	assert.Equal(t, Unrelated, RelationshipOf(nil, supplierID, consumerID))

	assert.Equal(t, OwnsAsSupplier, OwnSide(sales))
	assert.Equal(t, OwnsAsConsumer, OwnSide(consumer))
}

func TestActionMappings(t *testing.T) {
	for _, action := range []models.OrderAction{
		models.OrderAccept, models.OrderReject, models.OrderShip, models.OrderComplete, models.OrderCancel,
	} {
		_, ok := OrderAction(action)
		assert.True(t, ok, "order action %s should map", action)
	}
	_, ok := OrderAction(models.OrderAction("refund"))
	assert.False(t, ok)

	act, ok := LinkAction(models.LinkBlocked)
	assert.True(t, ok)
	assert.Equal(t, LinkBlock, act)
	_, ok = LinkAction(models.LinkPending)
	assert.False(t, ok)
}
