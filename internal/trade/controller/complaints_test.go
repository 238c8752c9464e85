package controller

import (
	"context"
	"sync"
	"testing"

	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openComplaint places an order and raises a complaint on it as buyer.
func (w *world) openComplaint(t *testing.T) *models.Complaint {
	ctx := context.Background()
	if ok, _ := w.engine.HasApprovedLink(ctx, w.supplier.ID, w.consumer.ID); !ok {
		w.approve(t, w.buyer)
	}
	product := w.product(t, 10, 1, "3.00")
	order, err := w.engine.CreateOrder(ctx, w.buyer, w.supplier.ID, []models.OrderLine{{ProductID: product.ID, Quantity: 1}})
	require.NoError(t, err)

	complaint, err := w.engine.CreateComplaint(ctx, w.buyer, order.ID, "  two crates were damaged  ")
	require.NoError(t, err)
	return complaint
}

func TestComplaintWorkflow_Create(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	complaint := w.openComplaint(t)
	assert.Equal(t, models.ComplaintOpen, complaint.Status)
	assert.Nil(t, complaint.HandlerID)
	assert.Equal(t, "two crates were damaged", complaint.Description)
	assert.Equal(t, w.supplier.ID, complaint.SupplierCompanyID)
	assert.Equal(t, "OPEN", w.producer.Last().NewStatus)

	_, err := w.engine.CreateComplaint(ctx, w.buyer, complaint.OrderID, "   ")
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	_, err = w.engine.CreateComplaint(ctx, w.otherBuyer, complaint.OrderID, "not mine")
	assert.ErrorIs(t, err, e.ErrForbidden)

	_, err = w.engine.CreateComplaint(ctx, w.buyer, uuid.New(), "no such order")
	assert.ErrorIs(t, err, e.ErrNotFound)

	list, err := w.engine.ListComplaints(ctx, w.manager)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestComplaintWorkflow_AssignExclusivity(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	complaint := w.openComplaint(t)

	_, err := w.engine.AssignComplaint(ctx, w.manager, complaint.ID)
	assert.ErrorIs(t, err, e.ErrForbidden, "only sales staff pick up complaints")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, actor := range []*models.Actor{w.sales, w.sales2} {
		wg.Add(1)
		go func(i int, actor *models.Actor) {
			defer wg.Done()
			_, results[i] = w.engine.AssignComplaint(ctx, actor, complaint.ID)
		}(i, actor)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, e.ErrConflict)
	}
	assert.Equal(t, 1, succeeded, "exactly one assignment wins")

	stored, err := w.engine.GetComplaint(ctx, w.buyer, complaint.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.HandlerID)
	require.NotNil(t, stored.HandlerRole)
	assert.Equal(t, models.RoleSupplierSales, *stored.HandlerRole)
}

func TestComplaintWorkflow_EscalateAndResolve(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	complaint := w.openComplaint(t)

	_, err := w.engine.AssignComplaint(ctx, w.sales, complaint.ID)
	require.NoError(t, err)

	_, err = w.engine.EscalateComplaint(ctx, w.buyer, complaint.ID, nil)
	assert.ErrorIs(t, err, e.ErrForbidden, "consumers cannot hand off an open complaint")

	escalated, err := w.engine.EscalateComplaint(ctx, w.sales2, complaint.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintEscalated, escalated.Status)
	assert.Equal(t, models.EscalationHandoff, escalated.EscalationReason)
	assert.Nil(t, escalated.HandlerID, "a hand-off without a target clears the handler")

	_, err = w.engine.ResolveComplaint(ctx, w.sales, complaint.ID)
	assert.ErrorIs(t, err, e.ErrForbidden, "sales cannot resolve escalated complaints")

	_, err = w.engine.EscalateComplaint(ctx, w.sales, complaint.ID, nil)
	assert.ErrorIs(t, err, e.ErrConflict)

	resolved, err := w.engine.ResolveComplaint(ctx, w.manager, complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.HandlerID)
	assert.Equal(t, w.manager.UserID, *resolved.HandlerID, "the resolver becomes the handler when none is set")
	assert.Equal(t, "RESOLVED", w.producer.Last().NewStatus)
}

func TestComplaintWorkflow_EscalateToManager(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	complaint := w.openComplaint(t)

	_, err := w.engine.EscalateComplaint(ctx, w.sales, complaint.ID, &w.sales2.UserID)
	assert.ErrorIs(t, err, e.ErrInvalidInput, "the target must be a manager")

	missing := uuid.New()
	_, err = w.engine.EscalateComplaint(ctx, w.sales, complaint.ID, &missing)
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	rival := w.company(t, "Rival Supply", models.CompanySupplier, true)
	rivalManager := w.user(t, rival, models.RoleSupplierManager)
	_, err = w.engine.EscalateComplaint(ctx, w.sales, complaint.ID, &rivalManager.UserID)
	assert.ErrorIs(t, err, e.ErrInvalidInput, "the target must work for the same supplier")

	escalated, err := w.engine.EscalateComplaint(ctx, w.sales, complaint.ID, &w.manager.UserID)
	require.NoError(t, err)
	require.NotNil(t, escalated.HandlerID)
	assert.Equal(t, w.manager.UserID, *escalated.HandlerID)
	assert.Equal(t, models.RoleSupplierManager, *escalated.HandlerRole)

	resolved, err := w.engine.ResolveComplaint(ctx, w.owner, complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, w.manager.UserID, *resolved.HandlerID, "an existing handler is kept")
}

func TestComplaintWorkflow_SalesResolvesOpen(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	complaint := w.openComplaint(t)

	_, err := w.engine.AssignComplaint(ctx, w.sales, complaint.ID)
	require.NoError(t, err)

	resolved, err := w.engine.ResolveComplaint(ctx, w.sales2, complaint.ID)
	require.NoError(t, err, "any sales rep of the supplier may resolve an open complaint")
	assert.Equal(t, w.sales.UserID, *resolved.HandlerID)
}

func TestComplaintWorkflow_ResolvedIsTerminalForStaff(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	complaint := w.openComplaint(t)

	_, err := w.engine.ResolveComplaint(ctx, w.sales, complaint.ID)
	require.NoError(t, err)

	for _, actor := range []*models.Actor{w.sales2, w.manager, w.owner, w.buyer} {
		_, err = w.engine.AssignComplaint(ctx, actor, complaint.ID)
		assert.ErrorIs(t, err, e.ErrConflict, "assign after resolve as %s", actor.Role)
	}
	_, err = w.engine.ResolveComplaint(ctx, w.buyer, complaint.ID)
	assert.ErrorIs(t, err, e.ErrConflict)
	_, err = w.engine.ResolveComplaint(ctx, w.manager, complaint.ID)
	assert.ErrorIs(t, err, e.ErrConflict)
	_, err = w.engine.EscalateComplaint(ctx, w.sales, complaint.ID, nil)
	assert.ErrorIs(t, err, e.ErrConflict)
}

func TestComplaintWorkflow_Reopen(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	complaint := w.openComplaint(t)

	_, err := w.engine.ResolveComplaint(ctx, w.owner, complaint.ID)
	require.NoError(t, err)

	_, err = w.engine.EscalateComplaint(ctx, w.buyer2, complaint.ID, nil)
	assert.ErrorIs(t, err, e.ErrForbidden, "only the creator may reopen")

	reopened, err := w.engine.EscalateComplaint(ctx, w.buyer, complaint.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintEscalated, reopened.Status)
	assert.Equal(t, models.EscalationReopen, reopened.EscalationReason)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Nil(t, reopened.HandlerID)

	_, err = w.engine.EscalateComplaint(ctx, w.buyer, complaint.ID, nil)
	assert.ErrorIs(t, err, e.ErrConflict, "an escalated complaint cannot be escalated again")
}

func TestComplaintWorkflow_Visibility(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	complaint := w.openComplaint(t)

	_, err := w.engine.GetComplaint(ctx, w.otherBuyer, complaint.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)

	_, err = w.engine.ResolveComplaint(ctx, w.otherBuyer, complaint.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)

	list, err := w.engine.ListComplaints(ctx, w.otherBuyer)
	require.NoError(t, err)
	assert.Empty(t, list)
}
