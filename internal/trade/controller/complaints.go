package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gartstein/linktrade/internal/pkg/utils"
	"github.com/gartstein/linktrade/internal/trade/db"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/metrics"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/gartstein/linktrade/internal/trade/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxDescription = 1000

// ComplaintWorkflow routes disputes between the supplier's sales staff and
// its managers and owners. Every transition is a compare-and-set on the
// status read at the start of the call.
type ComplaintWorkflow struct {
	service
}

func NewComplaintWorkflow(repo Repository, producer EventProducer, m *metrics.Metrics, logger *zap.Logger) *ComplaintWorkflow {
	return &ComplaintWorkflow{service: newService(repo, producer, m, logger, "complaint_workflow")}
}

// CreateComplaint opens an unassigned complaint against an order of the
// actor's company.
func (w *ComplaintWorkflow) CreateComplaint(ctx context.Context, actor *models.Actor, orderID uuid.UUID, description string) (*models.Complaint, error) {
	order, err := w.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, wrapInternal(err, "get order")
	}
	if err := policy.Check(actor, policy.ComplaintCreate, policy.RelationshipOf(actor, order.SupplierID, order.ConsumerID)); err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" || len(description) > maxDescription {
		return nil, fmt.Errorf("%w: description is required and at most %d characters", e.ErrInvalidInput, maxDescription)
	}

	complaint := &models.Complaint{
		ID:                uuid.New(),
		OrderID:           order.ID,
		CreatedBy:         actor.UserID,
		ConsumerCompanyID: order.ConsumerID,
		SupplierCompanyID: order.SupplierID,
		Status:            models.ComplaintOpen,
		EscalationReason:  models.EscalationNone,
		Description:       description,
	}
	err = w.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.CreateComplaint(ctx, complaint)
	})
	if err != nil {
		return nil, wrapInternal(err, "create complaint")
	}

	w.logger.Info("Complaint created",
		zap.String("complaint_id", complaint.ID.String()),
		zap.String("order_id", orderID.String()),
	)
	w.publishComplaint(complaint)
	return complaint, nil
}

// AssignComplaint makes the acting sales user the handler of an OPEN,
// unassigned complaint. Of two concurrent assignments exactly one wins.
func (w *ComplaintWorkflow) AssignComplaint(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Complaint, error) {
	complaint, rel, err := w.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if complaint.Status != models.ComplaintOpen || complaint.HandlerID != nil {
		return nil, fmt.Errorf("%w: complaint %s is already assigned or not open", e.ErrConflict, id)
	}
	if err := policy.Check(actor, policy.ComplaintAssign, rel); err != nil {
		return nil, err
	}

	var updated *models.Complaint
	err = w.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.AssignComplaint(ctx, id, actor.UserID, actor.Role); err != nil {
			return err
		}
		updated, err = tx.GetComplaint(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "assign complaint")
	}

	w.logger.Info("Complaint assigned",
		zap.String("complaint_id", id.String()),
		zap.String("handler_id", actor.UserID.String()),
	)
	return updated, nil
}

// EscalateComplaint covers both ways into ESCALATED. Sales staff hand an
// OPEN complaint upward, optionally to a named manager of the same
// supplier. The consumer who raised a RESOLVED complaint reopens it.
func (w *ComplaintWorkflow) EscalateComplaint(ctx context.Context, actor *models.Actor, id uuid.UUID, targetManager *uuid.UUID) (*models.Complaint, error) {
	complaint, rel, err := w.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var change db.ComplaintChange
	switch {
	case complaint.Status == models.ComplaintOpen:
		if err := policy.Check(actor, policy.ComplaintEscalate, rel); err != nil {
			return nil, err
		}
		change = db.ComplaintChange{
			Status:           models.ComplaintEscalated,
			EscalationReason: models.EscalationHandoff,
		}
		if targetManager != nil {
			if err := w.checkManager(ctx, *targetManager, complaint.SupplierCompanyID); err != nil {
				return nil, err
			}
			change.HandlerID = targetManager
			change.HandlerRole = utils.Ptr(models.RoleSupplierManager)
		}
	case complaint.Status == models.ComplaintResolved && actor.Role == models.RoleConsumer:
		if err := policy.Check(actor, policy.ComplaintReopen, rel); err != nil {
			return nil, err
		}
		if complaint.CreatedBy != actor.UserID {
			return nil, fmt.Errorf("%w: only the creator may reopen complaint %s", e.ErrForbidden, id)
		}
		change = db.ComplaintChange{
			Status:           models.ComplaintEscalated,
			EscalationReason: models.EscalationReopen,
		}
	default:
		return nil, fmt.Errorf("%w: complaint %s cannot be escalated from %s", e.ErrConflict, id, complaint.Status)
	}

	updated, err := w.transition(ctx, complaint, change)
	if err != nil {
		return nil, err
	}
	w.logger.Info("Complaint escalated",
		zap.String("complaint_id", id.String()),
		zap.String("reason", string(change.EscalationReason)),
		zap.String("by", actor.UserID.String()),
	)
	return updated, nil
}

// ResolveComplaint closes a complaint. Sales staff may resolve OPEN
// complaints only; managers and owners may also resolve ESCALATED ones.
func (w *ComplaintWorkflow) ResolveComplaint(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Complaint, error) {
	complaint, rel, err := w.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var guard policy.Action
	switch complaint.Status {
	case models.ComplaintOpen:
		guard = policy.ComplaintResolveOpen
	case models.ComplaintEscalated:
		guard = policy.ComplaintResolveEscalated
	default:
		return nil, fmt.Errorf("%w: complaint %s is already %s", e.ErrConflict, id, complaint.Status)
	}
	if err := policy.Check(actor, guard, rel); err != nil {
		return nil, err
	}

	change := db.ComplaintChange{
		Status:           models.ComplaintResolved,
		HandlerID:        complaint.HandlerID,
		HandlerRole:      complaint.HandlerRole,
		EscalationReason: complaint.EscalationReason,
		ResolvedAt:       utils.Ptr(w.now().UTC()),
	}
	if change.HandlerID == nil {
		change.HandlerID = &actor.UserID
		change.HandlerRole = &actor.Role
	}

	updated, err := w.transition(ctx, complaint, change)
	if err != nil {
		return nil, err
	}
	w.logger.Info("Complaint resolved",
		zap.String("complaint_id", id.String()),
		zap.String("by", actor.UserID.String()),
	)
	return updated, nil
}

// GetComplaint returns a complaint to either of its companies.
func (w *ComplaintWorkflow) GetComplaint(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Complaint, error) {
	complaint, _, err := w.load(ctx, actor, id)
	return complaint, err
}

// ListComplaints returns the complaints of the actor's company on its own
// side.
func (w *ComplaintWorkflow) ListComplaints(ctx context.Context, actor *models.Actor) ([]models.Complaint, error) {
	if err := policy.Check(actor, policy.ComplaintView, policy.OwnSide(actor)); err != nil {
		return nil, err
	}
	filter := db.ComplaintFilter{ConsumerCompanyID: &actor.CompanyID}
	if actor.Role.IsSupplierSide() {
		filter = db.ComplaintFilter{SupplierCompanyID: &actor.CompanyID}
	}
	complaints, err := w.repo.ListComplaints(ctx, filter)
	return complaints, wrapInternal(err, "list complaints")
}

// load reads the complaint and rejects actors outside both companies.
func (w *ComplaintWorkflow) load(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Complaint, policy.Relationship, error) {
	complaint, err := w.repo.GetComplaint(ctx, id)
	if err != nil {
		return nil, policy.Unrelated, wrapInternal(err, "get complaint")
	}
	rel := policy.RelationshipOf(actor, complaint.SupplierCompanyID, complaint.ConsumerCompanyID)
	if err := policy.Check(actor, policy.ComplaintView, rel); err != nil {
		return nil, rel, err
	}
	return complaint, rel, nil
}

func (w *ComplaintWorkflow) transition(ctx context.Context, complaint *models.Complaint, change db.ComplaintChange) (*models.Complaint, error) {
	var updated *models.Complaint
	err := w.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.TransitionComplaint(ctx, complaint.ID, complaint.Status, change); err != nil {
			return err
		}
		var err error
		updated, err = tx.GetComplaint(ctx, complaint.ID)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "transition complaint")
	}
	w.publishComplaint(updated)
	return updated, nil
}

// checkManager verifies that userID is an active manager of supplierID.
func (w *ComplaintWorkflow) checkManager(ctx context.Context, userID, supplierID uuid.UUID) error {
	user, err := w.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return fmt.Errorf("%w: escalation target %s does not exist", e.ErrInvalidInput, userID)
		}
		return wrapInternal(err, "get escalation target")
	}
	if user.Role != models.RoleSupplierManager || user.CompanyID != supplierID || !user.Active {
		return fmt.Errorf("%w: escalation target %s is not a manager of supplier %s", e.ErrInvalidInput, userID, supplierID)
	}
	return nil
}

func (w *ComplaintWorkflow) publishComplaint(c *models.Complaint) {
	w.publish(models.EntityComplaint, c.ID, string(c.Status), c.SupplierCompanyID, c.ConsumerCompanyID)
}
