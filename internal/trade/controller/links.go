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

// LinkGate runs the supplier/consumer handshake and answers whether a pair
// may trade. Answers always come from the store at call time.
type LinkGate struct {
	service
}

func NewLinkGate(repo Repository, producer EventProducer, m *metrics.Metrics, logger *zap.Logger) *LinkGate {
	return &LinkGate{service: newService(repo, producer, m, logger, "link_gate")}
}

// RequestLink opens a PENDING link from the actor's consumer company to a
// verified, active supplier. A pending, approved or blocked link for the
// pair is a conflict; a rejected one is not.
func (g *LinkGate) RequestLink(ctx context.Context, actor *models.Actor, supplierID uuid.UUID) (*models.Link, error) {
	if err := policy.Check(actor, policy.LinkRequest, policy.OwnSide(actor)); err != nil {
		return nil, err
	}

	supplier, err := g.repo.GetCompany(ctx, supplierID)
	if err != nil {
		return nil, wrapInternal(err, "get supplier")
	}
	if supplier.Kind != models.CompanySupplier {
		return nil, fmt.Errorf("%w: company %s is not a supplier", e.ErrInvalidInput, supplierID)
	}
	if !supplier.Verified || !supplier.Active {
		return nil, fmt.Errorf("%w: supplier %s is not accepting link requests", e.ErrConflict, supplierID)
	}

	link := &models.Link{
		ID:         uuid.New(),
		SupplierID: supplierID,
		ConsumerID: actor.CompanyID,
		Status:     models.LinkPending,
	}
	err = g.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		existing, err := tx.FindBlockingLink(ctx, supplierID, actor.CompanyID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: link %s is %s", e.ErrConflict, existing.ID, existing.Status)
		}
		return tx.CreateLink(ctx, link)
	})
	if err != nil {
		return nil, wrapInternal(err, "create link")
	}

	g.logger.Info("Link requested",
		zap.String("link_id", link.ID.String()),
		zap.String("supplier_id", supplierID.String()),
		zap.String("consumer_id", actor.CompanyID.String()),
	)
	g.publish(models.EntityLink, link.ID, string(link.Status), link.SupplierID, link.ConsumerID)
	return link, nil
}

// SetLinkStatus approves, rejects or blocks a link on behalf of its
// supplier. The write is a compare-and-set on the status read here.
func (g *LinkGate) SetLinkStatus(ctx context.Context, actor *models.Actor, linkID uuid.UUID, status models.LinkStatus) (*models.Link, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown link status %q", e.ErrInvalidInput, status)
	}

	link, err := g.repo.GetLink(ctx, linkID)
	if err != nil {
		return nil, wrapInternal(err, "get link")
	}
	if !link.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: link %s cannot move from %s to %s", e.ErrInvalidTransition, linkID, link.Status, status)
	}
	action, _ := policy.LinkAction(status)
	if err := policy.Check(actor, action, policy.RelationshipOf(actor, link.SupplierID, link.ConsumerID)); err != nil {
		return nil, err
	}

	var updated *models.Link
	err = g.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.UpdateLinkStatus(ctx, linkID, link.Status, status, actor.UserID); err != nil {
			return err
		}
		updated, err = tx.GetLink(ctx, linkID)
		return err
	})
	if err != nil {
		return nil, wrapInternal(err, "update link status")
	}

	g.logger.Info("Link status changed",
		zap.String("link_id", linkID.String()),
		zap.String("from", string(link.Status)),
		zap.String("to", string(status)),
		zap.String("decided_by", actor.UserID.String()),
	)
	g.publish(models.EntityLink, updated.ID, string(updated.Status), updated.SupplierID, updated.ConsumerID)
	return updated, nil
}

// UnblockLink clears a BLOCKED link so the consumer may request again. The
// row is soft-deleted and disappears from every query.
func (g *LinkGate) UnblockLink(ctx context.Context, actor *models.Actor, linkID uuid.UUID) error {
	link, err := g.repo.GetLink(ctx, linkID)
	if err != nil {
		return wrapInternal(err, "get link")
	}
	if link.Status != models.LinkBlocked {
		return fmt.Errorf("%w: link %s is %s, not %s", e.ErrInvalidTransition, linkID, link.Status, models.LinkBlocked)
	}
	if err := policy.Check(actor, policy.LinkUnblock, policy.RelationshipOf(actor, link.SupplierID, link.ConsumerID)); err != nil {
		return err
	}

	err = g.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.RemoveBlockedLink(ctx, linkID)
	})
	if err != nil {
		return wrapInternal(err, "unblock link")
	}

	g.logger.Info("Link unblocked",
		zap.String("link_id", linkID.String()),
		zap.String("by", actor.UserID.String()),
	)
	return nil
}

// ListLinks returns the links of the actor's company on its own side.
func (g *LinkGate) ListLinks(ctx context.Context, actor *models.Actor) ([]models.Link, error) {
	if err := policy.Check(actor, policy.LinkView, policy.OwnSide(actor)); err != nil {
		return nil, err
	}
	filter := db.LinkFilter{ConsumerID: &actor.CompanyID}
	if actor.Role.IsSupplierSide() {
		filter = db.LinkFilter{SupplierID: &actor.CompanyID}
	}
	links, err := g.repo.ListLinks(ctx, filter)
	return links, wrapInternal(err, "list links")
}

// ListSuppliers returns the suppliers a consumer may send a request to.
func (g *LinkGate) ListSuppliers(ctx context.Context, actor *models.Actor) ([]models.Company, error) {
	if err := policy.Check(actor, policy.LinkRequest, policy.OwnSide(actor)); err != nil {
		return nil, err
	}
	suppliers, err := g.repo.ListSuppliers(ctx)
	return suppliers, wrapInternal(err, "list suppliers")
}

func (g *LinkGate) HasApprovedLink(ctx context.Context, supplierID, consumerID uuid.UUID) (bool, error) {
	ok, err := g.repo.HasApprovedLink(ctx, supplierID, consumerID)
	return ok, wrapInternal(err, "check link")
}

func (g *LinkGate) ApprovedSupplierIDs(ctx context.Context, consumerID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := g.repo.ApprovedSupplierIDs(ctx, consumerID)
	return ids, wrapInternal(err, "list approved suppliers")
}
