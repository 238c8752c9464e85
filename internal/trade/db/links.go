package db

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LinkFilter narrows ListLinks to one side of the handshake.
type LinkFilter struct {
	SupplierID *uuid.UUID
	ConsumerID *uuid.UUID
}

func (r *Repository) CreateLink(ctx context.Context, link *models.Link) error {
	result := r.db.WithContext(ctx).Create(link)
	return translate(result.Error, "link", link.ID)
}

func (r *Repository) GetLink(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	var link models.Link
	result := r.db.WithContext(ctx).First(&link, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "link", id)
	}
	return &link, nil
}

// FindBlockingLink returns the link that prevents a new request for the
// pair: one that is PENDING, APPROVED or BLOCKED. It returns nil when the
// pair is free.
func (r *Repository) FindBlockingLink(ctx context.Context, supplierID, consumerID uuid.UUID) (*models.Link, error) {
	var link models.Link
	result := r.db.WithContext(ctx).
		Where("supplier_id = ? AND consumer_id = ? AND status IN ?", supplierID, consumerID,
			[]models.LinkStatus{models.LinkPending, models.LinkApproved, models.LinkBlocked}).
		Order("created_at DESC").
		Take(&link)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &link, nil
}

// HasApprovedLink reports whether the pair currently holds an APPROVED link.
func (r *Repository) HasApprovedLink(ctx context.Context, supplierID, consumerID uuid.UUID) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Link{}).
		Where("supplier_id = ? AND consumer_id = ? AND status = ?", supplierID, consumerID, models.LinkApproved).
		Count(&count)
	return count > 0, result.Error
}

// ApprovedSupplierIDs lists the suppliers the consumer is approved with.
func (r *Repository) ApprovedSupplierIDs(ctx context.Context, consumerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	result := r.db.WithContext(ctx).Model(&models.Link{}).
		Where("consumer_id = ? AND status = ?", consumerID, models.LinkApproved).
		Pluck("supplier_id", &ids)
	return ids, result.Error
}

func (r *Repository) ListLinks(ctx context.Context, filter LinkFilter) ([]models.Link, error) {
	query := r.db.WithContext(ctx).Model(&models.Link{})
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.ConsumerID != nil {
		query = query.Where("consumer_id = ?", *filter.ConsumerID)
	}
	var links []models.Link
	result := query.Order("created_at DESC").Find(&links)
	return links, result.Error
}

// UpdateLinkStatus moves the link from one status to another only if it is
// still in the expected status; otherwise it reports a conflict.
func (r *Repository) UpdateLinkStatus(ctx context.Context, id uuid.UUID, from, to models.LinkStatus, decidedBy uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Link{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"decided_by": decidedBy,
		})
	if result.Error != nil {
		return translate(result.Error, "link", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: link %s is no longer %s", e.ErrConflict, id, from)
	}
	return nil
}

// RemoveBlockedLink soft-deletes a BLOCKED link. The row stays for audit
// but no query sees it any more.
func (r *Repository) RemoveBlockedLink(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.LinkBlocked).
		Delete(&models.Link{})
	if result.Error != nil {
		return translate(result.Error, "link", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: link %s is no longer %s", e.ErrConflict, id, models.LinkBlocked)
	}
	return nil
}
