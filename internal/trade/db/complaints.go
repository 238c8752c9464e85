package db

import (
	"context"
	"fmt"
	"time"

	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
)

// ComplaintFilter narrows ListComplaints to one side of the trade.
type ComplaintFilter struct {
	SupplierCompanyID *uuid.UUID
	ConsumerCompanyID *uuid.UUID
}

// ComplaintChange is the full post-transition state of the mutable
// complaint fields. A nil HandlerID clears the handler.
type ComplaintChange struct {
	Status           models.ComplaintStatus
	HandlerID        *uuid.UUID
	HandlerRole      *models.Role
	EscalationReason models.EscalationReason
	ResolvedAt       *time.Time
}

func (r *Repository) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	result := r.db.WithContext(ctx).Create(complaint)
	return translate(result.Error, "complaint", complaint.ID)
}

func (r *Repository) GetComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	result := r.db.WithContext(ctx).First(&complaint, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "complaint", id)
	}
	return &complaint, nil
}

func (r *Repository) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	query := r.db.WithContext(ctx).Model(&models.Complaint{})
	if filter.SupplierCompanyID != nil {
		query = query.Where("supplier_company_id = ?", *filter.SupplierCompanyID)
	}
	if filter.ConsumerCompanyID != nil {
		query = query.Where("consumer_company_id = ?", *filter.ConsumerCompanyID)
	}
	var complaints []models.Complaint
	result := query.Order("created_at DESC").Find(&complaints)
	return complaints, result.Error
}

// AssignComplaint sets the handler of an OPEN, unassigned complaint. A
// complaint that was assigned or moved on meanwhile is a conflict.
func (r *Repository) AssignComplaint(ctx context.Context, id, handlerID uuid.UUID, role models.Role) error {
	result := r.db.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ? AND status = ? AND handler_id IS NULL", id, models.ComplaintOpen).
		Updates(map[string]interface{}{
			"handler_id":   handlerID,
			"handler_role": role,
		})
	if result.Error != nil {
		return translate(result.Error, "complaint", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: complaint %s is already assigned or not open", e.ErrConflict, id)
	}
	return nil
}

// TransitionComplaint writes change only if the complaint is still in
// status from.
func (r *Repository) TransitionComplaint(ctx context.Context, id uuid.UUID, from models.ComplaintStatus, change ComplaintChange) error {
	updates := map[string]interface{}{
		"status":            change.Status,
		"handler_id":        nil,
		"handler_role":      nil,
		"escalation_reason": change.EscalationReason,
		"resolved_at":       nil,
	}
	if change.HandlerID != nil {
		updates["handler_id"] = *change.HandlerID
	}
	if change.HandlerRole != nil {
		updates["handler_role"] = *change.HandlerRole
	}
	if change.ResolvedAt != nil {
		updates["resolved_at"] = *change.ResolvedAt
	}

	result := r.db.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return translate(result.Error, "complaint", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: complaint %s is no longer %s", e.ErrConflict, id, from)
	}
	return nil
}
