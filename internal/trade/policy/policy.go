// Package policy is the single authorization table of the engine. It maps
// (action, role) to the relationships an actor must hold with the resource,
// and denies everything it does not list.
package policy

import (
	"fmt"

	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
)

// Action is an operation guarded by the policy.
type Action string

const (
	LinkRequest Action = "LINK_REQUEST"
	LinkApprove Action = "LINK_APPROVE"
	LinkReject  Action = "LINK_REJECT"
	LinkBlock   Action = "LINK_BLOCK"
	LinkUnblock Action = "LINK_UNBLOCK"
	LinkView    Action = "LINK_VIEW"

	CatalogView   Action = "CATALOG_VIEW"
	ProductManage Action = "PRODUCT_MANAGE"

	OrderCreate   Action = "ORDER_CREATE"
	OrderAccept   Action = "ORDER_ACCEPT"
	OrderReject   Action = "ORDER_REJECT"
	OrderShip     Action = "ORDER_SHIP"
	OrderComplete Action = "ORDER_COMPLETE"
	OrderCancel   Action = "ORDER_CANCEL"
	OrderView     Action = "ORDER_VIEW"

	ComplaintCreate           Action = "COMPLAINT_CREATE"
	ComplaintView             Action = "COMPLAINT_VIEW"
	ComplaintAssign           Action = "COMPLAINT_ASSIGN"
	ComplaintEscalate         Action = "COMPLAINT_ESCALATE"
	ComplaintReopen           Action = "COMPLAINT_REOPEN"
	ComplaintResolveOpen      Action = "COMPLAINT_RESOLVE_OPEN"
	ComplaintResolveEscalated Action = "COMPLAINT_RESOLVE_ESCALATED"
)

// Relationship is how the actor's company relates to a resource.
type Relationship string

const (
	OwnsAsSupplier Relationship = "OWNS_AS_SUPPLIER"
	OwnsAsConsumer Relationship = "OWNS_AS_CONSUMER"
	Unrelated      Relationship = "UNRELATED"
)

var (
	consumerSide = []Relationship{OwnsAsConsumer}
	supplierSide = []Relationship{OwnsAsSupplier}
)

// supplierStaff grants an action to every supplier role on its own side.
func supplierStaff() map[models.Role][]Relationship {
	return map[models.Role][]Relationship{
		models.RoleSupplierOwner:   supplierSide,
		models.RoleSupplierManager: supplierSide,
		models.RoleSupplierSales:   supplierSide,
	}
}

// supervisors grants an action to owners and managers only.
func supervisors() map[models.Role][]Relationship {
	return map[models.Role][]Relationship{
		models.RoleSupplierOwner:   supplierSide,
		models.RoleSupplierManager: supplierSide,
	}
}

// bothSides grants an action to the consumer and every supplier role.
func bothSides() map[models.Role][]Relationship {
	rules := supplierStaff()
	rules[models.RoleConsumer] = consumerSide
	return rules
}

// cancelRules lets the consumer cancel its own orders and supervisors
// cancel on the supplier side.
func cancelRules() map[models.Role][]Relationship {
	rules := supervisors()
	rules[models.RoleConsumer] = consumerSide
	return rules
}

var table = map[Action]map[models.Role][]Relationship{
	LinkRequest: {models.RoleConsumer: consumerSide},
	LinkApprove: supplierStaff(),
	LinkReject:  supplierStaff(),
	LinkBlock:   supplierStaff(),
	LinkUnblock: supplierStaff(),
	LinkView:    bothSides(),

	CatalogView:   bothSides(),
	ProductManage: supervisors(),

	OrderCreate:   {models.RoleConsumer: consumerSide},
	OrderAccept:   supplierStaff(),
	OrderReject:   supplierStaff(),
	OrderShip:     supplierStaff(),
	OrderComplete: supplierStaff(),
	OrderCancel:   cancelRules(),
	OrderView:     bothSides(),

	ComplaintCreate:           bothSides(),
	ComplaintView:             bothSides(),
	ComplaintAssign:           {models.RoleSupplierSales: supplierSide},
	ComplaintEscalate:         {models.RoleSupplierSales: supplierSide},
	ComplaintReopen:           {models.RoleConsumer: consumerSide},
	ComplaintResolveOpen:      supplierStaff(),
	ComplaintResolveEscalated: supervisors(),
}

// Allow reports whether role may perform action on a resource it holds the
// given relationship with. Unmapped combinations are denied.
func Allow(role models.Role, action Action, rel Relationship) bool {
	for _, allowed := range table[action][role] {
		if allowed == rel {
			return true
		}
	}
	return false
}

// Check is Allow for an actor, returning a wrapped ErrForbidden on denial.
func Check(actor *models.Actor, action Action, rel Relationship) error {
	if actor == nil || !Allow(actor.Role, action, rel) {
		return fmt.Errorf("%w: %s not permitted", e.ErrForbidden, action)
	}
	return nil
}

// RelationshipOf derives the actor's relationship to a resource jointly
// owned by supplierID and consumerID. The role must match the side: a
// consumer user is never treated as the supplier of a resource.
func RelationshipOf(actor *models.Actor, supplierID, consumerID uuid.UUID) Relationship {
	if actor == nil {
		return Unrelated
	}
	switch {
	case actor.Role.IsSupplierSide() && actor.CompanyKind == models.CompanySupplier && actor.CompanyID == supplierID:
		return OwnsAsSupplier
	case actor.Role == models.RoleConsumer && actor.CompanyKind == models.CompanyConsumer && actor.CompanyID == consumerID:
		return OwnsAsConsumer
	}
	return Unrelated
}

// OwnSide is the relationship an actor holds with resources of its own
// company when no counterparty is involved, such as its own catalog.
func OwnSide(actor *models.Actor) Relationship {
	if actor == nil {
		return Unrelated
	}
	return RelationshipOf(actor, actor.CompanyID, actor.CompanyID)
}

// OrderAction maps a workflow action to the policy action guarding it.
func OrderAction(action models.OrderAction) (Action, bool) {
	switch action {
	case models.OrderAccept:
		return OrderAccept, true
	case models.OrderReject:
		return OrderReject, true
	case models.OrderShip:
		return OrderShip, true
	case models.OrderComplete:
		return OrderComplete, true
	case models.OrderCancel:
		return OrderCancel, true
	}
	return "", false
}

// LinkAction maps a requested link status to the policy action guarding it.
func LinkAction(status models.LinkStatus) (Action, bool) {
	switch status {
	case models.LinkApproved:
		return LinkApprove, true
	case models.LinkRejected:
		return LinkReject, true
	case models.LinkBlocked:
		return LinkBlock, true
	}
	return "", false
}
