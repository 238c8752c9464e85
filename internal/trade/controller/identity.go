package controller

import (
	"context"
	"fmt"

	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity turns an authenticated user id into the Actor every workflow
// operation takes.
type Identity struct {
	service
}

func NewIdentity(repo Repository, logger *zap.Logger) *Identity {
	return &Identity{service: newService(repo, nil, nil, logger, "identity")}
}

// ResolveActor loads the user and its company. An unknown user is NotFound;
// a deactivated user or company is Forbidden.
func (i *Identity) ResolveActor(ctx context.Context, userID uuid.UUID) (*models.Actor, error) {
	user, err := i.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, wrapInternal(err, "get user")
	}
	if !user.Active {
		return nil, fmt.Errorf("%w: user %s is deactivated", e.ErrForbidden, userID)
	}

	company, err := i.repo.GetCompany(ctx, user.CompanyID)
	if err != nil {
		return nil, wrapInternal(err, "get company")
	}
	if !company.Active {
		return nil, fmt.Errorf("%w: company %s is deactivated", e.ErrForbidden, company.ID)
	}

	return &models.Actor{
		UserID:      user.ID,
		Role:        user.Role,
		CompanyID:   company.ID,
		CompanyKind: company.Kind,
	}, nil
}
