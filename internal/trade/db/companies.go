package db

import (
	"context"

	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	result := r.db.WithContext(ctx).Create(company)
	return translate(result.Error, "company", company.ID)
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	result := r.db.WithContext(ctx).First(&company, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "company", id)
	}
	return &company, nil
}

// ListSuppliers returns verified, active supplier companies ordered by name.
func (r *Repository) ListSuppliers(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	result := r.db.WithContext(ctx).
		Where("kind = ? AND verified = ? AND active = ?", models.CompanySupplier, true, true).
		Order("name").
		Find(&companies)
	return companies, result.Error
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Create(user)
	return translate(result.Error, "user", user.ID)
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error, "user", id)
	}
	return &user, nil
}
