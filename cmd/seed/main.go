// Command seed creates a demo supplier and consumer with one user per role
// and a few products, then logs the user ids to request tokens for.
package main

import (
	"context"
	"errors"

	"github.com/gartstein/linktrade/internal/trade/config"
	"github.com/gartstein/linktrade/internal/trade/controller"
	"github.com/gartstein/linktrade/internal/trade/db"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type demoProduct struct {
	name, sku, price string
	stock, minQty    int
}

var demoProducts = []demoProduct{
	{"Arabica Beans 1kg", "COF-ARA-1", "18.90", 120, 5},
	{"Oat Milk 1L", "MLK-OAT-1", "2.35", 400, 12},
	{"Paper Cups 8oz (1000)", "CUP-8-1000", "41.00", 30, 1},
	{"Seasonal Syrup", "SYR-SEAS", "7.50", 0, 1},
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	repo, err := db.NewRepository(&db.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Path:     cfg.DBPath,
	})
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	if err := seed(context.Background(), repo, logger); err != nil {
		if errors.Is(err, e.ErrConflict) {
			logger.Warn("Demo data already present", zap.Error(err))
			return
		}
		logger.Fatal("Seeding failed", zap.Error(err))
	}
}

func seed(ctx context.Context, repo *db.Repository, logger *zap.Logger) error {
	supplier := &models.Company{ID: uuid.New(), Name: "Demo Roasters", Kind: models.CompanySupplier, Verified: true, Active: true}
	consumer := &models.Company{ID: uuid.New(), Name: "Demo Cafe", Kind: models.CompanyConsumer, Verified: true, Active: true}

	users := []struct {
		company *models.Company
		role    models.Role
		email   string
	}{
		{supplier, models.RoleSupplierOwner, "owner@roasters.example"},
		{supplier, models.RoleSupplierManager, "manager@roasters.example"},
		{supplier, models.RoleSupplierSales, "sales@roasters.example"},
		{consumer, models.RoleConsumer, "buyer@cafe.example"},
	}

	var owner *models.Actor
	err := repo.WithTransaction(ctx, func(tx *db.Repository) error {
		for _, company := range []*models.Company{supplier, consumer} {
			if err := tx.CreateCompany(ctx, company); err != nil {
				return err
			}
		}
		for _, u := range users {
			user := &models.User{ID: uuid.New(), Email: u.email, Role: u.role, CompanyID: u.company.ID, Active: true}
			if err := tx.CreateUser(ctx, user); err != nil {
				return err
			}
			if u.role == models.RoleSupplierOwner {
				owner = &models.Actor{UserID: user.ID, Role: user.Role, CompanyID: supplier.ID, CompanyKind: supplier.Kind}
			}
			logger.Info("Seeded user",
				zap.String("user_id", user.ID.String()),
				zap.String("email", user.Email),
				zap.String("role", string(user.Role)),
			)
		}
		return nil
	})
	if err != nil {
		return err
	}

	catalog := controller.NewProductCatalog(repo, nil, logger)
	for _, p := range demoProducts {
		product, err := catalog.CreateProduct(ctx, owner, &models.Product{
			Name:          p.name,
			SKU:           p.sku,
			Price:         decimal.RequireFromString(p.price),
			StockQuantity: p.stock,
			MinOrderQty:   p.minQty,
		})
		if err != nil {
			return err
		}
		logger.Info("Seeded product", zap.String("product_id", product.ID.String()), zap.String("sku", product.SKU))
	}

	logger.Info("Seed complete",
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("consumer_id", consumer.ID.String()),
	)
	return nil
}
