// Command notifier consumes the status event stream and relays every event
// to the two companies it concerns. Delivery to the companies' channels is
// external; the relay resolves the recipients and logs the fan-out.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gartstein/linktrade/internal/trade/config"
	"github.com/gartstein/linktrade/internal/trade/db"
	"github.com/gartstein/linktrade/internal/trade/events"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyLookup resolves the companies named in an event.
type CompanyLookup interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

type relay struct {
	companies CompanyLookup
	logger    *zap.Logger
}

// handle fans event out to the supplier and the consumer company. An
// unknown company fails the event so it is redelivered.
func (r *relay) handle(ctx context.Context, event models.StatusEvent) error {
	for _, id := range []uuid.UUID{event.SupplierID, event.ConsumerID} {
		company, err := r.companies.GetCompany(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to resolve recipient %s: %w", id, err)
		}
		r.logger.Info("Relaying status event",
			zap.String("company_id", company.ID.String()),
			zap.String("company", company.Name),
			zap.String("entity_type", string(event.EntityType)),
			zap.String("entity_id", event.EntityID.String()),
			zap.String("new_status", event.NewStatus),
		)
	}
	return nil
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.Topic, logger)
	r := &relay{companies: repo, logger: logger.Named("relay")}
	consumer.RegisterHandler(r.handle)
	consumer.Start(ctx)

	logger.Info("Notifier running", zap.String("topic", cfg.Topic), zap.String("group", cfg.ConsumerGroup))
	<-consumer.Done()
	consumer.Close()
	logger.Info("Notifier stopped")
}
