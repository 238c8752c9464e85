// Package controller implements the workflow engine (service layer): the
// Link gate, the catalog filter, the order and complaint state machines and
// supplier catalog management. Every operation takes the resolved actor,
// checks the policy table, runs its writes in one repository transaction and
// publishes a status event after commit.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/linktrade/internal/trade/db"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/metrics"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventProducer publishes committed status changes. Produce must not block.
type EventProducer interface {
	Produce(event models.StatusEvent)
}

// Repository defines the reads the engine performs outside a transaction.
// Writes always go through WithTransaction.
type Repository interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	ListSuppliers(ctx context.Context) ([]models.Company, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetLink(ctx context.Context, id uuid.UUID) (*models.Link, error)
	ListLinks(ctx context.Context, filter db.LinkFilter) ([]models.Link, error)
	HasApprovedLink(ctx context.Context, supplierID, consumerID uuid.UUID) (bool, error)
	ApprovedSupplierIDs(ctx context.Context, consumerID uuid.UUID) ([]uuid.UUID, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, filter db.ProductFilter) ([]models.Product, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter db.OrderFilter) ([]models.Order, error)
	GetComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	ListComplaints(ctx context.Context, filter db.ComplaintFilter) ([]models.Complaint, error)
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}

// service carries the dependencies shared by every workflow.
type service struct {
	repo     Repository
	producer EventProducer
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func newService(repo Repository, producer EventProducer, m *metrics.Metrics, logger *zap.Logger, name string) service {
	return service{
		repo:     repo,
		producer: producer,
		metrics:  m,
		logger:   logger.Named(name),
		now:      time.Now,
	}
}

// publish emits the status event of a committed change.
func (s *service) publish(entity models.EntityType, id uuid.UUID, status string, supplierID, consumerID uuid.UUID) {
	s.metrics.RecordTransition(entity, status)
	if s.producer == nil {
		return
	}
	s.producer.Produce(models.StatusEvent{
		EntityType: entity,
		EntityID:   id,
		NewStatus:  status,
		SupplierID: supplierID,
		ConsumerID: consumerID,
		OccurredAt: s.now().UTC(),
	})
}

// Engine is the facade the transports talk to.
type Engine struct {
	*Identity
	*LinkGate
	*CatalogFilter
	*ProductCatalog
	*OrderWorkflow
	*ComplaintWorkflow
}

// NewEngine wires every workflow onto one repository, producer and logger.
func NewEngine(repo Repository, producer EventProducer, m *metrics.Metrics, logger *zap.Logger) *Engine {
	links := NewLinkGate(repo, producer, m, logger)
	return &Engine{
		Identity:          NewIdentity(repo, logger),
		LinkGate:          links,
		CatalogFilter:     NewCatalogFilter(repo, links, logger),
		ProductCatalog:    NewProductCatalog(repo, m, logger),
		OrderWorkflow:     NewOrderWorkflow(repo, producer, m, logger),
		ComplaintWorkflow: NewComplaintWorkflow(repo, producer, m, logger),
	}
}

// wrapInternal wraps store failures that are not part of the error taxonomy
// and passes taxonomy errors through unchanged.
func wrapInternal(err error, action string) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		e.ErrNotFound, e.ErrInvalidInput, e.ErrForbidden, e.ErrConflict,
		e.ErrInvalidTransition, e.ErrUnauthenticated,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
