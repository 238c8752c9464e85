package controller

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gartstein/linktrade/internal/trade/db"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/metrics"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockRepository implements the Repository interface for testing. Methods
// without a function set panic through the nil embedded interface.
type MockRepository struct {
	Repository
	getUser         func(context.Context, uuid.UUID) (*models.User, error)
	getCompany      func(context.Context, uuid.UUID) (*models.Company, error)
	getOrder        func(context.Context, uuid.UUID) (*models.Order, error)
	listOrders      func(context.Context, db.OrderFilter) ([]models.Order, error)
	withTransaction func(context.Context, func(*db.Repository) error) error
}

func (m *MockRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.getUser(ctx, id)
}

func (m *MockRepository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return m.getCompany(ctx, id)
}

func (m *MockRepository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return m.getOrder(ctx, id)
}

func (m *MockRepository) ListOrders(ctx context.Context, filter db.OrderFilter) ([]models.Order, error) {
	return m.listOrders(ctx, filter)
}

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(*db.Repository) error) error {
	return m.withTransaction(ctx, fn)
}

func (m *MockRepository) Close() error {
	return nil
}

// MockProducer is a test double for the Kafka producer.
type MockProducer struct {
	mu     sync.Mutex
	events []models.StatusEvent
}

// Produce records the event.
func (m *MockProducer) Produce(event models.StatusEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockProducer) Events() []models.StatusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.StatusEvent(nil), m.events...)
}

func (m *MockProducer) Last() models.StatusEvent {
	events := m.Events()
	if len(events) == 0 {
		return models.StatusEvent{}
	}
	return events[len(events)-1]
}

// world is a supplier and two consumer companies with staff, on an
// in-memory store.
type world struct {
	engine   *Engine
	repo     *db.Repository
	producer *MockProducer
	metrics  *metrics.Metrics

	supplier      *models.Company
	consumer      *models.Company
	otherConsumer *models.Company

	owner      *models.Actor
	manager    *models.Actor
	sales      *models.Actor
	sales2     *models.Actor
	buyer      *models.Actor
	buyer2     *models.Actor
	otherBuyer *models.Actor
}

func newWorld(t *testing.T) *world {
	repo, err := db.OpenSQLite(":memory:")
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = repo.Close() })

	w := &world{
		repo:     repo,
		producer: &MockProducer{},
		metrics:  metrics.New("test"),
	}
	w.engine = NewEngine(repo, w.producer, w.metrics, zaptest.NewLogger(t))

	w.supplier = w.company(t, "Acme Supply", models.CompanySupplier, true)
	w.consumer = w.company(t, "Corner Shop", models.CompanyConsumer, true)
	w.otherConsumer = w.company(t, "Other Shop", models.CompanyConsumer, true)

	w.owner = w.user(t, w.supplier, models.RoleSupplierOwner)
	w.manager = w.user(t, w.supplier, models.RoleSupplierManager)
	w.sales = w.user(t, w.supplier, models.RoleSupplierSales)
	w.sales2 = w.user(t, w.supplier, models.RoleSupplierSales)
	w.buyer = w.user(t, w.consumer, models.RoleConsumer)
	w.buyer2 = w.user(t, w.consumer, models.RoleConsumer)
	w.otherBuyer = w.user(t, w.otherConsumer, models.RoleConsumer)
	return w
}

func (w *world) company(t *testing.T, name string, kind models.CompanyKind, verified bool) *models.Company {
	company := &models.Company{ID: uuid.New(), Name: name, Kind: kind, Verified: verified, Active: true}
	require.NoError(t, w.repo.CreateCompany(context.Background(), company))
	return company
}

func (w *world) user(t *testing.T, company *models.Company, role models.Role) *models.Actor {
	user := &models.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		Role:      role,
		CompanyID: company.ID,
		Active:    true,
	}
	require.NoError(t, w.repo.CreateUser(context.Background(), user))
	return &models.Actor{UserID: user.ID, Role: role, CompanyID: company.ID, CompanyKind: company.Kind}
}

func (w *world) product(t *testing.T, stock, minOrderQty int, price string) *models.Product {
	product, err := w.engine.CreateProduct(context.Background(), w.owner, &models.Product{
		Name:          "Product " + uuid.NewString()[:8],
		SKU:           uuid.NewString()[:12],
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		MinOrderQty:   minOrderQty,
	})
	require.NoError(t, err)
	return product
}

// approve links buyer's company with the supplier.
func (w *world) approve(t *testing.T, buyer *models.Actor) *models.Link {
	ctx := context.Background()
	link, err := w.engine.RequestLink(ctx, buyer, w.supplier.ID)
	require.NoError(t, err)
	link, err = w.engine.SetLinkStatus(ctx, w.owner, link.ID, models.LinkApproved)
	require.NoError(t, err)
	return link
}

func (w *world) stock(t *testing.T, productID uuid.UUID) int {
	product, err := w.repo.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return product.StockQuantity
}

func TestWrapInternal(t *testing.T) {
	assert.Nil(t, wrapInternal(nil, "anything"))

	notFound := e.ErrNotFound
	assert.Same(t, notFound, wrapInternal(notFound, "get order"))

	stockErr := &e.InsufficientStockError{ProductID: uuid.New(), Requested: 2, Available: 1}
	assert.Same(t, stockErr, wrapInternal(stockErr, "accept order"), "ledger failures pass through as conflicts")

	wrapped := wrapInternal(errors.New("connection reset"), "get order")
	assert.EqualError(t, wrapped, "failed to get order: connection reset")
}

func TestOrderWorkflow_WithMockRepository(t *testing.T) {
	orderID := uuid.New()
	supplierID := uuid.New()
	consumerID := uuid.New()
	actor := &models.Actor{UserID: uuid.New(), Role: models.RoleSupplierSales, CompanyID: supplierID, CompanyKind: models.CompanySupplier}

	tests := []struct {
		name          string
		mockSetup     func(*MockRepository)
		call          func(*OrderWorkflow) error
		expectedError error
		expectedText  string
	}{
		{
			name: "not found passes through",
			mockSetup: func(mr *MockRepository) {
				mr.getOrder = func(_ context.Context, _ uuid.UUID) (*models.Order, error) {
					return nil, e.ErrNotFound
				}
			},
			call: func(w *OrderWorkflow) error {
				_, err := w.GetOrder(context.Background(), actor, orderID)
				return err
			},
			expectedError: e.ErrNotFound,
		},
		{
			name: "illegal transition never opens a transaction",
			mockSetup: func(mr *MockRepository) {
				mr.getOrder = func(_ context.Context, _ uuid.UUID) (*models.Order, error) {
					return &models.Order{ID: orderID, SupplierID: supplierID, ConsumerID: consumerID, Status: models.OrderCompleted}, nil
				}
			},
			call: func(w *OrderWorkflow) error {
				_, err := w.TransitionOrder(context.Background(), actor, orderID, models.OrderShip)
				return err
			},
			expectedError: e.ErrInvalidTransition,
		},
		{
			name: "sales may not cancel",
			mockSetup: func(mr *MockRepository) {
				mr.getOrder = func(_ context.Context, _ uuid.UUID) (*models.Order, error) {
					return &models.Order{ID: orderID, SupplierID: supplierID, ConsumerID: consumerID, Status: models.OrderPending}, nil
				}
			},
			call: func(w *OrderWorkflow) error {
				_, err := w.TransitionOrder(context.Background(), actor, orderID, models.OrderCancel)
				return err
			},
			expectedError: e.ErrForbidden,
		},
		{
			name: "store failure is wrapped",
			mockSetup: func(mr *MockRepository) {
				mr.listOrders = func(_ context.Context, _ db.OrderFilter) ([]models.Order, error) {
					return nil, errors.New("database error")
				}
			},
			call: func(w *OrderWorkflow) error {
				_, err := w.ListOrders(context.Background(), actor)
				return err
			},
			expectedText: "failed to list orders: database error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			tt.mockSetup(mockRepo)
			producer := &MockProducer{}
			workflow := NewOrderWorkflow(mockRepo, producer, nil, zaptest.NewLogger(t))

			err := tt.call(workflow)

			require.Error(t, err)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			}
			if tt.expectedText != "" {
				assert.EqualError(t, err, tt.expectedText)
			}
			assert.Empty(t, producer.Events(), "failed operations must not publish")
		})
	}
}
