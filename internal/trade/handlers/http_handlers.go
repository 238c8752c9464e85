package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gartstein/linktrade/internal/trade/auth"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/metrics"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; the largest legitimate body is an order.
const maxBodyBytes = 1 << 20

// TradeController defines the engine operations the HTTP handlers invoke.
type TradeController interface {
	ResolveActor(ctx context.Context, userID uuid.UUID) (*models.Actor, error)

	RequestLink(ctx context.Context, actor *models.Actor, supplierID uuid.UUID) (*models.Link, error)
	SetLinkStatus(ctx context.Context, actor *models.Actor, linkID uuid.UUID, status models.LinkStatus) (*models.Link, error)
	UnblockLink(ctx context.Context, actor *models.Actor, linkID uuid.UUID) error
	ListLinks(ctx context.Context, actor *models.Actor) ([]models.Link, error)
	ListSuppliers(ctx context.Context, actor *models.Actor) ([]models.Company, error)

	VisibleProducts(ctx context.Context, actor *models.Actor, supplierFilter *uuid.UUID) ([]models.Product, error)
	GetProduct(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, actor *models.Actor, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, actor *models.Actor, update *models.ProductUpdate) (*models.Product, error)

	CreateOrder(ctx context.Context, actor *models.Actor, supplierID uuid.UUID, lines []models.OrderLine) (*models.Order, error)
	TransitionOrder(ctx context.Context, actor *models.Actor, orderID uuid.UUID, action models.OrderAction) (*models.Order, error)
	GetOrder(ctx context.Context, actor *models.Actor, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, actor *models.Actor) ([]models.Order, error)

	CreateComplaint(ctx context.Context, actor *models.Actor, orderID uuid.UUID, description string) (*models.Complaint, error)
	AssignComplaint(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Complaint, error)
	EscalateComplaint(ctx context.Context, actor *models.Actor, id uuid.UUID, targetManager *uuid.UUID) (*models.Complaint, error)
	ResolveComplaint(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Complaint, error)
	ListComplaints(ctx context.Context, actor *models.Actor) ([]models.Complaint, error)
}

// actorHandler is a route body that runs on behalf of a resolved actor.
type actorHandler func(w http.ResponseWriter, r *http.Request, actor *models.Actor, params map[string]string) error

// TradeHandler translates HTTP requests into engine calls and engine
// results into JSON responses.
type TradeHandler struct {
	service  TradeController
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewTradeHandler(service TradeController, m *metrics.Metrics, logger *zap.Logger) *TradeHandler {
	return &TradeHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  m,
		logger:   logger.Named("http_handler"),
	}
}

// Register mounts every route on mux.
func (h *TradeHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method string
		path   string
		fn     actorHandler
	}{
		{http.MethodPost, "/v1/links", h.requestLink},
		{http.MethodGet, "/v1/links", h.listLinks},
		{http.MethodPut, "/v1/links/{id}/status", h.setLinkStatus},
		{http.MethodPost, "/v1/links/{id}/unblock", h.unblockLink},
		{http.MethodGet, "/v1/suppliers", h.listSuppliers},
		{http.MethodGet, "/v1/catalog", h.visibleProducts},
		{http.MethodGet, "/v1/products/{id}", h.getProduct},
		{http.MethodPost, "/v1/products", h.createProduct},
		{http.MethodPatch, "/v1/products/{id}", h.updateProduct},
		{http.MethodPost, "/v1/orders", h.createOrder},
		{http.MethodGet, "/v1/orders", h.listOrders},
		{http.MethodGet, "/v1/orders/{id}", h.getOrder},
		{http.MethodPut, "/v1/orders/{id}/status", h.transitionOrder},
		{http.MethodPost, "/v1/complaints", h.createComplaint},
		{http.MethodGet, "/v1/complaints", h.listComplaints},
		{http.MethodPut, "/v1/complaints/{id}/assign", h.assignComplaint},
		{http.MethodPut, "/v1/complaints/{id}/escalate", h.escalateComplaint},
		{http.MethodPut, "/v1/complaints/{id}/resolve", h.resolveComplaint},
	}
	for _, route := range routes {
		if err := mux.HandlePath(route.method, route.path, h.withActor(route.method, route.path, route.fn)); err != nil {
			return fmt.Errorf("%s %s: %w", route.method, route.path, err)
		}
	}

	if err := mux.HandlePath(http.MethodGet, "/healthz", h.instrument(http.MethodGet, "/healthz", h.healthz)); err != nil {
		return err
	}
	return mux.HandlePath(http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		h.metrics.Handler().ServeHTTP(w, r)
	})
}

// pathParamsKey carries gateway path parameters through the plain
// http.Handler instrumentation chain.
type pathParamsKey struct{}

func (h *TradeHandler) instrument(method, route string, fn runtime.HandlerFunc) runtime.HandlerFunc {
	wrapped := h.metrics.Instrument(method, route, func(w http.ResponseWriter, r *http.Request) {
		params, _ := r.Context().Value(pathParamsKey{}).(map[string]string)
		fn(w, r, params)
	})
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		wrapped(w, r.WithContext(context.WithValue(r.Context(), pathParamsKey{}, params)))
	}
}

// withActor resolves the token subject into an Actor before running fn and
// maps any error fn returns onto the response.
func (h *TradeHandler) withActor(method, route string, fn actorHandler) runtime.HandlerFunc {
	return h.instrument(method, route, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		actor, err := h.resolveActor(r.Context())
		if err == nil {
			err = fn(w, r, actor, params)
		}
		if err != nil {
			h.mapServiceError(w, err)
		}
	})
}

func (h *TradeHandler) resolveActor(ctx context.Context) (*models.Actor, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrUnauthenticated, err)
	}
	actor, err := h.service.ResolveActor(ctx, userID)
	if errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user %s", e.ErrUnauthenticated, userID)
	}
	return actor, err
}

func (h *TradeHandler) healthz(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TradeHandler) requestLink(w http.ResponseWriter, r *http.Request, actor *models.Actor, _ map[string]string) error {
	var req linkRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	link, err := h.service.RequestLink(r.Context(), actor, uuid.MustParse(req.SupplierID))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toLinkResponse(link))
	return nil
}

func (h *TradeHandler) listLinks(w http.ResponseWriter, r *http.Request, actor *models.Actor, _ map[string]string) error {
	links, err := h.service.ListLinks(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(links, toLinkResponse))
	return nil
}

func (h *TradeHandler) setLinkStatus(w http.ResponseWriter, r *http.Request, actor *models.Actor, params map[string]string) error {
	id, err := pathID(params)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	status := models.LinkStatus(req.Status)
	if !status.Valid() {
		return fmt.Errorf("%w: unknown link status %q", e.ErrInvalidInput, req.Status)
	}
	link, err := h.service.SetLinkStatus(r.Context(), actor, id, status)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toLinkResponse(link))
	return nil
}

func (h *TradeHandler) unblockLink(w http.ResponseWriter, r *http.Request, actor *models.Actor, params map[string]string) error {
	id, err := pathID(params)
	if err != nil {
		return err
	}
	if err := h.service.UnblockLink(r.Context(), actor, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *TradeHandler) listSuppliers(w http.ResponseWriter, r *http.Request, actor *models.Actor, _ map[string]string) error {
	suppliers, err := h.service.ListSuppliers(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(suppliers, toCompanyResponse))
	return nil
}

func (h *TradeHandler) visibleProducts(w http.ResponseWriter, r *http.Request, actor *models.Actor, _ map[string]string) error {
	var filter *uuid.UUID
	if raw := r.URL.Query().Get("supplier_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: invalid supplier_id", errMalformed)
		}
		filter = &id
	}
	products, err := h.service.VisibleProducts(r.Context(), actor, filter)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(products, toProductResponse))
	return nil
}

func (h *TradeHandler) getProduct(w http.ResponseWriter, r *http.Request, actor *models.Actor, params map[string]string) error {
	id, err := pathID(params)
	if err != nil {
		return err
	}
	product, err := h.service.GetProduct(r.Context(), actor, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
	return nil
}

func (h *TradeHandler) createProduct(w http.ResponseWriter, r *http.Request, actor *models.Actor, _ map[string]string) error {
	var req productRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	product, err := h.service.CreateProduct(r.Context(), actor, req.toModel())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
	return nil
}

func (h *TradeHandler) updateProduct(w http.ResponseWriter, r *http.Request, actor *models.Actor, params map[string]string) error {
	id, err := pathID(params)
	if err != nil {
		return err
	}
	var req productPatch
	if err := h.decode(r, &req); err != nil {
		return err
	}
	product, err := h.service.UpdateProduct(r.Context(), actor, req.toUpdate(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
	return nil
}

func (h *TradeHandler) createOrder(w http.ResponseWriter, r *http.Request, actor *models.Actor, _ map[string]string) error {
	var req orderRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	order, err := h.service.CreateOrder(r.Context(), actor, uuid.MustParse(req.SupplierID), req.lines())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
	return nil
}

func (h *TradeHandler) listOrders(w http.ResponseWriter, r *http.Request, actor *models.Actor, _ map[string]string) error {
	orders, err := h.service.ListOrders(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(orders, toOrderResponse))
	return nil
}

func (h *TradeHandler) getOrder(w http.ResponseWriter, r *http.Request, actor *models.Actor, params map[string]string) error {
	id, err := pathID(params)
	if err != nil {
		return err
	}
	order, err := h.service.GetOrder(r.Context(), actor, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
	return nil
}

func (h *TradeHandler) transitionOrder(w http.ResponseWriter, r *http.Request, actor *models.Actor, params map[string]string) error {
	id, err := pathID(params)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	target := models.OrderStatus(req.Status)
	if !target.Valid() {
		return fmt.Errorf("%w: unknown order status %q", e.ErrInvalidInput, req.Status)
	}
	action, ok := models.OrderActionFor(target)
	if !ok {
		return fmt.Errorf("%w: no action leads to %s", e.ErrInvalidTransition, target)
	}
	order, err := h.service.TransitionOrder(r.Context(), actor, id, action)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
	return nil
}

func (h *TradeHandler) createComplaint(w http.ResponseWriter, r *http.Request, actor *models.Actor, _ map[string]string) error {
	var req complaintRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	complaint, err := h.service.CreateComplaint(r.Context(), actor, uuid.MustParse(req.OrderID), req.Description)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toComplaintResponse(complaint))
	return nil
}

func (h *TradeHandler) listComplaints(w http.ResponseWriter, r *http.Request, actor *models.Actor, _ map[string]string) error {
	complaints, err := h.service.ListComplaints(r.Context(), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mapSlice(complaints, toComplaintResponse))
	return nil
}

func (h *TradeHandler) assignComplaint(w http.ResponseWriter, r *http.Request, actor *models.Actor, params map[string]string) error {
	return h.complaintTransition(w, r, params, func(id uuid.UUID) (*models.Complaint, error) {
		return h.service.AssignComplaint(r.Context(), actor, id)
	})
}

func (h *TradeHandler) escalateComplaint(w http.ResponseWriter, r *http.Request, actor *models.Actor, params map[string]string) error {
	var req escalateRequest
	if err := h.decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return h.complaintTransition(w, r, params, func(id uuid.UUID) (*models.Complaint, error) {
		return h.service.EscalateComplaint(r.Context(), actor, id, req.target())
	})
}

func (h *TradeHandler) resolveComplaint(w http.ResponseWriter, r *http.Request, actor *models.Actor, params map[string]string) error {
	return h.complaintTransition(w, r, params, func(id uuid.UUID) (*models.Complaint, error) {
		return h.service.ResolveComplaint(r.Context(), actor, id)
	})
}

func (h *TradeHandler) complaintTransition(w http.ResponseWriter, _ *http.Request, params map[string]string, fn func(uuid.UUID) (*models.Complaint, error)) error {
	id, err := pathID(params)
	if err != nil {
		return err
	}
	complaint, err := fn(id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toComplaintResponse(complaint))
	return nil
}

// decode reads a JSON body into dst and validates it. Syntax errors are
// malformed requests; failed validation rules are invalid input.
func (h *TradeHandler) decode(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", e.ErrInvalidInput, validationMessage(err))
	}
	return nil
}

func pathID(params map[string]string) (uuid.UUID, error) {
	id, err := uuid.Parse(params["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", errMalformed, params["id"])
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func mapSlice[T any, R any](items []T, convert func(*T) R) []R {
	out := make([]R, 0, len(items))
	for i := range items {
		out = append(out, convert(&items[i]))
	}
	return out
}
