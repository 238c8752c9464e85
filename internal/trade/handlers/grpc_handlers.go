package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gartstein/linktrade/internal/trade/auth"
	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// WorkflowServiceName is the fully qualified gRPC service carrying the
// status transitions of links, orders and complaints.
const WorkflowServiceName = "linktrade.v1.WorkflowService"

// WorkflowServer is the gRPC surface of the status transitions. Requests and
// responses are google.protobuf.Struct values with the same field names as
// the JSON API.
type WorkflowServer interface {
	SetLinkStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	TransitionOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AssignComplaint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	EscalateComplaint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ResolveComplaint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// WorkflowHandler serves WorkflowServer on top of the engine. The caller is
// taken from the claims the auth interceptor stored in the context.
type WorkflowHandler struct {
	service TradeController
	logger  *zap.Logger
}

func NewWorkflowHandler(service TradeController, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		service: service,
		logger:  logger.Named("grpc_handler"),
	}
}

// SetLinkStatus expects {"link_id", "status"}.
func (h *WorkflowHandler) SetLinkStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := h.resolveActor(ctx)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	id, err := fieldID(req, "link_id")
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	target := models.LinkStatus(req.GetFields()["status"].GetStringValue())
	if !target.Valid() {
		return nil, h.mapServiceError(fmt.Errorf("%w: unknown link status %q", e.ErrInvalidInput, target))
	}

	link, err := h.service.SetLinkStatus(ctx, actor, id, target)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return transitionResult(link.ID, string(link.Status), link.UpdatedAt)
}

// TransitionOrder expects {"order_id", "status"} where status is the target
// order status.
func (h *WorkflowHandler) TransitionOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := h.resolveActor(ctx)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	id, err := fieldID(req, "order_id")
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	target := models.OrderStatus(req.GetFields()["status"].GetStringValue())
	if !target.Valid() {
		return nil, h.mapServiceError(fmt.Errorf("%w: unknown order status %q", e.ErrInvalidInput, target))
	}
	action, ok := models.OrderActionFor(target)
	if !ok {
		return nil, h.mapServiceError(fmt.Errorf("%w: no action leads to %s", e.ErrInvalidTransition, target))
	}

	order, err := h.service.TransitionOrder(ctx, actor, id, action)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return transitionResult(order.ID, string(order.Status), order.UpdatedAt)
}

// AssignComplaint expects {"complaint_id"}.
func (h *WorkflowHandler) AssignComplaint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.complaintTransition(ctx, req, func(actor *models.Actor, id uuid.UUID) (*models.Complaint, error) {
		return h.service.AssignComplaint(ctx, actor, id)
	})
}

// EscalateComplaint expects {"complaint_id"} and an optional
// "target_manager_id".
func (h *WorkflowHandler) EscalateComplaint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var target *uuid.UUID
	if _, ok := req.GetFields()["target_manager_id"]; ok {
		id, err := fieldID(req, "target_manager_id")
		if err != nil {
			return nil, h.mapServiceError(err)
		}
		target = &id
	}
	return h.complaintTransition(ctx, req, func(actor *models.Actor, id uuid.UUID) (*models.Complaint, error) {
		return h.service.EscalateComplaint(ctx, actor, id, target)
	})
}

// ResolveComplaint expects {"complaint_id"}.
func (h *WorkflowHandler) ResolveComplaint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.complaintTransition(ctx, req, func(actor *models.Actor, id uuid.UUID) (*models.Complaint, error) {
		return h.service.ResolveComplaint(ctx, actor, id)
	})
}

func (h *WorkflowHandler) complaintTransition(ctx context.Context, req *structpb.Struct, fn func(*models.Actor, uuid.UUID) (*models.Complaint, error)) (*structpb.Struct, error) {
	actor, err := h.resolveActor(ctx)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	id, err := fieldID(req, "complaint_id")
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	complaint, err := fn(actor, id)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return transitionResult(complaint.ID, string(complaint.Status), complaint.UpdatedAt)
}

func (h *WorkflowHandler) resolveActor(ctx context.Context) (*models.Actor, error) {
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

// mapServiceError maps engine errors onto gRPC status codes with the same
// classification the JSON API uses.
func (h *WorkflowHandler) mapServiceError(err error) error {
	httpStatus, body := classify(err)
	switch httpStatus {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return status.Error(codes.InvalidArgument, body.Message)
	case http.StatusUnauthorized:
		return status.Error(codes.Unauthenticated, body.Message)
	case http.StatusForbidden:
		return status.Error(codes.PermissionDenied, body.Message)
	case http.StatusNotFound:
		return status.Error(codes.NotFound, body.Message)
	case http.StatusConflict:
		return status.Error(codes.FailedPrecondition, body.Message)
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}

func fieldID(req *structpb.Struct, name string) (uuid.UUID, error) {
	raw := req.GetFields()[name].GetStringValue()
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s %q", errMalformed, name, raw)
	}
	return id, nil
}

func transitionResult(id uuid.UUID, newStatus string, updatedAt time.Time) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"id":         id.String(),
		"status":     newStatus,
		"updated_at": updatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func workflowMethod(name string, call func(WorkflowServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + WorkflowServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(WorkflowServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(WorkflowServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// workflowServiceDesc describes WorkflowServer for grpc.Server.RegisterService.
var workflowServiceDesc = grpc.ServiceDesc{
	ServiceName: WorkflowServiceName,
	HandlerType: (*WorkflowServer)(nil),
	Methods: []grpc.MethodDesc{
		workflowMethod("SetLinkStatus", WorkflowServer.SetLinkStatus),
		workflowMethod("TransitionOrder", WorkflowServer.TransitionOrder),
		workflowMethod("AssignComplaint", WorkflowServer.AssignComplaint),
		workflowMethod("EscalateComplaint", WorkflowServer.EscalateComplaint),
		workflowMethod("ResolveComplaint", WorkflowServer.ResolveComplaint),
	},
	Metadata: "linktrade/v1/workflow.proto",
}
