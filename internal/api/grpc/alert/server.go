package alert

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
	"github.com/oshokin/alert-hub/internal/responder"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	GetAlert(ctx context.Context, id string) (domain.Alert, error)
	ListAlerts(ctx context.Context, since time.Time) ([]domain.Alert, error)
	ListAlertsSince(ctx context.Context, id string) ([]domain.Alert, error)
	RespondTo(ctx context.Context, id string, action responder.Action, content any) (bool, error)
	RaiseAlert(ctx context.Context, source string, params domain.Params) (string, error)
}

// Server implements the AlertService gRPC API.
type Server struct {
	// service provides the business logic for alert operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetAlert implements AlertServiceServer.
func (s *Server) GetAlert(ctx context.Context, id *wrapperspb.StringValue) (*structpb.Struct, error) {
	if id.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "alert id is required")
	}

	a, err := s.service.GetAlert(ctx, id.GetValue())
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	result, err := ToStruct(NewView(a))
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return result, nil
}

// ListAlerts implements AlertServiceServer. A missing timestamp lists
// everything.
func (s *Server) ListAlerts(ctx context.Context, since *timestamppb.Timestamp) (*structpb.ListValue, error) {
	var from time.Time

	if since != nil && (since.GetSeconds() != 0 || since.GetNanos() != 0) {
		if err := since.CheckValid(); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid timestamp: %v", err)
		}

		from = since.AsTime()
	}

	alerts, err := s.service.ListAlerts(ctx, from)
	if err != nil && len(alerts) == 0 {
		return nil, toStatus(ctx, err)
	}

	if err != nil {
		logger.WarnKV(ctx, "Listing alerts partially failed", "error", err)
	}

	return s.list(ctx, alerts)
}

// ListAlertsSince implements AlertServiceServer.
func (s *Server) ListAlertsSince(ctx context.Context, id *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if id.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "alert id is required")
	}

	alerts, err := s.service.ListAlertsSince(ctx, id.GetValue())
	if err != nil && len(alerts) == 0 {
		return nil, toStatus(ctx, err)
	}

	if err != nil {
		logger.WarnKV(ctx, "Listing alerts partially failed", "error", err)
	}

	return s.list(ctx, alerts)
}

// RespondTo implements AlertServiceServer.
func (s *Server) RespondTo(ctx context.Context, request *structpb.Struct) (*wrapperspb.BoolValue, error) {
	if request == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	var body RespondRequest
	if err := FromStruct(request, &body); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if body.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "alert id is required")
	}

	action, err := responder.ParseAction(body.Action)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	applied, err := s.service.RespondTo(ctx, body.ID, action, body.Content)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return wrapperspb.Bool(applied), nil
}

// RaiseAlert implements AlertServiceServer.
func (s *Server) RaiseAlert(ctx context.Context, request *structpb.Struct) (*wrapperspb.StringValue, error) {
	if request == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	var body RaiseRequest
	if err := FromStruct(request, &body); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if body.Source == "" || body.Type == "" {
		return nil, status.Error(codes.InvalidArgument, "source and type are required")
	}

	id, err := s.service.RaiseAlert(ctx, body.Source, body.Params)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return wrapperspb.String(id), nil
}

func (s *Server) list(ctx context.Context, alerts []domain.Alert) (*structpb.ListValue, error) {
	result, err := ToList(alerts)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return result, nil
}

// toStatus maps domain errors to gRPC codes. Errors that already carry a
// status pass through.
func toStatus(ctx context.Context, err error) error {
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnresolvedSource):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidIdentity), errors.Is(err, domain.ErrUnresolvedAlert):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInvalidResponseState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.ErrorKV(ctx, "Alert service call failed", "error", err)

		return status.Error(codes.Internal, "internal error")
	}
}
