package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kvetinski/phonebook/internal/domain"
	contactsvc "github.com/kvetinski/phonebook/internal/service/contact"
)

type Server struct {
	svc    *contactsvc.Service
	logger *slog.Logger
}

var _ ContactServiceServer = (*Server)(nil)

func NewServer(svc *contactsvc.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{svc: svc, logger: logger}
}

func (s *Server) ListContacts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	contacts, err := s.svc.List(ctx)
	if err != nil {
		return nil, s.mapDomainError(err)
	}

	return toStruct(map[string]any{"contacts": contacts})
}

func (s *Server) GetContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}

	c, err := s.svc.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapDomainError(err)
	}

	return toStruct(c)
}

func (s *Server) CreateContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in domain.ContactInput
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	c, err := s.svc.Create(ctx, in)
	if err != nil {
		return nil, s.mapDomainError(err)
	}

	return toStruct(c)
}

type updateRequest struct {
	ID string `json:"id"`
	domain.ContactPatch
}

func (s *Server) UpdateContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}

	var in updateRequest
	if err = fromStruct(req, &in); err != nil {
		return nil, err
	}

	c, err := s.svc.Update(ctx, id, in.ContactPatch)
	if err != nil {
		return nil, s.mapDomainError(err)
	}

	return toStruct(c)
}

func (s *Server) DeleteContact(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}

	res, err := s.svc.Delete(ctx, id)
	if err != nil {
		return nil, s.mapDomainError(err)
	}

	return toStruct(map[string]any{"success": true, "id": res.ID})
}

func (s *Server) DeleteAllContacts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	n, err := s.svc.DeleteAll(ctx)
	if err != nil {
		return nil, s.mapDomainError(err)
	}

	return toStruct(map[string]any{"success": true, "count": n})
}

func requireID(req *structpb.Struct) (string, error) {
	id := req.GetFields()["id"].GetStringValue()
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "contact id is required")
	}

	return id, nil
}

func (s *Server) mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidContact):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrContactNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		s.logger.Error("grpc call failed", "error", err)
		return status.Error(codes.Internal, "internal server error")
	}
}

// toStruct converts v through its JSON form so gRPC and REST share field names.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}

	out := new(structpb.Struct)
	if err = protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}

	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}

	if err = json.Unmarshal(b, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}

	return nil
}
