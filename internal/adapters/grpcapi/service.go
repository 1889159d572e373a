package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "phonebook.v1.ContactService"

// ContactServiceServer is the server API of phonebook.v1.ContactService.
// Requests and responses are google.protobuf.Struct values carrying the
// same JSON shapes as the REST API.
type ContactServiceServer interface {
	ListContacts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetContact(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateContact(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateContact(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteContact(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAllContacts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(ContactServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ContactServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("ListContacts", ContactServiceServer.ListContacts),
		methodDesc("GetContact", ContactServiceServer.GetContact),
		methodDesc("CreateContact", ContactServiceServer.CreateContact),
		methodDesc("UpdateContact", ContactServiceServer.UpdateContact),
		methodDesc("DeleteContact", ContactServiceServer.DeleteContact),
		methodDesc("DeleteAllContacts", ContactServiceServer.DeleteAllContacts),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "phonebook/v1/contacts.proto",
}

func RegisterContactServiceServer(s grpc.ServiceRegistrar, srv ContactServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ContactServiceServer), ctx, in)
			}

			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ContactServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
