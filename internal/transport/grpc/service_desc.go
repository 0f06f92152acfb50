package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const EventsServiceName = "clubplanner.v1.EventsService"

type EventsServiceServer interface {
	CreateEvent(context.Context, *CreateEventRequest) (*CreateEventResponse, error)
	GetEvent(context.Context, *GetEventRequest) (*GetEventResponse, error)
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
	ListTrash(context.Context, *ListTrashRequest) (*ListEventsResponse, error)
	ListUnallocatedEvents(context.Context, *ListUnallocatedEventsRequest) (*ListEventsResponse, error)
	ListSeriesEvents(context.Context, *ListSeriesEventsRequest) (*ListSeriesEventsResponse, error)
	UpdateEvent(context.Context, *UpdateEventRequest) (*UpdateEventResponse, error)
	DeleteEvent(context.Context, *DeleteEventRequest) (*DeleteEventResponse, error)
	RestoreEvent(context.Context, *RestoreEventRequest) (*RestoreEventResponse, error)
	PreviewOccurrences(context.Context, *PreviewOccurrencesRequest) (*PreviewOccurrencesResponse, error)
}

var EventsServiceDesc = grpc.ServiceDesc{
	ServiceName: EventsServiceName,
	HandlerType: (*EventsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateEvent", Handler: unaryHandler("CreateEvent", EventsServiceServer.CreateEvent)},
		{MethodName: "GetEvent", Handler: unaryHandler("GetEvent", EventsServiceServer.GetEvent)},
		{MethodName: "ListEvents", Handler: unaryHandler("ListEvents", EventsServiceServer.ListEvents)},
		{MethodName: "ListTrash", Handler: unaryHandler("ListTrash", EventsServiceServer.ListTrash)},
		{MethodName: "ListUnallocatedEvents", Handler: unaryHandler("ListUnallocatedEvents", EventsServiceServer.ListUnallocatedEvents)},
		{MethodName: "ListSeriesEvents", Handler: unaryHandler("ListSeriesEvents", EventsServiceServer.ListSeriesEvents)},
		{MethodName: "UpdateEvent", Handler: unaryHandler("UpdateEvent", EventsServiceServer.UpdateEvent)},
		{MethodName: "DeleteEvent", Handler: unaryHandler("DeleteEvent", EventsServiceServer.DeleteEvent)},
		{MethodName: "RestoreEvent", Handler: unaryHandler("RestoreEvent", EventsServiceServer.RestoreEvent)},
		{MethodName: "PreviewOccurrences", Handler: unaryHandler("PreviewOccurrences", EventsServiceServer.PreviewOccurrences)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clubplanner/v1/events.proto",
}

func RegisterEventsServiceServer(s grpc.ServiceRegistrar, srv EventsServiceServer) {
	s.RegisterService(&EventsServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + EventsServiceName + "/" + method
}

// unaryHandler builds the Handler of a grpc.MethodDesc for one RPC.
func unaryHandler[Req, Resp any](method string, call func(EventsServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	full := fullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EventsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: full,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EventsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
