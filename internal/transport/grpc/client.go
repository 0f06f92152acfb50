package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// EventsClient calls clubplanner.v1.EventsService over a connection. Every
// call is sent with the JSON content-subtype.
type EventsClient struct {
	cc grpc.ClientConnInterface
}

func NewEventsClient(cc grpc.ClientConnInterface) *EventsClient {
	return &EventsClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *EventsClient) CreateEvent(ctx context.Context, in *CreateEventRequest, opts ...grpc.CallOption) (*CreateEventResponse, error) {
	return invoke[CreateEventResponse](ctx, c.cc, "CreateEvent", in, opts)
}

func (c *EventsClient) GetEvent(ctx context.Context, in *GetEventRequest, opts ...grpc.CallOption) (*GetEventResponse, error) {
	return invoke[GetEventResponse](ctx, c.cc, "GetEvent", in, opts)
}

func (c *EventsClient) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c.cc, "ListEvents", in, opts)
}

func (c *EventsClient) ListTrash(ctx context.Context, in *ListTrashRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c.cc, "ListTrash", in, opts)
}

func (c *EventsClient) ListUnallocatedEvents(ctx context.Context, in *ListUnallocatedEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c.cc, "ListUnallocatedEvents", in, opts)
}

func (c *EventsClient) ListSeriesEvents(ctx context.Context, in *ListSeriesEventsRequest, opts ...grpc.CallOption) (*ListSeriesEventsResponse, error) {
	return invoke[ListSeriesEventsResponse](ctx, c.cc, "ListSeriesEvents", in, opts)
}

func (c *EventsClient) UpdateEvent(ctx context.Context, in *UpdateEventRequest, opts ...grpc.CallOption) (*UpdateEventResponse, error) {
	return invoke[UpdateEventResponse](ctx, c.cc, "UpdateEvent", in, opts)
}

func (c *EventsClient) DeleteEvent(ctx context.Context, in *DeleteEventRequest, opts ...grpc.CallOption) (*DeleteEventResponse, error) {
	return invoke[DeleteEventResponse](ctx, c.cc, "DeleteEvent", in, opts)
}

func (c *EventsClient) RestoreEvent(ctx context.Context, in *RestoreEventRequest, opts ...grpc.CallOption) (*RestoreEventResponse, error) {
	return invoke[RestoreEventResponse](ctx, c.cc, "RestoreEvent", in, opts)
}

func (c *EventsClient) PreviewOccurrences(ctx context.Context, in *PreviewOccurrencesRequest, opts ...grpc.CallOption) (*PreviewOccurrencesResponse, error) {
	return invoke[PreviewOccurrencesResponse](ctx, c.cc, "PreviewOccurrences", in, opts)
}
