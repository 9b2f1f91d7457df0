// Package notifystream is the gRPC server-streaming contract for the support
// notification feed. Messages travel as google.protobuf.Struct so both ends
// share the JSON field names of event.SupportNotificationEvent.
package notifystream

import (
	"context"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/appetiteclub/barista/pkg/event"
)

const (
	ServiceName = "barista.support.v1.NotificationStream"
	streamName  = "StreamNotifications"
	FullMethod  = "/" + ServiceName + "/" + streamName

	fieldStationID = "station_id"
)

// Server is implemented by the notification stream service.
type Server interface {
	StreamNotifications(req *structpb.Struct, stream grpc.ServerStream) error
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    streamName,
			Handler:       streamNotificationsHandler,
			ServerStreams: true,
		},
	},
}

func streamNotificationsHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(Server).StreamNotifications(req, stream)
}

func Register(registrar grpc.ServiceRegistrar, srv Server) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// Filter narrows the stream. A zero StationID receives every station.
type Filter struct {
	StationID int
}

func (f Filter) Request() *structpb.Struct {
	fields := map[string]*structpb.Value{}
	if f.StationID != 0 {
		fields[fieldStationID] = structpb.NewNumberValue(float64(f.StationID))
	}
	return &structpb.Struct{Fields: fields}
}

func FilterFromRequest(req *structpb.Struct) Filter {
	return Filter{StationID: int(req.GetFields()[fieldStationID].GetNumberValue())}
}

func (f Filter) Match(evt event.SupportNotificationEvent) bool {
	return f.StationID == 0 || evt.StationID == f.StationID
}

func Encode(evt event.SupportNotificationEvent) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"event_type":   evt.EventType,
		"occurred_at":  evt.OccurredAt.UTC().Format(time.RFC3339Nano),
		"order_number": evt.OrderNumber,
		"message":      evt.Message,
		"severity":     evt.Severity,
		"reason":       evt.Reason,
		fieldStationID: evt.StationID,
	})
}

func Decode(msg *structpb.Struct) event.SupportNotificationEvent {
	fields := msg.GetFields()
	occurredAt, _ := time.Parse(time.RFC3339Nano, fields["occurred_at"].GetStringValue())
	return event.SupportNotificationEvent{
		EventType:   fields["event_type"].GetStringValue(),
		OccurredAt:  occurredAt,
		OrderNumber: fields["order_number"].GetStringValue(),
		Message:     fields["message"].GetStringValue(),
		Severity:    fields["severity"].GetStringValue(),
		Reason:      fields["reason"].GetStringValue(),
		StationID:   int(fields[fieldStationID].GetNumberValue()),
	}
}

// Watch subscribes to the feed and calls fn for every notification until the
// server ends the stream, ctx is cancelled or fn returns an error.
func Watch(ctx context.Context, conn grpc.ClientConnInterface, filter Filter, fn func(event.SupportNotificationEvent) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := conn.NewStream(ctx, &ServiceDesc.Streams[0], FullMethod)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(filter.Request()); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := fn(Decode(msg)); err != nil {
			return err
		}
	}
}
