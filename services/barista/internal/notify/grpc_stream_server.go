package notify

import (
	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/pkg/notifystream"
)

// StreamServer serves the broadcaster's notifications over a gRPC server
// stream, replaying the retained ones first.
type StreamServer struct {
	feed   *Broadcaster
	logger apt.Logger
}

func NewStreamServer(feed *Broadcaster, logger apt.Logger) *StreamServer {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &StreamServer{feed: feed, logger: logger}
}

// RegisterGRPCService registers this service with the gRPC server (apt.GRPCServiceRegistrar interface)
func (s *StreamServer) RegisterGRPCService(server *grpc.Server) {
	notifystream.Register(server, s)
}

func (s *StreamServer) StreamNotifications(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	filter := notifystream.FilterFromRequest(req)
	subscriberID := uuid.New().String()

	s.logger.Info("new notification stream subscriber", "subscriber_id", subscriberID, "station_filter", filter.StationID)

	notifications := s.feed.Subscribe(subscriberID)
	defer func() {
		s.feed.Unsubscribe(subscriberID)
		s.logger.Info("notification stream subscriber disconnected", "subscriber_id", subscriberID)
	}()

	for _, evt := range s.feed.Recent() {
		if !filter.Match(evt) {
			continue
		}
		if err := s.send(stream, evt); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-notifications:
			if !ok {
				return nil
			}
			if !filter.Match(evt) {
				continue
			}
			if err := s.send(stream, evt); err != nil {
				return err
			}
		}
	}
}

func (s *StreamServer) send(stream grpc.ServerStream, evt event.SupportNotificationEvent) error {
	msg, err := notifystream.Encode(evt)
	if err != nil {
		s.logger.Error("cannot encode notification", "order", evt.OrderNumber, "error", err)
		return nil
	}
	if err := stream.SendMsg(msg); err != nil {
		s.logger.Errorf("failed to send notification: %v", err)
		return err
	}
	return nil
}
