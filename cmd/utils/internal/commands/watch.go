package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/appetiteclub/apt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/pkg/notifystream"
)

const defaultGRPCAddr = "localhost:50051"

// Watch follows the support notification stream of a running barista
// service until ctx is cancelled.
func Watch(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	addr := config.GetStringOrDef("services.barista.grpc", defaultGRPCAddr)

	var filter notifystream.Filter
	if raw, _ := config.GetString("station"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid station %q: %w", raw, err)
		}
		filter.StationID = id
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create gRPC client: %w", err)
	}
	defer conn.Close()

	logger.Info("Watching support notifications", "addr", addr, "station", filter.StationID)

	err = notifystream.Watch(ctx, conn, filter, func(evt event.SupportNotificationEvent) error {
		fmt.Printf("%s [%s] %s\n", evt.OccurredAt.Format("15:04:05"), evt.Severity, evt.Message)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("notification stream: %w", err)
	}
	return nil
}
