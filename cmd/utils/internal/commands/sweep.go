package commands

import (
	"context"
	"fmt"
	"net/url"

	"github.com/appetiteclub/apt"
)

const defaultServiceURL = "http://localhost:8080"

// Sweep asks a running barista service to run the stuck order sweep now.
func Sweep(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	serviceURL := config.GetStringOrDef("services.barista.url", defaultServiceURL)

	client := apt.NewServiceClient(serviceURL)
	if client == nil {
		return fmt.Errorf("failed to create barista service client")
	}

	path := "/sweeps"
	if threshold, _ := config.GetString("threshold"); threshold != "" {
		path += "?threshold=" + url.QueryEscape(threshold)
	}

	resp, err := client.Request(ctx, "POST", path, nil)
	if err != nil {
		return fmt.Errorf("run sweep: %w", err)
	}

	report, ok := resp.Data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid response format")
	}

	logger.Info("Sweep finished",
		"checked", report["checked"],
		"healthy", report["healthy"],
		"repaired", report["repaired"],
		"failed", report["failed"],
	)
	return nil
}
