package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/barista/services/barista/internal/conversation"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"

	defaultNATSURL          = "nats://localhost:4222"
	defaultMonitorInterval  = 3 * time.Minute
	defaultMonitorThreshold = 15 * time.Minute
)

// Settings is the typed view of the service configuration.
type Settings struct {
	Backend           string
	MongoTransactions bool

	NATSEnabled   bool
	StreamEnabled bool
	NATSURL       string

	GRPCEnabled bool

	InactivityTimeout time.Duration
	MonitorInterval   time.Duration
	MonitorThreshold  time.Duration
	ReportAging       bool

	SeedStations bool
}

func LoadSettings(config *apt.Config) (Settings, error) {
	s := Settings{
		Backend:           BackendMongo,
		NATSEnabled:       true,
		NATSURL:           defaultNATSURL,
		GRPCEnabled:       true,
		InactivityTimeout: conversation.DefaultInactivityTimeout,
		MonitorInterval:   defaultMonitorInterval,
		MonitorThreshold:  defaultMonitorThreshold,
		SeedStations:      true,
	}
	if config == nil {
		return s, nil
	}

	s.Backend = strings.ToLower(config.GetStringOrDef("db.backend", BackendMongo))
	if s.Backend != BackendMongo && s.Backend != BackendMemory {
		return s, fmt.Errorf("unknown db.backend %q", s.Backend)
	}

	s.MongoTransactions = flag(config, "db.mongo.transactions", false)
	s.NATSEnabled = flag(config, "nats.enabled", true)
	s.StreamEnabled = flag(config, "nats.stream.enabled", false)
	s.NATSURL = config.GetStringOrDef("nats.url", defaultNATSURL)
	s.GRPCEnabled = flag(config, "grpc.enabled", true)
	s.ReportAging = flag(config, "monitor.report_aging", false)
	s.SeedStations = flag(config, "seeding.stations", true)

	var err error
	if s.InactivityTimeout, err = duration(config, "conversation.inactivity_timeout", s.InactivityTimeout); err != nil {
		return s, err
	}
	if s.MonitorInterval, err = duration(config, "monitor.interval", s.MonitorInterval); err != nil {
		return s, err
	}
	if s.MonitorThreshold, err = duration(config, "monitor.threshold", s.MonitorThreshold); err != nil {
		return s, err
	}

	return s, nil
}

func flag(config *apt.Config, key string, def bool) bool {
	raw, _ := config.GetString(key)
	return parseFlag(raw, def)
}

func parseFlag(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

func duration(config *apt.Config, key string, def time.Duration) (time.Duration, error) {
	raw, _ := config.GetString(key)
	return parseDuration(key, raw, def)
}

func parseDuration(key, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}
