package interfaces

import (
	"context"

	"github.com/natheelic/iot-device-hub/internal/config"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State            string `json:"state"`
	ActiveProfiles   int64  `json:"active_profiles"`
	TelemetryRecords int64  `json:"telemetry_records"`
	WSClients        int    `json:"ws_clients"`
}

type LifecycleManager interface {
	Config() *config.Config
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
