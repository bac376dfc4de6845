package rest

import (
	"context"

	"github.com/natheelic/iot-device-hub/internal/storage"
	"github.com/natheelic/iot-device-hub/internal/types"
)

// Store is the slice of the storage layer the REST handlers consume.
// *storage.PostgresClient satisfies it; tests substitute a stub.
type Store interface {
	// Device profiles
	CreateProfile(ctx context.Context, profile *types.DeviceProfile) (int64, error)
	GetProfile(ctx context.Context, id int64) (*types.DeviceProfile, error)
	GetProfileByName(ctx context.Context, name string) (*types.DeviceProfile, error)
	ListProfiles(ctx context.Context, activeOnly bool) ([]types.DeviceProfile, error)
	UpdateProfile(ctx context.Context, id int64, upd types.ProfileUpdate) error
	DeleteProfile(ctx context.Context, id int64) error

	// Telemetry and submissions
	InsertTelemetry(ctx context.Context, payload map[string]any) (int64, error)
	ListTelemetry(ctx context.Context, limit int, deviceID string) ([]types.TelemetryRecord, error)
	LatestTelemetry(ctx context.Context) (*types.TelemetryRecord, error)
	InsertSubmission(ctx context.Context, content, remoteAddr string) (int64, error)

	// Template metadata and health
	ListTemplates(ctx context.Context) ([]types.ProgramTemplate, error)
	Counts(ctx context.Context) (storage.StoreCounts, error)
}
