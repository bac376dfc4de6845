package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/natheelic/iot-device-hub/internal/types"
	"go.uber.org/zap"
)

const profileColumns = `id, device_name, device_type, description, wifi_ssid, wifi_password,
	pin_config, sensor_config, program_template, is_active, created_at, updated_at`

// CreateProfile persists a new device profile and returns its assigned id.
// The device name must be unique among active profiles: the store checks
// first for a friendly error, and the partial unique index backs the check
// under concurrent creates (both paths surface ErrNameTaken).
func (p *PostgresClient) CreateProfile(ctx context.Context, profile *types.DeviceProfile) (int64, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM device_profiles WHERE device_name = $1 AND is_active
		)
	`, profile.DeviceName).Scan(&exists)
	if err != nil {
		p.logger.Error("Profile name check failed",
			zap.String("device_name", profile.DeviceName),
			zap.Error(err))
		return 0, fmt.Errorf("failed to check device name: %w", err)
	}
	if exists {
		return 0, ErrNameTaken
	}

	pinJSON, err := json.Marshal(profile.PinConfig)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal pin_config: %w", err)
	}
	sensorJSON, err := json.Marshal(profile.SensorConfig)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal sensor_config: %w", err)
	}

	template := profile.ProgramTemplate
	if template == "" {
		template = "basic_sensor"
	}

	err = p.pool.QueryRow(ctx, `
		INSERT INTO device_profiles
			(device_name, device_type, description, wifi_ssid, wifi_password,
			 pin_config, sensor_config, program_template)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, is_active, created_at, updated_at
	`, profile.DeviceName, string(profile.DeviceType), profile.Description,
		profile.WifiSSID, profile.WifiPassword, pinJSON, sensorJSON, template,
	).Scan(&profile.ID, &profile.IsActive, &profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrNameTaken
		}
		p.logger.Error("Profile insert failed",
			zap.String("device_name", profile.DeviceName),
			zap.Error(err))
		return 0, fmt.Errorf("failed to insert profile: %w", err)
	}

	profile.ProgramTemplate = template
	return profile.ID, nil
}

// GetProfile loads a profile by id, soft-deleted rows included.
func (p *PostgresClient) GetProfile(ctx context.Context, id int64) (*types.DeviceProfile, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM device_profiles
		WHERE id = $1
	`, id)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Error("Profile lookup failed", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load profile %d: %w", id, err)
	}
	return profile, nil
}

// GetProfileByName loads an active profile by its unique name.
func (p *PostgresClient) GetProfileByName(ctx context.Context, name string) (*types.DeviceProfile, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM device_profiles
		WHERE device_name = $1 AND is_active
	`, name)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Error("Profile lookup failed", zap.String("device_name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to load profile %q: %w", name, err)
	}
	return profile, nil
}

// ListProfiles returns profiles newest first. With activeOnly set,
// soft-deleted profiles are hidden (the default listing).
func (p *PostgresClient) ListProfiles(ctx context.Context, activeOnly bool) ([]types.DeviceProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM device_profiles`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		p.logger.Error("Profile list failed", zap.Error(err))
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]types.DeviceProfile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *profile)
	}

	return profiles, rows.Err()
}

// UpdateProfile applies a partial update to an active profile. Nil fields
// keep their stored value. Identity and device_type are never touched, and
// the `is_active` guard means an update can never resurrect a soft-deleted
// profile.
func (p *PostgresClient) UpdateProfile(ctx context.Context, id int64, upd types.ProfileUpdate) error {
	if upd.Empty() {
		// Nothing to change; still verify the target exists and is active.
		var exists bool
		err := p.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM device_profiles WHERE id = $1 AND is_active)
		`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check profile %d: %w", id, err)
		}
		if !exists {
			return ErrNotFound
		}
		return nil
	}

	sets := []string{"updated_at = now()"}
	args := []any{id}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Description != nil {
		appendSet("description", *upd.Description)
	}
	if upd.WifiSSID != nil {
		appendSet("wifi_ssid", *upd.WifiSSID)
	}
	if upd.WifiPassword != nil {
		appendSet("wifi_password", *upd.WifiPassword)
	}
	if upd.PinConfig != nil {
		pinJSON, err := json.Marshal(*upd.PinConfig)
		if err != nil {
			return fmt.Errorf("failed to marshal pin_config: %w", err)
		}
		appendSet("pin_config", pinJSON)
	}
	if upd.SensorConfig != nil {
		sensorJSON, err := json.Marshal(*upd.SensorConfig)
		if err != nil {
			return fmt.Errorf("failed to marshal sensor_config: %w", err)
		}
		appendSet("sensor_config", sensorJSON)
	}
	if upd.ProgramTemplate != nil {
		appendSet("program_template", *upd.ProgramTemplate)
	}

	query := `UPDATE device_profiles SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND is_active`

	result, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		p.logger.Error("Profile update failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update profile %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteProfile soft-deletes: the row stays, hidden from active listings.
func (p *PostgresClient) DeleteProfile(ctx context.Context, id int64) error {
	result, err := p.pool.Exec(ctx, `
		UPDATE device_profiles
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		p.logger.Error("Profile delete failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete profile %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanProfile(row pgx.Row) (*types.DeviceProfile, error) {
	var profile types.DeviceProfile
	var deviceType string
	var pinJSON, sensorJSON []byte

	err := row.Scan(
		&profile.ID,
		&profile.DeviceName,
		&deviceType,
		&profile.Description,
		&profile.WifiSSID,
		&profile.WifiPassword,
		&pinJSON,
		&sensorJSON,
		&profile.ProgramTemplate,
		&profile.IsActive,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.DeviceType = types.HardwareFamily(deviceType)

	if len(pinJSON) > 0 {
		if err := json.Unmarshal(pinJSON, &profile.PinConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pin_config: %w", err)
		}
	}
	if len(sensorJSON) > 0 {
		if err := json.Unmarshal(sensorJSON, &profile.SensorConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sensor_config: %w", err)
		}
	}

	return &profile, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
