package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/natheelic/iot-device-hub/internal/types"
	"go.uber.org/zap"
)

// Bootstrap creates the tables and indexes the stores rely on. The
// statements are independent: a failure in one does not stop the rest, the
// joined error reports everything that went wrong.
func (p *PostgresClient) Bootstrap(ctx context.Context) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"device_profiles", `
			CREATE TABLE IF NOT EXISTS device_profiles (
				id BIGSERIAL PRIMARY KEY,
				device_name TEXT NOT NULL,
				device_type TEXT NOT NULL DEFAULT 'ESP32',
				description TEXT NOT NULL DEFAULT '',
				wifi_ssid TEXT NOT NULL DEFAULT '',
				wifi_password TEXT NOT NULL DEFAULT '',
				pin_config JSONB NOT NULL DEFAULT '{}',
				sensor_config JSONB NOT NULL DEFAULT '{}',
				program_template TEXT NOT NULL DEFAULT 'basic_sensor',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`},
		// Uniqueness among active profiles only: a soft-deleted profile
		// releases its name. The store checks before inserting, but under
		// concurrent creates only this index is authoritative.
		{"device_profiles_active_name_idx", `
			CREATE UNIQUE INDEX IF NOT EXISTS device_profiles_active_name_idx
			ON device_profiles (device_name) WHERE is_active
		`},
		{"telemetry_readings", `
			CREATE TABLE IF NOT EXISTS telemetry_readings (
				id BIGSERIAL PRIMARY KEY,
				device_id TEXT NOT NULL DEFAULT 'unknown',
				temperature DOUBLE PRECISION,
				humidity DOUBLE PRECISION,
				light DOUBLE PRECISION,
				recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				payload JSONB NOT NULL
			)
		`},
		{"telemetry_readings_recorded_idx", `
			CREATE INDEX IF NOT EXISTS telemetry_readings_recorded_idx
			ON telemetry_readings (recorded_at DESC)
		`},
		{"text_submissions", `
			CREATE TABLE IF NOT EXISTS text_submissions (
				id BIGSERIAL PRIMARY KEY,
				content TEXT NOT NULL,
				remote_addr TEXT NOT NULL DEFAULT '',
				submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`},
		{"program_templates", `
			CREATE TABLE IF NOT EXISTS program_templates (
				id BIGSERIAL PRIMARY KEY,
				template_name TEXT NOT NULL,
				device_type TEXT NOT NULL DEFAULT 'ESP32',
				description TEXT NOT NULL DEFAULT '',
				required_libraries JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (template_name, device_type)
			)
		`},
	}

	var errs []error
	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt.sql); err != nil {
			p.logger.Error("Schema bootstrap statement failed",
				zap.String("statement", stmt.name),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("bootstrap %s: %w", stmt.name, err))
		}
	}

	return errors.Join(errs...)
}

// SeedTemplates inserts template metadata rows, skipping names that are
// already present. Individual failures do not stop the remaining seeds.
func (p *PostgresClient) SeedTemplates(ctx context.Context, templates []types.ProgramTemplate) error {
	var errs []error
	for _, tpl := range templates {
		libs, err := json.Marshal(tpl.RequiredLibraries)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal libraries for %s: %w", tpl.Name, err))
			continue
		}

		_, err = p.pool.Exec(ctx, `
			INSERT INTO program_templates (template_name, device_type, description, required_libraries)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (template_name, device_type) DO NOTHING
		`, tpl.Name, string(tpl.DeviceType), tpl.Description, libs)

		if err != nil {
			p.logger.Error("Template seed failed",
				zap.String("template", tpl.Name),
				zap.String("device_type", string(tpl.DeviceType)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("seed template %s: %w", tpl.Name, err))
		}
	}

	return errors.Join(errs...)
}

// ListTemplates returns the registered template metadata.
func (p *PostgresClient) ListTemplates(ctx context.Context) ([]types.ProgramTemplate, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT template_name, device_type, description, required_libraries
		FROM program_templates
		ORDER BY device_type, template_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	templates := make([]types.ProgramTemplate, 0)
	for rows.Next() {
		var tpl types.ProgramTemplate
		var deviceType string
		var libsJSON []byte

		if err := rows.Scan(&tpl.Name, &deviceType, &tpl.Description, &libsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		tpl.DeviceType = types.HardwareFamily(deviceType)

		if err := json.Unmarshal(libsJSON, &tpl.RequiredLibraries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal libraries: %w", err)
		}

		templates = append(templates, tpl)
	}

	return templates, rows.Err()
}
