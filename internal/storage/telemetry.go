package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/natheelic/iot-device-hub/internal/types"
	"go.uber.org/zap"
)

const telemetryColumns = `id, device_id, temperature, humidity, light, recorded_at, payload`

// InsertTelemetry stores one reading. The typed columns are extracted
// tolerantly (missing or malformed fields become NULL) and the full payload
// is kept verbatim as JSONB, so a bad field never blocks the insert. A
// non-nil error means the storage operation itself failed.
func (p *PostgresClient) InsertTelemetry(ctx context.Context, payload map[string]any) (int64, error) {
	reading := types.ExtractReading(payload)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var id int64
	err = p.pool.QueryRow(ctx, `
		INSERT INTO telemetry_readings (device_id, temperature, humidity, light, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, reading.DeviceID, reading.Temperature, reading.Humidity, reading.Light, payloadJSON).Scan(&id)

	if err != nil {
		p.logger.Error("Telemetry insert failed",
			zap.String("device_id", reading.DeviceID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to insert telemetry: %w", err)
	}

	return id, nil
}

// ListTelemetry returns up to limit readings, newest first, optionally
// filtered by device identifier. The device identifier is a free string,
// deliberately not validated against the profile registry.
func (p *PostgresClient) ListTelemetry(ctx context.Context, limit int, deviceID string) ([]types.TelemetryRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `SELECT ` + telemetryColumns + ` FROM telemetry_readings`
	args := []any{limit}
	if deviceID != "" {
		query += ` WHERE device_id = $2`
		args = append(args, deviceID)
	}
	query += ` ORDER BY recorded_at DESC, id DESC LIMIT $1`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		p.logger.Error("Telemetry query failed",
			zap.Int("limit", limit),
			zap.String("device_id", deviceID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	defer rows.Close()

	records := make([]types.TelemetryRecord, 0, limit)
	for rows.Next() {
		record, err := scanTelemetry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan telemetry: %w", err)
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// LatestTelemetry returns the newest reading, ErrNotFound when the table
// is empty.
func (p *PostgresClient) LatestTelemetry(ctx context.Context) (*types.TelemetryRecord, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+telemetryColumns+`
		FROM telemetry_readings
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`)

	record, err := scanTelemetry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Error("Latest telemetry query failed", zap.Error(err))
		return nil, fmt.Errorf("failed to load latest telemetry: %w", err)
	}

	return record, nil
}

// InsertSubmission stores a free-text submission with the sender address.
func (p *PostgresClient) InsertSubmission(ctx context.Context, content, remoteAddr string) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO text_submissions (content, remote_addr)
		VALUES ($1, $2)
		RETURNING id
	`, content, remoteAddr).Scan(&id)

	if err != nil {
		p.logger.Error("Submission insert failed",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err))
		return 0, fmt.Errorf("failed to insert submission: %w", err)
	}

	return id, nil
}

// StoreCounts are the aggregate row counts the health probe reports.
type StoreCounts struct {
	Profiles    int64 `json:"profiles"`
	Telemetry   int64 `json:"telemetry"`
	Submissions int64 `json:"submissions"`
}

// Counts runs the health probe round trip and returns aggregate counts.
func (p *PostgresClient) Counts(ctx context.Context) (StoreCounts, error) {
	var counts StoreCounts
	err := p.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM device_profiles WHERE is_active),
			(SELECT count(*) FROM telemetry_readings),
			(SELECT count(*) FROM text_submissions)
	`).Scan(&counts.Profiles, &counts.Telemetry, &counts.Submissions)

	if err != nil {
		p.logger.Error("Count query failed", zap.Error(err))
		return StoreCounts{}, fmt.Errorf("failed to query counts: %w", err)
	}

	return counts, nil
}

func scanTelemetry(row pgx.Row) (*types.TelemetryRecord, error) {
	var record types.TelemetryRecord
	var payloadJSON []byte

	err := row.Scan(
		&record.ID,
		&record.DeviceID,
		&record.Temperature,
		&record.Humidity,
		&record.Light,
		&record.RecordedAt,
		&payloadJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payloadJSON, &record.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return &record, nil
}
