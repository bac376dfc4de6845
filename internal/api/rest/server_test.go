package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/natheelic/iot-device-hub/internal/api/websocket"
	"github.com/natheelic/iot-device-hub/internal/codegen"
	"github.com/natheelic/iot-device-hub/internal/config"
	"github.com/natheelic/iot-device-hub/internal/interfaces"
	"github.com/natheelic/iot-device-hub/internal/storage"
	"github.com/natheelic/iot-device-hub/internal/types"
	"go.uber.org/zap"
)

// stubStore implements Store in memory and records what the handlers pass
// down so tests can assert on it.
type stubStore struct {
	createID  int64
	createErr error

	profile *types.DeviceProfile
	getErr  error

	profiles []types.DeviceProfile
	listErr  error

	updateErr error
	deleteErr error

	insertID  int64
	insertErr error

	records    []types.TelemetryRecord
	telemErr   error
	latest     *types.TelemetryRecord
	latestErr  error
	submitID   int64
	submitErr  error
	templates  []types.ProgramTemplate
	counts     storage.StoreCounts
	countsErr  error

	gotProfile *types.DeviceProfile
	gotName    string
	gotUpdate  types.ProfileUpdate
	gotPayload map[string]any
	gotLimit   int
	gotDevice  string
	gotContent string
	gotActive  bool
}

func (s *stubStore) CreateProfile(_ context.Context, p *types.DeviceProfile) (int64, error) {
	s.gotProfile = p
	return s.createID, s.createErr
}

func (s *stubStore) GetProfile(_ context.Context, id int64) (*types.DeviceProfile, error) {
	return s.profile, s.getErr
}

func (s *stubStore) GetProfileByName(_ context.Context, name string) (*types.DeviceProfile, error) {
	s.gotName = name
	return s.profile, s.getErr
}

func (s *stubStore) ListProfiles(_ context.Context, activeOnly bool) ([]types.DeviceProfile, error) {
	s.gotActive = activeOnly
	return s.profiles, s.listErr
}

func (s *stubStore) UpdateProfile(_ context.Context, id int64, upd types.ProfileUpdate) error {
	s.gotUpdate = upd
	return s.updateErr
}

func (s *stubStore) DeleteProfile(_ context.Context, id int64) error {
	return s.deleteErr
}

func (s *stubStore) InsertTelemetry(_ context.Context, payload map[string]any) (int64, error) {
	s.gotPayload = payload
	return s.insertID, s.insertErr
}

func (s *stubStore) ListTelemetry(_ context.Context, limit int, deviceID string) ([]types.TelemetryRecord, error) {
	s.gotLimit = limit
	s.gotDevice = deviceID
	return s.records, s.telemErr
}

func (s *stubStore) LatestTelemetry(_ context.Context) (*types.TelemetryRecord, error) {
	return s.latest, s.latestErr
}

func (s *stubStore) InsertSubmission(_ context.Context, content, remoteAddr string) (int64, error) {
	s.gotContent = content
	return s.submitID, s.submitErr
}

func (s *stubStore) ListTemplates(_ context.Context) ([]types.ProgramTemplate, error) {
	return s.templates, nil
}

func (s *stubStore) Counts(_ context.Context) (storage.StoreCounts, error) {
	return s.counts, s.countsErr
}

type stubLifecycle struct {
	cfg *config.Config
}

func (s *stubLifecycle) Config() *config.Config { return s.cfg }

func (s *stubLifecycle) GetCurrentStatus() interfaces.SystemStatus {
	return interfaces.SystemStatus{State: "RUNNING", ActiveProfiles: 2, TelemetryRecords: 10}
}

func (s *stubLifecycle) Shutdown(ctx context.Context) error { return nil }

func newTestServer(t *testing.T, store *stubStore) *Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{HTTPPort: 0},
		Ingest: config.IngestConfig{DefaultQueryLimit: 50, MaxQueryLimit: 1000},
	}
	logger := zap.NewNop()

	s, err := NewServer(cfg, store, codegen.New(), &stubLifecycle{cfg: cfg}, logger, websocket.NewHub(logger))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
	return out
}

// ==================== TELEMETRY ====================

func TestSubmitTelemetrySuccess(t *testing.T) {
	store := &stubStore{insertID: 7}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/telemetry",
		`{"temperature": 24.5, "device_id": "ESP32_TEST_001", "custom": "value"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["status"] != "success" || body["id"] != float64(7) {
		t.Errorf("unexpected body: %v", body)
	}
	if store.gotPayload["custom"] != "value" {
		t.Errorf("payload not passed through verbatim: %v", store.gotPayload)
	}
}

func TestSubmitTelemetryBadBody(t *testing.T) {
	s := newTestServer(t, &stubStore{})

	w := doJSON(t, s, http.MethodPost, "/api/v1/telemetry", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSubmitTelemetryStoreError(t *testing.T) {
	store := &stubStore{insertErr: context.DeadlineExceeded}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/telemetry", `{"temperature": 1}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestListTelemetryDefaultLimit(t *testing.T) {
	store := &stubStore{records: []types.TelemetryRecord{{ID: 1}, {ID: 2}}}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/api/v1/telemetry", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if store.gotLimit != 50 {
		t.Errorf("limit = %d, want the configured default 50", store.gotLimit)
	}
	if body := decodeBody(t, w); body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}
}

func TestListTelemetryLimitValidation(t *testing.T) {
	s := newTestServer(t, &stubStore{})

	for _, raw := range []string{"0", "-5", "abc"} {
		w := doJSON(t, s, http.MethodGet, "/api/v1/telemetry?limit="+raw, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", raw, w.Code)
		}
	}
}

func TestListTelemetryLimitCapAndFilter(t *testing.T) {
	store := &stubStore{}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/api/v1/telemetry?limit=99999&device_id=ESP32_TEST_001", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if store.gotLimit != 1000 {
		t.Errorf("limit = %d, want capped at 1000", store.gotLimit)
	}
	if store.gotDevice != "ESP32_TEST_001" {
		t.Errorf("device_id = %q, want ESP32_TEST_001", store.gotDevice)
	}
}

func TestLatestTelemetryNotFound(t *testing.T) {
	store := &stubStore{latestErr: storage.ErrNotFound}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/api/v1/telemetry/latest", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSubmitTextMissingContent(t *testing.T) {
	s := newTestServer(t, &stubStore{})

	w := doJSON(t, s, http.MethodPost, "/api/v1/submissions", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSubmitTextSuccess(t *testing.T) {
	store := &stubStore{submitID: 3}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/submissions", `{"content": "hello from the field"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if store.gotContent != "hello from the field" {
		t.Errorf("content = %q", store.gotContent)
	}
}

// ==================== DEVICE PROFILES ====================

func TestCreateProfileMissingFields(t *testing.T) {
	s := newTestServer(t, &stubStore{})

	// device_type is required by the schema.
	w := doJSON(t, s, http.MethodPost, "/api/v1/devices", `{"device_name": "Lonely"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestCreateProfileUnknownFamily(t *testing.T) {
	s := newTestServer(t, &stubStore{})

	w := doJSON(t, s, http.MethodPost, "/api/v1/devices",
		`{"device_name": "Weird", "device_type": "ARDUINO_UNO"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateProfileDuplicateName(t *testing.T) {
	store := &stubStore{createErr: storage.ErrNameTaken}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/devices",
		`{"device_name": "Greenhouse1", "device_type": "PICO_WH"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestCreateProfileSuccessWithWarnings(t *testing.T) {
	store := &stubStore{createID: 12}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/devices",
		`{"device_name": "Greenhouse1", "device_type": "PICO_WH",
		  "pin_config": {"temperature_pin": 2},
		  "sensor_config": {"temperature": true, "light": true}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["id"] != float64(12) {
		t.Errorf("id = %v, want 12", body["id"])
	}

	// light is enabled but has no pin assigned.
	warnings, _ := body["warnings"].([]any)
	if len(warnings) != 1 || warnings[0] != "light_pin" {
		t.Errorf("warnings = %v, want [light_pin]", body["warnings"])
	}

	if store.gotProfile == nil || store.gotProfile.DeviceType != types.FamilyPicoWH {
		t.Errorf("profile passed to store: %+v", store.gotProfile)
	}
}

func TestListProfilesActiveFlag(t *testing.T) {
	store := &stubStore{}
	s := newTestServer(t, store)

	doJSON(t, s, http.MethodGet, "/api/v1/devices", "")
	if !store.gotActive {
		t.Error("default listing should be active-only")
	}

	doJSON(t, s, http.MethodGet, "/api/v1/devices?all=true", "")
	if store.gotActive {
		t.Error("?all=true should include deactivated profiles")
	}
}

func TestGetProfileInvalidID(t *testing.T) {
	s := newTestServer(t, &stubStore{})

	for _, id := range []string{"abc", "0", "-3"} {
		w := doJSON(t, s, http.MethodGet, "/api/v1/devices/"+id, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("id=%s: status = %d, want 400", id, w.Code)
		}
	}
}

func TestGetProfileNotFound(t *testing.T) {
	store := &stubStore{getErr: storage.ErrNotFound}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/api/v1/devices/42", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetProfileByName(t *testing.T) {
	store := &stubStore{profile: &types.DeviceProfile{
		ID:         5,
		DeviceName: "Greenhouse1",
		DeviceType: types.FamilyPicoWH,
	}}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/api/v1/devices/by-name/Greenhouse1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if store.gotName != "Greenhouse1" {
		t.Errorf("name = %q, want Greenhouse1", store.gotName)
	}
	if body := decodeBody(t, w); body["device_name"] != "Greenhouse1" {
		t.Errorf("body = %v", body)
	}
}

func TestGetProfileByNameNotFound(t *testing.T) {
	store := &stubStore{getErr: storage.ErrNotFound}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/api/v1/devices/by-name/Missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	store := &stubStore{profile: &types.DeviceProfile{ID: 5, DeviceName: "N1", DeviceType: types.FamilyESP32}}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodPatch, "/api/v1/devices/5", `{"description": "moved to rack 3"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	if store.gotUpdate.Description == nil || *store.gotUpdate.Description != "moved to rack 3" {
		t.Errorf("description not forwarded: %+v", store.gotUpdate)
	}
	if store.gotUpdate.WifiSSID != nil || store.gotUpdate.PinConfig != nil {
		t.Errorf("absent fields must stay nil: %+v", store.gotUpdate)
	}
}

func TestUpdateProfileNotFound(t *testing.T) {
	store := &stubStore{updateErr: storage.ErrNotFound}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodPatch, "/api/v1/devices/99", `{"description": "x"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteProfile(t *testing.T) {
	s := newTestServer(t, &stubStore{})

	w := doJSON(t, s, http.MethodDelete, "/api/v1/devices/5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decodeBody(t, w); body["message"] != "Device deactivated successfully" {
		t.Errorf("body = %v", body)
	}
}

// ==================== CODE GENERATION ====================

func TestGenerateCodeEndpoint(t *testing.T) {
	store := &stubStore{profile: &types.DeviceProfile{
		ID:         5,
		DeviceName: "Greenhouse1",
		DeviceType: types.FamilyPicoWH,
		PinConfig:  types.PinConfig{types.RoleTemperaturePin: types.NumericPin(2)},
	}}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/api/v1/devices/5/code", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	code := w.Body.String()
	if !strings.Contains(code, `DEVICE_NAME = "Greenhouse1"`) || !strings.Contains(code, "TEMP_PIN = 2") {
		t.Error("generated code missing profile values")
	}
	if got := w.Header().Get("X-Template-Family"); got != "PICO_WH" {
		t.Errorf("X-Template-Family = %q, want PICO_WH", got)
	}
	if got := w.Header().Get("X-Template-Name"); got != "basic_sensor" {
		t.Errorf("X-Template-Name = %q, want basic_sensor", got)
	}
}

// An unknown template query falls back instead of failing.
func TestGenerateCodeUnknownTemplate(t *testing.T) {
	store := &stubStore{profile: &types.DeviceProfile{ID: 5, DeviceName: "N1", DeviceType: types.FamilyESP8266}}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/api/v1/devices/5/code?template=does_not_exist", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-Template-Family"); got != "ESP32" {
		t.Errorf("X-Template-Family = %q, want the fallback family ESP32", got)
	}
}

func TestGenerateUploaderEndpoint(t *testing.T) {
	store := &stubStore{profile: &types.DeviceProfile{ID: 5, DeviceName: "N1", DeviceType: types.FamilyESP32}}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/api/v1/devices/5/uploader", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	script := w.Body.String()
	if !strings.Contains(script, "ampy") || !strings.Contains(script, "DEVICE_CODE = ") {
		t.Error("uploader script missing expected content")
	}
}

// ==================== SYSTEM ====================

func TestHealthCheckHealthy(t *testing.T) {
	store := &stubStore{counts: storage.StoreCounts{Profiles: 2, Telemetry: 10, Submissions: 1}}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "healthy" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestHealthCheckUnhealthy(t *testing.T) {
	store := &stubStore{countsErr: context.DeadlineExceeded}
	s := newTestServer(t, store)

	w := doJSON(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "unhealthy" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestSystemStatus(t *testing.T) {
	s := newTestServer(t, &stubStore{})

	w := doJSON(t, s, http.MethodGet, "/api/v1/system/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decodeBody(t, w); body["state"] != "RUNNING" {
		t.Errorf("state = %v, want RUNNING", body["state"])
	}
}

// The URLs baked into generated firmware must keep working.
func TestLegacyRoutes(t *testing.T) {
	store := &stubStore{insertID: 1, latest: &types.TelemetryRecord{ID: 1}}
	s := newTestServer(t, store)

	if w := doJSON(t, s, http.MethodPost, "/api/esp32/data", `{"temperature": 20}`); w.Code != http.StatusOK {
		t.Errorf("POST /api/esp32/data: status = %d, want 200", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/esp32/data", ""); w.Code != http.StatusOK {
		t.Errorf("GET /api/esp32/data: status = %d, want 200", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/esp32/latest", ""); w.Code != http.StatusOK {
		t.Errorf("GET /api/esp32/latest: status = %d, want 200", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/health", ""); w.Code != http.StatusOK {
		t.Errorf("GET /api/health: status = %d, want 200", w.Code)
	}
}
