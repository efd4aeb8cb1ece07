package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"

	"github.com/verdantio/greenhouse-core/internal/automation"
	"github.com/verdantio/greenhouse-core/internal/device"
	"github.com/verdantio/greenhouse-core/internal/infrastructure/config"
	"github.com/verdantio/greenhouse-core/internal/infrastructure/logging"
	"github.com/verdantio/greenhouse-core/internal/sensor"
)

// mockActuator records published commands.
type mockActuator struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (m *mockActuator) SendCommand(deviceType device.Type, activate bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := "off"
	if activate {
		state = "on"
	}
	m.calls = append(m.calls, string(deviceType)+":"+state)
	return m.err
}

// setupTestDB creates an in-memory SQLite database with the device tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE device_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			action TEXT NOT NULL,
			control_type TEXT NOT NULL,
			triggered_by TEXT NOT NULL,
			sensor_value REAL,
			success INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_device_history_device ON device_history(device_id, created_at DESC);

		CREATE TABLE device_states (
			device_id TEXT PRIMARY KEY,
			device_type TEXT NOT NULL,
			status INTEGER NOT NULL,
			last_command TEXT NOT NULL,
			control_mode TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
	`

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// seedStore fills a store with one device of each controlled type,
// everything inactive.
func seedStore(store *device.Store) {
	now := time.Now().UTC()
	for _, dt := range []device.Type{device.TypeLight, device.TypePump, device.TypeWindow, device.TypeDoor} {
		store.Seed(device.State{
			DeviceID:    string(dt),
			DeviceType:  dt,
			Status:      false,
			LastCommand: dt.ActionForStatus(false),
			ControlMode: device.ControlModeAuto,
			UpdatedAt:   now,
		})
	}
}

func testSettings() automation.Settings {
	return automation.Settings{
		Enabled: true,
		Temperature: automation.TemperatureRule{
			OpenTemp:        30,
			CloseTemp:       25,
			CooldownMinutes: 10,
		},
		Light:           automation.LightRule{TriggerValue: 0, CooldownMinutes: 10},
		Soil:            automation.SoilRule{TriggerValue: 0, CooldownMinutes: 15},
		Rain:            automation.RainRule{TriggerValue: 1, CooldownMinutes: 10},
		OverrideMinutes: 5,
	}
}

// testServer creates a Server wired to a real store, synchronizer and
// engine, with history backed by in-memory SQLite.
func testServer(t *testing.T) (*Server, *device.Store) {
	t.Helper()

	db := setupTestDB(t)
	store := device.NewStore()
	seedStore(store)

	history := device.NewSQLiteHistoryRepository(db)
	latest := device.NewSQLiteStateRepository(db)
	synchronizer := device.NewSynchronizer(store, &mockActuator{}, history, latest)
	engine := automation.NewEngine(testSettings(), store, synchronizer)

	ingestor := sensor.NewIngestor()
	ingestor.AddSink(engine)

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:       log,
		Store:        store,
		Synchronizer: synchronizer,
		Engine:       engine,
		History:      history,
		Ingestor:     ingestor,
		Version:      "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(context.Background())

	return srv, store
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if int(resp["devices"].(float64)) != 4 {
		t.Errorf("devices = %v, want 4", resp["devices"])
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

// ─── Device Endpoint Tests ─────────────────────────────────────────

func TestListDevices(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Devices []device.State `json:"devices"`
		Count   int            `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Count != 4 {
		t.Errorf("count = %d, want 4", resp.Count)
	}
}

func TestGetDevice(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/devices/window", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var state device.State
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if state.DeviceType != device.TypeWindow {
		t.Errorf("device_type = %q, want window", state.DeviceType)
	}
	if state.Status {
		t.Error("expected window to start closed")
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/devices/greenhouse-42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Control Endpoint Tests ────────────────────────────────────────

func TestControlDevice(t *testing.T) {
	srv, store := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/devices/window/control",
		strings.NewReader(`{"action": "open"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp controlResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !resp.State.Status {
		t.Error("expected window to be open after control")
	}
	if resp.State.ControlMode != device.ControlModeManual {
		t.Errorf("control_mode = %q, want manual", resp.State.ControlMode)
	}
	if resp.RequestID == "" {
		t.Error("expected a generated request_id")
	}
	if !resp.OverrideActive {
		t.Error("expected manual override to be active after control")
	}

	// The store reflects the change.
	state, err := store.Get("window")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !state.Status {
		t.Error("store not updated")
	}

	// The manual override suppresses automation for the device.
	if !srv.engine.OverrideActive("window") {
		t.Error("expected engine override for window")
	}
}

func TestControlDevice_IllegalAction(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	// "open" is not legal for an on/off device.
	req := httptest.NewRequest(http.MethodPost, "/api/devices/light/control",
		strings.NewReader(`{"action": "open"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var apiErr Error
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if apiErr.Code != ErrCodeValidation {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeValidation)
	}
}

func TestControlDevice_UnknownDevice(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/devices/heater/control",
		strings.NewReader(`{"action": "on"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestControlDevice_InvalidBody(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/devices/light/control",
		strings.NewReader(`{not json`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestControlDevice_RedundantSucceeds(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	// Pump starts off; commanding off again is a no-op but not an error.
	req := httptest.NewRequest(http.MethodPost, "/api/devices/pump/control",
		strings.NewReader(`{"action": "off"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp controlResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.State.Status {
		t.Error("pump should remain off")
	}
	// A redundant manual command still refreshes the override window.
	if !resp.OverrideActive {
		t.Error("expected override active after redundant manual command")
	}
}

// ─── History Endpoint Tests ────────────────────────────────────────

func TestDeviceHistory(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	// Two commands leave two history rows.
	for _, action := range []string{"on", "off"} {
		req := httptest.NewRequest(http.MethodPost, "/api/devices/pump/control",
			strings.NewReader(`{"action": "`+action+`"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("control %s status = %d; body: %s", action, w.Code, w.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/devices/pump/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		History []device.HistoryEntry `json:"history"`
		Count   int                   `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	// Newest first: the pump was turned off last.
	if resp.History[0].Action != device.ActionOff {
		t.Errorf("first action = %q, want off", resp.History[0].Action)
	}
	if resp.History[0].TriggeredBy != "user" {
		t.Errorf("triggered_by = %q, want user", resp.History[0].TriggeredBy)
	}
}

func TestDeviceHistory_BadLimit(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/devices/pump/history?limit=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeviceHistory_UnknownDevice(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/devices/heater/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Automation Endpoint Tests ─────────────────────────────────────

func TestGetAutomation(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/automation", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var settings automation.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &settings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !settings.Enabled {
		t.Error("expected automation enabled")
	}
	if settings.Temperature.OpenTemp != 30 {
		t.Errorf("open_temp = %v, want 30", settings.Temperature.OpenTemp)
	}
}

func TestUpdateAutomation_PartialMerge(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	// Only the enable flag is sent; thresholds must survive the update.
	req := httptest.NewRequest(http.MethodPut, "/api/automation",
		strings.NewReader(`{"enabled": false}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var settings automation.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &settings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if settings.Enabled {
		t.Error("expected automation disabled")
	}
	if settings.Temperature.OpenTemp != 30 || settings.Temperature.CloseTemp != 25 {
		t.Errorf("thresholds changed: %+v", settings.Temperature)
	}
	if settings.UpdatedAt.IsZero() {
		t.Error("expected updated_at to be stamped")
	}

	if srv.engine.Settings().Enabled {
		t.Error("engine settings not installed")
	}
}

func TestUpdateAutomation_InvertedBand(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPut, "/api/automation",
		strings.NewReader(`{"temperature": {"open_temp": 20, "close_temp": 25, "cooldown_minutes": 10}}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	// The engine keeps its previous settings.
	if srv.engine.Settings().Temperature.OpenTemp != 30 {
		t.Error("invalid settings were installed")
	}
}

func TestRunCheck(t *testing.T) {
	srv, store := testServer(t)
	router := srv.buildRouter()

	// Prime the engine with one hot temperature reading, suppressed by
	// nothing: the run-check below re-evaluates it as redundant because
	// Process already opened the window.
	srv.engine.Process(context.Background(), sensor.Reading{
		SensorType: sensor.TypeTemperature,
		Value:      32,
		ObservedAt: time.Now().UTC(),
	})

	state, err := store.Get("window")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !state.Status {
		t.Fatal("expected window opened by hot reading")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/automation/run-check", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Results []automation.CheckResult `json:"results"`
		Count   int                      `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Results[0].Outcome != automation.OutcomeRedundant {
		t.Errorf("outcome = %q, want %q", resp.Results[0].Outcome, automation.OutcomeRedundant)
	}
}

// ─── Sensor Ingestion Tests ────────────────────────────────────────

func TestSensorReading_Accepted(t *testing.T) {
	srv, store := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/sensors/readings",
		strings.NewReader(`{"sensor_type": "temperature", "value": 33.5}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	// The reading flowed through the ingestor into the engine.
	state, err := store.Get("window")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !state.Status {
		t.Error("expected hot reading to open the window")
	}
	if state.ControlMode != device.ControlModeAuto {
		t.Errorf("control_mode = %q, want auto", state.ControlMode)
	}
}

func TestSensorReading_MissingValue(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/sensors/readings",
		strings.NewReader(`{"sensor_type": "temperature"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSensorReading_UnknownType(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/sensors/readings",
		strings.NewReader(`{"sensor_type": "wind", "value": 3}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSensorReading_BinaryRange(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/sensors/readings",
		strings.NewReader(`{"sensor_type": "rain", "value": 0.5}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestSensorReading_BadTimestamp(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/sensors/readings",
		strings.NewReader(`{"sensor_type": "temperature", "value": 20, "timestamp": "yesterday"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── WebSocket Tests ───────────────────────────────────────────────

func TestWebSocket_SnapshotBeforeUpdates(t *testing.T) {
	srv, store := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	defer ws.Close()

	// The very first message must be the full state snapshot.
	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first WSMessage
	if err := ws.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Event != EventStateSync {
		t.Fatalf("first event = %q, want %q", first.Event, EventStateSync)
	}
	snapshot, ok := first.Payload.([]any)
	if !ok {
		t.Fatalf("snapshot payload type %T, want array", first.Payload)
	}
	if len(snapshot) != 4 {
		t.Errorf("snapshot devices = %d, want 4", len(snapshot))
	}

	// A state change broadcast arrives as an incremental update.
	state, err := store.Get("light")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	state.Status = true
	srv.hub.BroadcastStateUpdate(state)

	var second WSMessage
	if err := ws.ReadJSON(&second); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if second.Event != EventStateUpdate {
		t.Errorf("second event = %q, want %q", second.Event, EventStateUpdate)
	}

	if srv.hub.ClientCount() != 1 {
		t.Errorf("client count = %d, want 1", srv.hub.ClientCount())
	}
}

func TestHub_UnregisterTwiceSafe(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	client := &WSClient{hub: hub, send: make(chan []byte, 1)}
	hub.RegisterWithSnapshot(client, nil)

	hub.Unregister(client)
	hub.Unregister(client) // second call must not double-close

	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount())
	}
}

func TestHub_BroadcastNoClients(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	// Must not panic or block.
	hub.Broadcast(EventStateUpdate, map[string]string{"device_id": "light"})
}

func TestHub_SlowClientSkipped(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	// A client with a zero-capacity buffer is always "slow".
	client := &WSClient{hub: hub, send: make(chan []byte)}
	hub.mu.Lock()
	hub.clients[client] = struct{}{}
	hub.mu.Unlock()

	done := make(chan struct{})
	go func() {
		hub.Broadcast(EventStateUpdate, "payload")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on slow client")
	}
}
