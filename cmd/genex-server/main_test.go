package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phetsims/gene-expression-basics/internal/genex"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(NewLogger("error"))
	t.Cleanup(srv.Close)
	return srv
}

func createTestSim(t *testing.T, srv *Server, id genex.SimulationID) *genex.Simulation {
	t.Helper()
	if err := srv.manager.CreateSimulation(id, genex.DefaultParameters()); err != nil {
		t.Fatalf("Failed to create simulation: %v", err)
	}
	sim, exists := srv.manager.GetSimulation(id)
	if !exists {
		t.Fatal("Simulation not found after creation")
	}
	return sim
}

func TestExtractSimID(t *testing.T) {
	tests := []struct {
		path     string
		wantID   genex.SimulationID
		wantRest string
	}{
		{"/sim/abc/tick", "abc", "/tick"},
		{"/sim/abc", "abc", ""},
		{"/sim/abc/snapshot", "abc", "/snapshot"},
		{"/other/abc", "", ""},
		{"/sim/", "", ""},
	}

	for _, tt := range tests {
		gotID, gotRest := extractSimID(tt.path)
		if gotID != tt.wantID || gotRest != tt.wantRest {
			t.Errorf("extractSimID(%q) = (%q, %q), want (%q, %q)",
				tt.path, gotID, gotRest, tt.wantID, tt.wantRest)
		}
	}
}

func TestServer_HandleParams_CreateAndUpdate(t *testing.T) {
	srv := newTestServer(t)

	params := genex.DefaultParameters()
	body, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("Failed to marshal parameters: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/sim/test-sim/params", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleParams(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	sim, exists := srv.manager.GetSimulation("test-sim")
	if !exists {
		t.Fatal("Expected simulation to be created")
	}

	// Posting again with changed values should update in place
	params.TranslationRate = 123
	body, _ = json.Marshal(params)
	req = httptest.NewRequest(http.MethodPost, "/sim/test-sim/params", bytes.NewReader(body))
	w = httptest.NewRecorder()
	srv.handleParams(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on update, got %d: %s", w.Code, w.Body.String())
	}
	if got := sim.Params().TranslationRate; got != 123 {
		t.Errorf("Expected updated TranslationRate 123, got %g", got)
	}
}

func TestServer_HandleParams_InvalidBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sim/test-sim/params", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	srv.handleParams(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_HandleTickAndState(t *testing.T) {
	srv := newTestServer(t)
	sim := createTestSim(t, srv, "test-sim")

	sim.SpawnStrand(genex.Vector2{X: 0, Y: 0}, 600)

	req := httptest.NewRequest(http.MethodPost, "/sim/test-sim/tick?dt=0.1", nil)
	w := httptest.NewRecorder()
	srv.handleTick(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if sim.TickCount() != 1 {
		t.Errorf("Expected 1 tick, got %d", sim.TickCount())
	}

	req = httptest.NewRequest(http.MethodGet, "/sim/test-sim/state", nil)
	w = httptest.NewRecorder()
	srv.handleState(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var state genex.StateView
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if len(state.Strands) != 1 {
		t.Errorf("Expected 1 strand in state, got %d", len(state.Strands))
	}
}

func TestServer_HandleTick_InvalidDt(t *testing.T) {
	srv := newTestServer(t)
	createTestSim(t, srv, "test-sim")

	req := httptest.NewRequest(http.MethodPost, "/sim/test-sim/tick?dt=-1", nil)
	w := httptest.NewRecorder()
	srv.handleTick(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_HandleAddBiomolecule(t *testing.T) {
	srv := newTestServer(t)
	sim := createTestSim(t, srv, "test-sim")

	for _, kind := range []string{"ribosome", "polymerase", "destroyer"} {
		body, _ := json.Marshal(addBiomoleculeRequest{
			Kind:     kind,
			Position: genex.Vector2{X: 10, Y: 20},
		})
		req := httptest.NewRequest(http.MethodPost, "/sim/test-sim/biomolecule", bytes.NewReader(body))
		w := httptest.NewRecorder()
		srv.handleAddBiomolecule(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200 for kind %s, got %d: %s", kind, w.Code, w.Body.String())
		}

		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		if resp["id"] == "" {
			t.Errorf("Expected non-empty id for kind %s", kind)
		}
	}

	state := sim.State()
	if len(state.Biomolecules) != 3 {
		t.Errorf("Expected 3 biomolecules, got %d", len(state.Biomolecules))
	}

	// Unknown kind is rejected
	body, _ := json.Marshal(addBiomoleculeRequest{Kind: "mitochondrion"})
	req := httptest.NewRequest(http.MethodPost, "/sim/test-sim/biomolecule", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleAddBiomolecule(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown kind, got %d", w.Code)
	}
}

func TestServer_HandleSaveAndGetSnapshot(t *testing.T) {
	srv := newTestServer(t)
	tmpDir := t.TempDir()
	srv.SetSnapshotDir(tmpDir)

	sim := createTestSim(t, srv, "test-sim")
	sim.SpawnStrand(genex.Vector2{X: 0, Y: 0}, 600)
	for i := 0; i < 5; i++ {
		sim.Step(0.1)
	}

	req := httptest.NewRequest(http.MethodPost, "/sim/test-sim/snapshot", nil)
	w := httptest.NewRecorder()
	srv.handleSaveSnapshot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response["status"])
	}

	expectedPath := filepath.Join(tmpDir, "test-sim.snapshot.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Expected snapshot file to exist at %s", expectedPath)
	}

	// Fetch it back through the GET handler
	req = httptest.NewRequest(http.MethodGet, "/sim/test-sim/snapshot", nil)
	w = httptest.NewRecorder()
	srv.handleGetSnapshot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
	}

	snap, err := genex.DecodeSnapshotJSON(w.Body.Bytes())
	if err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if snap.SimulationID != "test-sim" {
		t.Errorf("Expected SimulationID 'test-sim', got '%s'", snap.SimulationID)
	}
	if len(snap.Strands) != 1 {
		t.Errorf("Expected 1 strand in snapshot, got %d", len(snap.Strands))
	}
}

func TestServer_HandleGetSnapshot_NotFound(t *testing.T) {
	srv := newTestServer(t)
	srv.SetSnapshotDir(t.TempDir())
	createTestSim(t, srv, "test-sim")

	req := httptest.NewRequest(http.MethodGet, "/sim/test-sim/snapshot", nil)
	w := httptest.NewRecorder()
	srv.handleGetSnapshot(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_HandleSaveSnapshot_NoSnapshotDir(t *testing.T) {
	srv := newTestServer(t)
	createTestSim(t, srv, "test-sim")

	req := httptest.NewRequest(http.MethodPost, "/sim/test-sim/snapshot", nil)
	w := httptest.NewRecorder()
	srv.handleSaveSnapshot(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_SnapshotLoop(t *testing.T) {
	srv := newTestServer(t)
	tmpDir := t.TempDir()
	srv.SetSnapshotDir(tmpDir)

	sim := createTestSim(t, srv, "test-sim")
	sim.SpawnStrand(genex.Vector2{X: 0, Y: 0}, 600)

	srv.StartSnapshotLoop(10 * time.Millisecond)

	path := filepath.Join(tmpDir, "test-sim.snapshot.json")
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected periodic snapshot to be written")
		}
		time.Sleep(5 * time.Millisecond)
	}

	srv.StopSnapshotLoop()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot file: %v", err)
	}
	snap, err := genex.DecodeSnapshotJSON(data)
	if err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if snap.SimulationID != "test-sim" {
		t.Errorf("Expected SimulationID 'test-sim', got '%s'", snap.SimulationID)
	}
}

func TestServer_HandleRestoreSnapshot(t *testing.T) {
	srv := newTestServer(t)
	sim := createTestSim(t, srv, "test-sim")
	sim.SpawnStrand(genex.Vector2{X: 0, Y: 0}, 600)
	sim.Step(0.1)

	snap := sim.Snapshot()
	data, err := genex.EncodeSnapshotJSON(snap)
	if err != nil {
		t.Fatalf("Failed to encode snapshot: %v", err)
	}

	// Restore into a second, empty simulation
	target := createTestSim(t, srv, "restored")

	req := httptest.NewRequest(http.MethodPost, "/sim/restored/restore", bytes.NewReader(data))
	w := httptest.NewRecorder()
	srv.handleRestoreSnapshot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(target.Strands()) != 1 {
		t.Errorf("Expected 1 strand after restore, got %d", len(target.Strands()))
	}
}

func TestServer_HandleNotifiers(t *testing.T) {
	srv := newTestServer(t)

	// The websocket notifier is registered at startup
	req := httptest.NewRequest(http.MethodGet, "/notifiers", nil)
	w := httptest.NewRecorder()
	srv.handleNotifiersRoutes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var listResp map[string][]map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(listResp["notifiers"]) != 1 {
		t.Fatalf("Expected 1 notifier, got %d", len(listResp["notifiers"]))
	}
	if listResp["notifiers"][0]["id"] != "websocket" {
		t.Errorf("Expected websocket notifier, got %s", listResp["notifiers"][0]["id"])
	}

	// Register a webhook notifier
	body, _ := json.Marshal(registerNotifierRequest{
		Type:   "webhook",
		ID:     "my-hook",
		Config: map[string]any{"url": "http://localhost:9999/hook"},
	})
	req = httptest.NewRequest(http.MethodPost, "/notifiers", bytes.NewReader(body))
	w = httptest.NewRecorder()
	srv.handleNotifiersRoutes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, exists := srv.notifierMgr.GetNotifier("my-hook"); !exists {
		t.Fatal("Expected webhook notifier to be registered")
	}

	// Unregister it
	req = httptest.NewRequest(http.MethodDelete, "/notifiers/my-hook", nil)
	w = httptest.NewRecorder()
	srv.handleNotifiersRoutes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, exists := srv.notifierMgr.GetNotifier("my-hook"); exists {
		t.Error("Expected webhook notifier to be unregistered")
	}

	// The built-in websocket notifier cannot be removed
	req = httptest.NewRequest(http.MethodDelete, "/notifiers/websocket", nil)
	w = httptest.NewRecorder()
	srv.handleNotifiersRoutes(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	origAddr := os.Getenv("GENEX_ADDR")
	origSimID := os.Getenv("GENEX_SIM_ID")
	origParamsFile := os.Getenv("GENEX_PARAMS_FILE")

	os.Unsetenv("GENEX_ADDR")
	os.Unsetenv("GENEX_SIM_ID")
	os.Unsetenv("GENEX_PARAMS_FILE")

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = []string{"genex-server"}

	defer func() {
		if origAddr != "" {
			os.Setenv("GENEX_ADDR", origAddr)
		}
		if origSimID != "" {
			os.Setenv("GENEX_SIM_ID", origSimID)
		}
		if origParamsFile != "" {
			os.Setenv("GENEX_PARAMS_FILE", origParamsFile)
		}
	}()

	cfg := loadServerConfig()

	if cfg.Addr != ":8080" {
		t.Errorf("Expected Addr to be ':8080', got '%s'", cfg.Addr)
	}
	if cfg.DefaultSimID != "default" {
		t.Errorf("Expected DefaultSimID to be 'default', got '%s'", cfg.DefaultSimID)
	}
	if cfg.ParamsFile != "" {
		t.Errorf("Expected ParamsFile to be empty, got '%s'", cfg.ParamsFile)
	}
	if cfg.SnapshotDir != "./data" {
		t.Errorf("Expected SnapshotDir to be './data', got '%s'", cfg.SnapshotDir)
	}
	if cfg.EventFlushMs != 100 {
		t.Errorf("Expected EventFlushMs to be 100, got %d", cfg.EventFlushMs)
	}
	if cfg.SnapshotEvery != 0 {
		t.Errorf("Expected SnapshotEvery to be 0 (disabled), got %d", cfg.SnapshotEvery)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel to be 'info', got '%s'", cfg.LogLevel)
	}
}

func TestLoadServerConfig_EnvVars(t *testing.T) {
	origAddr := os.Getenv("GENEX_ADDR")
	origFlushMs := os.Getenv("GENEX_EVENT_FLUSH_MS")

	os.Setenv("GENEX_ADDR", ":9090")
	os.Setenv("GENEX_EVENT_FLUSH_MS", "250")

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = []string{"genex-server"}

	defer func() {
		if origAddr != "" {
			os.Setenv("GENEX_ADDR", origAddr)
		} else {
			os.Unsetenv("GENEX_ADDR")
		}
		if origFlushMs != "" {
			os.Setenv("GENEX_EVENT_FLUSH_MS", origFlushMs)
		} else {
			os.Unsetenv("GENEX_EVENT_FLUSH_MS")
		}
	}()

	cfg := loadServerConfig()

	if cfg.Addr != ":9090" {
		t.Errorf("Expected Addr to be ':9090', got '%s'", cfg.Addr)
	}
	if cfg.EventFlushMs != 250 {
		t.Errorf("Expected EventFlushMs to be 250, got %d", cfg.EventFlushMs)
	}
}

func TestLoadServerConfig_FlagsOverrideEnvVars(t *testing.T) {
	origAddr := os.Getenv("GENEX_ADDR")
	os.Setenv("GENEX_ADDR", ":9090")

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = []string{"genex-server", "-addr", ":7070"}

	defer func() {
		if origAddr != "" {
			os.Setenv("GENEX_ADDR", origAddr)
		} else {
			os.Unsetenv("GENEX_ADDR")
		}
	}()

	cfg := loadServerConfig()

	if cfg.Addr != ":7070" {
		t.Errorf("Expected Addr to be ':7070' (from flag), got '%s'", cfg.Addr)
	}
}

func TestLoadServerConfig_InvalidEventFlushMs(t *testing.T) {
	origFlushMs := os.Getenv("GENEX_EVENT_FLUSH_MS")
	os.Setenv("GENEX_EVENT_FLUSH_MS", "invalid")

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = []string{"genex-server"}

	defer func() {
		if origFlushMs != "" {
			os.Setenv("GENEX_EVENT_FLUSH_MS", origFlushMs)
		} else {
			os.Unsetenv("GENEX_EVENT_FLUSH_MS")
		}
	}()

	cfg := loadServerConfig()

	if cfg.EventFlushMs != 100 {
		t.Errorf("Expected EventFlushMs to be 100 (default) when invalid, got %d", cfg.EventFlushMs)
	}
}

func TestLoadParametersFromFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "params.json")

	params := genex.DefaultParameters()
	params.TranslationRate = 250
	data, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("Failed to marshal parameters: %v", err)
	}
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		t.Fatalf("Failed to write params file: %v", err)
	}

	loaded, err := loadParametersFromFile(tmpFile)
	if err != nil {
		t.Fatalf("Expected no error loading valid parameters, got: %v", err)
	}
	if loaded.TranslationRate != 250 {
		t.Errorf("Expected TranslationRate 250, got %g", loaded.TranslationRate)
	}

	if _, err := loadParametersFromFile("/nonexistent/params.json"); err == nil {
		t.Error("Expected error when loading missing file")
	}
}

func TestCreateDefaultSimulation(t *testing.T) {
	srv := newTestServer(t)

	if err := createDefaultSimulation(srv.manager, "", "default"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, exists := srv.manager.GetSimulation("default"); !exists {
		t.Fatal("Expected default simulation to exist")
	}

	if err := createDefaultSimulation(srv.manager, "/nonexistent/params.json", "other"); err == nil {
		t.Error("Expected error with missing params file")
	}
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"invalid", LogLevelInfo},
	}

	for _, tt := range tests {
		logger := NewLogger(tt.input)
		if logger.level != tt.want {
			t.Errorf("NewLogger(%q).level = %v, want %v", tt.input, logger.level, tt.want)
		}
	}

	if !NewLogger("warn").shouldLog(LogLevelError) {
		t.Error("Expected warn logger to emit error messages")
	}
	if NewLogger("warn").shouldLog(LogLevelInfo) {
		t.Error("Expected warn logger to suppress info messages")
	}
}
