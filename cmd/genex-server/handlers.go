package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/phetsims/gene-expression-basics/internal/genex"
	genexnotifiers "github.com/phetsims/gene-expression-basics/internal/genex/notifiers"
)

// extractSimID extracts the simulation ID from a path like "/sim/{simID}/..."
// Returns the simulation ID and the remaining path, or empty string if not found
func extractSimID(path string) (genex.SimulationID, string) {
	if !strings.HasPrefix(path, "/sim/") {
		return "", ""
	}

	rest := path[5:]
	idx := strings.Index(rest, "/")
	if idx == -1 {
		// No more path segments, the whole thing is the sim ID
		return genex.SimulationID(rest), ""
	}

	simID := genex.SimulationID(rest[:idx])
	remainingPath := rest[idx:]
	return simID, remainingPath
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleSimulationRoutes routes requests to simulation-specific handlers
// Handles paths like /sim/{simID}/params, /sim/{simID}/tick, etc.
func (s *Server) handleSimulationRoutes(w http.ResponseWriter, r *http.Request) {
	simID, remainingPath := extractSimID(r.URL.Path)
	if simID == "" {
		http.Error(w, "simulation ID is required in path: /sim/{simID}/...", http.StatusBadRequest)
		return
	}

	switch {
	case remainingPath == "/params" && r.Method == http.MethodPost:
		s.handleParams(w, r)
	case remainingPath == "/params" && r.Method == http.MethodGet:
		s.handleGetParams(w, r)
	case remainingPath == "/gene" && r.Method == http.MethodPost:
		s.handleAddGene(w, r)
	case remainingPath == "/biomolecule" && r.Method == http.MethodPost:
		s.handleAddBiomolecule(w, r)
	case remainingPath == "/strand" && r.Method == http.MethodPost:
		s.handleSpawnStrand(w, r)
	case remainingPath == "/tick" && r.Method == http.MethodPost:
		s.handleTick(w, r)
	case remainingPath == "/start" && r.Method == http.MethodPost:
		s.handleStart(w, r)
	case remainingPath == "/stop" && r.Method == http.MethodPost:
		s.handleStop(w, r)
	case remainingPath == "/state" && r.Method == http.MethodGet:
		s.handleState(w, r)
	case remainingPath == "/abort-destruction" && r.Method == http.MethodPost:
		s.handleAbortDestruction(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodPost:
		s.handleSaveSnapshot(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodGet:
		s.handleGetSnapshot(w, r)
	case remainingPath == "/restore" && r.Method == http.MethodPost:
		s.handleRestoreSnapshot(w, r)
	case remainingPath == "" && r.Method == http.MethodDelete:
		s.handleDeleteSimulation(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// getSimulation resolves the simulation from the request path, writing an
// error response when it cannot be found.
func (s *Server) getSimulation(w http.ResponseWriter, r *http.Request) (*genex.Simulation, genex.SimulationID, bool) {
	simID, _ := extractSimID(r.URL.Path)
	sim, exists := s.manager.GetSimulation(simID)
	if !exists {
		http.Error(w, "simulation not found", http.StatusNotFound)
		return nil, simID, false
	}
	return sim, simID, true
}

// POST /sim/{simID}/params
// Body: Parameters JSON
// Creates a new simulation with the given ID and parameters, or updates an existing one
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	simID, _ := extractSimID(r.URL.Path)

	var params genex.Parameters
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "invalid parameters json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := genex.ValidateParameters(&params); err != nil {
		http.Error(w, "invalid parameters: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Try to create a new simulation, or update the existing one's parameters
	err := s.manager.CreateSimulation(simID, &params)
	if err != nil {
		if err := s.manager.UpdateSimulationParameters(simID, &params); err != nil {
			s.logger.Errorf("Failed to update simulation parameters: sim_id=%s error=%v", simID, err)
			http.Error(w, "cannot update simulation: "+err.Error(), http.StatusInternalServerError)
			return
		}
		s.logger.Infof("Simulation parameters updated: sim_id=%s", simID)
	} else {
		s.logger.Infof("Simulation created: sim_id=%s", simID)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("parameters applied"))
}

// GET /sim/{simID}/params
func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	sim, _, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sim.Params()); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /sim/{simID}/gene
// Body: { "start": {"x": ..., "y": ...}, "length": ... }
type addGeneRequest struct {
	Start  genex.Vector2 `json:"start"`
	Length float64       `json:"length"`
}

func (s *Server) handleAddGene(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	sim, simID, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	var req addGeneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Length <= 0 {
		http.Error(w, "gene length must be positive", http.StatusBadRequest)
		return
	}

	gene := sim.AddGene(req.Start, req.Length)
	s.logger.Debugf("Gene added: sim_id=%s gene_id=%s length=%g", simID, gene.ID, req.Length)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"id": gene.ID})
}

// POST /sim/{simID}/biomolecule
// Body: { "kind": "ribosome"|"polymerase"|"destroyer", "position": {...}, "channel_length": ... }
type addBiomoleculeRequest struct {
	Kind          string        `json:"kind"`
	Position      genex.Vector2 `json:"position"`
	ChannelLength float64       `json:"channel_length"`
}

func (s *Server) handleAddBiomolecule(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	sim, simID, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	var req addBiomoleculeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	var id string
	switch req.Kind {
	case "ribosome":
		id = sim.AddRibosome(req.Position, req.ChannelLength).ID()
	case "polymerase":
		id = sim.AddPolymerase(req.Position).ID()
	case "destroyer":
		id = sim.AddDestroyer(req.Position, req.ChannelLength).ID()
	default:
		http.Error(w, "unknown biomolecule kind: "+req.Kind, http.StatusBadRequest)
		return
	}

	s.logger.Debugf("Biomolecule added: sim_id=%s kind=%s id=%s", simID, req.Kind, id)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
}

// POST /sim/{simID}/strand
// Body: { "position": {...}, "length": ... }
// Spawns a fully synthesized free strand, as if transcription had completed
type spawnStrandRequest struct {
	Position genex.Vector2 `json:"position"`
	Length   float64       `json:"length"`
}

func (s *Server) handleSpawnStrand(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	sim, simID, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	var req spawnStrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Length <= 0 {
		http.Error(w, "strand length must be positive", http.StatusBadRequest)
		return
	}

	m := sim.SpawnStrand(req.Position, req.Length)
	s.logger.Debugf("Strand spawned: sim_id=%s strand_id=%s length=%g", simID, m.ID(), req.Length)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"id": m.ID()})
}

// POST /sim/{simID}/tick
// Manually advance a single step (useful for testing/debugging when auto-running is disabled)
// Query param: dt in seconds (default: 0.1)
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sim, _, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	dt := 0.1
	if dtStr := r.URL.Query().Get("dt"); dtStr != "" {
		if v, err := strconv.ParseFloat(dtStr, 64); err == nil && v > 0 {
			dt = v
		} else {
			http.Error(w, "invalid dt: must be a positive number (seconds)", http.StatusBadRequest)
			return
		}
	}

	sim.Step(dt)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ticked"))
}

// POST /sim/{simID}/start
// Start the simulation auto-running with the specified interval (in milliseconds)
// Query param: interval (default: 33ms)
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sim, simID, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	interval := 33 * time.Millisecond
	if intervalStr := r.URL.Query().Get("interval"); intervalStr != "" {
		if ms, err := strconv.Atoi(intervalStr); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		} else {
			http.Error(w, "invalid interval: must be a positive integer (milliseconds)", http.StatusBadRequest)
			return
		}
	}

	sim.Run(interval)
	s.logger.Infof("Simulation started: sim_id=%s interval=%v", simID, interval)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("simulation started"))
}

// POST /sim/{simID}/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	sim, simID, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	sim.Stop()
	s.logger.Infof("Simulation stopped: sim_id=%s", simID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("simulation stopped"))
}

// GET /sim/{simID}/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sim, _, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sim.State()); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /sim/{simID}/abort-destruction
// Body: { "strand_id": "..." }
type abortDestructionRequest struct {
	StrandID string `json:"strand_id"`
}

func (s *Server) handleAbortDestruction(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	sim, simID, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	var req abortDestructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.StrandID == "" {
		http.Error(w, "strand_id is required", http.StatusBadRequest)
		return
	}

	if err := sim.AbortDestruction(req.StrandID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	s.logger.Infof("Destruction aborted: sim_id=%s strand_id=%s", simID, req.StrandID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("destruction aborted"))
}

// GET /sims
// List all simulation IDs
func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	simIDs := s.manager.ListSimulations()

	ids := make([]string, len(simIDs))
	for i, id := range simIDs {
		ids[i] = string(id)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"simulations": ids}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// DELETE /sim/{simID}
func (s *Server) handleDeleteSimulation(w http.ResponseWriter, r *http.Request) {
	simID, _ := extractSimID(r.URL.Path)

	if err := s.manager.DeleteSimulation(simID); err != nil {
		s.logger.Warnf("Failed to delete simulation: sim_id=%s error=%v", simID, err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.logger.Infof("Simulation deleted: sim_id=%s", simID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("simulation deleted"))
}

// POST /sim/{simID}/snapshot
// Triggers a synchronous snapshot save
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	sim, simID, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	path, err := s.saveSnapshotFile(sim, simID)
	if err != nil {
		s.logger.Errorf("Failed to save snapshot: sim_id=%s error=%v", simID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.logger.Debugf("Snapshot saved: sim_id=%s path=%s", simID, path)

	response := map[string]string{
		"status": "ok",
		"path":   path,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "cannot encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// GET /sim/{simID}/snapshot
// Returns the raw snapshot JSON if it exists
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	_, simID, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
		return
	}

	data, err := os.ReadFile(s.snapshotPath(simID))
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to read snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// POST /sim/{simID}/restore
// Body: snapshot JSON
// Replaces the simulation's contents with the snapshot's
func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	sim, simID, ok := s.getSimulation(w, r)
	if !ok {
		return
	}

	var snap genex.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, "invalid snapshot json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := sim.ApplySnapshot(snap); err != nil {
		http.Error(w, "cannot restore snapshot: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Infof("Snapshot restored: sim_id=%s", simID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("snapshot restored"))
}

// handleNotifiersRoutes handles notifier management endpoints
func (s *Server) handleNotifiersRoutes(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/notifiers" && r.Method == http.MethodGet:
		s.handleListNotifiers(w, r)
	case r.URL.Path == "/notifiers" && r.Method == http.MethodPost:
		s.handleRegisterNotifier(w, r)
	case strings.HasPrefix(r.URL.Path, "/notifiers/") && r.Method == http.MethodDelete:
		s.handleUnregisterNotifier(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GET /notifiers
func (s *Server) handleListNotifiers(w http.ResponseWriter, _ *http.Request) {
	notifierIDs := s.notifierMgr.ListNotifiers()

	notifierList := make([]map[string]string, 0, len(notifierIDs))
	for _, id := range notifierIDs {
		notifier, exists := s.notifierMgr.GetNotifier(id)
		if exists {
			notifierList = append(notifierList, map[string]string{
				"id":   id,
				"type": notifier.Type(),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"notifiers": notifierList}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /notifiers
// Register a new notifier
// Body: { "type": "webhook", "id": "my-webhook", "config": { "url": "http://..." } }
type registerNotifierRequest struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
}

func (s *Server) handleRegisterNotifier(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req registerNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	var notifier genex.Notifier

	switch req.Type {
	case "webhook":
		url, ok := req.Config["url"].(string)
		if !ok || url == "" {
			http.Error(w, "webhook URL is required", http.StatusBadRequest)
			return
		}
		wh := genexnotifiers.NewWebhookNotifier(req.ID, url)

		// Set custom headers if provided
		if headers, ok := req.Config["headers"].(map[string]any); ok {
			for k, v := range headers {
				if vStr, ok := v.(string); ok {
					wh.SetHeader(k, vStr)
				}
			}
		}

		notifier = wh
	default:
		http.Error(w, "unknown notifier type: "+req.Type, http.StatusBadRequest)
		return
	}

	if err := s.notifierMgr.RegisterNotifier(notifier); err != nil {
		http.Error(w, "cannot register notifier: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier registered"))
}

// DELETE /notifiers/{id}
func (s *Server) handleUnregisterNotifier(w http.ResponseWriter, r *http.Request) {
	notifierID := strings.TrimPrefix(r.URL.Path, "/notifiers/")
	if notifierID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}
	if notifierID == "websocket" {
		http.Error(w, "the built-in websocket notifier cannot be removed", http.StatusBadRequest)
		return
	}

	if err := s.notifierMgr.UnregisterNotifier(notifierID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier unregistered"))
}

// GET /ws
// Upgrades the connection and subscribes it to the event broadcast
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.wsNotifier.GetUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	s.wsNotifier.RegisterClient(conn)
	s.logger.Debugf("WebSocket client connected: %s", conn.RemoteAddr())

	// Drain the read side so we notice client disconnects
	go func() {
		defer s.wsNotifier.UnregisterClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
