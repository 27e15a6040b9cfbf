package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phetsims/gene-expression-basics/internal/genex"
	"github.com/phetsims/gene-expression-basics/internal/genex/notifiers"
)

// genexLoggerAdapter adapts the server's Logger to the genex.Logger interface
type genexLoggerAdapter struct {
	logger *Logger
}

func (a *genexLoggerAdapter) Debugf(format string, v ...any) {
	a.logger.Debugf(format, v...)
}

func (a *genexLoggerAdapter) Infof(format string, v ...any) {
	a.logger.Infof(format, v...)
}

func (a *genexLoggerAdapter) Warnf(format string, v ...any) {
	a.logger.Warnf(format, v...)
}

func (a *genexLoggerAdapter) Errorf(format string, v ...any) {
	a.logger.Errorf(format, v...)
}

// Server is the HTTP front end for the gene expression engine: it manages
// simulations, forwards their lifecycle events to notifiers, and serves the
// polling and websocket surfaces the view layer reads.
type Server struct {
	manager     *genex.SimulationManager
	notifierMgr *genex.NotificationManager
	wsNotifier  *notifiers.WebSocketNotifier
	snapshotDir string
	logger      *Logger

	pumpStop chan struct{}
	pumpWg   sync.WaitGroup
	pumpOnce sync.Once

	snapStop chan struct{}
	snapWg   sync.WaitGroup
	snapOnce sync.Once
}

// NewServer creates a new server instance
func NewServer(logger *Logger) *Server {
	genexLogger := &genexLoggerAdapter{logger: logger}
	ws := notifiers.NewWebSocketNotifier("websocket")
	notifierMgr := genex.NewNotificationManagerWithLogger(genexLogger)
	if err := notifierMgr.RegisterNotifier(ws); err != nil {
		logger.Errorf("Failed to register websocket notifier: %v", err)
	}
	return &Server{
		manager:     genex.NewSimulationManagerWithLogger(genexLogger),
		notifierMgr: notifierMgr,
		wsNotifier:  ws,
		logger:      logger,
		pumpStop:    make(chan struct{}),
		snapStop:    make(chan struct{}),
	}
}

// SetSnapshotDir sets the directory where snapshots are written
func (s *Server) SetSnapshotDir(dir string) {
	s.snapshotDir = dir
}

// snapshotPath returns the snapshot file path for a simulation
func (s *Server) snapshotPath(simID genex.SimulationID) string {
	return filepath.Join(s.snapshotDir, fmt.Sprintf("%s.snapshot.json", simID))
}

// StartEventPump starts a goroutine that periodically drains queued lifecycle
// events from every managed simulation and dispatches them to all registered
// notifiers. The engine itself never pushes events, so this pump is the only
// bridge between the tick loop and the notification machinery.
func (s *Server) StartEventPump(interval time.Duration) {
	s.pumpWg.Add(1)
	go func() {
		defer s.pumpWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.flushEvents()
			case <-s.pumpStop:
				s.flushEvents()
				return
			}
		}
	}()
}

// StopEventPump stops the event pump after one final flush.
func (s *Server) StopEventPump() {
	s.pumpOnce.Do(func() {
		close(s.pumpStop)
	})
	s.pumpWg.Wait()
}

func (s *Server) flushEvents() {
	for _, id := range s.manager.ListSimulations() {
		sim, exists := s.manager.GetSimulation(id)
		if !exists {
			continue
		}
		for _, event := range sim.DrainEvents() {
			s.logger.Debugf("Event: sim_id=%s type=%s strand_id=%s", event.SimulationID, event.Type, event.StrandID)
			s.notifierMgr.Dispatch(event, nil)
		}
	}
}

// StartSnapshotLoop starts a goroutine that periodically writes a snapshot of
// every managed simulation to the snapshot directory. A non-positive interval
// disables periodic snapshots.
func (s *Server) StartSnapshotLoop(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.snapWg.Add(1)
	go func() {
		defer s.snapWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.saveAllSnapshots()
			case <-s.snapStop:
				return
			}
		}
	}()
}

// StopSnapshotLoop stops the periodic snapshot writer.
func (s *Server) StopSnapshotLoop() {
	s.snapOnce.Do(func() {
		close(s.snapStop)
	})
	s.snapWg.Wait()
}

func (s *Server) saveAllSnapshots() {
	for _, id := range s.manager.ListSimulations() {
		sim, exists := s.manager.GetSimulation(id)
		if !exists {
			continue
		}
		path, err := s.saveSnapshotFile(sim, id)
		if err != nil {
			s.logger.Errorf("Failed to save snapshot: sim_id=%s error=%v", id, err)
			continue
		}
		s.logger.Debugf("Snapshot saved: sim_id=%s path=%s", id, path)
	}
}

// saveSnapshotFile encodes a simulation snapshot and writes it to the
// snapshot directory, returning the file path.
func (s *Server) saveSnapshotFile(sim *genex.Simulation, simID genex.SimulationID) (string, error) {
	if s.snapshotDir == "" {
		return "", fmt.Errorf("snapshot directory not configured")
	}

	data, err := genex.EncodeSnapshotJSON(sim.Snapshot())
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create snapshot directory: %w", err)
	}
	path := s.snapshotPath(simID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}

// Close stops the pump and the notification machinery.
func (s *Server) Close() {
	s.StopEventPump()
	s.StopSnapshotLoop()
	if err := s.notifierMgr.Close(); err != nil {
		s.logger.Errorf("Error closing notification manager: %v", err)
	}
	for _, id := range s.manager.ListSimulations() {
		if sim, exists := s.manager.GetSimulation(id); exists {
			sim.Stop()
		}
	}
}
