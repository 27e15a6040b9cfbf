package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phetsims/gene-expression-basics/internal/genex"
)

func main() {
	cfg := loadServerConfig()
	logger := NewLogger(cfg.LogLevel)

	logger.Infof("Starting genex server: addr=%s log_level=%s", cfg.Addr, cfg.LogLevel)

	server := NewServer(logger)
	server.SetSnapshotDir(cfg.SnapshotDir)

	if err := createDefaultSimulation(server.manager, cfg.ParamsFile, genex.SimulationID(cfg.DefaultSimID)); err != nil {
		logger.Fatalf("Failed to create default simulation: %v", err)
	}
	logger.Infof("Default simulation created: sim_id=%s", cfg.DefaultSimID)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", server.handleHealth)
	mux.HandleFunc("/sims", server.handleListSimulations)
	mux.HandleFunc("/sim/", server.handleSimulationRoutes)
	mux.HandleFunc("/notifiers", server.handleNotifiersRoutes)
	mux.HandleFunc("/notifiers/", server.handleNotifiersRoutes)
	mux.HandleFunc("/ws", server.handleWebSocket)

	server.StartEventPump(time.Duration(cfg.EventFlushMs) * time.Millisecond)
	server.StartSnapshotLoop(time.Duration(cfg.SnapshotEvery) * time.Millisecond)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	go func() {
		logger.Infof("Listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Block until we get a shutdown signal, then drain and close
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down")
	_ = httpServer.Close()
	server.Close()
}
