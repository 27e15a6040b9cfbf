package genex

import (
	"fmt"
	"sync"
)

// SimulationID is a unique identifier for a simulation.
type SimulationID string

// SimulationManager manages multiple simulations, each isolated from the
// others.
type SimulationManager struct {
	mu          sync.RWMutex
	logger      Logger
	simulations map[SimulationID]*Simulation
}

// NewSimulationManager creates a new simulation manager.
func NewSimulationManager() *SimulationManager {
	return NewSimulationManagerWithLogger(NewNoOpLogger())
}

func NewSimulationManagerWithLogger(logger Logger) *SimulationManager {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &SimulationManager{
		logger:      logger,
		simulations: make(map[SimulationID]*Simulation),
	}
}

// CreateSimulation creates a new simulation with the given ID and parameters.
// Returns an error if a simulation with that ID already exists or the
// parameters do not validate.
func (sm *SimulationManager) CreateSimulation(id SimulationID, params *Parameters) error {
	if err := ValidateParameters(params); err != nil {
		return err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.simulations[id]; exists {
		return fmt.Errorf("simulation with id %s already exists", id)
	}

	sim := NewSimulationWithLogger(params, sm.logger)
	sim.SetID(string(id))
	sm.simulations[id] = sim
	return nil
}

// GetSimulation retrieves a simulation by ID.
func (sm *SimulationManager) GetSimulation(id SimulationID) (*Simulation, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sim, exists := sm.simulations[id]
	return sim, exists
}

// DeleteSimulation stops and removes a simulation.
func (sm *SimulationManager) DeleteSimulation(id SimulationID) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sim, exists := sm.simulations[id]
	if !exists {
		return fmt.Errorf("simulation with id %s does not exist", id)
	}

	sim.Stop()
	delete(sm.simulations, id)
	return nil
}

// ListSimulations returns the IDs of all managed simulations.
func (sm *SimulationManager) ListSimulations() []SimulationID {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]SimulationID, 0, len(sm.simulations))
	for id := range sm.simulations {
		ids = append(ids, id)
	}
	return ids
}

// UpdateSimulationParameters replaces the parameter values of an existing
// simulation in place, so every strand and biomolecule holding the shared
// parameter struct sees the new values.
func (sm *SimulationManager) UpdateSimulationParameters(id SimulationID, params *Parameters) error {
	if err := ValidateParameters(params); err != nil {
		return err
	}

	sm.mu.RLock()
	sim, exists := sm.simulations[id]
	sm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("simulation with id %s does not exist", id)
	}

	sim.mu.Lock()
	*sim.params = *params
	sim.mu.Unlock()
	return nil
}
