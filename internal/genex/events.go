package genex

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// EventType labels a simulation lifecycle event.
type EventType string

const (
	EventStrandCompleted      EventType = "strand_completed"
	EventTranslationStarted   EventType = "translation_started"
	EventTranslationCompleted EventType = "translation_completed"
	EventDestructionStarted   EventType = "destruction_started"
	EventDestructionAborted   EventType = "destruction_aborted"
	EventStrandGone           EventType = "strand_gone"
)

// Event is a lifecycle event recorded by the simulation. The core never
// pushes events anywhere: they queue inside the simulation and callers drain
// them, so the engine stays free of observer coupling.
type Event struct {
	SimulationID  string    `json:"simulation_id"`
	Type          EventType `json:"type"`
	StrandID      string    `json:"strand_id,omitempty"`
	BiomoleculeID string    `json:"biomolecule_id,omitempty"`
	SimTime       float64   `json:"sim_time"`
	Timestamp     int64     `json:"timestamp"`
}

// JSON encodes the event for transport.
func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier is the interface all notification channels implement.
type Notifier interface {
	// ID returns a unique identifier for this notifier.
	ID() string

	// Type returns the kind of notifier (e.g. "webhook", "websocket").
	Type() string

	// Notify delivers one event. The context carries cancellation/timeout.
	Notify(ctx context.Context, event Event) error

	// Close releases the notifier's resources.
	Close() error
}

// notificationJob is one unit of work for the delivery queue.
type notificationJob struct {
	event       Event
	notifierIDs []string
}

// NotificationManager routes drained simulation events to registered
// notifiers through a buffered worker queue, keeping slow consumers off the
// simulation path.
type NotificationManager struct {
	mu        sync.RWMutex
	logger    Logger
	notifiers map[string]Notifier
	jobs      chan notificationJob
	closed    bool
	wg        sync.WaitGroup
}

// NewNotificationManager creates a manager with a single delivery worker.
func NewNotificationManager() *NotificationManager {
	return NewNotificationManagerWithLogger(NewNoOpLogger())
}

func NewNotificationManagerWithLogger(logger Logger) *NotificationManager {
	mgr := &NotificationManager{
		logger:    logger,
		notifiers: make(map[string]Notifier),
		jobs:      make(chan notificationJob, 1024),
	}
	mgr.startWorkers(1)
	return mgr
}

func (nm *NotificationManager) startWorkers(n int) {
	for i := 0; i < n; i++ {
		nm.wg.Add(1)
		go func() {
			defer nm.wg.Done()
			for job := range nm.jobs {
				nm.deliver(job)
			}
		}()
	}
}

func (nm *NotificationManager) deliver(job notificationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nm.mu.RLock()
	targets := make([]Notifier, 0, len(job.notifierIDs))
	if len(job.notifierIDs) == 0 {
		for _, n := range nm.notifiers {
			targets = append(targets, n)
		}
	} else {
		for _, id := range job.notifierIDs {
			if n, ok := nm.notifiers[id]; ok {
				targets = append(targets, n)
			}
		}
	}
	nm.mu.RUnlock()

	for _, n := range targets {
		if err := n.Notify(ctx, job.event); err != nil {
			nm.logger.Warnf("notifier %s (%s) failed: %v", n.ID(), n.Type(), err)
		}
	}
}

// RegisterNotifier registers a notifier with the manager.
func (nm *NotificationManager) RegisterNotifier(notifier Notifier) error {
	if notifier == nil {
		return fmt.Errorf("notifier cannot be nil")
	}
	id := notifier.ID()
	if id == "" {
		return fmt.Errorf("notifier ID cannot be empty")
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, exists := nm.notifiers[id]; exists {
		return fmt.Errorf("notifier with ID %s already exists", id)
	}
	nm.notifiers[id] = notifier
	return nil
}

// UnregisterNotifier removes and closes a notifier.
func (nm *NotificationManager) UnregisterNotifier(id string) error {
	nm.mu.Lock()
	notifier, exists := nm.notifiers[id]
	nm.mu.Unlock()

	if !exists {
		return fmt.Errorf("notifier with ID %s not found", id)
	}
	if err := notifier.Close(); err != nil {
		return fmt.Errorf("error closing notifier %s: %w", id, err)
	}

	nm.mu.Lock()
	delete(nm.notifiers, id)
	nm.mu.Unlock()
	return nil
}

// ListNotifiers returns the IDs of all registered notifiers.
func (nm *NotificationManager) ListNotifiers() []string {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	ids := make([]string, 0, len(nm.notifiers))
	for id := range nm.notifiers {
		ids = append(ids, id)
	}
	return ids
}

// GetNotifier retrieves a registered notifier by ID.
func (nm *NotificationManager) GetNotifier(id string) (Notifier, bool) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	n, exists := nm.notifiers[id]
	return n, exists
}

// Dispatch queues an event for delivery. An empty notifierIDs slice means
// every registered notifier. Dispatch never blocks: when the queue is full
// the event is dropped with a warning.
func (nm *NotificationManager) Dispatch(event Event, notifierIDs []string) {
	nm.mu.RLock()
	closed := nm.closed
	nm.mu.RUnlock()
	if closed {
		return
	}

	select {
	case nm.jobs <- notificationJob{event: event, notifierIDs: notifierIDs}:
	default:
		nm.logger.Warnf("notification queue full, dropping %s event", event.Type)
	}
}

// Close stops the delivery workers and closes all notifiers.
func (nm *NotificationManager) Close() error {
	nm.mu.Lock()
	if nm.closed {
		nm.mu.Unlock()
		return nil
	}
	nm.closed = true
	nm.mu.Unlock()

	close(nm.jobs)
	nm.wg.Wait()

	nm.mu.Lock()
	defer nm.mu.Unlock()
	var firstErr error
	for id, n := range nm.notifiers {
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("error closing notifier %s: %w", id, err)
		}
	}
	nm.notifiers = make(map[string]Notifier)
	return firstErr
}
