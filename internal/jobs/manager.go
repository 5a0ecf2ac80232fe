package jobs

import (
	"errors"
	"fmt"
	"sync"

	"video-matrix/internal/domain"
)

// ErrBatchAlreadyRunning is returned when starting a second active batch.
var ErrBatchAlreadyRunning = errors.New("batch already running")

// ErrNoRunningBatch is returned when stop is requested for idle state.
var ErrNoRunningBatch = errors.New("no running batch")

// Manager tracks the single allowed active batch and its transitions.
type Manager struct {
	mu      sync.RWMutex
	current domain.Batch
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Batch{
			Status: domain.BatchStatusIdle,
		},
	}
}

// Start records a new batch of files and total progress units as running.
func (m *Manager) Start(batchID string, files, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status == domain.BatchStatusRunning {
		return ErrBatchAlreadyRunning
	}

	m.current = domain.Batch{
		ID:     batchID,
		Status: domain.BatchStatusRunning,
		Files:  files,
		Total:  total,
	}
	return nil
}

// Transition validates and applies state transitions for current batch.
func (m *Manager) Transition(status domain.BatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && status != domain.BatchStatusIdle {
		return fmt.Errorf("cannot transition without an active batch")
	}
	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.current.Status = status
	if status == domain.BatchStatusDone {
		m.current.Progress = 1
	}
	return nil
}

// SetProgress records the latest progress fraction of a running batch.
func (m *Manager) SetProgress(fraction float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.BatchStatusRunning || fraction < m.current.Progress {
		return
	}
	if fraction > 1 {
		fraction = 1
	}
	m.current.Progress = fraction
}

// Current returns a snapshot of the current batch.
func (m *Manager) Current() domain.Batch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset clears batch metadata and returns manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Batch{Status: domain.BatchStatusIdle}
}

// IsRunning reports whether a batch is active.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Status == domain.BatchStatusRunning
}

// Cancel moves an active batch to cancelled state.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.BatchStatusRunning {
		return ErrNoRunningBatch
	}
	m.current.Status = domain.BatchStatusCancelled
	return nil
}

// isValidTransition enforces the allowed batch state machine edges.
func isValidTransition(from, to domain.BatchStatus) bool {
	switch from {
	case domain.BatchStatusIdle:
		return to == domain.BatchStatusRunning
	case domain.BatchStatusRunning:
		return to == domain.BatchStatusDone || to == domain.BatchStatusFailed || to == domain.BatchStatusCancelled
	case domain.BatchStatusDone, domain.BatchStatusFailed, domain.BatchStatusCancelled:
		return to == domain.BatchStatusRunning || to == domain.BatchStatusIdle
	default:
		return false
	}
}
