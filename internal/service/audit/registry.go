package audit

import (
	"sync"

	domain "github.com/davidleathers/identity-audit-engine/internal/domain/audit"
	"github.com/davidleathers/identity-audit-engine/internal/domain/errors"
)

// Registry is the process-wide audit run state: the lifecycle status, the
// most recent result, and an append-only run history. Only the
// Coordinator mutates it; reads are always safe concurrent snapshots.
type Registry struct {
	mu      sync.RWMutex
	status  domain.RunStatus
	current *domain.Result
	history []*domain.Result
}

// NewRegistry creates a registry in the Idle state.
func NewRegistry() *Registry {
	return &Registry{status: domain.RunStatusIdle}
}

// TryStart transitions to Running, or rejects with ErrAuditInProgress if a
// run is already in flight. Rejection mutates nothing.
func (r *Registry) TryStart() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == domain.RunStatusRunning {
		return errors.ErrAuditInProgress
	}
	r.status = domain.RunStatusRunning
	return nil
}

// Publish records a finished run: the result becomes current, is appended
// to history, and the status follows the result's terminal state.
func (r *Registry) Publish(result *domain.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = result
	r.history = append(r.history, result)
	if result.Status == domain.ResultError {
		r.status = domain.RunStatusError
	} else {
		r.status = domain.RunStatusCompleted
	}
}

// Snapshot returns the current status and most recent result.
func (r *Registry) Snapshot() (domain.RunStatus, *domain.Result) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status, r.current
}

// History returns a copy of the completed-run history, oldest first.
func (r *Registry) History() []*domain.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Result, len(r.history))
	copy(out, r.history)
	return out
}
