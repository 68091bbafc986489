package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/kjannette/trahn-agents/internal/models"
)

// ExecutionContext is the live runtime behind one trading agent. The
// registry owns every instance for its whole lifetime; nothing else
// starts or stops one.
type ExecutionContext interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Factory constructs an execution context from an agent's
// configuration snapshot.
type Factory interface {
	NewContext(agentID uuid.UUID, cfg Config) (ExecutionContext, error)
}

// StatusStore persists the agent lifecycle status. The registry writes
// through it on start/stop and overwrites it during reconciliation.
type StatusStore interface {
	UpdateStatus(ctx context.Context, agentID uuid.UUID, status models.AgentStatus) error
}

// Config is the configuration snapshot an execution context is built
// from. The registry uses it to detect stale handles: a live context
// whose snapshot no longer matches the requested one gets replaced.
type Config struct {
	Name     string            `json:"name"`
	Settings map[string]string `json:"settings,omitempty"`
}

// fingerprint is a stable identity for a Config; map iteration order
// does not leak into it because encoding/json sorts object keys.
func (c Config) fingerprint() string {
	b, _ := json.Marshal(c)
	return string(b)
}

// InitError reports a failed start attempt. The registry map is
// unchanged when this is returned.
type InitError struct {
	AgentID uuid.UUID
	Cause   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("agent %s runtime initialization failed: %v", e.AgentID, e.Cause)
}

func (e *InitError) Unwrap() error { return e.Cause }

// Handle pairs a live execution context with the config snapshot it
// was built from.
type Handle struct {
	AgentID uuid.UUID
	Config  Config

	ec          ExecutionContext
	fingerprint string
}

// Context exposes the underlying execution context for callers that
// need to drive it (e.g. on-demand scans).
func (h *Handle) Context() ExecutionContext { return h.ec }

// Registry enforces at-most-one live execution context per agent. The
// in-memory map is the single source of truth for liveness; the
// persisted agent status follows it, never the other way around.
type Registry struct {
	factory Factory
	store   StatusStore

	mu      sync.Mutex
	handles map[uuid.UUID]*Handle
}

func New(factory Factory, store StatusStore) *Registry {
	return &Registry{
		factory: factory,
		store:   store,
		handles: make(map[uuid.UUID]*Handle),
	}
}

// Start returns the live handle for agentID, creating one if needed.
//
// A live handle with a matching config is returned unchanged. A live
// handle with a different config is stale: it is discarded and
// replaced. Construction or startup failure leaves the registry
// exactly as it was and surfaces as *InitError.
func (r *Registry) Start(ctx context.Context, agentID uuid.UUID, cfg Config) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fp := cfg.fingerprint()

	if existing, ok := r.handles[agentID]; ok {
		if existing.fingerprint == fp {
			r.persistStatus(ctx, agentID, models.AgentActive)
			return existing, nil
		}
		// Stale config: release the old context before building anew.
		fmt.Printf("[REGISTRY] Agent %s config changed, replacing runtime\n", agentID)
		delete(r.handles, agentID)
		if err := existing.ec.Stop(ctx); err != nil {
			fmt.Printf("[REGISTRY] Teardown of stale runtime for %s: %v\n", agentID, err)
		}
	}

	ec, err := r.factory.NewContext(agentID, cfg)
	if err != nil {
		return nil, &InitError{AgentID: agentID, Cause: err}
	}
	if err := ec.Start(ctx); err != nil {
		return nil, &InitError{AgentID: agentID, Cause: err}
	}

	h := &Handle{AgentID: agentID, Config: cfg, ec: ec, fingerprint: fp}
	r.handles[agentID] = h
	r.persistStatus(ctx, agentID, models.AgentActive)

	fmt.Printf("[REGISTRY] Agent %s runtime started\n", agentID)
	return h, nil
}

// Get is a pure lookup with no side effects.
func (r *Registry) Get(agentID uuid.UUID) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[agentID]
	return h, ok
}

// Stop releases the agent's execution context if one is live. Either
// way the persisted status ends up inactive, so stopping an already
// stopped agent is an idempotent no-op. Deregistration always happens
// before teardown: the map must never claim liveness for a context
// that is shutting down.
func (r *Registry) Stop(ctx context.Context, agentID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[agentID]; ok {
		delete(r.handles, agentID)
		if err := h.ec.Stop(ctx); err != nil {
			fmt.Printf("[REGISTRY] Teardown error for agent %s (already deregistered): %v\n", agentID, err)
		}
		fmt.Printf("[REGISTRY] Agent %s runtime stopped\n", agentID)
	}

	r.persistStatus(ctx, agentID, models.AgentInactive)
}

// Reconcile recomputes the agent's status purely from map presence and
// overwrites the persisted value. This is the only path allowed to
// silently correct drift between cache and database.
func (r *Registry) Reconcile(ctx context.Context, agentID uuid.UUID) models.AgentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := models.AgentInactive
	if _, ok := r.handles[agentID]; ok {
		status = models.AgentActive
	}
	r.persistStatus(ctx, agentID, status)
	return status
}

// Clear stops every live runtime. Used on shutdown.
func (r *Registry) Clear(ctx context.Context) {
	r.mu.Lock()
	ids := make([]uuid.UUID, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Stop(ctx, id)
	}
}

// Live returns the number of live runtimes.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// persistStatus writes through to the store. Failures are logged, not
// fatal: the map stays authoritative and Reconcile heals the drift.
func (r *Registry) persistStatus(ctx context.Context, agentID uuid.UUID, status models.AgentStatus) {
	if err := r.store.UpdateStatus(ctx, agentID, status); err != nil {
		fmt.Printf("[REGISTRY] Failed to persist status %s for agent %s: %v\n", status, agentID, err)
	}
}
