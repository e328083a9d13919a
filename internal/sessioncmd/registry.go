package sessioncmd

import (
	"sync"

	"github.com/bazelment/sessioncore/internal/actor"
)

// SessionMap is the live-actor registry: at most one *actor.Handle per run
// id, guarded by a single mutex. Handle identity (its Tag) is what lets a
// RemoveSelf callback evict its own entry without racing a since-replaced
// successor that reused the same run id (a fork reusing the parent's slot,
// for instance, never happens, but a respawn on ApproveSessionTool does).
type SessionMap struct {
	mu      sync.Mutex
	handles map[string]*actor.Handle
}

// NewSessionMap returns an empty registry.
func NewSessionMap() *SessionMap {
	return &SessionMap{handles: make(map[string]*actor.Handle)}
}

// Get returns the live handle for runID, if any.
func (m *SessionMap) Get(runID string) (*actor.Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[runID]
	return h, ok
}

// Put installs h as the live handle for its run id, replacing any prior
// entry (the caller is responsible for having stopped a prior live actor
// first; Put itself does not check).
func (m *SessionMap) Put(h *actor.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handles[h.RunID] = h
}

// Remove evicts runID's entry only if the currently-registered handle's tag
// matches tag, so a stale RemoveSelf callback from an actor that was
// already replaced is a no-op.
func (m *SessionMap) Remove(runID string, tag *struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.handles[runID]; ok && h.Tag == tag {
		delete(m.handles, runID)
	}
}

// RunIDs returns a snapshot of every run id currently live.
func (m *SessionMap) RunIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	return ids
}

// SpawnLocks serializes the operations that mutate a single run's presence
// in the SessionMap (start, stop, fork, approve-tool-and-respawn) without
// serializing unrelated runs against each other, and without holding the
// SessionMap's own mutex across a slow subprocess spawn or ssh dial.
//
// There is no per-run teardown: an idle *sync.Mutex left in the map after a
// run ends costs nothing worth reclaiming, and reclaiming it safely would
// need its own synchronization against a concurrent Acquire.
type SpawnLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSpawnLocks returns an empty lock table.
func NewSpawnLocks() *SpawnLocks {
	return &SpawnLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks runID's mutex, creating it on first use, and returns a
// func to release it.
func (s *SpawnLocks) Acquire(runID string) func() {
	s.mu.Lock()
	l, ok := s.locks[runID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[runID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
