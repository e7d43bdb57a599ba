package memory

import (
	"context"
	"sync"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/store"
)

// MemorySnapshotStore keeps snapshots in process memory. It is the default
// backend for a single server and for the CLI.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*common.Snapshot

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

type sessionLock struct {
	sem  chan struct{}
	refs int
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		snapshots: make(map[string]*common.Snapshot),
		locks:     make(map[string]*sessionLock),
	}
}

func (s *MemorySnapshotStore) Load(_ context.Context, sessionID string) (*common.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[sessionID]
	if !ok {
		return nil, store.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

func (s *MemorySnapshotStore) Save(_ context.Context, sessionID string, snapshot *common.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[sessionID] = snapshot.Clone()
	return nil
}

func (s *MemorySnapshotStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, sessionID)
	return nil
}

// WithSession runs fn while holding the in-process lock of the session.
// Waiting for the lock gives up when ctx is done.
func (s *MemorySnapshotStore) WithSession(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error {
	l := s.acquireRef(sessionID)
	defer s.releaseRef(sessionID, l)

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.sem }()

	return fn(ctx)
}

func (s *MemorySnapshotStore) acquireRef(sessionID string) *sessionLock {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{sem: make(chan struct{}, 1)}
		s.locks[sessionID] = l
	}
	l.refs++
	return l
}

func (s *MemorySnapshotStore) releaseRef(sessionID string, l *sessionLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.locks, sessionID)
	}
}
