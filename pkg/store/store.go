package store

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
)

// ErrSnapshotNotFound is returned by Load when a session has no stored
// snapshot yet.
var ErrSnapshotNotFound = errors.New("store: snapshot not found")

// SnapshotStore keeps the previous dependency graph snapshot of every
// analysis session.
//
// Snapshots are owned by exactly one session. Implementations return and
// store copies, so a caller never shares a snapshot with another session.
// WithSession serializes the load-analyze-save cycle of one session across
// goroutines and, for the shared backends, across processes.
type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) (*common.Snapshot, error)
	Save(ctx context.Context, sessionID string, snapshot *common.Snapshot) error
	Delete(ctx context.Context, sessionID string) error
	WithSession(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error
}

// Swap runs fn against the stored snapshot of a session while holding the
// session lock and stores the snapshot fn returns. prev is nil when the
// session has no snapshot yet. Nothing is stored when fn fails.
func Swap(
	ctx context.Context,
	s SnapshotStore,
	sessionID string,
	fn func(ctx context.Context, prev *common.Snapshot) (*common.Snapshot, error),
) error {
	return s.WithSession(ctx, sessionID, func(ctx context.Context) error {
		prev, err := s.Load(ctx, sessionID)
		if err != nil && !errors.Is(err, ErrSnapshotNotFound) {
			return err
		}

		next, err := fn(ctx, prev)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		return s.Save(ctx, sessionID, next)
	})
}
