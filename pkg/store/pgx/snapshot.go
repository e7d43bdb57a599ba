package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/leaselock"
	"github.com/OFFIS-RIT/wisdom/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// PgxSnapshotStore implements store.SnapshotStore on Postgres. Snapshots
// live in session_snapshots as JSONB; the session lock is a lease in
// session_locks, so several server and worker processes can share sessions.
type PgxSnapshotStore struct {
	conn   pgxIConn
	locker *leaselock.Locker
}

// NewPgxSnapshotStore creates a store on conn, usually a *pgxpool.Pool.
func NewPgxSnapshotStore(conn pgxIConn, lockOpts leaselock.Options) *PgxSnapshotStore {
	if lockOpts.HolderPrefix == "" {
		lockOpts.HolderPrefix = "wisdom-"
	}
	lockOpts.Wait = true
	return &PgxSnapshotStore{
		conn:   conn,
		locker: leaselock.New(conn, lockOpts),
	}
}

const loadSnapshotSQL = `SELECT snapshot FROM session_snapshots WHERE session_id = $1`

const saveSnapshotSQL = `
INSERT INTO session_snapshots (session_id, snapshot, node_count, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (session_id) DO UPDATE
SET snapshot   = EXCLUDED.snapshot,
    node_count = EXCLUDED.node_count,
    updated_at = EXCLUDED.updated_at
`

const deleteSnapshotSQL = `DELETE FROM session_snapshots WHERE session_id = $1`

func (s *PgxSnapshotStore) Load(ctx context.Context, sessionID string) (*common.Snapshot, error) {
	var raw []byte
	err := s.conn.QueryRow(ctx, loadSnapshotSQL, sessionID).Scan(&raw)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", sessionID, err)
	}

	var snap common.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", sessionID, err)
	}
	return &snap, nil
}

func (s *PgxSnapshotStore) Save(ctx context.Context, sessionID string, snapshot *common.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", sessionID, err)
	}
	nodes := 0
	if snapshot != nil {
		nodes = len(snapshot.Adjacency)
	}
	if _, err := s.conn.Exec(ctx, saveSnapshotSQL, sessionID, raw, nodes); err != nil {
		return fmt.Errorf("save snapshot %s: %w", sessionID, err)
	}
	return nil
}

func (s *PgxSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.conn.Exec(ctx, deleteSnapshotSQL, sessionID); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", sessionID, err)
	}
	return nil
}

// WithSession runs fn under the session's lease. fn's context is cancelled
// when the lease is lost.
func (s *PgxSnapshotStore) WithSession(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error {
	return s.locker.WithLease(ctx, "session:"+sessionID, fn)
}
