package leaselock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockRow struct {
	holder  string
	expires time.Time
}

// fakeDB emulates the session_locks statements in memory.
type fakeDB struct {
	mu   sync.Mutex
	rows map[string]lockRow
	now  func() time.Time
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: make(map[string]lockRow), now: time.Now}
}

type row struct {
	key string
	err error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.key
	return nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, holder, ttl := args[0].(string), args[1].(string), time.Duration(args[2].(int64))*time.Millisecond
	current, exists := f.rows[key]

	switch sql {
	case acquireSQL:
		if exists && current.holder != holder && current.expires.After(f.now()) {
			return row{err: pgx.ErrNoRows}
		}
	case renewSQL:
		if !exists || current.holder != holder {
			return row{err: pgx.ErrNoRows}
		}
	default:
		return row{err: errors.New("unexpected statement")}
	}

	f.rows[key] = lockRow{holder: holder, expires: f.now().Add(ttl)}
	return row{key: key}
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sql != releaseSQL {
		return pgconn.CommandTag{}, errors.New("unexpected statement")
	}
	key, holder := args[0].(string), args[1].(string)
	if current, ok := f.rows[key]; ok && current.holder == holder {
		delete(f.rows, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.NewCommandTag("DELETE 0"), nil
}

func (f *fakeDB) steal(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[key] = lockRow{holder: "thief", expires: f.now().Add(time.Hour)}
}

func TestAcquire_BusyAndRelease(t *testing.T) {
	db := newFakeDB()
	locker := New(db, Options{TTL: time.Minute})
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "session:a")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "session:a")
	assert.ErrorIs(t, err, ErrBusy)

	other, err := locker.Acquire(ctx, "session:b")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	assert.ErrorIs(t, context.Cause(lease.Context), context.Canceled)

	again, err := locker.Acquire(ctx, "session:a")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestAcquire_ExpiredLeaseIsTakenOver(t *testing.T) {
	db := newFakeDB()
	locker := New(db, Options{TTL: time.Minute})
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "session:a")
	require.NoError(t, err)

	db.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	lease, err := locker.Acquire(ctx, "session:a")
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}

func TestAcquire_WaitsUntilFree(t *testing.T) {
	db := newFakeDB()
	locker := New(db, Options{TTL: time.Minute, Wait: true, WaitInterval: 5 * time.Millisecond})
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "session:a")
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = first.Release(context.Background())
	}()

	second, err := locker.Acquire(ctx, "session:a")
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}

func TestAcquire_WaitHonoursContext(t *testing.T) {
	db := newFakeDB()
	locker := New(db, Options{TTL: time.Minute, Wait: true, WaitInterval: 5 * time.Millisecond})

	_, err := locker.Acquire(context.Background(), "session:a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "session:a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLease_LostLeaseCancelsWork(t *testing.T) {
	db := newFakeDB()
	locker := New(db, Options{TTL: 2 * time.Second, RenewEvery: 10 * time.Millisecond})

	err := locker.WithLease(context.Background(), "session:a", func(ctx context.Context) error {
		db.steal("session:a")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
			return errors.New("lease was not lost")
		}
	})
	assert.ErrorIs(t, err, ErrLost)

	// the thief's row survives our release
	db.mu.Lock()
	defer db.mu.Unlock()
	assert.Equal(t, "thief", db.rows["session:a"].holder)
}

func TestAcquire_EmptyKey(t *testing.T) {
	_, err := New(newFakeDB(), Options{}).Acquire(context.Background(), "")
	assert.Error(t, err)
}
