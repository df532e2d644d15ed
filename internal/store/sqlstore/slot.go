package sqlstore

import (
	"context"
	"sync"

	"github.com/uptrace/bun"

	"schoolsched/internal/store"
)

func (s *Store) InSlotTransaction(ctx context.Context, key store.SlotKey, fn func(ctx context.Context, tx store.SlotTx) error) error {
	if !s.advisory {
		unlock, err := s.slots.lock(ctx, key.String())
		if err != nil {
			return storageError("lock slot", err)
		}
		defer unlock()
	}

	var fnErr error
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if s.advisory {
			if err := lockSlot(ctx, tx, key); err != nil {
				return err
			}
		}
		fnErr = fn(ctx, slotTx{tx: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return storageError("slot transaction", err)
	}
	return nil
}

// lockSlot takes a transaction-scoped advisory lock; PostgreSQL releases it on
// commit or rollback.
func lockSlot(ctx context.Context, tx bun.Tx, key store.SlotKey) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key.String()).Exec(ctx)
	return err
}

// keyedMutex is a set of mutexes created on demand per key. Waiters give up
// when their context is done.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(key, l)
		})
	}, nil
}

func (k *keyedMutex) release(key string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
