package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrLockHeld = errors.New("lock already held")

type Lock struct {
	store Store
	key   string
	token string
}

// AcquireLock takes the named lock for ttl. It fails with ErrLockHeld when
// another holder owns it.
func AcquireLock(ctx context.Context, store Store, name string, ttl time.Duration) (*Lock, error) {
	key := "lock:" + name
	token := uuid.NewString()

	ok, err := store.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return &Lock{store: store, key: key, token: token}, nil
}

// Release frees the lock if this holder still owns it.
func (l *Lock) Release(ctx context.Context) error {
	ok, err := l.store.CompareAndDelete(ctx, l.key, l.token)
	if err != nil {
		return err
	}
	if !ok {
		log.Warnf("Lock %s expired before release", l.key)
	}
	return nil
}
