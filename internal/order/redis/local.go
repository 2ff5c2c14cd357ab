package redis

import (
	"context"
	"sync"
)

// LocalLock is the checkout guard used when no redis address is configured.
// It only protects checkouts served by this process.
type LocalLock struct {
	mu     sync.Mutex
	owners map[string]string // userID -> txID
}

func NewLocalLock() *LocalLock {
	return &LocalLock{owners: make(map[string]string)}
}

func (l *LocalLock) Acquire(_ context.Context, userID, txID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.owners[userID]; held {
		return false, nil
	}
	l.owners[userID] = txID
	return true, nil
}

// Release drops the guard only if txID still owns it.
func (l *LocalLock) Release(_ context.Context, userID, txID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owners[userID] == txID {
		delete(l.owners, userID)
	}
	return nil
}
