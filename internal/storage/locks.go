package storage

import (
	"fmt"
	"sync"
)

// keyedLocks serializes mutating operations per message directory. Locks are
// created on demand and dropped when the last holder releases them, so the map
// never grows with the number of messages seen.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*lockEntry)}
}

// acquire blocks until the lock for key is held and returns the release func
func (k *keyedLocks) acquire(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// messageKey builds the lock key for one mailbox/message scope. No lock ever
// spans multiple mailboxes.
func messageKey(mailbox string, uid uint32) string {
	return fmt.Sprintf("%s/%d", mailbox, uid)
}
