package reconcile

import "sync"

// lockTable hands out one mutex per fundraiser id so reconciliation passes on
// the same fundraiser serialize while different fundraisers proceed in
// parallel. Entries are reference counted and dropped once unused.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*lockEntry)}
}

func (t *lockTable) lock(key string) *lockEntry {
	t.mu.Lock()
	entry, ok := t.locks[key]
	if !ok {
		entry = &lockEntry{}
		t.locks[key] = entry
	}
	entry.refs++
	t.mu.Unlock()

	entry.mu.Lock()
	return entry
}

func (t *lockTable) unlock(key string, entry *lockEntry) {
	entry.mu.Unlock()

	t.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(t.locks, key)
	}
	t.mu.Unlock()
}
