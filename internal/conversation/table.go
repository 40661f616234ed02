// Package conversation holds the per-user conversational state: the keyed
// state table and the multi-step authoring and broadcast sessions.
package conversation

import "sync"

// State is one variant of a user's in-progress conversation.
type State interface {
	Name() string
}

// EditingTitle waits for the new title of an existing batch.
type EditingTitle struct {
	BatchID string
}

func (EditingTitle) Name() string { return "editing_title" }

// Searching waits for a search query.
type Searching struct{}

func (Searching) Name() string { return "searching" }

type userLock struct {
	mu   sync.Mutex
	refs int
}

// Table maps user IDs to their current conversation state. A user without an
// entry has no conversation in progress.
type Table struct {
	mu     sync.Mutex
	states map[int64]State
	locks  map[int64]*userLock
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		states: make(map[int64]State),
		locks:  make(map[int64]*userLock),
	}
}

// Lock serializes transitions for one user. Events of different users do not
// contend. The returned function releases the lock.
func (t *Table) Lock(userID int64) (unlock func()) {
	t.mu.Lock()
	l, ok := t.locks[userID]
	if !ok {
		l = &userLock{}
		t.locks[userID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, userID)
		}
		t.mu.Unlock()
	}
}

// Get returns the user's state, or nil.
func (t *Table) Get(userID int64) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[userID]
}

// Set replaces whatever state the user had.
func (t *Table) Set(userID int64, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[userID] = s
}

// Clear removes the user's state and returns what was there.
func (t *Table) Clear(userID int64) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.states[userID]
	delete(t.states, userID)
	return s
}

// Len returns the number of users with a conversation in progress.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}
