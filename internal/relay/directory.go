package relay

import "sync"

// ConnectionDirectory tracks which connection currently represents which
// user. One entry per user; a later Register for the same user overwrites
// the earlier one, so an old connection (even if still open) becomes
// unreachable through the directory until it disconnects on its own.
//
// The directory is in-memory only. It starts empty at process boot and is
// exclusively owned by the ChatRelay; nothing else mutates it.
type ConnectionDirectory struct {
	mu     sync.RWMutex
	byUser map[string]string // userID -> connectionID
}

func NewConnectionDirectory() *ConnectionDirectory {
	return &ConnectionDirectory{
		byUser: make(map[string]string),
	}
}

// Register inserts or overwrites the entry for userID. It never fails; a
// previous mapping for the same user is silently discarded (the old
// connection is not closed here).
func (d *ConnectionDirectory) Register(userID, connID string) {
	d.mu.Lock()
	d.byUser[userID] = connID
	d.mu.Unlock()
}

// Lookup returns the connection id currently registered for userID.
func (d *ConnectionDirectory) Lookup(userID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	connID, ok := d.byUser[userID]
	return connID, ok
}

// RemoveByConnection removes the entry whose value equals connID, if any,
// and reports which user owned it. The disconnect event only carries the
// connection identity, so this is a linear scan by value rather than a key
// lookup. The table is bounded by the number of concurrently connected
// users; if that ever grows past a few thousand, maintain a reverse index
// alongside instead.
//
// A miss is a silent no-op: connections that close before registering are
// normal.
func (d *ConnectionDirectory) RemoveByConnection(connID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for userID, id := range d.byUser {
		if id == connID {
			delete(d.byUser, userID)
			return userID, true
		}
	}
	return "", false
}

// Len returns the number of registered users.
func (d *ConnectionDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byUser)
}
