// Package presence tracks which logical users currently hold live
// connections.
package presence

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Mirror reflects online membership into shared storage so the REST API can
// answer online queries without talking to a relay instance.
type Mirror interface {
	Add(ctx context.Context, userID string) error
	Remove(ctx context.Context, userID string) error
}

// Tracker owns the connection -> user table. A user with several live
// connections holds one entry per connection; the roster reports each user
// once regardless.
type Tracker struct {
	mu     sync.RWMutex
	conns  map[string]string // connection ID -> user ID
	mirror Mirror
}

// NewTracker builds a tracker. mirror may be nil.
func NewTracker(mirror Mirror) *Tracker {
	return &Tracker{conns: make(map[string]string), mirror: mirror}
}

// Register binds a connection to a user, overwriting any previous binding for
// the same connection.
func (t *Tracker) Register(ctx context.Context, connID, userID string) {
	t.mu.Lock()
	prev, rebound := t.conns[connID]
	t.conns[connID] = userID
	lastOfPrev := rebound && prev != userID && !t.hasUserLocked(prev)
	t.mu.Unlock()

	if t.mirror == nil {
		return
	}
	if lastOfPrev {
		if err := t.mirror.Remove(ctx, prev); err != nil {
			log.Printf("presence: mirror remove %s: %v", prev, err)
		}
	}
	if err := t.mirror.Add(ctx, userID); err != nil {
		log.Printf("presence: mirror add %s: %v", userID, err)
	}
}

// Deregister drops a connection's entry. Unknown connections are a no-op.
func (t *Tracker) Deregister(ctx context.Context, connID string) {
	t.mu.Lock()
	userID, ok := t.conns[connID]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.conns, connID)
	lastConn := !t.hasUserLocked(userID)
	t.mu.Unlock()

	if lastConn && t.mirror != nil {
		if err := t.mirror.Remove(ctx, userID); err != nil {
			log.Printf("presence: mirror remove %s: %v", userID, err)
		}
	}
}

// IsOnline reports whether at least one connection is bound to userID.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hasUserLocked(userID)
}

// Roster returns the online user IDs, deduplicated and sorted. A user on
// several devices appears once.
func (t *Tracker) Roster() []string {
	t.mu.RLock()
	users := lo.Values(t.conns)
	t.mu.RUnlock()

	users = lo.Uniq(users)
	sort.Strings(users)
	return users
}

func (t *Tracker) hasUserLocked(userID string) bool {
	for _, u := range t.conns {
		if u == userID {
			return true
		}
	}
	return false
}
