package hub

import "sync"

// PresenceRegistry derives each user's online status from their set of
// live connection ids. It owns its map outright: the hub reports
// connection edges, everything else queries. State lives for the
// process lifetime only and is rebuilt from scratch on restart.
type PresenceRegistry struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{}
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		conns: make(map[string]map[string]struct{}),
	}
}

// Add records a connection for userID and reports whether it was the
// user's first, i.e. the online transition. Additional tabs return
// false and must not re-announce the user.
func (p *PresenceRegistry) Add(userID, connID string) (first bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		p.conns[userID] = set
	}
	first = len(set) == 0
	set[connID] = struct{}{}
	return first
}

// Remove drops a connection and reports whether the user's set became
// empty, i.e. the offline transition. Closing one of several tabs
// returns false.
func (p *PresenceRegistry) Remove(userID, connID string) (last bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		return false
	}
	if _, exists := set[connID]; !exists {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(p.conns, userID)
		return true
	}
	return false
}

// IsOnline reports whether userID has at least one live connection.
func (p *PresenceRegistry) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set, ok := p.conns[userID]
	return ok && len(set) > 0
}

// OnlineUsers returns a snapshot of all currently online user ids.
func (p *PresenceRegistry) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]string, 0, len(p.conns))
	for userID := range p.conns {
		users = append(users, userID)
	}
	return users
}

// Connections returns the number of live connections for userID.
func (p *PresenceRegistry) Connections(userID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns[userID])
}
