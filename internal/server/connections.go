package server

import (
	"sync"
)

// ConnectionManager tracks open sessions and which one sits in which seat.
// The reactor writes; the status page reads.
type ConnectionManager struct {
	sessions map[string]*Session // sessionID → session
	seats    map[int]string      // seat → sessionID
	mu       sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		sessions: make(map[string]*Session),
		seats:    make(map[int]string),
	}
}

func (cm *ConnectionManager) AddSession(session *Session) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.sessions[session.Id] = session
}

// RemoveSession forgets a session and frees its seat. It reports whether
// the session was still registered.
func (cm *ConnectionManager) RemoveSession(id string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.sessions[id]; !exists {
		return false
	}
	delete(cm.sessions, id)

	for seat, sessionID := range cm.seats {
		if sessionID == id {
			delete(cm.seats, seat)
		}
	}
	return true
}

// GetSession returns the session for an id, or nil
func (cm *ConnectionManager) GetSession(id string) *Session {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.sessions[id]
}

// BindSeat records that session plays in seat
func (cm *ConnectionManager) BindSeat(seat int, session *Session) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	session.seat = seat
	cm.seats[seat] = session.Id
}

// GetSessionBySeat returns the session seated at seat, or nil
func (cm *ConnectionManager) GetSessionBySeat(seat int) *Session {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	id, exists := cm.seats[seat]
	if !exists {
		return nil
	}
	return cm.sessions[id]
}

// Seated returns the seated sessions
func (cm *ConnectionManager) Seated() []*Session {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	seated := make([]*Session, 0, len(cm.seats))
	for _, id := range cm.seats {
		if session, exists := cm.sessions[id]; exists {
			seated = append(seated, session)
		}
	}
	return seated
}

// All returns every open session, seated or not
func (cm *ConnectionManager) All() []*Session {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	all := make([]*Session, 0, len(cm.sessions))
	for _, session := range cm.sessions {
		all = append(all, session)
	}
	return all
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.sessions)
}
