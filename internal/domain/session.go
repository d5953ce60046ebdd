package domain

import (
	"sync"
	"time"
)

// Session is one live websocket connection. A user may hold several
// concurrent sessions; each is registered and receives deliveries
// independently. Sessions are never persisted.
type Session struct {
	ID            string
	UserID        string
	Username      string
	Authenticated bool
	joinedRooms   map[string]struct{}
	CreatedAt     time.Time
	LastActiveAt  time.Time
	mu            sync.RWMutex
}

// NewSession creates an unauthenticated session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		joinedRooms:  make(map[string]struct{}),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Authenticate marks the session as belonging to the given principal.
func (s *Session) Authenticate(userID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserID = userID
	s.Username = username
	s.Authenticated = true
	s.LastActiveAt = time.Now()
}

// IsAuthenticated reports whether the session has a principal.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Authenticated
}

// JoinRoom records the room in the session's joined set. Idempotent.
func (s *Session) JoinRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinedRooms[roomID] = struct{}{}
	s.LastActiveAt = time.Now()
}

// LeaveRoom removes the room from the joined set.
func (s *Session) LeaveRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.joinedRooms, roomID)
	s.LastActiveAt = time.Now()
}

// InRoom reports whether the session has joined the room.
func (s *Session) InRoom(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.joinedRooms[roomID]
	return ok
}

// Rooms returns a snapshot of the joined room IDs.
func (s *Session) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]string, 0, len(s.joinedRooms))
	for roomID := range s.joinedRooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// GetUserID returns the authenticated user ID.
func (s *Session) GetUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.UserID
}

// GetUsername returns the authenticated username.
func (s *Session) GetUsername() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Username
}

// UpdateActivity refreshes the last-active timestamp.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
