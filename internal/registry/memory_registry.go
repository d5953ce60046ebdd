package registry

import "sync"

// MemoryRegistry is the in-process Registry implementation. Both indexes
// (room -> sessions and session -> rooms) mutate under one mutex so a
// concurrent Join and DropSession on the same room can never leave them
// disagreeing.
type MemoryRegistry struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]struct{} // roomID -> sessionIDs
	sessions map[string]map[string]struct{} // sessionID -> roomIDs
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		rooms:    make(map[string]map[string]struct{}),
		sessions: make(map[string]map[string]struct{}),
	}
}

// Join registers the session in the room.
func (r *MemoryRegistry) Join(sessionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][sessionID] = struct{}{}

	if _, ok := r.sessions[sessionID]; !ok {
		r.sessions[sessionID] = make(map[string]struct{})
	}
	r.sessions[sessionID][roomID] = struct{}{}
}

// Leave removes the session from the room.
func (r *MemoryRegistry) Leave(sessionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(sessionID, roomID)
}

// DropSession removes the session from every room it joined.
func (r *MemoryRegistry) DropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.sessions[sessionID] {
		r.removeLocked(sessionID, roomID)
	}
	delete(r.sessions, sessionID)
}

// MembersOf returns a snapshot of the session IDs present in the room.
func (r *MemoryRegistry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.rooms[roomID]))
	for sessionID := range r.rooms[roomID] {
		members = append(members, sessionID)
	}
	return members
}

// Rooms returns a snapshot of the rooms the session is present in.
func (r *MemoryRegistry) Rooms(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.sessions[sessionID]))
	for roomID := range r.sessions[sessionID] {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (r *MemoryRegistry) removeLocked(sessionID, roomID string) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if rooms, ok := r.sessions[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.sessions, sessionID)
		}
	}
}
