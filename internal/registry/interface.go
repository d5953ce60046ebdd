package registry

// Registry tracks which live sessions are currently present in which rooms.
// Presence is ephemeral: it exists only in this process and is rebuilt by
// clients re-joining after a restart. It is distinct from the durable
// class-membership fact, which internal/client answers.
type Registry interface {
	// Join registers the session in the room. Idempotent: joining a room
	// already joined is a no-op.
	Join(sessionID, roomID string)

	// Leave removes the session from the room.
	Leave(sessionID, roomID string)

	// DropSession removes the session from every room. Safe to call more
	// than once; no stale entry survives it.
	DropSession(sessionID string)

	// MembersOf returns a snapshot of the session IDs present in the room.
	MembersOf(roomID string) []string

	// Rooms returns a snapshot of the rooms the session is present in.
	Rooms(sessionID string) []string
}
