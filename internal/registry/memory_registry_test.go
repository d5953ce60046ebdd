package registry

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestJoinAndMembers(t *testing.T) {
	reg := NewMemoryRegistry()

	reg.Join("s1", "room-1")
	reg.Join("s2", "room-1")
	reg.Join("s3", "room-2")

	members := reg.MembersOf("room-1")
	sort.Strings(members)
	if len(members) != 2 || members[0] != "s1" || members[1] != "s2" {
		t.Errorf("unexpected members: %v", members)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	reg := NewMemoryRegistry()

	reg.Join("s1", "room-1")
	reg.Join("s1", "room-1")
	reg.Join("s1", "room-1")

	if got := reg.MembersOf("room-1"); len(got) != 1 {
		t.Errorf("repeated join duplicated membership: %v", got)
	}
}

func TestSessionMayJoinMultipleRooms(t *testing.T) {
	reg := NewMemoryRegistry()

	reg.Join("s1", "room-1")
	reg.Join("s1", "room-2")

	rooms := reg.Rooms("s1")
	sort.Strings(rooms)
	if len(rooms) != 2 || rooms[0] != "room-1" || rooms[1] != "room-2" {
		t.Errorf("unexpected rooms: %v", rooms)
	}
}

func TestLeave(t *testing.T) {
	reg := NewMemoryRegistry()

	reg.Join("s1", "room-1")
	reg.Join("s2", "room-1")
	reg.Leave("s1", "room-1")

	if got := reg.MembersOf("room-1"); len(got) != 1 || got[0] != "s2" {
		t.Errorf("unexpected members after leave: %v", got)
	}
	if got := reg.Rooms("s1"); len(got) != 0 {
		t.Errorf("session still in rooms after leave: %v", got)
	}
}

func TestDropSessionRemovesAllPresence(t *testing.T) {
	reg := NewMemoryRegistry()

	reg.Join("s1", "room-1")
	reg.Join("s1", "room-2")
	reg.Join("s2", "room-1")

	reg.DropSession("s1")

	if got := reg.MembersOf("room-1"); len(got) != 1 || got[0] != "s2" {
		t.Errorf("unexpected room-1 members: %v", got)
	}
	if got := reg.MembersOf("room-2"); len(got) != 0 {
		t.Errorf("unexpected room-2 members: %v", got)
	}
	if got := reg.Rooms("s1"); len(got) != 0 {
		t.Errorf("dropped session still present: %v", got)
	}
}

func TestDropSessionIsRepeatable(t *testing.T) {
	reg := NewMemoryRegistry()

	reg.Join("s1", "room-1")
	reg.DropSession("s1")
	reg.DropSession("s1")
	reg.DropSession("unknown")

	if got := reg.MembersOf("room-1"); len(got) != 0 {
		t.Errorf("unexpected members: %v", got)
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	reg := NewMemoryRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("s%d", n)
			reg.Join(sessionID, "room-1")
			reg.Join(sessionID, "room-2")
			reg.Leave(sessionID, "room-2")
			if n%2 == 0 {
				reg.DropSession(sessionID)
			}
		}(i)
	}
	wg.Wait()

	if got := len(reg.MembersOf("room-1")); got != 10 {
		t.Errorf("room-1 members = %d, want 10", got)
	}
	if got := len(reg.MembersOf("room-2")); got != 0 {
		t.Errorf("room-2 members = %d, want 0", got)
	}
}
