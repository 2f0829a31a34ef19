package models

import "time"

// Room is a named group of connection identities. Members keep join order.
//
// Room is not safe for concurrent use; the registry that owns it serializes
// access.
type Room struct {
	ID        string
	CreatedAt time.Time
	members   []string
	index     map[string]struct{}
}

// NewRoom creates a room whose only member is first.
func NewRoom(id, first string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		members:   []string{first},
		index:     map[string]struct{}{first: {}},
	}
}

// AddMember appends id unless it is already present. It reports whether the
// membership changed.
func (r *Room) AddMember(id string) bool {
	if _, ok := r.index[id]; ok {
		return false
	}
	r.index[id] = struct{}{}
	r.members = append(r.members, id)
	return true
}

// RemoveMember deletes id, preserving the order of the others.
func (r *Room) RemoveMember(id string) bool {
	if _, ok := r.index[id]; !ok {
		return false
	}
	delete(r.index, id)
	for i, m := range r.members {
		if m == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	return true
}

func (r *Room) hasMember(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Members returns a copy of the member list.
func (r *Room) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) Len() int {
	return len(r.members)
}

func (r *Room) IsEmpty() bool {
	return len(r.members) == 0
}
