package models

import (
	"testing"
	"time"
)

func TestNewRoom(t *testing.T) {
	before := time.Now()
	room := NewRoom("room1", "a")

	if room.ID != "room1" {
		t.Errorf("Expected ID 'room1', got '%s'", room.ID)
	}
	if room.CreatedAt.Before(before) {
		t.Error("CreatedAt should be set at construction")
	}
	if got := room.Members(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Expected members [a], got %v", got)
	}
	if !room.hasMember("a") {
		t.Error("creator should be a member")
	}
}

func TestAddMember(t *testing.T) {
	room := NewRoom("room1", "a")

	if !room.AddMember("b") {
		t.Error("adding a new member should report a change")
	}
	if room.AddMember("b") {
		t.Error("adding an existing member should be a no-op")
	}
	room.AddMember("c")

	want := []string{"a", "b", "c"}
	got := room.Members()
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("member %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRemoveMember(t *testing.T) {
	room := NewRoom("room1", "a")
	room.AddMember("b")
	room.AddMember("c")

	if !room.RemoveMember("b") {
		t.Error("removing a member should report a change")
	}
	if room.RemoveMember("b") {
		t.Error("removing twice should be a no-op")
	}
	if room.hasMember("b") {
		t.Error("b should no longer be a member")
	}
	if got := room.Members(); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("Expected [a c], got %v", got)
	}

	room.RemoveMember("a")
	room.RemoveMember("c")
	if !room.IsEmpty() || room.Len() != 0 {
		t.Error("room should be empty")
	}
}

func TestMembersReturnsCopy(t *testing.T) {
	room := NewRoom("room1", "a")
	members := room.Members()
	members[0] = "mutated"

	if !room.hasMember("a") || room.Members()[0] != "a" {
		t.Error("Members() must not expose internal storage")
	}
}
