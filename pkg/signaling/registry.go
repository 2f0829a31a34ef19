package signaling

import (
	"sync"
	"time"

	"github.com/LingByte/LingSignal/pkg/models"
	"go.uber.org/zap"
)

// Registry maps room ids to their members. Every method is atomic; a room
// exists exactly while it has at least one member.
type Registry struct {
	rooms  map[string]*models.Room
	mu     sync.RWMutex
	logger *zap.Logger
}

// RoomInfo is a read-only snapshot of one room.
type RoomInfo struct {
	ID        string
	Members   []string
	CreatedAt time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:  make(map[string]*models.Room),
		logger: logger,
	}
}

// Create opens roomID with member as its only participant.
func (r *Registry) Create(roomID, member string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; exists {
		return nil, ErrRoomAlreadyExists
	}
	room := models.NewRoom(roomID, member)
	r.rooms[roomID] = room
	r.logger.Info("room created", zap.String("room_id", roomID), zap.String("client_id", member))
	return room.Members(), nil
}

// Join adds member to an existing room. Joining twice is a no-op.
func (r *Registry) Join(roomID, member string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	if room.AddMember(member) {
		r.logger.Debug("room joined", zap.String("room_id", roomID), zap.String("client_id", member), zap.Int("members", room.Len()))
	}
	return room.Members(), nil
}

// Leave removes member from roomID and deletes the room if that emptied it.
// It returns the remaining members and whether member was present. An
// unknown room is not an error.
func (r *Registry) Leave(roomID, member string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return []string{}, false
	}
	removed := room.RemoveMember(member)
	if room.IsEmpty() {
		delete(r.rooms, roomID)
		r.logger.Info("room deleted", zap.String("room_id", roomID))
	}
	return room.Members(), removed
}

// MembersOf returns the room's members in join order, or nil.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, exists := r.rooms[roomID]
	if !exists {
		return nil
	}
	return room.Members()
}

func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.rooms[roomID]
	return exists
}

// Get retrieves a snapshot of a room by ID
func (r *Registry) Get(roomID string) (RoomInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, exists := r.rooms[roomID]
	if !exists {
		return RoomInfo{}, false
	}
	return RoomInfo{ID: room.ID, Members: room.Members(), CreatedAt: room.CreatedAt}, true
}

// Len returns the number of open rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Rooms returns the ids of all open rooms.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	return ids
}
