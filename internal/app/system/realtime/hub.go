// internal/app/system/realtime/hub.go
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event types pushed to group rooms.
const (
	EventMessageCreated = "message.created"
	EventMessageUpdated = "message.updated"
	EventMessageDeleted = "message.deleted"
)

// Event is one JSON frame sent to subscribers of a group.
type Event struct {
	Type    string `json:"type"`
	GroupID string `json:"group_id"`
	Data    any    `json:"data,omitempty"`
}

// Publisher is what services use to push events. A nil Publisher is never
// passed; use Nop when push is disabled.
type Publisher interface {
	Publish(ev Event)
}

// Rooms is a Publisher that also evicts subscribers when membership
// changes.
type Rooms interface {
	Publisher
	DropUser(groupID, userID string)
	CloseGroup(groupID string)
}

// Nop discards events.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(Event) {}

// DropUser does nothing.
func (Nop) DropUser(string, string) {}

// CloseGroup does nothing.
func (Nop) CloseGroup(string) {}

// Hub keeps one room per group and fans events out to its subscribers.
// Polling remains the source of truth; the hub only shortens the delay.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Subscriber // groupID -> subscriberID -> subscriber
	log   *zap.Logger
}

// NewHub constructs an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{rooms: make(map[string]map[string]Subscriber), log: logger}
}

// Subscribe adds s to the group's room.
func (h *Hub) Subscribe(groupID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[groupID]
	if room == nil {
		room = make(map[string]Subscriber)
		h.rooms[groupID] = room
	}
	room[s.ID()] = s
}

// Unsubscribe removes s from the group's room.
func (h *Hub) Unsubscribe(groupID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(groupID, s.ID())
}

func (h *Hub) removeLocked(groupID, id string) {
	room := h.rooms[groupID]
	if room == nil {
		return
	}
	delete(room, id)
	if len(room) == 0 {
		delete(h.rooms, groupID)
	}
}

// Count returns the number of subscribers in a group's room.
func (h *Hub) Count(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[groupID])
}

// Stats returns the number of open rooms and connected subscribers.
func (h *Hub) Stats() (rooms, subscribers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, room := range h.rooms {
		subscribers += len(room)
	}
	return len(h.rooms), subscribers
}

// Broadcast sends payload to every subscriber of the group and returns how
// many accepted it.
func (h *Hub) Broadcast(groupID string, payload []byte) int {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.rooms[groupID]))
	for _, s := range h.rooms[groupID] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if err := s.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Publish encodes ev and broadcasts it to ev.GroupID.
func (h *Hub) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("realtime: encode event failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	h.Broadcast(ev.GroupID, payload)
}

// DropUser disconnects a user's subscriptions to one group (after they
// leave it or are removed).
func (h *Hub) DropUser(groupID, userID string) {
	h.mu.Lock()
	var drop []Subscriber
	for id, s := range h.rooms[groupID] {
		if s.UserID() == userID {
			drop = append(drop, s)
			h.removeLocked(groupID, id)
		}
	}
	h.mu.Unlock()
	for _, s := range drop {
		s.Close(4003, "membership ended")
	}
}

// CloseGroup disconnects everyone subscribed to a deleted group.
func (h *Hub) CloseGroup(groupID string) {
	h.mu.Lock()
	room := h.rooms[groupID]
	delete(h.rooms, groupID)
	h.mu.Unlock()
	for _, s := range room {
		s.Close(4004, "group deleted")
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]map[string]Subscriber)
	h.mu.Unlock()
	for _, room := range rooms {
		for _, s := range room {
			s.Close(1001, "server shutdown")
		}
	}
}
