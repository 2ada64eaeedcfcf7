package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maps document rooms to their live connections. Delivery is best
// effort: a recipient whose send buffer is full just misses that message,
// nobody else in the room is held up.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

func (h *Hub) join(docID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[docID]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[docID] = room
	}
	room[c] = struct{}{}
	c.joined[docID] = struct{}{}
}

// leaveAll removes the client from every room it joined and returns those
// room ids so the caller can broadcast updated presence to each.
func (h *Hub) leaveAll(c *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	docIDs := make([]string, 0, len(c.joined))
	for docID := range c.joined {
		docIDs = append(docIDs, docID)
		if room := h.rooms[docID]; room != nil {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, docID)
			}
		}
	}
	c.joined = make(map[string]struct{})
	return docIDs
}

// Broadcast sends payload to every connection in the room.
func (h *Hub) Broadcast(docID string, payload any) {
	h.send(docID, nil, payload)
}

// BroadcastExcept sends payload to the room minus one connection.
func (h *Hub) BroadcastExcept(docID string, except *Client, payload any) {
	h.send(docID, except, payload)
}

func (h *Hub) send(docID string, except *Client, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Broadcast marshal failed for %s: %v", docID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[docID] {
		if c == except {
			continue
		}
		select {
		case c.send <- raw:
		default:
			log.Printf("Dropping message for slow client %s in %s", c.id, docID)
		}
	}
}
