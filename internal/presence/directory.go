// Package presence tracks who is currently in each document room.
package presence

import "sync"

// Participant is one live connection in a room.
type Participant struct {
	SocketID string `json:"socketId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
}

// DefaultColor is what cursors fall back to for a connection that never
// announced itself.
const DefaultColor = "#3b82f6"

var palette = []string{
	"#ef4444",
	"#f97316",
	"#f59e0b",
	"#10b981",
	"#06b6d4",
	"#3b82f6",
	"#7c3aed",
}

// PickColor derives a stable palette color from a connection id.
func PickColor(seed string) string {
	var s int32
	for _, c := range seed {
		s = s*31 + int32(c)
	}
	if s < 0 {
		s = -s
	}
	return palette[int(s)%len(palette)]
}

// Directory is the per-document map of connection -> participant. It is the
// sole writer of participant entries; rooms hold participants in join order.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string][]Participant
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string][]Participant)}
}

// Join registers a connection in a document room. Idempotent per socket id:
// a rejoin updates the name in place and keeps the original position.
func (d *Directory) Join(docID, socketID, name string) Participant {
	if name == "" {
		name = "User-" + tail(socketID, 4)
	}

	p := Participant{
		SocketID: socketID,
		Name:     name,
		Color:    PickColor(socketID),
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	room := d.rooms[docID]
	for i := range room {
		if room[i].SocketID == socketID {
			room[i] = p
			return p
		}
	}
	d.rooms[docID] = append(room, p)
	return p
}

// Leave removes a connection from a document room.
func (d *Directory) Leave(docID, socketID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room := d.rooms[docID]
	for i := range room {
		if room[i].SocketID == socketID {
			d.rooms[docID] = append(room[:i], room[i+1:]...)
			return
		}
	}
}

// List returns the room's participants in join order.
func (d *Directory) List(docID string) []Participant {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room := make([]Participant, len(d.rooms[docID]))
	copy(room, d.rooms[docID])
	return room
}

// Lookup finds one participant in a room.
func (d *Directory) Lookup(docID, socketID string) (Participant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, p := range d.rooms[docID] {
		if p.SocketID == socketID {
			return p, true
		}
	}
	return Participant{}, false
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
