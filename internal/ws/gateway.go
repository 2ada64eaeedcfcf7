// Package ws is the room/transport gateway: it upgrades connections, fans
// client events into the engine, and fans broadcasts back out to rooms.
package ws

import (
	"context"
	"log"
	"net/http"

	"echodocs-server/internal/engine"
	"echodocs-server/internal/presence"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin policy is enforced by the CORS layer in front; the socket
	// endpoint accepts whatever reaches it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Gateway struct {
	hub       *Hub
	engine    *engine.Engine
	directory *presence.Directory
}

func NewGateway(eng *engine.Engine, directory *presence.Directory) *Gateway {
	return &Gateway{
		hub:       NewHub(),
		engine:    eng,
		directory: directory,
	}
}

// HandleWS upgrades the request and runs the connection's pumps.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade failed: %v", err)
		return
	}

	c := &Client{
		id:     uuid.NewString(),
		gw:     g,
		conn:   conn,
		send:   make(chan []byte, 256),
		joined: make(map[string]struct{}),
	}

	log.Printf("[ws] connect %s", c.id)
	go c.writePump()
	go c.readPump()
}

func (g *Gateway) dispatch(c *Client, env Envelope) {
	switch env.Event {
	case EventJoin:
		g.handleJoin(c, env)
	case EventOperation:
		g.handleOperation(c, env)
	case EventDelta:
		g.handleDelta(c, env)
	case EventCursor:
		g.handleCursor(c, env)
	case EventSave:
		g.handleSave(c, env)
	default:
		log.Printf("Client %s sent unknown event %q", c.id, env.Event)
	}
}

func (g *Gateway) handleJoin(c *Client, env Envelope) {
	if env.DocID == "" {
		return
	}

	st := g.engine.Load(context.Background(), env.DocID)
	g.hub.join(env.DocID, c)
	c.currentDoc = env.DocID

	c.enqueue(loadMessage{
		Event:    EventLoad,
		Content:  st.Content,
		Version:  st.Version,
		ReadOnly: st.ReadOnly,
	})

	g.directory.Join(env.DocID, c.id, env.DisplayName)
	g.broadcastPresence(env.DocID)
}

func (g *Gateway) handleOperation(c *Client, env Envelope) {
	docID := c.docID(env)
	if docID == "" || env.Op == nil {
		return
	}

	st, err := g.engine.ApplyText(context.Background(), docID, c.id, *env.Op)
	if err != nil {
		// read-only session: silently no-op, never advance the version
		return
	}

	c.enqueue(ackMessage{Event: EventAck, Version: st.Version})

	// remote clients replay the same op verbatim against their own copy
	g.hub.BroadcastExcept(docID, c, operationMessage{
		Event:   EventOperation,
		Op:      env.Op,
		Version: st.Version,
	})
}

func (g *Gateway) handleDelta(c *Client, env Envelope) {
	docID := c.docID(env)
	if docID == "" || env.Delta == nil {
		return
	}

	// broadcast first; recording and persistence run decoupled behind this
	if g.engine.RelayDelta(context.Background(), docID, c.id, env.Delta) {
		g.hub.BroadcastExcept(docID, c, deltaMessage{Event: EventDelta, Delta: env.Delta})
	}
}

func (g *Gateway) handleCursor(c *Client, env Envelope) {
	docID := c.docID(env)
	if docID == "" {
		return
	}

	name, color := "Anon", presence.DefaultColor
	if p, found := g.directory.Lookup(docID, c.id); found {
		name, color = p.Name, p.Color
	}

	g.hub.BroadcastExcept(docID, c, cursorMessage{
		Event:         EventCursor,
		ParticipantID: c.id,
		Index:         env.Index,
		Range:         env.Range,
		Name:          name,
		Color:         color,
	})
}

func (g *Gateway) handleSave(c *Client, env Envelope) {
	docID := c.docID(env)
	if docID == "" || env.Content == nil {
		return
	}

	st, err := g.engine.Save(context.Background(), docID, *env.Content)
	if err != nil {
		// in-memory state may still have advanced; durable failure is
		// logged by the engine and the save simply goes unacked
		return
	}

	c.enqueue(ackMessage{Event: EventAck, Version: st.Version})
}

// disconnect cleans up every room the connection had joined, even when the
// drop happens mid-operation.
func (g *Gateway) disconnect(c *Client) {
	log.Printf("[ws] disconnect %s", c.id)

	for _, docID := range g.hub.leaveAll(c) {
		g.directory.Leave(docID, c.id)
		g.broadcastPresence(docID)
	}
	close(c.send)
}

func (g *Gateway) broadcastPresence(docID string) {
	g.hub.Broadcast(docID, presenceMessage{
		Event:        EventPresence,
		Participants: g.directory.List(docID),
	})
}

func (c *Client) docID(env Envelope) string {
	if env.DocID != "" {
		return env.DocID
	}
	return c.currentDoc
}
