package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // rich documents can be large
)

// Client is one live websocket connection.
type Client struct {
	id   string
	gw   *Gateway
	conn *websocket.Conn
	send chan []byte

	// touched only from this client's readPump
	currentDoc string

	// guarded by the hub's lock
	joined map[string]struct{}
}

// enqueue marshals payload onto the client's send buffer. Best effort, like
// hub broadcasts.
func (c *Client) enqueue(payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Send marshal failed for %s: %v", c.id, err)
		return
	}
	select {
	case c.send <- raw:
	default:
		log.Printf("Dropping message for slow client %s", c.id)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.gw.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Client %s read error: %v", c.id, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("Client %s sent malformed message: %v", c.id, err)
			continue
		}

		c.gw.dispatch(c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
