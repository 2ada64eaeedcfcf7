package ws

import (
	"encoding/json"

	"echodocs-server/internal/presence"
	"echodocs-server/internal/session"
)

// Event names on the wire. One JSON envelope per message, tagged by "event".
const (
	EventJoin      = "join"
	EventLoad      = "load"
	EventOperation = "operation"
	EventAck       = "ack"
	EventDelta     = "delta"
	EventCursor    = "cursor"
	EventSave      = "save"
	EventPresence  = "presence"
)

// Envelope is the client->server message shape. Only the fields for the
// given event are set.
type Envelope struct {
	Event       string          `json:"event"`
	DocID       string          `json:"docId,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
	Op          *session.TextOp `json:"op,omitempty"`
	Delta       json.RawMessage `json:"delta,omitempty"`
	Index       *int            `json:"index,omitempty"`
	Range       json.RawMessage `json:"range,omitempty"`
	Content     *string         `json:"content,omitempty"`
}

type loadMessage struct {
	Event    string `json:"event"`
	Content  string `json:"content"`
	Version  int64  `json:"version"`
	ReadOnly bool   `json:"readOnly"`
}

type ackMessage struct {
	Event   string `json:"event"`
	Version int64  `json:"version"`
}

type operationMessage struct {
	Event   string          `json:"event"`
	Op      *session.TextOp `json:"op"`
	Version int64           `json:"version"`
}

type deltaMessage struct {
	Event string          `json:"event"`
	Delta json.RawMessage `json:"delta"`
}

type cursorMessage struct {
	Event         string          `json:"event"`
	ParticipantID string          `json:"participantId"`
	Index         *int            `json:"index,omitempty"`
	Range         json.RawMessage `json:"range,omitempty"`
	Name          string          `json:"name"`
	Color         string          `json:"color"`
}

type presenceMessage struct {
	Event        string                 `json:"event"`
	Participants []presence.Participant `json:"participants"`
}
