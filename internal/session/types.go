package session

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrReadOnly is returned when a normal mutating operation targets a
// read-only (live view) session.
var ErrReadOnly = errors.New("document is read only")

type OpType string

const (
	OpInsert OpType = "insert"
	OpDelete OpType = "delete"
)

// TextOp is a position-based edit. Index and Length are character offsets
// into the content as the server currently holds it; BaseVersion is attached
// by clients but never consulted when applying.
type TextOp struct {
	Type        OpType `json:"type"`
	Index       int    `json:"index"`
	Text        string `json:"text,omitempty"`
	Length      int    `json:"length,omitempty"`
	BaseVersion int64  `json:"baseVersion"`
	ClientID    string `json:"clientId,omitempty"`
}

// AppliedOperation is one recorded edit. Exactly one of Op or Delta is set:
// Op for position-based text edits, Delta for opaque rich deltas the engine
// relays without interpreting.
type AppliedOperation struct {
	SocketID  string          `json:"socketId"`
	Timestamp time.Time       `json:"timestamp"`
	Op        *TextOp         `json:"op,omitempty"`
	Delta     json.RawMessage `json:"delta,omitempty"`
}

// HistorySnapshot is one full-content save.
type HistorySnapshot struct {
	Version   int64     `json:"version"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// State is a point-in-time read of a session.
type State struct {
	Content  string `json:"content"`
	Version  int64  `json:"version"`
	ReadOnly bool   `json:"readOnly"`
}
