// Package history keeps the two append-only per-document records: the raw
// operation log and the full-content snapshot history. The two are
// independent, nothing reconciles positions between them.
package history

import (
	"sync"
	"time"

	"echodocs-server/internal/session"
)

type Archive struct {
	mu    sync.RWMutex
	ops   map[string][]session.AppliedOperation
	snaps map[string][]session.HistorySnapshot
}

func NewArchive() *Archive {
	return &Archive{
		ops:   make(map[string][]session.AppliedOperation),
		snaps: make(map[string][]session.HistorySnapshot),
	}
}

// RecordOperation appends one applied edit to the document's op log.
func (a *Archive) RecordOperation(docID string, op session.AppliedOperation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ops[docID] = append(a.ops[docID], op)
}

// RecordSnapshot appends one full-content save to the document's history.
func (a *Archive) RecordSnapshot(docID string, content string, version int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snaps[docID] = append(a.snaps[docID], session.HistorySnapshot{
		Version:   version,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

// Operations returns the op log in record order. The result is a copy, it
// stays valid while new operations are appended.
func (a *Archive) Operations(docID string) []session.AppliedOperation {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ops := make([]session.AppliedOperation, len(a.ops[docID]))
	copy(ops, a.ops[docID])
	return ops
}

// Snapshots returns the version timeline in record order.
func (a *Archive) Snapshots(docID string) []session.HistorySnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	snaps := make([]session.HistorySnapshot, len(a.snaps[docID]))
	copy(snaps, a.snaps[docID])
	return snaps
}

// Replay walks the op log in order without touching any live session. It is
// the read behind the replay animation, a pure projection of what happened.
func (a *Archive) Replay(docID string, visit func(session.AppliedOperation) bool) {
	for _, op := range a.Operations(docID) {
		if !visit(op) {
			return
		}
	}
}
