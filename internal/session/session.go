package session

import "sync"

// DocumentSession holds the authoritative state for one document id.
// All mutations for one document are serialized behind its own mutex, so the
// order operations take the lock is the total order the document sees.
type DocumentSession struct {
	ID       string
	readOnly bool

	mu      sync.Mutex
	content string
	version int64
}

func newSession(id string, content string, version int64, readOnly bool) *DocumentSession {
	return &DocumentSession{
		ID:       id,
		readOnly: readOnly,
		content:  content,
		version:  version,
	}
}

func (d *DocumentSession) ReadOnly() bool {
	return d.readOnly
}

// Snapshot returns the current content/version/readOnly as one consistent read.
func (d *DocumentSession) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{Content: d.content, Version: d.version, ReadOnly: d.readOnly}
}

// ApplyText applies op against the current content, in whatever order callers
// reach the lock. Out-of-range offsets are clamped, never an error. The
// version advances by exactly 1, including for op types we don't recognize
// (the content is just left unchanged then).
//
// onCommit runs while the document lock is still held, so anything recorded
// there observes commits in version order.
func (d *DocumentSession) ApplyText(op TextOp, onCommit func(State)) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readOnly {
		return State{}, ErrReadOnly
	}

	d.content = applyText(d.content, op)
	d.version++

	st := State{Content: d.content, Version: d.version, ReadOnly: d.readOnly}
	if onCommit != nil {
		onCommit(st)
	}
	return st, nil
}

// Save overwrites the full content and advances the version. privileged
// bypasses the read-only gate; it is reserved for the owner pushing fresh
// content into a live-view fork. onCommit behaves as in ApplyText.
func (d *DocumentSession) Save(content string, privileged bool, onCommit func(State)) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readOnly && !privileged {
		return State{}, ErrReadOnly
	}

	d.content = content
	d.version++

	st := State{Content: d.content, Version: d.version, ReadOnly: d.readOnly}
	if onCommit != nil {
		onCommit(st)
	}
	return st, nil
}

func applyText(content string, op TextOp) string {
	runes := []rune(content)

	index := clamp(op.Index, 0, len(runes))

	switch op.Type {
	case OpInsert:
		return string(runes[:index]) + op.Text + string(runes[index:])
	case OpDelete:
		end := clamp(index+op.Length, index, len(runes))
		return string(runes[:index]) + string(runes[end:])
	}

	return content
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
