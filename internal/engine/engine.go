// Package engine owns the consistency policy for document mutations.
//
// Text operations are applied against the server's current content in the
// order they reach the document lock; there is no transform, rebase, or
// rejection against the client's stated base version. Rich deltas are relayed
// first and recorded afterwards. Full-content saves are the only path that
// grows the snapshot history.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"echodocs-server/internal/contrib"
	"echodocs-server/internal/history"
	"echodocs-server/internal/session"
	"echodocs-server/internal/storage"
	"echodocs-server/internal/worker"
)

// ErrUnknownDocument is returned by explicit reads for ids never created.
// Mutating entry points lazily create instead.
var ErrUnknownDocument = errors.New("unknown document")

// ErrUnknownFork is returned by the privileged update path when the target
// does not exist or is not a read-only fork.
var ErrUnknownFork = errors.New("unknown fork")

type Engine struct {
	store     *session.Store
	archive   *history.Archive
	accounts  *contrib.Accountant
	persister storage.DocumentStore // nil runs fully in memory
	pool      *worker.Pool
}

func New(
	store *session.Store,
	archive *history.Archive,
	accounts *contrib.Accountant,
	persister storage.DocumentStore,
	pool *worker.Pool,
) *Engine {
	return &Engine{
		store:     store,
		archive:   archive,
		accounts:  accounts,
		persister: persister,
		pool:      pool,
	}
}

// Load returns the current state of a document, lazily creating it.
func (e *Engine) Load(ctx context.Context, docID string) session.State {
	return e.lookup(ctx, docID).Snapshot()
}

// ApplyText serializes a position-based edit against the document, records it
// in the op log, tallies inserted length, and schedules a durable write. The
// returned state is what the origin gets acked and what the room sees as the
// new version; the op itself is rebroadcast unmodified by the gateway.
func (e *Engine) ApplyText(ctx context.Context, docID, socketID string, op session.TextOp) (session.State, error) {
	sess := e.lookup(ctx, docID)

	if op.Type != session.OpInsert && op.Type != session.OpDelete {
		log.Printf("Unsupported op type %q for %s", op.Type, docID)
	}

	st, err := sess.ApplyText(op, func(st session.State) {
		e.archive.RecordOperation(docID, session.AppliedOperation{
			SocketID:  socketID,
			Timestamp: time.Now().UTC(),
			Op:        &op,
		})
	})
	if err != nil {
		return session.State{}, err
	}

	if op.Type == session.OpInsert {
		e.accounts.Record(docID, socketID, utf8.RuneCountInString(op.Text))
	}

	e.persistAsync(docID, st)
	return st, nil
}

// RelayDelta decides whether an opaque rich delta may be broadcast and, when
// it may, schedules the bookkeeping (op log entry, contribution tally) off the
// broadcast path. The caller fans the delta out as soon as this returns true;
// recording can race with delivery by design.
func (e *Engine) RelayDelta(ctx context.Context, docID, socketID string, delta json.RawMessage) bool {
	sess := e.lookup(ctx, docID)
	if sess.ReadOnly() {
		return false
	}

	recorded := make(json.RawMessage, len(delta))
	copy(recorded, delta)

	e.submit(func(context.Context) error {
		e.archive.RecordOperation(docID, session.AppliedOperation{
			SocketID:  socketID,
			Timestamp: time.Now().UTC(),
			Delta:     recorded,
		})
		e.accounts.Record(docID, socketID, insertedLength(recorded))
		return nil
	})

	return true
}

// Save overwrites the document's full content, appends a history snapshot,
// and writes through to the store. The in-memory state is always updated; the
// returned error reports a failed durable write (or ErrReadOnly).
func (e *Engine) Save(ctx context.Context, docID, content string) (session.State, error) {
	return e.save(ctx, e.lookup(ctx, docID), content, false)
}

// UpdateFork is the privileged save the fork owner uses to push fresh content
// into a read-only live view. Anything that is not a read-only fork is
// rejected as unknown.
func (e *Engine) UpdateFork(ctx context.Context, forkID, content string) (session.State, error) {
	sess, found := e.store.Get(forkID)
	if !found || !sess.ReadOnly() {
		return session.State{}, ErrUnknownFork
	}
	return e.save(ctx, sess, content, true)
}

func (e *Engine) save(ctx context.Context, sess *session.DocumentSession, content string, privileged bool) (session.State, error) {
	st, err := sess.Save(content, privileged, func(st session.State) {
		e.archive.RecordSnapshot(sess.ID, st.Content, st.Version)
	})
	if err != nil {
		return session.State{}, err
	}

	if e.persister == nil {
		return st, nil
	}
	if err := e.persister.Save(ctx, sess.ID, st.Content, st.Version); err != nil {
		log.Printf("Durable save failed for %s: %v", sess.ID, err)
		return st, err
	}
	return st, nil
}

// ForkReadOnly creates a read-only live view seeded with content. Its history
// starts with a version-0 snapshot of the seed.
func (e *Engine) ForkReadOnly(content string) string {
	sess := e.store.ForkReadOnly(content)
	e.archive.RecordSnapshot(sess.ID, content, 0)
	e.persistAsync(sess.ID, sess.Snapshot())
	return sess.ID
}

// PromoteShared creates an independent writable document seeded with content.
func (e *Engine) PromoteShared(content string) string {
	sess := e.store.PromoteShared(content)
	e.archive.RecordSnapshot(sess.ID, content, 0)
	e.persistAsync(sess.ID, sess.Snapshot())
	return sess.ID
}

// CopyContent hands out the raw content for storing as a new personal
// document elsewhere. Read only, no new session is created here.
func (e *Engine) CopyContent(docID string) (string, error) {
	sess, found := e.store.Get(docID)
	if !found {
		return "", ErrUnknownDocument
	}
	return sess.Snapshot().Content, nil
}

// State is the explicit fetch read: unknown ids report not-found instead of
// being created.
func (e *Engine) State(docID string) (session.State, error) {
	sess, found := e.store.Get(docID)
	if !found {
		return session.State{}, ErrUnknownDocument
	}
	return sess.Snapshot(), nil
}

// History returns the document's version timeline.
func (e *Engine) History(docID string) ([]session.HistorySnapshot, error) {
	if _, found := e.store.Get(docID); !found {
		return nil, ErrUnknownDocument
	}
	return e.archive.Snapshots(docID), nil
}

// Operations returns the raw op log for replay.
func (e *Engine) Operations(docID string) ([]session.AppliedOperation, error) {
	if _, found := e.store.Get(docID); !found {
		return nil, ErrUnknownDocument
	}
	return e.archive.Operations(docID), nil
}

// Contributions returns the inserted-length tallies per connection.
func (e *Engine) Contributions(docID string) ([]contrib.Tally, error) {
	if _, found := e.store.Get(docID); !found {
		return nil, ErrUnknownDocument
	}
	return e.accounts.Snapshot(docID), nil
}

func (e *Engine) lookup(ctx context.Context, docID string) *session.DocumentSession {
	sess, created := e.store.GetOrCreate(ctx, docID)
	if created {
		// baseline snapshot so the timeline always has a version to scrub to
		st := sess.Snapshot()
		e.archive.RecordSnapshot(docID, st.Content, st.Version)
	}
	return sess
}

// persistAsync schedules a best-effort durable write. Failures are logged and
// the in-memory session keeps serving; the explicit save path is the one that
// surfaces durability errors.
func (e *Engine) persistAsync(docID string, st session.State) {
	if e.persister == nil {
		return
	}
	e.submit(func(ctx context.Context) error {
		return e.persister.Save(ctx, docID, st.Content, st.Version)
	})
}

// submit queues t on the pool, or runs it inline when no pool is configured.
func (e *Engine) submit(t worker.Task) {
	if e.pool == nil {
		if err := t(context.Background()); err != nil {
			log.Printf("Background task failed: %v", err)
		}
		return
	}
	e.pool.Submit(t)
}

// insertedLength sums the lengths of string inserts in a rich delta. This is
// the one structural peek the engine takes at deltas; everything else treats
// them as opaque.
func insertedLength(delta json.RawMessage) int {
	var payload struct {
		Ops []struct {
			Insert json.RawMessage `json:"insert"`
		} `json:"ops"`
	}
	if err := json.Unmarshal(delta, &payload); err != nil {
		return 0
	}

	total := 0
	for _, op := range payload.Ops {
		var text string
		if err := json.Unmarshal(op.Insert, &text); err == nil {
			total += utf8.RuneCountInString(text)
		}
	}
	return total
}
