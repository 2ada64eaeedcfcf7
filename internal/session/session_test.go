package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestApplyText_Insert tests the basic insert scenario on an empty document
func TestApplyText_Insert(t *testing.T) {
	sess := newSession("doc-1", "", 0, false)

	st, err := sess.ApplyText(TextOp{Type: OpInsert, Index: 0, Text: "Hello"}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "Hello", st.Content)
	assert.Equal(t, int64(1), st.Version)
}

// TestApplyText_Delete tests deleting a range from existing content
func TestApplyText_Delete(t *testing.T) {
	sess := newSession("doc-1", "Hello world", 3, false)

	st, err := sess.ApplyText(TextOp{Type: OpDelete, Index: 5, Length: 6}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "Hello", st.Content)
	assert.Equal(t, int64(4), st.Version)
}

// TestApplyText_ClampsOutOfRange tests that bad offsets never crash
func TestApplyText_ClampsOutOfRange(t *testing.T) {
	sess := newSession("doc-1", "abc", 0, false)

	st, err := sess.ApplyText(TextOp{Type: OpInsert, Index: 100, Text: "!"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, "abc!", st.Content)

	st, err = sess.ApplyText(TextOp{Type: OpDelete, Index: -5, Length: 2}, nil)
	assert.NoError(t, err)
	assert.Equal(t, "c!", st.Content)

	st, err = sess.ApplyText(TextOp{Type: OpDelete, Index: 1, Length: 100}, nil)
	assert.NoError(t, err)
	assert.Equal(t, "c", st.Content)
	assert.Equal(t, int64(3), st.Version)
}

// TestApplyText_UnknownTypeStillAdvancesVersion matches the serialization
// policy: every accepted operation takes a version slot
func TestApplyText_UnknownTypeStillAdvancesVersion(t *testing.T) {
	sess := newSession("doc-1", "abc", 0, false)

	st, err := sess.ApplyText(TextOp{Type: "replace", Index: 0, Text: "x"}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "abc", st.Content)
	assert.Equal(t, int64(1), st.Version)
}

// TestApplyText_ReadOnlyRejected tests that read-only sessions never move
func TestApplyText_ReadOnlyRejected(t *testing.T) {
	sess := newSession("view-1", "draft", 0, true)

	_, err := sess.ApplyText(TextOp{Type: OpInsert, Index: 0, Text: "x"}, nil)
	assert.ErrorIs(t, err, ErrReadOnly)

	_, err = sess.Save("overwritten", false, nil)
	assert.ErrorIs(t, err, ErrReadOnly)

	st := sess.Snapshot()
	assert.Equal(t, "draft", st.Content)
	assert.Equal(t, int64(0), st.Version)
}

// TestSave_PrivilegedBypassesReadOnly tests the owner update path
func TestSave_PrivilegedBypassesReadOnly(t *testing.T) {
	sess := newSession("view-1", "draft", 0, true)

	st, err := sess.Save("fresh", true, nil)

	assert.NoError(t, err)
	assert.Equal(t, "fresh", st.Content)
	assert.Equal(t, int64(1), st.Version)
	assert.True(t, st.ReadOnly)
}

// TestApplyText_OnCommitSeesVersionOrder tests that commit hooks observe
// states in the order versions were assigned
func TestApplyText_OnCommitSeesVersionOrder(t *testing.T) {
	sess := newSession("doc-1", "", 0, false)

	var mu sync.Mutex
	var versions []int64
	record := func(st State) {
		mu.Lock()
		versions = append(versions, st.Version)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for j := 0; j < 20; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sess.ApplyText(TextOp{Type: OpInsert, Index: 0, Text: "a"}, record)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, versions, 20)
	for i, v := range versions {
		assert.Equal(t, int64(i+1), v)
	}
}

// TestStore_ConcurrentFirstJoinSingleWinner tests the lazy-create race:
// exactly one session object must win and be visible to everyone
func TestStore_ConcurrentFirstJoinSingleWinner(t *testing.T) {
	store := NewStore(nil)

	var wg sync.WaitGroup
	sessions := make([]*DocumentSession, 16)
	createdCount := 0
	var mu sync.Mutex

	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, created := store.GetOrCreate(context.Background(), "fresh-doc")
			sessions[i] = sess
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	for _, sess := range sessions {
		assert.Same(t, sessions[0], sess)
	}
}

// TestStore_LoaderHydratesLazyCreate tests restoring persisted state on the
// first lookup
func TestStore_LoaderHydratesLazyCreate(t *testing.T) {
	loader := func(ctx context.Context, id string) (string, int64, bool) {
		if id == "persisted" {
			return "stored content", 7, true
		}
		return "", 0, false
	}
	store := NewStore(loader)

	sess, created := store.GetOrCreate(context.Background(), "persisted")
	assert.True(t, created)
	st := sess.Snapshot()
	assert.Equal(t, "stored content", st.Content)
	assert.Equal(t, int64(7), st.Version)

	sess, created = store.GetOrCreate(context.Background(), "brand-new")
	assert.True(t, created)
	st = sess.Snapshot()
	assert.Equal(t, "", st.Content)
	assert.Equal(t, int64(0), st.Version)
}

// TestStore_Forks tests fork id prefixes and flags
func TestStore_Forks(t *testing.T) {
	store := NewStore(nil)

	view := store.ForkReadOnly("draft text")
	assert.True(t, view.ReadOnly())
	assert.Contains(t, view.ID, "view-")
	st := view.Snapshot()
	assert.Equal(t, "draft text", st.Content)
	assert.Equal(t, int64(0), st.Version)

	shared := store.PromoteShared("draft text")
	assert.False(t, shared.ReadOnly())
	assert.Contains(t, shared.ID, "shared-")
	assert.NotEqual(t, view.ID, shared.ID)

	// forks are registered and reachable
	found, ok := store.Get(view.ID)
	assert.True(t, ok)
	assert.Same(t, view, found)
}
