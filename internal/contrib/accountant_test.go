package contrib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAccountant_RecordAccumulates tests running totals per connection
func TestAccountant_RecordAccumulates(t *testing.T) {
	a := NewAccountant()

	a.Record("doc-1", "s1", 5)
	a.Record("doc-1", "s1", 3)
	a.Record("doc-1", "s2", 2)
	a.Record("doc-2", "s1", 100)

	tallies := a.Snapshot("doc-1")
	assert.Len(t, tallies, 2)

	totals := map[string]int{}
	for _, tally := range tallies {
		totals[tally.SocketID] = tally.Inserted
	}
	assert.Equal(t, 8, totals["s1"])
	assert.Equal(t, 2, totals["s2"])
}

// TestAccountant_IgnoresNonPositive tests that tallies never shrink
func TestAccountant_IgnoresNonPositive(t *testing.T) {
	a := NewAccountant()

	a.Record("doc-1", "s1", 4)
	a.Record("doc-1", "s1", 0)
	a.Record("doc-1", "s1", -7)

	tallies := a.Snapshot("doc-1")
	assert.Len(t, tallies, 1)
	assert.Equal(t, 4, tallies[0].Inserted)
}

// TestAccountant_UnknownDocEmpty tests reads for untracked documents
func TestAccountant_UnknownDocEmpty(t *testing.T) {
	a := NewAccountant()
	assert.Empty(t, a.Snapshot("missing"))
}
