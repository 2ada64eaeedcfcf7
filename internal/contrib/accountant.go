// Package contrib tallies how much content each connection inserted into a
// document. Totals only ever grow; percentages are the caller's business.
package contrib

import "sync"

// Tally is one connection's running total for one document.
type Tally struct {
	SocketID string `json:"socketId"`
	Inserted int    `json:"inserted"`
}

type Accountant struct {
	mu   sync.RWMutex
	docs map[string]map[string]int
}

func NewAccountant() *Accountant {
	return &Accountant{docs: make(map[string]map[string]int)}
}

// Record adds insertedLength to the connection's total for the document.
func (a *Accountant) Record(docID, socketID string, insertedLength int) {
	if insertedLength <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	doc := a.docs[docID]
	if doc == nil {
		doc = make(map[string]int)
		a.docs[docID] = doc
	}
	doc[socketID] += insertedLength
}

// Snapshot returns the current tallies for a document.
func (a *Accountant) Snapshot(docID string) []Tally {
	a.mu.RLock()
	defer a.mu.RUnlock()

	doc := a.docs[docID]
	tallies := make([]Tally, 0, len(doc))
	for socketID, inserted := range doc {
		tallies = append(tallies, Tally{SocketID: socketID, Inserted: inserted})
	}
	return tallies
}
