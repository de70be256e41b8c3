// Package store holds the session-scoped transaction collection: every
// imported transaction, the registered sources, and the category vocabulary.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"tally/internal/core"
)

// Store is one session's mutable transaction set. Transactions are kept
// sorted by date so positional indexes are stable between a listing and a
// follow-up edit. Methods lock internally so each operation is an atomic
// step even when the host serves a session from multiple goroutines.
type Store struct {
	mu           sync.Mutex
	transactions []core.Transaction
	sources      map[string]string // source id -> display name
	sourceOrder  []string          // source ids in registration order
	custom       map[string]struct{}
	version      uint64
}

func New() *Store {
	return &Store{
		sources: make(map[string]string),
		custom:  make(map[string]struct{}),
	}
}

// HasSource reports whether a source id is already registered.
func (s *Store) HasSource(sourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sources[sourceID]
	return ok
}

// Append adds an ingested batch and registers its source. A source id that is
// already registered is a no-op, so re-importing identical bytes can never
// change the transaction count.
func (s *Store) Append(batch []core.Transaction, src core.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[src.ID]; ok {
		return
	}
	s.transactions = append(s.transactions, batch...)
	sort.SliceStable(s.transactions, func(i, j int) bool {
		return s.transactions[i].Date.Before(s.transactions[j].Date)
	})
	s.sources[src.ID] = src.Name
	s.sourceOrder = append(s.sourceOrder, src.ID)
	s.version++
}

// RemoveSource deletes every transaction imported from the source whose
// display name matches, then forgets the source. When duplicate display names
// exist the first-registered source wins. Returns false when nothing matched;
// calling it again for the same name is a no-op.
func (s *Store) RemoveSource(displayName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range s.sourceOrder {
		if s.sources[id] != displayName {
			continue
		}
		kept := s.transactions[:0]
		for _, tx := range s.transactions {
			if tx.SourceID != id {
				kept = append(kept, tx)
			}
		}
		s.transactions = kept
		delete(s.sources, id)
		s.sourceOrder = append(s.sourceOrder[:i], s.sourceOrder[i+1:]...)
		s.version++
		return true
	}
	return false
}

// Transactions returns a date-sorted copy of the collection.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

// Sources lists registered sources in registration order.
func (s *Store) Sources() []core.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Source, 0, len(s.sourceOrder))
	for _, id := range s.sourceOrder {
		out = append(out, core.Source{ID: id, Name: s.sources[id]})
	}
	return out
}

// Categories returns the vocabulary: the sentinel first, then the union of
// categories present on transactions and explicitly registered names, minus
// the sentinel, sorted ascending.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]struct{})
	for _, tx := range s.transactions {
		set[tx.Category] = struct{}{}
	}
	for name := range s.custom {
		set[name] = struct{}{}
	}
	delete(set, core.Uncategorized)

	out := make([]string, 0, len(set)+1)
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return append([]string{core.Uncategorized}, out...)
}

// RegisterCategory declares a custom category name, which may have zero
// transactions. Registering a known name is a no-op.
func (s *Store) RegisterCategory(name string) {
	name = strings.TrimSpace(name)
	if name == "" || name == core.Uncategorized {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.custom[name]; ok {
		return
	}
	s.custom[name] = struct{}{}
	s.version++
}

// SetCategory assigns one transaction's category by its position in the
// date-sorted collection. The category need not be registered: individual
// edits may introduce new names. An out-of-range index is a programmer error
// and panics.
func (s *Store) SetCategory(index int, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.transactions) {
		panic(fmt.Sprintf("store: transaction index %d out of range [0,%d)", index, len(s.transactions)))
	}
	s.transactions[index].Category = category
	s.version++
}

// ApplyCategory assigns category to every transaction the predicate matches
// and returns how many it touched.
func (s *Store) ApplyCategory(category string, match func(core.Transaction) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.transactions {
		if match(s.transactions[i]) {
			s.transactions[i].Category = category
			count++
		}
	}
	if count > 0 {
		s.version++
	}
	return count
}

// CountMatching returns how many transactions the predicate matches without
// mutating anything; callers use it to preview a bulk rule.
func (s *Store) CountMatching(match func(core.Transaction) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.transactions {
		if match(s.transactions[i]) {
			count++
		}
	}
	return count
}

// Version is a monotonic counter bumped by every mutation. Read caches key on
// it so stale entries miss by construction.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}
