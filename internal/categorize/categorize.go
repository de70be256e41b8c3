// Package categorize applies single-category bulk rules and previews their
// match counts against a session store.
package categorize

import (
	"strings"

	"tally/internal/core"
	"tally/internal/store"
)

// Filter is a conjunction of optional predicates. A zero Filter matches
// every transaction.
type Filter struct {
	// DescriptionContains matches descriptions containing the substring,
	// case-insensitively. Empty means no description predicate.
	DescriptionContains string
	// TransactionType matches the type label exactly. Empty means no type
	// predicate.
	TransactionType string
}

// Match reports whether a single transaction satisfies the filter.
func (f Filter) Match(tx core.Transaction) bool {
	if f.DescriptionContains != "" &&
		!strings.Contains(strings.ToLower(tx.Description), strings.ToLower(f.DescriptionContains)) {
		return false
	}
	if f.TransactionType != "" && tx.Type != f.TransactionType {
		return false
	}
	return true
}

// Count previews how many transactions Apply would touch. The caller
// disables the apply action when it returns zero.
func Count(st *store.Store, filter Filter) int {
	return st.CountMatching(filter.Match)
}

// Apply assigns category to every matching transaction in place and returns
// the number affected.
func Apply(st *store.Store, category string, filter Filter) int {
	return st.ApplyCategory(category, filter.Match)
}
