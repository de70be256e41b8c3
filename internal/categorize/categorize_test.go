package categorize

import (
	"testing"

	"tally/internal/core"
	"tally/internal/store"
)

func seeded(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	s.Append([]core.Transaction{
		{Date: core.NewDate(2024, 3, 1), Type: "DEB", Description: "Tesco", Debit: core.Money{Cents: 1250}, Category: core.Uncategorized, SourceID: "a"},
		{Date: core.NewDate(2024, 3, 2), Type: "FPI", Description: "Salary", Credit: core.Money{Cents: 200000}, Category: core.Uncategorized, SourceID: "a"},
		{Date: core.NewDate(2024, 3, 3), Type: "DEB", Description: "TESCO EXPRESS", Debit: core.Money{Cents: 430}, Category: core.Uncategorized, SourceID: "a"},
	}, core.Source{ID: "a", Name: "march.csv"})
	return s
}

func TestApplyByDescription(t *testing.T) {
	s := seeded(t)
	n := Apply(s, "Groceries", Filter{DescriptionContains: "tesco"})
	if n != 2 {
		t.Fatalf("matched %d, want 2 (case-insensitive contains)", n)
	}
	txs := s.Transactions()
	if txs[0].Category != "Groceries" || txs[2].Category != "Groceries" {
		t.Fatalf("categories not applied: %+v", txs)
	}
	if txs[1].Category != core.Uncategorized {
		t.Fatalf("salary transaction must be untouched, got %q", txs[1].Category)
	}
}

func TestApplyByType(t *testing.T) {
	s := seeded(t)
	if n := Apply(s, "Income", Filter{TransactionType: "FPI"}); n != 1 {
		t.Fatalf("matched %d, want 1", n)
	}
	if n := Apply(s, "Nope", Filter{TransactionType: "fpi"}); n != 0 {
		t.Fatalf("type match must be exact, matched %d", n)
	}
}

func TestApplyConjunction(t *testing.T) {
	s := seeded(t)
	n := Apply(s, "Groceries", Filter{DescriptionContains: "Tesco", TransactionType: "FPI"})
	if n != 0 {
		t.Fatalf("predicates are a conjunction, matched %d", n)
	}
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	s := seeded(t)
	if n := Apply(s, "Everything", Filter{}); n != 3 {
		t.Fatalf("matched %d, want all 3", n)
	}
}

func TestCountDoesNotMutate(t *testing.T) {
	s := seeded(t)
	if n := Count(s, Filter{DescriptionContains: "Tesco"}); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	for _, tx := range s.Transactions() {
		if tx.Category != core.Uncategorized {
			t.Fatalf("preview mutated the store: %+v", tx)
		}
	}
}
