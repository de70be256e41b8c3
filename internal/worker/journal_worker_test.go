package worker

import (
	"context"
	"path/filepath"
	"testing"

	"tally/internal/amqp"
	"tally/internal/storage"
)

func TestHandleImportEvent(t *testing.T) {
	repo, err := storage.NewJournalRepository(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer repo.Close()

	w := NewJournalWorker(repo)
	ev := amqp.NewImportEvent("sess-1", "abc123", "march.csv", 42, amqp.StatusImported, "")
	if err := w.HandleImportEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	entries, err := repo.BySession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.SourceID != "abc123" || got.Rows != 42 || got.Status != amqp.StatusImported {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestHandleImportEventFailedCarriesError(t *testing.T) {
	repo, err := storage.NewJournalRepository(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer repo.Close()

	w := NewJournalWorker(repo)
	ev := amqp.NewImportEvent("sess-1", "def456", "bad.csv", 0, amqp.StatusFailed, "csv is missing required columns: Balance")
	if err := w.HandleImportEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	entries, err := repo.BySession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(entries) != 1 || entries[0].Error == "" {
		t.Fatalf("expected 1 failed entry with error text, got %+v", entries)
	}
}
