// Package worker contains the consumer side of the import event stream.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/storage"
)

// JournalWorker archives import events into the SQLite journal. It is run by
// a separate process consuming the import event queue.
type JournalWorker struct {
	journal *storage.JournalRepository
}

func NewJournalWorker(journal *storage.JournalRepository) *JournalWorker {
	return &JournalWorker{journal: journal}
}

// HandleImportEvent processes a single import event from AMQP. A returned
// error requeues the message.
func (w *JournalWorker) HandleImportEvent(ctx context.Context, ev *amqp.ImportEvent) error {
	slog.InfoContext(ctx, "Processing import event",
		"session_id", ev.SessionID,
		"source_id", ev.SourceID,
		"status", ev.Status)

	id, err := w.journal.Record(ctx, storage.JournalEntry{
		SessionID:  ev.SessionID,
		SourceID:   ev.SourceID,
		SourceName: ev.SourceName,
		Rows:       ev.Rows,
		Status:     ev.Status,
		Error:      ev.Error,
	})
	if err != nil {
		return fmt.Errorf("record import event: %w", err)
	}

	slog.InfoContext(ctx, "Archived import event", "journal_id", id)
	return nil
}
