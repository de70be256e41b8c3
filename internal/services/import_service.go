// Package services orchestrates core operations with the optional side
// channels: the SQLite import journal and AMQP import events. Neither side
// channel may ever fail an import that the engine accepted.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/ingest"
	"tally/internal/storage"
	"tally/internal/store"
)

// UploadFile is one file from a multi-file upload, already read into memory.
type UploadFile struct {
	Name string
	Data []byte
}

// FileOutcome reports one file's fate to the user.
type FileOutcome struct {
	File    string `json:"file"`
	Rows    int    `json:"rows"`
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// ImportService runs ingestion and fans outcomes out to the journal and the
// event stream when they are configured.
type ImportService struct {
	ingestor *ingest.Ingestor
	journal  *storage.JournalRepository // nil when disabled
	events   *amqp.Client               // nil when disabled
	logger   *slog.Logger
}

func NewImportService(ingestor *ingest.Ingestor, journal *storage.JournalRepository, events *amqp.Client, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		ingestor: ingestor,
		journal:  journal,
		events:   events,
		logger:   logger,
	}
}

// ImportFiles ingests each file independently: one bad file never blocks its
// siblings. The returned outcomes are in upload order, one per file, each
// with a human-readable message.
func (s *ImportService) ImportFiles(ctx context.Context, sessionID string, st *store.Store, files []UploadFile) []FileOutcome {
	outcomes := make([]FileOutcome, 0, len(files))
	for _, f := range files {
		outcomes = append(outcomes, s.importOne(ctx, sessionID, st, f))
	}
	return outcomes
}

func (s *ImportService) importOne(ctx context.Context, sessionID string, st *store.Store, f UploadFile) FileOutcome {
	res, err := s.ingestor.Ingest(f.Data, f.Name, st)
	sourceID := res.SourceID
	if sourceID == "" {
		sourceID = ingest.SourceID(f.Data)
	}

	outcome := FileOutcome{File: f.Name, Rows: res.Rows, Skipped: res.Skipped, Err: err}
	status := amqp.StatusImported
	errText := ""
	switch {
	case err != nil:
		status = amqp.StatusFailed
		errText = err.Error()
		outcome.Message = fmt.Sprintf("Could not import %s: %v", f.Name, err)
	case res.Skipped:
		status = amqp.StatusSkipped
		outcome.Message = fmt.Sprintf("Skipped %s: identical file already imported", f.Name)
	default:
		outcome.Message = fmt.Sprintf("Imported %s: %d transactions", f.Name, res.Rows)
	}
	outcome.Error = errText

	s.record(ctx, storage.JournalEntry{
		SessionID:  sessionID,
		SourceID:   sourceID,
		SourceName: f.Name,
		Rows:       res.Rows,
		Status:     status,
		Error:      errText,
	})
	s.publish(ctx, amqp.NewImportEvent(sessionID, sourceID, f.Name, res.Rows, status, errText))
	return outcome
}

func (s *ImportService) record(ctx context.Context, entry storage.JournalEntry) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record import journal entry",
			"file", entry.SourceName, "error", err)
	}
}

func (s *ImportService) publish(ctx context.Context, ev *amqp.ImportEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishImportEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish import event",
			"file", ev.SourceName, "error", err)
	}
}

// Close releases the side channels.
func (s *ImportService) Close() error {
	var errs []error
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
