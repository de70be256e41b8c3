package amqp

import (
	"encoding/json"
	"time"
)

// Import outcome values carried on events.
const (
	StatusImported = "imported"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// ImportEvent records the outcome of one file's ingestion. Events are
// consumed by the journal worker, which archives them for audit; the
// transaction data itself never leaves the session.
type ImportEvent struct {
	SessionID  string    `json:"session_id"`
	SourceID   string    `json:"source_id,omitempty"`
	SourceName string    `json:"source_name"`
	Rows       int       `json:"rows"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewImportEvent stamps an event with the current time.
func NewImportEvent(sessionID, sourceID, sourceName string, rows int, status, errText string) *ImportEvent {
	return &ImportEvent{
		SessionID:  sessionID,
		SourceID:   sourceID,
		SourceName: sourceName,
		Rows:       rows,
		Status:     status,
		Error:      errText,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ImportEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ImportEventFromJSON creates an event from JSON bytes
func ImportEventFromJSON(data []byte) (*ImportEvent, error) {
	var ev ImportEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
