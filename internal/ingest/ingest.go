// Package ingest turns raw statement CSV bytes into validated, normalized
// transaction batches keyed by a content-derived source id.
package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"tally/internal/core"
)

// Required column headers, matched after trimming surrounding whitespace.
const (
	colDate        = "Transaction Date"
	colType        = "Transaction Type"
	colSortCode    = "Sort Code"
	colAccount     = "Account Number"
	colDescription = "Transaction Description"
	colDebit       = "Debit Amount"
	colCredit      = "Credit Amount"
	colBalance     = "Balance"
)

// RequiredColumns lists every header a statement export must carry.
var RequiredColumns = []string{
	colDate, colType, colSortCode, colAccount,
	colDescription, colDebit, colCredit, colBalance,
}

// Store is the slice of the transaction store the ingestor needs: duplicate
// detection and batch append.
type Store interface {
	HasSource(sourceID string) bool
	Append(batch []core.Transaction, src core.Source)
}

// Result describes the outcome of one file's ingestion.
type Result struct {
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	Rows       int    `json:"rows"`
	Skipped    bool   `json:"skipped"` // true when the source id was already known
}

// Ingestor parses and validates statement uploads.
type Ingestor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{logger: logger}
}

// SourceID derives the deterministic source id for a file's raw bytes.
// Re-uploading identical bytes always maps to the same id.
func SourceID(fileBytes []byte) string {
	sum := sha256.Sum256(fileBytes)
	return hex.EncodeToString(sum[:])
}

// Ingest parses fileBytes as a statement CSV and appends the resulting batch
// to the store under displayName. A source id already present in the store is
// a silent idempotent no-op (Result.Skipped). On any schema or date failure
// the whole file is rejected and the store is left untouched; failures are
// per-file and never concern sibling uploads.
func (i *Ingestor) Ingest(fileBytes []byte, displayName string, st Store) (Result, error) {
	sourceID := SourceID(fileBytes)
	if st.HasSource(sourceID) {
		i.logger.Info("skipping duplicate upload",
			"source_id", sourceID, "file", displayName)
		return Result{SourceID: sourceID, SourceName: displayName, Skipped: true}, nil
	}

	batch, err := i.parse(fileBytes)
	if err != nil {
		return Result{}, err
	}

	for idx := range batch {
		batch[idx].SourceID = sourceID
		batch[idx].SourceName = displayName
		batch[idx].Category = core.Uncategorized
	}

	st.Append(batch, core.Source{ID: sourceID, Name: displayName})
	i.logger.Info("imported statement",
		"source_id", sourceID, "file", displayName, "rows", len(batch))
	return Result{SourceID: sourceID, SourceName: displayName, Rows: len(batch)}, nil
}

func (i *Ingestor) parse(fileBytes []byte) ([]core.Transaction, error) {
	reader := csv.NewReader(bytes.NewReader(fileBytes))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, &SchemaError{Missing: append([]string(nil), RequiredColumns...)}
	}

	columns, err := validateHeader(records[0])
	if err != nil {
		return nil, err
	}

	batch := make([]core.Transaction, 0, len(records)-1)
	for n, record := range records[1:] {
		row := n + 1

		date, err := core.ParseDayFirst(strings.TrimSpace(record[columns[colDate]]))
		if err != nil {
			return nil, &DateParseError{Row: row, Cell: record[columns[colDate]]}
		}

		tx := core.Transaction{
			Date:          date,
			Type:          strings.TrimSpace(record[columns[colType]]),
			SortCode:      strings.TrimSpace(record[columns[colSortCode]]),
			AccountNumber: strings.TrimSpace(record[columns[colAccount]]),
			Description:   strings.TrimSpace(record[columns[colDescription]]),
			Debit:         i.amount(record[columns[colDebit]], colDebit, row),
			Credit:        i.amount(record[columns[colCredit]], colCredit, row),
		}
		balance, ok := core.ParseAmount(record[columns[colBalance]])
		if !ok {
			i.logger.Warn("amount cell coerced to zero",
				"column", colBalance, "row", row, "cell", record[columns[colBalance]])
		}
		tx.Balance = balance
		batch = append(batch, tx)
	}
	return batch, nil
}

// amount normalizes a debit or credit cell. Unparseable cells coerce to zero
// rather than failing the row; a negative value in a debit/credit column is
// treated the same way, since those columns are magnitudes by contract.
func (i *Ingestor) amount(cell, column string, row int) core.Money {
	m, ok := core.ParseAmount(cell)
	if !ok {
		i.logger.Warn("amount cell coerced to zero",
			"column", column, "row", row, "cell", cell)
		return core.Money{}
	}
	if m.Cents < 0 {
		i.logger.Warn("negative amount in magnitude column coerced to zero",
			"column", column, "row", row, "cell", cell)
		return core.Money{}
	}
	return m
}

// validateHeader maps each required column name to its index, collecting
// every missing name before failing.
func validateHeader(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for idx, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := byName[name]; !ok {
			byName[name] = idx
		}
	}

	var missing []string
	columns := make(map[string]int, len(RequiredColumns))
	for _, name := range RequiredColumns {
		idx, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		columns[name] = idx
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return columns, nil
}
