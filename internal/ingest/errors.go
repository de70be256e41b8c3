package ingest

import (
	"fmt"
	"strings"
)

// SchemaError reports every required column missing from an upload, not just
// the first, so the user can fix the export in one pass.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "csv is missing required columns: " + strings.Join(e.Missing, ", ")
}

// DateParseError rejects a whole file when any row's transaction date fails
// to parse. There is no partial acceptance for dates: a misread date silently
// shifted into the wrong month is worse than a failed import.
type DateParseError struct {
	Row  int // 1-based data row number, excluding the header
	Cell string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("row %d: could not parse transaction date %q: dates must be DD/MM/YYYY", e.Row, e.Cell)
}
