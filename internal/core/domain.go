package core

import (
	"errors"
	"time"
)

// Uncategorized is the sentinel category assigned to every imported
// transaction until the user says otherwise.
const Uncategorized = "Uncategorized"

// DayFirstLayout is the date layout used by bank statement exports (DD/MM/YYYY).
const DayFirstLayout = "02/01/2006"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is one ledger line from a statement export.
	Transaction struct {
		Date          Date
		Type          string // free-text label, e.g. "DEB", "FPI"
		SortCode      string // kept as text to preserve leading zeros
		AccountNumber string
		Description   string
		Debit         Money // 0 if the line is not a debit
		Credit        Money // 0 if the line is not a credit
		Balance       Money // signed
		Category      string
		SourceID      string
		SourceName    string
	}

	// Source identifies one imported file: a hash of its raw bytes plus the
	// display name given at upload time.
	Source struct {
		ID   string
		Name string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrNegativeDebit   = errors.New("negative debit amount")
	ErrNegativeCredit  = errors.New("negative credit amount")
	ErrMissingSourceID = errors.New("missing source id")
)

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDayFirst parses a DD/MM/YYYY date cell.
func ParseDayFirst(s string) (Date, error) {
	t, err := time.Parse(DayFirstLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// AddDays returns the date n calendar days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time.AddDate(0, 0, n))
}

// String formats the date as ISO 8601 (YYYY-MM-DD).
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MarshalJSON emits the date as a plain "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a plain "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDate
	}
	t, err := time.Parse("2006-01-02", s[1:len(s)-1])
	if err != nil {
		return ErrInvalidDate
	}
	*d = DateOf(t)
	return nil
}

// Validate checks the invariants the ingestion pipeline guarantees. The model
// deliberately does not require exactly one of debit/credit to be nonzero:
// real exports contain lines where both are zero.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Debit.Cents < 0 {
		return ErrNegativeDebit
	}
	if t.Credit.Cents < 0 {
		return ErrNegativeCredit
	}
	if t.SourceID == "" {
		return ErrMissingSourceID
	}
	return nil
}
