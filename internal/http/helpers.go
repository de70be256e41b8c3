package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/query"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// parseISODate parses a YYYY-MM-DD query parameter.
func parseISODate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return core.DateOf(t), nil
}

// filterParams are the optional, composable query filters shared by the
// transactions, summary and timeseries endpoints.
type filterParams struct {
	hasRange bool
	from, to core.Date

	categories []string

	hasPeriod bool
	payday    core.Date
	cycleDays int
}

// parseFilterParams reads from/to, categories, payday and cycle_days. A
// one-sided date range is open on the missing side.
func parseFilterParams(r *http.Request) (filterParams, error) {
	var p filterParams
	q := r.URL.Query()

	fromRaw := strings.TrimSpace(q.Get("from"))
	toRaw := strings.TrimSpace(q.Get("to"))
	if fromRaw != "" || toRaw != "" {
		p.hasRange = true
		p.from = core.NewDate(1, 1, 1)
		p.to = core.NewDate(9999, 12, 31)
		var err error
		if fromRaw != "" {
			if p.from, err = parseISODate(fromRaw); err != nil {
				return p, err
			}
		}
		if toRaw != "" {
			if p.to, err = parseISODate(toRaw); err != nil {
				return p, err
			}
		}
	}

	for _, raw := range q["categories"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				p.categories = append(p.categories, c)
			}
		}
	}

	if payday := strings.TrimSpace(q.Get("payday")); payday != "" {
		p.hasPeriod = true
		var err error
		if p.payday, err = parseISODate(payday); err != nil {
			return p, err
		}
		p.cycleDays = 31
		if raw := strings.TrimSpace(q.Get("cycle_days")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return p, fmt.Errorf("invalid cycle_days %q", raw)
			}
			p.cycleDays = n
		}
	}

	return p, nil
}

// apply runs the composed filters over a date-sorted slice.
func (p filterParams) apply(txs []core.Transaction) []core.Transaction {
	if p.hasRange {
		txs = query.ByDateRange(txs, p.from, p.to)
	}
	if len(p.categories) > 0 {
		txs = query.ByCategories(txs, p.categories)
	}
	if p.hasPeriod {
		txs = query.ByPayPeriod(txs, p.payday, p.cycleDays)
	}
	return txs
}

// cacheKey builds a cache key that changes whenever the session's store or
// the request filters change.
func cacheKey(sessionID string, version uint64, r *http.Request) string {
	return sessionID + ":" + strconv.FormatUint(version, 10) + ":" + r.URL.RawQuery
}

// transactionView is the wire shape of one transaction. Index is the
// position in the session's date-sorted list and addresses the transaction
// in category edits.
type transactionView struct {
	Index         int        `json:"index"`
	Date          core.Date  `json:"date"`
	Type          string     `json:"type"`
	SortCode      string     `json:"sort_code"`
	AccountNumber string     `json:"account_number"`
	Description   string     `json:"description"`
	Debit         core.Money `json:"debit"`
	Credit        core.Money `json:"credit"`
	Balance       core.Money `json:"balance"`
	Category      string     `json:"category"`
	SourceName    string     `json:"source_name"`
}

// viewsOf maps filtered transactions back to their indexes in the full
// date-sorted list. Filtering only removes rows, so a lockstep walk over the
// full list recovers each kept row's position.
func viewsOf(full, filtered []core.Transaction) []transactionView {
	views := make([]transactionView, 0, len(filtered))
	pos := 0
	for _, tx := range filtered {
		for pos < len(full) && full[pos] != tx {
			pos++
		}
		views = append(views, transactionView{
			Index:         pos,
			Date:          tx.Date,
			Type:          tx.Type,
			SortCode:      tx.SortCode,
			AccountNumber: tx.AccountNumber,
			Description:   tx.Description,
			Debit:         tx.Debit,
			Credit:        tx.Credit,
			Balance:       tx.Balance,
			Category:      tx.Category,
			SourceName:    tx.SourceName,
		})
		pos++
	}
	return views
}
