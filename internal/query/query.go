// Package query produces filtered views and aggregates over transaction
// sets. Every function is pure: inputs are already-validated slices copied
// out of a store, so nothing here can fail.
package query

import (
	"sort"

	"tally/internal/core"
)

// Pay period cycle length bounds, in days.
const (
	MinCycleDays = 7
	MaxCycleDays = 35
)

// ByDateRange keeps transactions dated within [start, end], comparing
// calendar days only. A reversed range is swapped before filtering, so the
// range can never be empty due to argument order.
func ByDateRange(txs []core.Transaction, start, end core.Date) []core.Transaction {
	if start.After(end) {
		start, end = end, start
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// ByCategories keeps transactions whose category is in the given set.
func ByCategories(txs []core.Transaction, categories []string) []core.Transaction {
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if _, ok := set[tx.Category]; ok {
			out = append(out, tx)
		}
	}
	return out
}

// ByPayPeriod keeps transactions within the inclusive window
// [payday, payday+cycleDays-1]. cycleDays is clamped to [MinCycleDays,
// MaxCycleDays], matching the bounds offered to the user.
func ByPayPeriod(txs []core.Transaction, payday core.Date, cycleDays int) []core.Transaction {
	if cycleDays < MinCycleDays {
		cycleDays = MinCycleDays
	}
	if cycleDays > MaxCycleDays {
		cycleDays = MaxCycleDays
	}
	return ByDateRange(txs, payday, payday.AddDays(cycleDays-1))
}

// Summarize totals debits and credits and breaks them down per category,
// sorted by debit descending. An empty input yields zero totals and an empty
// breakdown, not an error.
func Summarize(txs []core.Transaction) core.Summary {
	summary := core.Summary{Count: len(txs)}
	perCategory := make(map[string]*core.CategoryTotal)
	for _, tx := range txs {
		summary.Debit = summary.Debit.Add(tx.Debit)
		summary.Credit = summary.Credit.Add(tx.Credit)

		ct, ok := perCategory[tx.Category]
		if !ok {
			ct = &core.CategoryTotal{Category: tx.Category}
			perCategory[tx.Category] = ct
		}
		ct.Debit = ct.Debit.Add(tx.Debit)
		ct.Credit = ct.Credit.Add(tx.Credit)
	}
	summary.Net = summary.Credit.Sub(summary.Debit)

	summary.Breakdown = make([]core.CategoryTotal, 0, len(perCategory))
	for _, ct := range perCategory {
		summary.Breakdown = append(summary.Breakdown, *ct)
	}
	sort.Slice(summary.Breakdown, func(i, j int) bool {
		if summary.Breakdown[i].Debit.Cents != summary.Breakdown[j].Debit.Cents {
			return summary.Breakdown[i].Debit.Cents > summary.Breakdown[j].Debit.Cents
		}
		return summary.Breakdown[i].Category < summary.Breakdown[j].Category
	})
	return summary
}

// TimeSeries groups by calendar date and sums debit and credit per day,
// ascending, for trend display.
func TimeSeries(txs []core.Transaction) []core.DatePoint {
	// Dates are canonical (NewDate, UTC midnight) so they are usable as map keys.
	perDay := make(map[core.Date]*core.DatePoint)
	for _, tx := range txs {
		dp, ok := perDay[tx.Date]
		if !ok {
			dp = &core.DatePoint{Date: tx.Date}
			perDay[tx.Date] = dp
		}
		dp.Debit = dp.Debit.Add(tx.Debit)
		dp.Credit = dp.Credit.Add(tx.Credit)
	}
	out := make([]core.DatePoint, 0, len(perDay))
	for _, dp := range perDay {
		out = append(out, *dp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
