package core

// CategoryTotal holds the debit/credit totals for one category.
type CategoryTotal struct {
	Category string `json:"category"`
	Debit    Money  `json:"debit"`
	Credit   Money  `json:"credit"`
}

// Summary aggregates a set of transactions: overall totals plus a
// per-category breakdown sorted by debit descending.
type Summary struct {
	Debit     Money           `json:"debit"`
	Credit    Money           `json:"credit"`
	Net       Money           `json:"net"` // credit - debit
	Breakdown []CategoryTotal `json:"breakdown"`
	Count     int             `json:"count"`
}

// DatePoint is one step of a daily debit/credit time series.
type DatePoint struct {
	Date   Date  `json:"date"`
	Debit  Money `json:"debit"`
	Credit Money `json:"credit"`
}
