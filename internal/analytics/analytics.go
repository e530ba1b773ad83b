// Package analytics derives read-only spending aggregates from an in-memory
// transaction snapshot. Every time-sensitive function takes "now" as a
// parameter; nothing here reads the system clock.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendwise/spendwise/internal/database/repository"
)

// UnknownCategory buckets spending on transactions without a resolved
// category. Such spending is never dropped.
const UnknownCategory = "Unknown"

// WindowKind names a transaction time window.
type WindowKind string

const (
	WindowThisWeek      WindowKind = "thisWeek"
	WindowLastWeek      WindowKind = "lastWeek"
	WindowThisMonth     WindowKind = "thisMonth"
	WindowLastMonth     WindowKind = "lastMonth"
	WindowSpecificMonth WindowKind = "specificMonth"
	WindowAllTime       WindowKind = "allTime"
	WindowRange         WindowKind = "range"
)

// Window selects transactions by purchase date.
type Window struct {
	Kind  WindowKind
	Month time.Month // specificMonth only
	Year  int        // specificMonth only
	Start time.Time  // range only, inclusive
	End   time.Time  // range only, inclusive
}

func ThisWeek() Window  { return Window{Kind: WindowThisWeek} }
func LastWeek() Window  { return Window{Kind: WindowLastWeek} }
func ThisMonth() Window { return Window{Kind: WindowThisMonth} }
func LastMonth() Window { return Window{Kind: WindowLastMonth} }
func AllTime() Window   { return Window{Kind: WindowAllTime} }

func SpecificMonth(month time.Month, year int) Window {
	return Window{Kind: WindowSpecificMonth, Month: month, Year: year}
}

func Range(start, end time.Time) Window {
	return Window{Kind: WindowRange, Start: start, End: end}
}

// FilterByWindow returns the transactions whose purchase date falls inside
// the window, evaluated against now. This week runs from Monday; last week
// is the rolling seven days before now; last month is the previous calendar
// month.
func FilterByWindow(txs []repository.Transaction, w Window, now time.Time) []repository.Transaction {
	if w.Kind == WindowAllTime {
		out := make([]repository.Transaction, len(txs))
		copy(out, txs)
		return out
	}

	today := dateOnly(now)
	var keep func(d time.Time) bool
	switch w.Kind {
	case WindowThisWeek:
		start := startOfWeek(today)
		keep = func(d time.Time) bool { return !d.Before(start) && !d.After(today) }
	case WindowLastWeek:
		start := today.AddDate(0, 0, -7)
		keep = func(d time.Time) bool { return !d.Before(start) && !d.After(today) }
	case WindowThisMonth:
		start := startOfMonth(today)
		keep = func(d time.Time) bool { return !d.Before(start) && !d.After(today) }
	case WindowLastMonth:
		thisStart := startOfMonth(today)
		lastStart := thisStart.AddDate(0, -1, 0)
		keep = func(d time.Time) bool { return !d.Before(lastStart) && d.Before(thisStart) }
	case WindowSpecificMonth:
		keep = func(d time.Time) bool { return d.Month() == w.Month && d.Year() == w.Year }
	case WindowRange:
		start, end := dateOnly(w.Start), dateOnly(w.End)
		keep = func(d time.Time) bool { return !d.Before(start) && !d.After(end) }
	default:
		return nil
	}

	var out []repository.Transaction
	for _, t := range txs {
		if keep(dateOnly(t.PurchaseDate)) {
			out = append(out, t)
		}
	}
	return out
}

// CategorySpending is one category's aggregated amount.
type CategorySpending struct {
	Category string
	Amount   decimal.Decimal
}

// SumByCategory aggregates spending by category display name. Transactions
// without a category land in the Unknown bucket, so the per-category sums
// always reconcile with the overall total.
func SumByCategory(txs []repository.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range txs {
		name := UnknownCategory
		if t.CategoryName != nil && *t.CategoryName != "" {
			name = *t.CategoryName
		}
		out[name] = out[name].Add(t.TotalPrice())
	}
	return out
}

// SumByCategoryID aggregates spending by category id; the empty id holds
// uncategorized spending.
func SumByCategoryID(txs []repository.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range txs {
		id := ""
		if t.CategoryID != nil {
			id = *t.CategoryID
		}
		out[id] = out[id].Add(t.TotalPrice())
	}
	return out
}

// Total sums the transactions' derived total prices.
func Total(txs []repository.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.TotalPrice())
	}
	return total
}

// TopCategories returns up to limit categories ordered by amount descending,
// name ascending on ties.
func TopCategories(txs []repository.Transaction, limit int) []CategorySpending {
	sums := SumByCategory(txs)
	out := make([]CategorySpending, 0, len(sums))
	for name, amount := range sums {
		out = append(out, CategorySpending{Category: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MonthDelta compares the current calendar month's spending with the
// previous month's. HasPrior is false when there is no previous-month
// spending to compare against.
type MonthDelta struct {
	Current       decimal.Decimal
	Previous      decimal.Decimal
	PercentChange float64
	HasPrior      bool
}

// MonthOverMonthDelta computes the current-vs-previous month comparison at
// now.
func MonthOverMonthDelta(txs []repository.Transaction, now time.Time) MonthDelta {
	current := Total(FilterByWindow(txs, ThisMonth(), now))
	previous := Total(FilterByWindow(txs, LastMonth(), now))

	delta := MonthDelta{Current: current, Previous: previous}
	if previous.IsPositive() {
		delta.HasPrior = true
		delta.PercentChange = current.Sub(previous).Div(previous).InexactFloat64() * 100
	}
	return delta
}

// MonthTotal is one calendar month's aggregated spending.
type MonthTotal struct {
	Year  int
	Month time.Month
	Total decimal.Decimal
}

// MonthlyTotals buckets all transactions by calendar month, ascending.
func MonthlyTotals(txs []repository.Transaction) []MonthTotal {
	sums := make(map[int]decimal.Decimal)
	for _, t := range txs {
		key := t.PurchaseDate.Year()*100 + int(t.PurchaseDate.Month())
		sums[key] = sums[key].Add(t.TotalPrice())
	}
	out := make([]MonthTotal, 0, len(sums))
	for key, total := range sums {
		out = append(out, MonthTotal{Year: key / 100, Month: time.Month(key % 100), Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// HighestAndLowestMonth returns the month buckets with the largest and
// smallest totals. ok is false on empty input. Ties keep the earliest month.
func HighestAndLowestMonth(txs []repository.Transaction) (highest, lowest MonthTotal, ok bool) {
	buckets := MonthlyTotals(txs)
	if len(buckets) == 0 {
		return MonthTotal{}, MonthTotal{}, false
	}
	highest, lowest = buckets[0], buckets[0]
	for _, b := range buckets[1:] {
		if b.Total.GreaterThan(highest.Total) {
			highest = b
		}
		if b.Total.LessThan(lowest.Total) {
			lowest = b
		}
	}
	return highest, lowest, true
}

// AverageMonthlySpending is the overall total divided by the number of
// distinct month buckets, zero when there are none.
func AverageMonthlySpending(txs []repository.Transaction) decimal.Decimal {
	buckets := MonthlyTotals(txs)
	if len(buckets) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.Total)
	}
	return total.Div(decimal.NewFromInt(int64(len(buckets))))
}

// TimeSpending is one day's aggregated spending.
type TimeSpending struct {
	Date   time.Time
	Amount decimal.Decimal
}

// SpendingOverTime buckets transactions by purchase date, ascending.
func SpendingOverTime(txs []repository.Transaction) []TimeSpending {
	sums := make(map[time.Time]decimal.Decimal)
	for _, t := range txs {
		d := dateOnly(t.PurchaseDate)
		sums[d] = sums[d].Add(t.TotalPrice())
	}
	out := make([]TimeSpending, 0, len(sums))
	for d, amount := range sums {
		out = append(out, TimeSpending{Date: d, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfWeek(t time.Time) time.Time {
	// ISO week: Monday first
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
