// Package ledger tracks budget entries for a user and answers
// spend-vs-limit questions. Entries are static tuples; "expired" and
// "over budget" are derived at read time, never stored.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Frame is the recurrence kind of a budget entry. It is not the date range
// itself; every entry also carries a concrete start and end date.
type Frame string

const (
	FrameWeek  Frame = "week"
	FrameMonth Frame = "month"
	FrameTotal Frame = "total"
)

// ValidFrame reports whether f is a known recurrence kind.
func ValidFrame(f Frame) bool {
	return f == FrameWeek || f == FrameMonth || f == FrameTotal
}

// Key identifies a budget entry: either the overall total budget or one
// category's budget. The zero Key is the total budget.
type Key struct {
	CategoryID string
}

// Total returns the key of the overall budget.
func Total() Key { return Key{} }

// ForCategory returns the key of a category budget.
func ForCategory(id string) Key { return Key{CategoryID: id} }

// IsTotal reports whether k is the overall budget key.
func (k Key) IsTotal() bool { return k.CategoryID == "" }

// Details is one budget entry: a limit over a concrete date range.
type Details struct {
	Limit decimal.Decimal
	Frame Frame
	Start time.Time
	End   time.Time
}

// Ledger holds the active budget entries for one user. At most one entry
// exists per key; Upsert overwrites.
type Ledger struct {
	entries map[Key]Details
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[Key]Details)}
}

// Upsert inserts or overwrites the entry for key.
func (l *Ledger) Upsert(key Key, d Details) {
	l.entries[key] = d
}

// Delete removes the entry for key. Deleting a missing key is a no-op.
func (l *Ledger) Delete(key Key) {
	delete(l.entries, key)
}

// Get returns the entry for key.
func (l *Ledger) Get(key Key) (Details, bool) {
	d, ok := l.entries[key]
	return d, ok
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Keys returns all entry keys sorted by category id, total first.
func (l *Ledger) Keys() []Key {
	out := make([]Key, 0, len(l.entries))
	for k := range l.entries {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

// Remaining returns limit minus spent, floored at zero. Overspending is
// surfaced via SpentPercentage, not as a negative remainder. A missing key
// yields zero.
func (l *Ledger) Remaining(key Key, spent map[Key]decimal.Decimal) decimal.Decimal {
	d, ok := l.entries[key]
	if !ok {
		return decimal.Zero
	}
	rem := d.Limit.Sub(spent[key])
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// SpentPercentage returns spent/limit clamped to [0, 1]. A zero limit or
// missing key yields 0.
func (l *Ledger) SpentPercentage(key Key, spent map[Key]decimal.Decimal) float64 {
	d, ok := l.entries[key]
	if !ok || !d.Limit.IsPositive() {
		return 0
	}
	p := spent[key].Div(d.Limit).InexactFloat64()
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// RemainingDays returns the whole days from now until the entry's end date,
// floored at zero, and whether the entry has expired. A missing key reads as
// expired.
func (l *Ledger) RemainingDays(key Key, now time.Time) (int, bool) {
	d, ok := l.entries[key]
	if !ok {
		return 0, true
	}
	days := int(dateOnly(d.End).Sub(dateOnly(now)).Hours() / 24)
	if days <= 0 {
		return 0, true
	}
	return days, false
}

// FilterForWindow selects entries whose frame matches. The month window
// additionally surfaces total-frame entries whose date range covers the
// current month; the reverse never happens. This asymmetry mirrors how the
// budget screen decides which entries are "current".
func (l *Ledger) FilterForWindow(frame Frame, now time.Time) map[Key]Details {
	out := make(map[Key]Details)
	for k, d := range l.entries {
		if d.Frame == frame {
			out[k] = d
			continue
		}
		if frame == FrameMonth && d.Frame == FrameTotal && coversMonth(d, now) {
			out[k] = d
		}
	}
	return out
}

func coversMonth(d Details, now time.Time) bool {
	y, m := now.Year(), int(now.Month())
	sy, sm := d.Start.Year(), int(d.Start.Month())
	ey, em := d.End.Year(), int(d.End.Month())
	startsBefore := sy < y || (sy == y && sm <= m)
	endsAfter := ey > y || (ey == y && em >= m)
	return startsBefore && endsAfter
}

// ClosestToLimit returns the category entry (the total budget is excluded)
// with the highest spent/limit ratio, i.e. the one most at risk of being
// exceeded. Entries without a positive limit are skipped. Ties keep the
// lowest category id.
func (l *Ledger) ClosestToLimit(spent map[Key]decimal.Decimal) (Key, Details, bool) {
	var (
		bestKey   Key
		bestRatio float64
		found     bool
	)
	for _, k := range l.Keys() {
		if k.IsTotal() {
			continue
		}
		d := l.entries[k]
		if !d.Limit.IsPositive() {
			continue
		}
		ratio := spent[k].Div(d.Limit).InexactFloat64()
		if !found || ratio > bestRatio {
			bestKey, bestRatio, found = k, ratio, true
		}
	}
	if !found {
		return Key{}, Details{}, false
	}
	return bestKey, l.entries[bestKey], true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
