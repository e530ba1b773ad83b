package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUpsertOverwrites(t *testing.T) {
	t.Parallel()

	l := New()
	key := ForCategory("groceries")
	l.Upsert(key, Details{Limit: amt("100"), Frame: FrameMonth})
	l.Upsert(key, Details{Limit: amt("250"), Frame: FrameMonth})

	require.Equal(t, 1, l.Len())
	d, ok := l.Get(key)
	require.True(t, ok)
	require.True(t, d.Limit.Equal(amt("250")))
}

func TestDeleteMissingKeyIsNoOp(t *testing.T) {
	t.Parallel()

	l := New()
	l.Upsert(Total(), Details{Limit: amt("500"), Frame: FrameTotal})
	l.Delete(ForCategory("nope"))
	require.Equal(t, 1, l.Len())
}

func TestRemainingNeverNegative(t *testing.T) {
	t.Parallel()

	l := New()
	key := ForCategory("eating-out")
	l.Upsert(key, Details{Limit: amt("50"), Frame: FrameWeek})

	spent := map[Key]decimal.Decimal{key: amt("80")}
	require.True(t, l.Remaining(key, spent).IsZero())

	spent[key] = amt("20")
	require.True(t, l.Remaining(key, spent).Equal(amt("30")))

	require.True(t, l.Remaining(ForCategory("missing"), spent).IsZero())
}

func TestSpentPercentageClamped(t *testing.T) {
	t.Parallel()

	l := New()
	key := ForCategory("transport")
	l.Upsert(key, Details{Limit: amt("100"), Frame: FrameMonth})

	require.Equal(t, 0.25, l.SpentPercentage(key, map[Key]decimal.Decimal{key: amt("25")}))
	require.Equal(t, 1.0, l.SpentPercentage(key, map[Key]decimal.Decimal{key: amt("300")}))
	require.Equal(t, 0.0, l.SpentPercentage(key, nil))
	require.Equal(t, 0.0, l.SpentPercentage(ForCategory("missing"), nil))

	zero := ForCategory("zero-limit")
	l.Upsert(zero, Details{Limit: decimal.Zero, Frame: FrameMonth})
	require.Equal(t, 0.0, l.SpentPercentage(zero, map[Key]decimal.Decimal{zero: amt("5")}))
}

func TestRemainingDays(t *testing.T) {
	t.Parallel()

	now := date(2024, time.March, 10)
	l := New()

	key := ForCategory("c")
	l.Upsert(key, Details{Limit: amt("10"), Frame: FrameMonth, Start: date(2024, time.March, 1), End: date(2024, time.March, 17)})
	days, expired := l.RemainingDays(key, now)
	require.False(t, expired)
	require.Equal(t, 7, days)

	past := ForCategory("past")
	l.Upsert(past, Details{Limit: amt("10"), Frame: FrameMonth, End: date(2024, time.February, 1)})
	days, expired = l.RemainingDays(past, now)
	require.True(t, expired)
	require.Equal(t, 0, days)

	_, expired = l.RemainingDays(ForCategory("missing"), now)
	require.True(t, expired)
}

func TestFilterForWindowTotalBleedsIntoMonth(t *testing.T) {
	t.Parallel()

	now := date(2024, time.March, 15)
	l := New()
	l.Upsert(ForCategory("m"), Details{Limit: amt("100"), Frame: FrameMonth})
	l.Upsert(ForCategory("w"), Details{Limit: amt("25"), Frame: FrameWeek})
	l.Upsert(Total(), Details{
		Limit: amt("1000"),
		Frame: FrameTotal,
		Start: date(2024, time.January, 1),
		End:   date(2024, time.June, 30),
	})

	month := l.FilterForWindow(FrameMonth, now)
	require.Len(t, month, 2)
	require.Contains(t, month, ForCategory("m"))
	require.Contains(t, month, Total())

	// total entries never surface in the week window
	week := l.FilterForWindow(FrameWeek, now)
	require.Len(t, week, 1)
	require.Contains(t, week, ForCategory("w"))

	// a total budget that ended before this month stays out
	l.Upsert(Total(), Details{
		Limit: amt("1000"),
		Frame: FrameTotal,
		Start: date(2024, time.January, 1),
		End:   date(2024, time.February, 28),
	})
	month = l.FilterForWindow(FrameMonth, now)
	require.Len(t, month, 1)
	require.NotContains(t, month, Total())
}

func TestClosestToLimit(t *testing.T) {
	t.Parallel()

	l := New()
	a, b := ForCategory("a"), ForCategory("b")
	l.Upsert(a, Details{Limit: amt("100"), Frame: FrameMonth})
	l.Upsert(b, Details{Limit: amt("50"), Frame: FrameMonth})
	l.Upsert(Total(), Details{Limit: amt("10"), Frame: FrameTotal})

	spent := map[Key]decimal.Decimal{
		a:       amt("40"), // 40%
		b:       amt("45"), // 90%
		Total(): amt("10"), // 100%, but the total is excluded
	}

	key, d, ok := l.ClosestToLimit(spent)
	require.True(t, ok)
	require.Equal(t, b, key)
	require.True(t, d.Limit.Equal(amt("50")))
}

func TestClosestToLimitSkipsNonPositiveLimits(t *testing.T) {
	t.Parallel()

	l := New()
	l.Upsert(ForCategory("zero"), Details{Limit: decimal.Zero, Frame: FrameMonth})
	_, _, ok := l.ClosestToLimit(nil)
	require.False(t, ok)
}

func TestValidFrame(t *testing.T) {
	t.Parallel()

	require.True(t, ValidFrame(FrameWeek))
	require.True(t, ValidFrame(FrameMonth))
	require.True(t, ValidFrame(FrameTotal))
	require.False(t, ValidFrame(Frame("fortnight")))
}

func TestKeysSortedTotalFirst(t *testing.T) {
	t.Parallel()

	l := New()
	l.Upsert(ForCategory("z"), Details{})
	l.Upsert(Total(), Details{})
	l.Upsert(ForCategory("a"), Details{})

	keys := l.Keys()
	require.Equal(t, []Key{Total(), ForCategory("a"), ForCategory("z")}, keys)
}
