package receipt

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseTextAlternatingLines(t *testing.T) {
	t.Parallel()

	text := "Bread\n1.20\nMilk\n2.50\nEggs\n3.15"
	items := ParseText(text)
	require.Len(t, items, 3)
	require.Equal(t, "Bread", items[0].Name)
	require.True(t, items[0].Price.Equal(amt("1.20")))
	require.Equal(t, "Eggs", items[2].Name)
	require.True(t, items[2].Price.Equal(amt("3.15")))
}

func TestParseTextSequentialBlocks(t *testing.T) {
	t.Parallel()

	text := "Bread\nMilk\nEggs\n1.20\n2.50\n3.15"
	items := ParseText(text)
	require.Len(t, items, 3)
	require.Equal(t, "Milk", items[1].Name)
	require.True(t, items[1].Price.Equal(amt("2.50")))
}

func TestParseTextMixedStartingWithPrice(t *testing.T) {
	t.Parallel()

	// a leading orphan price line is dropped, as is a trailing orphan name
	text := "0.00\nBread\n1.20\nMilk\n2.50\nBag"
	items := ParseText(text)
	require.Len(t, items, 2)
	require.Equal(t, "Bread", items[0].Name)
	require.True(t, items[0].Price.Equal(amt("1.20")))
	require.Equal(t, "Milk", items[1].Name)
}

func TestParseTextMoreNamesThanPrices(t *testing.T) {
	t.Parallel()

	text := "Bread\nMilk\n1.20"
	items := ParseText(text)
	require.Len(t, items, 1)
	require.Equal(t, "Bread", items[0].Name)
}

func TestParseTextTaxFlagAndBlankLines(t *testing.T) {
	t.Parallel()

	text := "Bread\n\n  1.99 A \n\nMilk\n2.50 B"
	items := ParseText(text)
	require.Len(t, items, 2)
	require.True(t, items[0].Price.Equal(amt("1.99")))
	require.True(t, items[1].Price.Equal(amt("2.50")))
}

func TestParseTextEmpty(t *testing.T) {
	t.Parallel()

	require.Empty(t, ParseText(""))
	require.Empty(t, ParseText("\n  \n"))
}

func TestParseScan(t *testing.T) {
	t.Parallel()

	text := "Tesco Express\nBread\n1.20\nMilk\n2.50"
	company, items := ParseScan(text)
	require.Equal(t, "Tesco Express", company)
	require.Len(t, items, 2)
	require.Equal(t, "Bread", items[0].Name)
	require.True(t, items[1].Price.Equal(amt("2.50")))
}

func TestParseScanEmpty(t *testing.T) {
	t.Parallel()

	company, items := ParseScan("")
	require.Empty(t, company)
	require.Empty(t, items)
}
