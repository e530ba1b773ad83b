package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCanonicalWithinThreshold(t *testing.T) {
	t.Parallel()

	mappings := []Mapping{
		{Canonical: "Bananas", Variation: "bananas"},
		{Canonical: "Whole Milk", Variation: "milk 2l"},
	}

	// distance 8: eight appended characters.
	res := ResolveCanonical("bananas"+strings.Repeat("x", 8), mappings)
	require.True(t, res.Matched)
	require.Equal(t, "Bananas", res.Canonical)
	require.Equal(t, 8, res.Distance)

	// distance 9: one past the threshold, no match.
	res = ResolveCanonical("bananas"+strings.Repeat("x", 9), mappings)
	require.False(t, res.Matched)
	require.Empty(t, res.Canonical)
	require.Equal(t, 9, res.Distance)
}

func TestResolveCanonicalCaseInsensitive(t *testing.T) {
	t.Parallel()

	mappings := []Mapping{{Canonical: "Bananas", Variation: "bananas"}}
	res := ResolveCanonical("BANANAS", mappings)
	require.True(t, res.Matched)
	require.Equal(t, 0, res.Distance)
	require.Equal(t, "Bananas", res.Canonical)
}

func TestResolveCanonicalEmptyMappings(t *testing.T) {
	t.Parallel()

	res := ResolveCanonical("anything", nil)
	require.False(t, res.Matched)
	require.Equal(t, -1, res.Distance)
}

func TestResolveCanonicalDeterministicTies(t *testing.T) {
	t.Parallel()

	// "ab" and "ac" are both distance 1 from "aa"; the lexicographically
	// first variation must win regardless of input order.
	mappings := []Mapping{
		{Canonical: "Zed", Variation: "ab"},
		{Canonical: "Alpha", Variation: "ac"},
	}
	first := ResolveCanonical("aa", mappings)

	reversed := []Mapping{mappings[1], mappings[0]}
	second := ResolveCanonical("aa", reversed)

	require.Equal(t, first, second)
	require.Equal(t, "Zed", first.Canonical)
	require.Equal(t, 1, first.Distance)
}

func TestResolveAgainstCanonicals(t *testing.T) {
	t.Parallel()

	mappings := []Mapping{
		{Canonical: "Whole Milk", Variation: "milk 2l pint xx"},
	}
	res := ResolveAgainstCanonicals("whole milk", mappings)
	require.True(t, res.Matched)
	require.Equal(t, "Whole Milk", res.Canonical)
	require.Equal(t, 0, res.Distance)
}

func TestSuggestMatchesExactShortCircuits(t *testing.T) {
	t.Parallel()

	mappings := []Mapping{
		{Canonical: "Coca-Cola", Variation: "coke 330ml"},
		{Canonical: "Coca-Cola Zero", Variation: "coke zero"},
	}

	s := SuggestMatches("Coke 330ml", mappings)
	require.True(t, s.Found)
	require.True(t, s.Exact)
	require.Equal(t, []string{"Coca-Cola"}, s.Canonicals)
}

func TestSuggestMatchesSubstring(t *testing.T) {
	t.Parallel()

	mappings := []Mapping{
		{Canonical: "Coca-Cola", Variation: "coke 330ml"},
		{Canonical: "Coca-Cola Zero", Variation: "coke zero"},
		{Canonical: "Bread", Variation: "sourdough loaf"},
	}

	s := SuggestMatches("coke", mappings)
	require.True(t, s.Found)
	require.False(t, s.Exact)
	require.Equal(t, []string{"Coca-Cola", "Coca-Cola Zero"}, s.Canonicals)
}

func TestSuggestMatchesDedupesCanonicals(t *testing.T) {
	t.Parallel()

	mappings := []Mapping{
		{Canonical: "Coca-Cola", Variation: "coke 330ml"},
		{Canonical: "Coca-Cola", Variation: "coke can"},
	}

	s := SuggestMatches("coke", mappings)
	require.True(t, s.Found)
	require.Equal(t, []string{"Coca-Cola"}, s.Canonicals)
}

func TestSuggestMatchesEmptyInput(t *testing.T) {
	t.Parallel()

	s := SuggestMatches("   ", []Mapping{{Canonical: "Bread", Variation: "bread"}})
	require.False(t, s.Found)
	require.Empty(t, s.Canonicals)
}

func TestCanonicalFor(t *testing.T) {
	t.Parallel()

	mappings := []Mapping{{Canonical: "Whole Milk", Variation: "milk 2l"}}
	require.Equal(t, "Whole Milk", CanonicalFor("MILK 2L", mappings))
	require.Equal(t, "oat milk", CanonicalFor("oat milk", mappings))
}
