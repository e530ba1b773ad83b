// Package catalog resolves free-text product names to canonical identities,
// so that the same real-world product can be compared across receipts and
// stores that spell its name differently.
package catalog

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// MatchThreshold is the maximum edit distance at which two product names are
// considered the same product.
const MatchThreshold = 8

// Mapping is one (canonical, variation) pair. Every variation maps to exactly
// one canonical name; a canonical name may have many variations, including
// itself.
type Mapping struct {
	Canonical string
	Variation string
}

// Resolution is the outcome of resolving an input name against known mappings.
type Resolution struct {
	Matched   bool
	Canonical string
	Distance  int
}

// ResolveCanonical finds the known variation closest to input by edit
// distance. A minimum distance within MatchThreshold yields a match against
// that variation's canonical name; otherwise the caller should treat input as
// its own new canonical name. Candidates are compared in sorted order so ties
// resolve deterministically.
func ResolveCanonical(input string, mappings []Mapping) Resolution {
	return resolve(input, mappings, func(m Mapping) string { return m.Variation })
}

// ResolveAgainstCanonicals behaves like ResolveCanonical but compares input
// against canonical names instead of variations.
func ResolveAgainstCanonicals(input string, mappings []Mapping) Resolution {
	return resolve(input, mappings, func(m Mapping) string { return m.Canonical })
}

func resolve(input string, mappings []Mapping, candidate func(Mapping) string) Resolution {
	if len(mappings) == 0 {
		return Resolution{Distance: -1}
	}

	sorted := make([]Mapping, len(mappings))
	copy(sorted, mappings)
	sort.Slice(sorted, func(i, j int) bool { return candidate(sorted[i]) < candidate(sorted[j]) })

	in := strings.ToLower(input)
	best := Resolution{Distance: -1}
	for _, m := range sorted {
		d := levenshtein.ComputeDistance(in, strings.ToLower(candidate(m)))
		if best.Distance < 0 || d < best.Distance {
			best = Resolution{Canonical: m.Canonical, Distance: d}
		}
	}
	best.Matched = best.Distance >= 0 && best.Distance <= MatchThreshold
	if !best.Matched {
		best.Canonical = ""
	}
	return best
}

// Suggestion lists canonical names whose variations loosely resemble an input
// name. It is a recall-oriented pre-filter for a user confirmation step, so
// false positives are expected.
type Suggestion struct {
	Found      bool
	Canonicals []string
	Exact      bool
}

// SuggestMatches returns canonical names for every known variation that
// contains, or is contained in, the input (case-insensitive). An exact
// case-insensitive match short-circuits to a single exact suggestion.
func SuggestMatches(input string, mappings []Mapping) Suggestion {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return Suggestion{}
	}

	for _, m := range mappings {
		if strings.ToLower(m.Variation) == in {
			return Suggestion{Found: true, Canonicals: []string{m.Canonical}, Exact: true}
		}
	}

	var out []string
	seen := make(map[string]bool)
	for _, m := range mappings {
		v := strings.ToLower(m.Variation)
		if !strings.Contains(v, in) && !strings.Contains(in, v) {
			continue
		}
		if seen[m.Canonical] {
			continue
		}
		seen[m.Canonical] = true
		out = append(out, m.Canonical)
	}
	return Suggestion{Found: len(out) > 0, Canonicals: out}
}

// CanonicalFor returns the canonical name mapped to item, or item itself when
// no mapping exists. Lookup is an exact case-insensitive variation match.
func CanonicalFor(item string, mappings []Mapping) string {
	in := strings.ToLower(item)
	for _, m := range mappings {
		if strings.ToLower(m.Variation) == in {
			return m.Canonical
		}
	}
	return item
}
