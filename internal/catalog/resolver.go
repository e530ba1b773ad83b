package catalog

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoFulfillingStore means no single store has price data for every
// requested item. A partial-cost store is never returned in its place.
var ErrNoFulfillingStore = errors.New("no store can fulfil every item on the list")

// PriceRecord is one observed (store, item, price) from purchase history.
type PriceRecord struct {
	Store string
	Item  string
	Price decimal.Decimal
}

// StoreQuote is the winning store for a shopping list, with the minimum
// observed price per requested item.
type StoreQuote struct {
	Store string
	Total decimal.Decimal
	Items map[string]decimal.Decimal
}

// CheapestStore determines which store would fulfil every item on the
// shopping list for the lowest total cost. Each item resolves through the
// mappings to its canonical name (falling back to itself), then matches any
// recorded variation of that canonical name. A store missing price data for
// any item is disqualified. When stores is non-nil the comparison is
// restricted to that set.
func CheapestStore(items []string, mappings []Mapping, history []PriceRecord, stores []string) (StoreQuote, error) {
	if len(items) == 0 {
		return StoreQuote{}, errors.New("empty shopping list")
	}

	variationsByCanonical := make(map[string][]string)
	for _, m := range mappings {
		c := strings.ToLower(m.Canonical)
		variationsByCanonical[c] = append(variationsByCanonical[c], strings.ToLower(m.Variation))
	}

	// one pass over history: store -> item variation -> min price
	minPrice := make(map[string]map[string]decimal.Decimal)
	for _, rec := range history {
		byItem := minPrice[rec.Store]
		if byItem == nil {
			byItem = make(map[string]decimal.Decimal)
			minPrice[rec.Store] = byItem
		}
		name := strings.ToLower(rec.Item)
		if cur, ok := byItem[name]; !ok || rec.Price.LessThan(cur) {
			byItem[name] = rec.Price
		}
	}

	// copied so the sort never reorders the caller's slice
	candidates := append([]string(nil), stores...)
	if stores == nil {
		for store := range minPrice {
			candidates = append(candidates, store)
		}
	}
	sort.Strings(candidates)

	var best *StoreQuote
	for _, store := range candidates {
		byItem := minPrice[store]
		if byItem == nil {
			continue
		}
		quote := StoreQuote{Store: store, Items: make(map[string]decimal.Decimal, len(items))}
		fulfils := true
		for _, item := range items {
			canonical := strings.ToLower(CanonicalFor(item, mappings))
			names := append([]string{canonical, strings.ToLower(item)}, variationsByCanonical[canonical]...)

			found := false
			var itemMin decimal.Decimal
			for _, name := range names {
				p, ok := byItem[name]
				if !ok {
					continue
				}
				if !found || p.LessThan(itemMin) {
					itemMin = p
					found = true
				}
			}
			if !found {
				fulfils = false
				break
			}
			quote.Items[item] = itemMin
			quote.Total = quote.Total.Add(itemMin)
		}
		if !fulfils {
			continue
		}
		if best == nil || quote.Total.LessThan(best.Total) {
			q := quote
			best = &q
		}
	}
	if best == nil {
		return StoreQuote{}, ErrNoFulfillingStore
	}
	return *best, nil
}
