// Package receipt turns pasted or scanned receipt text into product line
// items. Receipts come in two shapes: mixed (a product line followed by its
// price line, repeating) and sequential (all product lines, then all price
// lines); the parser detects which one it is looking at and pairs names with
// prices accordingly.
package receipt

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Item is one parsed line item.
type Item struct {
	Name  string
	Price decimal.Decimal
}

var (
	// a price token such as "1.99", optionally with a trailing tax flag
	// letter as supermarket receipts print it ("1.99 A")
	priceLineRe  = regexp.MustCompile(`\d+\.\d{2}\s*[A-Z]?`)
	priceTokenRe = regexp.MustCompile(`\d+\.\d{2}`)
)

// ParseText parses pasted receipt text into items.
func ParseText(text string) []Item {
	lines := splitLines(text)
	if detectMixedFormat(lines) {
		return parseMixedFormat(lines)
	}
	return parseSequentialFormat(lines)
}

// ParseScan parses scanner output: the first line is the store name, the
// remaining lines are product names and prices paired in order of
// appearance.
func ParseScan(text string) (company string, items []Item) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return "", nil
	}
	company = lines[0]

	var names []string
	var prices []decimal.Decimal
	for _, line := range lines[1:] {
		if p, ok := extractPrice(line); ok {
			prices = append(prices, p)
		} else {
			names = append(names, line)
		}
	}
	n := len(names)
	if len(prices) < n {
		n = len(prices)
	}
	for i := 0; i < n; i++ {
		items = append(items, Item{Name: names[i], Price: prices[i]})
	}
	return company, items
}

// detectMixedFormat reports whether product and price lines strictly
// alternate. Two consecutive lines of the same kind mean the receipt lists
// all products first and all prices after.
func detectMixedFormat(lines []string) bool {
	previousIsPrice := false
	for _, line := range lines {
		currentIsPrice := priceLineRe.MatchString(line)
		if currentIsPrice == previousIsPrice {
			return false
		}
		previousIsPrice = currentIsPrice
	}
	return true
}

func parseMixedFormat(lines []string) []Item {
	var items []Item
	var pendingName string
	for _, line := range lines {
		if priceLineRe.MatchString(line) {
			if pendingName != "" {
				if p, ok := extractPrice(line); ok {
					items = append(items, Item{Name: pendingName, Price: p})
				}
				pendingName = ""
			}
			continue
		}
		pendingName = line
	}
	return items
}

func parseSequentialFormat(lines []string) []Item {
	var names []string
	var prices []decimal.Decimal
	for _, line := range lines {
		if priceLineRe.MatchString(line) {
			if p, ok := extractPrice(line); ok {
				prices = append(prices, p)
			}
			continue
		}
		names = append(names, line)
	}

	var items []Item
	for i, name := range names {
		if i >= len(prices) {
			break
		}
		items = append(items, Item{Name: name, Price: prices[i]})
	}
	return items
}

func extractPrice(line string) (decimal.Decimal, bool) {
	token := priceTokenRe.FindString(line)
	if token == "" {
		return decimal.Zero, false
	}
	p, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Zero, false
	}
	return p, true
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
