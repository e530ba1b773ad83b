package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the stored purchase-date format. Dates are parsed once at
// the scan boundary; nothing above the repository re-parses strings.
const DateLayout = "2006-01-02"

// User represents a user row.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Category represents a category row.
type Category struct {
	ID        string
	Name      string
	SortOrder int
}

// Product is one line item, exclusively owned by its transaction.
type Product struct {
	ID            string
	TransactionID string
	Name          string
	Price         decimal.Decimal
	Position      int
}

// Transaction represents a purchase with its line items. The total price is
// always derived from the products, never stored.
type Transaction struct {
	ID           string
	UserID       string
	CompanyName  string
	PurchaseDate time.Time
	CategoryID   *string
	CategoryName *string
	Products     []Product
	CreatedAt    time.Time
}

// TotalPrice is the sum of the line item prices.
func (t Transaction) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, p := range t.Products {
		total = total.Add(p.Price)
	}
	return total
}

// Budget represents a budget row. An empty CategoryID is the total budget.
type Budget struct {
	UserID     string
	CategoryID string
	Limit      decimal.Decimal
	TimeFrame  string
	Start      time.Time
	End        time.Time
}
