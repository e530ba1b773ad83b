package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spendwise/spendwise/internal/catalog"
	"github.com/spendwise/spendwise/internal/database"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	UserID     string
	CategoryID string
	From       time.Time // inclusive; zero time = unbounded
	To         time.Time // inclusive; zero time = unbounded
	Search     string
}

// TransactionRepo handles transactions and their product line items.
type TransactionRepo struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db, log: zerolog.Nop()}
}

// WithLogger sets the logger used to report rows excluded for malformed
// stored dates.
func (r *TransactionRepo) WithLogger(log zerolog.Logger) *TransactionRepo {
	r.log = log
	return r
}

// Insert stores the transaction and its products atomically.
func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions(id, user_id, company_name, purchase_date, category_id, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
		`, t.ID, t.UserID, t.CompanyName, t.PurchaseDate.Format(DateLayout), t.CategoryID)
		if err != nil {
			return err
		}
		for i, p := range t.Products {
			_, err = tx.ExecContext(ctx, `
			INSERT INTO products(id, transaction_id, name, price, position)
			VALUES (?, ?, ?, ?, ?);
			`, p.ID, t.ID, p.Name, p.Price, i)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateCategory reassigns the transaction's category; nil clears it.
func (r *TransactionRepo) UpdateCategory(ctx context.Context, id string, categoryID *string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE transactions SET category_id = ? WHERE id = ?`, categoryID, id)
	return err
}

// Delete removes the transaction; its products go with it (cascade).
func (r *TransactionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	return err
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	out, err := r.list(ctx, "t.id = ?", []interface{}{id})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]Transaction, error) {
	var where []string
	var args []interface{}

	if f.UserID != "" {
		where = append(where, "t.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.CategoryID != "" {
		where = append(where, "t.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		where = append(where, "t.purchase_date >= ?")
		args = append(args, f.From.Format(DateLayout))
	}
	if !f.To.IsZero() {
		where = append(where, "t.purchase_date <= ?")
		args = append(args, f.To.Format(DateLayout))
	}
	if f.Search != "" {
		where = append(where, "t.company_name LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}
	return r.list(ctx, strings.Join(where, " AND "), args)
}

func (r *TransactionRepo) list(ctx context.Context, where string, args []interface{}) ([]Transaction, error) {
	query := `
	SELECT t.id, t.user_id, t.company_name, t.purchase_date, t.category_id, c.name, t.created_at
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY t.purchase_date DESC, t.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	malformed := 0
	for rows.Next() {
		var (
			t       Transaction
			dateStr string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.CompanyName, &dateStr, &t.CategoryID, &t.CategoryName, &t.CreatedAt); err != nil {
			return nil, err
		}
		d, err := time.Parse(DateLayout, dateStr)
		if err != nil {
			// excluded from every date-filtered view, but never silently
			malformed++
			r.log.Warn().Str("transaction_id", t.ID).Str("purchase_date", dateStr).Msg("skipping transaction with malformed date")
			continue
		}
		t.PurchaseDate = d
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if malformed > 0 {
		r.log.Warn().Int("excluded", malformed).Msg("transactions excluded for malformed dates")
	}

	for i := range out {
		products, err := r.fetchProducts(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Products = products
	}
	return out, nil
}

func (r *TransactionRepo) fetchProducts(ctx context.Context, transactionID string) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, transaction_id, name, price, position
	FROM products WHERE transaction_id = ? ORDER BY position`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.Name, &p.Price, &p.Position); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// PriceHistory returns, for one user, the minimum price observed for each
// (store, product name) pair across all recorded purchases.
func (r *TransactionRepo) PriceHistory(ctx context.Context, userID string) ([]catalog.PriceRecord, error) {
	return r.priceHistory(ctx, "WHERE t.user_id = ?", []interface{}{userID})
}

// PriceHistoryAll is PriceHistory over every user's purchases.
func (r *TransactionRepo) PriceHistoryAll(ctx context.Context) ([]catalog.PriceRecord, error) {
	return r.priceHistory(ctx, "", nil)
}

func (r *TransactionRepo) priceHistory(ctx context.Context, where string, args []interface{}) ([]catalog.PriceRecord, error) {
	query := `
	SELECT t.company_name, p.name, MIN(p.price)
	FROM products p
	JOIN transactions t ON t.id = p.transaction_id
	` + where + `
	GROUP BY t.company_name, p.name
	ORDER BY t.company_name, p.name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalog.PriceRecord
	for rows.Next() {
		var rec catalog.PriceRecord
		if err := rows.Scan(&rec.Store, &rec.Item, &rec.Price); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CheapestPriceAt returns the lowest recorded price for the named product at
// the given store, if any.
func (r *TransactionRepo) CheapestPriceAt(ctx context.Context, name, store string) (decimal.Decimal, bool, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT MIN(p.price)
	FROM products p
	JOIN transactions t ON t.id = p.transaction_id
	WHERE p.name = ? AND t.company_name = ?`, name, store)
	var price sql.NullFloat64
	if err := row.Scan(&price); err != nil {
		return decimal.Zero, false, err
	}
	if !price.Valid {
		return decimal.Zero, false, nil
	}
	return decimal.NewFromFloat(price.Float64), true, nil
}
