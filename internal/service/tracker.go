package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spendwise/spendwise/internal/analytics"
	"github.com/spendwise/spendwise/internal/catalog"
	"github.com/spendwise/spendwise/internal/database/repository"
	"github.com/spendwise/spendwise/internal/ledger"
	"github.com/spendwise/spendwise/internal/session"
)

// Tracker orchestrates per-user transaction and budget operations. All
// derived values are recomputed from a fresh snapshot on every Refresh;
// nothing is maintained incrementally.
type Tracker struct {
	Transactions *repository.TransactionRepo
	Categories   *repository.CategoryRepo
	Budgets      *repository.BudgetRepo
	Mappings     *repository.MappingRepo
	Session      session.Provider
	Now          func() time.Time
	Log          zerolog.Logger
}

func (s *Tracker) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Snapshot is an immutable read model: the full transaction set plus every
// derived budget figure, rebuilt on each fetch.
type Snapshot struct {
	FetchedAt    time.Time
	Transactions []repository.Transaction
	Categories   []repository.Category
	Budgets      *ledger.Ledger
	SpentByKey   map[ledger.Key]decimal.Decimal
	TotalSpent   decimal.Decimal
}

// CategoryName resolves a category id to its display name.
func (s Snapshot) CategoryName(id string) string {
	for _, c := range s.Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return analytics.UnknownCategory
}

// Refresh fetches everything for the current user and recomputes the derived
// values. The caller replaces any previous snapshot wholesale (last fetch
// wins).
func (s *Tracker) Refresh(ctx context.Context) (Snapshot, error) {
	userID, err := s.Session.UserID(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	txs, err := s.Transactions.List(ctx, repository.TransactionFilters{UserID: userID})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list transactions: %w", err)
	}
	cats, err := s.Categories.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list categories: %w", err)
	}
	rows, err := s.Budgets.List(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list budgets: %w", err)
	}

	budgets := ledger.New()
	for _, b := range rows {
		budgets.Upsert(ledger.Key{CategoryID: b.CategoryID}, ledger.Details{
			Limit: b.Limit,
			Frame: ledger.Frame(b.TimeFrame),
			Start: b.Start,
			End:   b.End,
		})
	}

	spent := make(map[ledger.Key]decimal.Decimal)
	for id, amount := range analytics.SumByCategoryID(txs) {
		if id == "" {
			continue // uncategorized spending has no budget key
		}
		spent[ledger.ForCategory(id)] = amount
	}
	total := analytics.Total(txs)
	spent[ledger.Total()] = total

	return Snapshot{
		FetchedAt:    s.now(),
		Transactions: txs,
		Categories:   cats,
		Budgets:      budgets,
		SpentByKey:   spent,
		TotalSpent:   total,
	}, nil
}

// NewProduct is one line item of a transaction being created.
type NewProduct struct {
	Name  string
	Price decimal.Decimal
}

// NewTransaction is the input for AddTransaction.
type NewTransaction struct {
	CompanyName string
	Date        time.Time
	CategoryID  *string
	Products    []NewProduct
}

// AddTransaction validates and stores a purchase. Each product name is
// registered as a name mapping: matched within the edit-distance threshold
// to an existing canonical name, or recorded as its own.
func (s *Tracker) AddTransaction(ctx context.Context, in NewTransaction) (string, error) {
	userID, err := s.Session.UserID(ctx)
	if err != nil {
		return "", err
	}

	if in.CompanyName == "" {
		return "", invalid("company name", "must not be empty")
	}
	if in.Date.IsZero() {
		return "", invalid("date", "must be set")
	}
	if len(in.Products) == 0 {
		return "", invalid("products", "at least one product is required")
	}
	for _, p := range in.Products {
		if p.Name == "" {
			return "", invalid("product name", "must not be empty")
		}
		if p.Price.IsNegative() {
			return "", invalid("product price", fmt.Sprintf("%s must not be negative", p.Price))
		}
	}

	mappings, err := s.Mappings.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list mappings: %w", err)
	}

	t := repository.Transaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		CompanyName:  in.CompanyName,
		PurchaseDate: in.Date,
		CategoryID:   in.CategoryID,
	}
	for _, p := range in.Products {
		t.Products = append(t.Products, repository.Product{
			ID:            uuid.NewString(),
			TransactionID: t.ID,
			Name:          p.Name,
			Price:         p.Price,
		})

		res := catalog.ResolveCanonical(p.Name, mappings)
		canonical := p.Name
		if res.Matched {
			canonical = res.Canonical
		}
		if err := s.Mappings.Upsert(ctx, p.Name, canonical); err != nil {
			return "", fmt.Errorf("record name mapping: %w", err)
		}
		mappings = append(mappings, catalog.Mapping{Canonical: canonical, Variation: p.Name})
	}

	if err := s.Transactions.Insert(ctx, t); err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	s.Log.Info().Str("transaction_id", t.ID).Str("company", t.CompanyName).Msg("transaction added")
	return t.ID, nil
}

// SetTransactionCategory reassigns a purchase's category; nil clears it.
func (s *Tracker) SetTransactionCategory(ctx context.Context, id string, categoryID *string) error {
	if _, err := s.Session.UserID(ctx); err != nil {
		return err
	}
	if err := s.Transactions.UpdateCategory(ctx, id, categoryID); err != nil {
		return fmt.Errorf("update transaction category: %w", err)
	}
	return nil
}

// DeleteTransaction removes a purchase and its line items.
func (s *Tracker) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := s.Session.UserID(ctx); err != nil {
		return err
	}
	if err := s.Transactions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// SetBudget upserts the budget entry for key. Existing entries for the same
// key are overwritten, never duplicated.
func (s *Tracker) SetBudget(ctx context.Context, key ledger.Key, d ledger.Details) error {
	userID, err := s.Session.UserID(ctx)
	if err != nil {
		return err
	}
	if d.Limit.IsNegative() {
		return invalid("budget limit", fmt.Sprintf("%s must not be negative", d.Limit))
	}
	if !ledger.ValidFrame(d.Frame) {
		return invalid("budget time frame", fmt.Sprintf("unknown frame %q", d.Frame))
	}
	if d.End.Before(d.Start) {
		return invalid("budget date range", "end date precedes start date")
	}

	err = s.Budgets.Upsert(ctx, repository.Budget{
		UserID:     userID,
		CategoryID: key.CategoryID,
		Limit:      d.Limit,
		TimeFrame:  string(d.Frame),
		Start:      d.Start,
		End:        d.End,
	})
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// DeleteBudget removes the entry for key; deleting a missing key is a no-op.
func (s *Tracker) DeleteBudget(ctx context.Context, key ledger.Key) error {
	userID, err := s.Session.UserID(ctx)
	if err != nil {
		return err
	}
	if err := s.Budgets.Delete(ctx, userID, key.CategoryID); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// DeleteTotalBudget removes the overall budget entry.
func (s *Tracker) DeleteTotalBudget(ctx context.Context) error {
	return s.DeleteBudget(ctx, ledger.Total())
}

// AddCategory creates a category and returns its id.
func (s *Tracker) AddCategory(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", invalid("category name", "must not be empty")
	}
	c := repository.Category{ID: uuid.NewString(), Name: name}
	if err := s.Categories.Upsert(ctx, c); err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return c.ID, nil
}

// RenameCategory changes a category's display name. Budget entries keep
// working because they reference the category id, not the name.
func (s *Tracker) RenameCategory(ctx context.Context, id, name string) error {
	if name == "" {
		return invalid("category name", "must not be empty")
	}
	if err := s.Categories.Rename(ctx, id, name); err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	return nil
}

// DeleteCategory removes a category. Its transactions become uncategorized.
// A budget entry for the category is left in place and logged; reconciling
// it is a pending product decision.
func (s *Tracker) DeleteCategory(ctx context.Context, id string) error {
	userID, err := s.Session.UserID(ctx)
	if err != nil {
		return err
	}
	if err := s.Categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	orphaned, err := s.Budgets.Exists(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("check budget for deleted category: %w", err)
	}
	if orphaned {
		s.Log.Warn().Str("category_id", id).Msg("deleted category still has a budget entry")
	}
	return nil
}

// SuggestProductNames returns canonical-name suggestions for a partial
// product name, for a user confirmation step.
func (s *Tracker) SuggestProductNames(ctx context.Context, input string) (catalog.Suggestion, error) {
	mappings, err := s.Mappings.List(ctx)
	if err != nil {
		return catalog.Suggestion{}, fmt.Errorf("list mappings: %w", err)
	}
	return catalog.SuggestMatches(input, mappings), nil
}
