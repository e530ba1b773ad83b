package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/spendwise/spendwise/internal/catalog"
	"github.com/spendwise/spendwise/internal/database"
	"github.com/spendwise/spendwise/internal/database/repository"
	"github.com/spendwise/spendwise/internal/ledger"
	"github.com/spendwise/spendwise/internal/session"
)

var testNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T) (*Tracker, *sql.DB, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrationsWithDB(db))
	t.Log("migrations applied")

	users := repository.NewUserRepo(db)
	user, err := users.Ensure(ctx, "Test User", "test@example.com")
	require.NoError(t, err)

	tracker := &Tracker{
		Transactions: repository.NewTransactionRepo(db),
		Categories:   repository.NewCategoryRepo(db),
		Budgets:      repository.NewBudgetRepo(db),
		Mappings:     repository.NewMappingRepo(db),
		Session:      session.Static(user.ID),
		Now:          func() time.Time { return testNow },
	}
	return tracker, db, ctx
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAddTransactionAndSnapshot(t *testing.T) {
	t.Parallel()

	tracker, _, ctx := newTestTracker(t)

	catID, err := tracker.AddCategory(ctx, "Groceries")
	require.NoError(t, err)

	id, err := tracker.AddTransaction(ctx, NewTransaction{
		CompanyName: "Tesco",
		Date:        time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
		CategoryID:  &catID,
		Products: []NewProduct{
			{Name: "Bread", Price: amt("1.20")},
			{Name: "Milk", Price: amt("2.50")},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	t.Log("transaction stored")

	snap, err := tracker.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, testNow, snap.FetchedAt)
	require.Len(t, snap.Transactions, 1)

	tx := snap.Transactions[0]
	require.Equal(t, "Tesco", tx.CompanyName)
	require.Len(t, tx.Products, 2)
	// the transaction total is always the sum of its line items
	require.True(t, tx.TotalPrice().Equal(amt("3.70")), "total %s", tx.TotalPrice())
	require.True(t, snap.TotalSpent.Equal(amt("3.70")))
	require.NotNil(t, tx.CategoryName)
	require.Equal(t, "Groceries", *tx.CategoryName)
	require.True(t, snap.SpentByKey[ledger.ForCategory(catID)].Equal(amt("3.70")))
	require.True(t, snap.SpentByKey[ledger.Total()].Equal(amt("3.70")))
}

func TestAddTransactionValidation(t *testing.T) {
	t.Parallel()

	tracker, _, ctx := newTestTracker(t)
	date := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)

	var verr *ValidationError

	_, err := tracker.AddTransaction(ctx, NewTransaction{Date: date, Products: []NewProduct{{Name: "x", Price: amt("1")}}})
	require.ErrorAs(t, err, &verr)

	_, err = tracker.AddTransaction(ctx, NewTransaction{CompanyName: "Shop", Products: []NewProduct{{Name: "x", Price: amt("1")}}})
	require.ErrorAs(t, err, &verr)

	_, err = tracker.AddTransaction(ctx, NewTransaction{CompanyName: "Shop", Date: date})
	require.ErrorAs(t, err, &verr)

	_, err = tracker.AddTransaction(ctx, NewTransaction{
		CompanyName: "Shop", Date: date,
		Products: []NewProduct{{Name: "x", Price: amt("-1.00")}},
	})
	require.ErrorAs(t, err, &verr)
}

func TestAddTransactionRecordsNameMappings(t *testing.T) {
	t.Parallel()

	tracker, _, ctx := newTestTracker(t)
	date := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)

	_, err := tracker.AddTransaction(ctx, NewTransaction{
		CompanyName: "Tesco", Date: date,
		Products: []NewProduct{{Name: "bananas", Price: amt("0.90")}},
	})
	require.NoError(t, err)

	// within the edit-distance threshold: maps to the existing canonical
	_, err = tracker.AddTransaction(ctx, NewTransaction{
		CompanyName: "Aldi", Date: date,
		Products: []NewProduct{{Name: "Bananas 5pk", Price: amt("0.80")}},
	})
	require.NoError(t, err)

	mappings, err := tracker.Mappings.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "bananas", catalog.CanonicalFor("Bananas 5pk", mappings))

	sugg, err := tracker.SuggestProductNames(ctx, "bananas")
	require.NoError(t, err)
	require.True(t, sugg.Found)
}

func TestUnauthenticated(t *testing.T) {
	t.Parallel()

	tracker, _, ctx := newTestTracker(t)
	tracker.Session = session.Static("")

	_, err := tracker.Refresh(ctx)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	_, err = tracker.AddTransaction(ctx, NewTransaction{})
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	err = tracker.SetBudget(ctx, ledger.Total(), ledger.Details{})
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestDeleteTransactionCascades(t *testing.T) {
	t.Parallel()

	tracker, _, ctx := newTestTracker(t)
	date := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)

	id, err := tracker.AddTransaction(ctx, NewTransaction{
		CompanyName: "Tesco", Date: date,
		Products: []NewProduct{{Name: "Bread", Price: amt("1.20")}},
	})
	require.NoError(t, err)
	require.NoError(t, tracker.DeleteTransaction(ctx, id))

	snap, err := tracker.Refresh(ctx)
	require.NoError(t, err)
	require.Empty(t, snap.Transactions)
}

func TestSetBudgetUpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	tracker, _, ctx := newTestTracker(t)
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)

	catID, err := tracker.AddCategory(ctx, "Groceries")
	require.NoError(t, err)
	key := ledger.ForCategory(catID)

	require.NoError(t, tracker.SetBudget(ctx, key, ledger.Details{Limit: amt("100"), Frame: ledger.FrameMonth, Start: start, End: end}))
	require.NoError(t, tracker.SetBudget(ctx, key, ledger.Details{Limit: amt("250"), Frame: ledger.FrameMonth, Start: start, End: end}))
	require.NoError(t, tracker.SetBudget(ctx, ledger.Total(), ledger.Details{Limit: amt("1000"), Frame: ledger.FrameTotal, Start: start, End: end}))

	snap, err := tracker.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Budgets.Len())

	d, ok := snap.Budgets.Get(key)
	require.True(t, ok)
	require.True(t, d.Limit.Equal(amt("250")), "limit %s", d.Limit)

	d, ok = snap.Budgets.Get(ledger.Total())
	require.True(t, ok)
	require.True(t, d.Limit.Equal(amt("1000")))
}

func TestSetBudgetValidation(t *testing.T) {
	t.Parallel()

	tracker, _, ctx := newTestTracker(t)
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	var verr *ValidationError

	err := tracker.SetBudget(ctx, ledger.Total(), ledger.Details{Limit: amt("-1"), Frame: ledger.FrameTotal, Start: start, End: start})
	require.ErrorAs(t, err, &verr)

	err = tracker.SetBudget(ctx, ledger.Total(), ledger.Details{Limit: amt("1"), Frame: ledger.Frame("decade"), Start: start, End: start})
	require.ErrorAs(t, err, &verr)

	err = tracker.SetBudget(ctx, ledger.Total(), ledger.Details{Limit: amt("1"), Frame: ledger.FrameTotal, Start: start, End: start.AddDate(0, 0, -1)})
	require.ErrorAs(t, err, &verr)
}

func TestDeleteBudgetIdempotent(t *testing.T) {
	t.Parallel()

	tracker, _, ctx := newTestTracker(t)
	require.NoError(t, tracker.DeleteBudget(ctx, ledger.ForCategory("never-existed")))
	require.NoError(t, tracker.DeleteTotalBudget(ctx))
}

func TestDeleteCategoryLeavesTransactionsUncategorized(t *testing.T) {
	t.Parallel()

	tracker, _, ctx := newTestTracker(t)
	date := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	catID, err := tracker.AddCategory(ctx, "Doomed")
	require.NoError(t, err)

	_, err = tracker.AddTransaction(ctx, NewTransaction{
		CompanyName: "Shop", Date: date, CategoryID: &catID,
		Products: []NewProduct{{Name: "thing", Price: amt("5.00")}},
	})
	require.NoError(t, err)

	// a budget entry for the category survives the deletion
	require.NoError(t, tracker.SetBudget(ctx, ledger.ForCategory(catID), ledger.Details{
		Limit: amt("50"), Frame: ledger.FrameMonth, Start: start, End: start.AddDate(0, 1, -1),
	}))

	require.NoError(t, tracker.DeleteCategory(ctx, catID))

	snap, err := tracker.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 1)
	require.Nil(t, snap.Transactions[0].CategoryID)
	require.True(t, snap.TotalSpent.Equal(amt("5.00")))

	exists, err := tracker.Budgets.Exists(ctx, mustUserID(t, ctx, tracker), catID)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRenameCategory(t *testing.T) {
	t.Parallel()

	tracker, _, ctx := newTestTracker(t)

	catID, err := tracker.AddCategory(ctx, "Grocries")
	require.NoError(t, err)
	require.NoError(t, tracker.RenameCategory(ctx, catID, "Groceries"))

	snap, err := tracker.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, "Groceries", snap.CategoryName(catID))
}

func mustUserID(t *testing.T, ctx context.Context, tracker *Tracker) string {
	t.Helper()
	id, err := tracker.Session.UserID(ctx)
	require.NoError(t, err)
	return id
}
