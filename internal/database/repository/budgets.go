package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BudgetRepo handles budget rows. At most one row exists per
// (user, category-or-total) pair; Upsert overwrites.
type BudgetRepo struct {
	db *sql.DB
}

func NewBudgetRepo(db *sql.DB) *BudgetRepo { return &BudgetRepo{db: db} }

func (r *BudgetRepo) Upsert(ctx context.Context, b Budget) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO budgets(user_id, category_id, limit_amount, time_frame, start_date, end_date)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, category_id) DO UPDATE SET
	 limit_amount=excluded.limit_amount,
	 time_frame=excluded.time_frame,
	 start_date=excluded.start_date,
	 end_date=excluded.end_date;
	`, b.UserID, b.CategoryID, b.Limit, b.TimeFrame,
		b.Start.Format(DateLayout), b.End.Format(DateLayout))
	return err
}

// Delete removes a budget entry. Deleting a missing entry is a no-op.
func (r *BudgetRepo) Delete(ctx context.Context, userID, categoryID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE user_id = ? AND category_id = ?`, userID, categoryID)
	return err
}

func (r *BudgetRepo) List(ctx context.Context, userID string) ([]Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT user_id, category_id, limit_amount, time_frame, start_date, end_date
	FROM budgets WHERE user_id = ? ORDER BY category_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		var (
			b          Budget
			start, end string
		)
		if err := rows.Scan(&b.UserID, &b.CategoryID, &b.Limit, &b.TimeFrame, &start, &end); err != nil {
			return nil, err
		}
		if b.Start, err = time.Parse(DateLayout, start); err != nil {
			return nil, fmt.Errorf("budget %q start date: %w", b.CategoryID, err)
		}
		if b.End, err = time.Parse(DateLayout, end); err != nil {
			return nil, fmt.Errorf("budget %q end date: %w", b.CategoryID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Exists reports whether a budget entry is stored for the given key.
func (r *BudgetRepo) Exists(ctx context.Context, userID, categoryID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM budgets WHERE user_id = ? AND category_id = ?`, userID, categoryID)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
