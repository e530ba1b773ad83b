package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// SeedDefaults ensures baseline categories exist for new databases.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	defaults := []string{
		"Groceries",
		"Eating Out",
		"Transport",
		"Household",
		"Clothing",
		"Health",
		"Entertainment",
	}
	for idx, name := range defaults {
		// stable ids so repeated seeding never duplicates
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("cat:"+name)).String()
		_, err := db.ExecContext(ctx, `
		INSERT INTO categories(id, name, sort_order)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING;
		`, id, name, idx)
		if err != nil {
			return err
		}
	}
	return nil
}
