package repository

import (
	"context"
	"database/sql"

	"github.com/spendwise/spendwise/internal/catalog"
)

// MappingRepo handles product name mappings.
type MappingRepo struct {
	db *sql.DB
}

func NewMappingRepo(db *sql.DB) *MappingRepo { return &MappingRepo{db: db} }

// Upsert records variation as mapping to canonical. An empty canonical makes
// the variation its own canonical name.
func (r *MappingRepo) Upsert(ctx context.Context, variation, canonical string) error {
	if canonical == "" {
		canonical = variation
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO product_mappings(variation, canonical)
	VALUES (?, ?)
	ON CONFLICT(variation) DO UPDATE SET canonical=excluded.canonical;
	`, variation, canonical)
	return err
}

func (r *MappingRepo) List(ctx context.Context) ([]catalog.Mapping, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT canonical, variation FROM product_mappings ORDER BY variation`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalog.Mapping
	for rows.Next() {
		var m catalog.Mapping
		if err := rows.Scan(&m.Canonical, &m.Variation); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CanonicalFor returns the canonical name for a variation, if mapped.
func (r *MappingRepo) CanonicalFor(ctx context.Context, variation string) (string, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT canonical FROM product_mappings WHERE variation = ?`, variation)
	var canonical string
	if err := row.Scan(&canonical); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return canonical, true, nil
}
