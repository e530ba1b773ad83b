package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// UserRepo handles users.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Insert(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO users(id, name, email, password_hash, created_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, u.ID, u.Name, u.Email, u.PasswordHash)
	return err
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email)
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Ensure creates the user for email if missing and returns it. The id is
// derived from the email so repeated runs are stable.
func (r *UserRepo) Ensure(ctx context.Context, name, email string) (*User, error) {
	existing, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	u := User{
		ID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte("user:"+email)).String(),
		Name:  name,
		Email: email,
	}
	if err := r.Insert(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}
