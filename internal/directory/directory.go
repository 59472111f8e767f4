package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robertmedinasb/payments-pipeline/internal/model"
)

// Directory reads user profiles from the users table. The table is owned by
// an external system; this side only ever looks up by key.
type Directory struct {
	db *pgxpool.Pool
}

func NewDirectory(db *pgxpool.Pool) *Directory {
	return &Directory{db: db}
}

func (d *Directory) Lookup(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := d.db.QueryRow(ctx, `
		SELECT user_id, name, last_name
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&u.UserID, &u.Name, &u.LastName)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to look up user %s: %w", userID, err)
	}

	return u, nil
}
