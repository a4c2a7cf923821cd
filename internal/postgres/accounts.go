package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/club-portal/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AccountByEmail looks up login credentials. Emails are matched case-insensitively.
func (r *Repository) AccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	query := `
		SELECT id, email, display_name, password_hash, created_at
		FROM accounts
		WHERE lower(email) = lower($1)
	`
	var acc domain.Account
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(email)).Scan(
		&acc.ID,
		&acc.Email,
		&acc.DisplayName,
		&acc.PasswordHash,
		&acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("getting account: %w", err)
	}
	return acc, nil
}

// CreateAccount stores a new login
func (r *Repository) CreateAccount(ctx context.Context, acc domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, display_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		acc.ID,
		strings.TrimSpace(acc.Email),
		acc.DisplayName,
		acc.PasswordHash,
		acc.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: email already registered", domain.ErrInvalidRequest)
		}
		return fmt.Errorf("creating account: %w", err)
	}
	return nil
}
