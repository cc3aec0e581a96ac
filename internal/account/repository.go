package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists accounts. Create and SetPin are conditional writes so
// concurrent requests for the same uid cannot both succeed.
type Repository interface {
	// Create stores a new account, or returns ErrAccountExists.
	Create(ctx context.Context, account Account) error
	// Get returns the account for uid, or ErrAccountNotFound.
	Get(ctx context.Context, uid string) (Account, error)
	// SetPin records the PIN hash while the account has no PIN yet. It returns
	// ErrAccountNotFound or ErrPinAlreadySet when the update cannot apply.
	SetPin(ctx context.Context, uid string, hash []byte, createdAt time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL. It expects:
//
//	CREATE TABLE accounts (
//	    uid            TEXT PRIMARY KEY,
//	    name           TEXT NOT NULL,
//	    email          TEXT NOT NULL DEFAULT '',
//	    balance        BIGINT NOT NULL DEFAULT 0,
//	    has_pin        BOOLEAN NOT NULL DEFAULT FALSE,
//	    pin_hash       BYTEA,
//	    pin_created_at TIMESTAMPTZ,
//	    created_at     TIMESTAMPTZ NOT NULL
//	);
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account unless one already exists for the uid.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	cmd, err := r.db.Exec(ctx, `INSERT INTO accounts (uid, name, email, balance, has_pin, created_at)
        VALUES ($1, $2, $3, $4, FALSE, $5)
        ON CONFLICT (uid) DO NOTHING`,
		account.UID, account.Name, account.Email, account.Balance, account.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountExists
	}
	return nil
}

// Get fetches an account by uid.
func (r *PostgresRepository) Get(ctx context.Context, uid string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT uid, name, email, balance, has_pin, pin_hash, pin_created_at, created_at
        FROM accounts WHERE uid = $1`, uid)
	var (
		account      Account
		pinCreatedAt *time.Time
	)
	err := row.Scan(&account.UID, &account.Name, &account.Email, &account.Balance,
		&account.HasPin, &account.PinHash, &pinCreatedAt, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("select account: %w", err)
	}
	if pinCreatedAt != nil {
		t := pinCreatedAt.UTC()
		account.PinCreatedAt = &t
	}
	account.CreatedAt = account.CreatedAt.UTC()
	return account, nil
}

// SetPin stores the hash only while has_pin is still false.
func (r *PostgresRepository) SetPin(ctx context.Context, uid string, hash []byte, createdAt time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET pin_hash = $2, has_pin = TRUE, pin_created_at = $3
        WHERE uid = $1 AND has_pin = FALSE`, uid, hash, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("update account pin: %w", err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var hasPin bool
	if err := r.db.QueryRow(ctx, `SELECT has_pin FROM accounts WHERE uid = $1`, uid).Scan(&hasPin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("select account pin state: %w", err)
	}
	return ErrPinAlreadySet
}
