package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
)

const accountColumns = `user_id, balance, credit, COALESCE(bound_name, ''), display_name, created_at, updated_at`

// PostgresStore keeps accounts in the accounts table. Balance changes are a
// single conditional UPDATE, so row locking serialises concurrent writers.
type PostgresStore struct {
	db  *sql.DB
	log *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a SQL-backed account store.
func NewPostgresStore(db *sql.DB, log *slog.Logger) *PostgresStore {
	if log == nil {
		log = slog.Default()
	}

	return &PostgresStore{
		db:  db,
		log: log,
	}
}

// Get retrieves the account, inserting a zero-balance row first if needed.
func (s *PostgresStore) Get(ctx context.Context, userID int64) (*domain.UserAccount, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)

	account, err := scanAccount(row)
	if err != nil {
		s.log.Error("failed to fetch account", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, apperrors.NewDatabaseError(fmt.Errorf("select account: %w", err))
	}

	return account, nil
}

// Apply adds delta to the balance in one statement guarded by balance + delta >= 0.
func (s *PostgresStore) Apply(ctx context.Context, userID int64, delta domain.Amount) (*domain.UserAccount, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}

	const query = `
		UPDATE accounts
		SET balance = balance + $2, updated_at = now()
		WHERE user_id = $1 AND balance + $2 >= 0
		RETURNING ` + accountColumns

	account, err := scanAccount(s.db.QueryRowContext(ctx, query, userID, int64(delta)))
	if err == nil {
		return account, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		s.log.Error("failed to apply balance delta", slog.Int64("user_id", userID), slog.Int64("delta", int64(delta)), slog.Any("error", err))
		return nil, apperrors.NewDatabaseError(fmt.Errorf("update balance: %w", err))
	}

	// The guard rejected the update; report the balance it saw.
	current, getErr := s.Get(ctx, userID)
	if getErr != nil {
		return nil, getErr
	}

	return nil, apperrors.NewInsufficientFundsError(current.Balance, -delta)
}

// BindName sets bound_name only while it is still NULL.
func (s *PostgresStore) BindName(ctx context.Context, userID int64, name string) error {
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET bound_name = $2, updated_at = now() WHERE user_id = $1 AND bound_name IS NULL`,
		userID, name,
	)
	if err != nil {
		s.log.Error("failed to bind name", slog.Int64("user_id", userID), slog.Any("error", err))
		return apperrors.NewDatabaseError(fmt.Errorf("bind name: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("bind name rows affected: %w", err))
	}
	if affected == 0 {
		return apperrors.NewAlreadyRegisteredError(userID)
	}

	return nil
}

// SetDisplayName records the chat profile name; it skips the write when unchanged.
func (s *PostgresStore) SetDisplayName(ctx context.Context, userID int64, displayName string) error {
	const query = `
		INSERT INTO accounts (user_id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name
		WHERE accounts.display_name IS DISTINCT FROM EXCLUDED.display_name
	`

	if _, err := s.db.ExecContext(ctx, query, userID, displayName); err != nil {
		s.log.Error("failed to update display name", slog.Int64("user_id", userID), slog.Any("error", err))
		return apperrors.NewDatabaseError(fmt.Errorf("update display name: %w", err))
	}

	return nil
}

// HealthCheck pings the database.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) ensure(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		s.log.Error("failed to create account", slog.Int64("user_id", userID), slog.Any("error", err))
		return apperrors.NewDatabaseError(fmt.Errorf("insert account: %w", err))
	}

	return nil
}

func scanAccount(row *sql.Row) (*domain.UserAccount, error) {
	var (
		account         domain.UserAccount
		balance, credit int64
	)

	if err := row.Scan(
		&account.UserID,
		&balance,
		&credit,
		&account.BoundName,
		&account.DisplayName,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	account.Balance = domain.Amount(balance)
	account.Credit = domain.Amount(credit)
	return &account, nil
}
