package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountRepository implements domain.AccountRepository using PostgreSQL
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, user_id, name, currency, initial_balance, current_balance,
	overdraft_limit, is_active, created_at, updated_at, deleted_at`

// Create creates a new account
func (r *AccountRepository) Create(account *domain.Account) (*domain.Account, error) {
	ctx := context.Background()
	initialBalance, err := decimalToPgNumeric(account.InitialBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid initial balance: %w", err)
	}
	currentBalance, err := decimalToPgNumeric(account.CurrentBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid current balance: %w", err)
	}
	var overdraft pgtype.Numeric
	if account.OverdraftLimit != nil {
		overdraft, err = decimalToPgNumeric(*account.OverdraftLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid overdraft limit: %w", err)
		}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (user_id, name, currency, initial_balance, current_balance, overdraft_limit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+accountColumns,
		account.UserID, account.Name, account.Currency, initialBalance, currentBalance, overdraft, account.IsActive)
	return scanAccount(row)
}

// GetByID retrieves an account by its ID for a user
func (r *AccountRepository) GetByID(userID int32, id int32) (*domain.Account, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		id, userID)
	account, err := scanAccount(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// ListByUser retrieves all of a user's accounts
func (r *AccountRepository) ListByUser(userID int32) ([]*domain.Account, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// GetActiveByIDTx retrieves an active account inside tx, locking the row
// until the transaction ends.
func (r *AccountRepository) GetActiveByIDTx(tx domain.Tx, userID int32, id int32) (*domain.Account, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	row := pgxTx.QueryRow(context.Background(), `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND user_id = $2 AND is_active AND deleted_at IS NULL
		FOR UPDATE`,
		id, userID)
	account, err := scanAccount(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// AdjustBalanceTx applies delta to the account balance and returns the new
// balance.
func (r *AccountRepository) AdjustBalanceTx(tx domain.Tx, id int32, delta decimal.Decimal) (decimal.Decimal, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return decimal.Zero, err
	}
	pgDelta, err := decimalToPgNumeric(delta)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance delta: %w", err)
	}

	var newBalance pgtype.Numeric
	err = pgxTx.QueryRow(context.Background(), `
		UPDATE accounts
		SET current_balance = current_balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING current_balance`,
		id, pgDelta).Scan(&newBalance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return decimal.Zero, domain.ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return pgNumericToDecimal(newBalance), nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account        domain.Account
		initialBalance pgtype.Numeric
		currentBalance pgtype.Numeric
		overdraft      pgtype.Numeric
		deletedAt      pgtype.Timestamptz
	)
	err := row.Scan(
		&account.ID, &account.UserID, &account.Name, &account.Currency,
		&initialBalance, &currentBalance, &overdraft, &account.IsActive,
		&account.CreatedAt, &account.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	account.InitialBalance = pgNumericToDecimal(initialBalance)
	account.CurrentBalance = pgNumericToDecimal(currentBalance)
	if overdraft.Valid {
		limit := pgNumericToDecimal(overdraft)
		account.OverdraftLimit = &limit
	}
	if deletedAt.Valid {
		account.DeletedAt = &deletedAt.Time
	}
	return &account, nil
}

func decimalToPgNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var num pgtype.Numeric
	if err := num.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return num, nil
}

func pgNumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	if n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
