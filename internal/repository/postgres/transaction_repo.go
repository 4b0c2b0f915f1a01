package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/obligo/obligo-backend/internal/domain"
)

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, user_id, account_id, category_id, type, amount, concept, date, notes,
	created_at, updated_at`

// CreateTx inserts a ledger transaction inside tx
func (r *TransactionRepository) CreateTx(tx domain.Tx, transaction *domain.Transaction) (*domain.Transaction, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	amount, err := decimalToPgNumeric(transaction.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	var notes pgtype.Text
	if transaction.Notes != nil {
		notes = pgtype.Text{String: *transaction.Notes, Valid: true}
	}

	row := pgxTx.QueryRow(context.Background(), `
		INSERT INTO transactions (user_id, account_id, category_id, type, amount, concept, date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+transactionColumns,
		transaction.UserID, transaction.AccountID, transaction.CategoryID,
		string(transaction.Type), amount, transaction.Concept, transaction.Date, notes)
	return scanTransaction(row)
}

// GetByID retrieves a transaction by its ID for a user
func (r *TransactionRepository) GetByID(userID int32, id int32) (*domain.Transaction, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1 AND user_id = $2`,
		id, userID)
	transaction, err := scanTransaction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return transaction, nil
}

// UpdateTx rewrites the mutable fields of a transaction inside tx
func (r *TransactionRepository) UpdateTx(tx domain.Tx, userID int32, id int32, upd *domain.TransactionUpdate) (*domain.Transaction, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	amount, err := decimalToPgNumeric(upd.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	var notes pgtype.Text
	if upd.Notes != nil {
		notes = pgtype.Text{String: *upd.Notes, Valid: true}
	}

	row := pgxTx.QueryRow(context.Background(), `
		UPDATE transactions
		SET amount = $3, account_id = $4, date = $5, notes = $6, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+transactionColumns,
		id, userID, amount, upd.AccountID, upd.Date, notes)
	transaction, err := scanTransaction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return transaction, nil
}

// DeleteTx removes a transaction inside tx
func (r *TransactionRepository) DeleteTx(tx domain.Tx, userID int32, id int32) error {
	pgxTx, err := asTx(tx)
	if err != nil {
		return err
	}
	tag, err := pgxTx.Exec(context.Background(), `
		DELETE FROM transactions WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		transaction domain.Transaction
		trxType     string
		amount      pgtype.Numeric
		notes       pgtype.Text
	)
	err := row.Scan(
		&transaction.ID, &transaction.UserID, &transaction.AccountID, &transaction.CategoryID,
		&trxType, &amount, &transaction.Concept, &transaction.Date, &notes,
		&transaction.CreatedAt, &transaction.UpdatedAt)
	if err != nil {
		return nil, err
	}
	transaction.Type = domain.TransactionType(trxType)
	transaction.Amount = pgNumericToDecimal(amount)
	if notes.Valid {
		transaction.Notes = &notes.String
	}
	return &transaction, nil
}
