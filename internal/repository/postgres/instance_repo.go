package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/obligo/obligo-backend/internal/domain"
)

// InstanceRepository implements domain.InstanceRepository using PostgreSQL
type InstanceRepository struct {
	pool *pgxpool.Pool
}

// NewInstanceRepository creates a new InstanceRepository
func NewInstanceRepository(pool *pgxpool.Pool) *InstanceRepository {
	return &InstanceRepository{pool: pool}
}

const instanceColumns = `id, template_id, user_id, month, year, concept, category_id, currency,
	due_date, amount, previous_amount, status, account_id, transaction_id, paid_date, notes,
	created_at, updated_at`

// Create inserts a pending instance. The unique constraint on
// (template_id, year, month) turns concurrent generation runs into benign
// skips.
func (r *InstanceRepository) Create(instance *domain.MonthlyInstance) (*domain.MonthlyInstance, error) {
	ctx := context.Background()
	amount, err := decimalToPgNumeric(instance.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	previousAmount, err := decimalToPgNumeric(instance.PreviousAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid previous amount: %w", err)
	}
	var dueDate pgtype.Date
	if instance.DueDate != nil {
		dueDate = pgtype.Date{Time: *instance.DueDate, Valid: true}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO monthly_expense_instances
			(template_id, user_id, month, year, concept, category_id, currency, due_date, amount, previous_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+instanceColumns,
		instance.TemplateID, instance.UserID, instance.Month, instance.Year,
		instance.Concept, instance.CategoryID, instance.Currency, dueDate,
		amount, previousAmount, string(instance.Status))
	created, err := scanInstance(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrInstanceAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves an instance by its ID for a user
func (r *InstanceRepository) GetByID(userID int32, id int32) (*domain.MonthlyInstance, error) {
	return r.getByID(r.pool, userID, id, "")
}

// GetByIDTx retrieves an instance inside tx, locking the row until the
// transaction ends.
func (r *InstanceRepository) GetByIDTx(tx domain.Tx, userID int32, id int32) (*domain.MonthlyInstance, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	return r.getByID(pgxTx, userID, id, " FOR UPDATE")
}

func (r *InstanceRepository) getByID(q querier, userID int32, id int32, suffix string) (*domain.MonthlyInstance, error) {
	row := q.QueryRow(context.Background(), `
		SELECT `+instanceColumns+`
		FROM monthly_expense_instances
		WHERE id = $1 AND user_id = $2`+suffix,
		id, userID)
	instance, err := scanInstance(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrInstanceNotFound
		}
		return nil, err
	}
	return instance, nil
}

// GetByTemplatePeriod retrieves the instance of a template for one period
func (r *InstanceRepository) GetByTemplatePeriod(templateID int32, year, month int) (*domain.MonthlyInstance, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT `+instanceColumns+`
		FROM monthly_expense_instances
		WHERE template_id = $1 AND year = $2 AND month = $3`,
		templateID, year, month)
	instance, err := scanInstance(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrInstanceNotFound
		}
		return nil, err
	}
	return instance, nil
}

// ListByUserPeriod retrieves a user's instances for one period, optionally
// filtered by status.
func (r *InstanceRepository) ListByUserPeriod(userID int32, year, month int, status *domain.InstanceStatus) ([]*domain.MonthlyInstance, error) {
	ctx := context.Background()
	query := `
		SELECT ` + instanceColumns + `
		FROM monthly_expense_instances
		WHERE user_id = $1 AND year = $2 AND month = $3`
	args := []any{userID, year, month}
	if status != nil {
		query += ` AND status = $4`
		args = append(args, string(*status))
	}
	query += ` ORDER BY due_date NULLS LAST, concept`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*domain.MonthlyInstance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, rows.Err()
}

// MarkPaidTx transitions a pending instance to paid. The update is guarded
// on status = 'pending'; if a concurrent payment got there first the guard
// matches no row and the loser gets ErrInstanceAlreadyPaid.
func (r *InstanceRepository) MarkPaidTx(tx domain.Tx, userID int32, id int32, upd *domain.PaymentUpdate) (*domain.MonthlyInstance, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	amount, notes, paidDate, err := paymentUpdateParams(upd)
	if err != nil {
		return nil, err
	}

	row := pgxTx.QueryRow(context.Background(), `
		UPDATE monthly_expense_instances
		SET amount = $3, account_id = $4, transaction_id = $5, paid_date = $6, notes = $7,
			status = 'paid', updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
		RETURNING `+instanceColumns,
		id, userID, amount, upd.AccountID, upd.TransactionID, paidDate, notes)
	instance, err := scanInstance(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.guardFailedError(pgxTx, userID, id, domain.ErrInstanceAlreadyPaid)
		}
		return nil, err
	}
	return instance, nil
}

// UpdatePaymentTx rewrites the paid-state fields of a paid instance,
// guarded on status = 'paid'.
func (r *InstanceRepository) UpdatePaymentTx(tx domain.Tx, userID int32, id int32, upd *domain.PaymentUpdate) (*domain.MonthlyInstance, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	amount, notes, paidDate, err := paymentUpdateParams(upd)
	if err != nil {
		return nil, err
	}

	row := pgxTx.QueryRow(context.Background(), `
		UPDATE monthly_expense_instances
		SET amount = $3, account_id = $4, transaction_id = $5, paid_date = $6, notes = $7,
			updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status = 'paid'
		RETURNING `+instanceColumns,
		id, userID, amount, upd.AccountID, upd.TransactionID, paidDate, notes)
	instance, err := scanInstance(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.guardFailedError(pgxTx, userID, id, domain.ErrInstanceNotPaid)
		}
		return nil, err
	}
	return instance, nil
}

// ResetPendingTx transitions a paid instance back to pending, clearing the
// payment fields. previous_amount keeps its generation-time value.
func (r *InstanceRepository) ResetPendingTx(tx domain.Tx, userID int32, id int32) (*domain.MonthlyInstance, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	row := pgxTx.QueryRow(context.Background(), `
		UPDATE monthly_expense_instances
		SET amount = 0, account_id = NULL, transaction_id = NULL, paid_date = NULL, notes = NULL,
			status = 'pending', updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status = 'paid'
		RETURNING `+instanceColumns,
		id, userID)
	instance, err := scanInstance(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.guardFailedError(pgxTx, userID, id, domain.ErrInstanceNotPaid)
		}
		return nil, err
	}
	return instance, nil
}

// guardFailedError distinguishes "instance is in the wrong status" from
// "instance does not exist" after a guarded update matched no row.
func (r *InstanceRepository) guardFailedError(q querier, userID int32, id int32, statusErr error) error {
	var exists bool
	err := q.QueryRow(context.Background(), `
		SELECT EXISTS (SELECT 1 FROM monthly_expense_instances WHERE id = $1 AND user_id = $2)`,
		id, userID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrInstanceNotFound
	}
	return statusErr
}

func paymentUpdateParams(upd *domain.PaymentUpdate) (pgtype.Numeric, pgtype.Text, pgtype.Timestamptz, error) {
	amount, err := decimalToPgNumeric(upd.Amount)
	if err != nil {
		return pgtype.Numeric{}, pgtype.Text{}, pgtype.Timestamptz{}, fmt.Errorf("invalid amount: %w", err)
	}
	var notes pgtype.Text
	if upd.Notes != nil {
		notes = pgtype.Text{String: *upd.Notes, Valid: true}
	}
	paidDate := pgtype.Timestamptz{Time: upd.PaidDate, Valid: true}
	return amount, notes, paidDate, nil
}

func scanInstance(row pgx.Row) (*domain.MonthlyInstance, error) {
	var (
		instance       domain.MonthlyInstance
		status         string
		dueDate        pgtype.Date
		amount         pgtype.Numeric
		previousAmount pgtype.Numeric
		accountID      pgtype.Int4
		transactionID  pgtype.Int4
		paidDate       pgtype.Timestamptz
		notes          pgtype.Text
	)
	err := row.Scan(
		&instance.ID, &instance.TemplateID, &instance.UserID, &instance.Month, &instance.Year,
		&instance.Concept, &instance.CategoryID, &instance.Currency,
		&dueDate, &amount, &previousAmount, &status, &accountID, &transactionID, &paidDate, &notes,
		&instance.CreatedAt, &instance.UpdatedAt)
	if err != nil {
		return nil, err
	}
	instance.Status = domain.InstanceStatus(status)
	instance.Amount = pgNumericToDecimal(amount)
	instance.PreviousAmount = pgNumericToDecimal(previousAmount)
	if dueDate.Valid {
		instance.DueDate = &dueDate.Time
	}
	if accountID.Valid {
		instance.AccountID = &accountID.Int32
	}
	if transactionID.Valid {
		instance.TransactionID = &transactionID.Int32
	}
	if paidDate.Valid {
		instance.PaidDate = &paidDate.Time
	}
	if notes.Valid {
		instance.Notes = &notes.String
	}
	return &instance, nil
}
