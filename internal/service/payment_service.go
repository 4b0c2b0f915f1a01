package service

import (
	"context"
	"strings"
	"time"

	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// PaymentService performs the pay / edit-paid / undo transitions of a
// monthly instance. Every operation executes as one storage transaction
// covering the instance, the account balance and the ledger transaction;
// no partial application is observable.
type PaymentService struct {
	txm             domain.TxManager
	instanceRepo    domain.InstanceRepository
	accountRepo     domain.AccountRepository
	transactionRepo domain.TransactionRepository
	policy          domain.BalancePolicy
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	txm domain.TxManager,
	instanceRepo domain.InstanceRepository,
	accountRepo domain.AccountRepository,
	transactionRepo domain.TransactionRepository,
	policy domain.BalancePolicy,
) *PaymentService {
	return &PaymentService{
		txm:             txm,
		instanceRepo:    instanceRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		policy:          policy,
	}
}

// PaymentResult holds the outcome of paying an instance
type PaymentResult struct {
	Instance    *domain.MonthlyInstance `json:"instance"`
	Transaction *domain.Transaction     `json:"transaction"`
}

// PayInstanceInput holds the input for paying a pending instance
type PayInstanceInput struct {
	Amount    decimal.Decimal
	AccountID int32
	PaidDate  *time.Time
	Notes     *string
}

// PayInstance marks a pending instance as paid: debits the account, writes
// the ledger transaction and updates the instance, atomically.
func (s *PaymentService) PayInstance(ctx context.Context, instanceID, userID int32, input PayInstanceInput) (*PaymentResult, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	notes, err := normalizeNotes(input.Notes)
	if err != nil {
		return nil, err
	}

	paidDate := time.Now().UTC()
	if input.PaidDate != nil {
		paidDate = *input.PaidDate
	}

	var result *PaymentResult
	err = s.txm.WithinTx(ctx, func(tx domain.Tx) error {
		instance, err := s.instanceRepo.GetByIDTx(tx, userID, instanceID)
		if err != nil {
			return err
		}
		if instance.Status != domain.InstanceStatusPending {
			return domain.ErrInstanceAlreadyPaid
		}

		account, err := s.accountRepo.GetActiveByIDTx(tx, userID, input.AccountID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(account, input.Amount.Neg()); err != nil {
			return err
		}

		if _, err := s.accountRepo.AdjustBalanceTx(tx, account.ID, input.Amount.Neg()); err != nil {
			return err
		}

		transaction, err := s.transactionRepo.CreateTx(tx, &domain.Transaction{
			UserID:     userID,
			AccountID:  account.ID,
			CategoryID: instance.CategoryID,
			Type:       domain.TransactionTypeExpense,
			Amount:     input.Amount,
			Concept:    instance.Concept,
			Date:       paidDate,
			Notes:      notes,
		})
		if err != nil {
			return err
		}

		updated, err := s.instanceRepo.MarkPaidTx(tx, userID, instanceID, &domain.PaymentUpdate{
			Amount:        input.Amount,
			AccountID:     account.ID,
			TransactionID: transaction.ID,
			PaidDate:      paidDate,
			Notes:         notes,
		})
		if err != nil {
			return err
		}

		result = &PaymentResult{Instance: updated, Transaction: transaction}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EditPaidInput holds the fields to change on a paid instance. Nil fields
// are left unchanged.
type EditPaidInput struct {
	Amount    *decimal.Decimal
	AccountID *int32
	PaidDate  *time.Time
	Notes     *string
}

// EditPaidInstance rewrites the monetary effect of an existing payment:
// the old amount is credited back to the old account, the new amount is
// debited from the new (or same) account, and the ledger transaction is
// updated to match, atomically.
func (s *PaymentService) EditPaidInstance(ctx context.Context, instanceID, userID int32, input EditPaidInput) (*domain.MonthlyInstance, error) {
	if input.Amount == nil && input.AccountID == nil && input.PaidDate == nil && input.Notes == nil {
		return nil, domain.ErrNoFieldsToEdit
	}
	if input.Amount != nil && input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	editedNotes, err := normalizeNotes(input.Notes)
	if err != nil {
		return nil, err
	}

	var result *domain.MonthlyInstance
	err = s.txm.WithinTx(ctx, func(tx domain.Tx) error {
		instance, err := s.instanceRepo.GetByIDTx(tx, userID, instanceID)
		if err != nil {
			return err
		}
		if instance.Status != domain.InstanceStatusPaid {
			return domain.ErrInstanceNotPaid
		}

		oldAmount := instance.Amount
		oldAccountID := *instance.AccountID

		newAmount := oldAmount
		if input.Amount != nil {
			newAmount = *input.Amount
		}
		newAccountID := oldAccountID
		if input.AccountID != nil {
			newAccountID = *input.AccountID
		}
		newDate := *instance.PaidDate
		if input.PaidDate != nil {
			newDate = *input.PaidDate
		}
		newNotes := instance.Notes
		if input.Notes != nil {
			newNotes = editedNotes
		}

		if newAccountID != oldAccountID {
			// Reverse on the old account, apply on the new one
			newAccount, err := s.accountRepo.GetActiveByIDTx(tx, userID, newAccountID)
			if err != nil {
				return err
			}
			if err := s.policy.Authorize(newAccount, newAmount.Neg()); err != nil {
				return err
			}
			if _, err := s.accountRepo.AdjustBalanceTx(tx, oldAccountID, oldAmount); err != nil {
				return err
			}
			if _, err := s.accountRepo.AdjustBalanceTx(tx, newAccountID, newAmount.Neg()); err != nil {
				return err
			}
		} else {
			account, err := s.accountRepo.GetActiveByIDTx(tx, userID, oldAccountID)
			if err != nil {
				return err
			}
			delta := oldAmount.Sub(newAmount)
			if err := s.policy.Authorize(account, delta); err != nil {
				return err
			}
			if _, err := s.accountRepo.AdjustBalanceTx(tx, oldAccountID, delta); err != nil {
				return err
			}
		}

		if _, err := s.transactionRepo.UpdateTx(tx, userID, *instance.TransactionID, &domain.TransactionUpdate{
			Amount:    newAmount,
			AccountID: newAccountID,
			Date:      newDate,
			Notes:     newNotes,
		}); err != nil {
			return err
		}

		updated, err := s.instanceRepo.UpdatePaymentTx(tx, userID, instanceID, &domain.PaymentUpdate{
			Amount:        newAmount,
			AccountID:     newAccountID,
			TransactionID: *instance.TransactionID,
			PaidDate:      newDate,
			Notes:         newNotes,
		})
		if err != nil {
			return err
		}

		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UndoPayment reverses a payment: credits the account with the paid
// amount, deletes the ledger transaction and resets the instance to
// pending, atomically. PreviousAmount keeps its generation-time value.
func (s *PaymentService) UndoPayment(ctx context.Context, instanceID, userID int32) (*domain.MonthlyInstance, error) {
	var result *domain.MonthlyInstance
	err := s.txm.WithinTx(ctx, func(tx domain.Tx) error {
		instance, err := s.instanceRepo.GetByIDTx(tx, userID, instanceID)
		if err != nil {
			return err
		}
		if instance.Status != domain.InstanceStatusPaid {
			return domain.ErrInstanceNotPaid
		}

		if _, err := s.accountRepo.AdjustBalanceTx(tx, *instance.AccountID, instance.Amount); err != nil {
			return err
		}

		if err := s.transactionRepo.DeleteTx(tx, userID, *instance.TransactionID); err != nil {
			return err
		}

		updated, err := s.instanceRepo.ResetPendingTx(tx, userID, instanceID)
		if err != nil {
			return err
		}

		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// normalizeNotes trims notes and validates their length. Empty notes
// collapse to nil.
func normalizeNotes(notes *string) (*string, error) {
	if notes == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > domain.MaxNotesLength {
		return nil, domain.ErrNotesTooLong
	}
	return &trimmed, nil
}
