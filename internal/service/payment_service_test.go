package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/obligo/obligo-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type paymentFixture struct {
	svc          *PaymentService
	instanceRepo *testutil.MockInstanceRepository
	accountRepo  *testutil.MockAccountRepository
	trxRepo      *testutil.MockTransactionRepository
}

func newPaymentFixture() *paymentFixture {
	instanceRepo := testutil.NewMockInstanceRepository()
	accountRepo := testutil.NewMockAccountRepository()
	trxRepo := testutil.NewMockTransactionRepository()
	svc := NewPaymentService(testutil.NewMockTxManager(), instanceRepo, accountRepo, trxRepo, NewOverdraftPolicy())
	return &paymentFixture{svc: svc, instanceRepo: instanceRepo, accountRepo: accountRepo, trxRepo: trxRepo}
}

func (f *paymentFixture) addAccount(id, userID int32, balance int64) *domain.Account {
	acc := &domain.Account{
		ID:             id,
		UserID:         userID,
		Name:           "Checking",
		Currency:       "ARS",
		InitialBalance: decimal.NewFromInt(balance),
		CurrentBalance: decimal.NewFromInt(balance),
		IsActive:       true,
	}
	f.accountRepo.Accounts[id] = acc
	return acc
}

func (f *paymentFixture) addPendingInstance(id, userID int32) *domain.MonthlyInstance {
	inst := &domain.MonthlyInstance{
		ID:         id,
		TemplateID: 1,
		UserID:     userID,
		Month:      3,
		Year:       2025,
		Concept:    "Rent",
		CategoryID: 1,
		Currency:   "ARS",
		Amount:     decimal.Zero,
		Status:     domain.InstanceStatusPending,
	}
	f.instanceRepo.Instances[id] = inst
	return inst
}

func TestPayInstance_Success(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 5000)
	f.addPendingInstance(10, 1)

	result, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(1200),
		AccountID: 1,
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.InstanceStatusPaid, result.Instance.Status)
	assert.True(t, result.Instance.Amount.Equal(decimal.NewFromInt(1200)))
	assert.NotNil(t, result.Instance.AccountID)
	assert.Equal(t, int32(1), *result.Instance.AccountID)
	assert.NotNil(t, result.Instance.PaidDate)

	// Transaction mirrors the instance snapshot
	assert.Equal(t, domain.TransactionTypeExpense, result.Transaction.Type)
	assert.Equal(t, "Rent", result.Transaction.Concept)
	assert.True(t, result.Transaction.Amount.Equal(decimal.NewFromInt(1200)))
	assert.NotNil(t, result.Instance.TransactionID)
	assert.Equal(t, result.Transaction.ID, *result.Instance.TransactionID)

	// Balance debited
	assert.True(t, f.accountRepo.Accounts[1].CurrentBalance.Equal(decimal.NewFromInt(3800)))
}

func TestPayInstance_InvalidAmount(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.Zero,
		AccountID: 1,
	})
	assert.Equal(t, domain.ErrInvalidAmount, err)

	_, err = f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(-5),
		AccountID: 1,
	})
	assert.Equal(t, domain.ErrInvalidAmount, err)
}

func TestPayInstance_AlreadyPaid(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 5000)
	inst := f.addPendingInstance(10, 1)
	inst.Status = domain.InstanceStatusPaid

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(100),
		AccountID: 1,
	})
	assert.Equal(t, domain.ErrInstanceAlreadyPaid, err)
	// Untouched balance
	assert.True(t, f.accountRepo.Accounts[1].CurrentBalance.Equal(decimal.NewFromInt(5000)))
}

func TestPayInstance_AccountNotFound(t *testing.T) {
	f := newPaymentFixture()
	f.addPendingInstance(10, 1)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(100),
		AccountID: 99,
	})
	assert.Equal(t, domain.ErrAccountNotFound, err)
	assert.Equal(t, domain.InstanceStatusPending, f.instanceRepo.Instances[10].Status)
}

func TestPayInstance_InactiveAccount(t *testing.T) {
	f := newPaymentFixture()
	acc := f.addAccount(1, 1, 5000)
	acc.IsActive = false
	f.addPendingInstance(10, 1)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(100),
		AccountID: 1,
	})
	assert.Equal(t, domain.ErrAccountNotFound, err)
}

func TestPayInstance_OtherUsersInstance(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 2, 5000)
	f.addPendingInstance(10, 2)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(100),
		AccountID: 1,
	})
	assert.Equal(t, domain.ErrInstanceNotFound, err)
}

func TestPayInstance_OverdraftVeto(t *testing.T) {
	f := newPaymentFixture()
	acc := f.addAccount(1, 1, 100)
	limit := decimal.NewFromInt(50)
	acc.OverdraftLimit = &limit
	f.addPendingInstance(10, 1)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(200),
		AccountID: 1,
	})
	assert.Equal(t, domain.ErrInsufficientBalance, err)
	assert.True(t, acc.CurrentBalance.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, domain.InstanceStatusPending, f.instanceRepo.Instances[10].Status)
	assert.Empty(t, f.trxRepo.Transactions)
}

func TestPayInstance_NoOverdraftLimitGoesNegative(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 100)
	f.addPendingInstance(10, 1)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(250),
		AccountID: 1,
	})
	assert.NoError(t, err)
	assert.True(t, f.accountRepo.Accounts[1].CurrentBalance.Equal(decimal.NewFromInt(-150)))
}

func TestPayInstance_NotesTrimmedAndBounded(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 5000)
	f.addPendingInstance(10, 1)

	notes := "  paid late  "
	result, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(100),
		AccountID: 1,
		Notes:     &notes,
	})
	assert.NoError(t, err)
	assert.NotNil(t, result.Instance.Notes)
	assert.Equal(t, "paid late", *result.Instance.Notes)

	f.addPendingInstance(11, 1)
	long := make([]byte, domain.MaxNotesLength+1)
	for i := range long {
		long[i] = 'a'
	}
	tooLong := string(long)
	_, err = f.svc.PayInstance(context.Background(), 11, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(100),
		AccountID: 1,
		Notes:     &tooLong,
	})
	assert.Equal(t, domain.ErrNotesTooLong, err)
}

func TestPayInstance_ConcurrentSingleWinner(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 10000)
	f.addPendingInstance(10, 1)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
				Amount:    decimal.NewFromInt(500),
				AccountID: 1,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.Equal(t, domain.ErrInstanceAlreadyPaid, err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, f.trxRepo.Transactions, 1)
}

func TestUndoPayment_RestoresBalance(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 5000)
	f.addPendingInstance(10, 1)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(1200),
		AccountID: 1,
	})
	assert.NoError(t, err)
	assert.True(t, f.accountRepo.Accounts[1].CurrentBalance.Equal(decimal.NewFromInt(3800)))

	inst, err := f.svc.UndoPayment(context.Background(), 10, 1)
	assert.NoError(t, err)
	assert.Equal(t, domain.InstanceStatusPending, inst.Status)
	assert.True(t, inst.Amount.IsZero())
	assert.Nil(t, inst.AccountID)
	assert.Nil(t, inst.TransactionID)
	assert.Nil(t, inst.PaidDate)
	assert.Nil(t, inst.Notes)

	// Balance back where it started, ledger transaction gone
	assert.True(t, f.accountRepo.Accounts[1].CurrentBalance.Equal(decimal.NewFromInt(5000)))
	assert.Empty(t, f.trxRepo.Transactions)
}

func TestUndoPayment_NotPaid(t *testing.T) {
	f := newPaymentFixture()
	f.addPendingInstance(10, 1)

	_, err := f.svc.UndoPayment(context.Background(), 10, 1)
	assert.Equal(t, domain.ErrInstanceNotPaid, err)
}

func TestUndoPayment_KeepsPreviousAmount(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 5000)
	inst := f.addPendingInstance(10, 1)
	inst.PreviousAmount = decimal.NewFromInt(900)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(1200),
		AccountID: 1,
	})
	assert.NoError(t, err)

	reset, err := f.svc.UndoPayment(context.Background(), 10, 1)
	assert.NoError(t, err)
	assert.True(t, reset.PreviousAmount.Equal(decimal.NewFromInt(900)))
}

func TestEditPaidInstance_AmountDelta(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 5000)
	f.addPendingInstance(10, 1)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(1000),
		AccountID: 1,
	})
	assert.NoError(t, err)

	newAmount := decimal.NewFromInt(1300)
	updated, err := f.svc.EditPaidInstance(context.Background(), 10, 1, EditPaidInput{Amount: &newAmount})
	assert.NoError(t, err)
	assert.True(t, updated.Amount.Equal(newAmount))

	// 5000 - 1000 + (1000 - 1300) = 3700
	assert.True(t, f.accountRepo.Accounts[1].CurrentBalance.Equal(decimal.NewFromInt(3700)))

	trx, err := f.trxRepo.GetByID(1, *updated.TransactionID)
	assert.NoError(t, err)
	assert.True(t, trx.Amount.Equal(newAmount))
}

func TestEditPaidInstance_SwitchAccount(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 5000)
	f.addAccount(2, 1, 2000)
	f.addPendingInstance(10, 1)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(1000),
		AccountID: 1,
	})
	assert.NoError(t, err)

	newAmount := decimal.NewFromInt(800)
	newAccount := int32(2)
	updated, err := f.svc.EditPaidInstance(context.Background(), 10, 1, EditPaidInput{
		Amount:    &newAmount,
		AccountID: &newAccount,
	})
	assert.NoError(t, err)
	assert.Equal(t, int32(2), *updated.AccountID)

	// Old account credited back, new account debited the new amount
	assert.True(t, f.accountRepo.Accounts[1].CurrentBalance.Equal(decimal.NewFromInt(5000)))
	assert.True(t, f.accountRepo.Accounts[2].CurrentBalance.Equal(decimal.NewFromInt(1200)))

	trx, err := f.trxRepo.GetByID(1, *updated.TransactionID)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), trx.AccountID)
	assert.True(t, trx.Amount.Equal(newAmount))
}

func TestEditPaidInstance_NoFields(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.EditPaidInstance(context.Background(), 10, 1, EditPaidInput{})
	assert.Equal(t, domain.ErrNoFieldsToEdit, err)
}

func TestEditPaidInstance_NotPaid(t *testing.T) {
	f := newPaymentFixture()
	f.addPendingInstance(10, 1)

	amount := decimal.NewFromInt(100)
	_, err := f.svc.EditPaidInstance(context.Background(), 10, 1, EditPaidInput{Amount: &amount})
	assert.Equal(t, domain.ErrInstanceNotPaid, err)
}

func TestEditPaidInstance_OverdraftVetoOnIncrease(t *testing.T) {
	f := newPaymentFixture()
	acc := f.addAccount(1, 1, 1000)
	limit := decimal.Zero
	acc.OverdraftLimit = &limit
	f.addPendingInstance(10, 1)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(800),
		AccountID: 1,
	})
	assert.NoError(t, err)

	// Raising to 1500 would take the balance to -500, below the floor
	newAmount := decimal.NewFromInt(1500)
	_, err = f.svc.EditPaidInstance(context.Background(), 10, 1, EditPaidInput{Amount: &newAmount})
	assert.Equal(t, domain.ErrInsufficientBalance, err)
	assert.True(t, f.accountRepo.Accounts[1].CurrentBalance.Equal(decimal.NewFromInt(200)))
}

func TestEditPaidInstance_DateOnly(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 5000)
	f.addPendingInstance(10, 1)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(1000),
		AccountID: 1,
	})
	assert.NoError(t, err)

	newDate := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	updated, err := f.svc.EditPaidInstance(context.Background(), 10, 1, EditPaidInput{PaidDate: &newDate})
	assert.NoError(t, err)
	assert.True(t, updated.PaidDate.Equal(newDate))
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(1000)))

	// Amount unchanged means no balance movement
	assert.True(t, f.accountRepo.Accounts[1].CurrentBalance.Equal(decimal.NewFromInt(4000)))
}

func TestPaymentRoundTrip_PayEditUndo(t *testing.T) {
	f := newPaymentFixture()
	f.addAccount(1, 1, 5000)
	f.addAccount(2, 1, 3000)
	f.addPendingInstance(10, 1)

	_, err := f.svc.PayInstance(context.Background(), 10, 1, PayInstanceInput{
		Amount:    decimal.NewFromInt(1000),
		AccountID: 1,
	})
	assert.NoError(t, err)

	newAmount := decimal.NewFromInt(700)
	newAccount := int32(2)
	_, err = f.svc.EditPaidInstance(context.Background(), 10, 1, EditPaidInput{
		Amount:    &newAmount,
		AccountID: &newAccount,
	})
	assert.NoError(t, err)

	_, err = f.svc.UndoPayment(context.Background(), 10, 1)
	assert.NoError(t, err)

	// Everything cancels out
	assert.True(t, f.accountRepo.Accounts[1].CurrentBalance.Equal(decimal.NewFromInt(5000)))
	assert.True(t, f.accountRepo.Accounts[2].CurrentBalance.Equal(decimal.NewFromInt(3000)))
	assert.Empty(t, f.trxRepo.Transactions)
	assert.Equal(t, domain.InstanceStatusPending, f.instanceRepo.Instances[10].Status)
}
