package service

import (
	"testing"

	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/obligo/obligo-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCreateAccount_Success(t *testing.T) {
	svc := NewAccountService(testutil.NewMockAccountRepository())

	acc, err := svc.CreateAccount(1, CreateAccountInput{
		Name:           "  Checking  ",
		Currency:       "usd",
		InitialBalance: decimal.NewFromInt(5000),
	})
	assert.NoError(t, err)
	assert.Equal(t, "Checking", acc.Name)
	assert.Equal(t, "USD", acc.Currency)
	assert.True(t, acc.CurrentBalance.Equal(decimal.NewFromInt(5000)))
	assert.True(t, acc.IsActive)
	assert.Nil(t, acc.OverdraftLimit)
}

func TestCreateAccount_ValidationErrors(t *testing.T) {
	svc := NewAccountService(testutil.NewMockAccountRepository())

	_, err := svc.CreateAccount(1, CreateAccountInput{Name: "  ", Currency: "USD"})
	assert.Equal(t, domain.ErrNameRequired, err)

	long := make([]byte, domain.MaxAccountNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.CreateAccount(1, CreateAccountInput{Name: string(long), Currency: "USD"})
	assert.Equal(t, domain.ErrNameTooLong, err)

	_, err = svc.CreateAccount(1, CreateAccountInput{Name: "Checking", Currency: "DOLLAR"})
	assert.Equal(t, domain.ErrInvalidCurrency, err)

	negative := decimal.NewFromInt(-100)
	_, err = svc.CreateAccount(1, CreateAccountInput{Name: "Checking", Currency: "USD", OverdraftLimit: &negative})
	assert.Equal(t, domain.ErrInvalidAmount, err)
}

func TestListAccounts_ScopedToUser(t *testing.T) {
	repo := testutil.NewMockAccountRepository()
	svc := NewAccountService(repo)

	_, err := svc.CreateAccount(1, CreateAccountInput{Name: "Mine", Currency: "USD"})
	assert.NoError(t, err)
	_, err = svc.CreateAccount(2, CreateAccountInput{Name: "Theirs", Currency: "USD"})
	assert.NoError(t, err)

	accounts, err := svc.ListAccounts(1)
	assert.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, "Mine", accounts[0].Name)
}

func TestGetAccount_NotFound(t *testing.T) {
	svc := NewAccountService(testutil.NewMockAccountRepository())

	_, err := svc.GetAccount(1, 99)
	assert.Equal(t, domain.ErrAccountNotFound, err)
}

func TestOverdraftPolicy_Authorize(t *testing.T) {
	policy := NewOverdraftPolicy()
	limit := decimal.NewFromInt(100)

	tests := []struct {
		name    string
		balance int64
		limit   *decimal.Decimal
		delta   int64
		wantErr error
	}{
		{"credit always passes", -5000, &limit, 200, nil},
		{"debit within balance", 500, &limit, -300, nil},
		{"debit into allowed overdraft", 50, &limit, -100, nil},
		{"debit to exact floor", 0, &limit, -100, nil},
		{"debit below floor", 0, &limit, -101, domain.ErrInsufficientBalance},
		{"no limit goes negative", 10, nil, -100000, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &domain.Account{
				CurrentBalance: decimal.NewFromInt(tt.balance),
				OverdraftLimit: tt.limit,
			}
			err := policy.Authorize(acc, decimal.NewFromInt(tt.delta))
			assert.Equal(t, tt.wantErr, err)
		})
	}
}
