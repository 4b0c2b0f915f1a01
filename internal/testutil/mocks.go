package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// MockTxManager is a mock implementation of domain.TxManager. It runs fn
// with a nil transaction handle, serializing concurrent scopes the way row
// locks do in the real store; the map-backed repositories below ignore the
// handle.
type MockTxManager struct {
	mu         sync.Mutex
	WithinTxFn func(ctx context.Context, fn func(tx domain.Tx) error) error
}

// NewMockTxManager creates a new MockTxManager
func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithinTx runs fn in a fake transaction scope
func (m *MockTxManager) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(nil)
}

// MockTemplateRepository is a mock implementation of domain.TemplateRepository
type MockTemplateRepository struct {
	Templates    map[int32]*domain.RecurringExpense
	NextID       int32
	ListActiveFn func(userID *int32) ([]*domain.RecurringExpense, error)
}

// NewMockTemplateRepository creates a new MockTemplateRepository
func NewMockTemplateRepository() *MockTemplateRepository {
	return &MockTemplateRepository{
		Templates: make(map[int32]*domain.RecurringExpense),
		NextID:    1,
	}
}

// Create creates a new template
func (m *MockTemplateRepository) Create(template *domain.RecurringExpense) (*domain.RecurringExpense, error) {
	template.ID = m.NextID
	m.NextID++
	template.CreatedAt = time.Now()
	template.UpdatedAt = template.CreatedAt
	m.Templates[template.ID] = template
	return template, nil
}

// GetByID retrieves a template by ID scoped to the user
func (m *MockTemplateRepository) GetByID(userID int32, id int32) (*domain.RecurringExpense, error) {
	tpl, ok := m.Templates[id]
	if !ok || tpl.UserID != userID || tpl.DeletedAt != nil {
		return nil, domain.ErrTemplateNotFound
	}
	return tpl, nil
}

// ListByUser retrieves the user's templates
func (m *MockTemplateRepository) ListByUser(userID int32, activeOnly bool) ([]*domain.RecurringExpense, error) {
	var out []*domain.RecurringExpense
	for _, tpl := range m.Templates {
		if tpl.UserID != userID || tpl.DeletedAt != nil {
			continue
		}
		if activeOnly && !tpl.IsActive {
			continue
		}
		out = append(out, tpl)
	}
	return out, nil
}

// ListActive retrieves active templates, optionally scoped to one user
func (m *MockTemplateRepository) ListActive(userID *int32) ([]*domain.RecurringExpense, error) {
	if m.ListActiveFn != nil {
		return m.ListActiveFn(userID)
	}
	var out []*domain.RecurringExpense
	for _, tpl := range m.Templates {
		if !tpl.IsActive || tpl.DeletedAt != nil {
			continue
		}
		if userID != nil && tpl.UserID != *userID {
			continue
		}
		out = append(out, tpl)
	}
	return out, nil
}

// Update updates an existing template
func (m *MockTemplateRepository) Update(template *domain.RecurringExpense) (*domain.RecurringExpense, error) {
	if _, ok := m.Templates[template.ID]; !ok {
		return nil, domain.ErrTemplateNotFound
	}
	template.UpdatedAt = time.Now()
	m.Templates[template.ID] = template
	return template, nil
}

// SoftDelete marks a template as deleted
func (m *MockTemplateRepository) SoftDelete(userID int32, id int32) error {
	tpl, ok := m.Templates[id]
	if !ok || tpl.UserID != userID || tpl.DeletedAt != nil {
		return domain.ErrTemplateNotFound
	}
	now := time.Now()
	tpl.DeletedAt = &now
	return nil
}

// MockInstanceRepository is a mock implementation of domain.InstanceRepository.
// All methods hold a mutex so concurrency tests can hit it from multiple
// goroutines; the status-guarded transitions behave like the real guarded
// updates.
type MockInstanceRepository struct {
	mu        sync.Mutex
	Instances map[int32]*domain.MonthlyInstance
	NextID    int32
	CreateFn  func(instance *domain.MonthlyInstance) (*domain.MonthlyInstance, error)
}

// NewMockInstanceRepository creates a new MockInstanceRepository
func NewMockInstanceRepository() *MockInstanceRepository {
	return &MockInstanceRepository{
		Instances: make(map[int32]*domain.MonthlyInstance),
		NextID:    1,
	}
}

// Create creates a new pending instance, enforcing the per-period uniqueness
func (m *MockInstanceRepository) Create(instance *domain.MonthlyInstance) (*domain.MonthlyInstance, error) {
	if m.CreateFn != nil {
		return m.CreateFn(instance)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Instances {
		if existing.TemplateID == instance.TemplateID && existing.Year == instance.Year && existing.Month == instance.Month {
			return nil, domain.ErrInstanceAlreadyExists
		}
	}
	instance.ID = m.NextID
	m.NextID++
	instance.CreatedAt = time.Now()
	instance.UpdatedAt = instance.CreatedAt
	m.Instances[instance.ID] = instance
	return instance, nil
}

// GetByID retrieves an instance by ID scoped to the user
func (m *MockInstanceRepository) GetByID(userID int32, id int32) (*domain.MonthlyInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(userID, id)
}

// GetByIDTx retrieves an instance inside a transaction
func (m *MockInstanceRepository) GetByIDTx(tx domain.Tx, userID int32, id int32) (*domain.MonthlyInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, err := m.getLocked(userID, id)
	if err != nil {
		return nil, err
	}
	copied := *inst
	return &copied, nil
}

func (m *MockInstanceRepository) getLocked(userID int32, id int32) (*domain.MonthlyInstance, error) {
	inst, ok := m.Instances[id]
	if !ok || inst.UserID != userID {
		return nil, domain.ErrInstanceNotFound
	}
	return inst, nil
}

// GetByTemplatePeriod retrieves the instance of a template for one period
func (m *MockInstanceRepository) GetByTemplatePeriod(templateID int32, year, month int) (*domain.MonthlyInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.Instances {
		if inst.TemplateID == templateID && inst.Year == year && inst.Month == month {
			return inst, nil
		}
	}
	return nil, domain.ErrInstanceNotFound
}

// ListByUserPeriod retrieves a user's instances for one period
func (m *MockInstanceRepository) ListByUserPeriod(userID int32, year, month int, status *domain.InstanceStatus) ([]*domain.MonthlyInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.MonthlyInstance
	for _, inst := range m.Instances {
		if inst.UserID != userID || inst.Year != year || inst.Month != month {
			continue
		}
		if status != nil && inst.Status != *status {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

// MarkPaidTx transitions pending -> paid, guarded on the current status
func (m *MockInstanceRepository) MarkPaidTx(tx domain.Tx, userID int32, id int32, upd *domain.PaymentUpdate) (*domain.MonthlyInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, err := m.getLocked(userID, id)
	if err != nil {
		return nil, err
	}
	if inst.Status != domain.InstanceStatusPending {
		return nil, domain.ErrInstanceAlreadyPaid
	}
	m.applyPayment(inst, upd)
	inst.Status = domain.InstanceStatusPaid
	copied := *inst
	return &copied, nil
}

// UpdatePaymentTx rewrites the paid-state fields, guarded on status = paid
func (m *MockInstanceRepository) UpdatePaymentTx(tx domain.Tx, userID int32, id int32, upd *domain.PaymentUpdate) (*domain.MonthlyInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, err := m.getLocked(userID, id)
	if err != nil {
		return nil, err
	}
	if inst.Status != domain.InstanceStatusPaid {
		return nil, domain.ErrInstanceNotPaid
	}
	m.applyPayment(inst, upd)
	copied := *inst
	return &copied, nil
}

// ResetPendingTx transitions paid -> pending, guarded on status = paid
func (m *MockInstanceRepository) ResetPendingTx(tx domain.Tx, userID int32, id int32) (*domain.MonthlyInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, err := m.getLocked(userID, id)
	if err != nil {
		return nil, err
	}
	if inst.Status != domain.InstanceStatusPaid {
		return nil, domain.ErrInstanceNotPaid
	}
	inst.Status = domain.InstanceStatusPending
	inst.Amount = decimal.Zero
	inst.AccountID = nil
	inst.TransactionID = nil
	inst.PaidDate = nil
	inst.Notes = nil
	inst.UpdatedAt = time.Now()
	copied := *inst
	return &copied, nil
}

func (m *MockInstanceRepository) applyPayment(inst *domain.MonthlyInstance, upd *domain.PaymentUpdate) {
	inst.Amount = upd.Amount
	accountID := upd.AccountID
	inst.AccountID = &accountID
	transactionID := upd.TransactionID
	inst.TransactionID = &transactionID
	paidDate := upd.PaidDate
	inst.PaidDate = &paidDate
	inst.Notes = upd.Notes
	inst.UpdatedAt = time.Now()
}

// MockAccountRepository is a mock implementation of domain.AccountRepository
type MockAccountRepository struct {
	mu                sync.Mutex
	Accounts          map[int32]*domain.Account
	NextID            int32
	AdjustBalanceTxFn func(tx domain.Tx, id int32, delta decimal.Decimal) (decimal.Decimal, error)
}

// NewMockAccountRepository creates a new MockAccountRepository
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		Accounts: make(map[int32]*domain.Account),
		NextID:   1,
	}
}

// Create creates a new account
func (m *MockAccountRepository) Create(account *domain.Account) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account.ID = m.NextID
	m.NextID++
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	m.Accounts[account.ID] = account
	return account, nil
}

// GetByID retrieves an account by ID scoped to the user
func (m *MockAccountRepository) GetByID(userID int32, id int32) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.Accounts[id]
	if !ok || acc.UserID != userID || acc.DeletedAt != nil {
		return nil, domain.ErrAccountNotFound
	}
	return acc, nil
}

// ListByUser retrieves the user's accounts
func (m *MockAccountRepository) ListByUser(userID int32) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Account
	for _, acc := range m.Accounts {
		if acc.UserID == userID && acc.DeletedAt == nil {
			out = append(out, acc)
		}
	}
	return out, nil
}

// GetActiveByIDTx retrieves an active account inside a transaction
func (m *MockAccountRepository) GetActiveByIDTx(tx domain.Tx, userID int32, id int32) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.Accounts[id]
	if !ok || acc.UserID != userID || !acc.IsActive || acc.DeletedAt != nil {
		return nil, domain.ErrAccountNotFound
	}
	copied := *acc
	return &copied, nil
}

// AdjustBalanceTx applies delta to the account balance
func (m *MockAccountRepository) AdjustBalanceTx(tx domain.Tx, id int32, delta decimal.Decimal) (decimal.Decimal, error) {
	if m.AdjustBalanceTxFn != nil {
		return m.AdjustBalanceTxFn(tx, id, delta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.Accounts[id]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	acc.CurrentBalance = acc.CurrentBalance.Add(delta)
	acc.UpdatedAt = time.Now()
	return acc.CurrentBalance, nil
}

// MockTransactionRepository is a mock implementation of domain.TransactionRepository
type MockTransactionRepository struct {
	mu           sync.Mutex
	Transactions map[int32]*domain.Transaction
	NextID       int32
	CreateTxFn   func(tx domain.Tx, transaction *domain.Transaction) (*domain.Transaction, error)
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		Transactions: make(map[int32]*domain.Transaction),
		NextID:       1,
	}
}

// CreateTx creates a new transaction inside a transaction scope
func (m *MockTransactionRepository) CreateTx(tx domain.Tx, transaction *domain.Transaction) (*domain.Transaction, error) {
	if m.CreateTxFn != nil {
		return m.CreateTxFn(tx, transaction)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	transaction.ID = m.NextID
	m.NextID++
	transaction.CreatedAt = time.Now()
	transaction.UpdatedAt = transaction.CreatedAt
	m.Transactions[transaction.ID] = transaction
	return transaction, nil
}

// GetByID retrieves a transaction by ID scoped to the user
func (m *MockTransactionRepository) GetByID(userID int32, id int32) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trx, ok := m.Transactions[id]
	if !ok || trx.UserID != userID {
		return nil, domain.ErrTransactionNotFound
	}
	return trx, nil
}

// UpdateTx updates a transaction inside a transaction scope
func (m *MockTransactionRepository) UpdateTx(tx domain.Tx, userID int32, id int32, upd *domain.TransactionUpdate) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trx, ok := m.Transactions[id]
	if !ok || trx.UserID != userID {
		return nil, domain.ErrTransactionNotFound
	}
	trx.Amount = upd.Amount
	trx.AccountID = upd.AccountID
	trx.Date = upd.Date
	trx.Notes = upd.Notes
	trx.UpdatedAt = time.Now()
	return trx, nil
}

// DeleteTx deletes a transaction inside a transaction scope
func (m *MockTransactionRepository) DeleteTx(tx domain.Tx, userID int32, id int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trx, ok := m.Transactions[id]
	if !ok || trx.UserID != userID {
		return domain.ErrTransactionNotFound
	}
	delete(m.Transactions, id)
	return nil
}

// MockCategoryRepository is a mock implementation of domain.CategoryRepository
type MockCategoryRepository struct {
	Categories map[int32]*domain.Category
}

// NewMockCategoryRepository creates a new MockCategoryRepository
func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{Categories: make(map[int32]*domain.Category)}
}

// GetByID retrieves a category by ID scoped to the user
func (m *MockCategoryRepository) GetByID(userID int32, id int32) (*domain.Category, error) {
	cat, ok := m.Categories[id]
	if !ok || cat.UserID != userID {
		return nil, domain.ErrCategoryNotFound
	}
	return cat, nil
}

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users map[string]*domain.User
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]*domain.User)}
}

// GetByAuth0ID retrieves a user by Auth0 ID
func (m *MockUserRepository) GetByAuth0ID(auth0ID string) (*domain.User, error) {
	user, ok := m.Users[auth0ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
