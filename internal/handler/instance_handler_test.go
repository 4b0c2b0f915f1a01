package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/obligo/obligo-backend/internal/middleware"
	"github.com/obligo/obligo-backend/internal/service"
	"github.com/obligo/obligo-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func setupAuthContext(c echo.Context, auth0ID string, userID int32) {
	ctx := context.WithValue(c.Request().Context(), middleware.Auth0IDKey, auth0ID)
	if userID > 0 {
		ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
	}
	c.SetRequest(c.Request().WithContext(ctx))
}

type instanceHandlerFixture struct {
	handler      *InstanceHandler
	templateRepo *testutil.MockTemplateRepository
	instanceRepo *testutil.MockInstanceRepository
	accountRepo  *testutil.MockAccountRepository
	trxRepo      *testutil.MockTransactionRepository
}

func newInstanceHandlerFixture() *instanceHandlerFixture {
	templateRepo := testutil.NewMockTemplateRepository()
	instanceRepo := testutil.NewMockInstanceRepository()
	accountRepo := testutil.NewMockAccountRepository()
	trxRepo := testutil.NewMockTransactionRepository()

	generationService := service.NewGenerationService(templateRepo, instanceRepo)
	paymentService := service.NewPaymentService(
		testutil.NewMockTxManager(), instanceRepo, accountRepo, trxRepo, service.NewOverdraftPolicy())

	return &instanceHandlerFixture{
		handler:      NewInstanceHandler(generationService, paymentService),
		templateRepo: templateRepo,
		instanceRepo: instanceRepo,
		accountRepo:  accountRepo,
		trxRepo:      trxRepo,
	}
}

func TestListInstances_GeneratesOnDemand(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	f.templateRepo.Templates[1] = &domain.RecurringExpense{
		ID: 1, UserID: 1, Concept: "Rent", CategoryID: 1, Currency: "ARS", IsActive: true,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/monthly-instances?year=2025&month=3", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.ListInstances(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response []InstanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response) != 1 {
		t.Fatalf("Expected 1 instance, got %d", len(response))
	}
	if response[0].Concept != "Rent" {
		t.Errorf("Expected concept Rent, got %s", response[0].Concept)
	}
	if response[0].Status != "pending" {
		t.Errorf("Expected status pending, got %s", response[0].Status)
	}
}

func TestListInstances_InvalidPeriod(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/monthly-instances?year=2025&month=13", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.ListInstances(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestListInstances_Unauthenticated(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/monthly-instances?year=2025&month=3", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := f.handler.ListInstances(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestGenerate_ReturnsRunSummary(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	f.templateRepo.Templates[1] = &domain.RecurringExpense{
		ID: 1, UserID: 1, Concept: "Rent", CategoryID: 1, Currency: "ARS", IsActive: true,
	}

	body := `{"month": 3, "year": 2025}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/monthly-instances/generate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.Generate(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var result domain.GenerationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("Expected 1 created, got %d", result.Created)
	}
}

func TestPay_Success(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	f.accountRepo.Accounts[1] = &domain.Account{
		ID: 1, UserID: 1, Name: "Checking", Currency: "ARS",
		CurrentBalance: decimal.NewFromInt(5000), IsActive: true,
	}
	f.instanceRepo.Instances[10] = &domain.MonthlyInstance{
		ID: 10, TemplateID: 1, UserID: 1, Month: 3, Year: 2025,
		Concept: "Rent", CategoryID: 1, Currency: "ARS",
		Amount: decimal.Zero, Status: domain.InstanceStatusPending,
	}

	body := `{"amount": "1200.50", "accountId": 1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/monthly-instances/10/pay", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("10")
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.Pay(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response PayResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Instance.Status != "paid" {
		t.Errorf("Expected status paid, got %s", response.Instance.Status)
	}
	if response.Instance.Amount != "1200.5" {
		t.Errorf("Expected amount 1200.5, got %s", response.Instance.Amount)
	}
	if response.Transaction.Type != "expense" {
		t.Errorf("Expected expense transaction, got %s", response.Transaction.Type)
	}
}

func TestPay_AlreadyPaidConflict(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	f.accountRepo.Accounts[1] = &domain.Account{
		ID: 1, UserID: 1, Name: "Checking", Currency: "ARS",
		CurrentBalance: decimal.NewFromInt(5000), IsActive: true,
	}
	f.instanceRepo.Instances[10] = &domain.MonthlyInstance{
		ID: 10, TemplateID: 1, UserID: 1, Month: 3, Year: 2025,
		Concept: "Rent", CategoryID: 1, Currency: "ARS",
		Amount: decimal.NewFromInt(1000), Status: domain.InstanceStatusPaid,
	}

	body := `{"amount": "1200", "accountId": 1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/monthly-instances/10/pay", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("10")
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.Pay(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestPay_InvalidAmount(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	body := `{"amount": "abc", "accountId": 1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/monthly-instances/10/pay", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("10")
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.Pay(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestPay_InstanceNotFound(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	body := `{"amount": "100", "accountId": 1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/monthly-instances/999/pay", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("999")
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.Pay(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestEditPayment_Success(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	f.accountRepo.Accounts[1] = &domain.Account{
		ID: 1, UserID: 1, Name: "Checking", Currency: "ARS",
		CurrentBalance: decimal.NewFromInt(5000), IsActive: true,
	}
	f.instanceRepo.Instances[10] = &domain.MonthlyInstance{
		ID: 10, TemplateID: 1, UserID: 1, Month: 3, Year: 2025,
		Concept: "Rent", CategoryID: 1, Currency: "ARS",
		Amount: decimal.Zero, Status: domain.InstanceStatusPending,
	}

	// Pay it first through the service so the transaction link exists
	payBody := `{"amount": "1000", "accountId": 1}`
	payReq := httptest.NewRequest(http.MethodPost, "/api/v1/monthly-instances/10/pay", strings.NewReader(payBody))
	payReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	payRec := httptest.NewRecorder()
	payCtx := e.NewContext(payReq, payRec)
	payCtx.SetParamNames("id")
	payCtx.SetParamValues("10")
	setupAuthContext(payCtx, "auth0|test", 1)
	if err := f.handler.Pay(payCtx); err != nil || payRec.Code != http.StatusOK {
		t.Fatalf("Pay setup failed: err=%v code=%d", err, payRec.Code)
	}

	body := `{"amount": "1300"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/monthly-instances/10/payment", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("10")
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.EditPayment(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response InstanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Amount != "1300" {
		t.Errorf("Expected amount 1300, got %s", response.Amount)
	}
}

func TestEditPayment_NotPaidConflict(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	f.instanceRepo.Instances[10] = &domain.MonthlyInstance{
		ID: 10, TemplateID: 1, UserID: 1, Month: 3, Year: 2025,
		Concept: "Rent", CategoryID: 1, Currency: "ARS",
		Amount: decimal.Zero, Status: domain.InstanceStatusPending,
	}

	body := `{"amount": "1300"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/monthly-instances/10/payment", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("10")
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.EditPayment(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestUndoPayment_Success(t *testing.T) {
	e := echo.New()
	f := newInstanceHandlerFixture()

	f.accountRepo.Accounts[1] = &domain.Account{
		ID: 1, UserID: 1, Name: "Checking", Currency: "ARS",
		CurrentBalance: decimal.NewFromInt(5000), IsActive: true,
	}
	f.instanceRepo.Instances[10] = &domain.MonthlyInstance{
		ID: 10, TemplateID: 1, UserID: 1, Month: 3, Year: 2025,
		Concept: "Rent", CategoryID: 1, Currency: "ARS",
		Amount: decimal.Zero, Status: domain.InstanceStatusPending,
	}

	payBody := `{"amount": "1000", "accountId": 1}`
	payReq := httptest.NewRequest(http.MethodPost, "/api/v1/monthly-instances/10/pay", strings.NewReader(payBody))
	payReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	payRec := httptest.NewRecorder()
	payCtx := e.NewContext(payReq, payRec)
	payCtx.SetParamNames("id")
	payCtx.SetParamValues("10")
	setupAuthContext(payCtx, "auth0|test", 1)
	if err := f.handler.Pay(payCtx); err != nil || payRec.Code != http.StatusOK {
		t.Fatalf("Pay setup failed: err=%v code=%d", err, payRec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/monthly-instances/10/payment", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("10")
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.UndoPayment(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response InstanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Status != "pending" {
		t.Errorf("Expected status pending, got %s", response.Status)
	}
	if response.Amount != "0" {
		t.Errorf("Expected amount 0, got %s", response.Amount)
	}
}
