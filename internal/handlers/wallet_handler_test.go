package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wallet-service/internal/middleware"
	"wallet-service/internal/models"
	"wallet-service/internal/services"

	"github.com/rs/zerolog"
)

type stubEngine struct {
	transferErr error
	creditErr   error
	result      *models.TransferResult
}

func (s *stubEngine) Transfer(_ context.Context, _ int, _ *models.TransferRequest) (*models.TransferResult, error) {
	if s.transferErr != nil {
		return nil, s.transferErr
	}
	return s.result, nil
}

func (s *stubEngine) Credit(_ context.Context, _ *models.CreditRequest) (*models.CreditResult, error) {
	if s.creditErr != nil {
		return nil, s.creditErr
	}
	return &models.CreditResult{Token: "tok", Balance: 35}, nil
}

type stubStatements struct {
	balance   *models.Balance
	statement *models.Statement
	err       error
}

func (s *stubStatements) Balance(_ context.Context, _ int) (*models.Balance, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.balance, nil
}

func (s *stubStatements) Statement(_ context.Context, _ int, _ models.StatementQuery) (*models.Statement, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.statement, nil
}

func authedRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, 1)
	ctx = context.WithValue(ctx, middleware.UserRoleKey, "user")
	return r.WithContext(ctx)
}

func newHandler(engine *stubEngine, statements *stubStatements) *WalletHandler {
	if statements == nil {
		statements = &stubStatements{}
	}
	return NewWalletHandler(engine, statements, zerolog.New(io.Discard))
}

func TestTransferHandler_Success(t *testing.T) {
	h := newHandler(&stubEngine{result: &models.TransferResult{
		Token:           "tok-1",
		SenderBalance:   60,
		ReceiverBalance: 50,
	}}, nil)

	w := httptest.NewRecorder()
	h.Transfer(w, authedRequest("POST", "/api/v1/wallet/transfer", `{"receiver":"bob","amount":40}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var result models.TransferResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if result.Token != "tok-1" || result.SenderBalance != 60 {
		t.Errorf("bad result: %+v", result)
	}
}

func TestTransferHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid amount", services.ErrInvalidAmount, http.StatusBadRequest},
		{"amount limit", services.ErrAmountLimitExceeded, http.StatusBadRequest},
		{"self transfer", services.ErrSelfTransfer, http.StatusBadRequest},
		{"insufficient balance", services.ErrInsufficientBalance, http.StatusBadRequest},
		{"sender not found", services.ErrSenderNotFound, http.StatusNotFound},
		{"receiver not found", services.ErrReceiverNotFound, http.StatusNotFound},
		{"duplicate", services.ErrDuplicateTransfer, http.StatusConflict},
		{"rate limit", services.ErrRateLimitExceeded, http.StatusTooManyRequests},
		{"concurrent update", services.ErrConcurrentUpdate, http.StatusInternalServerError},
		{"invariant violation", services.ErrInvariantViolation, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandler(&stubEngine{transferErr: tc.err}, nil)

			w := httptest.NewRecorder()
			h.Transfer(w, authedRequest("POST", "/api/v1/wallet/transfer", `{"receiver":"bob","amount":40}`))

			if w.Code != tc.want {
				t.Errorf("expected status %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestTransferHandler_RejectsBadBody(t *testing.T) {
	h := newHandler(&stubEngine{}, nil)

	w := httptest.NewRecorder()
	h.Transfer(w, authedRequest("POST", "/api/v1/wallet/transfer", `{not json`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTransferHandler_RequiresAuth(t *testing.T) {
	h := newHandler(&stubEngine{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/v1/wallet/transfer", strings.NewReader(`{"receiver":"bob","amount":40}`))
	h.Transfer(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestTransferHandler_IdempotencyKeyHeader(t *testing.T) {
	var captured string
	engine := &captureEngine{onTransfer: func(req *models.TransferRequest) {
		captured = req.Token
	}}
	h := NewWalletHandler(engine, &stubStatements{}, zerolog.New(io.Discard))

	r := authedRequest("POST", "/api/v1/wallet/transfer", `{"receiver":"bob","amount":40,"token":"body-token"}`)
	r.Header.Set("Idempotency-Key", "header-token")
	w := httptest.NewRecorder()
	h.Transfer(w, r)

	if captured != "header-token" {
		t.Errorf("expected header token to win, got %q", captured)
	}
}

type captureEngine struct {
	onTransfer func(req *models.TransferRequest)
}

func (c *captureEngine) Transfer(_ context.Context, _ int, req *models.TransferRequest) (*models.TransferResult, error) {
	c.onTransfer(req)
	return &models.TransferResult{}, nil
}

func (c *captureEngine) Credit(_ context.Context, _ *models.CreditRequest) (*models.CreditResult, error) {
	return &models.CreditResult{}, nil
}

func TestBalanceHandler(t *testing.T) {
	h := newHandler(&stubEngine{}, &stubStatements{balance: &models.Balance{UserID: 1, Amount: 42.50}})

	w := httptest.NewRecorder()
	h.GetBalance(w, authedRequest("GET", "/api/v1/wallet/balance", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var balance models.Balance
	if err := json.NewDecoder(w.Body).Decode(&balance); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if balance.Amount != 42.50 {
		t.Errorf("expected 42.50, got %.2f", balance.Amount)
	}
}

func TestStatementHandler_InvalidQuery(t *testing.T) {
	h := newHandler(&stubEngine{}, &stubStatements{err: services.ErrInvalidQuery})

	w := httptest.NewRecorder()
	h.GetStatement(w, authedRequest("GET", "/api/v1/wallet/statement?sort=bogus", ""))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreditHandler_Success(t *testing.T) {
	h := newHandler(&stubEngine{}, nil)

	w := httptest.NewRecorder()
	h.Credit(w, authedRequest("POST", "/api/v1/wallet/credit", `{"user_id":1,"amount":25}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}
