package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"wallet-service/internal/middleware"
	"wallet-service/internal/models"
	"wallet-service/internal/services"

	"github.com/rs/zerolog"
)

type transferEngine interface {
	Transfer(ctx context.Context, senderID int, req *models.TransferRequest) (*models.TransferResult, error)
	Credit(ctx context.Context, req *models.CreditRequest) (*models.CreditResult, error)
}

type statementReader interface {
	Balance(ctx context.Context, userID int) (*models.Balance, error)
	Statement(ctx context.Context, userID int, q models.StatementQuery) (*models.Statement, error)
}

type WalletHandler struct {
	transfers  transferEngine
	statements statementReader
	logger     zerolog.Logger
}

func NewWalletHandler(transfers transferEngine, statements statementReader, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		transfers:  transfers,
		statements: statements,
		logger:     logger,
	}
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	senderID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	// The Idempotency-Key header wins over the body token.
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.Token = key
	}

	result, err := h.transfers.Transfer(r.Context(), senderID, &req)
	if err != nil {
		status := services.StatusCode(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Int("sender_id", senderID).Msg("Transfer failed")
			respondWithError(w, status, "transfer_failed", "Transfer could not be completed")
			return
		}
		respondWithError(w, status, transferErrorCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	var req models.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result, err := h.transfers.Credit(r.Context(), &req)
	if err != nil {
		status := services.StatusCode(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Int("user_id", req.UserID).Msg("Credit failed")
			respondWithError(w, status, "credit_failed", "Credit could not be issued")
			return
		}
		respondWithError(w, status, transferErrorCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.effectiveUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	balance, err := h.statements.Balance(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Int("user_id", userID).Msg("Failed to fetch balance")
		respondWithError(w, services.StatusCode(err), "fetch_failed", "Failed to fetch balance")
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}

func (h *WalletHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.effectiveUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	query := models.StatementQuery{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 0),
		Search:   r.URL.Query().Get("search"),
		Type:     r.URL.Query().Get("type"),
		Sort:     r.URL.Query().Get("sort"),
		Order:    r.URL.Query().Get("order"),
	}

	statement, err := h.statements.Statement(r.Context(), userID, query)
	if err != nil {
		status := services.StatusCode(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Int("user_id", userID).Msg("Failed to fetch statement")
			respondWithError(w, status, "fetch_failed", "Failed to fetch statement")
			return
		}
		respondWithError(w, status, "invalid_query", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, statement)
}

// effectiveUserID lets admins inspect other wallets via ?user_id=; everyone
// else sees their own.
func (h *WalletHandler) effectiveUserID(r *http.Request) (int, bool) {
	currentUserID, ok := middleware.GetUserID(r)
	if !ok {
		return 0, false
	}

	userRole, _ := middleware.GetUserRole(r)
	if userRole == string(models.RoleAdmin) {
		if uid, err := strconv.Atoi(r.URL.Query().Get("user_id")); err == nil {
			return uid, true
		}
	}
	return currentUserID, true
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func transferErrorCode(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, services.ErrAmountLimitExceeded):
		return "amount_limit_exceeded"
	case errors.Is(err, services.ErrSenderNotFound):
		return "sender_not_found"
	case errors.Is(err, services.ErrReceiverNotFound):
		return "receiver_not_found"
	case errors.Is(err, services.ErrSelfTransfer):
		return "self_transfer_not_allowed"
	case errors.Is(err, services.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, services.ErrRateLimitExceeded):
		return "rate_limit_exceeded"
	case errors.Is(err, services.ErrDuplicateTransfer):
		return "duplicate_transfer"
	case errors.Is(err, services.ErrUserNotFound):
		return "user_not_found"
	default:
		return "transfer_failed"
	}
}
