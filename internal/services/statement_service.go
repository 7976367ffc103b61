package services

import (
	"context"
	"errors"
	"fmt"

	"wallet-service/internal/models"
	"wallet-service/internal/store"

	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// StatementService is the read path over the ledger: current balance plus
// paginated statement views where every row carries the balance that
// existed before it. The previous balance derives from the balance_after
// snapshot stored with each row, so a page never requires walking the full
// ledger.
type StatementService struct {
	store  store.Store
	logger zerolog.Logger
}

func NewStatementService(st store.Store, logger zerolog.Logger) *StatementService {
	return &StatementService{
		store:  st,
		logger: logger,
	}
}

func (s *StatementService) Balance(ctx context.Context, userID int) (*models.Balance, error) {
	balance, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch balance: %w", err)
	}
	return balance, nil
}

var sortColumns = map[string]string{
	"":           "created_at",
	"created_at": "created_at",
	"amount":     "amount",
	"id":         "id",
}

func (s *StatementService) Statement(ctx context.Context, userID int, q models.StatementQuery) (*models.Statement, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}

	sort, ok := sortColumns[q.Sort]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort column %q", ErrInvalidQuery, q.Sort)
	}
	order := "DESC"
	if q.Order == "asc" {
		order = "ASC"
	}
	if q.Type != "" && q.Type != string(models.EntryTypeDebit) && q.Type != string(models.EntryTypeCredit) {
		return nil, fmt.Errorf("%w: unknown entry type %q", ErrInvalidQuery, q.Type)
	}

	data, err := s.store.ReadStatement(ctx, userID, store.LedgerFilter{
		Type:   q.Type,
		Search: q.Search,
		Sort:   sort,
		Order:  order,
		Limit:  q.PageSize,
		Offset: (q.Page - 1) * q.PageSize,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error reading statement")
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}

	entries := make([]models.StatementEntry, 0, len(data.Entries))
	for _, e := range data.Entries {
		entries = append(entries, models.StatementEntry{
			LedgerEntry:     e,
			PreviousBalance: previousBalance(e),
		})
	}

	totalPages := int(data.TotalRows) / q.PageSize
	if int(data.TotalRows)%q.PageSize != 0 {
		totalPages++
	}

	return &models.Statement{
		Data: entries,
		Pagination: models.Pagination{
			Page:       q.Page,
			PageSize:   q.PageSize,
			TotalPages: totalPages,
			TotalRows:  data.TotalRows,
		},
		Statistics: models.StatementStatistics{
			CurrentBalance:    data.Balance,
			TotalDebits:       data.TotalDebits,
			TotalCredits:      data.TotalCredits,
			TotalTransactions: data.TotalTransactions,
		},
	}, nil
}

// previousBalance undoes the entry's own effect on its snapshot: a credit
// raised the balance, a debit lowered it.
func previousBalance(e models.LedgerEntry) float64 {
	if e.Type == models.EntryTypeCredit {
		return e.BalanceAfter - e.Amount
	}
	return e.BalanceAfter + e.Amount
}
