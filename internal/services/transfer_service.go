package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"wallet-service/internal/metrics"
	"wallet-service/internal/models"
	"wallet-service/internal/notify"
	"wallet-service/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransferLimits are the engine's defensive ceilings: the per-transfer
// amount cap and the number of outgoing transfers a sender may start
// within the trailing rate window.
type TransferLimits struct {
	MaxAmount  float64
	RateLimit  int
	RateWindow time.Duration
}

// TransferService moves funds between wallets under all-or-nothing
// semantics: both balance rows are locked in ascending user-id order, the
// sender's write is conditional on the balance still covering the amount,
// and the paired debit/credit ledger rows share one idempotency token.
type TransferService struct {
	store     store.Store
	publisher notify.Publisher
	limits    TransferLimits
	logger    zerolog.Logger
}

func NewTransferService(st store.Store, publisher notify.Publisher, limits TransferLimits, logger zerolog.Logger) *TransferService {
	return &TransferService{
		store:     st,
		publisher: publisher,
		limits:    limits,
		logger:    logger,
	}
}

func (s *TransferService) Transfer(ctx context.Context, senderID int, req *models.TransferRequest) (*models.TransferResult, error) {
	result, err := s.transfer(ctx, senderID, req)
	if err != nil {
		metrics.ObserveTransfer("rejected", req.Amount)
		return nil, err
	}
	metrics.ObserveTransfer("committed", req.Amount)
	return result, nil
}

func (s *TransferService) transfer(ctx context.Context, senderID int, req *models.TransferRequest) (*models.TransferResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.Amount > s.limits.MaxAmount {
		return nil, fmt.Errorf("%w: limit is %.2f", ErrAmountLimitExceeded, s.limits.MaxAmount)
	}

	sender, err := s.store.GetUserByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSenderNotFound
		}
		return nil, fmt.Errorf("failed to load sender: %w", err)
	}

	identifier := strings.TrimSpace(req.Receiver)
	receiver, err := s.store.FindUserByIdentifier(ctx, identifier)
	if err != nil {
		// The receiver must resolve to exactly one account; an ambiguous
		// identifier is as unusable as a missing one.
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrAmbiguous) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("failed to resolve receiver: %w", err)
	}

	if isSameAccount(sender, receiver, identifier) {
		return nil, ErrSelfTransfer
	}

	balance, err := s.store.GetBalance(ctx, sender.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if balance.Amount < req.Amount {
		return nil, fmt.Errorf("%w: available %.2f, required %.2f", ErrInsufficientBalance, balance.Amount, req.Amount)
	}

	since := time.Now().Add(-s.limits.RateWindow)
	recent, err := s.store.CountRecentEntries(ctx, sender.ID, models.EntryTypeDebit, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent transfers: %w", err)
	}
	if recent >= s.limits.RateLimit {
		return nil, fmt.Errorf("%w: at most %d transfers per %s", ErrRateLimitExceeded, s.limits.RateLimit, s.limits.RateWindow)
	}

	token := req.Token
	if token == "" {
		token = uuid.NewString()
	}
	exists, err := s.store.TokenExists(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency token: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: token %s", ErrDuplicateTransfer, token)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting transfer transaction")
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock both rows in ascending user-id order so two transfers with
	// swapped roles cannot deadlock.
	locked := map[int]float64{}
	first, second := sender.ID, receiver.ID
	if first > second {
		first, second = second, first
	}
	for _, id := range []int{first, second} {
		amount, err := tx.LockBalance(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				if id == sender.ID {
					return nil, ErrSenderNotFound
				}
				return nil, ErrReceiverNotFound
			}
			return nil, fmt.Errorf("failed to lock balance: %w", err)
		}
		locked[id] = amount
	}

	senderBefore := locked[sender.ID]
	receiverBefore := locked[receiver.ID]

	// Re-validate under the lock: a concurrent transfer may have drained
	// the sender since the pre-flight read.
	if senderBefore < req.Amount {
		return nil, fmt.Errorf("%w: available %.2f, required %.2f", ErrInsufficientBalance, senderBefore, req.Amount)
	}

	ok, err := tx.DebitBalance(ctx, sender.ID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit sender: %w", err)
	}
	if !ok {
		return nil, ErrConcurrentUpdate
	}
	if err := tx.CreditBalance(ctx, receiver.ID, req.Amount); err != nil {
		return nil, fmt.Errorf("failed to credit receiver: %w", err)
	}

	senderAfter := senderBefore - req.Amount
	receiverAfter := receiverBefore + req.Amount
	if senderAfter < 0 {
		// Unreachable given the conditional write; treated as a fatal
		// consistency check.
		return nil, ErrInvariantViolation
	}

	debit := &models.LedgerEntry{
		UserID:       sender.ID,
		Amount:       req.Amount,
		Type:         models.EntryTypeDebit,
		BalanceAfter: senderAfter,
		Token:        token,
		Notes:        req.Notes,
		Description:  fmt.Sprintf("transfer to %s", receiver.Username),
	}
	credit := &models.LedgerEntry{
		UserID:       receiver.ID,
		Amount:       req.Amount,
		Type:         models.EntryTypeCredit,
		BalanceAfter: receiverAfter,
		Token:        token,
		Notes:        req.Notes,
		Description:  fmt.Sprintf("transfer from %s", sender.Username),
	}
	for _, entry := range []*models.LedgerEntry{debit, credit} {
		if err := tx.AppendEntry(ctx, entry); err != nil {
			if errors.Is(err, store.ErrDuplicateToken) {
				// A concurrent call won the race on the same token; the
				// unique constraint is the backstop behind the pre-flight
				// lookup.
				return nil, fmt.Errorf("%w: token %s", ErrDuplicateTransfer, token)
			}
			return nil, fmt.Errorf("failed to write ledger entry: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing transfer transaction")
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	s.logger.Info().
		Int("sender_id", sender.ID).
		Int("receiver_id", receiver.ID).
		Float64("amount", req.Amount).
		Str("token", token).
		Msg("Transfer completed")

	s.publish(ctx, notify.Event{
		Kind:                  notify.KindTransferCompleted,
		Token:                 token,
		SenderID:              sender.ID,
		SenderUsername:        sender.Username,
		SenderBalanceBefore:   senderBefore,
		SenderBalanceAfter:    senderAfter,
		ReceiverID:            receiver.ID,
		ReceiverUsername:      receiver.Username,
		ReceiverBalanceBefore: receiverBefore,
		ReceiverBalanceAfter:  receiverAfter,
		Amount:                req.Amount,
		CreatedAt:             debit.CreatedAt,
	})

	return &models.TransferResult{
		Token:           token,
		SenderBalance:   senderAfter,
		ReceiverBalance: receiverAfter,
		CreatedAt:       debit.CreatedAt,
	}, nil
}

// Credit is the administrative issuance path. It shares the transfer's
// locking and ledger discipline but moves funds unilaterally.
func (s *TransferService) Credit(ctx context.Context, req *models.CreditRequest) (*models.CreditResult, error) {
	result, err := s.credit(ctx, req)
	if err != nil {
		metrics.ObserveCredit("rejected")
		return nil, err
	}
	metrics.ObserveCredit("committed")
	return result, nil
}

func (s *TransferService) credit(ctx context.Context, req *models.CreditRequest) (*models.CreditResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.Amount > s.limits.MaxAmount {
		return nil, fmt.Errorf("%w: limit is %.2f", ErrAmountLimitExceeded, s.limits.MaxAmount)
	}

	user, err := s.store.GetUserByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	token := uuid.NewString()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting credit transaction")
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	before, err := tx.LockBalance(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}

	if err := tx.CreditBalance(ctx, user.ID, req.Amount); err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}
	after := before + req.Amount

	entry := &models.LedgerEntry{
		UserID:       user.ID,
		Amount:       req.Amount,
		Type:         models.EntryTypeCredit,
		BalanceAfter: after,
		Token:        token,
		Notes:        req.Notes,
		Description:  "administrative credit",
	}
	if err := tx.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write ledger entry: %w", err)
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing credit transaction")
		return nil, fmt.Errorf("failed to commit credit: %w", err)
	}

	s.logger.Info().
		Int("user_id", user.ID).
		Float64("amount", req.Amount).
		Str("token", token).
		Msg("Credit issued")

	s.publish(ctx, notify.Event{
		Kind:                  notify.KindCreditIssued,
		Token:                 token,
		ReceiverID:            user.ID,
		ReceiverUsername:      user.Username,
		ReceiverBalanceBefore: before,
		ReceiverBalanceAfter:  after,
		Amount:                req.Amount,
		CreatedAt:             entry.CreatedAt,
	})

	return &models.CreditResult{
		Token:     token,
		Balance:   after,
		CreatedAt: entry.CreatedAt,
	}, nil
}

// publish is fire-and-forget: dispatcher failures never affect the result
// already committed.
func (s *TransferService) publish(ctx context.Context, event notify.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("token", event.Token).Msg("Failed to publish notification event")
	}
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// isSameAccount defeats self-transfers addressed through any identifier
// variation: matching ids, case-insensitive username or email collisions,
// and the raw receiver identifier matching the sender's own username or
// email.
func isSameAccount(sender, receiver *models.User, identifier string) bool {
	if sender.ID == receiver.ID {
		return true
	}
	if strings.EqualFold(sender.Username, receiver.Username) {
		return true
	}
	if strings.EqualFold(sender.Email, receiver.Email) {
		return true
	}
	if strings.EqualFold(sender.Username, identifier) || strings.EqualFold(sender.Email, identifier) {
		return true
	}
	return false
}
