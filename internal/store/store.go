package store

import (
	"context"
	"errors"
	"time"

	"wallet-service/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrAmbiguous      = errors.New("identifier matches more than one user")
	ErrDuplicateToken = errors.New("idempotency token already used")
	ErrDuplicateUser  = errors.New("user already exists")
)

// LedgerFilter narrows and orders statement reads. Sort must already be a
// whitelisted column name; the store never interpolates caller input into SQL.
type LedgerFilter struct {
	Type   string
	Search string
	Sort   string
	Order  string
	Limit  int
	Offset int
}

// StatementData is everything a statement page needs, read under one
// snapshot so the balance and the rows cannot drift apart.
type StatementData struct {
	Balance           float64
	Entries           []models.LedgerEntry
	TotalRows         int64
	TotalDebits       float64
	TotalCredits      float64
	TotalTransactions int64
}

// Store is the persistence port for accounts, users and the ledger.
// All invariants live in the services; the store only moves rows.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	CreateUser(ctx context.Context, username, email, passwordHash, role string) (*models.User, error)
	GetUserByID(ctx context.Context, userID int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// FindUserByIdentifier resolves an exact email or username match.
	// The match must be unique: when one user's username collides with
	// another user's email it returns ErrAmbiguous instead of picking one.
	FindUserByIdentifier(ctx context.Context, identifier string) (*models.User, error)

	GetBalance(ctx context.Context, userID int) (*models.Balance, error)
	CountRecentEntries(ctx context.Context, userID int, entryType models.EntryType, since time.Time) (int, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	ReadStatement(ctx context.Context, userID int, f LedgerFilter) (*StatementData, error)
}

// Tx is one atomic transfer attempt. LockBalance takes a row lock that is
// held until Commit or Rollback; DebitBalance is conditional on the balance
// still covering the amount and reports whether the write landed.
type Tx interface {
	LockBalance(ctx context.Context, userID int) (float64, error)
	DebitBalance(ctx context.Context, userID int, amount float64) (bool, error)
	CreditBalance(ctx context.Context, userID int, amount float64) error
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error
	Commit() error
	Rollback() error
}
