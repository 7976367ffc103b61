package services_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"wallet-service/internal/models"
	"wallet-service/internal/store"
)

// fakeStore is an in-memory store.Store with copy-on-write transactions:
// a fakeTx mutates a clone of the balances and buffers ledger appends, and
// only Commit publishes them, so rollback semantics match the real store.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int]*models.User
	balances map[int]float64
	ledger   []models.LedgerEntry
	nextID   int64

	// fault injection
	commitErr error
	creditErr error
	// debitConflict makes the conditional write report zero affected rows
	// even though the locked balance covered the amount, mimicking a lost
	// update the condition caught.
	debitConflict bool
	// hiddenToken makes TokenExists miss this token even though the
	// ledger holds it, to exercise the unique-constraint backstop.
	hiddenToken string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int]*models.User{},
		balances: map[int]float64{},
	}
}

func (s *fakeStore) addUser(id int, username, email string, balance float64) *models.User {
	u := &models.User{ID: id, Username: username, Email: email, Role: "user"}
	s.users[id] = u
	s.balances[id] = balance
	return u
}

func (s *fakeStore) addEntry(userID int, amount float64, entryType models.EntryType, balanceAfter float64, token string, createdAt time.Time) {
	s.nextID++
	s.ledger = append(s.ledger, models.LedgerEntry{
		ID:           s.nextID,
		UserID:       userID,
		Amount:       amount,
		Type:         entryType,
		BalanceAfter: balanceAfter,
		Token:        token,
		CreatedAt:    createdAt,
	})
}

func (s *fakeStore) BeginTx(_ context.Context) (store.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balances := make(map[int]float64, len(s.balances))
	for k, v := range s.balances {
		balances[k] = v
	}
	return &fakeTx{store: s, balances: balances}, nil
}

func (s *fakeStore) CreateUser(_ context.Context, username, email, passwordHash, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return nil, store.ErrDuplicateUser
		}
	}
	id := len(s.users) + 1
	u := &models.User{ID: id, Username: username, Email: email, PasswordHash: passwordHash, Role: role}
	s.users[id] = u
	s.balances[id] = 0
	return u, nil
}

func (s *fakeStore) GetUserByID(_ context.Context, userID int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) FindUserByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []*models.User
	for _, u := range s.users {
		if u.Email == identifier || u.Username == identifier {
			matches = append(matches, u)
		}
	}
	switch len(matches) {
	case 0:
		return nil, store.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, store.ErrAmbiguous
	}
}

func (s *fakeStore) GetBalance(_ context.Context, userID int) (*models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount, ok := s.balances[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.Balance{UserID: userID, Amount: amount}, nil
}

func (s *fakeStore) CountRecentEntries(_ context.Context, userID int, entryType models.EntryType, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.ledger {
		if e.UserID == userID && e.Type == entryType && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) TokenExists(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == s.hiddenToken {
		return false, nil
	}
	for _, e := range s.ledger {
		if e.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ReadStatement(_ context.Context, userID int, f store.LedgerFilter) (*store.StatementData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[userID]
	if !ok {
		return nil, store.ErrNotFound
	}

	var filtered []models.LedgerEntry
	data := &store.StatementData{Balance: balance}
	for _, e := range s.ledger {
		if e.UserID != userID {
			continue
		}
		if f.Type != "" && string(e.Type) != f.Type {
			continue
		}
		if f.Search != "" && !strings.Contains(e.Description, f.Search) && !strings.Contains(e.Notes, f.Search) {
			continue
		}
		filtered = append(filtered, e)
		data.TotalRows++
		if e.Type == models.EntryTypeDebit {
			data.TotalDebits += e.Amount
		} else {
			data.TotalCredits += e.Amount
		}
	}
	data.TotalTransactions = data.TotalRows

	sort.Slice(filtered, func(i, j int) bool {
		var less bool
		switch f.Sort {
		case "amount":
			less = filtered[i].Amount < filtered[j].Amount
		case "id":
			less = filtered[i].ID < filtered[j].ID
		default:
			if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
				less = filtered[i].ID < filtered[j].ID
			} else {
				less = filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
			}
		}
		if f.Order == "DESC" {
			return !less
		}
		return less
	})

	start := f.Offset
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + f.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	data.Entries = filtered[start:end]
	return data, nil
}

type fakeTx struct {
	store    *fakeStore
	balances map[int]float64
	pending  []models.LedgerEntry
	done     bool
}

func (t *fakeTx) LockBalance(_ context.Context, userID int) (float64, error) {
	amount, ok := t.balances[userID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return amount, nil
}

func (t *fakeTx) DebitBalance(_ context.Context, userID int, amount float64) (bool, error) {
	if t.store.debitConflict {
		return false, nil
	}
	if t.balances[userID] < amount {
		return false, nil
	}
	t.balances[userID] -= amount
	return true, nil
}

func (t *fakeTx) CreditBalance(_ context.Context, userID int, amount float64) error {
	if t.store.creditErr != nil {
		return t.store.creditErr
	}
	t.balances[userID] += amount
	return nil
}

func (t *fakeTx) AppendEntry(_ context.Context, entry *models.LedgerEntry) error {
	for _, e := range t.store.ledger {
		if e.Token == entry.Token && e.Type == entry.Type {
			return store.ErrDuplicateToken
		}
	}
	for _, e := range t.pending {
		if e.Token == entry.Token && e.Type == entry.Type {
			return store.ErrDuplicateToken
		}
	}
	t.store.nextID++
	entry.ID = t.store.nextID
	entry.CreatedAt = time.Now()
	t.pending = append(t.pending, *entry)
	return nil
}

func (t *fakeTx) Commit() error {
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.balances = t.balances
	t.store.ledger = append(t.store.ledger, t.pending...)
	t.done = true
	return nil
}

func (t *fakeTx) Rollback() error {
	// No-op after commit, matching database/sql semantics.
	return nil
}
