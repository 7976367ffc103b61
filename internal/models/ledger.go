package models

import "time"

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// LedgerEntry is one side of a transfer (or a unilateral admin credit).
// Rows are append-only; amount is the unsigned magnitude, the sign lives in
// Type. BalanceAfter is the owner's balance snapshot taken in the same
// database transaction that inserted the row.
type LedgerEntry struct {
	ID           int64     `json:"id"`
	UserID       int       `json:"user_id"`
	Amount       float64   `json:"amount"`
	Type         EntryType `json:"type"`
	BalanceAfter float64   `json:"balance_after"`
	Token        string    `json:"token"`
	Notes        string    `json:"notes,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Balance struct {
	UserID        int       `json:"user_id"`
	Amount        float64   `json:"amount"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}
