package models

import "time"

// TransferRequest is the wire input for a wallet-to-wallet transfer. The
// receiver may be addressed by exact email or username; the sender comes
// from the authenticated session. Token is an optional idempotency token —
// one is generated when absent.
type TransferRequest struct {
	Receiver string  `json:"receiver"`
	Amount   float64 `json:"amount"`
	Notes    string  `json:"notes,omitempty"`
	Token    string  `json:"token,omitempty"`
}

type TransferResult struct {
	Token           string    `json:"token"`
	SenderBalance   float64   `json:"sender_balance"`
	ReceiverBalance float64   `json:"receiver_balance"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreditRequest struct {
	UserID int     `json:"user_id"`
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes,omitempty"`
}

type CreditResult struct {
	Token     string    `json:"token"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}
