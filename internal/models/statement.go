package models

// StatementEntry is a ledger row annotated with the balance that existed
// before the entry took effect, like a bank statement line.
type StatementEntry struct {
	LedgerEntry
	PreviousBalance float64 `json:"previous_balance"`
}

type StatementQuery struct {
	Page     int
	PageSize int
	Search   string
	Type     string
	Sort     string
	Order    string
}

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	TotalRows  int64 `json:"total_rows"`
}

type StatementStatistics struct {
	CurrentBalance    float64 `json:"current_balance"`
	TotalDebits       float64 `json:"total_debits"`
	TotalCredits      float64 `json:"total_credits"`
	TotalTransactions int64   `json:"total_transactions"`
}

type Statement struct {
	Data       []StatementEntry    `json:"data"`
	Pagination Pagination          `json:"pagination"`
	Statistics StatementStatistics `json:"statistics"`
}
