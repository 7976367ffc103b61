package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallet-service/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

const mysqlDuplicateEntry = 1062

type MySQLStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMySQLStore(db *sql.DB, logger zerolog.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: logger,
	}
}

func (s *MySQLStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return &mysqlTx{tx: tx}, nil
}

func (s *MySQLStore) CreateUser(ctx context.Context, username, email, passwordHash, role string) (*models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)",
		username, email, passwordHash, role,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	userID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}

	// The wallet row is born with the user so every later transfer can
	// assume the balance row exists.
	_, err = tx.ExecContext(ctx, "INSERT INTO balances (user_id, amount) VALUES (?, 0)", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize balance: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}

	return s.GetUserByID(ctx, int(userID))
}

func (s *MySQLStore) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, role, created_at, updated_at FROM users WHERE id = ?",
		userID,
	))
}

func (s *MySQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, role, created_at, updated_at FROM users WHERE email = ?",
		email,
	))
}

func (s *MySQLStore) FindUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, email, password_hash, role, created_at, updated_at FROM users WHERE email = ? OR username = ? LIMIT 2",
		identifier, identifier,
	)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	var matches []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.Role, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		matches = append(matches, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &matches[0], nil
	default:
		// One user's username colliding with another user's email; there
		// is no unique account to move funds to.
		return nil, ErrAmbiguous
	}
}

func (s *MySQLStore) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *MySQLStore) GetBalance(ctx context.Context, userID int) (*models.Balance, error) {
	var balance models.Balance
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, amount, last_updated_at FROM balances WHERE user_id = ?",
		userID,
	).Scan(&balance.UserID, &balance.Amount, &balance.LastUpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error fetching balance")
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &balance, nil
}

func (s *MySQLStore) CountRecentEntries(ctx context.Context, userID int, entryType models.EntryType, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE user_id = ? AND type = ? AND created_at >= ?",
		userID, string(entryType), since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}
	return count, nil
}

func (s *MySQLStore) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE idempotency_token = ?)",
		token,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}
	return exists, nil
}

// ReadStatement fetches the current balance, the requested ledger page and
// the aggregate statistics inside one REPEATABLE READ transaction, so the
// page is consistent with the balance it is reconstructed against.
func (s *MySQLStore) ReadStatement(ctx context.Context, userID int, f LedgerFilter) (*StatementData, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to start statement transaction: %w", err)
	}
	defer tx.Rollback()

	var data StatementData
	err = tx.QueryRowContext(ctx, "SELECT amount FROM balances WHERE user_id = ?", userID).Scan(&data.Balance)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	where := NewWhere().Add("user_id = ?", userID)
	if f.Type != "" {
		where.Add("type = ?", f.Type)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		where.Add("(description LIKE ? OR notes LIKE ?)", pattern, pattern)
	}
	clause, args := where.Clause()

	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN type = 'debit' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'credit' THEN amount ELSE 0 END), 0)
		FROM ledger_entries`+clause, args...,
	).Scan(&data.TotalRows, &data.TotalDebits, &data.TotalCredits)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	data.TotalTransactions = data.TotalRows

	query := fmt.Sprintf(
		"SELECT id, user_id, amount, type, balance_after, idempotency_token, COALESCE(notes, ''), COALESCE(description, ''), created_at FROM ledger_entries%s ORDER BY %s %s, id %s LIMIT ? OFFSET ?",
		clause, f.Sort, f.Order, f.Order,
	)
	rows, err := tx.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error fetching statement rows")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.LedgerEntry
		err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Amount, &entry.Type, &entry.BalanceAfter,
			&entry.Token, &entry.Notes, &entry.Description, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning ledger entry: %w", err)
		}
		data.Entries = append(data.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit statement read: %w", err)
	}
	return &data, nil
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) LockBalance(ctx context.Context, userID int) (float64, error) {
	var amount float64
	err := t.tx.QueryRowContext(ctx,
		"SELECT amount FROM balances WHERE user_id = ? FOR UPDATE",
		userID,
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock balance: %w", err)
	}
	return amount, nil
}

func (t *mysqlTx) DebitBalance(ctx context.Context, userID int, amount float64) (bool, error) {
	result, err := t.tx.ExecContext(ctx,
		"UPDATE balances SET amount = amount - ?, last_updated_at = NOW() WHERE user_id = ? AND amount >= ?",
		amount, userID, amount,
	)
	if err != nil {
		return false, fmt.Errorf("failed to debit balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

func (t *mysqlTx) CreditBalance(ctx context.Context, userID int, amount float64) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE balances SET amount = amount + ?, last_updated_at = NOW() WHERE user_id = ?",
		amount, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

func (t *mysqlTx) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	result, err := t.tx.ExecContext(ctx,
		"INSERT INTO ledger_entries (user_id, amount, type, balance_after, idempotency_token, notes, description) VALUES (?, ?, ?, ?, ?, ?, ?)",
		entry.UserID, entry.Amount, string(entry.Type), entry.BalanceAfter, entry.Token, entry.Notes, entry.Description,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ledger entry ID: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = time.Now()
	return nil
}

func (t *mysqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *mysqlTx) Rollback() error {
	return t.tx.Rollback()
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
