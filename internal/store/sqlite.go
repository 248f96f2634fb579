package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mcardozo/papertrade/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ TradeStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id       TEXT PRIMARY KEY,
	cash          REAL NOT NULL,
	starting_cash REAL NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS holdings (
	user_id      TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	quantity     INTEGER NOT NULL,
	average_cost REAL NOT NULL,
	PRIMARY KEY (user_id, symbol)
);
CREATE TABLE IF NOT EXISTS transactions (
	tx_id       TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	side        TEXT NOT NULL,
	quantity    INTEGER NOT NULL,
	price       REAL NOT NULL,
	total       REAL NOT NULL,
	executed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_user
	ON transactions (user_id, executed_at DESC);
`

// SQLiteStore implements TradeStore backed by a SQLite database. ApplyTrade
// runs inside a single SQL transaction, which gives the atomic
// cash+holding+transaction commit the trade orchestrator requires.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// The driver serialises access per connection; a single connection
	// avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateAccount inserts a new account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, a *domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, cash, starting_cash, created_at) VALUES (?, ?, ?, ?)`,
		a.UserID, a.Cash, a.StartingCash, a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		var exists bool
		row := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts WHERE user_id = ?)`, a.UserID)
		if scanErr := row.Scan(&exists); scanErr == nil && exists {
			return domain.ErrAccountAlreadyExists
		}
		return err
	}
	return nil
}

// GetAccount retrieves an account by user ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, cash, starting_cash, created_at FROM accounts WHERE user_id = ?`, userID)
	return scanAccount(row)
}

// GetHolding retrieves the holding for (user, symbol).
func (s *SQLiteStore) GetHolding(ctx context.Context, userID, symbol string) (*domain.Holding, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, symbol, quantity, average_cost FROM holdings WHERE user_id = ? AND symbol = ?`,
		userID, symbol)

	h := &domain.Holding{}
	err := row.Scan(&h.UserID, &h.Symbol, &h.Quantity, &h.AverageCost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrHoldingNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ListHoldings returns all holdings for a user, sorted by symbol.
func (s *SQLiteStore) ListHoldings(ctx context.Context, userID string) ([]*domain.Holding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, symbol, quantity, average_cost FROM holdings WHERE user_id = ? ORDER BY symbol`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.Holding, 0)
	for rows.Next() {
		h := &domain.Holding{}
		if err := rows.Scan(&h.UserID, &h.Symbol, &h.Quantity, &h.AverageCost); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// ListTransactions returns a user's transactions newest first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tx_id, user_id, symbol, side, quantity, price, total, executed_at
		 FROM transactions WHERE user_id = ? ORDER BY executed_at DESC, tx_id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.Transaction, 0)
	for rows.Next() {
		t := &domain.Transaction{}
		var side, executedAt string
		if err := rows.Scan(&t.TxID, &t.UserID, &t.Symbol, &side, &t.Quantity, &t.Price, &t.Total, &executedAt); err != nil {
			return nil, err
		}
		t.Side = domain.TradeSide(side)
		ts, err := time.Parse(time.RFC3339Nano, executedAt)
		if err != nil {
			return nil, err
		}
		t.ExecutedAt = ts
		result = append(result, t)
	}
	return result, rows.Err()
}

// ApplyTrade commits the mutation inside one SQL transaction.
func (s *SQLiteStore) ApplyTrade(ctx context.Context, m *domain.TradeMutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET cash = ? WHERE user_id = ?`, m.NewCash, m.UserID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}

	if m.Holding != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO holdings (user_id, symbol, quantity, average_cost) VALUES (?, ?, ?, ?)
			 ON CONFLICT (user_id, symbol) DO UPDATE SET quantity = excluded.quantity, average_cost = excluded.average_cost`,
			m.Holding.UserID, m.Holding.Symbol, m.Holding.Quantity, m.Holding.AverageCost)
		if err != nil {
			return err
		}
	}
	if m.RemoveSymbol != "" {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM holdings WHERE user_id = ? AND symbol = ?`, m.UserID, m.RemoveSymbol)
		if err != nil {
			return err
		}
	}

	if m.Transaction != nil {
		t := m.Transaction
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions (tx_id, user_id, symbol, side, quantity, price, total, executed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.TxID, t.UserID, t.Symbol, string(t.Side), t.Quantity, t.Price, t.Total,
			t.ExecutedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	a := &domain.Account{}
	var createdAt string
	err := row.Scan(&a.UserID, &a.Cash, &a.StartingCash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = ts
	return a, nil
}
