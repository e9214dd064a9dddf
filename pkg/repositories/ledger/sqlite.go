package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fadedpez/contrast/pkg/db/migrations"
	"github.com/fadedpez/contrast/pkg/entities"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationsFS returns the ledger schema migrations
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Timestamps are written as RFC3339 in UTC. The other layouts cover rows
// written by CURRENT_TIMESTAMP or older tooling.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",  // SQLite default format
	"2006-01-02T15:04:05Z", // ISO 8601 format
	"2006-01-02 15:04:05.999999999-07:00",
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) (time.Time, error) {
	var parseErr error
	for _, format := range timestampFormats {
		t, err := time.Parse(format, value)
		if err == nil {
			return t, nil
		}
		parseErr = err
	}
	return time.Time{}, fmt.Errorf("error parsing timestamp '%s': %w", value, parseErr)
}

// SQLiteRepository implements Repository using SQLite.
// Transactions use BEGIN IMMEDIATE so concurrent writers serialize.
type SQLiteRepository struct {
	db   *sql.DB
	opts options
}

// NewSQLiteRepository opens the database at dbPath and applies pending migrations
func NewSQLiteRepository(ctx context.Context, dbPath string, opts ...Option) (*SQLiteRepository, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One connection keeps writers queued in-process instead of contending
	// for the file lock.
	db.SetMaxOpenConns(1)

	if _, err := migrations.NewFSMigrator(db, MigrationsFS()).MigrateUp(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error migrating ledger schema: %w", err)
	}

	return &SQLiteRepository{db: db, opts: newOptions(opts)}, nil
}

func (r *SQLiteRepository) queries(q queryer) *sqliteQueries {
	return &sqliteQueries{q: q, opts: r.opts}
}

// GetUser retrieves an account by user ID
func (r *SQLiteRepository) GetUser(ctx context.Context, userID string) (*entities.UserAccount, error) {
	return r.queries(r.db).GetUser(ctx, userID)
}

// CreateUser creates a zeroed account if none exists
func (r *SQLiteRepository) CreateUser(ctx context.Context, userID, username string) error {
	return r.queries(r.db).CreateUser(ctx, userID, username)
}

// UpdateUser writes the non-nil fields of update
func (r *SQLiteRepository) UpdateUser(ctx context.Context, userID string, update *entities.AccountUpdate) error {
	return r.queries(r.db).UpdateUser(ctx, userID, update)
}

// LogTransaction appends an entry to the transaction log
func (r *SQLiteRepository) LogTransaction(ctx context.Context, entry *entities.TransactionLogEntry) error {
	return r.queries(r.db).LogTransaction(ctx, entry)
}

// Transaction runs work inside a database transaction
func (r *SQLiteRepository) Transaction(ctx context.Context, work func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	if err := work(ctx, r.queries(sqlTx)); err != nil {
		sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// ListUsers returns every account in creation order
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]*entities.UserAccount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	var accounts []*entities.UserAccount
	for rows.Next() {
		account, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return accounts, nil
}

// GetTransactions returns recent entries for a user, newest first
func (r *SQLiteRepository) GetTransactions(ctx context.Context, userID string, limit int) ([]*entities.TransactionLogEntry, error) {
	query := `
		SELECT id, user_id, kind, amount, reason, balance_after, timestamp
		FROM transaction_log
		WHERE user_id = ?
		ORDER BY seq DESC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	entries := make([]*entities.TransactionLogEntry, 0)
	for rows.Next() {
		var entry entities.TransactionLogEntry
		var kind, timestamp string
		if err := rows.Scan(&entry.ID, &entry.UserID, &kind, &entry.Amount, &entry.Reason, &entry.BalanceAfter, &timestamp); err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		entry.Kind = entities.TransactionKind(kind)
		if entry.Timestamp, err = parseTimestamp(timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return entries, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// queryer is the subset of *sql.DB and *sql.Tx the queries need
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const userColumns = `user_id, username, wallet, safe, safe_capacity, total_earned, total_spent, daily_streak, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*entities.UserAccount, error) {
	var account entities.UserAccount
	var createdAt, updatedAt string

	err := row.Scan(
		&account.UserID,
		&account.Username,
		&account.Wallet,
		&account.Safe,
		&account.SafeCapacity,
		&account.TotalEarned,
		&account.TotalSpent,
		&account.DailyStreak,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error scanning user: %w", err)
	}

	if account.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if account.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &account, nil
}

// sqliteQueries implements Tx over either the database or an open transaction
type sqliteQueries struct {
	q    queryer
	opts options
}

func (s *sqliteQueries) GetUser(ctx context.Context, userID string) (*entities.UserAccount, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	return scanUser(row)
}

func (s *sqliteQueries) CreateUser(ctx context.Context, userID, username string) error {
	now := formatTimestamp(s.opts.now())
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (user_id, username, safe_capacity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, username, s.opts.safeCapacity, now, now)
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (s *sqliteQueries) UpdateUser(ctx context.Context, userID string, update *entities.AccountUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{formatTimestamp(s.opts.now())}

	if update != nil {
		if update.Username != nil {
			sets = append(sets, "username = ?")
			args = append(args, *update.Username)
		}
		if update.Wallet != nil {
			sets = append(sets, "wallet = ?")
			args = append(args, *update.Wallet)
		}
		if update.Safe != nil {
			sets = append(sets, "safe = ?")
			args = append(args, *update.Safe)
		}
		if update.TotalEarned != nil {
			sets = append(sets, "total_earned = ?")
			args = append(args, *update.TotalEarned)
		}
		if update.TotalSpent != nil {
			sets = append(sets, "total_spent = ?")
			args = append(args, *update.TotalSpent)
		}
	}
	args = append(args, userID)

	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE user_id = ?"
	result, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *sqliteQueries) LogTransaction(ctx context.Context, entry *entities.TransactionLogEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	// Generate ID if not provided
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.opts.now()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transaction_log (id, user_id, kind, amount, reason, balance_after, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.UserID, string(entry.Kind), entry.Amount, entry.Reason, entry.BalanceAfter, formatTimestamp(entry.Timestamp))
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return ErrUserNotFound
		}
		return fmt.Errorf("error recording transaction: %w", err)
	}
	return nil
}
