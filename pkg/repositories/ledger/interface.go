package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/fadedpez/contrast/pkg/entities"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidEntry = errors.New("invalid transaction log entry")
)

// Tx is the set of account operations available inside a transaction
type Tx interface {
	// GetUser retrieves an account by user ID. It never creates one.
	GetUser(ctx context.Context, userID string) (*entities.UserAccount, error)

	// CreateUser creates a zeroed account if none exists
	CreateUser(ctx context.Context, userID, username string) error

	// UpdateUser writes the non-nil fields of update
	UpdateUser(ctx context.Context, userID string, update *entities.AccountUpdate) error

	// LogTransaction appends an entry to the transaction log
	LogTransaction(ctx context.Context, entry *entities.TransactionLogEntry) error
}

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_ledger

// Repository defines the interface for account and transaction log storage
type Repository interface {
	Tx

	// Transaction runs work atomically. Writes made through tx are rolled
	// back if work returns an error.
	Transaction(ctx context.Context, work func(ctx context.Context, tx Tx) error) error

	// ListUsers returns every account in creation order
	ListUsers(ctx context.Context) ([]*entities.UserAccount, error)

	// GetTransactions returns up to limit entries for a user, newest first.
	// A non-positive limit returns all of them.
	GetTransactions(ctx context.Context, userID string, limit int) ([]*entities.TransactionLogEntry, error)

	Close() error
}

// Option configures a repository
type Option func(*options)

type options struct {
	safeCapacity int64
	now          func() time.Time
}

// WithSafeCapacity sets the safe capacity given to new accounts
func WithSafeCapacity(capacity int64) Option {
	return func(o *options) {
		o.safeCapacity = capacity
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		safeCapacity: 10000,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validateEntry(entry *entities.TransactionLogEntry) error {
	if entry == nil || entry.UserID == "" || !entry.Kind.Valid() || entry.Amount <= 0 {
		return ErrInvalidEntry
	}
	return nil
}
