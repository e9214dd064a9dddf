package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/fadedpez/contrast/pkg/entities"
	"github.com/google/uuid"
)

// MemoryRepository implements Repository using in-memory storage.
// A single lock is held for the whole of each transaction.
type MemoryRepository struct {
	accounts     map[string]*entities.UserAccount
	order        []string
	transactions map[string][]*entities.TransactionLogEntry
	opts         options
	mu           sync.RWMutex
}

// NewMemoryRepository creates a new in-memory ledger
func NewMemoryRepository(opts ...Option) *MemoryRepository {
	return &MemoryRepository{
		accounts:     make(map[string]*entities.UserAccount),
		transactions: make(map[string][]*entities.TransactionLogEntry),
		opts:         newOptions(opts),
	}
}

// GetUser retrieves an account by user ID
func (r *MemoryRepository) GetUser(ctx context.Context, userID string) (*entities.UserAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[userID]
	if !exists {
		return nil, ErrUserNotFound
	}

	// Return a copy to prevent concurrent modification
	accountCopy := *account
	return &accountCopy, nil
}

// CreateUser creates a zeroed account if none exists
func (r *MemoryRepository) CreateUser(ctx context.Context, userID, username string) error {
	return r.Transaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateUser(ctx, userID, username)
	})
}

// UpdateUser writes the non-nil fields of update
func (r *MemoryRepository) UpdateUser(ctx context.Context, userID string, update *entities.AccountUpdate) error {
	return r.Transaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.UpdateUser(ctx, userID, update)
	})
}

// LogTransaction appends an entry to the transaction log
func (r *MemoryRepository) LogTransaction(ctx context.Context, entry *entities.TransactionLogEntry) error {
	return r.Transaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.LogTransaction(ctx, entry)
	})
}

// Transaction runs work against a staged view and commits it only if work
// succeeds and ctx is still live.
func (r *MemoryRepository) Transaction(ctx context.Context, work func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{
		repo:   r,
		staged: make(map[string]*entities.UserAccount),
	}
	if err := work(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	for _, userID := range tx.created {
		r.order = append(r.order, userID)
	}
	for userID, account := range tx.staged {
		r.accounts[userID] = account
	}
	for _, entry := range tx.entries {
		r.transactions[entry.UserID] = append(r.transactions[entry.UserID], entry)
	}
	return nil
}

// ListUsers returns every account in creation order
func (r *MemoryRepository) ListUsers(ctx context.Context) ([]*entities.UserAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.UserAccount, 0, len(r.order))
	for _, userID := range r.order {
		accountCopy := *r.accounts[userID]
		result = append(result, &accountCopy)
	}
	return result, nil
}

// GetTransactions returns recent entries for a user, newest first
func (r *MemoryRepository) GetTransactions(ctx context.Context, userID string, limit int) ([]*entities.TransactionLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.transactions[userID]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}

	result := make([]*entities.TransactionLogEntry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(result) < limit; i-- {
		entryCopy := *entries[i]
		result = append(result, &entryCopy)
	}
	return result, nil
}

// Close is a no-op for the memory store
func (r *MemoryRepository) Close() error {
	return nil
}

// memoryTx stages writes until the surrounding Transaction commits.
// It is only valid while the repository lock is held.
type memoryTx struct {
	repo    *MemoryRepository
	staged  map[string]*entities.UserAccount
	created []string
	entries []*entities.TransactionLogEntry
}

func (tx *memoryTx) lookup(userID string) (*entities.UserAccount, bool) {
	if account, ok := tx.staged[userID]; ok {
		return account, true
	}
	account, ok := tx.repo.accounts[userID]
	return account, ok
}

func (tx *memoryTx) GetUser(ctx context.Context, userID string) (*entities.UserAccount, error) {
	account, ok := tx.lookup(userID)
	if !ok {
		return nil, ErrUserNotFound
	}
	accountCopy := *account
	return &accountCopy, nil
}

func (tx *memoryTx) CreateUser(ctx context.Context, userID, username string) error {
	if _, ok := tx.lookup(userID); ok {
		return nil
	}
	now := tx.repo.opts.now()
	tx.staged[userID] = &entities.UserAccount{
		UserID:       userID,
		Username:     username,
		SafeCapacity: tx.repo.opts.safeCapacity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx.created = append(tx.created, userID)
	return nil
}

func (tx *memoryTx) UpdateUser(ctx context.Context, userID string, update *entities.AccountUpdate) error {
	account, ok := tx.lookup(userID)
	if !ok {
		return ErrUserNotFound
	}
	accountCopy := *account
	update.ApplyTo(&accountCopy)
	accountCopy.UpdatedAt = tx.repo.opts.now()
	tx.staged[userID] = &accountCopy
	return nil
}

func (tx *memoryTx) LogTransaction(ctx context.Context, entry *entities.TransactionLogEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	if _, ok := tx.lookup(entry.UserID); !ok {
		return ErrUserNotFound
	}

	// Generate a UUID if not provided
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = tx.repo.opts.now()
	}

	entryCopy := *entry
	tx.entries = append(tx.entries, &entryCopy)
	return nil
}
