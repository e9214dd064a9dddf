package balance

import (
	"context"

	"github.com/fadedpez/contrast/pkg/entities"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_balance
type BalanceService interface {
	GetBalance(ctx context.Context, userID string) (entities.Holdings, error)
	AddBalance(ctx context.Context, userID string, amount int64, reason string) (int64, error)
	RemoveBalance(ctx context.Context, userID string, amount int64, reason string) (int64, error)
	TransferBalance(ctx context.Context, senderID, receiverID string, amount int64) (*TransferResult, error)
	Debit(ctx context.Context, userID string, amount int64, kind entities.TransactionKind, reason string) (int64, error)
	Credit(ctx context.Context, userID string, amount int64, kind entities.TransactionKind, reason string) (int64, error)
	EnsureAccount(ctx context.Context, userID, username string) (*entities.UserAccount, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]*entities.TransactionLogEntry, error)
}

// AuditSink receives log entries after they have been committed
type AuditSink interface {
	Record(ctx context.Context, entries []*entities.TransactionLogEntry) error
}
