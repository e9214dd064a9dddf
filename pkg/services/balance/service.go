package balance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fadedpez/contrast/internal/config"
	"github.com/fadedpez/contrast/internal/logging"
	"github.com/fadedpez/contrast/internal/types"
	"github.com/fadedpez/contrast/pkg/entities"
	"github.com/fadedpez/contrast/pkg/repositories/ledger"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultStoreTimeout = 5 * time.Second

// Rules are the currency limits applied to every mutation.
// A cap of zero or less is unbounded.
type Rules struct {
	MaxWalletAmount      int64
	MaxTransactionAmount int64
	CurrencySymbol       string
}

// RulesFromConfig builds Rules from the economy configuration
func RulesFromConfig(cfg config.EconomyConfig) Rules {
	rules := Rules{CurrencySymbol: cfg.CurrencySymbol}
	if cfg.WalletCapped() {
		rules.MaxWalletAmount = cfg.MaxWalletAmount
	}
	if cfg.TransferCapped() {
		rules.MaxTransactionAmount = cfg.MaxTransactionAmount
	}
	return rules
}

// TransferResult holds both wallets after a transfer
type TransferResult struct {
	SenderBalance   int64
	ReceiverBalance int64
}

// Service handles balance business logic
type Service struct {
	repo         ledger.Repository
	rules        Rules
	audit        AuditSink
	logger       *logging.Logger
	storeTimeout time.Duration
	printer      *message.Printer
}

// Option configures a Service
type Option func(*Service)

// WithAuditSink mirrors committed log entries to sink
func WithAuditSink(sink AuditSink) Option {
	return func(s *Service) {
		s.audit = sink
	}
}

// WithLogger sets the service logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrDefault(logger).With("balance")
	}
}

// WithStoreTimeout bounds every ledger transaction
func WithStoreTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.storeTimeout = timeout
		}
	}
}

// NewService creates a new balance service
func NewService(repo ledger.Repository, rules Rules, opts ...Option) *Service {
	if rules.CurrencySymbol == "" {
		rules.CurrencySymbol = "coins"
	}
	s := &Service{
		repo:         repo,
		rules:        rules,
		logger:       logging.Default.With("balance"),
		storeTimeout: defaultStoreTimeout,
		printer:      message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetBalance returns a user's holdings, creating a zeroed account if needed
func (s *Service) GetBalance(ctx context.Context, userID string) (entities.Holdings, error) {
	var holdings entities.Holdings
	err := s.inTransaction(ctx, func(ctx context.Context, tx ledger.Tx) error {
		account, err := s.loadOrCreate(ctx, tx, userID, "")
		if err != nil {
			return err
		}
		holdings = account.Holdings()
		return nil
	})
	if err != nil {
		return entities.Holdings{}, err
	}
	return holdings, nil
}

// EnsureAccount creates the account if absent and refreshes the cached username
func (s *Service) EnsureAccount(ctx context.Context, userID, username string) (*entities.UserAccount, error) {
	var account *entities.UserAccount
	err := s.inTransaction(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		account, err = s.loadOrCreate(ctx, tx, userID, username)
		if err != nil {
			return err
		}
		if username == "" || account.Username == username {
			return nil
		}
		if err := tx.UpdateUser(ctx, userID, &entities.AccountUpdate{Username: &username}); err != nil {
			return err
		}
		account.Username = username
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// AddBalance credits a wallet and logs it as an add
func (s *Service) AddBalance(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	return s.Credit(ctx, userID, amount, entities.TransactionKindAdd, reason)
}

// RemoveBalance debits a wallet and logs it as a remove
func (s *Service) RemoveBalance(ctx context.Context, userID string, amount int64, reason string) (int64, error) {
	return s.Debit(ctx, userID, amount, entities.TransactionKindRemove, reason)
}

// Credit adds amount to the wallet, enforcing the wallet cap, and logs it under kind
func (s *Service) Credit(ctx context.Context, userID string, amount int64, kind entities.TransactionKind, reason string) (int64, error) {
	if !kind.Valid() || !kind.IsCredit() {
		return 0, fmt.Errorf("%s is not a credit kind", kind)
	}
	return s.mutateOne(ctx, userID, amount, kind, reason)
}

// Debit removes amount from the wallet if funds allow and logs it under kind
func (s *Service) Debit(ctx context.Context, userID string, amount int64, kind entities.TransactionKind, reason string) (int64, error) {
	if !kind.Valid() || kind.IsCredit() {
		return 0, fmt.Errorf("%s is not a debit kind", kind)
	}
	return s.mutateOne(ctx, userID, amount, kind, reason)
}

func (s *Service) mutateOne(ctx context.Context, userID string, amount int64, kind entities.TransactionKind, reason string) (int64, error) {
	if amount <= 0 {
		return 0, s.invalidAmount()
	}

	var entry *entities.TransactionLogEntry
	err := s.inTransaction(ctx, func(ctx context.Context, tx ledger.Tx) error {
		account, err := s.loadOrCreate(ctx, tx, userID, "")
		if err != nil {
			return err
		}
		entry, err = s.apply(ctx, tx, account, amount, kind, reason)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("%s %d for user %s, wallet now %d", kind, amount, userID, entry.BalanceAfter)
	s.record(ctx, entry)
	return entry.BalanceAfter, nil
}

// TransferBalance moves amount from sender to receiver in one transaction
func (s *Service) TransferBalance(ctx context.Context, senderID, receiverID string, amount int64) (*TransferResult, error) {
	if amount <= 0 {
		return nil, s.invalidAmount()
	}
	if senderID == receiverID {
		return nil, types.NewEconomyError(types.ErrSelfTransfer, "You cannot transfer to yourself")
	}
	if s.rules.MaxTransactionAmount > 0 && amount > s.rules.MaxTransactionAmount {
		return nil, types.NewEconomyError(types.ErrTransferCapExceeded,
			fmt.Sprintf("Cannot transfer more than %s", s.formatAmount(s.rules.MaxTransactionAmount)))
	}

	var out, in *entities.TransactionLogEntry
	err := s.inTransaction(ctx, func(ctx context.Context, tx ledger.Tx) error {
		sender, err := s.loadOrCreate(ctx, tx, senderID, "")
		if err != nil {
			return err
		}
		receiver, err := s.loadOrCreate(ctx, tx, receiverID, "")
		if err != nil {
			return err
		}

		out, err = s.apply(ctx, tx, sender, amount, entities.TransactionKindTransferOut, "Transfer to "+receiverID)
		if err != nil {
			return err
		}
		in, err = s.apply(ctx, tx, receiver, amount, entities.TransactionKindTransferIn, "Transfer from "+senderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transferred %d from %s to %s", amount, senderID, receiverID)
	s.record(ctx, out, in)
	return &TransferResult{
		SenderBalance:   out.BalanceAfter,
		ReceiverBalance: in.BalanceAfter,
	}, nil
}

// GetHistory returns a user's recent log entries, newest first
func (s *Service) GetHistory(ctx context.Context, userID string, limit int) ([]*entities.TransactionLogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	entries, err := s.repo.GetTransactions(ctx, userID, limit)
	if err != nil {
		return nil, s.storeError(err)
	}
	return entries, nil
}

// apply validates and writes one wallet mutation inside tx. account is
// updated in place so a second apply in the same transaction sees it.
func (s *Service) apply(ctx context.Context, tx ledger.Tx, account *entities.UserAccount, amount int64, kind entities.TransactionKind, reason string) (*entities.TransactionLogEntry, error) {
	update := &entities.AccountUpdate{}
	if kind.IsCredit() {
		wallet := account.Wallet + amount
		if wallet < account.Wallet || (s.rules.MaxWalletAmount > 0 && wallet > s.rules.MaxWalletAmount) {
			return nil, s.walletCapExceeded()
		}
		earned := account.TotalEarned + amount
		update.Wallet = &wallet
		update.TotalEarned = &earned
	} else {
		if account.Wallet < amount {
			return nil, s.insufficientFunds(amount, account.Wallet)
		}
		wallet := account.Wallet - amount
		spent := account.TotalSpent + amount
		update.Wallet = &wallet
		update.TotalSpent = &spent
	}

	if err := tx.UpdateUser(ctx, account.UserID, update); err != nil {
		return nil, err
	}
	update.ApplyTo(account)

	entry := &entities.TransactionLogEntry{
		UserID:       account.UserID,
		Kind:         kind,
		Amount:       amount,
		Reason:       reason,
		BalanceAfter: account.Wallet,
	}
	if err := tx.LogTransaction(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) loadOrCreate(ctx context.Context, tx ledger.Tx, userID, username string) (*entities.UserAccount, error) {
	account, err := tx.GetUser(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ledger.ErrUserNotFound) {
		return nil, err
	}

	if err := tx.CreateUser(ctx, userID, username); err != nil {
		return nil, err
	}
	return tx.GetUser(ctx, userID)
}

// inTransaction runs work under the store timeout. Economy errors pass
// through; anything else from the store becomes STORE_UNAVAILABLE.
func (s *Service) inTransaction(ctx context.Context, work func(ctx context.Context, tx ledger.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.repo.Transaction(ctx, work)
	if err == nil {
		return nil
	}
	var econErr *types.EconomyError
	if types.As(err, &econErr) {
		return econErr
	}
	return s.storeError(err)
}

func (s *Service) storeError(err error) error {
	wrapped := types.WrapError(types.ErrStoreUnavailable, "The ledger is unavailable, please try again later", err)
	s.logger.LogError(wrapped)
	return wrapped
}

// record hands committed entries to the audit sink. Failures never
// affect the committed mutation.
func (s *Service) record(ctx context.Context, entries ...*entities.TransactionLogEntry) {
	if s.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.audit.Record(ctx, entries); err != nil {
		s.logger.Warn("audit sink failed for %d entries: %v", len(entries), err)
	}
}

func (s *Service) formatAmount(amount int64) string {
	return s.printer.Sprintf("%d %s", amount, s.rules.CurrencySymbol)
}

func (s *Service) invalidAmount() error {
	return types.NewEconomyError(types.ErrInvalidAmount, "Amount must be positive")
}

func (s *Service) insufficientFunds(required, available int64) error {
	return types.NewEconomyError(types.ErrInsufficientFunds,
		fmt.Sprintf("Insufficient balance. You need %s, but you only have %s",
			s.formatAmount(required), s.formatAmount(available)))
}

func (s *Service) walletCapExceeded() error {
	limit := s.rules.MaxWalletAmount
	if limit <= 0 {
		limit = math.MaxInt64
	}
	return types.NewEconomyError(types.ErrWalletCapExceeded,
		fmt.Sprintf("Wallet cannot hold more than %s", s.formatAmount(limit)))
}
