package entities

import (
	"time"
)

// TransactionKind represents the type of ledger mutation
type TransactionKind string

const (
	TransactionKindAdd         TransactionKind = "add"
	TransactionKindRemove      TransactionKind = "remove"
	TransactionKindTransferOut TransactionKind = "transfer-out"
	TransactionKindTransferIn  TransactionKind = "transfer-in"
	TransactionKindBet         TransactionKind = "bet"
	TransactionKindPayout      TransactionKind = "payout"
)

// IsCredit reports whether the kind adds to the wallet
func (k TransactionKind) IsCredit() bool {
	switch k {
	case TransactionKindAdd, TransactionKindTransferIn, TransactionKindPayout:
		return true
	}
	return false
}

// Valid reports whether k is a known kind
func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindAdd, TransactionKindRemove, TransactionKindTransferOut,
		TransactionKindTransferIn, TransactionKindBet, TransactionKindPayout:
		return true
	}
	return false
}

// TransactionLogEntry is an append-only record of one wallet mutation
type TransactionLogEntry struct {
	ID           string          // Unique identifier
	UserID       string          // Account that was mutated
	Kind         TransactionKind // Direction and cause
	Amount       int64           // Always positive, Kind carries the sign
	Reason       string          // Human-readable reason
	BalanceAfter int64           // Wallet after this mutation
	Timestamp    time.Time       // When the mutation was committed
}

// SignedAmount returns Amount with the sign implied by Kind
func (e *TransactionLogEntry) SignedAmount() int64 {
	if e.Kind.IsCredit() {
		return e.Amount
	}
	return -e.Amount
}
