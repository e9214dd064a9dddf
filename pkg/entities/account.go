package entities

import (
	"time"
)

// UserAccount is a user's currency holdings and lifetime counters
type UserAccount struct {
	UserID       string    // Stable user ID
	Username     string    // Last seen display name, not authoritative
	Wallet       int64     // Spendable balance, never negative
	Safe         int64     // Protected balance, never above SafeCapacity
	SafeCapacity int64     // Ceiling for Safe
	TotalEarned  int64     // Lifetime credits, only grows
	TotalSpent   int64     // Lifetime debits, only grows
	DailyStreak  int       // Owned by daily rewards, read-only here
	CreatedAt    time.Time // When the account was first referenced
	UpdatedAt    time.Time // When the account was last written
}

// Holdings is the balance view of an account
type Holdings struct {
	Wallet       int64
	Safe         int64
	SafeCapacity int64
}

// Holdings returns the account's balance view
func (a *UserAccount) Holdings() Holdings {
	return Holdings{
		Wallet:       a.Wallet,
		Safe:         a.Safe,
		SafeCapacity: a.SafeCapacity,
	}
}

// NetWorth is lifetime earned minus lifetime spent
func (a *UserAccount) NetWorth() int64 {
	return a.TotalEarned - a.TotalSpent
}

// ProfitLoss is the wallet measured against net worth
func (a *UserAccount) ProfitLoss() int64 {
	return a.Wallet - a.NetWorth()
}

// AccountUpdate is a partial write to an account. Nil fields are left as is.
type AccountUpdate struct {
	Username    *string
	Wallet      *int64
	Safe        *int64
	TotalEarned *int64
	TotalSpent  *int64
}

// ApplyTo copies the set fields onto account
func (u *AccountUpdate) ApplyTo(account *UserAccount) {
	if u == nil {
		return
	}
	if u.Username != nil {
		account.Username = *u.Username
	}
	if u.Wallet != nil {
		account.Wallet = *u.Wallet
	}
	if u.Safe != nil {
		account.Safe = *u.Safe
	}
	if u.TotalEarned != nil {
		account.TotalEarned = *u.TotalEarned
	}
	if u.TotalSpent != nil {
		account.TotalSpent = *u.TotalSpent
	}
}
