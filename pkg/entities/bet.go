package entities

import (
	"time"
)

// GameType identifies a wagering game
type GameType string

const (
	GameTypeCoinflip GameType = "coinflip"
	GameTypeDiceRoll GameType = "dice-roll"
)

// WagerState tracks a bet through placement and resolution
type WagerState string

const (
	WagerStateProposed      WagerState = "PROPOSED"
	WagerStateFundsReserved WagerState = "FUNDS_RESERVED"
	WagerStateWon           WagerState = "WON"
	WagerStateLost          WagerState = "LOST"
	WagerStatePaidOut       WagerState = "PAID_OUT"
	WagerStateSettled       WagerState = "SETTLED"
)

// IsTerminal reports whether no further transition is possible
func (s WagerState) IsTerminal() bool {
	return s == WagerStatePaidOut || s == WagerStateSettled
}

// Bet is a wager that lives only while it is being resolved
type Bet struct {
	ID       string
	UserID   string
	GameType GameType
	Amount   int64
	PlacedAt time.Time
	State    WagerState
	Winnings int64 // Credited amount once paid out
}
