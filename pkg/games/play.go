package games

import (
	"context"
	"fmt"

	"github.com/fadedpez/contrast/pkg/entities"
	"github.com/fadedpez/contrast/pkg/services/wager"
)

// Wagerer is the part of the wager engine a round needs
type Wagerer interface {
	PlaceBet(ctx context.Context, userID string, amount int64, gameType entities.GameType) (*wager.BetResult, error)
	Settle(ctx context.Context, bet *entities.Bet, won bool, multiplier float64) (int64, error)
}

// Round is everything a caller needs to report a played round
type Round struct {
	Placed   *wager.BetResult
	Outcome  *Outcome
	Bet      *entities.Bet
	Winnings int64
	Wallet   int64
}

// Play validates the prediction, places the bet, resolves the game and
// settles before returning. A rejected bet returns a Round with only
// Placed set and the outcome never drawn.
func Play(ctx context.Context, engine Wagerer, game Game, userID, prediction string, amount int64) (*Round, error) {
	if err := game.ValidatePrediction(prediction); err != nil {
		return nil, err
	}

	placed, err := engine.PlaceBet(ctx, userID, amount, game.Type())
	if err != nil {
		return nil, err
	}
	round := &Round{Placed: placed}
	if !placed.Success {
		return round, nil
	}
	round.Wallet = placed.NewWallet

	outcome, err := game.Resolve(prediction)
	if err != nil {
		return nil, fmt.Errorf("error resolving %s after bet %s was placed: %w", game.Type(), placed.Bet.ID, err)
	}
	round.Outcome = outcome
	round.Bet = placed.Bet

	wallet, err := engine.Settle(ctx, placed.Bet, outcome.Won, outcome.Multiplier)
	if err != nil {
		return nil, err
	}
	round.Winnings = placed.Bet.Winnings
	round.Wallet = wallet
	return round, nil
}

// PlayForFun resolves a round with no bet. Nothing touches the ledger.
func PlayForFun(game Game, prediction string) (*Outcome, error) {
	if err := game.ValidatePrediction(prediction); err != nil {
		return nil, err
	}
	return game.Resolve(prediction)
}
