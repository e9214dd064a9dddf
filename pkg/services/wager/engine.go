package wager

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fadedpez/contrast/internal/logging"
	"github.com/fadedpez/contrast/internal/types"
	"github.com/fadedpez/contrast/pkg/entities"
	"github.com/fadedpez/contrast/pkg/services/balance"
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ActionBet is the limiter action name for bet placement
const ActionBet = "bet"

var (
	ErrInvalidTransition = errors.New("invalid wager state transition")
	ErrAlreadySettled    = fmt.Errorf("%w: wager already settled", ErrInvalidTransition)
)

// Limits bounds the size of a single bet
type Limits struct {
	Min int64
	Max int64
}

// DefaultLimits returns the per-game bet limits
func DefaultLimits() map[entities.GameType]Limits {
	return map[entities.GameType]Limits{
		entities.GameTypeCoinflip: {Min: 1, Max: 1000000},
		entities.GameTypeDiceRoll: {Min: 1, Max: 100000},
	}
}

// BetResult is the outcome of PlaceBet. Rejections carry a code and a
// display message; they are not Go errors.
type BetResult struct {
	Success   bool
	Message   string
	Code      types.ErrorCode
	Bet       *entities.Bet
	NewWallet int64
}

// Engine moves currency for wagers. It does not decide outcomes.
type Engine struct {
	balances       balance.BalanceService
	limits         map[entities.GameType]Limits
	limiter        Limiter
	logger         *logging.Logger
	currencySymbol string
	printer        *message.Printer
	now            func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLimits registers or replaces the limits for a game
func WithLimits(gameType entities.GameType, limits Limits) Option {
	return func(e *Engine) {
		e.limits[gameType] = limits
	}
}

// WithLimiter throttles bet placement
func WithLimiter(limiter Limiter) Option {
	return func(e *Engine) {
		e.limiter = limiter
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.OrDefault(logger).With("wager")
	}
}

// WithCurrencySymbol sets the symbol used in rejection messages
func WithCurrencySymbol(symbol string) Option {
	return func(e *Engine) {
		if symbol != "" {
			e.currencySymbol = symbol
		}
	}
}

// NewEngine creates a wager engine over the balance service
func NewEngine(balances balance.BalanceService, opts ...Option) *Engine {
	e := &Engine{
		balances:       balances,
		limits:         DefaultLimits(),
		logger:         logging.Default.With("wager"),
		currencySymbol: "coins",
		printer:        message.NewPrinter(language.English),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limits returns the limits registered for a game
func (e *Engine) Limits(gameType entities.GameType) (Limits, bool) {
	limits, ok := e.limits[gameType]
	return limits, ok
}

// PlaceBet validates the bet and debits it immediately. On any rejection
// the wallet is untouched.
func (e *Engine) PlaceBet(ctx context.Context, userID string, amount int64, gameType entities.GameType) (*BetResult, error) {
	limits, ok := e.limits[gameType]
	if !ok {
		return rejected(types.ErrUnknownGame, fmt.Sprintf("Unknown game: %s", gameType)), nil
	}
	if amount <= 0 {
		return rejected(types.ErrInvalidAmount, "Bet amount must be positive"), nil
	}
	if amount < limits.Min || amount > limits.Max {
		return rejected(types.ErrBetOutOfRange, fmt.Sprintf("Bet must be between %s and %s",
			e.formatAmount(limits.Min), e.formatAmount(limits.Max))), nil
	}

	if e.limiter != nil {
		allowed, err := e.limiter.Allow(ctx, userID, ActionBet)
		switch {
		case err != nil:
			e.logger.Warn("rate limiter unavailable for user %s, allowing bet: %v", userID, err)
		case !allowed:
			return rejected(types.ErrRateLimited, "You're betting too fast. Please wait a moment and try again"), nil
		}
	}

	bet := &entities.Bet{
		ID:       uuid.New().String(),
		UserID:   userID,
		GameType: gameType,
		Amount:   amount,
		PlacedAt: e.now(),
		State:    entities.WagerStateProposed,
	}

	wallet, err := e.balances.Debit(ctx, userID, amount, entities.TransactionKindBet, fmt.Sprintf("%s bet", gameType))
	if err != nil {
		var econErr *types.EconomyError
		if types.As(err, &econErr) && econErr.Code != types.ErrStoreUnavailable {
			return rejected(econErr.Code, econErr.Message), nil
		}
		return nil, err
	}

	bet.State = entities.WagerStateFundsReserved
	e.logger.Debug("bet %s placed: user %s staked %d on %s", bet.ID, userID, amount, gameType)
	return &BetResult{
		Success:   true,
		Message:   fmt.Sprintf("Bet of %s placed", e.formatAmount(amount)),
		Bet:       bet,
		NewWallet: wallet,
	}, nil
}

// ProcessWin credits winnings for a bet the caller has decided was won.
// Zero winnings change nothing and return the current wallet.
func (e *Engine) ProcessWin(ctx context.Context, userID string, originalBet, winnings int64, gameType entities.GameType) (int64, error) {
	if winnings < 0 {
		return 0, types.NewEconomyError(types.ErrInvalidAmount, "Winnings cannot be negative")
	}
	if winnings == 0 {
		holdings, err := e.balances.GetBalance(ctx, userID)
		if err != nil {
			return 0, err
		}
		return holdings.Wallet, nil
	}

	reason := fmt.Sprintf("%s payout (bet %d)", gameType, originalBet)
	wallet, err := e.balances.Credit(ctx, userID, winnings, entities.TransactionKindPayout, reason)
	if err != nil {
		e.logger.LogError(err)
		return 0, err
	}

	e.logger.Debug("paid %d to user %s for %s bet of %d", winnings, userID, gameType, originalBet)
	return wallet, nil
}

// Settle resolves a reserved bet. A win pays floor(amount * multiplier)
// and ends in PaidOut; a loss ends in Settled with no ledger write. If the
// ledger call fails the bet stays Won or Lost and Settle may be called
// again with the same decision.
func (e *Engine) Settle(ctx context.Context, bet *entities.Bet, won bool, multiplier float64) (int64, error) {
	if bet == nil {
		return 0, ErrInvalidTransition
	}
	if bet.State.IsTerminal() {
		return 0, ErrAlreadySettled
	}
	switch {
	case bet.State == entities.WagerStateFundsReserved:
	case bet.State == entities.WagerStateWon && won, bet.State == entities.WagerStateLost && !won:
	default:
		return 0, ErrInvalidTransition
	}

	if !won {
		bet.State = entities.WagerStateLost
		holdings, err := e.balances.GetBalance(ctx, bet.UserID)
		if err != nil {
			return 0, err
		}
		bet.State = entities.WagerStateSettled
		return holdings.Wallet, nil
	}

	if multiplier < 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return 0, types.NewEconomyError(types.ErrInvalidAmount, "Payout multiplier must be a finite non-negative number")
	}

	bet.State = entities.WagerStateWon
	winnings := Payout(bet.Amount, multiplier)
	wallet, err := e.ProcessWin(ctx, bet.UserID, bet.Amount, winnings, bet.GameType)
	if err != nil {
		return 0, err
	}
	bet.Winnings = winnings
	bet.State = entities.WagerStatePaidOut
	return wallet, nil
}

// Payout returns floor(amount * multiplier)
func Payout(amount int64, multiplier float64) int64 {
	return int64(math.Floor(float64(amount) * multiplier))
}

func (e *Engine) formatAmount(amount int64) string {
	return e.printer.Sprintf("%d %s", amount, e.currencySymbol)
}

func rejected(code types.ErrorCode, msg string) *BetResult {
	return &BetResult{
		Success: false,
		Message: msg,
		Code:    code,
	}
}
