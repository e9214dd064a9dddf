package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/fadedpez/contrast/internal/logging"
	"github.com/fadedpez/contrast/pkg/entities"
	"github.com/fadedpez/contrast/pkg/games"
	"github.com/fadedpez/contrast/pkg/services/balance"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Ranker produces leaderboards
type Ranker interface {
	GetLeaderboard(ctx context.Context, metric entities.LeaderboardMetric, limit int) ([]entities.LeaderboardEntry, error)
}

// Maintenance runs background housekeeping while the bot is up
type Maintenance interface {
	Start(ctx context.Context)
	Stop()
}

// Deps are the services the bot dispatches to
type Deps struct {
	Balances       balance.BalanceService
	Wagers         games.Wagerer
	Leaderboard    Ranker
	Games          *games.Registry
	Maintenance    Maintenance // optional
	Admins         []string    // user IDs allowed to run admin commands
	CurrencySymbol string
	Logger         *logging.Logger
}

// Bot turns text commands into economy operations
type Bot struct {
	balances       balance.BalanceService
	wagers         games.Wagerer
	leaderboard    Ranker
	games          *games.Registry
	maintenance    Maintenance
	admins         map[string]bool
	currencySymbol string
	logger         *logging.Logger
	printer        *message.Printer
	started        bool
	mu             sync.Mutex
}

// New creates a new instance of Bot
func New(deps Deps) (*Bot, error) {
	if deps.Balances == nil || deps.Wagers == nil || deps.Leaderboard == nil || deps.Games == nil {
		return nil, errors.New("bot requires balances, wagers, leaderboard and games")
	}
	symbol := deps.CurrencySymbol
	if symbol == "" {
		symbol = "coins"
	}
	admins := make(map[string]bool, len(deps.Admins))
	for _, id := range deps.Admins {
		if id != "" {
			admins[id] = true
		}
	}
	return &Bot{
		balances:       deps.Balances,
		wagers:         deps.Wagers,
		leaderboard:    deps.Leaderboard,
		games:          deps.Games,
		maintenance:    deps.Maintenance,
		admins:         admins,
		currencySymbol: symbol,
		logger:         logging.OrDefault(deps.Logger).With("bot"),
		printer:        message.NewPrinter(language.English),
	}, nil
}

// Start starts background maintenance, if any
func (b *Bot) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return
	}
	b.started = true
	if b.maintenance != nil {
		b.maintenance.Start(ctx)
	}
	b.logger.Info("bot started")
}

// Shutdown stops background maintenance
func (b *Bot) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}
	b.started = false
	if b.maintenance != nil {
		b.maintenance.Stop()
	}
	b.logger.Info("bot stopped")
}

func (b *Bot) formatAmount(amount int64) string {
	return b.printer.Sprintf("%d %s", amount, b.currencySymbol)
}
