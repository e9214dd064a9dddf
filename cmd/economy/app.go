package main

import (
	"context"
	"fmt"

	"github.com/fadedpez/contrast/internal/bot"
	"github.com/fadedpez/contrast/internal/config"
	"github.com/fadedpez/contrast/internal/logging"
	"github.com/fadedpez/contrast/pkg/games"
	"github.com/fadedpez/contrast/pkg/ratelimit"
	"github.com/fadedpez/contrast/pkg/repositories/audit"
	"github.com/fadedpez/contrast/pkg/repositories/ledger"
	"github.com/fadedpez/contrast/pkg/scheduler"
	"github.com/fadedpez/contrast/pkg/services/balance"
	"github.com/fadedpez/contrast/pkg/services/leaderboard"
	"github.com/fadedpez/contrast/pkg/services/wager"
)

// app holds everything main wires together
type app struct {
	ledger      ledger.Repository
	archive     *audit.ElasticsearchArchive
	limiter     *ratelimit.RedisLimiter
	maintenance *scheduler.AuditMaintenanceScheduler
	bot         *bot.Bot
	logger      *logging.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	a := &app{logger: logger}

	// Initialize repository
	switch cfg.Storage.Driver {
	case "sqlite":
		logger.Info("initializing SQLite ledger at %s", cfg.Storage.DBPath)
		repo, err := ledger.NewSQLiteRepository(ctx, cfg.Storage.DBPath, ledger.WithSafeCapacity(cfg.Economy.DefaultSafeCapacity))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite ledger: %w", err)
		}
		a.ledger = repo
	default:
		logger.Warn("using in-memory ledger (data will be lost on exit)")
		a.ledger = ledger.NewMemoryRepository(ledger.WithSafeCapacity(cfg.Economy.DefaultSafeCapacity))
	}

	balanceOpts := []balance.Option{
		balance.WithLogger(logger),
		balance.WithStoreTimeout(cfg.Storage.StoreTimeout),
	}
	if cfg.Audit.URL != "" {
		archive, err := audit.NewElasticsearchArchive(ctx, audit.ConfigFromAudit(cfg.Audit), logger)
		if err != nil {
			logger.Warn("audit archive disabled: %v", err)
		} else {
			a.archive = archive
			a.maintenance = scheduler.NewAuditMaintenanceScheduler(archive, cfg.Audit.Rotation, 0, logger)
			balanceOpts = append(balanceOpts, balance.WithAuditSink(archive))
		}
	}
	balances := balance.NewService(a.ledger, balance.RulesFromConfig(cfg.Economy), balanceOpts...)

	wagerOpts := []wager.Option{
		wager.WithLogger(logger),
		wager.WithCurrencySymbol(cfg.Economy.CurrencySymbol),
	}
	if cfg.RateLimit.RedisAddr != "" {
		limiter, err := ratelimit.NewRedisLimiter(ctx, cfg.RateLimit)
		if err != nil {
			logger.Warn("bet rate limiting disabled: %v", err)
		} else {
			a.limiter = limiter
			wagerOpts = append(wagerOpts, wager.WithLimiter(limiter))
		}
	}
	engine := wager.NewEngine(balances, wagerOpts...)

	registry, err := games.NewRegistry(games.NewCoinflip(nil), games.NewDiceRoll(nil))
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := bot.Deps{
		Balances:       balances,
		Wagers:         engine,
		Leaderboard:    leaderboard.NewService(a.ledger, logger, cfg.Storage.StoreTimeout),
		Games:          registry,
		Admins:         append([]string{operatorID}, cfg.Economy.Admins...),
		CurrencySymbol: cfg.Economy.CurrencySymbol,
		Logger:         logger,
	}
	if a.maintenance != nil {
		deps.Maintenance = a.maintenance
	}
	a.bot, err = bot.New(deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the ledger and any optional backends
func (a *app) Close() {
	if a.limiter != nil {
		if err := a.limiter.Close(); err != nil {
			a.logger.Warn("error closing rate limiter: %v", err)
		}
	}
	if a.archive != nil {
		a.archive.Close()
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.Warn("error closing ledger: %v", err)
		}
	}
}
