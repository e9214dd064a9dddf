package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fadedpez/contrast/internal/logging"
	"github.com/fadedpez/contrast/internal/types"
	"github.com/fadedpez/contrast/pkg/entities"
)

const (
	DefaultLimit = 10
	MaxLimit     = 20

	defaultStoreTimeout = 5 * time.Second
)

// AccountLister is the read side of the ledger the leaderboard needs
type AccountLister interface {
	ListUsers(ctx context.Context) ([]*entities.UserAccount, error)
}

// Service ranks accounts by a selectable metric
type Service struct {
	accounts     AccountLister
	logger       *logging.Logger
	storeTimeout time.Duration
}

// NewService creates a new leaderboard service
func NewService(accounts AccountLister, logger *logging.Logger, storeTimeout time.Duration) *Service {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &Service{
		accounts:     accounts,
		logger:       logging.OrDefault(logger).With("leaderboard"),
		storeTimeout: storeTimeout,
	}
}

// ParseMetric maps a user-supplied metric name to a LeaderboardMetric
func ParseMetric(value string) (entities.LeaderboardMetric, error) {
	metric := entities.LeaderboardMetric(strings.ToLower(strings.TrimSpace(value)))
	if !metric.Valid() {
		return "", types.NewEconomyError(types.ErrInvalidMetric,
			fmt.Sprintf("Unknown leaderboard type %q, expected balance, earned or spent", value))
	}
	return metric, nil
}

// ClampLimit applies the command-level default and bounds to a requested limit
func ClampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// GetLeaderboard returns up to limit accounts sorted by metric, descending.
// Ties keep account creation order.
func (s *Service) GetLeaderboard(ctx context.Context, metric entities.LeaderboardMetric, limit int) ([]entities.LeaderboardEntry, error) {
	if !metric.Valid() {
		return nil, types.NewEconomyError(types.ErrInvalidMetric,
			fmt.Sprintf("Unknown leaderboard type %q, expected balance, earned or spent", metric))
	}
	if limit <= 0 {
		return []entities.LeaderboardEntry{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	accounts, err := s.accounts.ListUsers(ctx)
	if err != nil {
		wrapped := types.WrapError(types.ErrStoreUnavailable, "The ledger is unavailable, please try again later", err)
		s.logger.LogError(wrapped)
		return nil, wrapped
	}

	// accounts arrive in creation order, so a stable sort breaks ties by it
	sort.SliceStable(accounts, func(i, j int) bool {
		return metric.ValueOf(accounts[i]) > metric.ValueOf(accounts[j])
	})

	if limit > len(accounts) {
		limit = len(accounts)
	}

	entries := make([]entities.LeaderboardEntry, 0, limit)
	for i, account := range accounts[:limit] {
		entries = append(entries, entities.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   account.UserID,
			Username: account.Username,
			Value:    metric.ValueOf(account),
		})
	}
	return entries, nil
}
