package wager

import (
	"context"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_wager

// Limiter throttles how often a user may perform an action
type Limiter interface {
	Allow(ctx context.Context, userID, action string) (bool, error)
}
