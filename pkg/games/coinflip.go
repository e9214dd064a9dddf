package games

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/fadedpez/contrast/pkg/entities"
)

const (
	Heads = "heads"
	Tails = "tails"

	// CoinflipMultiplier is paid on a correct call
	CoinflipMultiplier = 2.0
)

// Coinflip is a 50/50 heads or tails call
type Coinflip struct {
	rng *lockedRand
}

// NewCoinflip creates a coinflip game. A nil rng is seeded from the clock.
func NewCoinflip(rng *rand.Rand) *Coinflip {
	return &Coinflip{rng: newLockedRand(rng)}
}

func (c *Coinflip) Type() entities.GameType {
	return entities.GameTypeCoinflip
}

func (c *Coinflip) ValidatePrediction(prediction string) error {
	switch normalize(prediction) {
	case Heads, Tails:
		return nil
	}
	return fmt.Errorf("%w: choose heads or tails, got %q", ErrInvalidPrediction, prediction)
}

func (c *Coinflip) Resolve(prediction string) (*Outcome, error) {
	if err := c.ValidatePrediction(prediction); err != nil {
		return nil, err
	}

	result := Tails
	value := c.rng.Intn(2)
	if value == 0 {
		result = Heads
	}

	return &Outcome{
		Won:        normalize(prediction) == result,
		Multiplier: CoinflipMultiplier,
		Result:     result,
		Values:     []int{value},
	}, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
