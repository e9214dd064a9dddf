package games

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/fadedpez/contrast/pkg/entities"
)

const (
	MinDiceSum = 2
	MaxDiceSum = 12
)

// DiceRoll predicts the exact sum of two six-sided dice
type DiceRoll struct {
	rng *lockedRand
}

// NewDiceRoll creates a dice game. A nil rng is seeded from the clock.
func NewDiceRoll(rng *rand.Rand) *DiceRoll {
	return &DiceRoll{rng: newLockedRand(rng)}
}

// SumMultiplier returns the payout for a correct prediction of sum.
// Rarer sums pay more.
func SumMultiplier(sum int) float64 {
	switch sum {
	case 2, 12:
		return 35
	case 3, 11:
		return 17
	case 4, 10:
		return 11
	case 5, 9:
		return 8
	case 6, 8:
		return 6
	case 7:
		return 5
	default:
		return 0
	}
}

func (d *DiceRoll) Type() entities.GameType {
	return entities.GameTypeDiceRoll
}

func (d *DiceRoll) ValidatePrediction(prediction string) error {
	_, err := parseSum(prediction)
	return err
}

func (d *DiceRoll) Resolve(prediction string) (*Outcome, error) {
	predicted, err := parseSum(prediction)
	if err != nil {
		return nil, err
	}

	die1 := d.rng.Intn(6) + 1
	die2 := d.rng.Intn(6) + 1
	sum := die1 + die2

	return &Outcome{
		Won:        sum == predicted,
		Multiplier: SumMultiplier(predicted),
		Result:     fmt.Sprintf("%d + %d = %d", die1, die2, sum),
		Values:     []int{die1, die2},
	}, nil
}

func parseSum(prediction string) (int, error) {
	sum, err := strconv.Atoi(normalize(prediction))
	if err != nil || sum < MinDiceSum || sum > MaxDiceSum {
		return 0, fmt.Errorf("%w: predict a sum between %d and %d, got %q",
			ErrInvalidPrediction, MinDiceSum, MaxDiceSum, prediction)
	}
	return sum, nil
}
