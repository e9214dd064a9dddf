package games

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/fadedpez/contrast/pkg/entities"
)

var ErrInvalidPrediction = errors.New("invalid prediction")

// Outcome is the result of one round
type Outcome struct {
	Won        bool
	Multiplier float64 // Payout multiplier applied to the bet on a win
	Result     string  // Display form of what was rolled or flipped
	Values     []int   // Raw draws, e.g. each die
}

// Game decides outcomes. It never touches balances.
type Game interface {
	Type() entities.GameType

	// ValidatePrediction checks a prediction before any money moves
	ValidatePrediction(prediction string) error

	// Resolve draws an outcome for prediction
	Resolve(prediction string) (*Outcome, error)
}

// lockedRand serializes access to a *rand.Rand
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(rng *rand.Rand) *lockedRand {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &lockedRand{rng: rng}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}
