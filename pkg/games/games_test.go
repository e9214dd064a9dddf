package games

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strconv"
	"testing"

	"github.com/fadedpez/contrast/internal/logging"
	"github.com/fadedpez/contrast/internal/types"
	"github.com/fadedpez/contrast/pkg/entities"
	"github.com/fadedpez/contrast/pkg/repositories/ledger"
	"github.com/fadedpez/contrast/pkg/services/balance"
	"github.com/fadedpez/contrast/pkg/services/wager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestCoinflipResolve(t *testing.T) {
	game := NewCoinflip(rand.New(rand.NewSource(7)))
	seen := map[string]int{}

	for i := 0; i < 1000; i++ {
		outcome, err := game.Resolve("Heads")
		require.NoError(t, err)
		require.Contains(t, []string{Heads, Tails}, outcome.Result)
		assert.Equal(t, outcome.Result == Heads, outcome.Won)
		assert.Equal(t, CoinflipMultiplier, outcome.Multiplier)
		seen[outcome.Result]++
	}

	// Both sides come up with a fair coin
	assert.Greater(t, seen[Heads], 400)
	assert.Greater(t, seen[Tails], 400)
}

func TestCoinflipPrediction(t *testing.T) {
	game := NewCoinflip(nil)

	assert.NoError(t, game.ValidatePrediction("tails"))
	assert.NoError(t, game.ValidatePrediction(" HEADS "))
	assert.ErrorIs(t, game.ValidatePrediction("edge"), ErrInvalidPrediction)
	assert.ErrorIs(t, game.ValidatePrediction(""), ErrInvalidPrediction)

	_, err := game.Resolve("sideways")
	assert.ErrorIs(t, err, ErrInvalidPrediction)
}

func TestDiceRollResolve(t *testing.T) {
	game := NewDiceRoll(rand.New(rand.NewSource(11)))
	sums := map[int]int{}

	for i := 0; i < 2000; i++ {
		outcome, err := game.Resolve("7")
		require.NoError(t, err)
		require.Len(t, outcome.Values, 2)

		die1, die2 := outcome.Values[0], outcome.Values[1]
		require.True(t, die1 >= 1 && die1 <= 6)
		require.True(t, die2 >= 1 && die2 <= 6)
		assert.Equal(t, die1+die2 == 7, outcome.Won)
		assert.Equal(t, 5.0, outcome.Multiplier)
		sums[die1+die2]++
	}

	for sum := MinDiceSum; sum <= MaxDiceSum; sum++ {
		assert.Greater(t, sums[sum], 0, "sum %d never rolled", sum)
	}
	// 7 is the most likely sum
	assert.Greater(t, sums[7], sums[2])
	assert.Greater(t, sums[7], sums[12])
}

func TestDiceRollPrediction(t *testing.T) {
	game := NewDiceRoll(nil)

	for sum := MinDiceSum; sum <= MaxDiceSum; sum++ {
		assert.NoError(t, game.ValidatePrediction(strconv.Itoa(sum)))
	}
	for _, bad := range []string{"1", "13", "0", "-2", "seven", ""} {
		assert.ErrorIs(t, game.ValidatePrediction(bad), ErrInvalidPrediction, bad)
	}
}

func TestSumMultiplier(t *testing.T) {
	expected := map[int]float64{
		2: 35, 3: 17, 4: 11, 5: 8, 6: 6, 7: 5,
		8: 6, 9: 8, 10: 11, 11: 17, 12: 35,
	}
	for sum, multiplier := range expected {
		assert.Equal(t, multiplier, SumMultiplier(sum), "sum %d", sum)
	}
	assert.Equal(t, 0.0, SumMultiplier(13))
}

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry(NewCoinflip(nil), NewDiceRoll(nil))
	require.NoError(t, err)

	assert.Equal(t, []entities.GameType{entities.GameTypeCoinflip, entities.GameTypeDiceRoll}, registry.ListGames())

	game, err := registry.GetGame(entities.GameTypeDiceRoll)
	require.NoError(t, err)
	assert.Equal(t, entities.GameTypeDiceRoll, game.Type())

	_, err = registry.GetGame("slots")
	assert.True(t, types.IsEconomyError(err, types.ErrUnknownGame))

	assert.Error(t, registry.RegisterGame(NewCoinflip(nil)), "duplicate registration should fail")

	_, err = NewRegistry(NewDiceRoll(nil), NewDiceRoll(nil))
	assert.Error(t, err)
}

// fixedGame always produces the same outcome
type fixedGame struct {
	won        bool
	multiplier float64
	resolved   int
}

func (g *fixedGame) Type() entities.GameType { return entities.GameTypeDiceRoll }

func (g *fixedGame) ValidatePrediction(prediction string) error {
	if prediction == "bad" {
		return ErrInvalidPrediction
	}
	return nil
}

func (g *fixedGame) Resolve(prediction string) (*Outcome, error) {
	g.resolved++
	return &Outcome{Won: g.won, Multiplier: g.multiplier, Result: "fixed"}, nil
}

type PlayTestSuite struct {
	suite.Suite
	ctx      context.Context
	balances *balance.Service
	engine   *wager.Engine
}

func TestPlaySuite(t *testing.T) {
	suite.Run(t, new(PlayTestSuite))
}

func (s *PlayTestSuite) SetupTest() {
	logger := logging.New(io.Discard, logging.ERROR, false)
	s.ctx = context.Background()
	s.balances = balance.NewService(ledger.NewMemoryRepository(), balance.Rules{}, balance.WithLogger(logger))
	s.engine = wager.NewEngine(s.balances, wager.WithLogger(logger))

	_, err := s.balances.AddBalance(s.ctx, "u1", 1000, "seed")
	s.Require().NoError(err)
}

func (s *PlayTestSuite) TestWinningRoundPaysOut() {
	game := &fixedGame{won: true, multiplier: 17}

	round, err := Play(s.ctx, s.engine, game, "u1", "3", 10)
	s.Require().NoError(err)
	s.True(round.Placed.Success)
	s.True(round.Outcome.Won)
	s.Equal(int64(170), round.Winnings)
	s.Equal(int64(1000-10+170), round.Wallet)
	s.Equal(entities.WagerStatePaidOut, round.Bet.State)
}

func (s *PlayTestSuite) TestLosingRoundKeepsDebit() {
	game := &fixedGame{won: false, multiplier: 17}

	round, err := Play(s.ctx, s.engine, game, "u1", "3", 10)
	s.Require().NoError(err)
	s.False(round.Outcome.Won)
	s.Equal(int64(0), round.Winnings)
	s.Equal(int64(990), round.Wallet)
	s.Equal(entities.WagerStateSettled, round.Bet.State)
}

func (s *PlayTestSuite) TestRejectedBetDoesNotResolve() {
	game := &fixedGame{won: true, multiplier: 2}

	round, err := Play(s.ctx, s.engine, game, "u1", "3", 5000)
	s.Require().NoError(err)
	s.False(round.Placed.Success)
	s.Equal(types.ErrInsufficientFunds, round.Placed.Code)
	s.Nil(round.Outcome)
	s.Equal(0, game.resolved)
}

func (s *PlayTestSuite) TestInvalidPredictionMovesNoMoney() {
	game := &fixedGame{won: true, multiplier: 2}

	_, err := Play(s.ctx, s.engine, game, "u1", "bad", 10)
	s.True(errors.Is(err, ErrInvalidPrediction))

	holdings, err := s.balances.GetBalance(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(int64(1000), holdings.Wallet)
}

func (s *PlayTestSuite) TestPlayForFunMovesNoMoney() {
	game := &fixedGame{won: true, multiplier: 2}

	outcome, err := PlayForFun(game, "3")
	s.Require().NoError(err)
	s.True(outcome.Won)
	s.Equal(1, game.resolved)

	_, err = PlayForFun(game, "bad")
	s.True(errors.Is(err, ErrInvalidPrediction))
	s.Equal(1, game.resolved)

	history, err := s.balances.GetHistory(s.ctx, "u1", 0)
	s.Require().NoError(err)
	s.Len(history, 1, "only the seed credit")
}

func (s *PlayTestSuite) TestRealGamesConserveCurrency() {
	registry, err := NewRegistry(NewCoinflip(rand.New(rand.NewSource(3))), NewDiceRoll(rand.New(rand.NewSource(5))))
	s.Require().NoError(err)

	coinflip, err := registry.GetGame(entities.GameTypeCoinflip)
	s.Require().NoError(err)

	expected := int64(1000)
	for i := 0; i < 50; i++ {
		round, err := Play(s.ctx, s.engine, coinflip, "u1", Heads, 10)
		s.Require().NoError(err)
		if !round.Placed.Success {
			break
		}
		expected = expected - 10 + round.Winnings
		if round.Outcome.Won {
			s.Equal(int64(20), round.Winnings)
		}
		s.Equal(expected, round.Wallet)
	}
}
