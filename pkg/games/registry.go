package games

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fadedpez/contrast/internal/types"
	"github.com/fadedpez/contrast/pkg/entities"
)

// Registry maps game types to their implementations
type Registry struct {
	games map[entities.GameType]Game
	mu    sync.RWMutex
}

// NewRegistry creates a registry holding the given games
func NewRegistry(games ...Game) (*Registry, error) {
	r := &Registry{
		games: make(map[entities.GameType]Game),
	}
	for _, game := range games {
		if err := r.RegisterGame(game); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegisterGame adds a game to the registry
func (r *Registry) RegisterGame(game Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[game.Type()]; exists {
		return fmt.Errorf("game %s is already registered", game.Type())
	}

	r.games[game.Type()] = game
	return nil
}

// GetGame returns the game registered for gameType
func (r *Registry) GetGame(gameType entities.GameType) (Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	game, exists := r.games[gameType]
	if !exists {
		return nil, types.NewEconomyError(types.ErrUnknownGame, fmt.Sprintf("Unknown game: %s", gameType))
	}
	return game, nil
}

// ListGames returns the registered game types in name order
func (r *Registry) ListGames() []entities.GameType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]entities.GameType, 0, len(r.games))
	for gameType := range r.games {
		list = append(list, gameType)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}
