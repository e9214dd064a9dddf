package main

import (
	"fmt"

	"github.com/fadedpez/contrast/internal/bot"
)

const operatorID = "operator"

// buildRequest maps an operator command line onto a bot request. Commands
// that act for a user take that user as their first argument.
func buildRequest(name string, args []string) (bot.Request, error) {
	switch name {
	case "grant", "take", "leaderboard", "help":
		return bot.Request{UserID: operatorID, Name: name, Args: args}, nil
	case "balance", "transfer", "history", "coinflip", "dice":
		if len(args) < 1 {
			return bot.Request{}, fmt.Errorf("%s needs a user", name)
		}
		return bot.Request{UserID: args[0], Name: name, Args: args[1:]}, nil
	default:
		return bot.Request{}, fmt.Errorf("unknown command '%s'", name)
	}
}
