package bot

// Command describes one text command
type Command struct {
	Name        string
	Usage       string
	Description string
	Admin       bool // Moves currency without a counterparty
}

// Commands defines all commands the bot answers
var Commands = []Command{
	{Name: "balance", Usage: "balance [user]", Description: "Show wallet, safe and lifetime totals"},
	{Name: "transfer", Usage: "transfer <user> <amount>", Description: "Send coins to another user"},
	{Name: "leaderboard", Usage: "leaderboard [balance|earned|spent] [limit]", Description: "Show the richest users"},
	{Name: "history", Usage: "history [limit]", Description: "Show your recent transactions"},
	{Name: "coinflip", Usage: "coinflip <heads|tails> [bet]", Description: "Flip a coin, a bet pays 2x"},
	{Name: "dice", Usage: "dice <2-12> [bet]", Description: "Call the sum of two dice"},
	{Name: "grant", Usage: "grant <user> <amount> [reason]", Description: "Add coins to a user", Admin: true},
	{Name: "take", Usage: "take <user> <amount> [reason]", Description: "Remove coins from a user", Admin: true},
	{Name: "help", Usage: "help", Description: "List commands"},
}

// Lookup finds a command by name
func Lookup(name string) (Command, bool) {
	for _, cmd := range Commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return Command{}, false
}
