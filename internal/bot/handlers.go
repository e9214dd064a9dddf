package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fadedpez/contrast/internal/types"
	"github.com/fadedpez/contrast/pkg/entities"
	"github.com/fadedpez/contrast/pkg/games"
	"github.com/fadedpez/contrast/pkg/services/leaderboard"
)

const defaultHistoryLimit = 10

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

// Request is one command invocation. UserID is the invoking user.
type Request struct {
	UserID   string
	Username string
	Name     string
	Args     []string
}

// Response is what the bot says back. Code is set when the economy refused
// the operation.
type Response struct {
	Content string
	Code    types.ErrorCode
}

// Handle dispatches a command. Refusals by the economy come back as a
// Response; only malformed commands and unexpected failures are errors.
func (b *Bot) Handle(ctx context.Context, req Request) (*Response, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	cmd, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, req.Name)
	}
	if cmd.Admin && !b.admins[req.UserID] {
		b.logger.Warn("user %s denied admin command %s", req.UserID, cmd.Name)
		return &Response{Content: fmt.Sprintf("Only admins can use %s", cmd.Name), Code: types.ErrForbidden}, nil
	}

	if req.Username != "" {
		if _, err := b.balances.EnsureAccount(ctx, req.UserID, req.Username); err != nil {
			return b.refusal(err)
		}
	}

	var (
		resp *Response
		err  error
	)
	switch cmd.Name {
	case "balance":
		resp, err = b.handleBalance(ctx, req)
	case "transfer":
		resp, err = b.handleTransfer(ctx, req)
	case "leaderboard":
		resp, err = b.handleLeaderboard(ctx, req)
	case "history":
		resp, err = b.handleHistory(ctx, req)
	case "coinflip":
		resp, err = b.handleGame(ctx, req, entities.GameTypeCoinflip)
	case "dice":
		resp, err = b.handleGame(ctx, req, entities.GameTypeDiceRoll)
	case "grant", "take":
		resp, err = b.handleAdjust(ctx, req, cmd.Name == "grant")
	case "help":
		resp = b.handleHelp()
	}

	if errors.Is(err, ErrUsage) {
		return nil, fmt.Errorf("%w: %s", ErrUsage, cmd.Usage)
	}
	if err != nil {
		return b.refusal(err)
	}
	return resp, nil
}

// refusal converts an EconomyError into a Response
func (b *Bot) refusal(err error) (*Response, error) {
	var econErr *types.EconomyError
	if !types.As(err, &econErr) {
		return nil, err
	}
	if econErr.Code == types.ErrStoreUnavailable {
		b.logger.LogError(econErr)
	}
	return &Response{Content: econErr.Message, Code: econErr.Code}, nil
}

func (b *Bot) handleBalance(ctx context.Context, req Request) (*Response, error) {
	if len(req.Args) > 1 {
		return nil, ErrUsage
	}
	target := req.UserID
	if len(req.Args) == 1 {
		target = req.Args[0]
	}

	account, err := b.balances.EnsureAccount(ctx, target, "")
	if err != nil {
		return nil, err
	}
	name := account.Username
	if name == "" {
		name = account.UserID
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Balance for %s", name)
	fmt.Fprintf(&sb, "\nWallet: %s", b.formatAmount(account.Wallet))
	fmt.Fprintf(&sb, "\nSafe: %s / %s", b.formatAmount(account.Safe), b.formatAmount(account.SafeCapacity))
	fmt.Fprintf(&sb, "\nTotal earned: %s", b.formatAmount(account.TotalEarned))
	fmt.Fprintf(&sb, "\nTotal spent: %s", b.formatAmount(account.TotalSpent))
	fmt.Fprintf(&sb, "\nDaily streak: %d days", account.DailyStreak)
	fmt.Fprintf(&sb, "\nNet worth: %s", b.formatAmount(account.NetWorth()))
	fmt.Fprintf(&sb, "\nProfit/loss: %s", b.formatAmount(account.ProfitLoss()))
	return &Response{Content: sb.String()}, nil
}

func (b *Bot) handleTransfer(ctx context.Context, req Request) (*Response, error) {
	if len(req.Args) != 2 {
		return nil, ErrUsage
	}
	amount, err := parseAmount(req.Args[1])
	if err != nil {
		return nil, err
	}

	result, err := b.balances.TransferBalance(ctx, req.UserID, req.Args[0], amount)
	if err != nil {
		return nil, err
	}
	return &Response{Content: fmt.Sprintf("Sent %s to %s. Your wallet: %s",
		b.formatAmount(amount), req.Args[0], b.formatAmount(result.SenderBalance))}, nil
}

func (b *Bot) handleLeaderboard(ctx context.Context, req Request) (*Response, error) {
	if len(req.Args) > 2 {
		return nil, ErrUsage
	}
	metric := entities.MetricBalance
	if len(req.Args) > 0 {
		parsed, err := leaderboard.ParseMetric(req.Args[0])
		if err != nil {
			return nil, err
		}
		metric = parsed
	}
	limit := leaderboard.DefaultLimit
	if len(req.Args) > 1 {
		n, err := strconv.Atoi(req.Args[1])
		if err != nil {
			return nil, ErrUsage
		}
		limit = leaderboard.ClampLimit(n)
	}

	entries, err := b.leaderboard.GetLeaderboard(ctx, metric, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &Response{Content: "Nobody is on the leaderboard yet"}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Top %d by %s", len(entries), metric)
	for _, entry := range entries {
		name := entry.Username
		if name == "" {
			name = entry.UserID
		}
		fmt.Fprintf(&sb, "\n%d. %s: %s", entry.Rank, name, b.formatAmount(entry.Value))
	}
	return &Response{Content: sb.String()}, nil
}

func (b *Bot) handleHistory(ctx context.Context, req Request) (*Response, error) {
	if len(req.Args) > 1 {
		return nil, ErrUsage
	}
	limit := defaultHistoryLimit
	if len(req.Args) == 1 {
		n, err := strconv.Atoi(req.Args[0])
		if err != nil || n < 1 {
			return nil, ErrUsage
		}
		limit = n
	}

	entries, err := b.balances.GetHistory(ctx, req.UserID, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &Response{Content: "No transactions yet"}, nil
	}

	var sb strings.Builder
	for i, entry := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sign := "+"
		if !entry.Kind.IsCredit() {
			sign = "-"
		}
		fmt.Fprintf(&sb, "%s %s%s %s (%s), wallet %s",
			entry.Timestamp.UTC().Format("2006-01-02 15:04"),
			sign, b.formatAmount(entry.Amount), entry.Kind, entry.Reason,
			b.formatAmount(entry.BalanceAfter))
	}
	return &Response{Content: sb.String()}, nil
}

func (b *Bot) handleGame(ctx context.Context, req Request, gameType entities.GameType) (*Response, error) {
	if len(req.Args) < 1 || len(req.Args) > 2 {
		return nil, ErrUsage
	}
	game, err := b.games.GetGame(gameType)
	if err != nil {
		return nil, err
	}
	if len(req.Args) == 1 {
		return b.playForFun(game, req.Args[0])
	}
	amount, err := parseAmount(req.Args[1])
	if err != nil {
		return nil, err
	}

	round, err := games.Play(ctx, b.wagers, game, req.UserID, req.Args[0], amount)
	if errors.Is(err, games.ErrInvalidPrediction) {
		return &Response{Content: err.Error(), Code: types.ErrInvalidAmount}, nil
	}
	if err != nil {
		return nil, err
	}
	if !round.Placed.Success {
		return &Response{Content: round.Placed.Message, Code: round.Placed.Code}, nil
	}

	if round.Outcome.Won {
		return &Response{Content: fmt.Sprintf("%s! You won %s. Wallet: %s",
			round.Outcome.Result, b.formatAmount(round.Winnings), b.formatAmount(round.Wallet))}, nil
	}
	return &Response{Content: fmt.Sprintf("%s. You lost %s. Wallet: %s",
		round.Outcome.Result, b.formatAmount(amount), b.formatAmount(round.Wallet))}, nil
}

// playForFun plays a round with no bet
func (b *Bot) playForFun(game games.Game, prediction string) (*Response, error) {
	outcome, err := games.PlayForFun(game, prediction)
	if errors.Is(err, games.ErrInvalidPrediction) {
		return &Response{Content: err.Error(), Code: types.ErrInvalidAmount}, nil
	}
	if err != nil {
		return nil, err
	}
	if outcome.Won {
		return &Response{Content: fmt.Sprintf("%s! You called it. No coins were bet.", outcome.Result)}, nil
	}
	return &Response{Content: fmt.Sprintf("%s. Better luck next time. No coins were bet.", outcome.Result)}, nil
}

func (b *Bot) handleAdjust(ctx context.Context, req Request, grant bool) (*Response, error) {
	if len(req.Args) < 2 {
		return nil, ErrUsage
	}
	target := req.Args[0]
	amount, err := parseAmount(req.Args[1])
	if err != nil {
		return nil, err
	}
	reason := strings.Join(req.Args[2:], " ")

	if grant {
		if reason == "" {
			reason = "Granted by " + req.UserID
		}
		wallet, err := b.balances.AddBalance(ctx, target, amount, reason)
		if err != nil {
			return nil, err
		}
		return &Response{Content: fmt.Sprintf("Added %s to %s. Wallet: %s",
			b.formatAmount(amount), target, b.formatAmount(wallet))}, nil
	}

	if reason == "" {
		reason = "Removed by " + req.UserID
	}
	wallet, err := b.balances.RemoveBalance(ctx, target, amount, reason)
	if err != nil {
		return nil, err
	}
	return &Response{Content: fmt.Sprintf("Removed %s from %s. Wallet: %s",
		b.formatAmount(amount), target, b.formatAmount(wallet))}, nil
}

func (b *Bot) handleHelp() *Response {
	var sb strings.Builder
	sb.WriteString("Commands:")
	for _, cmd := range Commands {
		fmt.Fprintf(&sb, "\n  %-45s %s", cmd.Usage, cmd.Description)
	}
	return &Response{Content: sb.String()}
}

// parseAmount reads a whole number of coins. Sign is left to the services.
func parseAmount(value string) (int64, error) {
	amount, err := strconv.ParseInt(strings.ReplaceAll(value, ",", ""), 10, 64)
	if err != nil {
		return 0, types.NewEconomyError(types.ErrInvalidAmount, fmt.Sprintf("%q is not a whole number", value))
	}
	return amount, nil
}
