package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fadedpez/contrast/internal/config"
	"github.com/fadedpez/contrast/internal/logging"
)

func main() {
	// Show usage if no arguments provided
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	if os.Args[1] == "help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting: %v\n", err)
		os.Exit(1)
	}

	code := run(ctx, a, os.Args[1], os.Args[2:])
	a.Close()
	os.Exit(code)
}

func run(ctx context.Context, a *app, name string, args []string) int {
	if name == "maintain" {
		if a.maintenance == nil {
			fmt.Fprintln(os.Stderr, "Error: maintenance needs a reachable ELASTICSEARCH_URL")
			return 1
		}
		a.bot.Start(ctx)
		fmt.Println("Running audit maintenance. Press Ctrl+C to exit")
		<-ctx.Done()
		a.bot.Shutdown()
		return 0
	}

	req, err := buildRequest(name, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		return 1
	}

	resp, err := a.bot.Handle(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println(resp.Content)
	if resp.Code != "" {
		return 2
	}
	return 0
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  economy balance <user>                      - Show a user's holdings and totals")
	fmt.Println("  economy grant <user> <amount> [reason]      - Add coins to a user")
	fmt.Println("  economy take <user> <amount> [reason]       - Remove coins from a user")
	fmt.Println("  economy transfer <from> <to> <amount>       - Move coins between users")
	fmt.Println("  economy leaderboard [metric] [limit]        - Rank users by balance, earned or spent")
	fmt.Println("  economy history <user> [limit]              - Show recent transactions")
	fmt.Println("  economy coinflip <user> <heads|tails> [bet] - Play a coin flip for a user")
	fmt.Println("  economy dice <user> <2-12> [bet]            - Play a dice roll for a user")
	fmt.Println("  economy maintain                            - Rotate and prune audit indices until interrupted")
	fmt.Println("  economy help                                - Show this help")
	fmt.Println("\nExamples:")
	fmt.Println("  economy grant 1234 500 \"welcome bonus\"")
	fmt.Println("  economy leaderboard earned 5")
}
