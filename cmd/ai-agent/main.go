package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aman-zulfiqar/solana-treasury/internal/ai"
	"github.com/aman-zulfiqar/solana-treasury/internal/config"
	"github.com/aman-zulfiqar/solana-treasury/internal/constants"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var examples = []string{
	"How many swaps failed in the last 24 hours, by router?",
	"What is the total deposited amount per depositor?",
	"Which router returned more destination tokens per source token today?",
}

func main() {
	queryFlag := flag.String("q", "", "Run a single natural language query and exit")
	modelFlag := flag.String("model", "", "OpenRouter model name (defaults to AI_MODEL)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using environment")
	}

	// The assistant only reads the journal, so the ledger settings are not
	// validated here.
	cfg := config.Load()
	if cfg.OpenRouterAPIKey == "" {
		logger.Fatal("OPENROUTER_API_KEY is required for the AI agent")
	}
	model := cfg.AIModel
	if *modelFlag != "" {
		model = *modelFlag
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down")
		cancel()
	}()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              model,
		Ledger:             ledgerContext(cfg),
		Logger:             logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create AI agent")
	}
	defer agent.Close()

	if *queryFlag != "" {
		if err := ask(ctx, agent, *queryFlag); err != nil {
			logger.WithError(err).Fatal("query failed")
		}
		return
	}
	repl(ctx, agent)
}

// ledgerContext names the pair from the ledger settings, falling back to
// the known token table.
func ledgerContext(cfg *config.Config) ai.LedgerContext {
	symbol := func(explicit, mint string) string {
		if explicit != "" {
			return explicit
		}
		return constants.KnownTokens[mint].Symbol
	}
	return ai.LedgerContext{
		Source:  symbol(cfg.SourceSymbol, cfg.SourceMint),
		Dest:    symbol(cfg.DestSymbol, cfg.DestMint),
		Routers: []string{"orca-pools", "orca-legacy", "rfq"},
	}
}

func ask(ctx context.Context, agent *ai.Agent, q string) error {
	res, err := agent.Ask(ctx, q)
	if err != nil {
		return err
	}
	fmt.Printf("SQL:\n%s\n\nAnswer:\n%s\n", res.SQL, res.Answer)
	if res.Truncated {
		fmt.Printf("(answer based on the first %d rows)\n", res.Rows)
	}
	fmt.Println()
	return nil
}

func repl(ctx context.Context, agent *ai.Agent) {
	fmt.Println("Treasury history assistant (NL -> ClickHouse SQL over ledger_events)")
	fmt.Println("Examples:")
	for _, e := range examples {
		fmt.Println("  -", e)
	}
	fmt.Println("Empty line to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			fmt.Println("bye")
			return
		}
		if ctx.Err() != nil {
			return
		}
		if err := ask(ctx, agent, q); err != nil {
			fmt.Println("error:", err)
		}
	}
}
