// Command treasury runs the in-process demo and drives a running treasury
// API with signed requests.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/flags"
	"github.com/aman-zulfiqar/solana-treasury/internal/server"
	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const usage = `usage: treasury <command> [flags]

commands:
  demo       deposit, swap on both routers and withdraw on an in-memory ledger
  keygen     print a fresh keypair
  state      show ledger balances
  quote      price a swap (-router, -amount)
  fund       sandbox: mint and approve source tokens for the signing key (-amount)
  deposit    deposit source tokens (-amount)
  swap       swap source to destination (-router, -amount, -slippage-bps, -min-out)
  withdraw   send the destination balance to the owner
  pause      owner: pause or resume an operation (-op, -off)

common flags: -api (TREASURY_API), -key (TREASURY_KEY), -api-key (API_KEY)`

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "demo":
		err = runDemo(ctx, logger, args)
	case "keygen":
		err = runKeygen()
	case "state", "quote", "fund", "deposit", "swap", "withdraw", "pause":
		err = runRemote(ctx, cmd, args)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.WithError(err).Fatalf("%s failed", cmd)
	}
}

func runRemote(ctx context.Context, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	apiURL := fs.String("api", envOr("TREASURY_API", "http://localhost:8090"), "treasury API base URL")
	key := fs.String("key", os.Getenv("TREASURY_KEY"), "private key that signs requests: base58, JSON byte array or keypair file")
	apiKey := fs.String("api-key", os.Getenv("API_KEY"), "API key header value")
	amount := fs.String("amount", "", "amount in whole source units")
	routerSel := fs.String("router", "a", "router: a or b")
	slippage := fs.Uint("slippage-bps", 0, "slippage tolerance in bps (0 uses the server default)")
	minOut := fs.Uint64("min-out", 0, "minimum output in raw destination units (0 derives it from a quote)")
	op := fs.String("op", string(treasury.OpSwap), "operation to pause: deposit or swap")
	off := fs.Bool("off", false, "resume instead of pause")
	timeout := fs.Duration("timeout", 90*time.Second, "request timeout")
	_ = fs.Parse(args)

	c, err := newAPIClient(*apiURL, *apiKey, *key, *timeout)
	if err != nil {
		return err
	}

	needAmount := func() (decimal.Decimal, error) {
		if *amount == "" {
			return decimal.Zero, fmt.Errorf("-amount is required")
		}
		return decimal.NewFromString(*amount)
	}

	var out any
	switch cmd {
	case "state":
		var st server.StateResponse
		out = &st
		err = c.do(ctx, http.MethodGet, "/v1/state", nil, &st, false)

	case "quote":
		amt, aerr := needAmount()
		if aerr != nil {
			return aerr
		}
		q := url.Values{"router": {*routerSel}, "amount": {amt.String()}}
		var res map[string]any
		out = &res
		err = c.do(ctx, http.MethodGet, "/v1/quote?"+q.Encode(), nil, &res, false)

	case "fund":
		amt, aerr := needAmount()
		if aerr != nil {
			return aerr
		}
		if c.key == nil {
			return fmt.Errorf("fund needs a signing key")
		}
		mint := server.SandboxMintRequest{Account: c.key.PublicKey().String(), Amount: amt}
		if err := c.do(ctx, http.MethodPost, "/v1/sandbox/mint", mint, nil, false); err != nil {
			return err
		}
		var res map[string]any
		out = &res
		err = c.do(ctx, http.MethodPost, "/v1/sandbox/approve", server.SandboxApproveRequest{Amount: amt}, &res, true)

	case "deposit":
		amt, aerr := needAmount()
		if aerr != nil {
			return aerr
		}
		var res server.AmountResponse
		out = &res
		err = c.do(ctx, http.MethodPost, "/v1/deposits", server.DepositRequest{Amount: amt}, &res, true)

	case "swap":
		amt, aerr := needAmount()
		if aerr != nil {
			return aerr
		}
		req := server.SwapRequest{Amount: amt, Router: *routerSel}
		if *slippage > 0 {
			v := uint16(*slippage)
			req.SlippageBps = &v
		}
		if *minOut > 0 {
			req.MinOut = minOut
		}
		var res map[string]any
		out = &res
		err = c.do(ctx, http.MethodPost, "/v1/swaps", req, &res, true)

	case "withdraw":
		var res server.AmountResponse
		out = &res
		err = c.do(ctx, http.MethodPost, "/v1/withdrawals", nil, &res, true)

	case "pause":
		if err := flags.ValidateKey(flags.PauseKey(treasury.Operation(*op))); err != nil {
			return err
		}
		var res flags.Switch
		body := server.SwitchUpdateRequest{Value: !*off}
		out = &res
		err = c.do(ctx, http.MethodPut, "/v1/switches/"+flags.PauseKey(treasury.Operation(*op)), body, &res, true)
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
