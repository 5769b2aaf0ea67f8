package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/aman-zulfiqar/solana-treasury/internal/asset"
	"github.com/aman-zulfiqar/solana-treasury/internal/config"
	"github.com/aman-zulfiqar/solana-treasury/internal/engine"
	"github.com/aman-zulfiqar/solana-treasury/internal/models"
	"github.com/aman-zulfiqar/solana-treasury/internal/treasury"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// logSink prints ledger events as they are emitted.
type logSink struct{ logger *logrus.Logger }

func (s logSink) RecordEvent(_ context.Context, ev *models.LedgerEvent) error {
	entry := s.logger.WithFields(logrus.Fields{
		"kind":   ev.Kind,
		"status": ev.Status,
		"pair":   ev.Pair(),
		"in":     ev.AmountInUI.String(),
		"out":    ev.AmountOutUI.String(),
	})
	if ev.Router != "" {
		entry = entry.WithField("router", ev.Router)
	}
	if ev.Error != "" {
		entry = entry.WithField("error", ev.Error)
	}
	entry.Info("event")
	return nil
}

func runKeygen() error {
	w := solana.NewWallet()
	fmt.Printf("address:     %s\nprivate key: %s\n", w.PublicKey(), w.PrivateKey)
	return nil
}

// runDemo deposits, swaps part of the balance through each router, shows
// that only the owner can withdraw and then withdraws, all on the memory
// backend.
func runDemo(ctx context.Context, logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	pools := fs.String("pools", "configs/pools.json", "pool registry for router A")
	rate := fs.String("rate", "1800", "router B fixed rate (destination per source unit)")
	deposit := fs.String("deposit", "10", "source amount to deposit")
	swapA := fs.String("swap-a", "4", "source amount to swap on router A")
	swapB := fs.String("swap-b", "3", "source amount to swap on router B")
	_ = fs.Parse(args)

	amounts := map[string]decimal.Decimal{}
	for name, v := range map[string]string{"deposit": *deposit, "swap-a": *swapA, "swap-b": *swapB} {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("-%s: %w", name, err)
		}
		amounts[name] = d
	}

	owner := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()

	cfg := config.Load()
	cfg.Backend = config.BackendMemory
	cfg.OwnerAddress = owner.String()
	cfg.CustodyPrivateKey, cfg.RouterAPrivateKey, cfg.RouterBPrivateKey, cfg.MakerPrivateKey = "", "", "", ""
	cfg.PoolConfigPath = *pools
	cfg.RFQFixedRate = *rate
	cfg.MaxSwapAmount, cfg.DailySwapLimit = "", ""
	if err := cfg.Validate(); err != nil {
		return err
	}

	eng, err := engine.New(ctx, cfg, engine.Options{
		Sinks:  []treasury.EventSink{logSink{logger: logger}},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	info := eng.Info()
	src := eng.Ledger().SourceAsset()
	dst := eng.Ledger().DestAsset()
	logger.WithFields(logrus.Fields{
		"source":   info.Source.Symbol,
		"dest":     info.Dest.Symbol,
		"router_a": info.RouterA.Name,
		"router_b": info.RouterB.Name,
		"owner":    owner.String(),
		"user":     user.String(),
	}).Info("demo ledger ready")

	if _, err := eng.SandboxMint(user, src.Address(), amounts["deposit"]); err != nil {
		return err
	}
	if _, err := eng.SandboxApprove(ctx, user, amounts["deposit"]); err != nil {
		return err
	}
	if _, err := eng.Deposit(ctx, user, amounts["deposit"]); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	for _, leg := range []struct {
		sel    treasury.RouterSelector
		amount decimal.Decimal
	}{
		{treasury.RouterA, amounts["swap-a"]},
		{treasury.RouterB, amounts["swap-b"]},
	} {
		q, err := eng.Quote(ctx, leg.sel, leg.amount)
		if err != nil {
			return err
		}
		res, err := eng.Swap(ctx, user, engine.SwapIntent{Amount: leg.amount, Router: leg.sel})
		if err != nil {
			return fmt.Errorf("swap on %s: %w", q.Router, err)
		}
		logger.WithFields(logrus.Fields{
			"router": res.Router,
			"quoted": asset.FromRaw(q.AmountOut, dst.Decimals()).String(),
			"got":    res.AmountOutUI.String(),
			"min":    asset.FromRaw(res.MinOut, dst.Decimals()).String(),
		}).Info("swapped")
	}

	if _, err := eng.WithdrawAll(ctx, user); !errors.Is(err, treasury.ErrUnauthorized) {
		return fmt.Errorf("withdraw by non-owner: want unauthorized, got %v", err)
	}
	logger.Info("withdraw by non-owner rejected")

	withdrawn, err := eng.WithdrawAll(ctx, owner)
	if err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	held, err := eng.BalanceOf(ctx, owner, dst.Address())
	if err != nil {
		return err
	}
	report, err := eng.Audit(ctx)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"withdrawn":     asset.FromRaw(withdrawn, dst.Decimals()).String(),
		"owner_balance": asset.FromRaw(held, dst.Decimals()).String(),
		"audit_ok":      report.OK(),
	}).Info("demo complete")

	return printJSON(eng.State())
}
