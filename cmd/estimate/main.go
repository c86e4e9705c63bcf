package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DucLoc1999/Dexonic-Trading/internal/amm"
	"github.com/DucLoc1999/Dexonic-Trading/internal/bootstrap"
	"github.com/DucLoc1999/Dexonic-Trading/internal/broker"
	"github.com/DucLoc1999/Dexonic-Trading/internal/dotenv"
)

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var configFlag, inFlag, outFlag, amountFlag, modeFlag string
	flag.StringVar(&configFlag, "config", "", "Chain config YAML (default CHAIN_CONFIG or "+bootstrap.DefaultConfigPath+")")
	flag.StringVar(&inFlag, "in", "", "Symbol spent (required)")
	flag.StringVar(&outFlag, "out", "", "Symbol received (required)")
	flag.StringVar(&amountFlag, "amount", "", "Human amount: input for --mode out, output for --mode in (required)")
	flag.StringVar(&modeFlag, "mode", "out", "out = output for an exact input, in = input for an exact output")
	flag.Parse()

	if strings.TrimSpace(inFlag) == "" || strings.TrimSpace(outFlag) == "" || strings.TrimSpace(amountFlag) == "" {
		log.Fatalf("[fatal] --in, --out and --amount are required")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(amountFlag))
	if err != nil {
		log.Fatalf("[fatal] invalid --amount %q: %v", amountFlag, err)
	}

	mode := broker.ModeOutGivenIn
	known := inFlag
	switch strings.ToLower(strings.TrimSpace(modeFlag)) {
	case "out":
	case "in":
		mode = broker.ModeInGivenOut
		known = outFlag
	default:
		log.Fatalf("[fatal] invalid --mode %q (want out|in)", modeFlag)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	env, err := bootstrap.Open(ctx, bootstrap.Options{ConfigPath: configFlag})
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	defer env.Close()

	units, err := env.Registry.ToBaseUnits(known, amount)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	path := [2]string{inFlag, outFlag}
	q, err := env.Broker.Estimate(ctx, path, units, mode)
	if err != nil {
		log.Fatalf("[fatal] estimate %s->%s: %v", inFlag, outFlag, err)
	}

	in, _ := env.Registry.FromBaseUnits(inFlag, q.Amounts[0].ToBig())
	out, _ := env.Registry.FromBaseUnits(outFlag, q.Amounts[1].ToBig())
	fmt.Printf("path: %s -> %s\n", q.Path[0], q.Path[1])
	fmt.Printf("reserves: in=%s out=%s spot=%s\n", q.Reserves.In.Dec(), q.Reserves.Out.Dec(), amm.SpotPrice(q.Reserves.In, q.Reserves.Out).StringFixed(8))
	fmt.Printf("amount_in: %s %s (units=%s)\n", in.String(), inFlag, q.Amounts[0].Dec())
	fmt.Printf("amount_out: %s %s (units=%s)\n", out.String(), outFlag, q.Amounts[1].Dec())
	if !out.IsZero() {
		fmt.Printf("price: %s %s per %s\n", in.DivRound(out, 8).String(), inFlag, outFlag)
	}
	impact := amm.PriceImpact(q.Amounts[0], q.Amounts[1], q.Reserves.In, q.Reserves.Out)
	fmt.Printf("price_impact: %s%%\n", impact.Shift(2).StringFixed(4))
	fmt.Printf("fee_factor: %s\n", env.Broker.Fee().String())
}
