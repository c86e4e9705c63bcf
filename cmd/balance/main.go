package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/DucLoc1999/Dexonic-Trading/internal/bootstrap"
	"github.com/DucLoc1999/Dexonic-Trading/internal/dotenv"
)

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var configFlag, addrFlag, tokensFlag string
	flag.StringVar(&configFlag, "config", "", "Chain config YAML (default CHAIN_CONFIG or "+bootstrap.DefaultConfigPath+")")
	flag.StringVar(&addrFlag, "address", "", "Account to check (default WALLET_ADDRESS or the account of PRIVATE_KEY)")
	flag.StringVar(&tokensFlag, "tokens", "", "Comma-separated symbols to value (default: every configured token)")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	env, err := bootstrap.Open(ctx, bootstrap.Options{ConfigPath: configFlag})
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	defer env.Close()

	owner, ownerSrc, err := bootstrap.Owner(addrFlag)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	bot, err := env.Bot(owner, tokensFlag)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	balance, pending, err := env.Broker.CheckBalance(ctx, bot)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	fmt.Printf("owner: %s (%s)\n", owner.Address(), ownerSrc)
	symbols := make([]string, 0, len(bot.Balances))
	for s := range bot.Balances {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		bal := bot.Balances[s]
		human, err := env.Registry.FromBaseUnits(s, bal.Quantity)
		if err != nil {
			log.Fatalf("[fatal] %v", err)
		}
		fmt.Printf("%-6s qty=%s units=%s value=%.6f %s\n", s, human.String(), bal.Quantity.String(), bal.Value, bot.Currency)
	}
	fmt.Printf("balance: %.6f %s\n", balance, bot.Currency)
	fmt.Printf("pending: %.6f %s\n", pending, bot.Currency)
	fmt.Printf("total: %.6f %s\n", balance+pending, bot.Currency)
}
