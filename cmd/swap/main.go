package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/DucLoc1999/Dexonic-Trading/internal/bootstrap"
	"github.com/DucLoc1999/Dexonic-Trading/internal/broker"
	"github.com/DucLoc1999/Dexonic-Trading/internal/dotenv"
	"github.com/DucLoc1999/Dexonic-Trading/internal/jsonl"
	"github.com/DucLoc1999/Dexonic-Trading/internal/state"
)

const (
	defaultJournal = "logs/orders.jsonl"
	defaultState   = "state/pending.json"
)

type options struct {
	configPath    string
	side          broker.Side
	token         string
	qty           decimal.Decimal
	enableTrading bool
	wait          bool
	journalPath   string
	statePath     string
}

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	opts, err := loadOptions()
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	env, err := bootstrap.Open(ctx, bootstrap.Options{ConfigPath: opts.configPath})
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	defer env.Close()

	journal := jsonl.Open(opts.journalPath, tradeMode(opts.enableTrading))
	defer journal.Close()

	plan := broker.OrderPlan{
		Pair:     broker.Pair{Currency: env.Chain.Currency, Token: opts.token},
		Side:     opts.side,
		Quantity: opts.qty,
	}
	path, err := plan.Pair.Path(plan.Side)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	units, err := env.Registry.ToBaseUnits(path[0], plan.Quantity)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	q, err := env.Broker.Estimate(ctx, path, units, broker.ModeOutGivenIn)
	if err != nil {
		logEvent(journal, "estimate_failed", plan, err)
		log.Fatalf("[fatal] estimate: %v", err)
	}
	est, _ := env.Registry.FromBaseUnits(path[1], q.Amounts[1].ToBig())
	plan.EstimatedAmount = &est
	fmt.Printf("%s %s %s -> ~%s %s\n", plan.Side, plan.Quantity.String(), path[0], est.String(), path[1])

	if !opts.enableTrading {
		logEvent(journal, "order_dry_run", plan, nil)
		fmt.Println("dry run: pass --enable-trading (or ENABLE_TRADING=1) to submit")
		return
	}

	account, err := bootstrap.Account()
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	bot, err := env.Bot(account, opts.token)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	order, err := env.Broker.PlaceOrder(ctx, plan, bot)
	if err != nil {
		logEvent(journal, "order_failed", plan, err)
		log.Fatalf("[fatal] place order: %v", err)
	}
	logEvent(journal, "order_placed", order, nil)
	fmt.Printf("order: %s tx=%s\n", order.ID, order.TxHash.Hex())

	if opts.wait {
		if _, err := env.Broker.UpdateOrder(ctx, order, true); err != nil {
			env.Log.Warn("reconcile after submit failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	if order.Status.Terminal() {
		logEvent(journal, "order_"+strings.ToLower(string(order.Status)), order, nil)
		fmt.Printf("status: %s price=%s qty=%s fee=%s octas\n", order.Status, order.Price.String(), order.Quantity.String(), order.Fee)
		return
	}

	if err := savePending(ctx, env, opts.statePath, account.Address(), order); err != nil {
		log.Fatalf("[fatal] save pending order: %v", err)
	}
	fmt.Printf("status: %s (saved to %s)\n", order.Status, opts.statePath)
}

func loadOptions() (options, error) {
	var o options
	var sideFlag, qtyFlag string

	flag.StringVar(&o.configPath, "config", "", "Chain config YAML (default CHAIN_CONFIG or "+bootstrap.DefaultConfigPath+")")
	flag.StringVar(&sideFlag, "side", "", "buy or sell (required)")
	flag.StringVar(&o.token, "token", "", "Traded token symbol, quoted in the config currency (required)")
	flag.StringVar(&qtyFlag, "qty", "", "Quantity: currency spent for buy, token sold for sell (required)")
	flag.BoolVar(&o.enableTrading, "enable-trading", false, "Submit the swap (default false; set ENABLE_TRADING)")
	flag.BoolVar(&o.wait, "wait", false, "Wait for the transaction and reconcile it before exiting")
	flag.StringVar(&o.journalPath, "journal", "", "Order journal JSONL (default ORDER_JOURNAL or "+defaultJournal+")")
	flag.StringVar(&o.statePath, "state", "", "Pending orders file (default PENDING_FILE or "+defaultState+")")
	flag.Parse()

	side, err := broker.ParseSide(strings.ToLower(strings.TrimSpace(sideFlag)))
	if err != nil {
		return o, fmt.Errorf("--side: %w", err)
	}
	o.side = side

	o.token = strings.TrimSpace(o.token)
	if o.token == "" {
		return o, fmt.Errorf("--token is required")
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(qtyFlag))
	if err != nil || !qty.IsPositive() {
		return o, fmt.Errorf("--qty must be a positive decimal, got %q", qtyFlag)
	}
	o.qty = qty

	if !o.enableTrading {
		envTrading, err := dotenv.Bool("ENABLE_TRADING")
		if err != nil {
			return o, err
		}
		o.enableTrading = envTrading
	}
	o.journalPath = firstNonEmpty(o.journalPath, os.Getenv("ORDER_JOURNAL"), defaultJournal)
	o.statePath = firstNonEmpty(o.statePath, os.Getenv("PENDING_FILE"), defaultState)
	return o, nil
}

func savePending(ctx context.Context, env *bootstrap.Env, path, account string, order *broker.Order) error {
	p, _, err := state.LoadPending(path)
	if err != nil {
		return err
	}
	chainID, err := env.Client.ChainID(ctx)
	if err != nil {
		return err
	}
	if err := p.Compatible(chainID, account, env.Chain.Router); err != nil {
		return err
	}
	p.ChainID = chainID
	p.Account = account
	p.Router = env.Chain.Router
	p.Add(order)
	return state.SavePending(path, p)
}

func tradeMode(enableTrading bool) string {
	if enableTrading {
		return "live"
	}
	return "dry"
}

func logEvent(j *jsonl.Journal, event string, data any, cause error) {
	if err := j.Append(event, data, cause); err != nil {
		log.Printf("[warn] journal write failed: %v", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
