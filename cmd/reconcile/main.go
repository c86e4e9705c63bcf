package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DucLoc1999/Dexonic-Trading/internal/bootstrap"
	"github.com/DucLoc1999/Dexonic-Trading/internal/dotenv"
	"github.com/DucLoc1999/Dexonic-Trading/internal/jsonl"
	"github.com/DucLoc1999/Dexonic-Trading/internal/metrics"
	"github.com/DucLoc1999/Dexonic-Trading/internal/state"
)

type config struct {
	configPath  string
	addrFlag    string
	statePath   string
	journalPath string
	metricsAddr string
	interval    time.Duration
	wait        bool
	rebuild     bool
}

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	env, err := bootstrap.Open(baseCtx, bootstrap.Options{ConfigPath: cfg.configPath, Metrics: m})
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	defer env.Close()

	if cfg.metricsAddr != "" {
		srv := &http.Server{Addr: cfg.metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				env.Log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
		env.Log.Info("serving metrics", zap.String("addr", cfg.metricsAddr))
	}

	owner, ownerSrc, err := bootstrap.Owner(cfg.addrFlag)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	account := owner.Address()
	env.Log.Info("reconciling", zap.String("account", account), zap.String("source", ownerSrc))

	journal := jsonl.Open(cfg.journalPath, "live")
	defer journal.Close()

	if cfg.interval <= 0 {
		if err := runOnce(baseCtx, env, journal, account, cfg); err != nil {
			log.Fatalf("[fatal] %v", err)
		}
		return
	}

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		if err := runOnce(baseCtx, env, journal, account, cfg); err != nil {
			env.Log.Warn("reconcile run failed", zap.Error(err))
		}
		select {
		case <-baseCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

func loadConfig() (config, error) {
	var cfg config
	var intervalFlag string

	flag.StringVar(&cfg.configPath, "config", "", "Chain config YAML (default CHAIN_CONFIG or "+bootstrap.DefaultConfigPath+")")
	flag.StringVar(&cfg.addrFlag, "address", "", "Account the pending orders belong to (default WALLET_ADDRESS or the account of PRIVATE_KEY)")
	flag.StringVar(&cfg.statePath, "state", "", "Pending orders file (default PENDING_FILE or state/pending.json)")
	flag.StringVar(&cfg.journalPath, "journal", "", "Order journal JSONL (default ORDER_JOURNAL or logs/orders.jsonl)")
	flag.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9102). Empty = off.")
	flag.StringVar(&intervalFlag, "every", "", "Reconcile interval (e.g. 30s). Empty = run once (default).")
	flag.BoolVar(&cfg.wait, "wait", false, "Wait for each pending transaction to finalize")
	flag.BoolVar(&cfg.rebuild, "rebuild", false, "Recover pending orders from the journal when the state file is missing")
	flag.Parse()

	cfg.statePath = firstNonEmpty(cfg.statePath, os.Getenv("PENDING_FILE"), "state/pending.json")
	cfg.journalPath = firstNonEmpty(cfg.journalPath, os.Getenv("ORDER_JOURNAL"), "logs/orders.jsonl")

	if v := firstNonEmpty(intervalFlag, os.Getenv("RECONCILE_EVERY")); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid --every duration %q: %w", v, err)
		}
		cfg.interval = parsed
	}
	return cfg, nil
}

func runOnce(ctx context.Context, env *bootstrap.Env, journal *jsonl.Journal, account string, cfg config) error {
	p, ok, err := state.LoadPending(cfg.statePath)
	if err != nil {
		return err
	}
	if !ok && cfg.rebuild {
		orders, err := state.Rebuild(cfg.journalPath)
		if err != nil {
			return err
		}
		p = state.Pending{Account: account, Router: env.Chain.Router}
		for _, o := range orders {
			p.Add(o)
		}
		env.Log.Info("rebuilt pending orders from journal",
			zap.String("journal", cfg.journalPath),
			zap.Int("orders", len(p.Orders)),
		)
	}
	if len(p.Orders) == 0 {
		env.Log.Debug("no pending orders", zap.String("state", cfg.statePath))
		return nil
	}

	chainID, err := env.Client.ChainID(ctx)
	if err != nil {
		return err
	}
	if err := p.Compatible(chainID, account, env.Chain.Router); err != nil {
		return err
	}
	if p.ChainID == 0 {
		p.ChainID = chainID
	}

	changed := env.Broker.UpdateOrders(ctx, p.Orders, cfg.wait)
	done := p.Prune()
	for _, o := range done {
		if err := journal.Append("order_"+strings.ToLower(string(o.Status)), o, nil); err != nil {
			env.Log.Warn("journal write failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	env.Log.Info("reconciled",
		zap.Int("changed", len(changed)),
		zap.Int("still_pending", len(p.Orders)),
	)
	if ok && len(changed) == 0 && len(done) == 0 {
		return nil
	}
	return state.SavePending(cfg.statePath, p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
