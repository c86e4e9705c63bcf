// Package bootstrap wires config, node client, token registry and broker for
// the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/DucLoc1999/Dexonic-Trading/internal/amm"
	"github.com/DucLoc1999/Dexonic-Trading/internal/aptos"
	"github.com/DucLoc1999/Dexonic-Trading/internal/broker"
	"github.com/DucLoc1999/Dexonic-Trading/internal/config"
	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
	"github.com/DucLoc1999/Dexonic-Trading/internal/logging"
	"github.com/DucLoc1999/Dexonic-Trading/internal/metrics"
	"github.com/DucLoc1999/Dexonic-Trading/internal/tokens"
)

const DefaultConfigPath = "configs/aptos_chain.yaml"

type Options struct {
	ConfigPath string
	LogLevel   string
	Metrics    *metrics.Metrics
}

type Env struct {
	Chain    *config.Chain
	Client   *aptos.Client
	Registry *tokens.Registry
	Broker   *broker.Broker
	Log      *zap.Logger
}

// ConfigPath picks the --config flag, then CHAIN_CONFIG, then the default.
func ConfigPath(flagVal string) string {
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("CHAIN_CONFIG")); v != "" {
		return v
	}
	return DefaultConfigPath
}

func Open(ctx context.Context, opts Options) (*Env, error) {
	chain, err := config.Load(ConfigPath(opts.ConfigPath))
	if err != nil {
		return nil, err
	}

	level := chain.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log, err := logging.New(level, chain.Logging.File)
	if err != nil {
		return nil, err
	}

	var clientOpts []aptos.Option
	if chain.RateLimit > 0 {
		clientOpts = append(clientOpts, aptos.WithRateLimit(chain.RateLimit, int(chain.RateLimit)))
	}
	client, err := aptos.NewClient(chain.NodeURL, clientOpts...)
	if err != nil {
		return nil, err
	}

	registry, err := tokens.Resolve(ctx, client, chain.Tokens)
	if err != nil {
		return nil, fmt.Errorf("resolve tokens: %w", err)
	}

	fee, err := amm.ParseFee(chain.Fee)
	if err != nil {
		return nil, err
	}
	b, err := broker.New(client, registry, broker.Config{
		Router:       chain.Router,
		Fee:          fee,
		Timeout:      chain.Timeout,
		MinAmountOut: MinOutPolicy(chain),
	}, broker.WithLogger(log), broker.WithMetrics(opts.Metrics))
	if err != nil {
		return nil, err
	}

	log.Info("broker ready",
		zap.String("node", client.Host()),
		zap.String("router", chain.Router),
		zap.String("fee", fee.String()),
		zap.String("min_out_policy", chain.MinOutPolicy),
		zap.Strings("tokens", registry.Symbols()),
	)
	return &Env{Chain: chain, Client: client, Registry: registry, Broker: b, Log: log}, nil
}

func (e *Env) Close() {
	e.Broker.Close()
	_ = e.Log.Sync()
}

func MinOutPolicy(chain *config.Chain) broker.MinOutPolicy {
	if chain.MinOutPolicy == config.PolicySlippage {
		return broker.FloorSlippageBps(chain.SlippageBps)
	}
	return broker.FloorZero
}

// Account resolves the signing wallet from the environment.
func Account() (*aptos.Account, error) {
	cred, err := aptos.CredentialFromEnv()
	if err != nil {
		return nil, err
	}
	return aptos.NewAccount(cred)
}

// Owner resolves the account to read for: the --address flag, then
// WALLET_ADDRESS (watch-only), then the account of PRIVATE_KEY. The second
// return names the source.
func Owner(addrFlag string) (ledger.Signer, string, error) {
	if raw := strings.TrimSpace(addrFlag); raw != "" {
		w, err := aptos.NewWatchOnly(raw)
		if err != nil {
			return nil, "", fmt.Errorf("invalid --address %q: %w", raw, err)
		}
		return w, "--address", nil
	}
	if raw := strings.TrimSpace(os.Getenv("WALLET_ADDRESS")); raw != "" {
		w, err := aptos.NewWatchOnly(raw)
		if err != nil {
			return nil, "", fmt.Errorf("invalid WALLET_ADDRESS %q: %w", raw, err)
		}
		return w, "WALLET_ADDRESS", nil
	}
	acct, err := Account()
	if err != nil {
		return nil, "", fmt.Errorf("%w, or pass --address", err)
	}
	return acct, "PRIVATE_KEY", nil
}

// Bot builds the caller-side bot state. tokensFlag lists the traded symbols;
// empty means every configured symbol except the currency.
func (e *Env) Bot(account ledger.Signer, tokensFlag string) (*broker.Bot, error) {
	symbols := tokens.ParseSymbols(tokensFlag)
	if len(symbols) == 0 {
		for _, s := range e.Registry.Symbols() {
			if s != e.Chain.Currency {
				symbols = append(symbols, s)
			}
		}
	}
	for _, s := range symbols {
		if _, err := e.Registry.Lookup(s); err != nil {
			return nil, err
		}
	}
	return &broker.Bot{Account: account, Tokens: symbols, Currency: e.Chain.Currency}, nil
}
