// Package config loads the chain/contract file shared by the binaries.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DucLoc1999/Dexonic-Trading/internal/aptos"
	"github.com/DucLoc1999/Dexonic-Trading/internal/tokens"
)

const (
	PolicyZero     = "zero"
	PolicySlippage = "slippage"
)

// Chain mirrors configs/aptos_chain.yaml.
type Chain struct {
	NodeURL  string `yaml:"node_url"`
	Router   string `yaml:"router"`
	Fee      string `yaml:"fee"`
	Currency string `yaml:"currency"`

	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`

	MinOutPolicy string `yaml:"min_out_policy"`
	SlippageBps  uint32 `yaml:"slippage_bps"`

	Tokens map[string]tokens.Spec `yaml:"tokens"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

func Load(path string) (*Chain, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Chain, error) {
	var cfg Chain
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse chain config: %w", err)
	}
	overrideWithEnv(&cfg)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chain config: %w", err)
	}
	return &cfg, nil
}

func overrideWithEnv(cfg *Chain) {
	if v := strings.TrimSpace(os.Getenv("APTOS_NODE_URL")); v != "" {
		cfg.NodeURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ROUTER_ADDRESS")); v != "" {
		cfg.Router = v
	}
}

func (c *Chain) applyDefaults() {
	if c.NodeURL == "" {
		c.NodeURL = aptos.DefaultNodeURL
	}
	if c.Currency == "" {
		c.Currency = "USDT"
	}
	if c.MinOutPolicy == "" {
		c.MinOutPolicy = PolicyZero
	}
	c.MinOutPolicy = strings.ToLower(strings.TrimSpace(c.MinOutPolicy))
}

func (c *Chain) Validate() error {
	if !strings.HasPrefix(c.NodeURL, "http") {
		return fmt.Errorf("node_url must be http(s)://..., got %q", c.NodeURL)
	}
	router, err := aptos.NormalizeAddress(c.Router)
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}
	c.Router = router
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch c.MinOutPolicy {
	case PolicyZero:
	case PolicySlippage:
		if c.SlippageBps == 0 || c.SlippageBps >= 10_000 {
			return fmt.Errorf("slippage_bps must be in (0,10000), got %d", c.SlippageBps)
		}
	default:
		return fmt.Errorf("min_out_policy must be %q or %q, got %q", PolicyZero, PolicySlippage, c.MinOutPolicy)
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("no tokens configured")
	}
	if _, ok := c.Tokens[c.Currency]; !ok {
		return fmt.Errorf("currency %s missing from tokens", c.Currency)
	}
	for sym, t := range c.Tokens {
		if strings.Count(t.Type, "::") < 2 {
			return fmt.Errorf("token %s: coin type %q is not address::module::Name", sym, t.Type)
		}
	}
	return nil
}
