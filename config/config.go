package config

import (
	"fmt"
	"os"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"swaprouter/native/router"
)

// Address wraps a 20-byte account address to support YAML unmarshalling from
// 0x-prefixed hex.
type Address [20]byte

// UnmarshalYAML parses 0x-prefixed hex addresses.
func (a *Address) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("address must be a string")
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		*a = Address{}
		return nil
	}
	if !ethcommon.IsHexAddress(raw) {
		return fmt.Errorf("invalid address %q", raw)
	}
	copy(a[:], ethcommon.HexToAddress(raw).Bytes())
	return nil
}

// Bytes returns the address as the engine's account representation.
func (a Address) Bytes() [20]byte { return a }

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == Address{} }

// FeedID wraps a 32-byte price feed identifier parsed from 0x-prefixed hex.
type FeedID [32]byte

// UnmarshalYAML parses 0x-prefixed 32-byte hex identifiers.
func (f *FeedID) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("feed id must be a string")
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		*f = FeedID{}
		return nil
	}
	decoded := ethcommon.HexToHash(raw)
	copy(f[:], decoded.Bytes())
	return nil
}

// Bytes returns the feed id as the engine's representation.
func (f FeedID) Bytes() [32]byte { return f }

// Config captures runtime configuration for swaprouterd.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	Environment   string          `yaml:"env"`
	DatabasePath  string          `yaml:"database"`
	APIToken      string          `yaml:"api_token"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`

	Custody       Address         `yaml:"custody"`
	Owner         Address         `yaml:"owner"`
	FeesCollector Address         `yaml:"fees_collector"`
	FeePolicy     FeePolicyConfig `yaml:"fee_policy"`
	Venues        VenuesConfig    `yaml:"venues"`
	Operators     []Address       `yaml:"operators"`
	Assets        []AssetConfig   `yaml:"assets"`
	Devnet        DevnetConfig    `yaml:"devnet"`
}

// RateLimitConfig tunes the per-client HTTP rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

// FeePolicyConfig selects the fee strategy applied to swap proceeds.
type FeePolicyConfig struct {
	Kind string `yaml:"kind"`
	Bps  uint16 `yaml:"bps"`
}

// Policy converts the configured strategy into the engine representation.
func (c FeePolicyConfig) Policy() (router.FeePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(c.Kind)) {
	case "", "fixed":
		return router.FeePolicy{Kind: router.FeePolicyFixed, Bps: c.Bps}, nil
	case "percentage":
		if c.Bps > router.MaxPercentageFeeBps {
			return router.FeePolicy{}, fmt.Errorf("percentage fee %d bps exceeds ceiling %d", c.Bps, router.MaxPercentageFeeBps)
		}
		return router.FeePolicy{Kind: router.FeePolicyPercentage, Bps: c.Bps}, nil
	default:
		return router.FeePolicy{}, fmt.Errorf("unknown fee policy kind %q", c.Kind)
	}
}

// VenuesConfig names the accounts of the three venue capabilities.
type VenuesConfig struct {
	Aggregated Address `yaml:"aggregated"`
	SplitRoute Address `yaml:"split_route"`
	Callback   Address `yaml:"callback"`
}

// AssetConfig describes one allow-listed asset: its address, price feed, and
// the devnet parameters used when the in-memory backend serves it.
type AssetConfig struct {
	Address  Address `yaml:"address"`
	Feed     FeedID  `yaml:"feed"`
	Decimals uint8   `yaml:"decimals"`
	// PriceUSD is the oracle price in PriceDecimals precision, as a decimal
	// string to keep full integer precision.
	PriceUSD      string `yaml:"price_usd"`
	PriceDecimals uint32 `yaml:"price_decimals"`
}

// DevnetConfig seeds the in-memory asset backend used for local runs.
type DevnetConfig struct {
	Balances []BalanceConfig `yaml:"balances"`
	Rates    []RateConfig    `yaml:"rates"`
}

// BalanceConfig funds an account with an initial asset balance.
type BalanceConfig struct {
	Asset   Address `yaml:"asset"`
	Account Address `yaml:"account"`
	Amount  string  `yaml:"amount"`
}

// RateConfig fixes a devnet venue exchange rate between two assets.
type RateConfig struct {
	AssetIn     Address `yaml:"asset_in"`
	AssetOut    Address `yaml:"asset_out"`
	Numerator   int64   `yaml:"numerator"`
	Denominator int64   `yaml:"denominator"`
}

// Load reads and validates the YAML configuration at the supplied path.
func Load(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("listen address must be configured")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database path must be configured")
	}
	if c.Custody.IsZero() {
		return fmt.Errorf("custody address must be configured")
	}
	if c.Owner.IsZero() {
		return fmt.Errorf("owner address must be configured")
	}
	if c.FeesCollector.IsZero() {
		return fmt.Errorf("fees collector address must be configured")
	}
	if _, err := c.FeePolicy.Policy(); err != nil {
		return fmt.Errorf("fee policy: %w", err)
	}
	seen := make(map[Address]struct{}, len(c.Assets))
	for i, asset := range c.Assets {
		if asset.Address.IsZero() {
			return fmt.Errorf("asset %d: address must be configured", i)
		}
		if asset.Feed == (FeedID{}) {
			return fmt.Errorf("asset %d: feed id must be configured", i)
		}
		if _, ok := seen[asset.Address]; ok {
			return fmt.Errorf("asset %d: duplicate address", i)
		}
		seen[asset.Address] = struct{}{}
	}
	for i, rate := range c.Devnet.Rates {
		if rate.Numerator <= 0 || rate.Denominator <= 0 {
			return fmt.Errorf("devnet rate %d: numerator and denominator must be positive", i)
		}
	}
	return nil
}
