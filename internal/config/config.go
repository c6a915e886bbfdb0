// Package config holds the engine configuration: HTTP listen address, storage
// URLs, and the marketplace fee/royalty schedule. Config is loaded from a YAML
// file with ${VAR} environment expansion, or assembled from environment
// variables when no file is given.
package config

import (
	"fmt"
	"time"

	"github.com/mintworks/marketplace-engine/internal/model"
)

// Config is the root configuration for an engine instance.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Market  MarketConfig  `yaml:"market"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig holds the PostgreSQL and Redis connections. Both are
// optional: with neither set the engine runs on the in-memory store.
type StorageConfig struct {
	DatabaseURL string        `yaml:"database_url"`
	RedisURL    string        `yaml:"redis_url"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// MarketConfig holds the fee schedule and payment setup.
type MarketConfig struct {
	// FeeBps is the marketplace cut of every trade, in basis points.
	FeeBps int64 `yaml:"fee_bps"`

	// RoyaltyCapBps bounds the royalty rate any collection may configure.
	// FeeBps + RoyaltyCapBps must stay below the bps denominator so the
	// seller amount can never underflow.
	RoyaltyCapBps int64 `yaml:"royalty_cap_bps"`

	// FeeAccount is the principal that holds escrowed bids and accrued fees.
	FeeAccount string `yaml:"fee_account"`

	// Currencies lists the fungible token identifiers accepted as payment.
	// The native coin is always accepted.
	Currencies []string `yaml:"currencies"`
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Storage.CacheTTL == 0 {
		c.Storage.CacheTTL = 30 * time.Second
	}
	if c.Market.FeeBps == 0 {
		c.Market.FeeBps = 250 // 2.5%
	}
	if c.Market.RoyaltyCapBps == 0 {
		c.Market.RoyaltyCapBps = 1000 // 10%
	}
	if c.Market.FeeAccount == "" {
		c.Market.FeeAccount = "marketplace"
	}
}

// Validate checks the fee schedule. The cap on fee+royalty guarantees the
// settlement split cannot underflow for any trade amount >= 1.
func (c *Config) Validate() error {
	if c.Market.FeeBps < 0 {
		return fmt.Errorf("market.fee_bps must be non-negative, got %d", c.Market.FeeBps)
	}
	if c.Market.RoyaltyCapBps < 0 {
		return fmt.Errorf("market.royalty_cap_bps must be non-negative, got %d", c.Market.RoyaltyCapBps)
	}
	if c.Market.FeeBps+c.Market.RoyaltyCapBps >= model.BpsDenominator {
		return fmt.Errorf("market.fee_bps (%d) + market.royalty_cap_bps (%d) must be below %d",
			c.Market.FeeBps, c.Market.RoyaltyCapBps, model.BpsDenominator)
	}
	if c.Market.FeeAccount == "" {
		return fmt.Errorf("market.fee_account must not be empty")
	}
	return nil
}
