package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  request_timeout: 10s
storage:
  database_url: postgres://localhost/market
  redis_url: redis://localhost:6379
  cache_ttl: 1m
market:
  fee_bps: 300
  royalty_cap_bps: 500
  fee_account: treasury
  currencies: ["usdx", "wrapped"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.Server.RequestTimeout)
	}
	if cfg.Market.FeeBps != 300 || cfg.Market.RoyaltyCapBps != 500 {
		t.Errorf("unexpected fee schedule: %d/%d", cfg.Market.FeeBps, cfg.Market.RoyaltyCapBps)
	}
	if cfg.Market.FeeAccount != "treasury" {
		t.Errorf("expected treasury, got %s", cfg.Market.FeeAccount)
	}
	if len(cfg.Market.Currencies) != 2 {
		t.Errorf("expected 2 currencies, got %v", cfg.Market.Currencies)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `server: {}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Market.FeeBps != 250 {
		t.Errorf("expected default fee 250 bps, got %d", cfg.Market.FeeBps)
	}
	if cfg.Market.RoyaltyCapBps != 1000 {
		t.Errorf("expected default royalty cap 1000 bps, got %d", cfg.Market.RoyaltyCapBps)
	}
	if cfg.Market.FeeAccount != "marketplace" {
		t.Errorf("expected default fee account, got %s", cfg.Market.FeeAccount)
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://db.internal/market")

	path := writeConfig(t, `
storage:
  database_url: ${TEST_DB_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Storage.DatabaseURL != "postgres://db.internal/market" {
		t.Errorf("expected env expansion, got %s", cfg.Storage.DatabaseURL)
	}
}

func TestLoad_RejectsFeeScheduleOverflow(t *testing.T) {
	// fee + royalty cap at or above the denominator would let the
	// settlement split underflow.
	path := writeConfig(t, `
market:
  fee_bps: 9000
  royalty_cap_bps: 1000
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_RejectsNegativeFee(t *testing.T) {
	path := writeConfig(t, `
market:
  fee_bps: -5
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://localhost/m")
	t.Setenv("REDIS_URL", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env failed: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Storage.DatabaseURL != "postgres://localhost/m" {
		t.Errorf("unexpected database url: %s", cfg.Storage.DatabaseURL)
	}
	if cfg.Market.FeeBps != 250 {
		t.Errorf("expected default fee, got %d", cfg.Market.FeeBps)
	}
}
