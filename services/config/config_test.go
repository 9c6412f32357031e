package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Risk.InitialCapital != 10000 {
		t.Fatalf("default capital = %v", cfg.Risk.InitialCapital)
	}
	if cfg.Strategy.RSILen != 14 || cfg.Strategy.MALen != 50 {
		t.Fatalf("default strategy = %+v", cfg.Strategy)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
risk:
  initial_capital: 50000
  risk_per_trade: 0.02
  atr_stop_mult: 3
  tp_mult: 2
  fee_pct: 0.001
strategy:
  rsi_len: 7
  ma_len: 20
  atr_len: 14
  rsi_buy_below: 25
  rsi_sell_above: 75
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Risk.InitialCapital != 50000 || cfg.Risk.FeePct != 0.001 {
		t.Fatalf("risk = %+v", cfg.Risk)
	}
	if cfg.Strategy.RSILen != 7 || cfg.Strategy.RSIBuyBelow != 25 {
		t.Fatalf("strategy = %+v", cfg.Strategy)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("server = %+v", cfg.Server)
	}
}

func TestFeeSynonyms(t *testing.T) {
	cases := []struct {
		body string
		want float64
	}{
		{"risk:\n  initial_capital: 1000\n  fee_pct: 0.002", 0.002},
		{"risk:\n  initial_capital: 1000\n  fee_rate: 0.003", 0.003},
		{"risk:\n  initial_capital: 1000\n  commission: 0.004", 0.004},
		{"risk:\n  initial_capital: 1000\n  fees: 0.005", 0.005},
		// The canonical key wins over synonyms.
		{"risk:\n  initial_capital: 1000\n  fee_pct: 0.001\n  fee_rate: 0.009", 0.001},
	}
	for i, c := range cases {
		cfg, err := Load(writeConfig(t, c.body))
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if cfg.Risk.FeePct != c.want {
			t.Fatalf("case %d: fee = %v, want %v", i, cfg.Risk.FeePct, c.want)
		}
	}
}

func TestSlippageBasisPoints(t *testing.T) {
	cfg, err := Load(writeConfig(t, "risk:\n  initial_capital: 1000\n  slippage_bps: 5"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if math.Abs(cfg.Risk.SlippagePct-0.0005) > 1e-12 {
		t.Fatalf("slippage = %v, want 0.0005", cfg.Risk.SlippagePct)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	bad := []string{
		"risk:\n  initial_capital: 0",
		"risk:\n  initial_capital: 1000\n  fee_pct: -0.001",
		"risk:\n  initial_capital: 1000\n  slippage_pct: -0.1",
		"engine:\n  max_workers: 0",
		"strategy:\n  rsi_len: 0",
	}
	for i, body := range bad {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CH_ADDR", "ch.internal:9000")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClickHouse.Addr != "ch.internal:9000" {
		t.Fatalf("addr = %q, env override ignored", cfg.ClickHouse.Addr)
	}
}
