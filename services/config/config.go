// Package config loads the YAML run configuration and applies environment
// overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tradesim/services/arrowpipeline"
	"tradesim/services/marketdata"
	"tradesim/strategies"
)

type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// RiskConfig holds the cost and sizing parameters of a run. Fee and
// slippage accept the synonyms older configs used; see UnmarshalYAML.
type RiskConfig struct {
	InitialCapital float64
	RiskPerTrade   float64
	ATRStopMult    float64
	TakeProfitMult float64
	FeePct         float64
	SlippagePct    float64
}

// rawRisk carries every accepted spelling; the canonical keys win.
type rawRisk struct {
	InitialCapital float64  `yaml:"initial_capital"`
	RiskPerTrade   float64  `yaml:"risk_per_trade"`
	ATRStopMult    float64  `yaml:"atr_stop_mult"`
	TakeProfitMult float64  `yaml:"tp_mult"`
	FeePct         *float64 `yaml:"fee_pct"`
	FeeRate        *float64 `yaml:"fee_rate"`
	Fee            *float64 `yaml:"fee"`
	Commission     *float64 `yaml:"commission"`
	Fees           *float64 `yaml:"fees"`
	SlippagePct    *float64 `yaml:"slippage_pct"`
	SlippageBP     *float64 `yaml:"slippage_bp"`
	SlippageBPS    *float64 `yaml:"slippage_bps"`
	Slippage       *float64 `yaml:"slippage"`
}

// UnmarshalYAML normalizes fee and slippage synonyms onto the canonical
// fields. Basis-point spellings are divided by 10000.
func (r *RiskConfig) UnmarshalYAML(value *yaml.Node) error {
	// Seed with the current values so partial sections keep defaults.
	raw := rawRisk{
		InitialCapital: r.InitialCapital,
		RiskPerTrade:   r.RiskPerTrade,
		ATRStopMult:    r.ATRStopMult,
		TakeProfitMult: r.TakeProfitMult,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.InitialCapital = raw.InitialCapital
	r.RiskPerTrade = raw.RiskPerTrade
	r.ATRStopMult = raw.ATRStopMult
	r.TakeProfitMult = raw.TakeProfitMult

	switch {
	case raw.FeePct != nil:
		r.FeePct = *raw.FeePct
	case raw.FeeRate != nil:
		r.FeePct = *raw.FeeRate
	case raw.Fee != nil:
		r.FeePct = *raw.Fee
	case raw.Commission != nil:
		r.FeePct = *raw.Commission
	case raw.Fees != nil:
		r.FeePct = *raw.Fees
	}

	switch {
	case raw.SlippagePct != nil:
		r.SlippagePct = *raw.SlippagePct
	case raw.SlippageBP != nil:
		r.SlippagePct = *raw.SlippageBP / 10000
	case raw.SlippageBPS != nil:
		r.SlippagePct = *raw.SlippageBPS / 10000
	case raw.Slippage != nil:
		r.SlippagePct = *raw.Slippage
	}
	return nil
}

type EngineConfig struct {
	MaxWorkers int    `yaml:"max_workers"`
	Interval   string `yaml:"interval"`
	BarsPerDay int    `yaml:"bars_per_day"`
}

type Config struct {
	Environment string                 `yaml:"environment"`
	Server      ServerConfig           `yaml:"server"`
	ClickHouse  marketdata.StoreConfig `yaml:"clickhouse"`
	Arrow       arrowpipeline.Config   `yaml:"arrow"`
	Strategy    strategies.RSIMAParams `yaml:"strategy"`
	Risk        RiskConfig             `yaml:"risk"`
	Engine      EngineConfig           `yaml:"engine"`
}

// Default returns the configuration a run gets with no file at all.
func Default() *Config {
	return &Config{
		Environment: "dev",
		Server: ServerConfig{
			HTTPAddr: ":8080",
			GRPCAddr: ":9091",
		},
		ClickHouse: marketdata.StoreConfig{
			Addr:     "localhost:9000",
			Database: "tradesim",
			Username: "default",
			Table:    "bars",
		},
		Arrow:    arrowpipeline.Config{BatchSize: 8192},
		Strategy: strategies.DefaultRSIMAParams(),
		Risk: RiskConfig{
			InitialCapital: 10000,
			RiskPerTrade:   0.01,
			ATRStopMult:    2,
			TakeProfitMult: 1,
			FeePct:         0.0005,
			SlippagePct:    0.0002,
		},
		Engine: EngineConfig{
			MaxWorkers: 4,
			Interval:   "1h",
			BarsPerDay: 24,
		},
	}
}

// Load reads path over the defaults, applies environment overrides, and
// validates the result. An empty path keeps the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Environment = mustEnv("TRADESIM_ENV", cfg.Environment)
	cfg.Server.HTTPAddr = mustEnv("HTTP_ADDR", cfg.Server.HTTPAddr)
	cfg.Server.GRPCAddr = mustEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.ClickHouse.Addr = mustEnv("CH_ADDR", cfg.ClickHouse.Addr)
	cfg.ClickHouse.Database = mustEnv("CH_DATABASE", cfg.ClickHouse.Database)
	cfg.ClickHouse.Username = mustEnv("CH_USER", cfg.ClickHouse.Username)
	cfg.ClickHouse.Password = mustEnv("CH_PASS", cfg.ClickHouse.Password)
	cfg.ClickHouse.Table = mustEnv("CH_TABLE", cfg.ClickHouse.Table)
}

func mustEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Validate rejects configurations no run should start with.
func (c *Config) Validate() error {
	if c.Risk.InitialCapital <= 0 {
		return fmt.Errorf("risk.initial_capital must be positive, got %v", c.Risk.InitialCapital)
	}
	if c.Risk.RiskPerTrade < 0 {
		return fmt.Errorf("risk.risk_per_trade must not be negative, got %v", c.Risk.RiskPerTrade)
	}
	if c.Risk.FeePct < 0 {
		return fmt.Errorf("risk fee must not be negative, got %v", c.Risk.FeePct)
	}
	if c.Risk.SlippagePct < 0 {
		return fmt.Errorf("risk slippage must not be negative, got %v", c.Risk.SlippagePct)
	}
	if c.Risk.ATRStopMult < 0 || c.Risk.TakeProfitMult < 0 {
		return fmt.Errorf("risk multipliers must not be negative")
	}
	if c.Engine.MaxWorkers <= 0 {
		return fmt.Errorf("engine.max_workers must be positive, got %d", c.Engine.MaxWorkers)
	}
	if c.Strategy.RSILen <= 0 || c.Strategy.MALen <= 0 || c.Strategy.ATRLen <= 0 {
		return fmt.Errorf("strategy window lengths must be positive")
	}
	return nil
}
