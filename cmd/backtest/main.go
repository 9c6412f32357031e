// Package main is the CSV backtest runner: it loads one or more bar files,
// runs the strategy through the simulator, and prints a result line per
// input plus an equal-weight portfolio line when there are several.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"tradesim/services/config"
	"tradesim/services/engine"
	"tradesim/services/marketdata"
	"tradesim/services/report"
	"tradesim/services/risk"
	"tradesim/strategies"
)

func main() {
	configPath := flag.String("config", "", "YAML config path")
	csvList := flag.String("csv", "", "CSV path(s), comma or space separated")
	tradesOut := flag.String("trades-out", "", "Write closed trades as CSV (per input when several)")
	logPath := flag.String("log", "", "Also write output to this file")
	capital := flag.Float64("capital", 0, "Override initial capital")
	riskPerTrade := flag.Float64("risk", 0, "Override risk per trade")
	mcHorizon := flag.Int("mc-horizon", 24, "Monte-Carlo horizon in bars")
	mcSims := flag.Int("mc-sims", 10000, "Monte-Carlo simulation count")
	mcAlpha := flag.Float64("mc-alpha", 0.95, "Monte-Carlo confidence level")
	seed := flag.Int64("seed", 42, "Monte-Carlo random seed")
	flag.Parse()

	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		log.SetOutput(os.Stdout)
	}
	log.SetFlags(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *capital > 0 {
		cfg.Risk.InitialCapital = *capital
	}
	if *riskPerTrade > 0 {
		cfg.Risk.RiskPerTrade = *riskPerTrade
	}

	paths := splitPaths(*csvList)
	if len(paths) == 0 {
		log.Fatal("no input: pass -csv with one or more bar files")
	}

	simCfg := engine.SimConfig{
		InitialCapital: cfg.Risk.InitialCapital,
		RiskPerTrade:   cfg.Risk.RiskPerTrade,
		ATRStopMult:    cfg.Risk.ATRStopMult,
		TakeProfitMult: cfg.Risk.TakeProfitMult,
		FeeRate:        cfg.Risk.FeePct,
		SlippageRate:   cfg.Risk.SlippagePct,
	}
	sim, err := engine.NewSimulator(simCfg, nil)
	if err != nil {
		log.Fatalf("simulator config: %v", err)
	}

	log.Println("=== RESULTS ===")
	var curves [][]float64
	for _, path := range paths {
		res, err := runOne(sim, cfg, path)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}
		m := engine.Summarize(res.Equity, res.Trades, cfg.Engine.BarsPerDay)
		printLine(filepath.Base(path), m)
		printRiskLine(res.Equity, *mcHorizon, *mcSims, *mcAlpha, *seed)
		curves = append(curves, res.Equity)

		if *tradesOut != "" {
			out := tradesPath(*tradesOut, path, len(paths) > 1)
			if err := report.SaveTradesCSV(out, res.Trades); err != nil {
				log.Fatalf("write trades: %v", err)
			}
			sum := report.BuildSummary(res.Trades, res.Equity)
			log.Printf("%-16s | trades written to %s (net pnl %s, profit factor %s)",
				filepath.Base(path), out, sum.NetPnl.StringFixed(2), sum.ProfitFactor.StringFixed(2))
		}
	}

	if len(curves) >= 2 {
		port := equalWeightPortfolio(curves, cfg.Risk.InitialCapital)
		log.Println(strings.Repeat("-", 98))
		printLine("PORT(50/50 ew)", engine.Summarize(port, nil, cfg.Engine.BarsPerDay))
	}
	log.Println("Done.")
}

func runOne(sim *engine.Simulator, cfg *config.Config, path string) (*engine.Result, error) {
	bars, err := marketdata.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	high, low, closes := marketdata.Closes(bars)
	signals, ind := strategies.RSIMASignals(high, low, closes, cfg.Strategy)
	return sim.Run(closes, signals, ind.ATR)
}

func printLine(tag string, m engine.Summary) {
	log.Printf("%-16s | Final:%9.2f | Return:%6.2f%% | DD:%6.2f%% | Sharpe:%4.2f | Win%%:%5.1f | Trades:%3d",
		tag, m.FinalEquity, m.ReturnPct, m.MaxDrawdownPct, m.Sharpe, m.WinPct, m.Trades)
}

// printRiskLine estimates horizon VaR/CVaR from the run's bar returns.
func printRiskLine(equity []float64, horizon, sims int, alpha float64, seed int64) {
	rets := barReturns(equity)
	if len(rets) < 2 {
		return
	}
	est := risk.MonteCarloVarCVar(rets, horizon, sims, alpha, rand.New(rand.NewSource(seed)))
	log.Printf("%-16s | VaR(%.0f%%,%dbar):%6.2f%% | CVaR:%6.2f%%",
		"", alpha*100, horizon, est.VaR*100, est.CVaR*100)
}

func barReturns(equity []float64) []float64 {
	rets := make([]float64, 0, len(equity))
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		r := (equity[i] - equity[i-1]) / equity[i-1]
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			rets = append(rets, r)
		}
	}
	return rets
}

// equalWeightPortfolio averages the curves, normalized to the common
// initial capital, over their overlapping prefix.
func equalWeightPortfolio(curves [][]float64, initialCapital float64) []float64 {
	minLen := len(curves[0])
	for _, c := range curves[1:] {
		if len(c) < minLen {
			minLen = len(c)
		}
	}
	port := make([]float64, minLen)
	for i := 0; i < minLen; i++ {
		sum := 0.0
		for _, c := range curves {
			sum += c[i] / initialCapital
		}
		port[i] = sum / float64(len(curves)) * initialCapital
	}
	return port
}

func splitPaths(arg string) []string {
	var out []string
	for _, chunk := range strings.Split(arg, ",") {
		for _, p := range strings.Fields(chunk) {
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// tradesPath derives a per-input output path when several inputs share one
// -trades-out value.
func tradesPath(base, input string, multi bool) string {
	if !multi {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if ext == "" {
		ext = ".csv"
	}
	return fmt.Sprintf("%s_%s%s", stem, name, ext)
}
