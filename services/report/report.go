// Package report aggregates closed trades into ledger-grade figures and
// writes trade exports. Aggregation runs on decimals so the reported sums
// do not drift from the per-trade values.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"tradesim/services/engine"
	"tradesim/services/marketdata"
)

// Summary is the per-run trade ledger rollup.
type Summary struct {
	NetPnl       decimal.Decimal
	GrossProfit  decimal.Decimal
	GrossLoss    decimal.Decimal
	ProfitFactor decimal.Decimal
	WinRate      decimal.Decimal
	Expectancy   decimal.Decimal
	AvgWin       decimal.Decimal
	AvgLoss      decimal.Decimal
	MaxDrawdown  decimal.Decimal
	Wins         int
	Losses       int
	Trades       int
}

// BuildSummary rolls up the ledger and the equity curve. ProfitFactor is
// zero when there are no losing trades.
func BuildSummary(trades []engine.TradeResult, equity []float64) Summary {
	s := Summary{Trades: len(trades)}

	for _, t := range trades {
		pnl := decimal.NewFromFloat(t.Pnl)
		s.NetPnl = s.NetPnl.Add(pnl)
		if t.Pnl > 0 {
			s.Wins++
			s.GrossProfit = s.GrossProfit.Add(pnl)
		} else {
			s.Losses++
			s.GrossLoss = s.GrossLoss.Add(pnl.Abs())
		}
	}

	if s.Trades > 0 {
		n := decimal.NewFromInt(int64(s.Trades))
		s.WinRate = decimal.NewFromInt(int64(s.Wins)).Div(n)
		s.Expectancy = s.NetPnl.Div(n)
	}
	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit.Div(decimal.NewFromInt(int64(s.Wins)))
	}
	if s.Losses > 0 {
		s.AvgLoss = s.GrossLoss.Div(decimal.NewFromInt(int64(s.Losses)))
	}
	if s.GrossLoss.IsPositive() {
		s.ProfitFactor = s.GrossProfit.Div(s.GrossLoss)
	}

	// Drawdown in account currency against the running peak.
	if len(equity) > 0 {
		peak := equity[0]
		maxDD := 0.0
		for _, e := range equity {
			if e > peak {
				peak = e
			}
			if dd := peak - e; dd > maxDD {
				maxDD = dd
			}
		}
		s.MaxDrawdown = decimal.NewFromFloat(maxDD)
	}
	return s
}

var tradeCSVHeader = []string{
	"entry_index", "exit_index", "side", "entry_price", "exit_price", "qty", "pnl", "return",
}

// WriteTradesCSV writes the ledger in the layout downstream notebooks load.
func WriteTradesCSV(w io.Writer, trades []engine.TradeResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, t := range trades {
		side := "long"
		if t.Side == engine.Short {
			side = "short"
		}
		rec := []string{
			strconv.Itoa(t.EntryIndex),
			strconv.Itoa(t.ExitIndex),
			side,
			formatFloat(t.EntryPrice),
			formatFloat(t.ExitPrice),
			formatFloat(t.Quantity),
			formatFloat(t.Pnl),
			formatFloat(t.Return),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write trade %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveTradesCSV is WriteTradesCSV to a file path.
func SaveTradesCSV(path string, trades []engine.TradeResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTradesCSV(f, trades); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var barCSVHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

// WriteBarsCSV writes bars in the layout LoadCSV reads back.
func WriteBarsCSV(w io.Writer, bars []marketdata.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(barCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range bars {
		rec := []string{
			strconv.FormatInt(b.Timestamp, 10),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write bar %d: %w", b.Timestamp, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
