// Package proto defines the wire types of the backtest service. The gRPC
// surface mirrors the REST one; generated stubs are not checked in yet, so
// the service interface is declared by hand.
package proto

import "context"

type BacktestRequest struct {
	Symbols   []string `json:"symbols"`
	Interval  string   `json:"interval"`
	StartTime int64    `json:"start_time"`
	EndTime   int64    `json:"end_time"`

	// Optional overrides; zero values defer to the server configuration.
	InitialCapital float64 `json:"initial_capital,omitempty"`
	RiskPerTrade   float64 `json:"risk_per_trade,omitempty"`
	ATRStopMult    float64 `json:"atr_stop_mult,omitempty"`
	TakeProfitMult float64 `json:"tp_mult,omitempty"`
	FeePct         float64 `json:"fee_pct,omitempty"`
	SlippagePct    float64 `json:"slippage_pct,omitempty"`
}

type TradeSide int32

const (
	TradeSide_LONG  TradeSide = 0
	TradeSide_SHORT TradeSide = 1
)

// Monetary fields are decimal strings so clients never lose precision to
// JSON number parsing.
type Trade struct {
	EntryIndex int       `json:"entry_index"`
	ExitIndex  int       `json:"exit_index"`
	Side       TradeSide `json:"side"`
	EntryPrice string    `json:"entry_price"`
	ExitPrice  string    `json:"exit_price"`
	Quantity   string    `json:"qty"`
	Pnl        string    `json:"pnl"`
	Return     string    `json:"return"`
}

type EquityPoint struct {
	Timestamp int64  `json:"timestamp"`
	Equity    string `json:"equity"`
}

type SymbolSummary struct {
	FinalEquity    string `json:"final_equity"`
	ReturnPct      string `json:"return_pct"`
	MaxDrawdownPct string `json:"max_drawdown_pct"`
	Sharpe         string `json:"sharpe"`
	WinPct         string `json:"win_pct"`
	Trades         int    `json:"trades"`
}

type SymbolResult struct {
	Symbol      string         `json:"symbol"`
	Summary     *SymbolSummary `json:"summary"`
	Trades      []*Trade       `json:"trades"`
	EquityCurve []*EquityPoint `json:"equity_curve"`
	// OpenAtEnd is set when a position was still held after the last bar;
	// it never appears in Trades.
	OpenAtEnd bool `json:"open_at_end"`
}

type BacktestResponse struct {
	JobId           string          `json:"job_id"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	SymbolResults   []*SymbolResult `json:"symbol_results"`
}

// gRPC server interface stub

type BacktestServiceServer interface {
	ExecuteBacktest(context.Context, *BacktestRequest) (*BacktestResponse, error)
}

type UnimplementedBacktestServiceServer struct{}

func (UnimplementedBacktestServiceServer) ExecuteBacktest(context.Context, *BacktestRequest) (*BacktestResponse, error) {
	return nil, nil
}

func RegisterBacktestServiceServer(_ any, _ BacktestServiceServer) {}
