// Package main runs the backtest service: a REST and gRPC front over the
// ClickHouse bar store, the signal pipeline and the simulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	pb "tradesim/proto"
	"tradesim/services/arrowpipeline"
	"tradesim/services/config"
	"tradesim/services/engine"
	"tradesim/services/marketdata"
	"tradesim/strategies"
)

// BacktestService serves backtests over gRPC and REST.
type BacktestService struct {
	pb.UnimplementedBacktestServiceServer
	store    *marketdata.Store
	pipeline *arrowpipeline.Pipeline
	cfg      *config.Config
	logger   *zap.Logger
}

func NewBacktestService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*BacktestService, error) {
	store, err := marketdata.OpenStore(ctx, cfg.ClickHouse, logger)
	if err != nil {
		return nil, fmt.Errorf("open bar store: %w", err)
	}
	return &BacktestService{
		store:    store,
		pipeline: arrowpipeline.NewPipeline(cfg.Arrow, logger),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ExecuteBacktest runs the configured strategy for every requested symbol
// in parallel and aggregates the per-symbol results.
func (s *BacktestService) ExecuteBacktest(ctx context.Context, req *pb.BacktestRequest) (*pb.BacktestResponse, error) {
	started := time.Now()
	jobID := uuid.New().String()

	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("request names no symbols")
	}
	simCfg := s.simConfig(req)
	if err := simCfg.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("backtest started",
		zap.String("job_id", jobID),
		zap.Strings("symbols", req.Symbols),
		zap.String("interval", s.interval(req)),
	)

	numWorkers := runtime.NumCPU()
	if s.cfg.Engine.MaxWorkers > 0 {
		numWorkers = s.cfg.Engine.MaxWorkers
	}
	if numWorkers > len(req.Symbols) {
		numWorkers = len(req.Symbols)
	}

	symbolChan := make(chan string, len(req.Symbols))
	resultChan := make(chan *pb.SymbolResult, len(req.Symbols))
	errorChan := make(chan error, len(req.Symbols))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range symbolChan {
				res, err := s.processSymbol(ctx, req, simCfg, symbol)
				if err != nil {
					errorChan <- fmt.Errorf("symbol %s: %w", symbol, err)
					continue
				}
				resultChan <- res
			}
		}()
	}
	for _, symbol := range req.Symbols {
		symbolChan <- symbol
	}
	close(symbolChan)
	wg.Wait()
	close(resultChan)
	close(errorChan)

	for err := range errorChan {
		s.logger.Error("backtest failed", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}

	results := make([]*pb.SymbolResult, 0, len(req.Symbols))
	for res := range resultChan {
		results = append(results, res)
	}

	s.logger.Info("backtest completed",
		zap.String("job_id", jobID),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("symbols", len(results)),
	)
	return &pb.BacktestResponse{
		JobId:           jobID,
		ExecutionTimeMs: time.Since(started).Milliseconds(),
		SymbolResults:   results,
	}, nil
}

func (s *BacktestService) processSymbol(ctx context.Context, req *pb.BacktestRequest, simCfg engine.SimConfig, symbol string) (*pb.SymbolResult, error) {
	bars, err := s.store.QueryBars(ctx, symbol, s.interval(req), req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars in range")
	}
	return s.runBars(symbol, bars, simCfg)
}

// runBars runs the strategy and the simulator over one symbol's bars.
func (s *BacktestService) runBars(symbol string, bars []marketdata.Bar, simCfg engine.SimConfig) (*pb.SymbolResult, error) {
	high, low, closes := marketdata.Closes(bars)
	signals, ind := strategies.RSIMASignals(high, low, closes, s.cfg.Strategy)

	sim, err := engine.NewSimulator(simCfg, nil)
	if err != nil {
		return nil, err
	}
	res, err := sim.Run(closes, signals, ind.ATR)
	if err != nil {
		return nil, err
	}
	summary := engine.Summarize(res.Equity, res.Trades, s.cfg.Engine.BarsPerDay)

	out := &pb.SymbolResult{
		Symbol:    symbol,
		Summary:   toProtoSummary(summary),
		Trades:    toProtoTrades(res.Trades),
		OpenAtEnd: res.OpenPosition != nil,
	}
	out.EquityCurve = make([]*pb.EquityPoint, len(res.Equity))
	for i, e := range res.Equity {
		out.EquityCurve[i] = &pb.EquityPoint{
			Timestamp: bars[i].Timestamp,
			Equity:    decimal.NewFromFloat(e).String(),
		}
	}
	return out, nil
}

// simConfig folds request overrides over the configured run parameters.
func (s *BacktestService) simConfig(req *pb.BacktestRequest) engine.SimConfig {
	r := s.cfg.Risk
	cfg := engine.SimConfig{
		InitialCapital: r.InitialCapital,
		RiskPerTrade:   r.RiskPerTrade,
		ATRStopMult:    r.ATRStopMult,
		TakeProfitMult: r.TakeProfitMult,
		FeeRate:        r.FeePct,
		SlippageRate:   r.SlippagePct,
	}
	if req.InitialCapital > 0 {
		cfg.InitialCapital = req.InitialCapital
	}
	if req.RiskPerTrade > 0 {
		cfg.RiskPerTrade = req.RiskPerTrade
	}
	if req.ATRStopMult > 0 {
		cfg.ATRStopMult = req.ATRStopMult
	}
	if req.TakeProfitMult > 0 {
		cfg.TakeProfitMult = req.TakeProfitMult
	}
	if req.FeePct > 0 {
		cfg.FeeRate = req.FeePct
	}
	if req.SlippagePct > 0 {
		cfg.SlippageRate = req.SlippagePct
	}
	return cfg
}

func (s *BacktestService) interval(req *pb.BacktestRequest) string {
	if req.Interval != "" {
		return req.Interval
	}
	return s.cfg.Engine.Interval
}

func toProtoSummary(sum engine.Summary) *pb.SymbolSummary {
	return &pb.SymbolSummary{
		FinalEquity:    decimal.NewFromFloat(sum.FinalEquity).String(),
		ReturnPct:      decimal.NewFromFloat(sum.ReturnPct).String(),
		MaxDrawdownPct: decimal.NewFromFloat(sum.MaxDrawdownPct).String(),
		Sharpe:         decimal.NewFromFloat(sum.Sharpe).String(),
		WinPct:         decimal.NewFromFloat(sum.WinPct).String(),
		Trades:         sum.Trades,
	}
}

func toProtoTrades(trades []engine.TradeResult) []*pb.Trade {
	out := make([]*pb.Trade, len(trades))
	for i, t := range trades {
		side := pb.TradeSide_LONG
		if t.Side == engine.Short {
			side = pb.TradeSide_SHORT
		}
		out[i] = &pb.Trade{
			EntryIndex: t.EntryIndex,
			ExitIndex:  t.ExitIndex,
			Side:       side,
			EntryPrice: decimal.NewFromFloat(t.EntryPrice).String(),
			ExitPrice:  decimal.NewFromFloat(t.ExitPrice).String(),
			Quantity:   decimal.NewFromFloat(t.Quantity).String(),
			Pnl:        decimal.NewFromFloat(t.Pnl).String(),
			Return:     decimal.NewFromFloat(t.Return).String(),
		}
	}
	return out
}

// HTTP handlers

func (s *BacktestService) setupHTTPRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/backtest", s.handleBacktest)
		api.POST("/backtest/bars", s.handleBacktestBars)
		api.GET("/bars", s.handleExportBars)
		api.POST("/bars/:symbol/:interval", s.handleIngestBars)
		api.GET("/health", s.handleHealth)
	}
}

func (s *BacktestService) handleBacktest(c *gin.Context) {
	var req pb.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := s.ExecuteBacktest(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleBacktestBars runs an ad-hoc backtest over bars carried in the
// request body as an Arrow IPC stream, bypassing the store.
func (s *BacktestService) handleBacktestBars(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	symbol, bars, err := s.pipeline.DecodeBars(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.runBars(symbol, marketdata.Normalize(bars), s.simConfig(&pb.BacktestRequest{}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, &pb.BacktestResponse{
		JobId:         uuid.New().String(),
		SymbolResults: []*pb.SymbolResult{res},
	})
}

// handleExportBars streams a stored range back as Arrow IPC.
func (s *BacktestService) handleExportBars(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	interval := c.DefaultQuery("interval", s.cfg.Engine.Interval)
	from, _ := strconv.ParseInt(c.DefaultQuery("from", "0"), 10, 64)
	to, _ := strconv.ParseInt(c.DefaultQuery("to", "0"), 10, 64)

	bars, err := s.store.QueryBars(c.Request.Context(), symbol, interval, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(bars) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no bars in range"})
		return
	}
	data, err := s.pipeline.EncodeBars(symbol, bars)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/vnd.apache.arrow.stream", data)
}

// handleIngestBars accepts an Arrow IPC stream and persists it.
func (s *BacktestService) handleIngestBars(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, bars, err := s.pipeline.DecodeBars(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	symbol := c.Param("symbol")
	interval := c.Param("interval")
	if err := s.store.InsertBars(c.Request.Context(), symbol, interval, marketdata.Normalize(bars)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "interval": interval, "rows": len(bars)})
}

func (s *BacktestService) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting backtest service", zap.String("environment", cfg.Environment))

	ctx := context.Background()
	service, err := NewBacktestService(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("create service", zap.Error(err))
	}
	defer service.store.Close()

	grpcServer := grpc.NewServer()
	pb.RegisterBacktestServiceServer(grpcServer, service)
	reflection.Register(grpcServer)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	service.setupHTTPRoutes(router)

	go func() {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Fatal("listen grpc", zap.Error(err))
		}
		logger.Info("grpc listening", zap.String("addr", cfg.Server.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("serve grpc", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := router.Run(cfg.Server.HTTPAddr); err != nil {
			logger.Fatal("serve http", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	grpcServer.GracefulStop()
}
