package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

// StoreConfig locates the ClickHouse bar table.
type StoreConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
}

// Store persists and serves bar series from ClickHouse. The table is a
// ReplacingMergeTree keyed by (symbol, interval, open_time_ms), so repeated
// ingestion of the same range stays idempotent.
type Store struct {
	conn   clickhouse.Conn
	cfg    StoreConfig
	logger *zap.Logger
}

// OpenStore connects, pings, and ensures the schema exists.
func OpenStore(ctx context.Context, cfg StoreConfig, logger *zap.Logger) (*Store, error) {
	if cfg.Table == "" {
		cfg.Table = "bars"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	s := &Store{conn: conn, cfg: cfg, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.cfg.Database)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			symbol String,
			interval LowCardinality(String),
			open_time_ms UInt64,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			ingested_at DateTime64(3),
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, interval, open_time_ms)
		SETTINGS index_granularity = 8192
	`, s.cfg.Database, s.cfg.Table)
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// InsertBars batches bars into the store. version is the ingestion time, so
// re-ingesting a range replaces rather than duplicates.
func (s *Store) InsertBars(ctx context.Context, symbol, interval string, bars []Bar) error {
	if len(bars) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s.%s SETTINGS insert_deduplicate=1", s.cfg.Database, s.cfg.Table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	now := time.Now().UTC()
	version := uint64(now.UnixMilli())
	for _, b := range bars {
		if err := batch.Append(
			symbol,
			interval,
			uint64(b.Timestamp),
			b.Open,
			b.High,
			b.Low,
			b.Close,
			b.Volume,
			now,
			version,
		); err != nil {
			return fmt.Errorf("append bar %d: %w", b.Timestamp, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	s.logger.Info("bars ingested",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("rows", len(bars)))
	return nil
}

// QueryBars reads the deduplicated series for one symbol and interval in
// [fromMs, toMs), ordered by open time. Pass toMs <= 0 for no upper bound.
func (s *Store) QueryBars(ctx context.Context, symbol, interval string, fromMs, toMs int64) ([]Bar, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `
		SELECT open_time_ms, open, high, low, close, volume
		FROM %s.%s FINAL
		WHERE symbol = ? AND interval = ? AND open_time_ms >= ?`,
		s.cfg.Database, s.cfg.Table)
	args := []any{symbol, interval, uint64(max64(fromMs, 0))}
	if toMs > 0 {
		sb.WriteString(" AND open_time_ms < ?")
		args = append(args, uint64(toMs))
	}
	sb.WriteString(" ORDER BY open_time_ms")

	rows, err := s.conn.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []Bar
	for rows.Next() {
		var (
			ts  uint64
			bar Bar
		)
		if err := rows.Scan(&ts, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bar.Timestamp = int64(ts)
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}
	return bars, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.conn.Close() }

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
