// Package arrowpipeline serializes bar series to and from Arrow IPC, the
// wire format the HTTP API uses for bulk bar transfer.
package arrowpipeline

import (
	"bytes"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"go.uber.org/zap"

	"tradesim/services/marketdata"
)

// Config holds Arrow pipeline configuration.
type Config struct {
	BatchSize int `yaml:"batch_size"`
}

// Pipeline encodes and decodes bar batches.
type Pipeline struct {
	cfg    Config
	pool   memory.Allocator
	logger *zap.Logger
}

// NewPipeline builds a pipeline. A nil logger is replaced with a no-op one.
func NewPipeline(cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8192
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, pool: memory.NewGoAllocator(), logger: logger}
}

func barSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "symbol", Type: arrow.BinaryTypes.String},
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "open", Type: arrow.PrimitiveTypes.Float64},
		{Name: "high", Type: arrow.PrimitiveTypes.Float64},
		{Name: "low", Type: arrow.PrimitiveTypes.Float64},
		{Name: "close", Type: arrow.PrimitiveTypes.Float64},
		{Name: "volume", Type: arrow.PrimitiveTypes.Float64},
	}, nil)
}

// EncodeBars serializes one symbol's bars as an Arrow IPC stream, chunked
// into records of at most BatchSize rows.
func (p *Pipeline) EncodeBars(symbol string, bars []marketdata.Bar) ([]byte, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to encode")
	}
	schema := barSchema()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(p.pool))

	for start := 0; start < len(bars); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(bars) {
			end = len(bars)
		}
		rec := p.buildRecord(schema, symbol, bars[start:end])
		err := w.Write(rec)
		rec.Release()
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("write arrow record: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close arrow writer: %w", err)
	}
	p.logger.Debug("bars encoded",
		zap.String("symbol", symbol),
		zap.Int("rows", len(bars)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func (p *Pipeline) buildRecord(schema *arrow.Schema, symbol string, bars []marketdata.Bar) arrow.Record {
	symbolB := array.NewStringBuilder(p.pool)
	tsB := array.NewUint64Builder(p.pool)
	openB := array.NewFloat64Builder(p.pool)
	highB := array.NewFloat64Builder(p.pool)
	lowB := array.NewFloat64Builder(p.pool)
	closeB := array.NewFloat64Builder(p.pool)
	volumeB := array.NewFloat64Builder(p.pool)

	for _, b := range bars {
		symbolB.Append(symbol)
		tsB.Append(uint64(b.Timestamp))
		openB.Append(b.Open)
		highB.Append(b.High)
		lowB.Append(b.Low)
		closeB.Append(b.Close)
		volumeB.Append(b.Volume)
	}

	cols := []arrow.Array{
		symbolB.NewStringArray(),
		tsB.NewUint64Array(),
		openB.NewFloat64Array(),
		highB.NewFloat64Array(),
		lowB.NewFloat64Array(),
		closeB.NewFloat64Array(),
		volumeB.NewFloat64Array(),
	}
	rec := array.NewRecord(schema, cols, int64(len(bars)))
	for _, c := range cols {
		c.Release()
	}
	return rec
}

// DecodeBars reads an Arrow IPC stream produced by EncodeBars (or any
// writer with the same schema) back into bars. The symbol is taken from
// the first row.
func (p *Pipeline) DecodeBars(data []byte) (string, []marketdata.Bar, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(p.pool))
	if err != nil {
		return "", nil, fmt.Errorf("open arrow reader: %w", err)
	}
	defer r.Release()

	symbol := ""
	var bars []marketdata.Bar
	for r.Next() {
		rec := r.Record()
		syms, ok := rec.Column(0).(*array.String)
		if !ok {
			return "", nil, fmt.Errorf("column 0: want string symbols, got %s", rec.Column(0).DataType())
		}
		ts, ok := rec.Column(1).(*array.Uint64)
		if !ok {
			return "", nil, fmt.Errorf("column 1: want uint64 timestamps, got %s", rec.Column(1).DataType())
		}
		open, err := floatColumn(rec, 2)
		if err != nil {
			return "", nil, err
		}
		high, err := floatColumn(rec, 3)
		if err != nil {
			return "", nil, err
		}
		low, err := floatColumn(rec, 4)
		if err != nil {
			return "", nil, err
		}
		closeC, err := floatColumn(rec, 5)
		if err != nil {
			return "", nil, err
		}
		volume, err := floatColumn(rec, 6)
		if err != nil {
			return "", nil, err
		}

		for i := 0; i < int(rec.NumRows()); i++ {
			if symbol == "" {
				symbol = syms.Value(i)
			}
			bars = append(bars, marketdata.Bar{
				Timestamp: int64(ts.Value(i)),
				Open:      open.Value(i),
				High:      high.Value(i),
				Low:       low.Value(i),
				Close:     closeC.Value(i),
				Volume:    volume.Value(i),
			})
		}
	}
	if err := r.Err(); err != nil && err != io.EOF {
		return "", nil, fmt.Errorf("read arrow stream: %w", err)
	}
	if len(bars) == 0 {
		return "", nil, fmt.Errorf("arrow stream carried no rows")
	}
	return symbol, bars, nil
}

func floatColumn(rec arrow.Record, i int) (*array.Float64, error) {
	col, ok := rec.Column(i).(*array.Float64)
	if !ok {
		return nil, fmt.Errorf("column %d: want float64, got %s", i, rec.Column(i).DataType())
	}
	return col, nil
}
