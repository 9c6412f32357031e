// Package marketdata loads OHLCV bar series from CSV files and ClickHouse
// and normalizes them into one Bar shape for the rest of the system.
package marketdata

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Bar is one OHLCV candle. Timestamp is UTC epoch milliseconds of the open.
type Bar struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// column synonyms accepted in CSV headers, lower-cased.
var columnAliases = map[string]string{
	"time":        "timestamp",
	"date":        "timestamp",
	"datetime":    "timestamp",
	"open_time":   "timestamp",
	"timestamp":   "timestamp",
	"open":        "open",
	"o":           "open",
	"high":        "high",
	"h":           "high",
	"low":         "low",
	"l":           "low",
	"close":       "close",
	"c":           "close",
	"close_price": "close",
	"price":       "close",
	"volume":      "volume",
	"vol":         "volume",
	"v":           "volume",
}

// LoadCSV reads a bar series from path. Headers are matched by common
// synonyms; timestamp and close are required, the other columns fall back
// to the close (volume to zero) so close-only exports still load. Rows are
// returned sorted by timestamp with duplicates collapsed keep-last.
func LoadCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV is LoadCSV over an arbitrary reader. UTF-16 input (Excel exports
// carry a BOM) is decoded transparently.
func ReadCSV(r io.Reader) ([]Bar, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(2); err == nil && len(head) == 2 {
		if (head[0] == 0xFF && head[1] == 0xFE) || (head[0] == 0xFE && head[1] == 0xFF) {
			dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
			return parseCSV(csv.NewReader(transform.NewReader(br, dec)))
		}
	}
	return parseCSV(csv.NewReader(br))
}

func parseCSV(cr *csv.Reader) ([]Bar, error) {
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := map[string]int{}
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if canon, ok := columnAliases[name]; ok {
			if _, seen := idx[canon]; !seen {
				idx[canon] = i
			}
		}
	}
	for _, required := range []string{"timestamp", "close"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("csv is missing a %s column (header: %s)", required, strings.Join(header, ","))
		}
	}

	bars := make([]Bar, 0, 1024)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++

		ts, err := parseTimestamp(rec[idx["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		closeP, err := parseFloat(rec[idx["close"]])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: close: %w", line, err)
		}

		b := Bar{Timestamp: ts, Open: closeP, High: closeP, Low: closeP, Close: closeP}
		if i, ok := idx["open"]; ok {
			if b.Open, err = parseFloat(rec[i]); err != nil {
				return nil, fmt.Errorf("csv line %d: open: %w", line, err)
			}
		}
		if i, ok := idx["high"]; ok {
			if b.High, err = parseFloat(rec[i]); err != nil {
				return nil, fmt.Errorf("csv line %d: high: %w", line, err)
			}
		}
		if i, ok := idx["low"]; ok {
			if b.Low, err = parseFloat(rec[i]); err != nil {
				return nil, fmt.Errorf("csv line %d: low: %w", line, err)
			}
		}
		if i, ok := idx["volume"]; ok {
			if b.Volume, err = parseFloat(rec[i]); err != nil {
				return nil, fmt.Errorf("csv line %d: volume: %w", line, err)
			}
		}
		bars = append(bars, b)
	}

	return Normalize(bars), nil
}

// Normalize sorts bars by timestamp and collapses duplicate timestamps,
// keeping the last occurrence. The sort is stable so keep-last holds for
// rows that were adjacent in file order.
func Normalize(bars []Bar) []Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Timestamp == b.Timestamp {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// DetectGaps returns the indices i where bars[i] does not open exactly
// intervalMs after bars[i-1].
func DetectGaps(bars []Bar, intervalMs int64) []int {
	var gaps []int
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp-bars[i-1].Timestamp != intervalMs {
			gaps = append(gaps, i)
		}
	}
	return gaps
}

// Closes extracts the aligned close, high and low series the strategy and
// simulator consume.
func Closes(bars []Bar) (high, low, closeP []float64) {
	high = make([]float64, len(bars))
	low = make([]float64, len(bars))
	closeP = make([]float64, len(bars))
	for i, b := range bars {
		high[i], low[i], closeP[i] = b.High, b.Low, b.Close
	}
	return high, low, closeP
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts epoch milliseconds, epoch seconds, or a small set
// of datetime layouts, always as UTC.
func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 1e12 { // epoch seconds up to year 33658
			return n * 1000, nil
		}
		return n, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`)), 64)
}
