package marketdata

import (
	"fmt"
	"strconv"
	"strings"
)

// Resample aggregates bars into buckets of intervalMs, aligned to epoch
// boundaries. Open is the first bar's open, close the last bar's close,
// high/low the extremes, volume the sum. Input must be sorted; buckets
// with no source bars are simply absent.
func Resample(bars []Bar, intervalMs int64) ([]Bar, error) {
	if intervalMs <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %d", intervalMs)
	}
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		bucket := b.Timestamp - b.Timestamp%intervalMs
		if n := len(out); n > 0 && out[n-1].Timestamp == bucket {
			cur := &out[n-1]
			if b.High > cur.High {
				cur.High = b.High
			}
			if b.Low < cur.Low {
				cur.Low = b.Low
			}
			cur.Close = b.Close
			cur.Volume += b.Volume
			continue
		}
		if n := len(out); n > 0 && out[n-1].Timestamp > bucket {
			return nil, fmt.Errorf("bars are not sorted at timestamp %d", b.Timestamp)
		}
		out = append(out, Bar{
			Timestamp: bucket,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	return out, nil
}

// ParseInterval converts cadences like "5m", "1h", "1d" (or a bare minute
// count) to milliseconds.
func ParseInterval(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	mult := int64(60_000)
	switch {
	case strings.HasSuffix(s, "min"):
		s = strings.TrimSuffix(s, "min")
	case strings.HasSuffix(s, "m"):
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "h"):
		s = strings.TrimSuffix(s, "h")
		mult = 3_600_000
	case strings.HasSuffix(s, "d"):
		s = strings.TrimSuffix(s, "d")
		mult = 86_400_000
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unsupported interval %q", s)
	}
	return int64(n) * mult, nil
}
