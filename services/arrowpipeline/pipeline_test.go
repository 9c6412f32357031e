package arrowpipeline

import (
	"testing"

	"tradesim/services/marketdata"
)

func sampleBars(n int) []marketdata.Bar {
	bars := make([]marketdata.Bar, n)
	for i := range bars {
		ts := int64(1700000000000 + i*300000)
		c := 100 + float64(i)*0.25
		bars[i] = marketdata.Bar{
			Timestamp: ts,
			Open:      c - 0.1,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    float64(10 + i),
		}
	}
	return bars
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := NewPipeline(Config{}, nil)
	in := sampleBars(10)

	data, err := p.EncodeBars("BTCUSDT", in)
	if err != nil {
		t.Fatalf("EncodeBars: %v", err)
	}
	symbol, out, err := p.DecodeBars(data)
	if err != nil {
		t.Fatalf("DecodeBars: %v", err)
	}
	if symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q, want BTCUSDT", symbol)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d bars, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("bar %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestEncodeChunksAcrossRecords(t *testing.T) {
	p := NewPipeline(Config{BatchSize: 3}, nil)
	in := sampleBars(10)

	data, err := p.EncodeBars("ETHUSDT", in)
	if err != nil {
		t.Fatalf("EncodeBars: %v", err)
	}
	_, out, err := p.DecodeBars(data)
	if err != nil {
		t.Fatalf("DecodeBars: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d bars across chunks, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("bar %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestEncodeEmptyInput(t *testing.T) {
	p := NewPipeline(Config{}, nil)
	if _, err := p.EncodeBars("BTCUSDT", nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestDecodeGarbage(t *testing.T) {
	p := NewPipeline(Config{}, nil)
	if _, _, err := p.DecodeBars([]byte("not arrow")); err == nil {
		t.Fatal("expected error for malformed stream")
	}
}
