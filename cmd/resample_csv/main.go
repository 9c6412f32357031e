// Package main resamples a bar CSV to a coarser cadence, e.g. 5m to 15m.
package main

import (
	"flag"
	"log"
	"os"

	"tradesim/services/marketdata"
	"tradesim/services/report"
)

func main() {
	in := flag.String("in", "", "Input CSV (timestamp,open,high,low,close,volume)")
	out := flag.String("out", "", "Output CSV path")
	dst := flag.String("dst", "15m", "Target cadence (e.g. 15m, 1h)")
	flag.Parse()

	log.SetFlags(0)
	if *in == "" || *out == "" {
		log.Fatal("-in and -out are required")
	}

	intervalMs, err := marketdata.ParseInterval(*dst)
	if err != nil {
		log.Fatal(err)
	}

	bars, err := marketdata.LoadCSV(*in)
	if err != nil {
		log.Fatalf("load %s: %v", *in, err)
	}
	resampled, err := marketdata.Resample(bars, intervalMs)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	if err := report.WriteBarsCSV(f, resampled); err != nil {
		f.Close()
		log.Fatalf("write %s: %v", *out, err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("%s: %d bars -> %s: %d bars at %s", *in, len(bars), *out, len(resampled), *dst)
}
