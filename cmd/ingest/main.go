// Package main loads bar CSVs into the ClickHouse store. Re-running over
// the same files is safe: the table dedupes on (symbol, interval, open time).
package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"tradesim/services/config"
	"tradesim/services/marketdata"
)

func main() {
	configPath := flag.String("config", "", "YAML config path")
	csvList := flag.String("csv", "", "CSV path(s), comma separated")
	symbol := flag.String("symbol", "", "Symbol (defaults to the file name stem)")
	interval := flag.String("interval", "", "Bar interval (defaults to engine.interval)")
	checkGaps := flag.Bool("check-gaps", true, "Report missing bars before ingesting")
	flag.Parse()

	log.SetFlags(0)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *interval == "" {
		*interval = cfg.Engine.Interval
	}
	intervalMs, err := marketdata.ParseInterval(*interval)
	if err != nil {
		log.Fatal(err)
	}

	paths := strings.Split(*csvList, ",")
	if *csvList == "" || len(paths) == 0 {
		log.Fatal("no input: pass -csv with one or more bar files")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	store, err := marketdata.OpenStore(ctx, cfg.ClickHouse, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		bars, err := marketdata.LoadCSV(path)
		if err != nil {
			log.Fatalf("load %s: %v", path, err)
		}
		sym := *symbol
		if sym == "" {
			sym = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if *checkGaps {
			if gaps := marketdata.DetectGaps(bars, intervalMs); len(gaps) > 0 {
				log.Printf("WARN: %s has %d gaps at %s cadence (first at row %d)",
					path, len(gaps), *interval, gaps[0])
			}
		}
		if err := store.InsertBars(ctx, sym, *interval, bars); err != nil {
			log.Fatalf("ingest %s: %v", path, err)
		}
		log.Printf("%s: %d bars ingested as %s/%s", path, len(bars), sym, *interval)
	}
}
