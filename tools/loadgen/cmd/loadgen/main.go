// Command loadgen generates load against an invoicing backend. It creates
// invoices, recycles their IDs through payments, balance queries, and
// cancellations, and prints a summary when the run ends.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/invoicing/tools/loadgen/internal/runner"
)

func main() {
	cfg := runner.DefaultConfig()

	flag.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "backend base URL")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "how long to run")
	flag.DurationVar(&cfg.Interval, "interval", cfg.Interval, "pause between requests per worker")
	flag.Float64Var(&cfg.MaxAmount, "max-amount", cfg.MaxAmount, "maximum generated invoice amount")
	flag.IntVar(&cfg.CreateWeight, "create", cfg.CreateWeight, "weight of invoice creation in the mix")
	flag.IntVar(&cfg.PayWeight, "pay", cfg.PayWeight, "weight of payments in the mix")
	flag.IntVar(&cfg.QueryWeight, "query", cfg.QueryWeight, "weight of balance queries in the mix")
	flag.IntVar(&cfg.CancelWeight, "cancel", cfg.CancelWeight, "weight of cancellations in the mix")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("starting load run: url=%s workers=%d duration=%s", cfg.BaseURL, cfg.Workers, cfg.Duration)
	start := time.Now()

	r := runner.New(cfg)
	if err := r.Run(ctx); err != nil {
		log.Fatalf("load run failed: %v", err)
	}

	log.Printf("elapsed: %s", time.Since(start).Round(time.Millisecond))
}
