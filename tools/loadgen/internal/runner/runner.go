// Package runner drives a mixed workload against the invoicing API. Writers
// create invoices and feed their IDs into a pool; other workers pick IDs back
// out to record payments, query balances, and cancel.
package runner

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/invoicing/tools/loadgen/internal/api"
	"github.com/invoicing/tools/loadgen/internal/pool"
)

// Config controls a load run.
type Config struct {
	// BaseURL is the backend to target.
	BaseURL string

	// Workers is the number of concurrent workers.
	Workers int

	// Duration is how long the run lasts.
	Duration time.Duration

	// Interval is the pause between requests per worker.
	Interval time.Duration

	// MaxAmount caps generated invoice amounts. The backend rejects
	// invoices above 100, so values above that exercise the validation path.
	MaxAmount float64

	// CreateWeight, PayWeight, QueryWeight, and CancelWeight set the
	// action mix. They need not sum to anything in particular.
	CreateWeight int
	PayWeight    int
	QueryWeight  int
	CancelWeight int
}

// DefaultConfig returns a mix that leans on payments and queries once the
// pool has invoices to hand out.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:8080",
		Workers:      4,
		Duration:     30 * time.Second,
		Interval:     50 * time.Millisecond,
		MaxAmount:    100,
		CreateWeight: 3,
		PayWeight:    4,
		QueryWeight:  2,
		CancelWeight: 1,
	}
}

// Counters tallies request outcomes per action.
type Counters struct {
	Created   atomic.Int64
	Paid      atomic.Int64
	Queried   atomic.Int64
	Cancelled atomic.Int64
	Skipped   atomic.Int64
	Rejected  atomic.Int64
	Failed    atomic.Int64
}

// Runner owns the workers, the client, and the ID pool for one run.
type Runner struct {
	config Config
	client *api.Client
	pool   pool.Pool
	seq    atomic.Int64

	Counters Counters
}

// New creates a Runner backed by an in-memory ID pool.
func New(config Config) *Runner {
	return &Runner{
		config: config,
		client: api.NewClient(config.BaseURL, 10*time.Second),
		pool: pool.NewMemoryPool(pool.Config{
			DefaultTTL: 0,
			MaxPerKind: 5000,
			Eviction:   pool.EvictionFIFO,
		}),
	}
}

// Run executes the workload until the configured duration elapses or the
// context is cancelled, then reports the outcome.
func (r *Runner) Run(ctx context.Context) error {
	defer r.pool.Close()

	ctx, cancel := context.WithTimeout(ctx, r.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < r.config.Workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r.worker(ctx, rand.New(rand.NewSource(seed)))
		}(time.Now().UnixNano() + int64(i))
	}
	wg.Wait()

	// One billing pass at the end so the run also exercises late fees and
	// reminders against whatever went overdue.
	billCtx, billCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer billCancel()
	if err := r.client.RunBilling(billCtx); err != nil {
		log.Printf("billing run after load failed: %v", err)
	}

	r.report(context.Background())
	return nil
}

func (r *Runner) worker(ctx context.Context, rng *rand.Rand) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.step(ctx, rng)
		}
	}
}

func (r *Runner) step(ctx context.Context, rng *rand.Rand) {
	total := r.config.CreateWeight + r.config.PayWeight + r.config.QueryWeight + r.config.CancelWeight
	if total == 0 {
		return
	}

	roll := rng.Intn(total)
	switch {
	case roll < r.config.CreateWeight:
		r.createInvoice(ctx, rng)
	case roll < r.config.CreateWeight+r.config.PayWeight:
		r.recordPayment(ctx, rng)
	case roll < r.config.CreateWeight+r.config.PayWeight+r.config.QueryWeight:
		r.queryInvoice(ctx, rng)
	default:
		r.cancelInvoice(ctx)
	}
}

func (r *Runner) createInvoice(ctx context.Context, rng *rand.Rand) {
	n := r.seq.Add(1)
	amount := 1 + rng.Float64()*(r.config.MaxAmount-1)
	dueDate := time.Now().AddDate(0, 0, rng.Intn(60)-15).UTC()

	inv, err := r.client.CreateInvoice(ctx, api.CreateInvoiceRequest{
		InvoiceNumber: fmt.Sprintf("LOAD-%d-%04d", time.Now().Unix(), n),
		CustomerName:  customerNames[rng.Intn(len(customerNames))],
		Amount:        round2(amount),
		DueDate:       dueDate.Format(time.RFC3339),
	})
	if err != nil {
		r.countErr(err)
		return
	}

	r.Counters.Created.Add(1)
	_, _ = r.pool.Add(ctx, pool.NewHarvested(inv.ID, pool.KindInvoiceID, 0).FromEndpoint("POST /invoices"))
	_, _ = r.pool.Add(ctx, pool.NewHarvested(inv.InvoiceNumber, pool.KindInvoiceNumber, 0).FromEndpoint("POST /invoices"))
}

func (r *Runner) recordPayment(ctx context.Context, rng *rand.Rand) {
	id, ok := r.pickInvoice(ctx)
	if !ok {
		return
	}

	p, err := r.client.RecordPayment(ctx, id, api.RecordPaymentRequest{
		Amount:    round2(1 + rng.Float64()*(r.config.MaxAmount/2)),
		Method:    "BANK_TRANSFER",
		Reference: fmt.Sprintf("TXN-%06d", rng.Intn(1000000)),
	})
	if err != nil {
		r.countErr(err)
		return
	}

	r.Counters.Paid.Add(1)
	_, _ = r.pool.Add(ctx, pool.NewHarvested(p.ID, pool.KindPaymentID, 0).FromEndpoint("POST /invoices/:id/payments"))
}

func (r *Runner) queryInvoice(ctx context.Context, rng *rand.Rand) {
	id, ok := r.pickInvoice(ctx)
	if !ok {
		return
	}

	var err error
	switch rng.Intn(3) {
	case 0:
		_, err = r.client.RemainingAmount(ctx, id)
	case 1:
		_, err = r.client.IsPaid(ctx, id)
	default:
		_, err = r.client.GetInvoice(ctx, id)
	}
	if err != nil {
		r.countErr(err)
		return
	}
	r.Counters.Queried.Add(1)
}

func (r *Runner) cancelInvoice(ctx context.Context) {
	values, err := r.pool.All(ctx, pool.KindInvoiceID)
	if err != nil || len(values) == 0 {
		r.Counters.Skipped.Add(1)
		return
	}
	v := values[0]

	if _, err := r.client.CancelInvoice(ctx, v.Value); err != nil {
		r.countErr(err)
		return
	}

	r.Counters.Cancelled.Add(1)
	// A cancelled invoice rejects further payments, so stop handing it out.
	_, _ = r.pool.Remove(ctx, v)
}

func (r *Runner) pickInvoice(ctx context.Context) (string, bool) {
	v, err := r.pool.Pick(ctx, pool.KindInvoiceID)
	if err != nil || v == nil {
		r.Counters.Skipped.Add(1)
		return "", false
	}
	return v.Value, true
}

// countErr separates the backend's deliberate rejections (business rules,
// terminal invoices, fully paid balances) from real failures.
func (r *Runner) countErr(err error) {
	if apiErr, ok := err.(*api.APIError); ok && apiErr.Status >= 400 && apiErr.Status < 500 {
		r.Counters.Rejected.Add(1)
		return
	}
	r.Counters.Failed.Add(1)
}

func (r *Runner) report(ctx context.Context) {
	stats, err := r.pool.Stats(ctx)
	if err != nil {
		log.Printf("pool stats unavailable: %v", err)
	}

	log.Printf("run complete: created=%d paid=%d queried=%d cancelled=%d rejected=%d skipped=%d failed=%d",
		r.Counters.Created.Load(),
		r.Counters.Paid.Load(),
		r.Counters.Queried.Load(),
		r.Counters.Cancelled.Load(),
		r.Counters.Rejected.Load(),
		r.Counters.Skipped.Load(),
		r.Counters.Failed.Load(),
	)
	log.Printf("pool: values=%d hit_rate=%.1f%% evictions=%d", stats.TotalValues, stats.HitRate(), stats.Evictions)
}

func round2(f float64) float64 {
	return float64(int(f*100)) / 100
}

var customerNames = []string{
	"Acme Corp",
	"Globex Inc",
	"Initech LLC",
	"Umbrella Holdings",
	"Stark Industries",
	"Wayne Enterprises",
	"Wonka Imports",
	"Tyrell Systems",
}
