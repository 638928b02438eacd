package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/clock"
)

// BillingRunner executes one daily billing pass (late fees and reminders).
type BillingRunner interface {
	RunDaily(ctx context.Context) (*invoicingapp.BillingRunSummary, error)
}

// BillingTriggerConfig holds configuration for the daily billing trigger
type BillingTriggerConfig struct {
	// RunHour/RunMinute is the local time of day to run billing (24h format)
	RunHour   int
	RunMinute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultBillingTriggerConfig returns default billing trigger configuration
func DefaultBillingTriggerConfig() BillingTriggerConfig {
	return BillingTriggerConfig{
		RunHour:       2, // 2am
		RunMinute:     0,
		CheckInterval: time.Minute,
	}
}

func (c BillingTriggerConfig) validate() error {
	if c.RunHour < 0 || c.RunHour > 23 {
		return ErrInvalidConfig
	}
	if c.RunMinute < 0 || c.RunMinute > 59 {
		return ErrInvalidConfig
	}
	if c.CheckInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// BillingTrigger fires the daily billing run at a configured time of day.
type BillingTrigger struct {
	config BillingTriggerConfig
	runner BillingRunner
	clock  clock.Clock
	logger *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string // Track which date we last ran for
}

// NewBillingTrigger creates a new daily billing trigger
func NewBillingTrigger(
	config BillingTriggerConfig,
	runner BillingRunner,
	clk clock.Clock,
	logger *zap.Logger,
) (*BillingTrigger, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &BillingTrigger{
		config: config,
		runner: runner,
		clock:  clk,
		logger: logger,
	}, nil
}

// Start starts the billing trigger
func (t *BillingTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Billing trigger started",
		zap.Int("run_hour", t.config.RunHour),
		zap.Int("run_minute", t.config.RunMinute),
		zap.Duration("check_interval", t.config.CheckInterval),
	)

	return nil
}

// Stop stops the billing trigger and waits for an in-flight run to finish
func (t *BillingTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Billing trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerManualRun runs billing immediately, bypassing the time-of-day check.
// The once-per-day guard still applies so a manual run suppresses the
// scheduled run for the same date.
func (t *BillingTrigger) TriggerManualRun(ctx context.Context) (*invoicingapp.BillingRunSummary, error) {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil, ErrTriggerNotRunning
	}
	t.lastRunDate = t.clock.Now().Format("2006-01-02")
	t.mu.Unlock()

	t.logger.Info("Manual billing run triggered")
	return t.runner.RunDaily(ctx)
}

// runLoop checks periodically if it's time to run the daily billing pass
func (t *BillingTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs billing if the configured time has been reached
// and no run happened yet today
func (t *BillingTrigger) checkAndTrigger(ctx context.Context) {
	now := t.clock.Now()
	currentDate := now.Format("2006-01-02")

	// Skip if we already ran today
	t.mu.Lock()
	if t.lastRunDate == currentDate {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	// Check if it's the right time
	if now.Hour() != t.config.RunHour || now.Minute() != t.config.RunMinute {
		return
	}

	t.mu.Lock()
	t.lastRunDate = currentDate
	t.mu.Unlock()

	t.logger.Info("Triggering daily billing run", zap.String("date", currentDate))

	summary, err := t.runner.RunDaily(ctx)
	if err != nil {
		t.logger.Error("Daily billing run failed", zap.Error(err))
		return
	}

	t.logger.Info("Daily billing run completed",
		zap.Int("fees_assessed", summary.FeesAssessed),
		zap.Int("reminders_sent", summary.RemindersSent),
		zap.Int("error_count", len(summary.Errors)),
	)
}
