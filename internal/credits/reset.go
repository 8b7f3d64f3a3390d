// Package credits runs the periodic balance reset.
package credits

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Balances is the slice of the store the resetter needs.
type Balances interface {
	ResetAllCredits(ctx context.Context, amount int) error
}

// Resetter restores every user's balance once per interval. Runs are
// serialized: a slow run delays the next one instead of overlapping it.
type Resetter struct {
	cron   *cron.Cron
	store  Balances
	amount int
	logger *slog.Logger
}

func NewResetter(store Balances, amount int, logger *slog.Logger) *Resetter {
	return &Resetter{
		cron:   cron.New(cron.WithChain(cron.DelayIfStillRunning(cron.DiscardLogger))),
		store:  store,
		amount: amount,
		logger: logger,
	}
}

// Start schedules the reset job. The first run happens one interval after
// startup, matching the reference behavior.
func (r *Resetter) Start(interval time.Duration) error {
	spec := fmt.Sprintf("@every %s", interval)
	_, err := r.cron.AddFunc(spec, r.run)
	if err != nil {
		return fmt.Errorf("failed to schedule credit reset: %w", err)
	}
	r.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (r *Resetter) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Resetter) run() {
	if err := r.store.ResetAllCredits(context.Background(), r.amount); err != nil {
		r.logger.Error("credit reset failed", "error", err)
		return
	}
	r.logger.Info("credits reset", "amount", r.amount)
}
