package override

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "bizday/internal/log"
)

const reloadTimeout = 30 * time.Second

// Reloader re-reads overrides on a cron schedule.
type Reloader struct {
	store *Store
	cron  *cron.Cron
}

// NewReloader schedules store.Reload according to schedule, which accepts the
// standard five-field syntax and descriptors such as "@every 5m".
func NewReloader(store *Store, schedule string) (*Reloader, error) {
	r := &Reloader{store: store, cron: cron.New()}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("override reload schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins running the schedule in its own goroutine.
func (r *Reloader) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running reload to finish or ctx
// to expire.
func (r *Reloader) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (r *Reloader) run() {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	if err := r.store.Reload(ctx); err != nil {
		return
	}
	appLog.Debug("scheduled override reload done", "generation", r.store.Generation())
}
