package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Schedule runs Periodic every interval until ctx is done.  The caller owns
// the returned scheduler and should Shutdown it.
func (r *Reconciler) Schedule(ctx context.Context, interval time.Duration, repair bool) (gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("reconcile interval %v must be positive", interval)
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("can't create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			r.Periodic(ctx, repair)
		}),
		gocron.WithName("reconcile"),
		// A slow run must not overlap the next one.
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return nil, fmt.Errorf("can't schedule reconciliation: %w", err)
	}
	sched.Start()
	log.Printf("reconcile: running every %v (repair=%v)", interval, repair)
	return sched, nil
}
