package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"vitacore/internal/services"
)

// SessionReaper periodically evicts completion sessions that have gone
// quiet. A session counts as stale once it has seen no turn for maxIdle.
type SessionReaper struct {
	store     *services.SessionStore
	maxIdle   time.Duration
	scheduler gocron.Scheduler
}

// NewSessionReaper creates a reaper for the given store. maxIdle must be
// positive; a zero TTL means the caller should not run a reaper at all.
func NewSessionReaper(store *services.SessionStore, maxIdle time.Duration) (*SessionReaper, error) {
	if maxIdle <= 0 {
		return nil, fmt.Errorf("session reaper requires a positive TTL, got %v", maxIdle)
	}

	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reaper scheduler: %w", err)
	}

	return &SessionReaper{
		store:     store,
		maxIdle:   maxIdle,
		scheduler: scheduler,
	}, nil
}

// Start schedules the sweep and begins running it. Sweeps run at half the
// TTL so a session overstays by at most 50%.
func (r *SessionReaper) Start() error {
	interval := r.maxIdle / 2
	if interval < time.Minute {
		interval = time.Minute
	}

	_, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.sweep),
		gocron.WithName("completion-session-reaper"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule session reaper: %w", err)
	}

	r.scheduler.Start()
	log.Printf("🧹 Session reaper started (ttl=%v, sweep every %v)", r.maxIdle, interval)
	return nil
}

func (r *SessionReaper) sweep() {
	if removed := r.store.Reap(r.maxIdle); removed > 0 {
		log.Printf("🧹 Session reaper evicted %d stale session(s)", removed)
	}
}

// Stop shuts the scheduler down, waiting for an in-flight sweep.
func (r *SessionReaper) Stop() {
	if err := r.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️ Session reaper shutdown error: %v", err)
	}
}
