package status

import (
	"context"
	"log"
	"time"
)

// Janitor sweeps the tracker on a timer and clears stale runs. It owns
// its goroutine; Start and Stop bound its lifecycle.
type Janitor struct {
	tracker  *Tracker
	interval time.Duration
	ceiling  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewJanitor creates a janitor sweeping every interval; runs non-idle and
// non-terminal for longer than ceiling are force-failed.
func NewJanitor(tracker *Tracker, interval, ceiling time.Duration) *Janitor {
	return &Janitor{
		tracker:  tracker,
		interval: interval,
		ceiling:  ceiling,
	}
}

// Start launches the sweep loop. Calling Start twice is a no-op.
func (j *Janitor) Start() {
	if j.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})

	go j.loop(ctx)
	log.Printf("janitor: started (interval %s, stale ceiling %s)", j.interval, j.ceiling)
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
	j.cancel = nil
	log.Println("janitor: stopped")
}

func (j *Janitor) loop(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cleared := j.tracker.SweepStale(j.ceiling); len(cleared) > 0 {
				log.Printf("janitor: cleared %d stale run(s): %v", len(cleared), cleared)
			}
		}
	}
}
