// Package status tracks the per-stream run state machine and clears
// runs that stall out.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

// Tracker owns one StreamStatus per registered stream. It is the only
// state shared across concurrent runs; every mutation happens under the
// lock so the owning run and the janitor never race.
type Tracker struct {
	mu       sync.RWMutex
	statuses map[string]*models.StreamStatus

	now func() time.Time
}

// NewTracker creates a tracker with an idle entry per stream id.
func NewTracker(streamIDs []string) *Tracker {
	statuses := make(map[string]*models.StreamStatus, len(streamIDs))
	now := time.Now()
	for _, id := range streamIDs {
		statuses[id] = &models.StreamStatus{
			StreamID:   id,
			Stage:      models.StageIdle,
			LastUpdate: now,
		}
	}
	return &Tracker{statuses: statuses, now: time.Now}
}

// Begin claims the stream for a new run. Idle and terminal stages are
// claimable; an in-progress stage is not, which enforces single-flight
// per stream id.
func (t *Tracker) Begin(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.statuses[id]
	if !ok {
		return fmt.Errorf("unknown stream: %s", id)
	}
	if st.Stage != models.StageIdle && !st.Stage.Terminal() {
		return fmt.Errorf("stream %s already has a run in progress (stage %s)", id, st.Stage)
	}

	started := t.now()
	st.Stage = models.StageCapturing
	st.Detail = "run started"
	st.Progress = 5
	st.StartedAt = &started
	st.LastUpdate = started
	return nil
}

// Advance moves the stream to a later in-progress stage. Progress is an
// observational hint only and never drives control flow.
func (t *Tracker) Advance(id string, stage models.Stage, detail string, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.statuses[id]
	if !ok {
		return
	}
	st.Stage = stage
	st.Detail = detail
	st.Progress = progress
	st.LastUpdate = t.now()
}

// Complete marks the run finished. The entry stays readable as completed
// and is immediately reclaimable by the next Begin.
func (t *Tracker) Complete(id string, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.statuses[id]
	if !ok {
		return
	}
	st.Stage = models.StageCompleted
	st.Detail = detail
	st.Progress = 100
	st.LastUpdate = t.now()
}

// Fail moves the stream to error with a human-readable reason, clears the
// run start and resets progress.
func (t *Tracker) Fail(id string, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.statuses[id]
	if !ok {
		return
	}
	st.Stage = models.StageError
	st.Detail = reason
	st.Progress = 0
	st.StartedAt = nil
	st.LastUpdate = t.now()
}

// Reset returns one stream to idle regardless of its current stage.
func (t *Tracker) Reset(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.statuses[id]
	if !ok {
		return fmt.Errorf("unknown stream: %s", id)
	}
	t.resetLocked(st)
	return nil
}

// ResetAll returns every stream to idle.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, st := range t.statuses {
		t.resetLocked(st)
	}
}

func (t *Tracker) resetLocked(st *models.StreamStatus) {
	st.Stage = models.StageIdle
	st.Detail = ""
	st.Progress = 0
	st.StartedAt = nil
	st.LastUpdate = t.now()
}

// Get returns a copy of one stream's status.
func (t *Tracker) Get(id string) (models.StreamStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.statuses[id]
	if !ok {
		return models.StreamStatus{}, false
	}
	return *st, true
}

// Snapshot returns a copy of every stream's status.
func (t *Tracker) Snapshot() map[string]models.StreamStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]models.StreamStatus, len(t.statuses))
	for id, st := range t.statuses {
		out[id] = *st
	}
	return out
}

// SweepStale force-fails every in-progress run older than ceiling. It
// recovers streams whose run crashed or hung past its own step timeouts.
// Returns the ids cleared.
func (t *Tracker) SweepStale(ceiling time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var cleared []string
	for id, st := range t.statuses {
		if st.Stage == models.StageIdle || st.Stage.Terminal() {
			continue
		}
		ref := st.LastUpdate
		if st.StartedAt != nil {
			ref = *st.StartedAt
		}
		if now.Sub(ref) > ceiling {
			st.Stage = models.StageError
			st.Detail = "stale, auto-cleared"
			st.Progress = 0
			st.StartedAt = nil
			st.LastUpdate = now
			cleared = append(cleared, id)
		}
	}
	return cleared
}
