package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
	"github.com/Djamsy/veille-uptade-sub000/pkg/registry"
	"github.com/Djamsy/veille-uptade-sub000/pkg/status"
)

// Coordinator triggers runs across the registered streams. Each stream
// runs in its own goroutine and owns its artifacts exclusively; a failure
// or panic in one run never disturbs another.
type Coordinator struct {
	orch    *Orchestrator
	reg     *registry.Registry
	tracker *status.Tracker
}

// NewCoordinator creates a coordinator over the registry.
func NewCoordinator(orch *Orchestrator, reg *registry.Registry, tracker *status.Tracker) *Coordinator {
	return &Coordinator{orch: orch, reg: reg, tracker: tracker}
}

// TriggerOne runs the pipeline for a single stream.
func (c *Coordinator) TriggerOne(ctx context.Context, streamID string) (*models.PipelineResult, error) {
	stream, err := c.reg.Get(streamID)
	if err != nil {
		return nil, err
	}
	return c.runIsolated(ctx, stream), nil
}

// TriggerAll runs the pipeline concurrently for every registered stream
// and aggregates the outcomes. The aggregate always contains one entry
// per stream.
func (c *Coordinator) TriggerAll(ctx context.Context) *models.AggregateResult {
	streams := c.reg.All()
	started := time.Now()

	results := make(chan *models.PipelineResult, len(streams))
	var wg sync.WaitGroup
	for _, stream := range streams {
		wg.Add(1)
		go func(s models.StreamConfig) {
			defer wg.Done()
			results <- c.runIsolated(ctx, s)
		}(stream)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	agg := &models.AggregateResult{
		Results: make(map[string]*models.PipelineResult, len(streams)),
	}
	for res := range results {
		agg.Results[res.StreamID] = res
		if res.OK() {
			agg.Succeeded++
		} else {
			agg.Failed++
		}
	}
	agg.Elapsed = time.Since(started).Seconds()

	log.Printf("coordinator: %d stream(s) done, %d succeeded, %d failed in %.1fs",
		len(streams), agg.Succeeded, agg.Failed, agg.Elapsed)
	return agg
}

// runIsolated converts a panicking run into that stream's error result so
// sibling runs are never aborted.
func (c *Coordinator) runIsolated(ctx context.Context, stream models.StreamConfig) (result *models.PipelineResult) {
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("run panicked: %v", r)
			log.Printf("coordinator: %s %s", stream.ID, reason)
			c.tracker.Fail(stream.ID, reason)
			result = &models.PipelineResult{StreamID: stream.ID, Err: reason}
		}
	}()
	return c.orch.Run(ctx, stream)
}

// Status returns a snapshot of every stream's run state.
func (c *Coordinator) Status() map[string]models.StreamStatus {
	return c.tracker.Snapshot()
}

// Reset returns one stream's status to idle.
func (c *Coordinator) Reset(streamID string) error {
	return c.tracker.Reset(streamID)
}

// ResetAll returns every stream's status to idle.
func (c *Coordinator) ResetAll() {
	c.tracker.ResetAll()
}
