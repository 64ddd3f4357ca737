package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

func TestMemoryPublisherDelivers(t *testing.T) {
	p := NewMemoryPublisher(4)
	defer p.Close()

	ev := models.RecordEvent{RecordID: "r1", StreamID: "rci", OccurredAt: time.Now()}
	require.NoError(t, p.Publish(context.Background(), ev))

	select {
	case got := <-p.Events():
		assert.Equal(t, "r1", got.RecordID)
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestMemoryPublisherNeverBlocksWhenFull(t *testing.T) {
	p := NewMemoryPublisher(2)
	defer p.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			p.Publish(context.Background(), models.RecordEvent{RecordID: fmt.Sprintf("r%d", i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full buffer")
	}

	// Only the first two fit; the rest were dropped.
	assert.Len(t, p.Events(), 2)
}

func TestNopPublisher(t *testing.T) {
	p := NopPublisher{}
	require.NoError(t, p.Publish(context.Background(), models.RecordEvent{}))
	require.NoError(t, p.Close())
}
