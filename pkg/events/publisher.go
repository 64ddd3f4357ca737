// Package events publishes completed-run record events so downstream
// consumers (alerting, the scraping side of the product) see new records
// without polling the database.
package events

import (
	"context"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

// Publisher emits record events. Publishing is best-effort from the
// pipeline's point of view: a publish failure never fails a run.
type Publisher interface {
	Publish(ctx context.Context, ev models.RecordEvent) error
	Close() error
}

// NopPublisher discards events; used when events are disabled.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(ctx context.Context, ev models.RecordEvent) error {
	return nil
}

// Close does nothing.
func (NopPublisher) Close() error {
	return nil
}
