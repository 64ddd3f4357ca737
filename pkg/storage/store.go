// Package storage persists completed-run records. Records are
// append-only: written once when a run completes, never mutated.
package storage

import (
	"context"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

// RecordStore is the durable archive of transcription records.
type RecordStore interface {
	// Append writes one record. It fails the run on error; no partial
	// record may remain.
	Append(ctx context.Context, rec *models.TranscriptionRecord) error

	// GetByID fetches one record.
	GetByID(ctx context.Context, id string) (*models.TranscriptionRecord, error)

	// ListByDate fetches all records captured on a YYYY-MM-DD date.
	ListByDate(ctx context.Context, date string) ([]*models.TranscriptionRecord, error)

	// ListRecent fetches the newest records.
	ListRecent(ctx context.Context, limit int) ([]*models.TranscriptionRecord, error)

	// Close releases the underlying connections.
	Close() error
}
