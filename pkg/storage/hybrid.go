package storage

import (
	"context"
	"log"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

// HybridStore fronts Postgres with a Redis read-through cache. Writes go
// to Postgres first and fail the run if that fails; cache maintenance is
// best-effort.
type HybridStore struct {
	db    RecordStore
	cache *RedisCache
}

// NewHybridStore wraps a durable store with a cache.
func NewHybridStore(db RecordStore, cache *RedisCache) *HybridStore {
	return &HybridStore{db: db, cache: cache}
}

// Append writes the record durably, then fills the cache and drops the
// day list so date reads pick the new record up.
func (s *HybridStore) Append(ctx context.Context, rec *models.TranscriptionRecord) error {
	if err := s.db.Append(ctx, rec); err != nil {
		return err
	}

	if err := s.cache.PutRecord(ctx, rec); err != nil {
		log.Printf("storage: cache fill failed for %s: %v", rec.ID, err)
	}
	if err := s.cache.InvalidateDate(ctx, rec.Date); err != nil {
		log.Printf("storage: cache invalidation failed for %s: %v", rec.Date, err)
	}
	return nil
}

// GetByID reads the cache first and backfills it on a miss.
func (s *HybridStore) GetByID(ctx context.Context, id string) (*models.TranscriptionRecord, error) {
	if rec, err := s.cache.GetRecord(ctx, id); err == nil {
		return rec, nil
	}

	rec, err := s.db.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cerr := s.cache.PutRecord(ctx, rec); cerr != nil {
		log.Printf("storage: cache backfill failed for %s: %v", id, cerr)
	}
	return rec, nil
}

// ListByDate reads the cached day list first and backfills it on a miss.
func (s *HybridStore) ListByDate(ctx context.Context, date string) ([]*models.TranscriptionRecord, error) {
	if recs, err := s.cache.GetDate(ctx, date); err == nil {
		return recs, nil
	}

	recs, err := s.db.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if cerr := s.cache.PutDate(ctx, date, recs); cerr != nil {
		log.Printf("storage: cache backfill failed for day %s: %v", date, cerr)
	}
	return recs, nil
}

// ListRecent always reads the database; recency queries are rare and
// cheap enough not to cache.
func (s *HybridStore) ListRecent(ctx context.Context, limit int) ([]*models.TranscriptionRecord, error) {
	return s.db.ListRecent(ctx, limit)
}

// Close closes both layers.
func (s *HybridStore) Close() error {
	if err := s.cache.Close(); err != nil {
		log.Printf("storage: close cache: %v", err)
	}
	return s.db.Close()
}
