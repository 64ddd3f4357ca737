package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcription_records (
    id               TEXT PRIMARY KEY,
    stream_id        TEXT NOT NULL,
    stream_name      TEXT NOT NULL,
    section          TEXT NOT NULL,
    record_date      TEXT NOT NULL,
    transcript_text  TEXT NOT NULL,
    language         TEXT NOT NULL,
    method           TEXT NOT NULL,
    segment_count    INTEGER NOT NULL,
    segment_chars    JSONB,
    summary          TEXT NOT NULL,
    keywords         JSONB,
    degraded         BOOLEAN NOT NULL,
    duration_seconds INTEGER NOT NULL,
    audio_bytes      BIGINT NOT NULL,
    captured_at      TIMESTAMPTZ NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_date ON transcription_records (record_date);
CREATE INDEX IF NOT EXISTS idx_records_stream ON transcription_records (stream_id);
`

const recordColumns = `id, stream_id, stream_name, section, record_date,
    transcript_text, language, method, segment_count, segment_chars,
    summary, keywords, degraded, duration_seconds, audio_bytes,
    captured_at, created_at`

// PostgresStore is the durable record archive.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database and ensures the schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Append inserts one record. Records are immutable so this is a plain
// insert; a duplicate id is an error, not an upsert.
func (s *PostgresStore) Append(ctx context.Context, rec *models.TranscriptionRecord) error {
	segmentChars, err := json.Marshal(rec.Transcript.SegmentChars)
	if err != nil {
		return fmt.Errorf("marshal segment chars: %w", err)
	}
	keywords, err := json.Marshal(rec.Analysis.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}

	query := `
    INSERT INTO transcription_records (` + recordColumns + `)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
    `

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.StreamID,
		rec.StreamName,
		rec.Section,
		rec.Date,
		rec.Transcript.Text,
		rec.Transcript.Language,
		string(rec.Transcript.Method),
		rec.Transcript.SegmentCount,
		segmentChars,
		rec.Analysis.Summary,
		keywords,
		rec.Analysis.Degraded,
		rec.Duration,
		rec.AudioBytes,
		rec.CapturedAt,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// GetByID fetches one record.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.TranscriptionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM transcription_records WHERE id = $1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// ListByDate fetches all records captured on a YYYY-MM-DD date, oldest first.
func (s *PostgresStore) ListByDate(ctx context.Context, date string) ([]*models.TranscriptionRecord, error) {
	query := `SELECT ` + recordColumns + `
    FROM transcription_records WHERE record_date = $1 ORDER BY captured_at ASC`
	return s.list(ctx, query, date)
}

// ListRecent fetches the newest records.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*models.TranscriptionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + recordColumns + `
    FROM transcription_records ORDER BY created_at DESC LIMIT $1`
	return s.list(ctx, query, limit)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.TranscriptionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.TranscriptionRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.TranscriptionRecord, error) {
	var rec models.TranscriptionRecord
	var method string
	var segmentChars, keywords []byte

	err := row.Scan(
		&rec.ID,
		&rec.StreamID,
		&rec.StreamName,
		&rec.Section,
		&rec.Date,
		&rec.Transcript.Text,
		&rec.Transcript.Language,
		&method,
		&rec.Transcript.SegmentCount,
		&segmentChars,
		&rec.Analysis.Summary,
		&keywords,
		&rec.Analysis.Degraded,
		&rec.Duration,
		&rec.AudioBytes,
		&rec.CapturedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Transcript.Method = models.TranscriptMethod(method)
	if len(segmentChars) > 0 {
		json.Unmarshal(segmentChars, &rec.Transcript.SegmentChars)
	}
	if len(keywords) > 0 {
		json.Unmarshal(keywords, &rec.Analysis.Keywords)
	}
	return &rec, nil
}
