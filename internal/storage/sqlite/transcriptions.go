package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/reelscribe/reelscribe/pkg/logger"
)

// TranscriptionRecord represents a completed transcription in the database
type TranscriptionRecord struct {
	ID            int64     `json:"id"`
	JobID         string    `json:"job_id"`
	SourceURL     string    `json:"source_url"`
	SourceHash    string    `json:"source_hash"`
	Caption       string    `json:"caption,omitempty"`
	Language      string    `json:"language"`
	Style         string    `json:"style"`
	Format        string    `json:"format"`
	Text          string    `json:"text"`
	AvgConfidence *float64  `json:"avg_confidence,omitempty"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TranscriptionStorage handles storage of transcription records
type TranscriptionStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTranscriptionStorage creates a new SQLite transcription storage
func NewTranscriptionStorage(db *sql.DB, log *logger.Logger) (*TranscriptionStorage, error) {
	storage := &TranscriptionStorage{
		db:     db,
		logger: log.Named("sqlite-tx"),
	}

	if err := storage.initDB(); err != nil {
		return nil, err
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *TranscriptionStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL,
			source_url TEXT NOT NULL,
			source_hash TEXT NOT NULL,
			caption TEXT,
			language TEXT NOT NULL,
			style TEXT NOT NULL,
			format TEXT NOT NULL,
			content TEXT NOT NULL,
			avg_confidence REAL,
			error_kind TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create transcriptions table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_job_id ON transcriptions(job_id)`)
	if err != nil {
		return fmt.Errorf("failed to create job_id index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_source_hash ON transcriptions(source_hash)`)
	if err != nil {
		return fmt.Errorf("failed to create source_hash index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_created_at ON transcriptions(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	return nil
}

// StoreTranscription stores a transcription record and returns its row ID
func (s *TranscriptionStorage) StoreTranscription(record *TranscriptionRecord) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO transcriptions
		(job_id, source_url, source_hash, caption, language, style, format, content, avg_confidence, error_kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.JobID,
		record.SourceURL,
		record.SourceHash,
		record.Caption,
		record.Language,
		record.Style,
		record.Format,
		record.Text,
		record.AvgConfidence,
		record.ErrorKind,
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transcription: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetTranscriptions returns all transcriptions with pagination, newest first
func (s *TranscriptionStorage) GetTranscriptions(limit, offset int) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, job_id, source_url, source_hash, caption, language, style, format, content, avg_confidence, error_kind, created_at
		FROM transcriptions
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions: %w", err)
	}
	defer rows.Close()

	var records []*TranscriptionRecord
	for rows.Next() {
		record, err := scanTranscription(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetTranscriptionByJobID returns the transcription for a specific job, or nil
// if no record exists for it.
func (s *TranscriptionStorage) GetTranscriptionByJobID(jobID string) (*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, job_id, source_url, source_hash, caption, language, style, format, content, avg_confidence, error_kind, created_at
		FROM transcriptions
		WHERE job_id = ?
		ORDER BY created_at DESC
		LIMIT 1`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcription by job ID: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	return scanTranscription(rows)
}

// GetTranscriptionsBySourceHash returns prior transcriptions of the same
// source, newest first.
func (s *TranscriptionStorage) GetTranscriptionsBySourceHash(sourceHash string, limit, offset int) ([]*TranscriptionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, job_id, source_url, source_hash, caption, language, style, format, content, avg_confidence, error_kind, created_at
		FROM transcriptions
		WHERE source_hash = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		sourceHash, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions by source hash: %w", err)
	}
	defer rows.Close()

	var records []*TranscriptionRecord
	for rows.Next() {
		record, err := scanTranscription(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func scanTranscription(rows *sql.Rows) (*TranscriptionRecord, error) {
	var record TranscriptionRecord
	var createdAt string
	var caption, errorKind sql.NullString
	var avgConfidence sql.NullFloat64

	if err := rows.Scan(
		&record.ID,
		&record.JobID,
		&record.SourceURL,
		&record.SourceHash,
		&caption,
		&record.Language,
		&record.Style,
		&record.Format,
		&record.Text,
		&avgConfidence,
		&errorKind,
		&createdAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan transcription: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	record.CreatedAt = parsed

	if caption.Valid {
		record.Caption = caption.String
	}
	if errorKind.Valid {
		record.ErrorKind = errorKind.String
	}
	if avgConfidence.Valid {
		conf := avgConfidence.Float64
		record.AvgConfidence = &conf
	}

	return &record, nil
}
