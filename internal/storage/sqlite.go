// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ciridae/scopematch/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS parsed_documents (
		doc_hash TEXT NOT NULL,
		source TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (doc_hash, source)
	);

	CREATE TABLE IF NOT EXISTS comparisons (
		pair_hash TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_parsed_created_at ON parsed_documents(created_at);
	CREATE INDEX IF NOT EXISTS idx_comparisons_created_at ON comparisons(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// PutParsedDocument stores a parsed document under its content hash,
// replacing any previous entry for the same hash and source.
func (s *SQLiteStorage) PutParsedDocument(ctx context.Context, docHash string, doc *models.ParsedDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal parsed document: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO parsed_documents (doc_hash, source, payload, created_at)
		 VALUES (?, ?, ?, ?)`,
		docHash, doc.Source, string(payload), time.Now(),
	)
	return err
}

// GetParsedDocument returns the cached parse for a document hash and source.
func (s *SQLiteStorage) GetParsedDocument(ctx context.Context, docHash, source string) (*models.ParsedDocument, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM parsed_documents WHERE doc_hash = ? AND source = ?`,
		docHash, source,
	).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, &ErrNotFound{Key: docHash + "/" + source}
	}
	if err != nil {
		return nil, err
	}

	var doc models.ParsedDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parsed document: %w", err)
	}
	return &doc, nil
}

// PutComparison stores a comparison result under the pair hash.
func (s *SQLiteStorage) PutComparison(ctx context.Context, pairHash string, result *models.ComparisonResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal comparison: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO comparisons (pair_hash, payload, created_at)
		 VALUES (?, ?, ?)`,
		pairHash, string(payload), time.Now(),
	)
	return err
}

// GetComparison returns the cached comparison for a document pair hash.
func (s *SQLiteStorage) GetComparison(ctx context.Context, pairHash string) (*models.ComparisonResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM comparisons WHERE pair_hash = ?`,
		pairHash,
	).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, &ErrNotFound{Key: pairHash}
	}
	if err != nil {
		return nil, err
	}

	var result models.ComparisonResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comparison: %w", err)
	}
	return &result, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
