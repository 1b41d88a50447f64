package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lumastudio/memdex/internal/embedding"
)

// Record origins. Conversation records carry user/agent/system; catalog
// entries carry catalog.
const (
	OriginUser    = "user"
	OriginAgent   = "agent"
	OriginSystem  = "system"
	OriginCatalog = "catalog"
)

// Record is one logical unit of indexed text: a conversation message or
// a catalog item description. Chunks are derived from SanitizedText and
// owned entirely by the store.
type Record struct {
	RecordID      string
	OwnerScope    string
	SubScope      string
	Origin        string
	RawText       string
	SanitizedText string
	TopicTag      string
	CreatedAt     time.Time
}

// Chunk is one bounded slice of a record's sanitized text together with
// its embedding vector.
type Chunk struct {
	Index     int
	Text      string
	Embedding []float32
}

// ScopeFilter restricts a similarity scan. All present fields are ANDed.
type ScopeFilter struct {
	OwnerScope string
	SubScope   string
	TopicTag   string
	MaxAge     time.Duration
}

// SearchResult is one scored chunk produced by Scan. Never persisted.
type SearchResult struct {
	RecordID   string
	ChunkIndex int
	Text       string
	Origin     string
	OwnerScope string
	SubScope   string
	TopicTag   string
	CreatedAt  time.Time
	Similarity float32
}

// Stats is a snapshot of store contents
type Stats struct {
	RecordCount     int64
	ChunkCount      int64
	OwnerScopeCount int64
	LastWrite       time.Time
}

// RecordStore provides durable persistence of records, their chunks and
// embeddings, and the brute-force similarity scan over them.
type RecordStore struct {
	db *DB
}

// NewRecordStore creates a new record store
func NewRecordStore(db *DB) *RecordStore {
	return &RecordStore{db: db}
}

// Meta returns the metadata key-value accessor backed by the same database.
func (s *RecordStore) Meta() *Meta {
	return &Meta{db: s.db}
}

// Upsert atomically replaces a record and all of its chunks. Either the
// old chunks are removed and every new chunk is inserted, or the store is
// left in its pre-call state. Reads running concurrently observe the
// record before or after the upsert, never in between.
func (s *RecordStore) Upsert(rec *Record, chunks []Chunk) error {
	if rec.RecordID == "" {
		return fmt.Errorf("cannot upsert record without record_id")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w: %w", ErrUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO records
		(record_id, owner_scope, sub_scope, origin, raw_text, sanitized_text, topic_tag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RecordID, rec.OwnerScope, rec.SubScope, rec.Origin, rec.RawText,
		rec.SanitizedText, rec.TopicTag, createdAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to upsert record %s: %w: %w", rec.RecordID, ErrUnavailable, err)
	}

	if _, err := tx.Exec("DELETE FROM chunks WHERE record_id = ?", rec.RecordID); err != nil {
		return fmt.Errorf("failed to delete old chunks for %s: %w: %w", rec.RecordID, ErrUnavailable, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (record_id, chunk_index, content, embedding, dimension)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w: %w", ErrUnavailable, err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		blob := vectorToBlob(chunk.Embedding)
		if _, err := stmt.Exec(rec.RecordID, chunk.Index, chunk.Text, blob, len(chunk.Embedding)); err != nil {
			return fmt.Errorf("failed to insert chunk %d of %s: %w: %w", chunk.Index, rec.RecordID, ErrUnavailable, err)
		}
	}

	if err := setMetaTx(tx, metaKeyLastWrite, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert for %s: %w: %w", rec.RecordID, ErrUnavailable, err)
	}

	return nil
}

// Scan applies the scope filter at the storage layer, then computes
// cosine similarity between queryVector and every surviving chunk,
// keeping results at or above threshold, sorted descending, truncated to
// maxResults. A nil queryVector scores every chunk 0, which lets callers
// enumerate a scope with threshold <= 0.
func (s *RecordStore) Scan(filter ScopeFilter, queryVector []float32, threshold float32, maxResults int) ([]SearchResult, error) {
	conditions := make([]string, 0, 4)
	params := make([]any, 0, 4)

	if filter.OwnerScope != "" {
		conditions = append(conditions, "r.owner_scope = ?")
		params = append(params, filter.OwnerScope)
	}
	if filter.SubScope != "" {
		conditions = append(conditions, "r.sub_scope = ?")
		params = append(params, filter.SubScope)
	}
	if filter.TopicTag != "" {
		conditions = append(conditions, "r.topic_tag = ?")
		params = append(params, filter.TopicTag)
	}
	if filter.MaxAge > 0 {
		cutoff := time.Now().Add(-filter.MaxAge)
		conditions = append(conditions, "r.created_at >= ?")
		params = append(params, cutoff.UTC().Format(time.RFC3339))
	}

	query := `
		SELECT c.record_id, c.chunk_index, c.content, c.embedding,
		       r.origin, r.owner_scope, r.sub_scope, r.topic_tag, r.created_at
		FROM chunks c
		JOIN records r ON c.record_id = r.record_id
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.sqlDB.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var results []SearchResult

	for rows.Next() {
		var res SearchResult
		var blob []byte
		var createdAt string

		if err := rows.Scan(&res.RecordID, &res.ChunkIndex, &res.Text, &blob,
			&res.Origin, &res.OwnerScope, &res.SubScope, &res.TopicTag, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w: %w", ErrUnavailable, err)
		}

		vector, err := blobToVector(blob)
		if err != nil {
			continue // skip malformed vectors
		}

		var sim float32
		if queryVector != nil {
			sim = embedding.Similarity(queryVector, vector)
		}
		if sim < threshold {
			continue
		}

		if ts, err := parseTimeString(createdAt); err == nil {
			res.CreatedAt = ts
		}
		res.Similarity = sim
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w: %w", ErrUnavailable, err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}

	return results, nil
}

// GetRecord loads a single record by id
func (s *RecordStore) GetRecord(recordID string) (*Record, error) {
	row := s.db.sqlDB.QueryRow(`
		SELECT record_id, owner_scope, sub_scope, origin, raw_text, sanitized_text, topic_tag, created_at
		FROM records WHERE record_id = ?
	`, recordID)

	var rec Record
	var createdAt string
	if err := row.Scan(&rec.RecordID, &rec.OwnerScope, &rec.SubScope, &rec.Origin,
		&rec.RawText, &rec.SanitizedText, &rec.TopicTag, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("record not found: %s", recordID)
		}
		return nil, fmt.Errorf("failed to get record %s: %w: %w", recordID, ErrUnavailable, err)
	}

	if ts, err := parseTimeString(createdAt); err == nil {
		rec.CreatedAt = ts
	}
	return &rec, nil
}

// ChunkCount returns the number of chunks stored for a record
func (s *RecordStore) ChunkCount(recordID string) (int, error) {
	var count int
	if err := s.db.sqlDB.QueryRow("SELECT COUNT(*) FROM chunks WHERE record_id = ?", recordID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks for %s: %w: %w", recordID, ErrUnavailable, err)
	}
	return count, nil
}

// DeleteOlderThan removes all records created before cutoff together with
// their chunks and returns the number of records deleted.
func (s *RecordStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	cutoffStr := cutoff.UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin retention delete: %w: %w", ErrUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM chunks WHERE record_id IN (
			SELECT record_id FROM records WHERE created_at < ?
		)
	`, cutoffStr); err != nil {
		return 0, fmt.Errorf("failed to delete old chunks: %w: %w", ErrUnavailable, err)
	}

	res, err := tx.Exec("DELETE FROM records WHERE created_at < ?", cutoffStr)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old records: %w: %w", ErrUnavailable, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted records: %w: %w", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit retention delete: %w: %w", ErrUnavailable, err)
	}

	return deleted, nil
}

// RecordsWithZeroEmbedding returns up to limit records that have at least
// one chunk carrying a zero-vector placeholder, oldest first. These are
// the records the lifecycle sweep re-submits for embedding.
func (s *RecordStore) RecordsWithZeroEmbedding(limit int) ([]*Record, error) {
	rows, err := s.db.sqlDB.Query(`
		SELECT c.record_id, c.embedding, r.created_at
		FROM chunks c
		JOIN records r ON c.record_id = r.record_id
		ORDER BY r.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan embeddings: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var ids []string

	for rows.Next() {
		var recordID string
		var blob []byte
		var createdAt string
		if err := rows.Scan(&recordID, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w: %w", ErrUnavailable, err)
		}
		if seen[recordID] {
			continue
		}
		vector, err := blobToVector(blob)
		if err != nil {
			continue
		}
		if embedding.IsZero(vector) {
			seen[recordID] = true
			ids = append(ids, recordID)
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w: %w", ErrUnavailable, err)
	}

	records := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetRecord(id)
		if err != nil {
			continue // deleted concurrently
		}
		records = append(records, rec)
	}

	return records, nil
}

// Stats returns a snapshot of store contents
func (s *RecordStore) Stats() (*Stats, error) {
	stats := &Stats{}

	if err := s.db.sqlDB.QueryRow("SELECT COUNT(*) FROM records").Scan(&stats.RecordCount); err != nil {
		return nil, fmt.Errorf("failed to count records: %w: %w", ErrUnavailable, err)
	}
	if err := s.db.sqlDB.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&stats.ChunkCount); err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w: %w", ErrUnavailable, err)
	}
	if err := s.db.sqlDB.QueryRow("SELECT COUNT(DISTINCT owner_scope) FROM records").Scan(&stats.OwnerScopeCount); err != nil {
		return nil, fmt.Errorf("failed to count owner scopes: %w: %w", ErrUnavailable, err)
	}

	if value, err := s.Meta().Get(metaKeyLastWrite); err == nil && value != "" {
		if ts, err := parseTimeString(value); err == nil {
			stats.LastWrite = ts
		}
	}

	return stats, nil
}
