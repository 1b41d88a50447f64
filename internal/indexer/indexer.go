// Package indexer runs the write path: sanitize, chunk, tag, embed,
// persist. Records enter synchronously or through a bounded queue
// drained by an on-demand worker goroutine.
package indexer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumastudio/memdex/internal/chunker"
	"github.com/lumastudio/memdex/internal/config"
	"github.com/lumastudio/memdex/internal/embedding"
	"github.com/lumastudio/memdex/internal/sanitize"
	"github.com/lumastudio/memdex/internal/store"
	"github.com/lumastudio/memdex/internal/topic"
)

// Options configures an Indexer. Zero-value fields fall back to
// defaults so tests can construct one with just the pieces they need.
type Options struct {
	Sanitizer    *sanitize.Sanitizer
	Chunker      *chunker.Chunker
	Tagger       *topic.Tagger
	QueueSize    int
	RetryBackoff time.Duration
}

// Indexer handles the complete ingestion pipeline
type Indexer struct {
	records      *store.RecordStore
	embedService *embedding.Service
	sanitizer    *sanitize.Sanitizer
	chunker      *chunker.Chunker
	tagger       *topic.Tagger
	retryBackoff time.Duration

	queue chan *store.Record

	mu      sync.Mutex
	running bool
	lastErr error

	// owned resources closed by Close, set only by NewFromConfig
	db *store.DB
}

// New creates an indexer over an existing record store and embedding
// service.
func New(records *store.RecordStore, embedService *embedding.Service, opts Options) (*Indexer, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if embedService == nil {
		return nil, fmt.Errorf("embedding service is required")
	}

	if opts.Sanitizer == nil {
		s, err := sanitize.New("")
		if err != nil {
			return nil, fmt.Errorf("failed to create sanitizer: %w", err)
		}
		opts.Sanitizer = s
	}
	if opts.Chunker == nil {
		opts.Chunker = chunker.New(0, -1)
	}
	if opts.Tagger == nil {
		opts.Tagger = topic.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}

	return &Indexer{
		records:      records,
		embedService: embedService,
		sanitizer:    opts.Sanitizer,
		chunker:      opts.Chunker,
		tagger:       opts.Tagger,
		retryBackoff: opts.RetryBackoff,
		queue:        make(chan *store.Record, opts.QueueSize),
	}, nil
}

// NewFromConfig opens the database and builds the full pipeline from
// configuration. The caller owns the returned indexer and must Close it.
func NewFromConfig(cfg *config.Config) (*Indexer, error) {
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	embedService, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}

	sanitizer, err := sanitize.New(cfg.Sanitize.PhonePattern,
		sanitize.WithKeepNames(cfg.Sanitize.KeepNames))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sanitizer: %w", err)
	}

	tagger := topic.Default()
	if cfg.Topics.VocabularyFile != "" {
		tagger, err = topic.LoadFile(cfg.Topics.VocabularyFile)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to load topic vocabulary: %w", err)
		}
	}

	idx, err := New(store.NewRecordStore(db), embedService, Options{
		Sanitizer:    sanitizer,
		Chunker:      chunker.New(cfg.Chunking.MaxChunkSize, cfg.Chunking.Overlap),
		Tagger:       tagger,
		QueueSize:    cfg.Indexer.QueueSize,
		RetryBackoff: time.Duration(cfg.Indexer.RetryBackoffMS) * time.Millisecond,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	idx.db = db
	return idx, nil
}

// Store returns the underlying record store
func (idx *Indexer) Store() *store.RecordStore {
	return idx.records
}

// EmbedService returns the embedding service
func (idx *Indexer) EmbedService() *embedding.Service {
	return idx.embedService
}

// Tagger returns the topic tagger used by the pipeline
func (idx *Indexer) Tagger() *topic.Tagger {
	return idx.tagger
}

// Close waits briefly for the queue to drain, then releases owned
// resources. Indexers built with New over an external store close
// nothing.
func (idx *Indexer) Close() error {
	idx.WaitIdle(5 * time.Second)
	if idx.db != nil {
		return idx.db.Close()
	}
	return nil
}

// IngestSync runs the full pipeline inline. Embedding failures surface
// to the caller so interactive use can report them immediately. Returns
// the record id.
func (idx *Indexer) IngestSync(ctx context.Context, rec *store.Record) (string, error) {
	idx.prepare(rec)

	chunks, err := idx.buildChunks(ctx, rec)
	if err != nil {
		return "", err
	}

	if err := idx.records.Upsert(rec, chunks); err != nil {
		return "", err
	}
	return rec.RecordID, nil
}

// IngestAsync queues a record for background ingestion and returns its
// id immediately. The send blocks only when the queue is full, which
// applies backpressure to the producer instead of dropping records.
func (idx *Indexer) IngestAsync(rec *store.Record) string {
	idx.prepare(rec)

	idx.queue <- rec
	idx.kickWorker()
	return rec.RecordID
}

// ReindexRecord re-runs chunking and embedding for a stored record,
// replacing its chunks. Used by the lifecycle sweep to repair
// zero-vector placeholders.
func (idx *Indexer) ReindexRecord(ctx context.Context, recordID string) error {
	rec, err := idx.records.GetRecord(recordID)
	if err != nil {
		return err
	}

	chunks, err := idx.buildChunks(ctx, rec)
	if err != nil {
		return err
	}

	return idx.records.Upsert(rec, chunks)
}

// QueueStats is a point-in-time snapshot of the ingestion queue
type QueueStats struct {
	Depth         int
	Capacity      int
	WorkerRunning bool
	LastError     error
}

// Queue returns current queue statistics
func (idx *Indexer) Queue() QueueStats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return QueueStats{
		Depth:         len(idx.queue),
		Capacity:      cap(idx.queue),
		WorkerRunning: idx.running,
		LastError:     idx.lastErr,
	}
}

// WaitIdle blocks until the queue is empty and the worker has exited,
// or the timeout elapses. Returns true if the indexer went idle.
func (idx *Indexer) WaitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		idx.mu.Lock()
		idle := !idx.running && len(idx.queue) == 0
		idx.mu.Unlock()
		if idle {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// prepare fills derived record fields before the record enters either
// path: id, timestamp, sanitized text, topic tag.
func (idx *Indexer) prepare(rec *store.Record) {
	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.SanitizedText = idx.sanitizer.Sanitize(rec.RawText)
	if rec.TopicTag == "" {
		rec.TopicTag = idx.tagger.Tag(rec.SanitizedText)
	}
}

// buildChunks splits the sanitized text and embeds every chunk
func (idx *Indexer) buildChunks(ctx context.Context, rec *store.Record) ([]store.Chunk, error) {
	texts := idx.chunker.Split(rec.SanitizedText)
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := idx.embedService.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed record %s: %w", rec.RecordID, err)
	}

	chunks := make([]store.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = store.Chunk{Index: i, Text: text, Embedding: vectors[i]}
	}
	return chunks, nil
}

// zeroChunks builds placeholder chunks when embedding is unavailable.
// The record stays searchable by scope and its text is preserved; the
// lifecycle sweep re-embeds it later.
func (idx *Indexer) zeroChunks(rec *store.Record) []store.Chunk {
	texts := idx.chunker.Split(rec.SanitizedText)
	chunks := make([]store.Chunk, len(texts))
	dim := idx.embedService.Dimensions()
	for i, text := range texts {
		chunks[i] = store.Chunk{Index: i, Text: text, Embedding: embedding.ZeroVector(dim)}
	}
	return chunks
}

// kickWorker starts the drain goroutine if one is not already running
func (idx *Indexer) kickWorker() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.running {
		return
	}
	idx.running = true
	go idx.worker()
}

// worker drains the queue and exits when it is empty. The drain check
// and the running flag flip happen under the same lock as kickWorker,
// so an enqueue either sees a running worker or starts a new one.
func (idx *Indexer) worker() {
	for {
		idx.mu.Lock()
		select {
		case rec := <-idx.queue:
			idx.mu.Unlock()
			idx.process(rec)
		default:
			idx.running = false
			idx.mu.Unlock()
			return
		}
	}
}

// process ingests one queued record. Embedding gets a single retry
// after a backoff; if it still fails the record is persisted with
// zero-vector placeholders rather than lost.
func (idx *Indexer) process(rec *store.Record) {
	ctx := context.Background()

	chunks, err := idx.buildChunks(ctx, rec)
	if err != nil {
		time.Sleep(idx.retryBackoff)
		chunks, err = idx.buildChunks(ctx, rec)
	}
	if err != nil {
		log.Printf("embedding failed for record %s, storing placeholder: %v", rec.RecordID, err)
		chunks = idx.zeroChunks(rec)
	}

	if err := idx.records.Upsert(rec, chunks); err != nil {
		log.Printf("failed to persist record %s: %v", rec.RecordID, err)
		idx.mu.Lock()
		idx.lastErr = err
		idx.mu.Unlock()
		return
	}

	idx.mu.Lock()
	idx.lastErr = nil
	idx.mu.Unlock()
}
