// Package lifecycle runs the periodic maintenance sweep: retention
// cleanup of expired records and re-embedding of zero-vector
// placeholders left behind by embedding outages.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lumastudio/memdex/internal/indexer"
	"github.com/lumastudio/memdex/internal/store"
)

// Options configures the maintenance sweep
type Options struct {
	Retention    time.Duration // records older than this are deleted
	Interval     time.Duration // period between background sweeps
	ReembedBatch int           // placeholder records repaired per sweep
}

// DefaultOptions returns the standard sweep tuning
func DefaultOptions() Options {
	return Options{
		Retention:    90 * 24 * time.Hour,
		Interval:     24 * time.Hour,
		ReembedBatch: 100,
	}
}

// Report summarizes one sweep
type Report struct {
	Deleted    int64
	Reembedded int
	Failed     int
	Duration   time.Duration
}

// Manager owns the background sweep goroutine
type Manager struct {
	records *store.RecordStore
	indexer *indexer.Indexer
	opts    Options

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// New creates a Manager. Zero Options selects DefaultOptions.
func New(records *store.RecordStore, idx *indexer.Indexer, opts Options) (*Manager, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if idx == nil {
		return nil, fmt.Errorf("indexer is required")
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultOptions().Retention
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	if opts.ReembedBatch <= 0 {
		opts.ReembedBatch = DefaultOptions().ReembedBatch
	}
	return &Manager{
		records: records,
		indexer: idx,
		opts:    opts,
	}, nil
}

// Start launches the background sweep. Calling Start on a running
// manager is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	m.stopped = make(chan struct{})
	go m.loop(m.stop, m.stopped)
}

// Stop halts the background sweep and waits for it to exit
func (m *Manager) Stop() {
	m.mu.Lock()
	stop, stopped := m.stop, m.stopped
	m.stop, m.stopped = nil, nil
	m.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

func (m *Manager) loop(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report, err := m.RunOnce(context.Background())
			if err != nil {
				log.Printf("maintenance sweep failed: %v", err)
				continue
			}
			log.Printf("maintenance sweep: deleted=%d reembedded=%d failed=%d in %v",
				report.Deleted, report.Reembedded, report.Failed, report.Duration)
		case <-stop:
			return
		}
	}
}

// RunOnce performs a single sweep: retention cleanup first, then the
// re-embedding pass. Both halves stamp their completion time in store
// metadata so operators can see when maintenance last ran.
func (m *Manager) RunOnce(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	deleted, err := m.Cleanup()
	if err != nil {
		return nil, err
	}
	report.Deleted = deleted

	reembedded, failed, err := m.Reembed(ctx)
	if err != nil {
		return nil, err
	}
	report.Reembedded = reembedded
	report.Failed = failed

	report.Duration = time.Since(start)
	return report, nil
}

// Cleanup deletes records older than the retention period
func (m *Manager) Cleanup() (int64, error) {
	cutoff := time.Now().Add(-m.opts.Retention)
	deleted, err := m.records.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention cleanup failed: %w", err)
	}

	if err := m.records.Meta().Set(store.MetaKeyLastCleanup, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// Reembed finds records carrying zero-vector placeholders and re-runs
// the embedding pipeline for them, one at a time so a recovering
// provider is not immediately flooded. Per-record failures are counted
// and left for the next sweep.
func (m *Manager) Reembed(ctx context.Context) (reembedded, failed int, err error) {
	records, err := m.records.RecordsWithZeroEmbedding(m.opts.ReembedBatch)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list placeholder records: %w", err)
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			return reembedded, failed, ctx.Err()
		}
		if err := m.indexer.ReindexRecord(ctx, rec.RecordID); err != nil {
			log.Printf("re-embedding failed for record %s: %v", rec.RecordID, err)
			failed++
			continue
		}
		reembedded++
	}

	if err := m.records.Meta().Set(store.MetaKeyLastReembed, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return reembedded, failed, err
	}
	return reembedded, failed, nil
}
