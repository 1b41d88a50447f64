package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumastudio/memdex/internal/embedding"
	"github.com/lumastudio/memdex/internal/indexer"
	"github.com/lumastudio/memdex/internal/store"
)

type stubClient struct {
	dim   int
	failN int
}

func (c *stubClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *stubClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if c.failN > 0 {
		c.failN--
		return nil, fmt.Errorf("stub outage: %w", embedding.ErrUnavailable)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, c.dim)
		vec[0] = 1
		out[i] = vec
	}
	return out, nil
}

func (c *stubClient) Dimensions() int { return c.dim }

func newTestManager(t *testing.T, client embedding.Client, opts Options) (*Manager, *store.RecordStore, *indexer.Indexer) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	records := store.NewRecordStore(db)
	svc := embedding.NewServiceWithClient(client, 10)

	idx, err := indexer.New(records, svc, indexer.Options{RetryBackoff: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("indexer.New() error = %v", err)
	}

	m, err := New(records, idx, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m, records, idx
}

func seed(t *testing.T, records *store.RecordStore, id string, age time.Duration, vec []float32) {
	t.Helper()
	err := records.Upsert(&store.Record{
		RecordID:      id,
		OwnerScope:    "cust-1",
		Origin:        store.OriginUser,
		RawText:       "text for " + id,
		SanitizedText: "text for " + id,
		CreatedAt:     time.Now().Add(-age),
	}, []store.Chunk{{Index: 0, Text: "text for " + id, Embedding: vec}})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestCleanupDeletesExpiredRecords(t *testing.T) {
	m, records, _ := newTestManager(t, &stubClient{dim: 4},
		Options{Retention: 90 * 24 * time.Hour})

	seed(t, records, "old", 100*24*time.Hour, []float32{1, 0, 0, 0})
	seed(t, records, "fresh", 10*24*time.Hour, []float32{1, 0, 0, 0})

	deleted, err := m.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := records.GetRecord("old"); err == nil {
		t.Error("expired record should be gone")
	}
	if _, err := records.GetRecord("fresh"); err != nil {
		t.Errorf("fresh record should survive: %v", err)
	}

	// Chunks of the expired record are gone too
	count, err := records.ChunkCount("old")
	if err != nil {
		t.Fatalf("ChunkCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("expired record still has %d chunks", count)
	}

	// Completion stamp recorded
	ts, err := records.Meta().GetTime(store.MetaKeyLastCleanup)
	if err != nil || ts.IsZero() {
		t.Errorf("last cleanup stamp missing: ts=%v err=%v", ts, err)
	}
}

func TestReembedRepairsPlaceholders(t *testing.T) {
	m, records, _ := newTestManager(t, &stubClient{dim: 4}, Options{})

	seed(t, records, "broken", time.Hour, make([]float32, 4))
	seed(t, records, "healthy", time.Hour, []float32{1, 0, 0, 0})

	reembedded, failed, err := m.Reembed(context.Background())
	if err != nil {
		t.Fatalf("Reembed() error = %v", err)
	}
	if reembedded != 1 || failed != 0 {
		t.Errorf("reembedded=%d failed=%d, want 1/0", reembedded, failed)
	}

	zero, err := records.RecordsWithZeroEmbedding(10)
	if err != nil {
		t.Fatalf("RecordsWithZeroEmbedding() error = %v", err)
	}
	if len(zero) != 0 {
		t.Errorf("placeholders remain after repair: %d", len(zero))
	}

	ts, err := records.Meta().GetTime(store.MetaKeyLastReembed)
	if err != nil || ts.IsZero() {
		t.Errorf("last reembed stamp missing: ts=%v err=%v", ts, err)
	}
}

func TestReembedCountsFailures(t *testing.T) {
	// Provider still down: the reindex attempt fails and the
	// placeholder survives for the next sweep.
	m, records, _ := newTestManager(t, &stubClient{dim: 4, failN: 100}, Options{})

	seed(t, records, "broken", time.Hour, make([]float32, 4))

	reembedded, failed, err := m.Reembed(context.Background())
	if err != nil {
		t.Fatalf("Reembed() error = %v", err)
	}
	if reembedded != 0 || failed != 1 {
		t.Errorf("reembedded=%d failed=%d, want 0/1", reembedded, failed)
	}

	zero, err := records.RecordsWithZeroEmbedding(10)
	if err != nil {
		t.Fatalf("RecordsWithZeroEmbedding() error = %v", err)
	}
	if len(zero) != 1 {
		t.Errorf("placeholder should survive a failed repair, got %d", len(zero))
	}
}

func TestRunOnce(t *testing.T) {
	m, records, _ := newTestManager(t, &stubClient{dim: 4},
		Options{Retention: 90 * 24 * time.Hour})

	seed(t, records, "old", 100*24*time.Hour, []float32{1, 0, 0, 0})
	seed(t, records, "broken", time.Hour, make([]float32, 4))

	report, err := m.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if report.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", report.Deleted)
	}
	if report.Reembedded != 1 {
		t.Errorf("Reembedded = %d, want 1", report.Reembedded)
	}
}

func TestStartStop(t *testing.T) {
	m, _, _ := newTestManager(t, &stubClient{dim: 4},
		Options{Interval: time.Hour})

	m.Start()
	m.Start() // second Start is a no-op
	m.Stop()
	m.Stop() // second Stop is a no-op
}
