package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumastudio/memdex/internal/embedding"
	"github.com/lumastudio/memdex/internal/indexer"
	"github.com/lumastudio/memdex/internal/store"
)

type stubClient struct{ dim int }

func (c *stubClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *stubClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, c.dim)
		vec[0] = 1
		out[i] = vec
	}
	return out, nil
}

func (c *stubClient) Dimensions() int { return c.dim }

func newTestImporter(t *testing.T, exclude []string) (*Importer, *store.RecordStore) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	records := store.NewRecordStore(db)
	svc := embedding.NewServiceWithClient(&stubClient{dim: 4}, 10)

	idx, err := indexer.New(records, svc, indexer.Options{})
	if err != nil {
		t.Fatalf("indexer.New() error = %v", err)
	}

	im, err := New(idx, exclude, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return im, records
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestImportDir(t *testing.T) {
	im, records := newTestImporter(t, nil)
	dir := t.TempDir()

	writeFile(t, dir, "rings.yaml", `items:
  - id: ring-001
    name: Amber ring
    category: rings
    description: Silver ring with a baltic amber stone
    price: 59.90
  - id: ring-002
    name: Honey amber ring
    category: rings
    price: 74.50
`)
	writeFile(t, dir, "single.yml", `id: pendant-001
name: Sun pendant
category: pendants
description: Pendant with an insect inclusion
`)

	summary, err := im.ImportDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ImportDir() error = %v", err)
	}

	if summary.Files != 2 {
		t.Errorf("Files = %d, want 2", summary.Files)
	}
	if summary.Items != 3 {
		t.Errorf("Items = %d, want 3", summary.Items)
	}
	if summary.Failed != 0 || summary.Skipped != 0 {
		t.Errorf("Failed/Skipped = %d/%d, want 0/0", summary.Failed, summary.Skipped)
	}

	rec, err := records.GetRecord("catalog/ring-001")
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if rec.Origin != store.OriginCatalog {
		t.Errorf("Origin = %q, want catalog", rec.Origin)
	}
	if rec.OwnerScope != "catalog" {
		t.Errorf("OwnerScope = %q, want catalog", rec.OwnerScope)
	}
	if !strings.Contains(rec.RawText, "Amber ring") || !strings.Contains(rec.RawText, "59.90") {
		t.Errorf("item text malformed: %q", rec.RawText)
	}
	if rec.TopicTag == "" {
		t.Error("catalog entry should be topic-tagged")
	}
}

func TestImportDirReimportReplaces(t *testing.T) {
	im, records := newTestImporter(t, nil)
	dir := t.TempDir()

	writeFile(t, dir, "items.yaml", `items:
  - id: ring-001
    name: Amber ring
    price: 59.90
`)
	if _, err := im.ImportDir(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "items.yaml", `items:
  - id: ring-001
    name: Amber ring
    price: 49.90
`)
	if _, err := im.ImportDir(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	stats, err := records.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.RecordCount != 1 {
		t.Errorf("RecordCount = %d, want 1 after re-import", stats.RecordCount)
	}

	rec, err := records.GetRecord("catalog/ring-001")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.RawText, "49.90") {
		t.Errorf("re-import did not replace the record: %q", rec.RawText)
	}
}

func TestImportDirExcludesPatterns(t *testing.T) {
	im, records := newTestImporter(t, []string{"draft-*.yaml", "archive/**"})
	dir := t.TempDir()

	writeFile(t, dir, "live.yaml", "id: a\nname: Item A\n")
	writeFile(t, dir, "draft-b.yaml", "id: b\nname: Item B\n")
	writeFile(t, dir, "archive/old.yaml", "id: c\nname: Item C\n")
	writeFile(t, dir, "notes.txt", "not yaml")

	summary, err := im.ImportDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ImportDir() error = %v", err)
	}

	if summary.Items != 1 {
		t.Errorf("Items = %d, want 1", summary.Items)
	}
	if _, err := records.GetRecord("catalog/a"); err != nil {
		t.Errorf("live item missing: %v", err)
	}
	if _, err := records.GetRecord("catalog/b"); err == nil {
		t.Error("draft item should be excluded")
	}
	if _, err := records.GetRecord("catalog/c"); err == nil {
		t.Error("archived item should be excluded")
	}
}

func TestImportDirSkipsInvalid(t *testing.T) {
	im, _ := newTestImporter(t, nil)
	dir := t.TempDir()

	writeFile(t, dir, "bad.yaml", "items: [\n")
	writeFile(t, dir, "incomplete.yaml", "items:\n  - name: No ID\n")

	summary, err := im.ImportDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ImportDir() error = %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Skipped)
	}
	if summary.Items != 0 {
		t.Errorf("Items = %d, want 0", summary.Items)
	}
}

func TestFormatItem(t *testing.T) {
	got := formatItem(Item{
		ID:          "x",
		Name:        "Amber ring",
		Category:    "rings",
		Description: "A nice ring",
		Price:       10,
	})
	want := "Amber ring. Category: rings. Price: 10.00. A nice ring"
	if got != want {
		t.Errorf("formatItem() = %q, want %q", got, want)
	}

	got = formatItem(Item{Name: "Bare item"})
	if got != "Bare item" {
		t.Errorf("formatItem() = %q, want bare name", got)
	}
}
