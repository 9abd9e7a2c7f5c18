package store

import (
	"path/filepath"
	"testing"

	"caserag/internal/domain"
	"caserag/internal/port"
)

func TestLedgerPutGetStats(t *testing.T) {
	ledger, err := NewLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()

	recs := []domain.CaseIngest{
		{CaseID: "1", PointID: "p1", Label: "Dengue", Images: 2, ImagesSkipped: 1, IngestedAt: 100},
		{CaseID: "2", PointID: "p2", Label: "Malaria", Images: 0, ImagesSkipped: 0, IngestedAt: 200},
	}
	for _, rec := range recs {
		if err := ledger.PutCase(rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ledger.GetCase("1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Label != "Dengue" || got.Images != 2 || got.ImagesSkipped != 1 {
		t.Errorf("unexpected record: %+v", got)
	}

	if _, err := ledger.GetCase("missing"); err == nil {
		t.Error("expected error for missing case")
	}

	stats, err := ledger.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCases != 2 || stats.ImagesEmbedded != 2 || stats.ImagesSkipped != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.LastIngestUnix != 200 {
		t.Errorf("expected last ingest 200, got %d", stats.LastIngestUnix)
	}
}

func TestLedgerOverwrite(t *testing.T) {
	ledger, err := NewLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()

	for i := 0; i < 2; i++ {
		if err := ledger.PutCase(domain.CaseIngest{CaseID: "1", PointID: "p1", IngestedAt: int64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := ledger.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCases != 1 {
		t.Errorf("re-ingested case must not duplicate, got %d", stats.TotalCases)
	}
}

func newBoltIndex(t *testing.T) *BoltIndex {
	t.Helper()
	idx, err := NewBoltIndex(filepath.Join(t.TempDir(), "index.db"), 3)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	if err := idx.EnsureCollection(); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestBoltIndexUpsertSearch(t *testing.T) {
	idx := newBoltIndex(t)

	points := []port.Point{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: map[string]any{"id": "1"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Payload: map[string]any{"id": "2"}},
		{ID: "c", Vector: []float32{0.9, 0.1, 0}, Payload: map[string]any{"id": "3"}},
	}
	if err := idx.Upsert(points); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Payload["id"] != "1" {
		t.Errorf("expected exact match first, got %v", hits[0].Payload["id"])
	}
	if hits[1].Payload["id"] != "3" {
		t.Errorf("expected near match second, got %v", hits[1].Payload["id"])
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits must be ordered by descending score")
	}
}

func TestBoltIndexUpsertOverwrites(t *testing.T) {
	idx := newBoltIndex(t)

	for i := 0; i < 2; i++ {
		if err := idx.Upsert([]port.Point{{ID: "a", Vector: []float32{1, 0, 0}}}); err != nil {
			t.Fatal(err)
		}
	}
	count, err := idx.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 point after overwrite, got %d", count)
	}
}

func TestBoltIndexDimensionMismatch(t *testing.T) {
	idx := newBoltIndex(t)

	if err := idx.Upsert([]port.Point{{ID: "a", Vector: []float32{1, 0}}}); err == nil {
		t.Error("expected upsert dimension error")
	}
	if _, err := idx.Search([]float32{1, 0}, 1); err == nil {
		t.Error("expected search dimension error")
	}
}

func TestBoltIndexRecreate(t *testing.T) {
	idx := newBoltIndex(t)

	if err := idx.Upsert([]port.Point{{ID: "a", Vector: []float32{1, 0, 0}}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Recreate(); err != nil {
		t.Fatal(err)
	}
	count, err := idx.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected empty index after recreate, got %d", count)
	}
}

func TestBoltIndexPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := NewBoltIndex(path, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.EnsureCollection(); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert([]port.Point{{ID: "a", Vector: []float32{0, 0, 1}, Payload: map[string]any{"id": "1"}}}); err != nil {
		t.Fatal(err)
	}
	idx.Close()

	reopened, err := NewBoltIndex(path, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if err := reopened.EnsureCollection(); err != nil {
		t.Fatal(err)
	}
	hits, err := reopened.Search([]float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Payload["id"] != "1" {
		t.Errorf("expected persisted point, got %+v", hits)
	}
}
