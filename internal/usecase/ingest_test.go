package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"caserag/internal/adapter/embedding"
	"caserag/internal/adapter/store"
	"caserag/internal/domain"
	"caserag/internal/port"
)

func newTestIndex(t *testing.T, dimension int) *store.BoltIndex {
	t.Helper()
	idx, err := store.NewBoltIndex(filepath.Join(t.TempDir(), "index.db"), dimension)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	if err := idx.EnsureCollection(); err != nil {
		t.Fatal(err)
	}
	return idx
}

func testRecords() []domain.CaseRecord {
	return []domain.CaseRecord{
		{ID: "7", Text: "fever and rash", Label: "Dengue"},
		{ID: "9", Text: "chronic cough and weight loss", Label: "Tuberculosis"},
	}
}

func TestIngestAndSelfRetrieval(t *testing.T) {
	emb := embedding.NewMockEmbedder(8)
	idx := newTestIndex(t, 8)
	fuser := NewFuser(emb, nil)

	ingestUC := NewIngestUseCase(fuser, idx, nil, nil, 2)
	result, err := ingestUC.Run(context.Background(), testRecords(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.CasesIngested != 2 || result.CasesFailed != 0 {
		t.Fatalf("unexpected ingest result: %+v", result)
	}

	retrieveUC := NewRetrieveUseCase(fuser, idx)
	hits, err := retrieveUC.ByText("fever and rash", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits for self-retrieval query")
	}

	cases := Cases(hits)
	if cases[0].CaseID != "7" {
		t.Errorf("expected case 7 as top hit, got %s", cases[0].CaseID)
	}
	if cases[0].Label != "Dengue" {
		t.Errorf("expected top hit label Dengue, got %s", cases[0].Label)
	}
	// The fused vector is the text vector halved; cosine similarity is
	// scale-invariant, so the case matches its own text exactly.
	if cases[0].Score < 0.999 {
		t.Errorf("expected near-perfect self-retrieval score, got %f", cases[0].Score)
	}
}

func TestIngestIdempotent(t *testing.T) {
	emb := embedding.NewMockEmbedder(8)
	idx := newTestIndex(t, 8)
	fuser := NewFuser(emb, nil)
	ingestUC := NewIngestUseCase(fuser, idx, nil, nil, 1)

	for i := 0; i < 2; i++ {
		if _, err := ingestUC.Run(context.Background(), testRecords(), nil); err != nil {
			t.Fatal(err)
		}
	}

	count, err := idx.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 points after double ingest, got %d", count)
	}
}

func TestIngestRecordsLedger(t *testing.T) {
	emb := embedding.NewMockEmbedder(8)
	idx := newTestIndex(t, 8)
	ledger, err := store.NewLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()

	fuser := NewFuser(emb, nil)
	ingestUC := NewIngestUseCase(fuser, idx, ledger, nil, 1)
	if _, err := ingestUC.Run(context.Background(), testRecords(), nil); err != nil {
		t.Fatal(err)
	}

	rec, err := ledger.GetCase("7")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Label != "Dengue" {
		t.Errorf("unexpected ledger label: %s", rec.Label)
	}
	if rec.PointID == "" {
		t.Error("ledger record missing point id")
	}

	stats, err := ledger.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCases != 2 {
		t.Errorf("expected 2 ledger cases, got %d", stats.TotalCases)
	}
}

// failingIndex rejects every upsert.
type failingIndex struct{}

func (f *failingIndex) EnsureCollection() error { return nil }
func (f *failingIndex) Recreate() error         { return nil }
func (f *failingIndex) Upsert([]port.Point) error {
	return errors.New("store unavailable")
}
func (f *failingIndex) Search([]float32, int) ([]port.SearchHit, error) { return nil, nil }
func (f *failingIndex) Count() (int, error)                             { return 0, nil }

func TestIngestContinuesPastFailures(t *testing.T) {
	emb := embedding.NewMockEmbedder(8)
	fuser := NewFuser(emb, nil)
	ingestUC := NewIngestUseCase(fuser, &failingIndex{}, nil, nil, 1)

	result, err := ingestUC.Run(context.Background(), testRecords(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.CasesFailed != 2 {
		t.Errorf("expected both cases to fail, got %d", result.CasesFailed)
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected 2 recorded errors, got %d", len(result.Errors))
	}
}

func TestIngestHonorsCancellation(t *testing.T) {
	emb := embedding.NewMockEmbedder(8)
	idx := newTestIndex(t, 8)
	fuser := NewFuser(emb, nil)
	ingestUC := NewIngestUseCase(fuser, idx, nil, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := ingestUC.Run(ctx, testRecords(), nil)
	if err == nil {
		t.Fatal("expected interruption error for cancelled context")
	}
	// Nothing fed after cancellation; already-completed work would remain.
	if result.CasesIngested+result.CasesFailed > len(testRecords()) {
		t.Errorf("more outcomes than records: %+v", result)
	}
}
