package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"caserag/internal/adapter/store"
	"caserag/internal/caseid"
	"caserag/internal/domain"
	"caserag/internal/port"
)

// IngestUseCase embeds case records and upserts them into the vector index.
type IngestUseCase struct {
	fuser   *Fuser
	index   port.VectorIndex
	ledger  *store.Ledger
	logger  *zap.Logger
	workers int
}

// NewIngestUseCase creates an ingest use case. workers bounds the number of
// cases processed concurrently.
func NewIngestUseCase(fuser *Fuser, index port.VectorIndex, ledger *store.Ledger, logger *zap.Logger, workers int) *IngestUseCase {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		fuser:   fuser,
		index:   index,
		ledger:  ledger,
		logger:  logger,
		workers: workers,
	}
}

// IngestResult contains the results of a bulk ingestion.
type IngestResult struct {
	CasesIngested  int
	CasesFailed    int
	ImagesEmbedded int
	ImagesSkipped  int
	Errors         []string
}

// Run ingests the given records. Cases are independent: one worker failure
// is recorded and the batch continues. Cancelling the context stops feeding
// new cases; already-upserted cases stay intact and a re-run is idempotent
// because point identities are deterministic.
func (u *IngestUseCase) Run(ctx context.Context, records []domain.CaseRecord, progress func(done, total int)) (*IngestResult, error) {
	result := &IngestResult{}

	jobs := make(chan domain.CaseRecord)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for i := 0; i < u.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				fuseRes, err := u.ingestCase(rec)

				mu.Lock()
				if err != nil {
					result.CasesFailed++
					result.Errors = append(result.Errors, fmt.Sprintf("case %s: %v", rec.ID, err))
					u.logger.Error("case ingestion failed", zap.String("case_id", rec.ID), zap.Error(err))
				} else {
					result.CasesIngested++
					result.ImagesEmbedded += fuseRes.ImagesUsed
					result.ImagesSkipped += fuseRes.ImagesSkipped
				}
				done++
				if progress != nil {
					progress(done, len(records))
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, rec := range records {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- rec:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("ingestion interrupted: %w", err)
	}
	return result, nil
}

// ingestCase fuses one case and upserts its single point. The upsert is one
// call, so concurrent readers see the case fully or not at all.
func (u *IngestUseCase) ingestCase(rec domain.CaseRecord) (FuseResult, error) {
	fuseRes, err := u.fuser.Fuse(rec.Text, rec.Images)
	if err != nil {
		return fuseRes, err
	}

	pointID := caseid.PointID(rec.ID, caseid.KindFused, 0)
	point := port.Point{
		ID:     pointID,
		Vector: fuseRes.Vector,
		Payload: map[string]any{
			"id":     rec.ID,
			"text":   rec.Text,
			"label":  rec.Label,
			"images": rec.Images,
		},
	}

	if err := u.index.Upsert([]port.Point{point}); err != nil {
		return fuseRes, err
	}

	if u.ledger != nil {
		err := u.ledger.PutCase(domain.CaseIngest{
			CaseID:        rec.ID,
			PointID:       pointID,
			Label:         rec.Label,
			Images:        fuseRes.ImagesUsed,
			ImagesSkipped: fuseRes.ImagesSkipped,
			IngestedAt:    time.Now().Unix(),
		})
		if err != nil {
			// The vector write already succeeded; a ledger failure is
			// bookkeeping only.
			u.logger.Warn("ledger write failed", zap.String("case_id", rec.ID), zap.Error(err))
		}
	}

	return fuseRes, nil
}
