package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"caserag/internal/domain"
)

var bucketCases = []byte("cases")

// Ledger records which cases have been ingested and with what outcome.
// Re-ingesting a case overwrites its record, mirroring the idempotent
// upsert-by-identity semantics of the vector index.
type Ledger struct {
	db *bbolt.DB
}

// NewLedger opens (or creates) the ledger database at path.
func NewLedger(path string) (*Ledger, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCases)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db}, nil
}

type caseMeta struct {
	PointID       string `json:"point_id"`
	Label         string `json:"label"`
	Images        int    `json:"images"`
	ImagesSkipped int    `json:"images_skipped"`
	IngestedAt    int64  `json:"ingested_at"`
}

// PutCase records a completed case ingestion.
func (l *Ledger) PutCase(rec domain.CaseIngest) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		meta := caseMeta{
			PointID:       rec.PointID,
			Label:         rec.Label,
			Images:        rec.Images,
			ImagesSkipped: rec.ImagesSkipped,
			IngestedAt:    rec.IngestedAt,
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCases).Put([]byte(rec.CaseID), data)
	})
}

// GetCase returns the ingest record for a case id.
func (l *Ledger) GetCase(caseID string) (domain.CaseIngest, error) {
	var rec domain.CaseIngest
	err := l.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCases).Get([]byte(caseID))
		if data == nil {
			return fmt.Errorf("case not found: %s", caseID)
		}
		var meta caseMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		rec = domain.CaseIngest{
			CaseID:        caseID,
			PointID:       meta.PointID,
			Label:         meta.Label,
			Images:        meta.Images,
			ImagesSkipped: meta.ImagesSkipped,
			IngestedAt:    meta.IngestedAt,
		}
		return nil
	})
	return rec, err
}

// Stats aggregates the ledger.
func (l *Ledger) Stats() (domain.LedgerStats, error) {
	var stats domain.LedgerStats
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCases).ForEach(func(k, v []byte) error {
			var meta caseMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return nil // Skip corrupted entries
			}
			stats.TotalCases++
			stats.ImagesEmbedded += meta.Images
			stats.ImagesSkipped += meta.ImagesSkipped
			if meta.IngestedAt > stats.LastIngestUnix {
				stats.LastIngestUnix = meta.IngestedAt
			}
			return nil
		})
	})
	return stats, err
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
