// Package caseid derives stable point identities for embedding units.
// Same (case, kind, index) always yields the same identity, so re-ingesting
// a case overwrites its prior points instead of duplicating them.
package caseid

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind tags the embedding unit variant an identity belongs to.
type Kind string

const (
	// KindFused is the single combined text+image vector for a case.
	KindFused Kind = "fused"
	// KindText is a text-only unit.
	KindText Kind = "text"
	// KindImage is a per-image unit, disambiguated by image index.
	KindImage Kind = "image"
)

// namespace is the fixed UUIDv5 namespace for case point identities.
// Changing it invalidates every identity in an existing collection.
var namespace = uuid.MustParse("b8f4168e-7e15-4f39-9a2e-5cdd1c2f7aa1")

// PointID returns the deterministic identity for an embedding unit.
// The composite key uses NUL separators so variable-width case ids and
// indices can never collide (case "1" index 10 vs case "11" index 0).
func PointID(caseID string, kind Kind, index int) string {
	key := fmt.Sprintf("%s\x00%s\x00%d", kind, caseID, index)
	return uuid.NewSHA1(namespace, []byte(key)).String()
}
