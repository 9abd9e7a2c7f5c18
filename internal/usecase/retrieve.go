package usecase

import (
	"fmt"

	"caserag/internal/domain"
	"caserag/internal/port"
)

// RetrieveUseCase searches the vector index by text or image query.
type RetrieveUseCase struct {
	fuser *Fuser
	index port.VectorIndex
}

// NewRetrieveUseCase creates a retrieve use case.
func NewRetrieveUseCase(fuser *Fuser, index port.VectorIndex) *RetrieveUseCase {
	return &RetrieveUseCase{fuser: fuser, index: index}
}

// ByText searches with a free-text query.
func (u *RetrieveUseCase) ByText(query string, topK int) ([]port.SearchHit, error) {
	vec, err := u.fuser.EmbedQueryText(query)
	if err != nil {
		return nil, err
	}
	return u.index.Search(vec, topK)
}

// ByImage searches with a query image file.
func (u *RetrieveUseCase) ByImage(path string, topK int) ([]port.SearchHit, error) {
	vec, err := u.fuser.EmbedQueryImage(path)
	if err != nil {
		return nil, err
	}
	return u.index.Search(vec, topK)
}

// Cases flattens search hits into display records. Missing payload keys
// degrade to sentinels rather than failing.
func Cases(hits []port.SearchHit) []domain.RetrievedCase {
	cases := make([]domain.RetrievedCase, 0, len(hits))
	for i, hit := range hits {
		cases = append(cases, domain.RetrievedCase{
			CaseID:    hitCaseID(hit.Payload, i),
			Label:     payloadString(hit.Payload, "label", domain.UnknownLabel),
			Snippet:   hitSnippet(hit.Payload),
			ImagePath: hitImagePath(hit.Payload),
			Score:     hit.Score,
		})
	}
	return cases
}

// hitCaseID extracts the case id from a payload, falling back to a
// positional placeholder.
func hitCaseID(payload map[string]any, index int) string {
	if id := payloadString(payload, "id", ""); id != "" {
		return id
	}
	if id := payloadString(payload, "case_id", ""); id != "" {
		return id
	}
	return fmt.Sprintf("unknown-%d", index+1)
}

// hitSnippet extracts free text from a payload by fixed priority.
func hitSnippet(payload map[string]any) string {
	for _, key := range []string{"text", "final_diagnosis", "management_and_clinical_course"} {
		if v := payloadString(payload, key, ""); v != "" {
			return v
		}
	}
	return ""
}

// hitImagePath extracts an image reference: an explicit image_path, else the
// first entry of an images list.
func hitImagePath(payload map[string]any) string {
	if p := payloadString(payload, "image_path", ""); p != "" {
		return p
	}
	switch imgs := payload["images"].(type) {
	case []any:
		if len(imgs) > 0 {
			if s, ok := imgs[0].(string); ok {
				return s
			}
		}
	case []string:
		if len(imgs) > 0 {
			return imgs[0]
		}
	}
	return ""
}

func payloadString(payload map[string]any, key, fallback string) string {
	if v, ok := payload[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
