package domain

import "fmt"

// NotMentioned is the sentinel value for case fields absent from the source
// document. Every required field carries it after normalization, so payload
// lookups never branch on missing keys.
const NotMentioned = "Not mentioned"

// UnknownLabel is the sentinel disease label for cases without one.
const UnknownLabel = "Unknown"

// RequiredFields lists the case attributes every record must carry, in the
// order they are rendered into the canonical case text.
var RequiredFields = []string{
	"patient_information",
	"chief_complaint",
	"history_of_present_illness",
	"exposure_and_epidemiology",
	"vitals",
	"physical_exam",
	"labs_and_diagnostics",
	"management_and_clinical_course",
}

var fieldTitles = map[string]string{
	"patient_information":            "Patient information",
	"chief_complaint":                "Chief complaint",
	"history_of_present_illness":     "History of present illness",
	"exposure_and_epidemiology":      "Exposure and epidemiology",
	"vitals":                         "Vitals",
	"physical_exam":                  "Physical exam",
	"labs_and_diagnostics":           "Labs and diagnostics",
	"management_and_clinical_course": "Management and clinical course",
}

// CaseRecord is one clinical case ready for embedding and indexing:
// a canonical text rendering plus the relative paths of its images.
type CaseRecord struct {
	ID     string   `json:"id"`
	Text   string   `json:"text_input"`
	Label  string   `json:"label"`
	Images []string `json:"images"`
}

// NormalizeFields fills every required field key with the NotMentioned
// sentinel when absent or empty. The returned map is a copy.
func NormalizeFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(RequiredFields))
	for _, key := range RequiredFields {
		if v, ok := fields[key]; ok && v != "" {
			out[key] = v
		} else {
			out[key] = NotMentioned
		}
	}
	return out
}

// CanonicalText renders normalized fields into the single text block used for
// embedding. Rendering order is fixed so the same case always embeds the
// same text.
func CanonicalText(fields map[string]string) string {
	normalized := NormalizeFields(fields)
	text := ""
	for _, key := range RequiredFields {
		text += fmt.Sprintf("%s: %s. ", fieldTitles[key], normalized[key])
	}
	return text[:len(text)-1]
}

// RetrievedCase is one search hit flattened for display.
type RetrievedCase struct {
	CaseID    string  `json:"case_id"`
	Label     string  `json:"label"`
	Snippet   string  `json:"snippet"`
	ImagePath string  `json:"image_path,omitempty"`
	Score     float64 `json:"score"`
}

// CaseIngest is the ledger record written after a case is upserted.
type CaseIngest struct {
	CaseID        string
	PointID       string
	Label         string
	Images        int
	ImagesSkipped int
	IngestedAt    int64
}

// LedgerStats aggregates the ingest ledger for status reporting.
type LedgerStats struct {
	TotalCases     int
	ImagesEmbedded int
	ImagesSkipped  int
	LastIngestUnix int64
}
