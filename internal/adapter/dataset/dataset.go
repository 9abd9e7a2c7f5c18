// Package dataset reads per-case JSON documents and the line-delimited
// dataset file used for bulk ingestion.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"caserag/internal/domain"
)

// imagePatterns are the glob patterns used to discover case images inside a
// case folder.
var imagePatterns = []string{"*.jpg", "*.jpeg", "*.png"}

// caseDocument is the raw per-case JSON written by the extraction step.
// Field values may be missing; normalization fills the sentinel.
type caseDocument map[string]string

// BuildResult reports the outcome of a dataset build.
type BuildResult struct {
	CasesWritten int
	Errors       []string
}

// Build assembles the line-delimited dataset from a folder of per-case JSON
// files plus per-case image folders (imageDir/Case-<id>/). Malformed case
// files are reported and skipped; the rest of the build continues.
func Build(jsonDir, imageDir, outPath string) (*BuildResult, error) {
	matches, err := filepath.Glob(filepath.Join(jsonDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", jsonDir, err)
	}
	sort.Strings(matches)

	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer out.Close()

	result := &BuildResult{}
	enc := json.NewEncoder(out)

	for _, jsonPath := range matches {
		caseID := strings.TrimSuffix(filepath.Base(jsonPath), filepath.Ext(jsonPath))

		data, err := os.ReadFile(jsonPath)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", jsonPath, err))
			continue
		}

		var doc caseDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: invalid JSON: %v", jsonPath, err))
			continue
		}

		label := doc["disease_name_short"]
		if label == "" {
			label = domain.UnknownLabel
		}

		rec := domain.CaseRecord{
			ID:     caseID,
			Text:   domain.CanonicalText(doc),
			Label:  label,
			Images: CaseImages(imageDir, caseID),
		}
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("failed to write record %s: %w", caseID, err)
		}
		result.CasesWritten++
	}

	return result, nil
}

// CaseImages returns the image paths for a case, discovered by the folder
// naming convention imageDir/<caseID>/. Missing folders yield an empty list.
func CaseImages(imageDir, caseID string) []string {
	var images []string
	for _, pattern := range imagePatterns {
		matches, err := doublestar.FilepathGlob(filepath.Join(imageDir, caseID, pattern))
		if err != nil {
			continue
		}
		images = append(images, matches...)
	}
	sort.Strings(images)
	return images
}

// ReadAll reads every case record from a line-delimited JSON dataset.
// Malformed lines are reported in the second return value and skipped.
func ReadAll(path string) ([]domain.CaseRecord, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	var records []domain.CaseRecord
	var malformed []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec domain.CaseRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			malformed = append(malformed, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if rec.ID == "" {
			malformed = append(malformed, fmt.Sprintf("line %d: missing case id", line))
			continue
		}
		if rec.Label == "" {
			rec.Label = domain.UnknownLabel
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, malformed, fmt.Errorf("failed to read dataset: %w", err)
	}

	return records, malformed, nil
}
