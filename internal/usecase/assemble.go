package usecase

import (
	"fmt"
	"strings"

	"caserag/internal/port"
)

// ContextSentinel is returned when no hit contributes any content, so prompt
// construction never sees an empty context silently.
const ContextSentinel = "No relevant context found."

// DefaultSnippetMaxChars caps one hit's snippet inside the context.
const DefaultSnippetMaxChars = 600

// entrySeparator joins context entries.
const entrySeparator = "\n\n"

// AssembleContext packs search hits into a bounded context string. Hits are
// consumed in the order given (already rank-sorted by the index). Packing is
// greedy first-fit-stop: the first entry that would push the running total
// past maxChars ends the walk, preserving rank order over completeness.
// The returned string never exceeds maxChars, except for the sentinel when
// nothing fit.
func AssembleContext(hits []port.SearchHit, maxChars, snippetMaxChars int) string {
	if snippetMaxChars < 20 {
		snippetMaxChars = DefaultSnippetMaxChars
	}

	var parts []string
	total := 0

	for i, hit := range hits {
		entry := contextEntry(hit.Payload, hit.Score, i, snippetMaxChars)
		if entry == "" {
			continue
		}
		cost := len(entry)
		if len(parts) > 0 {
			cost += len(entrySeparator)
		}
		if total+cost > maxChars {
			break
		}
		parts = append(parts, entry)
		total += cost
	}

	if len(parts) == 0 {
		return ContextSentinel
	}
	return strings.Join(parts, entrySeparator)
}

// contextEntry renders one hit: case header, normalized snippet, and an
// image reference when present. Hits with neither text nor image contribute
// nothing.
func contextEntry(payload map[string]any, score float64, index, snippetMaxChars int) string {
	caseID := hitCaseID(payload, index)
	snippet := normalizeSnippet(hitSnippet(payload), snippetMaxChars)
	imagePath := hitImagePath(payload)

	if snippet == "" && imagePath == "" {
		return ""
	}

	lines := []string{fmt.Sprintf("--- Case %s (score=%.4f):", caseID, score)}
	if snippet != "" {
		lines = append(lines, fmt.Sprintf("Text snippet: %s", snippet))
	}
	if imagePath != "" {
		lines = append(lines, fmt.Sprintf("Image path: %s", imagePath))
	}
	return strings.Join(lines, " ")
}

// normalizeSnippet collapses newlines to spaces and truncates over-long
// snippets with an ellipsis marker.
func normalizeSnippet(s string, maxChars int) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > maxChars {
		s = s[:maxChars-10] + " ..."
	}
	return s
}
