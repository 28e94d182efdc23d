package extract

import (
	"regexp"
	"strings"

	"github.com/knearme/showcase/core/project"
)

// Fixed confidences for the keyword path. Deliberately below the AI path's
// typical scores so downstream consumers know these are pattern matches.
const (
	confidenceLocation = 0.7
	confidenceKeyword  = 0.6
	confidenceType     = 0.5
)

// locationPattern matches "in Denver", "at Fort Collins, CO", "near Boulder".
// The two-letter state code is optional.
var locationPattern = regexp.MustCompile(
	`\b(?:in|at|near)\s+([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)*)(?:,\s*([A-Z]{2})\b)?`)

// fallbackExtract is the pure keyword/regex path used when no completion
// client is available or the discovery capability is unavailable.
func fallbackExtract(message string, existing *project.State, vocab *Vocabulary) *Result {
	update := &project.Update{}
	confidence := make(map[string]float64)

	lower := strings.ToLower(message)

	if existing.ProjectType == "" {
		if match := longestKeywordMatch(lower, vocab.ProjectTypes); match != "" {
			update.ProjectType = &match
			confidence["projectType"] = confidenceType
		}
	}

	if materials := keywordMatches(lower, vocab.Materials); len(materials) > 0 {
		update.Materials = materials
		confidence["materials"] = confidenceKeyword
	}
	if techniques := keywordMatches(lower, vocab.Techniques); len(techniques) > 0 {
		update.Techniques = techniques
		confidence["techniques"] = confidenceKeyword
	}

	if existing.City == "" {
		if m := locationPattern.FindStringSubmatch(message); m != nil {
			city := m[1]
			update.City = &city
			confidence["city"] = confidenceLocation
			if m[2] != "" {
				state := m[2]
				update.StateCode = &state
				confidence["state"] = confidenceLocation
			}
		}
	}

	update.Materials, update.Techniques = Separate(
		update.Materials, update.Techniques,
		append(vocab.Techniques, update.Techniques...),
	)

	return &Result{
		Update:     update,
		Confidence: confidence,
	}
}

// longestKeywordMatch returns the longest vocabulary term found in the
// lower-cased message, so "chimney rebuild" beats "chimney repair" beats
// nothing.
func longestKeywordMatch(lower string, terms []string) string {
	best := ""
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) && len(term) > len(best) {
			best = term
		}
	}
	return best
}

// keywordMatches returns every vocabulary term present in the lower-cased
// message, in vocabulary order.
func keywordMatches(lower string, terms []string) []string {
	var matches []string
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			matches = append(matches, term)
		}
	}
	return matches
}
