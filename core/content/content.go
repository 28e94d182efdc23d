// Package content enforces length and formatting constraints on generated
// project copy before it reaches the caller.
package content

import (
	"strings"
	"unicode/utf8"

	"github.com/knearme/showcase/core/project"
)

// Display limits for generated copy.
const (
	TitleLimit          = 60
	SEOTitleLimit       = 60
	SEODescriptionLimit = 160
)

// boundaryFraction is how much of the limit a word boundary must preserve
// to be preferred over a hard cut.
const boundaryFraction = 0.7

// Truncate cuts s to at most limit characters. It prefers the last word
// boundary within the limit, falling back to a hard cut when the boundary
// would discard too much of the string. Limits count runes, not bytes, so
// multi-byte characters are never split.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	cut := runes[:limit]
	boundary := -1
	for i, r := range cut {
		if r == ' ' {
			boundary = i
		}
	}
	if boundary >= int(float64(limit)*boundaryFraction) {
		return strings.TrimRight(string(cut[:boundary]), " ")
	}
	return string(cut)
}

// truncateWithEllipsis reserves room for the ellipsis before truncating,
// so the result never exceeds the limit.
func truncateWithEllipsis(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return Truncate(s, limit-3) + "..."
}

// withLocation appends " in {location}" to the title when the location is
// not already mentioned and the result still fits the limit. A title that
// cannot fit its location keeps its current form rather than being cut
// further to force it in.
func withLocation(title, location string, limit int) string {
	if title == "" || location == "" {
		return title
	}
	if strings.Contains(strings.ToLower(title), strings.ToLower(location)) {
		return title
	}

	suffixed := title + " in " + location
	if utf8.RuneCountInString(suffixed) > limit {
		return title
	}
	return suffixed
}

// NormalizeTags lower-cases tags and removes exact duplicates, preserving
// first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Enforce applies every copy constraint to the state in place: title and
// SEO title capped at 60, SEO description at 160 with an ellipsis, the
// project location folded into the title when it fits, tags normalized.
// Each field is constrained exactly once per call.
func Enforce(s *project.State) {
	s.Title = withLocation(Truncate(s.Title, TitleLimit), s.Location(), TitleLimit)
	s.SEOTitle = Truncate(s.SEOTitle, SEOTitleLimit)
	s.SEODescription = truncateWithEllipsis(s.SEODescription, SEODescriptionLimit)
	s.Tags = NormalizeTags(s.Tags)
}
