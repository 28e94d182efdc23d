package extract

import (
	"strings"
	"unicode"
)

// Separate funnels raw material/technique candidates into a clean,
// non-overlapping vocabulary. Three passes:
//
//  1. cross-list move: a material that is itself a known technique term or
//     contains one as a substring belongs in the technique list;
//  2. generic-of-specific removal within each list: a term is dropped when
//     a strictly longer term in the same list contains it as a whole word
//     ("brick" goes when "reclaimed Denver common brick" is present);
//  3. exact duplicates are removed case-insensitively, while the substring
//     and whole-word checks above stay case-sensitive.
//
// Equal-length terms are never considered generic of each other.
func Separate(materials, techniques []string, known []string) (outMaterials, outTechniques []string) {
	materials = dedupeExact(materials)
	techniques = dedupeExact(techniques)

	outMaterials = make([]string, 0, len(materials))
	outTechniques = append([]string(nil), techniques...)

	for _, m := range materials {
		if isTechniqueTerm(m, known) {
			outTechniques = append(outTechniques, m)
		} else {
			outMaterials = append(outMaterials, m)
		}
	}

	outTechniques = dedupeExact(outTechniques)
	outMaterials = dropGenerics(outMaterials)
	outTechniques = dropGenerics(outTechniques)
	return outMaterials, outTechniques
}

// isTechniqueTerm reports whether a candidate matches a known technique
// term exactly (case-insensitive) or contains one as a substring
// (case-sensitive).
func isTechniqueTerm(candidate string, known []string) bool {
	lower := strings.ToLower(candidate)
	for _, term := range known {
		if term == "" {
			continue
		}
		if lower == strings.ToLower(term) {
			return true
		}
		if strings.Contains(candidate, term) {
			return true
		}
	}
	return false
}

// dropGenerics removes each term that appears as a whole word inside a
// strictly longer term of the same list.
func dropGenerics(terms []string) []string {
	out := make([]string, 0, len(terms))
	for i, a := range terms {
		generic := false
		for j, b := range terms {
			if i == j || len(b) <= len(a) {
				continue
			}
			if containsWholeWord(b, a) {
				generic = true
				break
			}
		}
		if !generic {
			out = append(out, a)
		}
	}
	return out
}

// containsWholeWord reports whether needle occurs in haystack bounded by
// non-word characters on both sides. Case-sensitive.
func containsWholeWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}

	for start := 0; ; {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start

		before := idx == 0 || !isWordRune(rune(haystack[idx-1]))
		end := idx + len(needle)
		after := end == len(haystack) || !isWordRune(rune(haystack[end]))
		if before && after {
			return true
		}

		start = idx + 1
		if start >= len(haystack) {
			return false
		}
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// dedupeExact removes case-insensitive exact duplicates, keeping the
// first-seen casing and order.
func dedupeExact(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
