package project

import (
	"strings"
)

// Update is a partial state produced by one extraction or sub-agent turn.
// Pointer fields overwrite when non-nil; slice fields union into the
// existing sets.
type Update struct {
	Problem        *string
	Solution       *string
	PrideStatement *string

	ProjectType  *string
	City         *string
	StateCode    *string
	LocationText *string

	Materials  []string
	Techniques []string
	Tags       []string

	Images      []ImageRef
	HeroImageID *string

	Title          *string
	Description    *string
	SEOTitle       *string
	SEODescription *string
}

// IsZero reports whether the update carries no changes.
func (u *Update) IsZero() bool {
	return u == nil || (u.Problem == nil && u.Solution == nil && u.PrideStatement == nil &&
		u.ProjectType == nil && u.City == nil && u.StateCode == nil && u.LocationText == nil &&
		len(u.Materials) == 0 && len(u.Techniques) == 0 && len(u.Tags) == 0 &&
		len(u.Images) == 0 && u.HeroImageID == nil &&
		u.Title == nil && u.Description == nil && u.SEOTitle == nil && u.SEODescription == nil)
}

// Merge applies an update to the state: new scalar values overwrite old
// ones (last writer wins), the three set-valued fields are unioned with
// case-insensitive exact dedup, and image lists are replaced as ordered
// wholes when present.
func Merge(s *State, u *Update) {
	if u == nil {
		return
	}

	setString(&s.Problem, u.Problem)
	setString(&s.Solution, u.Solution)
	setString(&s.PrideStatement, u.PrideStatement)
	setString(&s.ProjectType, u.ProjectType)
	setString(&s.City, u.City)
	setString(&s.StateCode, u.StateCode)
	setString(&s.LocationText, u.LocationText)
	setString(&s.HeroImageID, u.HeroImageID)
	setString(&s.Title, u.Title)
	setString(&s.Description, u.Description)
	setString(&s.SEOTitle, u.SEOTitle)
	setString(&s.SEODescription, u.SEODescription)

	s.Materials = UnionSets(s.Materials, u.Materials)
	s.Techniques = UnionSets(s.Techniques, u.Techniques)
	s.Tags = UnionSets(s.Tags, u.Tags)

	if len(u.Images) > 0 {
		s.Images = append([]ImageRef(nil), u.Images...)
	}
}

func setString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

// UnionSets unions two string sets, preserving order of first appearance.
// Duplicate detection is case-insensitive; the first-seen casing survives.
func UnionSets(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}

	seen := make(map[string]struct{}, len(existing))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, v := range existing {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	for _, v := range incoming {
		trimmed := strings.TrimSpace(v)
		key := strings.ToLower(trimmed)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
