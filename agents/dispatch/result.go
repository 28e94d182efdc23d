package dispatch

import "time"

// Role identifies a sub-agent.
type Role string

const (
	RoleNarrative Role = "narrative"
	RoleLayout    Role = "layout"
	RoleQuality   Role = "quality"
	RoleSearch    Role = "search"
)

// NarrativePayload is the narrative role's output: generated copy keyed by
// project field. Updates is always non-nil, even on failure.
type NarrativePayload struct {
	Updates map[string]string
	Tags    []string
}

// LayoutPayload is the layout role's output.
type LayoutPayload struct {
	Order       []string
	HeroImageID string
	Rationale   string
}

// QualityPayload is the quality-advisory role's output.
type QualityPayload struct {
	Score          float64
	Issues         []string
	ReadyToPublish bool
}

// SearchPayload is the web-search role's output. When the response text
// does not parse as a structured object, Structured is nil and Summary
// carries the whole text.
type SearchPayload struct {
	Structured map[string]any
	Summary    string
}

// RoleResult is one dispatch outcome. Exactly the payload matching Role is
// set on success; on failure Err and Retryable are set and the payload is
// the role's empty form. Consumers switch on Role and must handle every
// variant.
type RoleResult struct {
	Role       Role
	Confidence float64
	Err        error
	Retryable  bool

	// RetryAfter is how long a retryable failure should wait before the
	// role is tried again, honoring provider Retry-After when present.
	RetryAfter time.Duration

	DurationMs int64
	Parallel   bool

	Narrative *NarrativePayload
	Layout    *LayoutPayload
	Quality   *QualityPayload
	Search    *SearchPayload
}

// Failed reports whether the dispatch produced an error.
func (r *RoleResult) Failed() bool { return r.Err != nil }

// emptyPayload attaches the role's failure-safe payload so consumers never
// see a nil narrative map.
func (r *RoleResult) emptyPayload() {
	switch r.Role {
	case RoleNarrative:
		r.Narrative = &NarrativePayload{Updates: map[string]string{}}
	case RoleLayout:
		r.Layout = &LayoutPayload{}
	case RoleQuality:
		r.Quality = &QualityPayload{}
	case RoleSearch:
		r.Search = &SearchPayload{}
	}
}
