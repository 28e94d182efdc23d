// Package project defines the single mutable record all pipeline components
// read and write: the portfolio entry being assembled through conversation.
package project

// ImageRole classifies an uploaded image within the project story.
type ImageRole string

const (
	ImageRoleBefore   ImageRole = "before"
	ImageRoleAfter    ImageRole = "after"
	ImageRoleProgress ImageRole = "progress"
	ImageRoleDetail   ImageRole = "detail"
)

// ImageRef is one uploaded image reference, ordered for display.
type ImageRef struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Role         ImageRole `json:"role"`
	DisplayOrder int       `json:"display_order"`
}

// State is the project record. It is caller-owned value data: the caller
// passes it into the orchestrator and receives it back mutated. Created
// empty at conversation start; never deleted, only superseded by an
// externally-owned publish transition.
type State struct {
	// Free-text narrative fields.
	Problem        string `json:"problem,omitempty"`
	Solution       string `json:"solution,omitempty"`
	PrideStatement string `json:"pride_statement,omitempty"`

	// Classification.
	ProjectType  string `json:"project_type,omitempty"`
	City         string `json:"city,omitempty"`
	StateCode    string `json:"state_code,omitempty"`
	LocationText string `json:"location_text,omitempty"`

	// Semantically distinct string-sets. Invariant: Materials and
	// Techniques are disjoint; candidates are separated before merging.
	Materials  []string `json:"materials,omitempty"`
	Techniques []string `json:"techniques,omitempty"`
	Tags       []string `json:"tags,omitempty"`

	// Images, ordered for display.
	Images      []ImageRef `json:"images,omitempty"`
	HeroImageID string     `json:"hero_image_id,omitempty"`

	// Generated marketing copy.
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	SEOTitle       string `json:"seo_title,omitempty"`
	SEODescription string `json:"seo_description,omitempty"`

	// Derived readiness flags.
	ReadyForImages  bool `json:"ready_for_images"`
	ReadyForContent bool `json:"ready_for_content"`
	ReadyToPublish  bool `json:"ready_to_publish"`

	// Clarification tracking.
	NeedsClarification []string `json:"needs_clarification,omitempty"`
	ClarifiedFields    []string `json:"clarified_fields,omitempty"`
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := *s
	out.Materials = append([]string(nil), s.Materials...)
	out.Techniques = append([]string(nil), s.Techniques...)
	out.Tags = append([]string(nil), s.Tags...)
	out.Images = append([]ImageRef(nil), s.Images...)
	out.NeedsClarification = append([]string(nil), s.NeedsClarification...)
	out.ClarifiedFields = append([]string(nil), s.ClarifiedFields...)
	return &out
}

// Location returns the human-readable location label, preferring
// "City, ST" over free text.
func (s *State) Location() string {
	switch {
	case s.City != "" && s.StateCode != "":
		return s.City + ", " + s.StateCode
	case s.City != "":
		return s.City
	default:
		return s.LocationText
	}
}
