package project

import (
	"strings"
)

// MinStoryWords is the minimum word count for the problem and solution
// narratives before the pipeline moves on to images.
const MinStoryWords = 8

// CheckReadyForImages reports whether enough story has been gathered to
// prompt for images: a project type, problem and solution narratives of at
// least MinStoryWords words, and at least one material. Location is
// informative but never gates readiness.
func CheckReadyForImages(s *State) bool {
	return s.ProjectType != "" &&
		wordCount(s.Problem) >= MinStoryWords &&
		wordCount(s.Solution) >= MinStoryWords &&
		len(s.Materials) > 0
}

// CheckReadyForContent reports whether content generation can start:
// the story is complete and at least one image has been uploaded.
func CheckReadyForContent(s *State) bool {
	return CheckReadyForImages(s) && len(s.Images) > 0
}

// RefreshReadiness recomputes the derived image and content readiness
// flags from state. ReadyToPublish is owned by the quality check: a
// successful review flips it to true, and nothing ever derives it back to
// false here.
func RefreshReadiness(s *State) {
	s.ReadyForImages = CheckReadyForImages(s)
	s.ReadyForContent = CheckReadyForContent(s)
}

// MissingStoryFields lists the story fields still blocking image
// readiness, in a stable order suitable for clarification prompts.
func MissingStoryFields(s *State) []string {
	var missing []string
	if s.ProjectType == "" {
		missing = append(missing, "projectType")
	}
	if wordCount(s.Problem) < MinStoryWords {
		missing = append(missing, "problem")
	}
	if wordCount(s.Solution) < MinStoryWords {
		missing = append(missing, "solution")
	}
	if len(s.Materials) == 0 {
		missing = append(missing, "materials")
	}
	return missing
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
