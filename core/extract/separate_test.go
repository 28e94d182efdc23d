package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeparate_GenericMaterialDropped(t *testing.T) {
	materials, techniques := Separate(
		[]string{"brick", "reclaimed Denver common brick"},
		nil,
		DefaultVocabulary().Techniques,
	)

	assert.Equal(t, []string{"reclaimed Denver common brick"}, materials)
	assert.Empty(t, techniques)
}

func TestSeparate_KnownTechniqueMovedThenCollapsed(t *testing.T) {
	// "flashing" is a known technique term, so it moves out of materials;
	// the longer "flashing installation" then absorbs it.
	materials, techniques := Separate(
		[]string{"flashing"},
		[]string{"flashing installation"},
		DefaultVocabulary().Techniques,
	)

	assert.Empty(t, materials)
	assert.Equal(t, []string{"flashing installation"}, techniques)
}

func TestSeparate_MaterialContainingTechniqueSubstringMoves(t *testing.T) {
	materials, techniques := Separate(
		[]string{"chimney tuckpointing mortar work", "granite"},
		nil,
		DefaultVocabulary().Techniques,
	)

	assert.Equal(t, []string{"granite"}, materials)
	assert.Equal(t, []string{"chimney tuckpointing mortar work"}, techniques)
}

func TestSeparate_GenericTechniqueDropped(t *testing.T) {
	_, techniques := Separate(
		nil,
		[]string{"repointing", "lime mortar repointing"},
		DefaultVocabulary().Techniques,
	)

	assert.Equal(t, []string{"lime mortar repointing"}, techniques)
}

func TestSeparate_EqualLengthNotGeneric(t *testing.T) {
	materials, _ := Separate(
		[]string{"red brick", "old brick"},
		nil,
		nil,
	)

	assert.ElementsMatch(t, []string{"red brick", "old brick"}, materials)
}

func TestSeparate_CaseInsensitiveExactDedup(t *testing.T) {
	materials, _ := Separate(
		[]string{"Flagstone", "flagstone"},
		nil,
		nil,
	)

	assert.Equal(t, []string{"Flagstone"}, materials)
}

func TestSeparate_SubstringCheckIsCaseSensitive(t *testing.T) {
	// "Brick" (capitalized) is not a case-sensitive whole-word occurrence
	// inside "reclaimed brick", so both survive.
	materials, _ := Separate(
		[]string{"Brick", "reclaimed brick"},
		nil,
		nil,
	)

	assert.ElementsMatch(t, []string{"Brick", "reclaimed brick"}, materials)
}

func TestContainsWholeWord(t *testing.T) {
	tests := []struct {
		haystack string
		needle   string
		want     bool
	}{
		{"reclaimed Denver common brick", "brick", true},
		{"flashing installation", "flashing", true},
		{"brickwork restoration", "brick", false},
		{"firebrick", "brick", false},
		{"brick", "brick", true},
		{"brick and mortar", "mortar", true},
		{"", "brick", false},
		{"brick", "", false},
	}

	for _, tt := range tests {
		if got := containsWholeWord(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("containsWholeWord(%q, %q) = %v, want %v",
				tt.haystack, tt.needle, got, tt.want)
		}
	}
}

func TestDropGenerics_MultipleLevels(t *testing.T) {
	got := dropGenerics([]string{"brick", "common brick", "Denver common brick"})
	assert.Equal(t, []string{"Denver common brick"}, got)
}
