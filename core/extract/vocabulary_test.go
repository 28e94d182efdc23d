package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	content := `project_types:
  - chimney rebuild
materials:
  - brick
  - flagstone
techniques:
  - tuckpointing
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	vocab, err := LoadVocabulary(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"chimney rebuild"}, vocab.ProjectTypes)
	assert.Equal(t, []string{"brick", "flagstone"}, vocab.Materials)
	assert.Equal(t, []string{"tuckpointing"}, vocab.Techniques)
}

func TestLoadVocabulary_MissingFile(t *testing.T) {
	_, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestVocabStore_DefaultsWhenNil(t *testing.T) {
	store := NewVocabStore(nil, nil)
	vocab := store.Get()

	require.NotNil(t, vocab)
	assert.Contains(t, vocab.Techniques, "flashing")
	assert.Contains(t, vocab.Materials, "brick")
	assert.NoError(t, store.Close())
}

func TestOpenVocabStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("materials:\n  - cedar\n"), 0o644))

	store, err := OpenVocabStore(path, nil)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, []string{"cedar"}, store.Get().Materials)
}
