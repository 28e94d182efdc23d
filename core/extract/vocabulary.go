// Package extract converts user utterances into structured project fields
// with confidence scores, and keeps the material/technique vocabulary clean
// and non-overlapping.
package extract

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Vocabulary is the configured term lists the fallback matcher and the
// separation algorithm draw from.
type Vocabulary struct {
	ProjectTypes []string `yaml:"project_types"`
	Materials    []string `yaml:"materials"`
	Techniques   []string `yaml:"techniques"`
}

// DefaultVocabulary returns the built-in trade vocabulary used when no
// vocabulary file is configured.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		ProjectTypes: []string{
			"chimney rebuild", "chimney repair", "fireplace remodel",
			"patio installation", "retaining wall", "walkway installation",
			"foundation repair", "roof repair", "bathroom remodel",
			"kitchen remodel", "deck construction", "fence installation",
			"siding replacement", "driveway installation",
		},
		Materials: []string{
			"brick", "reclaimed brick", "flagstone", "bluestone", "granite",
			"limestone", "concrete", "mortar", "stucco", "cedar", "redwood",
			"pressure-treated lumber", "composite decking", "pavers",
			"natural stone", "steel", "copper", "tile", "grout",
		},
		Techniques: []string{
			"tuckpointing", "repointing", "flashing", "flashing installation",
			"dry stacking", "waterproofing", "crown repair", "parging",
			"form setting", "joint striking", "efflorescence removal",
			"power washing", "sealing",
		},
	}
}

// LoadVocabulary reads a yaml vocabulary file.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	return &vocab, nil
}

// vocabDebounce coalesces rapid editor write events.
const vocabDebounce = 200 * time.Millisecond

// VocabStore holds the active vocabulary and optionally hot-reloads it
// when the backing file changes.
type VocabStore struct {
	mu     sync.RWMutex
	vocab  *Vocabulary
	path   string
	logger *slog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewVocabStore creates a store holding the given vocabulary.
func NewVocabStore(vocab *Vocabulary, logger *slog.Logger) *VocabStore {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VocabStore{vocab: vocab, logger: logger}
}

// OpenVocabStore loads the vocabulary file at path and watches it for
// changes, swapping in the new vocabulary on each successful reload.
func OpenVocabStore(path string, logger *slog.Logger) (*VocabStore, error) {
	vocab, err := LoadVocabulary(path)
	if err != nil {
		return nil, err
	}

	store := NewVocabStore(vocab, logger)
	store.path = path

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create vocabulary watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch vocabulary: %w", err)
	}

	store.watcher = watcher
	store.done = make(chan struct{})
	go store.watchLoop()

	return store, nil
}

// Get returns the active vocabulary.
func (s *VocabStore) Get() *Vocabulary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vocab
}

// Close stops the file watcher, if any.
func (s *VocabStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}

func (s *VocabStore) watchLoop() {
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(vocabDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("vocabulary watcher error", "error", err)
		}
	}
}

func (s *VocabStore) reload() {
	vocab, err := LoadVocabulary(s.path)
	if err != nil {
		s.logger.Warn("vocabulary reload failed, keeping previous", "path", s.path, "error", err)
		return
	}

	s.mu.Lock()
	s.vocab = vocab
	s.mu.Unlock()

	s.logger.Info("vocabulary reloaded",
		"path", s.path,
		"project_types", len(vocab.ProjectTypes),
		"materials", len(vocab.Materials),
		"techniques", len(vocab.Techniques),
	)
}
