package extract

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/knearme/showcase/core/breaker"
	"github.com/knearme/showcase/core/errors"
	"github.com/knearme/showcase/core/project"
	"github.com/knearme/showcase/core/providers"
)

// CapabilityDiscovery is the breaker capability protecting AI-assisted
// story extraction.
const CapabilityDiscovery = "discovery"

// ClarificationThreshold is the confidence below which an extracted field
// triggers a clarification request.
const ClarificationThreshold = 0.7

// Result is one extraction turn's output. The confidence map is consumed
// by the clarification decision and discarded after the merge.
type Result struct {
	Update             *project.Update
	NeedsClarification []string
	Confidence         map[string]float64
	ReadyForImages     bool
}

// Engine extracts structured story fields from user messages. The
// AI-assisted path runs when a completion client is configured and the
// discovery breaker allows it; otherwise the keyword fallback runs.
type Engine struct {
	client   providers.Client
	registry *breaker.Registry
	vocab    *VocabStore
	logger   *slog.Logger
}

// NewEngine creates an extraction engine. client may be nil, which pins
// the engine to the fallback path.
func NewEngine(client providers.Client, registry *breaker.Registry, vocab *VocabStore, logger *slog.Logger) *Engine {
	if vocab == nil {
		vocab = NewVocabStore(nil, logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:   client,
		registry: registry,
		vocab:    vocab,
		logger:   logger,
	}
}

// ExtractStory converts a user message plus accumulated state into a
// partial update, confidence scores, and clarification needs.
func (e *Engine) ExtractStory(ctx context.Context, message string, existing *project.State) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.WrapWithTier(errors.TierValidation,
			"extraction needs a message", errors.ErrInsufficientInput)
	}

	vocab := e.vocab.Get()

	result := e.tryAIExtract(ctx, message, existing, vocab)
	if result == nil {
		result = fallbackExtract(message, existing, vocab)
	}

	e.applyClarifications(result)
	result.ReadyForImages = previewReadiness(existing, result.Update)
	return result, nil
}

// tryAIExtract runs the AI path, returning nil when it is unavailable or
// fails so the caller falls back to keyword matching. Failures are
// recorded against the discovery breaker on the way through.
func (e *Engine) tryAIExtract(ctx context.Context, message string, existing *project.State, vocab *Vocabulary) *Result {
	if e.client == nil || e.registry == nil {
		return nil
	}
	if !e.registry.CanExecute(CapabilityDiscovery) {
		e.logger.Warn("discovery breaker open, using fallback extraction")
		return nil
	}

	result, err := breaker.Do(ctx, e.registry, CapabilityDiscovery,
		func(ctx context.Context) (*Result, error) {
			return e.aiExtract(ctx, message, existing, vocab)
		})
	if err != nil {
		e.logger.Warn("ai extraction failed, using fallback",
			"tier", errors.GetTier(err).String(),
			"error", err,
		)
		return nil
	}
	return result
}

// applyClarifications adds every extracted field scoring below the
// threshold to the clarification list.
func (e *Engine) applyClarifications(result *Result) {
	for field, score := range result.Confidence {
		if score < ClarificationThreshold {
			result.NeedsClarification = append(result.NeedsClarification, field)
		}
	}
	// Map iteration order would make the list flap between turns.
	sort.Strings(result.NeedsClarification)
}

// previewReadiness merges the update into a copy of the existing state and
// checks image readiness there, leaving the caller's state untouched.
func previewReadiness(existing *project.State, update *project.Update) bool {
	preview := existing.Clone()
	project.Merge(preview, update)
	return project.CheckReadyForImages(preview)
}
