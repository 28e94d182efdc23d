// Package orchestrator drives the conversational portfolio flow: it routes
// each user turn to the extraction engine or a sub-agent based on how far
// the project has progressed, and owns the single merge site where role
// results are folded into project state.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/knearme/showcase/agents/dispatch"
	"github.com/knearme/showcase/core/content"
	"github.com/knearme/showcase/core/extract"
	"github.com/knearme/showcase/core/project"
)

// Phase describes how far a project has progressed. Phases are derived
// from state on every turn and are advisory; they never gate what the
// caller may do.
type Phase string

const (
	PhaseGathering  Phase = "gathering"
	PhaseGenerating Phase = "generating"
	PhaseReview     Phase = "review"
	PhaseReady      Phase = "ready"
)

// ActionType names the follow-ups a turn can ask of the caller.
type ActionType string

const (
	ActionRequestClarification ActionType = "request_clarification"
	ActionPromptForImages      ActionType = "prompt_for_images"
	ActionGenerateContent      ActionType = "generate_content"
	ActionReadyToPublish       ActionType = "ready_to_publish"
)

// Action is one follow-up for the caller. Fields is set only for
// clarification requests.
type Action struct {
	Type   ActionType `json:"type"`
	Fields []string   `json:"fields,omitempty"`
}

// Options tune a single turn.
type Options struct {
	// PhaseHint overrides phase derivation for this turn. Advisory; an
	// empty or unknown hint falls back to derivation.
	PhaseHint Phase

	// NewImages marks that the user uploaded images this turn, which
	// triggers parallel narrative and layout generation.
	NewImages bool

	// MarketContext enables a web-search lookup of local context to
	// enrich generated copy.
	MarketContext bool
}

// Turn is one orchestration result. State is a new value; the caller's
// state is never mutated.
type Turn struct {
	State   *project.State
	Phase   Phase
	Actions []Action
	Message string
}

// Orchestrator holds the engine and dispatcher. It keeps no per-project
// state; everything lives in the caller-owned project state.
type Orchestrator struct {
	engine     *extract.Engine
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// New creates an orchestrator.
func New(engine *extract.Engine, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		engine:     engine,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// DerivePhase maps project state onto a phase.
func DerivePhase(s *project.State) Phase {
	switch {
	case s.ReadyToPublish:
		return PhaseReady
	case s.Title != "" && s.Description != "":
		return PhaseReview
	case project.CheckReadyForContent(s):
		return PhaseGenerating
	default:
		return PhaseGathering
	}
}

func validPhase(p Phase) bool {
	switch p {
	case PhaseGathering, PhaseGenerating, PhaseReview, PhaseReady:
		return true
	}
	return false
}

// Orchestrate processes one user turn.
func (o *Orchestrator) Orchestrate(ctx context.Context, state *project.State, message string, opts Options) (*Turn, error) {
	s := state.Clone()

	phase := opts.PhaseHint
	if !validPhase(phase) {
		phase = DerivePhase(s)
	}

	o.logger.Debug("orchestrating turn", "phase", phase, "new_images", opts.NewImages)

	switch phase {
	case PhaseGenerating:
		return o.generate(ctx, s, message, opts)
	case PhaseReview, PhaseReady:
		return o.review(ctx, s, message, phase)
	default:
		return o.gather(ctx, s, message)
	}
}

// gather runs extraction, merges the update, and works out what to ask
// for next.
func (o *Orchestrator) gather(ctx context.Context, s *project.State, message string) (*Turn, error) {
	result, err := o.engine.ExtractStory(ctx, message, s)
	if err != nil {
		return nil, err
	}

	// Fields previously awaiting clarification that the update answered
	// move to the clarified list.
	answered := clarifiedBy(s.NeedsClarification, result.Update)
	s.ClarifiedFields = project.UnionSets(s.ClarifiedFields, answered)

	project.Merge(s, result.Update)
	s.NeedsClarification = result.NeedsClarification
	project.RefreshReadiness(s)

	turn := &Turn{State: s, Phase: PhaseGathering}

	switch {
	case len(result.NeedsClarification) > 0:
		turn.Actions = append(turn.Actions, Action{
			Type:   ActionRequestClarification,
			Fields: result.NeedsClarification,
		})
		turn.Message = fmt.Sprintf("I want to make sure I got this right. Could you tell me more about: %s?",
			strings.Join(result.NeedsClarification, ", "))
	case project.CheckReadyForContent(s):
		turn.Actions = append(turn.Actions, Action{Type: ActionGenerateContent})
		turn.Message = "Great, I have the full story and your photos. Ready to draft the page."
	case s.ReadyForImages && len(s.Images) == 0:
		turn.Actions = append(turn.Actions, Action{Type: ActionPromptForImages})
		turn.Message = "That covers the story. Could you add some photos of the work, ideally before and after shots?"
	default:
		turn.Message = missingStoryPrompt(s)
	}

	return turn, nil
}

// generate produces copy. With fresh images the narrative and layout roles
// run in parallel; otherwise narrative runs alone.
func (o *Orchestrator) generate(ctx context.Context, s *project.State, message string, opts Options) (*Turn, error) {
	dctx := &dispatch.Context{State: s, Message: message}

	if opts.MarketContext && s.City != "" {
		if note := o.marketContext(ctx, dctx); note != "" {
			dctx.Message = strings.TrimSpace(message + "\n\nLocal context: " + note)
		}
	}

	var notes []string
	if opts.NewImages && len(s.Images) > 0 {
		results := o.dispatcher.DispatchParallel(ctx, dctx,
			dispatch.RoleNarrative, dispatch.RoleLayout)
		notes = append(notes, o.apply(s, results[dispatch.RoleNarrative]))
		notes = append(notes, o.apply(s, results[dispatch.RoleLayout]))
	} else {
		notes = append(notes, o.apply(s, o.dispatcher.Dispatch(ctx, dispatch.RoleNarrative, dctx)))
	}

	content.Enforce(s)
	project.RefreshReadiness(s)

	turn := &Turn{State: s, Phase: PhaseGenerating}
	if s.Title != "" {
		turn.Message = fmt.Sprintf("Here's the draft: %q. Want me to change anything before the final review?", s.Title)
	} else {
		turn.Message = "I couldn't draft the page just now. Your story is saved; let's try again in a moment."
	}
	if extra := joinNotes(notes); extra != "" {
		turn.Message += " " + extra
	}
	return turn, nil
}

// review runs the quality role. Its verdict is advisory: approval flips
// ReadyToPublish true, and nothing in this path ever flips it false.
func (o *Orchestrator) review(ctx context.Context, s *project.State, message string, phase Phase) (*Turn, error) {
	result := o.dispatcher.Dispatch(ctx, dispatch.RoleQuality,
		&dispatch.Context{State: s, Message: message})

	turn := &Turn{State: s, Phase: phase}

	if result.Failed() {
		o.logger.Warn("quality review unavailable, publish state unchanged",
			"error", result.Err)
		turn.Message = "I couldn't run the final quality check, so I'll hold off marking this ready. You can still publish whenever you like."
		return turn, nil
	}

	quality := result.Quality
	if quality.ReadyToPublish {
		s.ReadyToPublish = true
		turn.Phase = PhaseReady
		turn.Actions = append(turn.Actions, Action{Type: ActionReadyToPublish})
		turn.Message = "The page looks complete. It's ready to publish."
		return turn, nil
	}

	turn.Message = fmt.Sprintf("A few things could make this stronger: %s. You can publish as is or make changes first.",
		strings.Join(quality.Issues, "; "))
	return turn, nil
}

// marketContext looks up local context through the search role. Failures
// degrade to no context.
func (o *Orchestrator) marketContext(ctx context.Context, dctx *dispatch.Context) string {
	result := o.dispatcher.Dispatch(ctx, dispatch.RoleSearch, dctx)
	return o.apply(dctx.State, result)
}

// apply is the single merge site. It switches exhaustively over every
// role variant and returns an informational note for the turn message.
func (o *Orchestrator) apply(s *project.State, result *dispatch.RoleResult) string {
	if result.Failed() {
		o.logger.Warn("role result discarded",
			"role", result.Role,
			"retryable", result.Retryable,
			"error", result.Err,
		)
		return ""
	}

	switch result.Role {
	case dispatch.RoleNarrative:
		p := result.Narrative
		s.Title = applyField(s.Title, p.Updates["title"])
		s.Description = applyField(s.Description, p.Updates["description"])
		s.SEOTitle = applyField(s.SEOTitle, p.Updates["seoTitle"])
		s.SEODescription = applyField(s.SEODescription, p.Updates["seoDescription"])
		s.Tags = project.UnionSets(s.Tags, p.Tags)
		return ""

	case dispatch.RoleLayout:
		p := result.Layout
		reorderImages(s, p.Order)
		if p.HeroImageID != "" && hasImage(s, p.HeroImageID) {
			s.HeroImageID = p.HeroImageID
		}
		return ""

	case dispatch.RoleQuality:
		if result.Quality.ReadyToPublish {
			s.ReadyToPublish = true
		}
		return ""

	case dispatch.RoleSearch:
		p := result.Search
		if p.Summary != "" {
			return p.Summary
		}
		return flattenFindings(p.Structured)

	default:
		o.logger.Warn("unhandled role result", "role", result.Role)
		return ""
	}
}

// flattenFindings renders structured search findings as stable
// "key: value" prose, keys sorted so turn messages are deterministic.
func flattenFindings(findings map[string]any) string {
	if len(findings) == 0 {
		return ""
	}

	keys := make([]string, 0, len(findings))
	for key := range findings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", key, findings[key]))
	}
	return strings.Join(parts, "; ")
}

// applyField is last-writer-wins with the empty string never clobbering.
func applyField(current, update string) string {
	if update == "" {
		return current
	}
	return update
}

// reorderImages rewrites display order to match the layout's ordering.
// Unknown ids are ignored; images the layout omitted keep their relative
// order after the ordered ones.
func reorderImages(s *project.State, order []string) {
	if len(order) == 0 {
		return
	}

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	next := len(order)
	for i := range s.Images {
		if pos, ok := position[s.Images[i].ID]; ok {
			s.Images[i].DisplayOrder = pos
		} else {
			s.Images[i].DisplayOrder = next
			next++
		}
	}
}

func hasImage(s *project.State, id string) bool {
	for _, img := range s.Images {
		if img.ID == id {
			return true
		}
	}
	return false
}

// clarifiedBy returns the pending clarification fields the update answered.
func clarifiedBy(pending []string, update *project.Update) []string {
	if update == nil {
		return nil
	}

	set := map[string]bool{
		"projectType": update.ProjectType != nil,
		"problem":     update.Problem != nil,
		"solution":    update.Solution != nil,
		"city":        update.City != nil,
		"state":       update.StateCode != nil,
		"materials":   len(update.Materials) > 0,
		"techniques":  len(update.Techniques) > 0,
	}

	var answered []string
	for _, field := range pending {
		if set[field] {
			answered = append(answered, field)
		}
	}
	return answered
}

// missingStoryPrompt asks for the story pieces still missing, in a fixed
// order so prompts stay stable across turns.
func missingStoryPrompt(s *project.State) string {
	missing := project.MissingStoryFields(s)
	if len(missing) == 0 {
		return "Tell me more about this project."
	}

	prompts := map[string]string{
		"projectType": "what kind of project this was",
		"problem":     "what problem the customer came to you with",
		"solution":    "how you solved it",
		"materials":   "what materials you used",
	}

	parts := make([]string, 0, len(missing))
	for _, field := range missing {
		if p, ok := prompts[field]; ok {
			parts = append(parts, p)
		}
	}
	return fmt.Sprintf("Thanks! To finish the story I still need: %s.", strings.Join(parts, ", "))
}

func joinNotes(notes []string) string {
	var kept []string
	for _, n := range notes {
		if n != "" {
			kept = append(kept, n)
		}
	}
	return strings.Join(kept, " ")
}
