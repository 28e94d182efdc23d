package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/knearme/showcase/agents/dispatch"
	"github.com/knearme/showcase/agents/layout"
	"github.com/knearme/showcase/agents/narrative"
	"github.com/knearme/showcase/agents/quality"
	"github.com/knearme/showcase/agents/search"
	"github.com/knearme/showcase/core/breaker"
	"github.com/knearme/showcase/core/config"
	"github.com/knearme/showcase/core/extract"
	"github.com/knearme/showcase/core/images"
	"github.com/knearme/showcase/core/orchestrator"
	"github.com/knearme/showcase/core/project"
	"github.com/knearme/showcase/core/providers"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Build a portfolio page interactively",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// app is the assembled runtime: everything the chat loop needs.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	registry     *breaker.Registry
	vocab        *extract.VocabStore
	orchestrator *orchestrator.Orchestrator
	halted       chan string
	stop         chan struct{}

	// pendingImages marks that images arrived since the last turn, so the
	// next orchestration runs the parallel narrative and layout pass.
	pendingImages bool
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	return a.repl(cmd)
}

// buildApp wires the composition root: config, providers, breakers,
// vocabulary, dispatcher, orchestrator.
func buildApp() (*app, error) {
	manager := config.NewManager(configPath)
	if err := manager.Load(); err != nil {
		return nil, err
	}
	cfg := manager.Get()

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logger := newLogger(level)

	a := &app{
		cfg:    cfg,
		logger: logger,
		halted: make(chan string, 1),
		stop:   make(chan struct{}),
	}

	if err := manager.Watch(logger, a.stop); err != nil {
		logger.Warn("config hot reload unavailable", "error", err)
	}

	client, err := providers.NewClient(cfg.Providers)
	if err != nil {
		logger.Warn("no completion provider available, extraction runs in keyword mode",
			"error", err)
		client = nil
	}

	var store *breaker.Store
	if cfg.StorePath != "" {
		store, err = breaker.OpenStore(cfg.StorePath)
		if err != nil {
			return nil, err
		}
	}

	overrides := make([]breaker.Override, 0, len(cfg.Breakers.Overrides))
	for pattern, bc := range cfg.Breakers.Overrides {
		overrides = append(overrides, breaker.Override{Pattern: pattern, Config: bc})
	}

	a.registry, err = breaker.NewRegistry(breaker.RegistryConfig{
		Default:       cfg.Breakers.Default,
		Overrides:     overrides,
		KillThreshold: cfg.Breakers.KillThreshold,
		Store:         store,
		Logger:        logger,
		KillSwitch: func(reason, source string) {
			logger.Error("kill switch fired", "reason", reason, "source", source)
			select {
			case a.halted <- reason:
			default:
			}
		},
	})
	if err != nil {
		return nil, err
	}

	if cfg.VocabularyPath != "" {
		a.vocab, err = extract.OpenVocabStore(cfg.VocabularyPath, logger)
		if err != nil {
			return nil, err
		}
	} else {
		a.vocab = extract.NewVocabStore(nil, logger)
	}

	fetcher, err := images.NewFetcher(cfg.Images, logger)
	if err != nil {
		return nil, err
	}

	engine := extract.NewEngine(client, a.registry, a.vocab, logger)

	dispatcher := dispatch.NewDispatcher(client, a.registry, fetcher, logger)
	for _, spec := range []dispatch.Spec{
		narrative.Spec(), layout.Spec(), quality.Spec(), search.Spec(),
	} {
		spec.Timeout = cfg.Orchestrator.RoleTimeout
		dispatcher.Register(spec)
	}

	a.orchestrator = orchestrator.New(engine, dispatcher, logger)
	return a, nil
}

func (a *app) close() {
	if a.stop != nil {
		close(a.stop)
	}
	if a.vocab != nil {
		a.vocab.Close()
	}
}

func (a *app) repl(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Tell me about a recent project. Commands: /state /breakers /image <url> /quit")

	state := &project.State{}
	scanner := bufio.NewScanner(os.Stdin)

	for {
		select {
		case reason := <-a.halted:
			fmt.Fprintf(out, "Stopping: %s\n", reason)
			return nil
		default:
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := a.command(out, state, line)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			continue
		}

		opts := orchestrator.Options{
			NewImages:     a.pendingImages,
			MarketContext: a.cfg.Orchestrator.MarketContext,
		}
		turn, err := a.orchestrator.Orchestrate(cmd.Context(), state, line, opts)
		if err != nil {
			fmt.Fprintf(out, "Sorry, %v\n", err)
			continue
		}

		a.pendingImages = false
		state = turn.State
		fmt.Fprintln(out, turn.Message)
		for _, action := range turn.Actions {
			a.logger.Debug("turn action", "type", action.Type, "fields", action.Fields)
		}
	}
}

// command handles REPL slash commands. It returns true when the loop
// should exit.
func (a *app) command(out io.Writer, state *project.State, line string) (bool, error) {
	parts := strings.Fields(line)

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/state":
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, string(data))

	case "/breakers":
		for capability, status := range a.registry.Status() {
			fmt.Fprintf(out, "%-20s %-9s failures=%d successes=%d\n",
				capability, status.State, status.Failures, status.Successes)
		}

	case "/image":
		if len(parts) < 2 {
			fmt.Fprintln(out, "usage: /image <url> [before|after|progress|detail]")
			break
		}
		role := project.ImageRoleDetail
		if len(parts) > 2 {
			role = project.ImageRole(parts[2])
		}
		state.Images = append(state.Images, project.ImageRef{
			ID:           uuid.NewString(),
			URL:          parts[1],
			Role:         role,
			DisplayOrder: len(state.Images),
		})
		project.RefreshReadiness(state)
		a.pendingImages = true
		fmt.Fprintf(out, "Added image %d (%s).\n", len(state.Images), role)

	default:
		fmt.Fprintf(out, "Unknown command %s\n", parts[0])
	}

	return false, nil
}
