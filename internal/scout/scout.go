// Package scout implements the periodic ecosystem-watch phase: asking the
// agent for external findings relevant to the project and injecting the
// relevant ones as one-shot stimuli.
package scout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Iron-Ham/kaizen/internal/agent"
	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/logging"
	"github.com/Iron-Ham/kaizen/internal/state"
)

// Finding is one external discovery: a release, advisory, technique, or
// tool the project could benefit from.
type Finding struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	URL       string  `json:"url,omitempty"`
	Summary   string  `json:"summary,omitempty"`
	Relevance float64 `json:"relevance"`
	// Injected marks findings that were materialized as a stimulus,
	// stamped with the cycle that did it.
	Injected      bool `json:"injected"`
	InjectedCycle int  `json:"injected_cycle,omitempty"`
}

// Cache is the persisted scout record: everything ever seen, for dedup.
type Cache struct {
	LastRunCycle int       `json:"last_run_cycle"`
	Findings     []Finding `json:"findings"`
}

// Outcome reports what one scout run produced.
type Outcome struct {
	NewFindings int
	Injected    int
	Duplicates  int
}

// seenWindow caps how many previously-seen ids the prompt carries.
const seenWindow = 50

// Scout runs the ecosystem watch every configured interval of cycles.
type Scout struct {
	runner agent.Runner
	paths  state.Paths
	cfg    config.ScoutConfig
	model  string
	turns  int
	logger *logging.Logger
}

// New creates a Scout.
func New(runner agent.Runner, paths state.Paths, cfg config.ScoutConfig,
	model string, turns int, logger *logging.Logger) *Scout {
	return &Scout{
		runner: runner,
		paths:  paths,
		cfg:    cfg,
		model:  model,
		turns:  turns,
		logger: logger.With("phase", "scout"),
	}
}

// ShouldRun reports whether the scout is due at this cycle.
func (s *Scout) ShouldRun(cycle int) bool {
	return s.cfg.Enabled && s.cfg.CycleInterval > 0 && cycle > 0 && cycle%s.cfg.CycleInterval == 0
}

// Run executes one scout phase. Findings at or above the relevance
// threshold become stimuli; everything new lands in the cache either way.
func (s *Scout) Run(ctx context.Context, cycle int, identity string) (Outcome, error) {
	var outcome Outcome
	cache := state.ReadJSON(s.paths.ScoutFile(), Cache{})

	seen := map[string]bool{}
	for _, f := range cache.Findings {
		seen[f.ID] = true
	}

	result, err := s.runner.Run(ctx, agent.Request{
		Prompt:       s.buildPrompt(identity, cache.Findings),
		Model:        s.model,
		MaxTurns:     s.turns,
		AllowedTools: []string{"WebSearch", "WebFetch", "Read"},
		WorkingDir:   s.paths.ProjectDir,
	})
	if err != nil {
		return outcome, err
	}

	var resp struct {
		Findings []Finding `json:"findings"`
	}
	if !result.Success {
		s.logger.Warn("scout agent run failed", "exit_code", result.ExitCode)
	} else if err := agent.DecodeJSON(result.Output, &resp); err != nil {
		s.logger.Warn("scout output not parseable", "error", err.Error())
	}

	for _, f := range resp.Findings {
		if f.ID == "" {
			f.ID = fingerprint(f.Title, f.URL)
		}
		if seen[f.ID] {
			outcome.Duplicates++
			continue
		}
		seen[f.ID] = true
		outcome.NewFindings++

		if f.Relevance >= s.cfg.MinRelevance {
			if err := state.WriteNote(s.paths.StimuliDir(), stimulusName(f.ID), s.renderStimulus(f)); err != nil {
				return outcome, fmt.Errorf("writing scout stimulus: %w", err)
			}
			f.Injected = true
			f.InjectedCycle = cycle
			outcome.Injected++
		}
		cache.Findings = append(cache.Findings, f)
	}

	cache.LastRunCycle = cycle
	if err := state.WriteJSON(s.paths.ScoutFile(), cache); err != nil {
		return outcome, fmt.Errorf("writing scout cache: %w", err)
	}

	s.logger.Info("scout phase complete",
		"new", outcome.NewFindings,
		"injected", outcome.Injected,
		"duplicates", outcome.Duplicates)
	return outcome, nil
}

// fingerprint derives a stable finding id from its title and source URL.
func fingerprint(title, url string) string {
	sum := sha256.Sum256([]byte(title + "\n" + url))
	return hex.EncodeToString(sum[:16])
}

// stimulusName derives a filesystem-safe note name from a finding id. Ids
// may come straight from the agent, so they can be arbitrarily short and
// carry arbitrary characters.
func stimulusName(id string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, id)
	if len(safe) > 12 {
		safe = safe[:12]
	}
	return fmt.Sprintf("scout-%s.md", safe)
}

func (s *Scout) renderStimulus(f Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# External finding: %s\n\n", f.Title)
	if f.URL != "" {
		fmt.Fprintf(&b, "Source: %s\n\n", f.URL)
	}
	if f.Summary != "" {
		b.WriteString(f.Summary)
		b.WriteString("\n\n")
	}
	b.WriteString("Consider whether this applies to the project and act on it if so.\n")
	return b.String()
}

func (s *Scout) buildPrompt(identity string, known []Finding) string {
	var b strings.Builder
	b.WriteString("You are scouting the ecosystem for developments relevant to this project:\n")
	b.WriteString("new library releases, security advisories, language features, tools, techniques.\n\n")

	if identity != "" {
		fmt.Fprintf(&b, "## Project\n%s\n\n", identity)
	}

	if len(known) > 0 {
		b.WriteString("## Already seen (do not repeat)\n")
		start := 0
		if len(known) > seenWindow {
			start = len(known) - seenWindow
		}
		for _, f := range known[start:] {
			fmt.Fprintf(&b, "- %s (%s)\n", f.ID, f.Title)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Respond with exactly one fenced JSON block:
` + "```json" + `
{
  "findings": [
    {"title": "what you found", "url": "https://source", "summary": "why it matters here", "relevance": 0.0}
  ]
}
` + "```" + `
relevance is your 0-1 estimate of how applicable the finding is to this
specific project. An empty findings array is a valid answer.`)
	return b.String()
}
