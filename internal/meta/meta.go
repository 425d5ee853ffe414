// Package meta implements the periodic self-extension phase: generating new
// dynamic personas and adversarials, injecting self-authored stimuli, and
// recording strategic advice for future cycles.
package meta

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/kaizen/internal/agent"
	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/logging"
	"github.com/Iron-Ham/kaizen/internal/mutation"
	"github.com/Iron-Ham/kaizen/internal/state"
)

// Advice is the persisted strategic-direction record, overwritten wholesale
// on each generation, never merged.
type Advice struct {
	StrategicDirection string   `json:"strategic_direction"`
	FocusAreas         []string `json:"focus_areas,omitempty"`
	GeneratedCycle     int      `json:"generated_cycle"`
	GeneratedAt        string   `json:"generated_at"`
}

// Context is the summary handed to the meta prompt.
type Context struct {
	Cycle           int
	Identity        string
	ProgressSummary string
	BacklogSummary  string
	RecentHistory   string
	ConvergedAreas  []string
}

// Outcome reports what one meta run changed.
type Outcome struct {
	Expired           int
	AddedPersonas     int
	AddedAdversarials int
	StimuliWritten    int
	AdviceUpdated     bool
}

// response is the single fenced JSON block the meta prompt asks for.
type response struct {
	NewPersonas     []generatedMutation `json:"new_personas"`
	NewAdversarials []generatedMutation `json:"new_adversarials"`
	AutoStimuli     []string            `json:"auto_stimuli"`
	Advice          struct {
		StrategicDirection string   `json:"strategic_direction"`
		FocusAreas         []string `json:"focus_areas"`
	} `json:"advice"`
}

type generatedMutation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// Observer runs the meta phase every configured interval of cycles.
type Observer struct {
	runner  agent.Runner
	catalog *mutation.Catalog
	paths   state.Paths
	cfg     config.MetaConfig
	model   string
	turns   int
	logger  *logging.Logger
	now     func() time.Time
}

// NewObserver creates an Observer.
func NewObserver(runner agent.Runner, catalog *mutation.Catalog, paths state.Paths,
	cfg config.MetaConfig, model string, turns int, logger *logging.Logger) *Observer {
	return &Observer{
		runner:  runner,
		catalog: catalog,
		paths:   paths,
		cfg:     cfg,
		model:   model,
		turns:   turns,
		logger:  logger.With("phase", "meta"),
		now:     time.Now,
	}
}

// ShouldRun reports whether the meta phase is due at this cycle.
func (o *Observer) ShouldRun(cycle int) bool {
	return o.cfg.CycleInterval > 0 && cycle > 0 && cycle%o.cfg.CycleInterval == 0
}

// Run executes one meta phase: expire TTL'd mutations, ask the agent for
// catalog extensions, add them under the caps, write self-stimuli, and
// overwrite the advice record when a strategic direction was produced.
func (o *Observer) Run(ctx context.Context, mctx Context) (Outcome, error) {
	var outcome Outcome

	expired, err := o.catalog.Expire(mctx.Cycle)
	if err != nil {
		return outcome, fmt.Errorf("expiring dynamic mutations: %w", err)
	}
	outcome.Expired = expired

	result, err := o.runner.Run(ctx, agent.Request{
		Prompt:       o.buildPrompt(mctx),
		Model:        o.model,
		MaxTurns:     o.turns,
		AllowedTools: []string{"Read", "Grep", "Glob"},
		WorkingDir:   o.paths.ProjectDir,
	})
	if err != nil {
		return outcome, err
	}
	if !result.Success {
		o.logger.Warn("meta agent run failed", "exit_code", result.ExitCode)
		return outcome, nil
	}

	var resp response
	if err := agent.DecodeJSON(result.Output, &resp); err != nil {
		o.logger.Warn("meta output not parseable", "error", err.Error())
		return outcome, nil
	}

	for _, gen := range resp.NewPersonas {
		if o.catalog.AddDynamicPersona(o.toMutation(gen, mctx.Cycle), o.cfg.MaxDynamicPersonas) {
			outcome.AddedPersonas++
		}
	}
	for _, gen := range resp.NewAdversarials {
		if o.catalog.AddDynamicAdversarial(o.toMutation(gen, mctx.Cycle), o.cfg.MaxDynamicAdversarials) {
			outcome.AddedAdversarials++
		}
	}
	if outcome.AddedPersonas > 0 || outcome.AddedAdversarials > 0 {
		if err := o.catalog.Save(); err != nil {
			return outcome, fmt.Errorf("saving dynamic mutations: %w", err)
		}
	}

	for _, stimulus := range resp.AutoStimuli {
		if strings.TrimSpace(stimulus) == "" {
			continue
		}
		name := fmt.Sprintf("meta-%04d-%s.md", mctx.Cycle, uuid.NewString()[:8])
		if err := state.WriteNote(o.paths.StimuliDir(), name, stimulus); err != nil {
			return outcome, fmt.Errorf("writing stimulus: %w", err)
		}
		outcome.StimuliWritten++
	}

	if strings.TrimSpace(resp.Advice.StrategicDirection) != "" {
		advice := Advice{
			StrategicDirection: resp.Advice.StrategicDirection,
			FocusAreas:         resp.Advice.FocusAreas,
			GeneratedCycle:     mctx.Cycle,
			GeneratedAt:        o.now().UTC().Format(time.RFC3339),
		}
		if err := state.WriteJSON(o.paths.AdviceFile(), advice); err != nil {
			return outcome, fmt.Errorf("writing advice: %w", err)
		}
		outcome.AdviceUpdated = true
	}

	o.logger.Info("meta phase complete",
		"expired", outcome.Expired,
		"added_personas", outcome.AddedPersonas,
		"added_adversarials", outcome.AddedAdversarials,
		"stimuli", outcome.StimuliWritten,
		"advice_updated", outcome.AdviceUpdated)
	return outcome, nil
}

// LoadAdvice reads the current advice record, if any.
func LoadAdvice(path string) Advice {
	return state.ReadJSON(path, Advice{})
}

func (o *Observer) toMutation(gen generatedMutation, cycle int) mutation.Mutation {
	return mutation.Mutation{
		ID:           gen.ID,
		Name:         gen.Name,
		Text:         gen.Text,
		Dynamic:      true,
		ExpiresCycle: cycle + o.cfg.DynamicTTL,
	}
}

func (o *Observer) buildPrompt(mctx Context) string {
	var b strings.Builder
	b.WriteString("You are the meta-observer of an autonomous code-improvement loop.\n")
	b.WriteString("Review how the loop has been performing and extend its repertoire.\n\n")

	if mctx.Identity != "" {
		fmt.Fprintf(&b, "## Project\n%s\n\n", mctx.Identity)
	}
	fmt.Fprintf(&b, "## Current cycle\n%d\n\n", mctx.Cycle)

	b.WriteString("## Current mutation catalog\n")
	for _, m := range o.catalog.Personas() {
		fmt.Fprintf(&b, "- persona %s: %s\n", m.ID, m.Name)
	}
	for _, m := range o.catalog.Adversarials() {
		fmt.Fprintf(&b, "- adversarial %s: %s\n", m.ID, m.Name)
	}
	b.WriteString("\n")

	if mctx.ProgressSummary != "" {
		fmt.Fprintf(&b, "## Progress\n%s\n\n", mctx.ProgressSummary)
	}
	if mctx.BacklogSummary != "" {
		fmt.Fprintf(&b, "## Backlog\n%s\n\n", mctx.BacklogSummary)
	}
	if mctx.RecentHistory != "" {
		fmt.Fprintf(&b, "## Recent cycles\n%s\n\n", mctx.RecentHistory)
	}
	if len(mctx.ConvergedAreas) > 0 {
		fmt.Fprintf(&b, "## Converged areas (diminishing returns)\n%s\n\n",
			strings.Join(mctx.ConvergedAreas, ", "))
	}

	b.WriteString(`Respond with exactly one fenced JSON block:
` + "```json" + `
{
  "new_personas": [{"id": "kebab-case-id", "name": "Display Name", "text": "behavioral instruction"}],
  "new_adversarials": [{"id": "kebab-case-id", "name": "Display Name", "text": "challenge instruction"}],
  "auto_stimuli": ["a prompt worth injecting into a future cycle"],
  "advice": {"strategic_direction": "where the loop should focus next", "focus_areas": ["area"]}
}
` + "```" + `
Every array may be empty. Propose new mutations only when the current
catalog has a real blind spot.`)
	return b.String()
}
