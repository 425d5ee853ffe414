package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/kaizen/internal/agent"
	"github.com/Iron-Ham/kaizen/internal/logging"
	"github.com/Iron-Ham/kaizen/internal/meta"
	"github.com/Iron-Ham/kaizen/internal/mutation"
	"github.com/Iron-Ham/kaizen/internal/state"
)

// readOnlyTools is the capability allow-list for Observe, Plan, Meta, and
// Scout; only Execute may write.
var readOnlyTools = []string{"Read", "Grep", "Glob"}

// readWriteTools is the Execute allow-list.
var readWriteTools = []string{"Read", "Grep", "Glob", "Edit", "Write", "Bash"}

// improvement is one Observe finding.
type improvement struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Files       []string `json:"files"`
	Description string   `json:"description"`
}

type observeResponse struct {
	Summary      string        `json:"summary"`
	Improvements []improvement `json:"improvements"`
}

type planAction string

const (
	planImplement planAction = "implement"
	planSkip      planAction = "skip"
	planStop      planAction = "stop"
)

type planResponse struct {
	Action        planAction `json:"action"`
	Selected      string     `json:"selected"`
	Plan          string     `json:"plan"`
	CommitMessage string     `json:"commit_message"`
}

// observe runs the read-only Observe phase. A failed agent run, an
// unparseable response, or an empty improvement list all return nil.
func (o *Orchestrator) observe(ctx context.Context, cycle int, sel mutation.Selection, logger *logging.Logger) (*observeResponse, error) {
	turns, deep := o.observeBudget(cycle)
	logger.Info("observe starting", "turns", turns, "deep", deep)

	result, err := o.runner.Run(ctx, agent.Request{
		Prompt:       o.buildObservePrompt(sel, deep),
		Model:        o.cfg.Model,
		MaxTurns:     turns,
		AllowedTools: readOnlyTools,
		WorkingDir:   o.paths.ProjectDir,
	})
	if err != nil {
		return nil, err
	}
	if !result.Success {
		logger.Warn("observe agent run failed", "exit_code", result.ExitCode)
		return nil, nil
	}

	var resp observeResponse
	if err := agent.DecodeJSON(result.Output, &resp); err != nil {
		logger.Warn("observe output not parseable", "error", err.Error())
		return nil, nil
	}

	// Drop malformed entries instead of failing the phase.
	kept := resp.Improvements[:0]
	for _, imp := range resp.Improvements {
		if strings.TrimSpace(imp.Title) == "" {
			continue
		}
		kept = append(kept, imp)
	}
	resp.Improvements = kept

	if len(resp.Improvements) == 0 {
		logger.Info("observe found no improvements")
		return nil, nil
	}
	logger.Info("observe complete", "improvements", len(resp.Improvements))
	return &resp, nil
}

// plan runs the read-only Plan phase over Observe's findings. Unrecognized
// actions degrade to skip.
func (o *Orchestrator) plan(ctx context.Context, sel mutation.Selection, observed *observeResponse, logger *logging.Logger) (planResponse, error) {
	result, err := o.runner.Run(ctx, agent.Request{
		Prompt:       o.buildPlanPrompt(sel, observed),
		Model:        o.cfg.Model,
		MaxTurns:     o.cfg.Turns.Plan,
		AllowedTools: readOnlyTools,
		WorkingDir:   o.paths.ProjectDir,
	})
	if err != nil {
		return planResponse{}, err
	}
	if !result.Success {
		logger.Warn("plan agent run failed", "exit_code", result.ExitCode)
		return planResponse{Action: planSkip}, nil
	}

	var resp planResponse
	if err := agent.DecodeJSON(result.Output, &resp); err != nil {
		logger.Warn("plan output not parseable", "error", err.Error())
		return planResponse{Action: planSkip}, nil
	}

	switch resp.Action {
	case planImplement:
		if strings.TrimSpace(resp.Plan) == "" {
			logger.Warn("plan chose implement without a plan body")
			return planResponse{Action: planSkip}, nil
		}
	case planStop, planSkip:
		// recognized as-is
	default:
		logger.Warn("plan returned unrecognized action", "action", string(resp.Action))
		resp.Action = planSkip
	}
	return resp, nil
}

// execute runs the read+write Execute phase against the literal plan.
func (o *Orchestrator) execute(ctx context.Context, plan string, logger *logging.Logger) (bool, error) {
	logger.Info("execute starting")

	result, err := o.runner.Run(ctx, agent.Request{
		Prompt:       o.buildExecutePrompt(plan),
		Model:        o.cfg.Model,
		MaxTurns:     o.cfg.Turns.Execute,
		AllowedTools: readWriteTools,
		WorkingDir:   o.paths.ProjectDir,
	})
	if err != nil {
		return false, err
	}
	if !result.Success {
		logger.Warn("execute agent run failed", "exit_code", result.ExitCode)
	}
	return result.Success, nil
}

func (o *Orchestrator) buildObservePrompt(sel mutation.Selection, deep bool) string {
	var b strings.Builder
	b.WriteString("You are observing a codebase to find concrete improvement opportunities.\n\n")

	fmt.Fprintf(&b, "## Your lens: %s\n%s\n\n", sel.Persona.Name, sel.Persona.Text)
	if sel.Adversarial != nil {
		fmt.Fprintf(&b, "## Adversarial challenge: %s\n%s\n\n",
			sel.Adversarial.Name, sel.Adversarial.Text)
	}

	if identity := o.identity(); identity != "" {
		fmt.Fprintf(&b, "## Project\n%s\n\n", identity)
	}

	if advice := meta.LoadAdvice(o.paths.AdviceFile()); advice.StrategicDirection != "" {
		fmt.Fprintf(&b, "## Strategic direction\n%s\n\n", advice.StrategicDirection)
	}

	if pending := o.backlog.Context(o.cfg.Backlog.ContextLimit); len(pending) > 0 {
		b.WriteString("## Known backlog (avoid re-reporting; prefer fresh findings)\n")
		for _, item := range pending {
			fmt.Fprintf(&b, "- [%s] %s\n", item.Priority, item.Title)
		}
		b.WriteString("\n")
	}

	writeNotes(&b, "## External stimuli", sel.Stimuli)
	writeNotes(&b, "## Operator decisions (binding)", sel.Decisions)

	if converged := o.tracker.ConvergedAreas(); len(converged) > 0 {
		fmt.Fprintf(&b, "## Converged areas (diminishing returns, look elsewhere)\n%s\n\n",
			strings.Join(converged, ", "))
	}

	if deep {
		b.WriteString("Perform a deep review: read broadly, follow call chains, question architecture.\n")
	} else {
		b.WriteString("Perform a focused review: sample the most load-bearing files.\n")
	}

	b.WriteString(`
Respond with exactly one fenced JSON block:
` + "```json" + `
{
  "summary": "one paragraph on the state of the code through your lens",
  "improvements": [
    {"title": "imperative, specific", "category": "area", "priority": "high|medium|low",
     "files": ["path"], "description": "what to change and why"}
  ]
}
` + "```" + `
Report at most five improvements. An empty list is an honest answer.`)
	return b.String()
}

func (o *Orchestrator) buildPlanPrompt(sel mutation.Selection, observed *observeResponse) string {
	var b strings.Builder
	b.WriteString("Pick at most one of these observed improvements and plan its implementation.\n\n")

	fmt.Fprintf(&b, "## Observer summary\n%s\n\n", observed.Summary)
	b.WriteString("## Improvements\n")
	for _, imp := range observed.Improvements {
		fmt.Fprintf(&b, "- %q [%s, %s]: %s\n", imp.Title, imp.Category, imp.Priority, imp.Description)
	}
	b.WriteString("\n")

	writeNotes(&b, "## Operator decisions (binding)", sel.Decisions)

	b.WriteString(`Respond with exactly one fenced JSON block:
` + "```json" + `
{
  "action": "implement",
  "selected": "the chosen improvement's title",
  "plan": "step-by-step implementation plan, concrete enough to follow literally",
  "commit_message": "conventional one-line commit message"
}
` + "```" + `
Use "action": "skip" when none of the improvements is worth doing this
cycle, and "action": "stop" when the codebase needs no further improvement
at all.`)
	return b.String()
}

func (o *Orchestrator) buildExecutePrompt(plan string) string {
	var b strings.Builder
	b.WriteString("Implement the following plan in this working directory. ")
	b.WriteString("Make the edits directly; do not commit.\n\n")
	b.WriteString("## Plan\n")
	b.WriteString(plan)
	b.WriteString("\n\nWhen done, reply with a short summary of what you changed.")
	return b.String()
}

func writeNotes(b *strings.Builder, heading string, notes []state.Note) {
	if len(notes) == 0 {
		return
	}
	b.WriteString(heading + "\n")
	for _, note := range notes {
		fmt.Fprintf(b, "### %s\n%s\n", note.Name, strings.TrimSpace(note.Content))
	}
	b.WriteString("\n")
}
