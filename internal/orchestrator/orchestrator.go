// Package orchestrator composes the full evolve cycle: mutation selection,
// the Observe→Plan→Execute→Verify state machine, durable progress and
// history, and the analyze/improve variants.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Iron-Ham/kaizen/internal/agent"
	"github.com/Iron-Ham/kaizen/internal/backlog"
	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/gitops"
	"github.com/Iron-Ham/kaizen/internal/logging"
	"github.com/Iron-Ham/kaizen/internal/meta"
	"github.com/Iron-Ham/kaizen/internal/mutation"
	"github.com/Iron-Ham/kaizen/internal/progress"
	"github.com/Iron-Ham/kaizen/internal/proposal"
	"github.com/Iron-Ham/kaizen/internal/scout"
	"github.com/Iron-Ham/kaizen/internal/state"
)

// Orchestrator owns one project's evolve loop. All shared resources are
// explicit fields wired at construction; nothing is process-global.
type Orchestrator struct {
	cfg    *config.Config
	paths  state.Paths
	logger *logging.Logger

	runner    agent.Runner
	git       *gitops.Git
	verifier  *Verifier
	tracker   *progress.Tracker
	backlog   *backlog.Manager
	proposals *proposal.Manager
	catalog   *mutation.Catalog
	selector  *mutation.Selector
	meta      *meta.Observer
	scout     *scout.Scout
}

// New wires an Orchestrator for the project directory.
func New(projectDir string, cfg *config.Config, logger *logging.Logger) *Orchestrator {
	paths := state.NewPaths(projectDir)

	tracker := progress.NewTracker(paths.ProgressFile(), cfg.Weights)
	catalog := mutation.NewCatalog(paths.DynamicPersonasFile(), paths.DynamicAdversarialsFile())

	selector := mutation.NewSelector(catalog, tracker.Weight, paths)
	selector.Probability = cfg.AdversarialProbability
	selector.ActiveGroup = cfg.ActiveGroup
	selector.DisabledPersonas = cfg.Personas
	selector.DisabledAdversarials = cfg.Adversarials

	runner := agent.NewCLIRunner(cfg.Agent, logger)

	return &Orchestrator{
		cfg:       cfg,
		paths:     paths,
		logger:    logger,
		runner:    runner,
		git:       gitops.New(projectDir, logger),
		verifier:  NewVerifier(projectDir, cfg.Verify, logger),
		tracker:   tracker,
		backlog:   backlog.NewManager(paths.BacklogFile(), cfg.Backlog),
		proposals: proposal.NewManager(paths.ProposalsDir(), paths.ProposalsDoneDir()),
		catalog:   catalog,
		selector:  selector,
		meta: meta.NewObserver(runner, catalog, paths, cfg.Meta, cfg.Model,
			cfg.Turns.Meta, logger),
		scout: scout.New(runner, paths, cfg.Scout, cfg.Model, cfg.Turns.Scout, logger),
	}
}

// EvolveOptions tune one evolve run.
type EvolveOptions struct {
	// MaxCycles overrides the configured cycle budget when positive.
	MaxCycles int
	// ForcePersona pins every cycle to one persona id.
	ForcePersona string
	// ForceAdversarial is "" (roll), "none" (never), or an adversarial id.
	ForceAdversarial string
}

// Summary aggregates one run's outcomes.
type Summary struct {
	CyclesRun int
	Successes int
	Failures  int
	NoOps     int
	Skipped   int
	Paused    bool
	StoppedBy string
	LastCycle int
}

// RunEvolve executes up to the budgeted number of cycles. The loop survives
// per-cycle failures; it ends early when Plan reports nothing left to do or
// when cautious mode pauses for confirmation.
func (o *Orchestrator) RunEvolve(ctx context.Context, opts EvolveOptions) (Summary, error) {
	if err := o.git.RequireRepository(); err != nil {
		return Summary{}, err
	}
	o.refreshEnvironment()

	maxCycles := o.cfg.MaxCycles
	if opts.MaxCycles > 0 {
		maxCycles = opts.MaxCycles
	}

	var summary Summary
	for i := 0; i < maxCycles; i++ {
		if err := ctx.Err(); err != nil {
			summary.StoppedBy = "canceled"
			return summary, err
		}

		cycle := o.tracker.Stats().TotalCycles + 1
		logger := o.logger.WithCycle(cycle)
		logger.Info("cycle starting", "of_budget", maxCycles)

		if _, err := o.catalog.Expire(cycle); err != nil {
			logger.Warn("expiring dynamic mutations failed", "error", err.Error())
		}
		if o.meta.ShouldRun(cycle) {
			if _, err := o.meta.Run(ctx, o.metaContext(cycle)); err != nil {
				logger.Warn("meta phase failed", "error", err.Error())
			}
		}
		if o.scout.ShouldRun(cycle) {
			if _, err := o.scout.Run(ctx, cycle, o.identity()); err != nil {
				logger.Warn("scout phase failed", "error", err.Error())
			}
		}

		outcome, err := o.runCycle(ctx, cycle, opts, logger)
		if err != nil {
			return summary, err
		}

		summary.CyclesRun++
		summary.LastCycle = cycle
		switch outcome {
		case outcomeSuccess:
			summary.Successes++
		case outcomeFailure:
			summary.Failures++
		case outcomeNoOp:
			summary.NoOps++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeStopped:
			summary.Skipped++
			summary.StoppedBy = "plan"
			return summary, nil
		case outcomePaused:
			summary.Paused = true
			return summary, nil
		}
	}
	return summary, nil
}

// identity returns the free-form project identity, if authored.
func (o *Orchestrator) identity() string {
	data, err := os.ReadFile(o.paths.IdentityFile())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// refreshEnvironment re-counts tracked source files at the start of a run.
func (o *Orchestrator) refreshEnvironment() {
	env := state.ReadJSON(o.paths.EnvironmentFile(), Environment{})
	env.SourceFiles = o.git.SourceFileCount()
	env.UpdatedCycle = o.tracker.Stats().TotalCycles
	env.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := state.WriteJSON(o.paths.EnvironmentFile(), env); err != nil {
		o.logger.Warn("environment refresh failed", "error", err.Error())
	}
}

// observeBudget computes the Observe turn budget for this cycle: tracked
// file count scaled by the depth's ratio, with a per-depth floor.
func (o *Orchestrator) observeBudget(cycle int) (turns int, deep bool) {
	env := state.ReadJSON(o.paths.EnvironmentFile(), Environment{})
	files := env.SourceFiles

	switch o.cfg.ObserveDepth {
	case "deep":
		deep = true
	case "auto":
		interval := o.cfg.Observe.DeepCycleInterval
		deep = interval > 0 && cycle%interval == 0
	}

	ratio, floor := o.cfg.Observe.ShallowRatio, o.cfg.Observe.ShallowFloor
	if deep {
		ratio, floor = o.cfg.Observe.DeepRatio, o.cfg.Observe.DeepFloor
	}

	turns = int(float64(files) * ratio)
	if turns < floor {
		turns = floor
	}
	return turns, deep
}

func (o *Orchestrator) metaContext(cycle int) meta.Context {
	stats := o.tracker.Stats()
	progressSummary := fmt.Sprintf("%d cycles, %d successes, %d failures, %d commits",
		stats.TotalCycles, stats.Successes, stats.Failures, stats.TotalCommits)

	pending := o.backlog.Context(o.cfg.Backlog.ContextLimit)
	var backlogLines []string
	for _, item := range pending {
		backlogLines = append(backlogLines, fmt.Sprintf("- [%s] %s", item.Priority, item.Title))
	}

	var historyLines []string
	for _, rec := range o.RecentHistory(5) {
		status := "failure"
		switch {
		case rec.Success:
			status = "success"
		case rec.NoOp:
			status = "no-op"
		case rec.Skipped:
			status = "skipped"
		}
		historyLines = append(historyLines,
			fmt.Sprintf("- cycle %d (%s): %s", rec.Cycle, rec.Persona, status))
	}

	return meta.Context{
		Cycle:           cycle,
		Identity:        o.identity(),
		ProgressSummary: progressSummary,
		BacklogSummary:  strings.Join(backlogLines, "\n"),
		RecentHistory:   strings.Join(historyLines, "\n"),
		ConvergedAreas:  o.tracker.ConvergedAreas(),
	}
}
