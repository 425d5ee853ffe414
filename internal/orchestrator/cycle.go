package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/kaizen/internal/backlog"
	"github.com/Iron-Ham/kaizen/internal/logging"
	"github.com/Iron-Ham/kaizen/internal/mutation"
	"github.com/Iron-Ham/kaizen/internal/state"
)

type cycleOutcome int

const (
	outcomeSuccess cycleOutcome = iota
	outcomeFailure
	outcomeNoOp
	outcomeSkipped
	outcomeStopped
	outcomePaused
)

// runCycle drives one Observe→Plan→Execute→Verify pass. Phase failures are
// recorded and the run continues; only infrastructure errors propagate.
func (o *Orchestrator) runCycle(ctx context.Context, cycle int, opts EvolveOptions, logger *logging.Logger) (cycleOutcome, error) {
	started := time.Now()

	selection, err := o.selector.Select(mutation.Options{
		ForcePersona:     opts.ForcePersona,
		ForceAdversarial: opts.ForceAdversarial,
	})
	if err != nil {
		return 0, err
	}
	logger = logger.WithPersona(selection.Persona.ID)
	if selection.Adversarial != nil {
		logger.Info("cycle mutation selected", "adversarial", selection.Adversarial.ID)
	} else {
		logger.Info("cycle mutation selected")
	}

	rec := CycleRecord{Cycle: cycle, Persona: selection.Persona.ID}
	if selection.Adversarial != nil {
		rec.Adversarial = selection.Adversarial.ID
	}
	fail := func(outcome cycleOutcome, reason string) (cycleOutcome, error) {
		rec.Success = false
		rec.NoOp = outcome == outcomeNoOp
		rec.Skipped = outcome == outcomeSkipped
		rec.FailureReason = reason
		rec.DurationSeconds = time.Since(started).Seconds()
		if err := o.finishCycle(rec, false, cycle); err != nil {
			return 0, err
		}
		return outcome, nil
	}

	// Observe
	observed, err := o.observe(ctx, cycle, selection, logger)
	if err != nil {
		return 0, err
	}
	if observed == nil {
		return fail(outcomeFailure, "observe produced no usable improvements")
	}

	// Plan
	plan, err := o.plan(ctx, selection, observed, logger)
	if err != nil {
		return 0, err
	}
	switch plan.Action {
	case planImplement:
		// proceed
	case planStop:
		logger.Info("plan reports no improvements needed, stopping run")
		rec.Skipped = true
		rec.DurationSeconds = time.Since(started).Seconds()
		if err := o.finishStoppedCycle(rec, cycle); err != nil {
			return 0, err
		}
		return outcomeStopped, nil
	default:
		return fail(outcomeSkipped, "plan skipped the cycle")
	}

	// Everything Observe found but Plan did not select feeds the backlog.
	o.saveUnselected(observed, plan.Selected, selection.Persona.ID, cycle)

	// A selection matching a previously-filed idea adopts that item's
	// lifecycle: in_progress now, completed or re-queued by the outcome.
	backlogID, err := o.backlog.ClaimByTitle(plan.Selected)
	if err != nil {
		return 0, err
	}

	if o.cfg.Cautious {
		session := PendingSession{
			Cycle:         cycle,
			Persona:       selection.Persona.ID,
			Plan:          plan.Plan,
			CommitMessage: plan.CommitMessage,
			BacklogItemID: backlogID,
			Config:        *o.cfg,
			CreatedAt:     time.Now().UTC(),
		}
		if selection.Adversarial != nil {
			session.Adversarial = selection.Adversarial.ID
		}
		if err := state.WriteJSON(o.paths.PendingFile(), session); err != nil {
			return 0, fmt.Errorf("persisting pending session: %w", err)
		}
		logger.Info("cautious pause, awaiting resume")
		return outcomePaused, nil
	}

	outcome, changed, reason, err := o.executeAndVerify(ctx, cycle, plan.Plan, plan.CommitMessage, logger)
	if err != nil {
		return 0, err
	}
	o.settleBacklogItem(backlogID, outcome, logger)

	rec.Success = outcome == outcomeSuccess
	rec.NoOp = outcome == outcomeNoOp
	rec.CommitMessage = plan.CommitMessage
	rec.ChangedFiles = changed
	rec.FailureReason = reason
	rec.DurationSeconds = time.Since(started).Seconds()
	if err := o.finishCycle(rec, rec.Success, cycle); err != nil {
		return 0, err
	}
	return outcome, nil
}

// executeAndVerify runs the checkpointed Execute phase, verification, and
// the commit-or-revert resolution. Returns the outcome, the changed files
// on success, and a failure reason otherwise.
func (o *Orchestrator) executeAndVerify(ctx context.Context, cycle int, plan, commitMessage string, logger *logging.Logger) (cycleOutcome, []string, string, error) {
	checkpoint := fmt.Sprintf("pre-cycle-%04d", cycle)
	if err := o.git.Checkpoint(checkpoint); err != nil {
		return 0, nil, "", err
	}

	executed, err := o.execute(ctx, plan, logger)
	if err != nil {
		return 0, nil, "", err
	}
	if !executed {
		if rerr := o.git.RestoreCheckpoint(checkpoint); rerr != nil {
			return 0, nil, "", rerr
		}
		return outcomeFailure, nil, "execute phase failed", nil
	}

	if verr := o.verifier.Verify(ctx); verr != nil {
		logger.Warn("verification failed, restoring checkpoint", "error", verr.Error())
		if rerr := o.git.RestoreCheckpoint(checkpoint); rerr != nil {
			return 0, nil, "", rerr
		}
		return outcomeFailure, nil, verr.Error(), nil
	}

	changed, err := o.git.ChangedFiles()
	if err != nil {
		return 0, nil, "", err
	}
	if len(changed) == 0 {
		logger.Info("verification passed but nothing changed")
		if derr := o.git.DropCheckpoint(checkpoint); derr != nil {
			return 0, nil, "", derr
		}
		return outcomeNoOp, nil, "", nil
	}

	if commitMessage == "" {
		commitMessage = fmt.Sprintf("kaizen: cycle %d improvement", cycle)
	}
	prBody := fmt.Sprintf("Automated improvement from evolve cycle %d.", cycle)
	if err := o.git.Publish(o.cfg.CodeOutput, commitMessage, commitMessage, prBody, cycle); err != nil {
		logger.Error("publishing changes failed, restoring checkpoint", "error", err.Error())
		if rerr := o.git.RestoreCheckpoint(checkpoint); rerr != nil {
			return 0, nil, "", rerr
		}
		return outcomeFailure, nil, err.Error(), nil
	}

	if derr := o.git.DropCheckpoint(checkpoint); derr != nil {
		return 0, nil, "", derr
	}
	logger.Info("cycle committed", "files", len(changed))
	return outcomeSuccess, changed, "", nil
}

// finishCycle applies the invariant post-cycle bookkeeping: progress update,
// weight recalculation over every loaded mutation, backlog pruning, and the
// immutable history record.
func (o *Orchestrator) finishCycle(rec CycleRecord, success bool, cycle int) error {
	if err := o.tracker.Update(success, rec.Persona, rec.Adversarial, rec.ChangedFiles, cycle); err != nil {
		return err
	}
	if err := o.tracker.RecalculateWeights(o.catalog.AllIDs(), cycle); err != nil {
		return err
	}
	if _, err := o.backlog.Prune(cycle); err != nil {
		return err
	}
	return o.writeHistory(rec)
}

// finishStoppedCycle records a clean stop: the cycle counts toward the
// numbering and gets a history entry, but honestly reporting "done" is not
// a failure, so no outcome is attributed to the mutations that said it.
func (o *Orchestrator) finishStoppedCycle(rec CycleRecord, cycle int) error {
	if err := o.tracker.RecordNeutral(); err != nil {
		return err
	}
	if err := o.tracker.RecalculateWeights(o.catalog.AllIDs(), cycle); err != nil {
		return err
	}
	if _, err := o.backlog.Prune(cycle); err != nil {
		return err
	}
	return o.writeHistory(rec)
}

// settleBacklogItem resolves a claimed item from the cycle outcome: success
// completes it, anything else re-queues it (counting the failed attempt).
func (o *Orchestrator) settleBacklogItem(id string, outcome cycleOutcome, logger *logging.Logger) {
	if id == "" {
		return
	}
	status := backlog.StatusPending
	if outcome == outcomeSuccess {
		status = backlog.StatusCompleted
	}
	if err := o.backlog.UpdateStatus(id, status); err != nil {
		logger.Warn("settling backlog item failed", "error", err.Error())
	}
}

// saveUnselected files the improvements Plan passed over.
func (o *Orchestrator) saveUnselected(observed *observeResponse, selected, persona string, cycle int) {
	var ideas []backlog.Idea
	for _, imp := range observed.Improvements {
		if imp.Title == selected {
			continue
		}
		ideas = append(ideas, backlog.Idea{
			Title:    imp.Title,
			Category: imp.Category,
			Priority: imp.Priority,
			Files:    imp.Files,
		})
	}
	if len(ideas) == 0 {
		return
	}
	if _, err := o.backlog.Save(ideas, persona, cycle); err != nil {
		o.logger.Warn("saving backlog ideas failed", "error", err.Error())
	}
}
