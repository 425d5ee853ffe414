package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// RunImprove implements one pending proposal: its body becomes the literal
// plan for an Execute→Verify→commit-or-revert pass with no Observe or Plan
// phase. The proposal is archived to done on success.
func (o *Orchestrator) RunImprove(ctx context.Context, proposalID string) (Summary, error) {
	if err := o.git.RequireRepository(); err != nil {
		return Summary{}, err
	}

	selected, err := o.proposals.Select(proposalID)
	if err != nil {
		return Summary{}, err
	}

	cycle := o.tracker.Stats().TotalCycles + 1
	logger := o.logger.WithCycle(cycle).With("proposal", selected.ID)
	logger.Info("improve starting", "priority", selected.Priority)

	commitMessage := fmt.Sprintf("kaizen: implement proposal %s", selected.ID)
	started := time.Now()
	outcome, changed, reason, err := o.executeAndVerify(ctx, cycle, selected.Content, commitMessage, logger)
	if err != nil {
		return Summary{}, err
	}

	rec := CycleRecord{
		Cycle:           cycle,
		Persona:         "proposal",
		Success:         outcome == outcomeSuccess,
		NoOp:            outcome == outcomeNoOp,
		CommitMessage:   commitMessage,
		ChangedFiles:    changed,
		FailureReason:   reason,
		DurationSeconds: time.Since(started).Seconds(),
	}
	if err := o.finishCycle(rec, rec.Success, cycle); err != nil {
		return Summary{}, err
	}

	summary := Summary{CyclesRun: 1, LastCycle: cycle}
	switch outcome {
	case outcomeSuccess:
		summary.Successes = 1
		if err := o.proposals.MarkDone(selected.ID); err != nil {
			return summary, err
		}
		logger.Info("proposal implemented and archived")
	case outcomeNoOp:
		summary.NoOps = 1
	default:
		summary.Failures = 1
	}
	return summary, nil
}
