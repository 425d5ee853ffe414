package orchestrator

import (
	"context"
	"os"
	"time"

	"github.com/Iron-Ham/kaizen/internal/backlog"
	kerrors "github.com/Iron-Ham/kaizen/internal/errors"
	"github.com/Iron-Ham/kaizen/internal/state"
)

// PendingSessionInfo returns the paused session, if one exists.
func (o *Orchestrator) PendingSessionInfo() (PendingSession, bool) {
	session := state.ReadJSON(o.paths.PendingFile(), PendingSession{})
	return session, session.Cycle != 0
}

// Resume rehydrates the paused cautious-mode session and continues it from
// Execute. The session is consumed before the work starts, so a crash
// mid-resume cannot replay it.
func (o *Orchestrator) Resume(ctx context.Context) (Summary, error) {
	session, ok := o.PendingSessionInfo()
	if !ok {
		return Summary{}, kerrors.ErrNoPendingSession
	}
	if err := os.Remove(o.paths.PendingFile()); err != nil {
		return Summary{}, err
	}
	if err := o.git.RequireRepository(); err != nil {
		return Summary{}, err
	}

	cycle := session.Cycle
	logger := o.logger.WithCycle(cycle).WithPersona(session.Persona)
	logger.Info("resuming paused session",
		"paused_for", time.Since(session.CreatedAt).Round(time.Second).String())

	started := time.Now()
	outcome, changed, reason, err := o.executeAndVerify(ctx, cycle, session.Plan, session.CommitMessage, logger)
	if err != nil {
		return Summary{}, err
	}
	o.settleBacklogItem(session.BacklogItemID, outcome, logger)

	rec := CycleRecord{
		Cycle:           cycle,
		Persona:         session.Persona,
		Adversarial:     session.Adversarial,
		Success:         outcome == outcomeSuccess,
		NoOp:            outcome == outcomeNoOp,
		CommitMessage:   session.CommitMessage,
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
	case outcomeNoOp:
		summary.NoOps = 1
	default:
		summary.Failures = 1
	}
	return summary, nil
}

// Cancel clears the paused session without touching the working tree. A
// claimed backlog item goes back to pending; the abandoned plan counts as
// an attempt.
func (o *Orchestrator) Cancel() error {
	session, ok := o.PendingSessionInfo()
	if !ok {
		return kerrors.ErrNoPendingSession
	}
	if session.BacklogItemID != "" {
		if err := o.backlog.UpdateStatus(session.BacklogItemID, backlog.StatusPending); err != nil {
			o.logger.Warn("re-queuing backlog item failed", "error", err.Error())
		}
	}
	return os.Remove(o.paths.PendingFile())
}
